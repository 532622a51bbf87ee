package resilience

import (
	stderrors "errors"
	"sync"
	"time"
)

// ErrBreakerOpen is returned by Execute while the breaker is open.
var ErrBreakerOpen = stderrors.New("circuit breaker is open")

// BreakerState is the breaker's position.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

// String returns the state name.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures a Breaker.
type BreakerConfig struct {
	Name string `yaml:"-" mapstructure:"-"`
	// MaxFailures consecutive failures open the breaker.
	MaxFailures int `yaml:"max_failures" mapstructure:"max_failures"`
	// OpenFor is how long the breaker stays open before a trial call.
	OpenFor time.Duration `yaml:"open_for" mapstructure:"open_for"`

	OnStateChange func(name string, from, to BreakerState) `yaml:"-" mapstructure:"-"`
	Now           func() time.Time                         `yaml:"-" mapstructure:"-"`
}

// DefaultBreakerConfig returns the defaults for a named breaker.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{Name: name, MaxFailures: 5, OpenFor: 30 * time.Second}
}

// Breaker fails fast after repeated failures. Once OpenFor has passed it
// lets a single trial call through; success closes it, failure reopens it.
type Breaker struct {
	cfg BreakerConfig

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	trial    bool
}

// NewBreaker creates a closed breaker.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenFor <= 0 {
		cfg.OpenFor = 30 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Breaker{cfg: cfg}
}

// Execute runs fn unless the breaker is open.
func (b *Breaker) Execute(fn func() error) error {
	if !b.allow() {
		return ErrBreakerOpen
	}
	err := fn()
	b.record(err)
	return err
}

// State returns the current position.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current()
}

// Reset closes the breaker.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.moveTo(BreakerClosed)
	b.failures = 0
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.current() {
	case BreakerClosed:
		return true
	case BreakerHalfOpen:
		if b.trial {
			return false
		}
		b.trial = true
		return true
	default:
		return false
	}
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := b.current()
	if err == nil {
		b.failures = 0
		if state == BreakerHalfOpen {
			b.moveTo(BreakerClosed)
		}
		return
	}

	b.failures++
	if state == BreakerHalfOpen || b.failures >= b.cfg.MaxFailures {
		b.openedAt = b.cfg.Now()
		b.moveTo(BreakerOpen)
	}
}

func (b *Breaker) current() BreakerState {
	if b.state == BreakerOpen && b.cfg.Now().Sub(b.openedAt) >= b.cfg.OpenFor {
		b.moveTo(BreakerHalfOpen)
	}
	return b.state
}

func (b *Breaker) moveTo(to BreakerState) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	b.trial = false
	if to == BreakerClosed {
		b.failures = 0
	}
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.cfg.Name, from, to)
	}
}
