package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/diarlive/errors"
)

// RateLimitConfig bounds how often one caller may issue commands.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	// KeyFunc extracts the limiter key. Defaults to the token subject, then
	// client IP.
	KeyFunc func(*gin.Context) string `yaml:"-" mapstructure:"-"`
	// Now is the clock; tests replace it.
	Now func() time.Time `yaml:"-" mapstructure:"-"`
}

// RateLimit applies a per-key sliding one-minute window.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = SubjectKey
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	rl := &rateLimiter{requests: make(map[string][]time.Time), limit: cfg.RequestsPerMinute, now: cfg.Now}

	return func(c *gin.Context) {
		if !rl.allow(cfg.KeyFunc(c)) {
			appErr := errors.RateLimited("1m")
			c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
			return
		}
		c.Next()
	}
}

// SubjectKey keys on the token subject, falling back to client IP.
func SubjectKey(c *gin.Context) string {
	if sub, ok := c.Get("sub"); ok {
		if s, ok := sub.(string); ok && s != "" {
			return s
		}
	}
	return c.ClientIP()
}

type rateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	now      func() time.Time
}

// allow prunes key's window in place, so idle keys do not accumulate
// beyond their last minute of history.
func (rl *rateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-time.Minute)
	valid := rl.requests[key][:0]
	for _, t := range rl.requests[key] {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false
	}
	rl.requests[key] = append(valid, now)
	return true
}
