package session

import (
	"fmt"
	"time"

	"github.com/kbukum/diarlive/ledger"
	"github.com/kbukum/diarlive/speaker"
)

// Config tunes the controller.
type Config struct {
	// QueueSize bounds the event queue drained by Run.
	QueueSize int `yaml:"queue_size" mapstructure:"queue_size"`

	// InitTimeout moves an initializing session to error when the engine
	// never reports active. Zero means the 30s default; a negative value
	// disables the timeout.
	InitTimeout time.Duration `yaml:"init_timeout" mapstructure:"init_timeout"`

	// TickInterval is how often Run expires animations and checks timeouts.
	TickInterval time.Duration `yaml:"tick_interval" mapstructure:"tick_interval"`

	// CommandTimeout bounds each engine command.
	CommandTimeout time.Duration `yaml:"command_timeout" mapstructure:"command_timeout"`

	// ColdStartConfidence is the minimum segment confidence that completes
	// the cold start. Segments without a confidence always qualify.
	ColdStartConfidence float64 `yaml:"cold_start_confidence" mapstructure:"cold_start_confidence"`

	// NameConfidenceThreshold applies to sessions started without settings.
	NameConfidenceThreshold float64 `yaml:"name_confidence_threshold" mapstructure:"name_confidence_threshold"`

	AnimationWindow time.Duration `yaml:"animation_window" mapstructure:"animation_window"`

	Ledger ledger.Config `yaml:"ledger" mapstructure:"ledger"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.InitTimeout == 0 {
		c.InitTimeout = 30 * time.Second
	}
	if c.TickInterval <= 0 {
		c.TickInterval = 100 * time.Millisecond
	}
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = 10 * time.Second
	}
	if c.ColdStartConfidence <= 0 {
		c.ColdStartConfidence = 0.5
	}
	if c.AnimationWindow <= 0 {
		c.AnimationWindow = speaker.DefaultAnimationWindow
	}
	c.Ledger.ApplyDefaults()
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.ColdStartConfidence > 1 {
		return fmt.Errorf("session.cold_start_confidence must be at most 1 (got: %v)", c.ColdStartConfidence)
	}
	if c.NameConfidenceThreshold < 0 || c.NameConfidenceThreshold > 1 {
		return fmt.Errorf("session.name_confidence_threshold must be between 0 and 1 (got: %v)", c.NameConfidenceThreshold)
	}
	return c.Ledger.Validate()
}
