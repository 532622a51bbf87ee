package ledger

import "fmt"

const (
	DefaultSkewTolerance = 2.0
	DefaultRetainWindow  = 30 * 60.0
)

// Config bounds reordering and memory. Both values are seconds of audio time.
type Config struct {
	SkewTolerance float64 `yaml:"skew_tolerance" mapstructure:"skew_tolerance"`
	RetainWindow  float64 `yaml:"retain_window" mapstructure:"retain_window"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.SkewTolerance == 0 {
		c.SkewTolerance = DefaultSkewTolerance
	}
	if c.RetainWindow == 0 {
		c.RetainWindow = DefaultRetainWindow
	}
}

// Validate checks the bounds are usable.
func (c *Config) Validate() error {
	if c.SkewTolerance < 0 {
		return fmt.Errorf("ledger.skew_tolerance must not be negative (got: %v)", c.SkewTolerance)
	}
	if c.RetainWindow < c.SkewTolerance {
		return fmt.Errorf("ledger.retain_window must be at least skew_tolerance (got: %v < %v)", c.RetainWindow, c.SkewTolerance)
	}
	return nil
}
