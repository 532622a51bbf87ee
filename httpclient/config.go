package httpclient

import (
	"fmt"
	"net/url"
	"time"

	"github.com/kbukum/diarlive/resilience"
)

const defaultTimeout = 30 * time.Second

// Config configures a Client.
type Config struct {
	// BaseURL is prepended to relative request paths.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// Timeout bounds each non-streaming request. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Token is sent as a bearer token when set.
	Token string `yaml:"-" mapstructure:"-"`

	// Headers are applied to every request; request headers override them.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// Retry wraps Do in a retry policy. Nil disables retries.
	Retry *resilience.RetryConfig `yaml:"-" mapstructure:"-"`

	// Breaker guards Do with a circuit breaker. Nil disables it.
	Breaker *resilience.BreakerConfig `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("httpclient: timeout must be positive")
	}
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("httpclient: base_url must be an absolute URL (got: %q)", c.BaseURL)
		}
	}
	if c.Retry != nil {
		if err := c.Retry.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// DefaultRetryConfig retries only errors IsRetryable accepts.
func DefaultRetryConfig() *resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.RetryIf = IsRetryable
	return &cfg
}
