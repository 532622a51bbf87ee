package sidecar

import (
	"fmt"
	"net/url"
	"time"

	"github.com/kbukum/diarlive/resilience"
)

const (
	defaultBaseURL        = "http://localhost:8388"
	defaultTimeout        = 10 * time.Second
	defaultEventsPath     = "/events"
	defaultReconnectDelay = 2 * time.Second
	defaultEventBuffer    = 256
)

// Config configures the sidecar engine.
type Config struct {
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// EventsPath is the event-stream endpoint relative to BaseURL.
	EventsPath     string        `yaml:"events_path" mapstructure:"events_path"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay" mapstructure:"reconnect_delay"`
	EventBuffer    int           `yaml:"event_buffer" mapstructure:"event_buffer"`
	// Token is sent as a bearer token when set.
	Token   string                   `yaml:"token" mapstructure:"token"`
	Breaker resilience.BreakerConfig `yaml:"breaker" mapstructure:"breaker"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.EventsPath == "" {
		c.EventsPath = defaultEventsPath
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = defaultReconnectDelay
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = defaultEventBuffer
	}
	if c.Breaker.MaxFailures <= 0 {
		c.Breaker.MaxFailures = 5
	}
	if c.Breaker.OpenFor <= 0 {
		c.Breaker.OpenFor = 30 * time.Second
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("engine.base_url must be an absolute URL (got: %q)", c.BaseURL)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("engine.timeout must not be negative")
	}
	return nil
}
