package app

import (
	"fmt"

	"github.com/kbukum/diarlive/config"
	"github.com/kbukum/diarlive/diarization/enginetest"
	"github.com/kbukum/diarlive/diarization/sidecar"
	"github.com/kbukum/diarlive/observability"
	"github.com/kbukum/diarlive/recovery"
	"github.com/kbukum/diarlive/server"
	"github.com/kbukum/diarlive/session"
	"github.com/kbukum/diarlive/settings"
)

// ServiceName is the default service and config-file name.
const ServiceName = "diarlive"

// Config is the full diarlive configuration.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Session       session.Config       `yaml:"session" mapstructure:"session"`
	Engine        EngineConfig         `yaml:"engine" mapstructure:"engine"`
	Settings      settings.Config      `yaml:"settings" mapstructure:"settings"`
	Recovery      recovery.Config      `yaml:"recovery" mapstructure:"recovery"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// EngineConfig selects the diarization engine.
type EngineConfig struct {
	// Name is a registered engine provider: "sidecar" or "scripted".
	// The scripted engine only receives events posted to the API.
	Name    string         `yaml:"name" mapstructure:"name"`
	Sidecar sidecar.Config `yaml:"sidecar" mapstructure:"sidecar"`
	// Buffer sizes the scripted engine's event channel.
	Buffer int `yaml:"buffer" mapstructure:"buffer"`
}

// ApplyDefaults applies defaults to every section.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = ServiceName
	}
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Session.ApplyDefaults()
	c.Engine.ApplyDefaults()
	c.Settings.ApplyDefaults()
	c.Recovery.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

// Validate validates every section.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	sections := []struct {
		name     string
		validate func() error
	}{
		{"server", c.Server.Validate},
		{"session", c.Session.Validate},
		{"engine", c.Engine.Validate},
		{"settings", c.Settings.Validate},
		{"recovery", c.Recovery.Validate},
		{"observability", c.Observability.Validate},
	}
	for _, s := range sections {
		if err := s.validate(); err != nil {
			return fmt.Errorf("config.%s: %w", s.name, err)
		}
	}
	return nil
}

func (c *EngineConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = sidecar.ProviderName
	}
	if c.Buffer <= 0 {
		c.Buffer = 256
	}
	c.Sidecar.ApplyDefaults()
}

func (c *EngineConfig) Validate() error {
	switch c.Name {
	case sidecar.ProviderName:
		return c.Sidecar.Validate()
	case enginetest.Name:
		return nil
	default:
		return fmt.Errorf("unknown engine %q", c.Name)
	}
}

// Load reads the configuration for ServiceName, optionally from an explicit
// file, and applies defaults. Validation is left to bootstrap.NewApp.
func Load(configFile string) (*Config, error) {
	cfg := &Config{}
	var opts []config.LoaderOption
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	if err := config.LoadConfig(ServiceName, cfg, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return cfg, nil
}
