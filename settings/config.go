package settings

import (
	"fmt"
	"time"
)

const (
	BackendStatic = "static"
	BackendSQLite = "sqlite"
)

// Config selects and configures the settings store.
type Config struct {
	// Backend is "static" (in memory) or "sqlite".
	Backend string `yaml:"backend" mapstructure:"backend"`

	// DSN is the sqlite data source, e.g. "file:settings.db" or ":memory:".
	DSN string `yaml:"dsn" mapstructure:"dsn"`

	// AutoMigrate creates the settings table on open.
	AutoMigrate bool `yaml:"auto_migrate" mapstructure:"auto_migrate"`

	// MaxRetries is the number of open attempts before giving up.
	MaxRetries int `yaml:"max_retries" mapstructure:"max_retries"`

	// SlowQueryThreshold is the duration above which queries are logged as slow.
	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold" mapstructure:"slow_query_threshold"`

	// LogLevel is the gorm log level: silent, error, warn or info.
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = BackendStatic
	}
	if c.DSN == "" {
		c.DSN = "file:diarlive.db"
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.SlowQueryThreshold <= 0 {
		c.SlowQueryThreshold = 200 * time.Millisecond
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendStatic, BackendSQLite:
	default:
		return fmt.Errorf("settings: unknown backend %q", c.Backend)
	}
	if c.Backend == BackendSQLite && c.DSN == "" {
		return fmt.Errorf("settings: dsn is required for the sqlite backend")
	}
	return nil
}
