package recovery

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/diarlive/logger"
	"github.com/kbukum/diarlive/resilience"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendKafka  = "kafka"
)

// Config selects and configures the recovery queue.
type Config struct {
	Backend string                 `yaml:"backend" mapstructure:"backend"`
	Redis   RedisConfig            `yaml:"redis" mapstructure:"redis"`
	Kafka   KafkaConfig            `yaml:"kafka" mapstructure:"kafka"`
	Retry   resilience.RetryConfig `yaml:"retry" mapstructure:"retry"`
}

// RedisConfig configures RedisQueue.
type RedisConfig struct {
	Addr         string        `yaml:"addr" mapstructure:"addr"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	Key          string        `yaml:"key" mapstructure:"key"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// KafkaConfig configures KafkaQueue.
type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers" mapstructure:"brokers"`
	Topic        string        `yaml:"topic" mapstructure:"topic"`
	BatchTimeout time.Duration `yaml:"batch_timeout" mapstructure:"batch_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = BackendMemory
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.Key == "" {
		c.Redis.Key = "diarlive:recovery"
	}
	if c.Redis.DialTimeout <= 0 {
		c.Redis.DialTimeout = 5 * time.Second
	}
	if c.Redis.WriteTimeout <= 0 {
		c.Redis.WriteTimeout = 3 * time.Second
	}
	if len(c.Kafka.Brokers) == 0 {
		c.Kafka.Brokers = []string{"localhost:9092"}
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "diarization.recovery"
	}
	if c.Kafka.BatchTimeout <= 0 {
		c.Kafka.BatchTimeout = 10 * time.Millisecond
	}
	if c.Kafka.WriteTimeout <= 0 {
		c.Kafka.WriteTimeout = 10 * time.Second
	}
	c.Retry.ApplyDefaults()
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendRedis, BackendKafka:
	default:
		return fmt.Errorf("recovery: unknown backend %q", c.Backend)
	}
	return c.Retry.Validate()
}

// Open builds the configured queue wrapped with retries.
func Open(ctx context.Context, cfg Config, log *logger.Logger) (Queue, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log = log.WithComponent("recovery")

	var q Queue
	switch cfg.Backend {
	case BackendRedis:
		rq, err := NewRedisQueue(ctx, cfg.Redis, log)
		if err != nil {
			return nil, err
		}
		q = rq
	case BackendKafka:
		q = NewKafkaQueue(cfg.Kafka, log)
	default:
		q = NewMemory()
	}
	return WithRetry(q, cfg.Retry, log), nil
}
