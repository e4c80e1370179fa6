package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime settings, loaded from the environment.
type Config struct {
	DBSource    string        `env:"DB_SOURCE,required,notEmpty"`
	Port        string        `env:"SERVER_PORT" envDefault:"8080"`
	Env         string        `env:"ENVIRONMENT" envDefault:"development"`
	MaxRetries  int           `env:"TRANSFER_MAX_RETRIES" envDefault:"3"`
	LockTimeout time.Duration `env:"LOCK_TIMEOUT" envDefault:"5s"`

	// AMQPURL is optional; when empty, transfer-completed notifications are
	// disabled.
	AMQPURL       string `env:"AMQP_URL"`
	EventExchange string `env:"EVENT_EXCHANGE" envDefault:"bank.transfers"`
	EventRoute    string `env:"EVENT_ROUTING_KEY" envDefault:"transfer.completed"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("TRANSFER_MAX_RETRIES must be >= 0, got %d", cfg.MaxRetries)
	}
	return &cfg, nil
}
