// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Config holds the server settings.
type Config struct {
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	// LogFormat is "text" for colored output or "json".
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	StoreBackend string `env:"STORE_BACKEND" envDefault:"memory"`
	DBPath       string `env:"DB_PATH" envDefault:"./data/evenly.db"`

	// AMQPURL enables ledger event publishing when set.
	AMQPURL        string `env:"AMQP_URL"`
	AMQPExchange   string `env:"AMQP_EXCHANGE" envDefault:"evenly"`
	AMQPRoutingKey string `env:"AMQP_ROUTING_KEY" envDefault:"ledger.events"`

	MetricsPath     string        `env:"METRICS_PATH" envDefault:"/metrics"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load reads an optional .env file, then parses and validates the environment.
// Variables already set in the environment win over the .env file.
func Load() (Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the configuration from the environment without touching .env.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d: must be between 1 and 65535", c.Port))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid log level %q", c.LogLevel))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid log format %q: must be text or json", c.LogFormat))
	}

	switch c.StoreBackend {
	case BackendMemory:
	case BackendSQLite:
		if c.DBPath == "" {
			errs = append(errs, errors.New("DB_PATH cannot be empty when using the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid store backend %q: must be %s or %s", c.StoreBackend, BackendMemory, BackendSQLite))
	}

	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Errorf("invalid AMQP URL: %w", err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			errs = append(errs, fmt.Errorf("invalid AMQP URL scheme %q: must be amqp or amqps", u.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, errors.New("AMQP_EXCHANGE cannot be empty when AMQP_URL is set"))
		}
		if c.AMQPRoutingKey == "" {
			errs = append(errs, errors.New("AMQP_ROUTING_KEY cannot be empty when AMQP_URL is set"))
		}
	}

	if !strings.HasPrefix(c.MetricsPath, "/") {
		errs = append(errs, fmt.Errorf("invalid metrics path %q: must start with /", c.MetricsPath))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_TIMEOUT must be positive"))
	}

	return errors.Join(errs...)
}
