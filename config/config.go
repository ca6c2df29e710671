// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Storage driver names accepted in STORE_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds every runtime knob of the server.
type Config struct {
	Port int    `env:"PORT" envDefault:"8080"`
	Host string `env:"HOST" envDefault:"0.0.0.0"`

	// Driver selects the storage backend: sqlite or postgres.
	Driver      string `env:"STORE_DRIVER" envDefault:"sqlite"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"./data/credits.db"`
	DatabaseURL string `env:"DATABASE_URL"`

	// DustThreshold is the magnitude below which nonzero installment
	// residuals are written off as rounding noise.
	DustThreshold float64 `env:"DUST_THRESHOLD" envDefault:"0.1"`

	// RoundingSchedule is the cron expression for the periodic
	// rounding-reconciliation job. Empty disables the job.
	RoundingSchedule string `env:"ROUNDING_SCHEDULE" envDefault:"0 3 * * *"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Driver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required with the sqlite driver")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required with the postgres driver")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Driver)
	}
	if c.DustThreshold < 0 {
		return fmt.Errorf("DUST_THRESHOLD must not be negative")
	}
	return nil
}

// Addr returns the host:port the HTTP server binds to.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
