// Package config loads service settings from the environment.
package config

import (
	"time"

	"github.com/caarlos0/env/v10"

	vqoerrors "github.com/copyleftdev/vqo/internal/errors"
)

// Config holds the server settings. Every field has an environment
// variable and a default.
type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Optimization struct {
		Optimizer    string `env:"VQO_OPTIMIZER" envDefault:"SequentialOptimizer"`
		MaxIter      int    `env:"VQO_MAXITER" envDefault:"50"`
		Backend      string `env:"VQO_BACKEND" envDefault:"statevector_simulator"`
		Shots        int    `env:"VQO_SHOTS" envDefault:"1024"`
		Depth        int    `env:"VQO_DEPTH" envDefault:"3"`
		Entanglement string `env:"VQO_ENTANGLEMENT" envDefault:"linear"`
		Seed         uint64 `env:"VQO_SEED" envDefault:"0"`
		WorkerCount  int    `env:"VQO_WORKER_COUNT" envDefault:"10"`
	}
	Metrics struct {
		Enabled bool `env:"METRICS_ENABLED" envDefault:"true"`
	}
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}

	// Parse environment variables
	if err := env.Parse(cfg); err != nil {
		return nil, vqoerrors.Wrap(err, vqoerrors.KindConfiguration, "failed to parse environment")
	}

	// Set default logging level based on environment
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
		if cfg.Environment == "development" {
			cfg.Logging.Level = "debug"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no optimization run could use.
func (c *Config) Validate() error {
	switch {
	case c.Optimization.MaxIter < 1:
		return vqoerrors.Errorf(vqoerrors.KindConfiguration, "VQO_MAXITER must be positive, got %d", c.Optimization.MaxIter).
			WithComponent("config")
	case c.Optimization.Depth < 1:
		return vqoerrors.Errorf(vqoerrors.KindConfiguration, "VQO_DEPTH must be positive, got %d", c.Optimization.Depth).
			WithComponent("config")
	case c.Optimization.WorkerCount < 1:
		return vqoerrors.Errorf(vqoerrors.KindConfiguration, "VQO_WORKER_COUNT must be positive, got %d", c.Optimization.WorkerCount).
			WithComponent("config")
	case c.Optimization.Shots < 0:
		return vqoerrors.Errorf(vqoerrors.KindConfiguration, "VQO_SHOTS must not be negative, got %d", c.Optimization.Shots).
			WithComponent("config")
	}
	return nil
}
