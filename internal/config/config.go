package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

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
		// Number of jobs allowed to run at once
		WorkerCount int `env:"OPT_WORKER_COUNT" envDefault:"4"`
		// Default gradient tolerance of BFGS runs
		GradientTolerance float64 `env:"OPT_GRADIENT_TOLERANCE" envDefault:"1e-5"`
		// Default tolerance of univariate searches
		Tolerance float64 `env:"OPT_TOLERANCE" envDefault:"1e-6"`
		// Maximum BFGS runs per job, restarts included
		MaxAttempts int `env:"OPT_MAX_ATTEMPTS" envDefault:"3"`
		// Step cap of the Newton solver
		MaxNewtonSteps int `env:"OPT_MAX_NEWTON_STEPS" envDefault:"100"`
		// Restart perturbation seed, 0 seeds from the clock
		RandomSeed int64 `env:"OPT_RANDOM_SEED" envDefault:"0"`
	}
}

func Load() (*Config, error) {
	cfg := &Config{}

	// Parse environment variables
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	// Set default logging level based on environment
	if cfg.Logging.Level == "" {
		if cfg.Environment == "development" {
			cfg.Logging.Level = "debug"
		} else {
			cfg.Logging.Level = "info"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges env tags cannot express.
func (c *Config) Validate() error {
	opt := c.Optimization
	switch {
	case c.HTTP.Port < 0 || c.HTTP.Port > 65535:
		return fmt.Errorf("HTTP_PORT out of range: %d", c.HTTP.Port)
	case opt.WorkerCount < 1:
		return fmt.Errorf("OPT_WORKER_COUNT must be positive, got %d", opt.WorkerCount)
	case !(opt.GradientTolerance > 0):
		return fmt.Errorf("OPT_GRADIENT_TOLERANCE must be positive, got %v", opt.GradientTolerance)
	case !(opt.Tolerance > 0):
		return fmt.Errorf("OPT_TOLERANCE must be positive, got %v", opt.Tolerance)
	case opt.MaxAttempts < 1:
		return fmt.Errorf("OPT_MAX_ATTEMPTS must be at least 1, got %d", opt.MaxAttempts)
	case opt.MaxNewtonSteps < 1:
		return fmt.Errorf("OPT_MAX_NEWTON_STEPS must be at least 1, got %d", opt.MaxNewtonSteps)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Logging.Format)
	}
	return nil
}
