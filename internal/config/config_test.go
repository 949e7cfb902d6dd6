package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 30*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, 120*time.Second, cfg.HTTP.IdleTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "stderr", cfg.Logging.Output)
	assert.Equal(t, 4, cfg.Optimization.WorkerCount)
	assert.Equal(t, 1e-5, cfg.Optimization.GradientTolerance)
	assert.Equal(t, 1e-6, cfg.Optimization.Tolerance)
	assert.Equal(t, 3, cfg.Optimization.MaxAttempts)
	assert.Equal(t, 100, cfg.Optimization.MaxNewtonSteps)
	assert.Zero(t, cfg.Optimization.RandomSeed)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("HTTP_SHUTDOWN_TIMEOUT", "5s")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("OPT_WORKER_COUNT", "16")
	t.Setenv("OPT_GRADIENT_TOLERANCE", "1e-8")
	t.Setenv("OPT_MAX_ATTEMPTS", "5")
	t.Setenv("OPT_RANDOM_SEED", "1234")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, 16, cfg.Optimization.WorkerCount)
	assert.Equal(t, 1e-8, cfg.Optimization.GradientTolerance)
	assert.Equal(t, 5, cfg.Optimization.MaxAttempts)
	assert.Equal(t, int64(1234), cfg.Optimization.RandomSeed)
}

func TestLoadExplicitLevelWins(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "unparsable port", key: "HTTP_PORT", value: "eighty"},
		{name: "zero workers", key: "OPT_WORKER_COUNT", value: "0"},
		{name: "negative gradient tolerance", key: "OPT_GRADIENT_TOLERANCE", value: "-1"},
		{name: "zero tolerance", key: "OPT_TOLERANCE", value: "0"},
		{name: "no attempts", key: "OPT_MAX_ATTEMPTS", value: "0"},
		{name: "no newton steps", key: "OPT_MAX_NEWTON_STEPS", value: "0"},
		{name: "unknown log format", key: "LOG_FORMAT", value: "xml"},
		{name: "port out of range", key: "HTTP_PORT", value: "70000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
