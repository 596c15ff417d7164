package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 10, cfg.Batch.MaxBatchSize)
	assert.Equal(t, 2*time.Second, cfg.Batch.BatchTimeout)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "exponential", cfg.Retry.Strategy)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 5, cfg.Breaker.Threshold)
	assert.Equal(t, 60*time.Second, cfg.Breaker.Cooldown)
}

func TestLoader_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
batch:
  max_batch_size: 25
  batch_timeout: 5s
cache:
  backend: redis
  redis_addr: redis.internal:6379
  ttl: 30m
retry:
  strategy: adaptive
  max_attempts: 7
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Batch.MaxBatchSize)
	assert.Equal(t, 5*time.Second, cfg.Batch.BatchTimeout)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "redis.internal:6379", cfg.Cache.RedisAddr)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "adaptive", cfg.Retry.Strategy)
	assert.Equal(t, 7, cfg.Retry.MaxAttempts)
	assert.Equal(t, "debug", cfg.Log.Level)

	// Untouched sections keep their defaults.
	assert.Equal(t, 5, cfg.Breaker.Threshold)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("batch:\n  max_batch_size: 25\n"), 0o600))

	t.Setenv("BTT_BATCH_MAX_BATCH_SIZE", "50")
	t.Setenv("BTT_RETRY_BASE_DELAY", "250ms")
	t.Setenv("BTT_METRICS_ENABLED", "false")
	t.Setenv("BTT_LOG_OUTPUT_PATHS", "stdout, /var/log/btt.log")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Batch.MaxBatchSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.BaseDelay)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, []string{"stdout", "/var/log/btt.log"}, cfg.Log.OutputPaths)
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/nonexistent/config.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Batch.MaxBatchSize)
}

func TestLoader_MalformedYAMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("batch: [not a map"), 0o600))

	_, err := NewLoader().WithConfigPath(path).Load()
	assert.Error(t, err)
}

func TestLoader_CustomValidator(t *testing.T) {
	called := false
	_, err := NewLoader().WithValidator(func(c *Config) error {
		called = true
		return nil
	}).Load()

	require.NoError(t, err)
	assert.True(t, called)
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero batch size", func(c *Config) { c.Batch.MaxBatchSize = 0 }},
		{"unknown cache backend", func(c *Config) { c.Cache.Backend = "memcached" }},
		{"redis without addr", func(c *Config) { c.Cache.Backend = "redis"; c.Cache.RedisAddr = "" }},
		{"zero ttl", func(c *Config) { c.Cache.TTL = 0 }},
		{"unknown retry strategy", func(c *Config) { c.Retry.Strategy = "fibonacci" }},
		{"max delay below base", func(c *Config) { c.Retry.MaxDelay = c.Retry.BaseDelay / 2 }},
		{"zero breaker threshold", func(c *Config) { c.Breaker.Threshold = 0 }},
		{"negative rps", func(c *Config) { c.RateLimit.RPS = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLogConfig_BuildLogger(t *testing.T) {
	logger, err := LogConfig{Level: "debug", Format: "console", OutputPaths: []string{"stderr"}}.BuildLogger()
	require.NoError(t, err)
	require.NotNil(t, logger)

	_, err = LogConfig{Level: "noisy"}.BuildLogger()
	assert.Error(t, err)
}
