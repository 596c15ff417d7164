// Copyright 2026 BrowseToTest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

// Package config loads the optimization layer's configuration from
// defaults, an optional YAML file, and environment variable overrides, in
// that order of precedence.
//
// Usage:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("BTT").
//	    Load()
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete configuration for the optimization layer.
type Config struct {
	// Batch controls request batching.
	Batch BatchConfig `yaml:"batch" env:"BATCH"`

	// Cache controls the response cache backend.
	Cache CacheConfig `yaml:"cache" env:"CACHE"`

	// Retry controls the retry strategy.
	Retry RetryConfig `yaml:"retry" env:"RETRY"`

	// Breaker controls the per-provider circuit breakers.
	Breaker BreakerConfig `yaml:"breaker" env:"BREAKER"`

	// RateLimit controls outbound provider call pacing.
	RateLimit RateLimitConfig `yaml:"rate_limit" env:"RATE_LIMIT"`

	// Log controls structured logging.
	Log LogConfig `yaml:"log" env:"LOG"`

	// Metrics controls Prometheus metric registration.
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`
}

// BatchConfig controls request batching.
type BatchConfig struct {
	// Maximum entries drained into one combined call.
	MaxBatchSize int `yaml:"max_batch_size" env:"MAX_BATCH_SIZE"`
	// Default wait budget for batch accumulation.
	BatchTimeout time.Duration `yaml:"batch_timeout" env:"BATCH_TIMEOUT"`
}

// CacheConfig controls the response cache backend.
type CacheConfig struct {
	// Backend: memory or redis.
	Backend string `yaml:"backend" env:"BACKEND"`
	// Entry lifetime.
	TTL time.Duration `yaml:"ttl" env:"TTL"`
	// Redis address (redis backend only).
	RedisAddr string `yaml:"redis_addr" env:"REDIS_ADDR"`
	// Redis password.
	RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	// Redis database number.
	RedisDB int `yaml:"redis_db" env:"REDIS_DB"`
}

// RetryConfig controls the retry strategy.
type RetryConfig struct {
	// Strategy: exponential or adaptive.
	Strategy string `yaml:"strategy" env:"STRATEGY"`
	// Maximum attempts per operation.
	MaxAttempts int `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
	// Base delay for exponential backoff.
	BaseDelay time.Duration `yaml:"base_delay" env:"BASE_DELAY"`
	// Delay ceiling.
	MaxDelay time.Duration `yaml:"max_delay" env:"MAX_DELAY"`
	// Whether delays are jittered.
	Jitter bool `yaml:"jitter" env:"JITTER"`
}

// BreakerConfig controls the per-provider circuit breakers.
type BreakerConfig struct {
	// Consecutive failures before a breaker opens.
	Threshold int `yaml:"threshold" env:"THRESHOLD"`
	// How long an open breaker rejects calls.
	Cooldown time.Duration `yaml:"cooldown" env:"COOLDOWN"`
}

// RateLimitConfig controls outbound provider call pacing.
type RateLimitConfig struct {
	// Calls per second; zero disables limiting.
	RPS float64 `yaml:"rps" env:"RPS"`
	// Burst allowance.
	Burst int `yaml:"burst" env:"BURST"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	// Level: debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format: json or console.
	Format string `yaml:"format" env:"FORMAT"`
	// Output paths.
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
}

// MetricsConfig controls Prometheus metric registration.
type MetricsConfig struct {
	// Whether metrics are registered at all.
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// Metric namespace.
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// Loader assembles a Config (builder pattern).
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader creates a loader with the BTT env prefix.
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "BTT",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath sets the YAML file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix overrides the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator appends a validation hook run after loading.
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load resolves the configuration. Precedence: defaults, then YAML file,
// then environment variables.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}
		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Duration(0)) {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// MustLoad loads the configuration or panics.
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv loads defaults plus environment overrides only.
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []string

	if c.Batch.MaxBatchSize <= 0 {
		errs = append(errs, "batch.max_batch_size must be positive")
	}
	if c.Batch.BatchTimeout <= 0 {
		errs = append(errs, "batch.batch_timeout must be positive")
	}
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Sprintf("cache.backend must be memory or redis, got %q", c.Cache.Backend))
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
		errs = append(errs, "cache.redis_addr is required for the redis backend")
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, "cache.ttl must be positive")
	}
	switch c.Retry.Strategy {
	case "exponential", "adaptive":
	default:
		errs = append(errs, fmt.Sprintf("retry.strategy must be exponential or adaptive, got %q", c.Retry.Strategy))
	}
	if c.Retry.MaxAttempts <= 0 {
		errs = append(errs, "retry.max_attempts must be positive")
	}
	if c.Retry.BaseDelay <= 0 || c.Retry.MaxDelay < c.Retry.BaseDelay {
		errs = append(errs, "retry delays must satisfy 0 < base_delay <= max_delay")
	}
	if c.Breaker.Threshold <= 0 {
		errs = append(errs, "breaker.threshold must be positive")
	}
	if c.Breaker.Cooldown <= 0 {
		errs = append(errs, "breaker.cooldown must be positive")
	}
	if c.RateLimit.RPS < 0 {
		errs = append(errs, "rate_limit.rps must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}
