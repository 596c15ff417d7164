package config

import "time"

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Batch:     DefaultBatchConfig(),
		Cache:     DefaultCacheConfig(),
		Retry:     DefaultRetryConfig(),
		Breaker:   DefaultBreakerConfig(),
		RateLimit: DefaultRateLimitConfig(),
		Log:       DefaultLogConfig(),
		Metrics:   DefaultMetricsConfig(),
	}
}

// DefaultBatchConfig returns the default batching configuration.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		MaxBatchSize: 10,
		BatchTimeout: 2 * time.Second,
	}
}

// DefaultCacheConfig returns the default cache configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Backend:   "memory",
		TTL:       time.Hour,
		RedisAddr: "localhost:6379",
		RedisDB:   0,
	}
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Strategy:    "exponential",
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    60 * time.Second,
		Jitter:      true,
	}
}

// DefaultBreakerConfig returns the default circuit breaker configuration.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Threshold: 5,
		Cooldown:  60 * time.Second,
	}
}

// DefaultRateLimitConfig returns the default rate limit configuration.
// RPS zero means unlimited.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RPS:   0,
		Burst: 1,
	}
}

// DefaultLogConfig returns the default logging configuration.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{"stdout"},
	}
}

// DefaultMetricsConfig returns the default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   true,
		Namespace: "browse_to_test",
	}
}
