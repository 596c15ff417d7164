package retry

import (
	"math"
	"math/rand"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/debugg-ai/browse-to-test/types"
)

// BackoffPolicy configures ExponentialBackoff.
type BackoffPolicy struct {
	// BaseDelay is the delay before the second attempt.
	BaseDelay time.Duration `yaml:"base_delay" json:"base_delay"`
	// MaxDelay caps the computed delay.
	MaxDelay time.Duration `yaml:"max_delay" json:"max_delay"`
	// MaxAttempts is the total attempt budget; once the attempt number
	// reaches it, no further retry is granted.
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts"`
	// Jitter multiplies the delay by a random factor in [0.5, 1.5] to
	// spread concurrent retries.
	Jitter bool `yaml:"jitter" json:"jitter"`
}

// DefaultBackoffPolicy returns the defaults used for most provider calls.
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		BaseDelay:   time.Second,
		MaxDelay:    60 * time.Second,
		MaxAttempts: 3,
		Jitter:      true,
	}
}

// ExponentialBackoff is the stateless default strategy: transient error
// kinds are retried with exponentially growing delays, permanent kinds are
// surfaced immediately.
type ExponentialBackoff struct {
	policy BackoffPolicy
	logger *zap.Logger
}

// NewExponentialBackoff validates the policy and creates the strategy.
func NewExponentialBackoff(policy BackoffPolicy, logger *zap.Logger) *ExponentialBackoff {
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = time.Second
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = 60 * time.Second
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExponentialBackoff{policy: policy, logger: logger}
}

// ShouldRetry implements Strategy. Only transient kinds are retried, and
// never once the attempt number reaches the configured maximum.
func (s *ExponentialBackoff) ShouldRetry(ctx *types.ErrorContext) bool {
	if ctx.AttemptNumber >= s.policy.MaxAttempts {
		return false
	}
	return transientKinds[ctx.Type]
}

// Delay implements Strategy: base_delay * 2^(attempt-1), capped at
// max_delay. A rate-limit context carrying a retry_after hint overrides the
// formula with the provider's own figure.
func (s *ExponentialBackoff) Delay(ctx *types.ErrorContext) time.Duration {
	if ctx.Type == types.ErrorRateLimit {
		if raw, ok := ctx.Metadata[types.MetaRetryAfter]; ok {
			if secs, err := strconv.ParseFloat(raw, 64); err == nil && secs >= 0 {
				return time.Duration(secs * float64(time.Second))
			}
			s.logger.Warn("unparseable retry_after hint, falling back to backoff",
				zap.String("retry_after", raw),
				zap.String("provider", ctx.Provider),
			)
		}
	}

	delay := float64(s.policy.BaseDelay) * math.Pow(2, float64(ctx.AttemptNumber-1))
	if delay > float64(s.policy.MaxDelay) {
		delay = float64(s.policy.MaxDelay)
	}

	if s.policy.Jitter {
		delay *= 0.5 + rand.Float64()
	}

	return time.Duration(delay)
}
