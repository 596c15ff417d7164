package retry

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/debugg-ai/browse-to-test/types"
)

const (
	// emaWeight is the weight of the newest outcome in the success-rate
	// moving average: rate = emaWeight*outcome + (1-emaWeight)*rate.
	emaWeight = 0.1

	// historyLimit bounds the retained error contexts.
	historyLimit = 100

	// errorDensityWindow and errorDensityThreshold drive the "many recent
	// failures" signal that doubles the computed delay.
	errorDensityWindow    = 10 * time.Second
	errorDensityThreshold = 5
)

// kind-specific base delays for the adaptive strategy.
var adaptiveBaseDelays = map[types.ErrorType]time.Duration{
	types.ErrorRateLimit:          10 * time.Second,
	types.ErrorServiceUnavailable: 15 * time.Second,
	types.ErrorAPIError:           5 * time.Second,
	types.ErrorUnknown:            3 * time.Second,
	types.ErrorTimeout:            2 * time.Second,
	types.ErrorNetwork:            time.Second,
	types.ErrorAuthentication:     500 * time.Millisecond,
}

// Adaptive adjusts its attempt budget per provider/model pair based on an
// exponential moving average of recent outcomes: a provider that keeps
// failing earns fewer retries.
type Adaptive struct {
	maxAttempts int
	logger      *zap.Logger

	mu          sync.Mutex
	successRate map[string]float64
	history     []*types.ErrorContext
}

// NewAdaptive creates the strategy with a baseline attempt budget.
func NewAdaptive(maxAttempts int, logger *zap.Logger) *Adaptive {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adaptive{
		maxAttempts: maxAttempts,
		logger:      logger,
		successRate: make(map[string]float64),
	}
}

// ShouldRetry implements Strategy. Authentication failures get exactly one
// retry, invalid requests none; everything else retries while the attempt
// number is below max(1, floor(baseline * success_rate)).
func (s *Adaptive) ShouldRetry(ctx *types.ErrorContext) bool {
	switch ctx.Type {
	case types.ErrorAuthentication:
		return ctx.AttemptNumber == 1
	case types.ErrorInvalidRequest:
		return false
	}

	effectiveMax := int(math.Max(1, math.Floor(float64(s.maxAttempts)*s.rateFor(ctx.ProviderKey()))))
	return ctx.AttemptNumber < effectiveMax
}

// Delay implements Strategy: a kind-specific base, jittered by a factor in
// [0.75, 1.25], doubled when the provider has shown a burst of recent
// failures.
func (s *Adaptive) Delay(ctx *types.ErrorContext) time.Duration {
	base, ok := adaptiveBaseDelays[ctx.Type]
	if !ok {
		base = adaptiveBaseDelays[types.ErrorUnknown]
	}

	delay := float64(base) * (0.75 + rand.Float64()*0.5)
	if s.recentErrorCount(ctx.Provider) >= errorDensityThreshold {
		delay *= 2
	}
	return time.Duration(delay)
}

// RecordOutcome implements OutcomeRecorder: it updates the provider/model
// moving average and appends the context to the bounded history.
func (s *Adaptive) RecordOutcome(ctx *types.ErrorContext, success bool) {
	outcome := 0.0
	if success {
		outcome = 1.0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := ctx.ProviderKey()
	old, ok := s.successRate[key]
	if !ok {
		old = 1.0
	}
	rate := emaWeight*outcome + (1-emaWeight)*old
	s.successRate[key] = rate

	s.history = append(s.history, ctx)
	if len(s.history) > historyLimit {
		s.history = s.history[len(s.history)-historyLimit:]
	}

	s.logger.Debug("recorded call outcome",
		zap.String("provider_key", key),
		zap.Bool("success", success),
		zap.Float64("success_rate", rate),
	)
}

// SuccessRate reports the learned rate for a provider:model key, defaulting
// to 1.0 for unseen pairs.
func (s *Adaptive) SuccessRate(providerKey string) float64 {
	return s.rateFor(providerKey)
}

func (s *Adaptive) rateFor(providerKey string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rate, ok := s.successRate[providerKey]; ok {
		return rate
	}
	return 1.0
}

func (s *Adaptive) recentErrorCount(provider string) int {
	cutoff := time.Now().Add(-errorDensityWindow)

	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, e := range s.history {
		if e.Provider == provider && e.Timestamp.After(cutoff) {
			count++
		}
	}
	return count
}
