package errorhandler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/debugg-ai/browse-to-test/internal/metrics"
	"github.com/debugg-ai/browse-to-test/llm/circuitbreaker"
	"github.com/debugg-ai/browse-to-test/llm/retry"
	"github.com/debugg-ai/browse-to-test/types"
)

const errorLogLimit = 1000

// Config configures a Handler.
type Config struct {
	// Breaker configures the per-provider circuit breakers.
	Breaker circuitbreaker.Config `yaml:"breaker" json:"breaker"`

	// RateLimit caps outgoing provider calls per second; zero disables
	// client-side limiting.
	RateLimit float64 `yaml:"rate_limit" json:"rate_limit"`
	// RateBurst is the limiter burst size when RateLimit is set.
	RateBurst int `yaml:"rate_burst" json:"rate_burst"`
}

// DefaultConfig returns the defaults used when none are supplied.
func DefaultConfig() Config {
	return Config{Breaker: circuitbreaker.DefaultConfig()}
}

// Work is the unit the handler protects: typically one provider call.
type Work func(ctx context.Context) (any, error)

// Option customizes a Handler.
type Option func(*Handler)

// WithMetrics attaches a Prometheus collector; every classified failure is
// then counted on the errors_total series.
func WithMetrics(c *metrics.Collector) Option {
	return func(h *Handler) { h.metrics = c }
}

// Handler wraps provider calls with classification, retry, circuit
// breaking, and outcome recording. It owns its state; independent handlers
// never interfere (construct one per pipeline).
type Handler struct {
	strategy retry.Strategy
	breakers *circuitbreaker.Registry
	limiter  *rate.Limiter
	metrics  *metrics.Collector
	logger   *zap.Logger

	mu         sync.Mutex
	errorLog   []*types.ErrorContext
	errorStats map[string]int
	totalErrs  int

	// sleep is swappable so retry-loop tests run instantly.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a handler around the given retry strategy. A nil strategy
// falls back to the default exponential backoff.
func New(strategy retry.Strategy, cfg Config, logger *zap.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strategy == nil {
		strategy = retry.NewExponentialBackoff(retry.DefaultBackoffPolicy(), logger)
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	h := &Handler{
		strategy:   strategy,
		breakers:   circuitbreaker.NewRegistry(cfg.Breaker, logger),
		limiter:    limiter,
		logger:     logger.With(zap.String("component", "error_handler")),
		errorStats: make(map[string]int),
		sleep:      sleepCtx,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Do executes work for the named provider/model under the handler's full
// protection. The context carries the caller's overall deadline: once a
// computed retry delay would have to outlive it, the loop abandons further
// retries and returns the last error unchanged.
func (h *Handler) Do(ctx context.Context, provider, model string, work Work) (any, error) {
	tracer := otel.Tracer("browse-to-test/errorhandler")
	ctx, span := tracer.Start(ctx, "errorhandler.Do")
	span.SetAttributes(
		attribute.String("llm.provider", provider),
		attribute.String("llm.model", model),
	)
	defer span.End()

	for attempt := 1; ; attempt++ {
		if err := h.breakers.Allow(provider); err != nil {
			span.SetStatus(codes.Error, "circuit open")
			return nil, err
		}

		if h.limiter != nil {
			if err := h.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		result, err := work(ctx)
		if err == nil {
			h.breakers.RecordSuccess(provider)
			h.recordOutcome(&types.ErrorContext{
				Type:      types.ErrorUnknown,
				Provider:  provider,
				Model:     model,
				Timestamp: time.Now(),
			}, true)
			if attempt > 1 {
				h.logger.Info("provider call succeeded after retries",
					zap.String("provider", provider),
					zap.Int("attempt", attempt),
				)
			}
			return result, nil
		}

		ec := classifyAt(err, provider, model, attempt)
		h.logError(ec)
		h.recordOutcome(ec, false)
		h.breakers.RecordFailure(provider)

		if !h.strategy.ShouldRetry(ec) {
			span.SetStatus(codes.Error, string(ec.Type))
			return nil, err
		}

		delay := h.strategy.Delay(ec)
		if deadline, ok := ctx.Deadline(); ok && time.Now().Add(delay).After(deadline) {
			h.logger.Warn("abandoning retries, delay would exceed deadline",
				zap.String("provider", provider),
				zap.Duration("delay", delay),
				zap.Int("attempt", attempt),
			)
			span.SetStatus(codes.Error, "deadline")
			return nil, err
		}

		h.logger.Debug("retrying provider call",
			zap.String("provider", provider),
			zap.String("error_type", string(ec.Type)),
			zap.Duration("delay", delay),
			zap.Int("attempt", attempt),
		)
		if serr := h.sleep(ctx, delay); serr != nil {
			return nil, err
		}
	}
}

// recordOutcome feeds strategies that learn from outcomes.
func (h *Handler) recordOutcome(ec *types.ErrorContext, success bool) {
	if recorder, ok := h.strategy.(retry.OutcomeRecorder); ok {
		recorder.RecordOutcome(ec, success)
	}
}

func (h *Handler) logError(ec *types.ErrorContext) {
	h.mu.Lock()
	h.errorLog = append(h.errorLog, ec)
	if len(h.errorLog) > errorLogLimit {
		h.errorLog = h.errorLog[len(h.errorLog)-errorLogLimit:]
	}
	h.errorStats[ec.StatKey()]++
	h.totalErrs++
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.RecordError(ec.Provider, string(ec.Type))
	}

	h.logger.Warn("provider call failed",
		zap.String("provider", ec.Provider),
		zap.String("model", ec.Model),
		zap.String("error_type", string(ec.Type)),
		zap.Int("attempt", ec.AttemptNumber),
		zap.String("message", ec.Message),
	)
}

// Statistics is the error-reporting snapshot.
type Statistics struct {
	TotalErrors int            `json:"total_errors"`
	ErrorTypes  map[string]int `json:"error_types"`
}

// ErrorStatistics returns total errors and the per provider:error_kind
// breakdown.
func (h *Handler) ErrorStatistics() Statistics {
	h.mu.Lock()
	defer h.mu.Unlock()

	breakdown := make(map[string]int, len(h.errorStats))
	for k, v := range h.errorStats {
		breakdown[k] = v
	}
	return Statistics{TotalErrors: h.totalErrs, ErrorTypes: breakdown}
}

// RecentErrors returns the most recent limit logged contexts in
// chronological order.
func (h *Handler) RecentErrors(limit int) []*types.ErrorContext {
	h.mu.Lock()
	defer h.mu.Unlock()

	if limit <= 0 || limit > len(h.errorLog) {
		limit = len(h.errorLog)
	}
	out := make([]*types.ErrorContext, limit)
	copy(out, h.errorLog[len(h.errorLog)-limit:])
	return out
}

// Breakers exposes the circuit-breaker registry, mainly for monitoring.
func (h *Handler) Breakers() *circuitbreaker.Registry { return h.breakers }

// DoValue is the typed twin of Handler.Do.
func DoValue[T any](ctx context.Context, h *Handler, provider, model string, work func(ctx context.Context) (T, error)) (T, error) {
	result, err := h.Do(ctx, provider, model, func(ctx context.Context) (any, error) {
		return work(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("retry wait cancelled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
