// Copyright 2026 BrowseToTest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

// Package browsetotest assembles the AI-call optimization layer: a batch
// processor that combines compatible analysis requests into single provider
// calls, a TTL response cache, and an error handler providing retry,
// classification, and per-provider circuit breaking.
package browsetotest

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/debugg-ai/browse-to-test/config"
	"github.com/debugg-ai/browse-to-test/internal/metrics"
	"github.com/debugg-ai/browse-to-test/llm"
	"github.com/debugg-ai/browse-to-test/llm/batch"
	"github.com/debugg-ai/browse-to-test/llm/cache"
	"github.com/debugg-ai/browse-to-test/llm/circuitbreaker"
	"github.com/debugg-ai/browse-to-test/llm/errorhandler"
	"github.com/debugg-ai/browse-to-test/llm/retry"
	"github.com/debugg-ai/browse-to-test/types"
)

// Optimizer is the facade over the optimization layer. Submit queues
// requests; ProcessAll (or ProcessKey) drains them with as few provider
// calls as the batching and cache allow.
type Optimizer struct {
	cfg       *config.Config
	logger    *zap.Logger
	provider  llm.Provider
	protected llm.Provider

	processor *batch.Processor
	handler   *errorhandler.Handler
	store     cache.Store
}

// OptimizerOption customizes construction.
type OptimizerOption func(*optimizerOptions)

type optimizerOptions struct {
	registerer prometheus.Registerer
	store      cache.Store
}

// WithRegisterer routes metric registration to reg instead of the default
// Prometheus registerer.
func WithRegisterer(reg prometheus.Registerer) OptimizerOption {
	return func(o *optimizerOptions) { o.registerer = reg }
}

// WithCacheStore overrides the cache backend the configuration selects.
func WithCacheStore(store cache.Store) OptimizerOption {
	return func(o *optimizerOptions) { o.store = store }
}

// New assembles an Optimizer around provider. A nil cfg uses defaults; a
// nil logger discards output.
func New(provider llm.Provider, cfg *config.Config, logger *zap.Logger, opts ...OptimizerOption) (*Optimizer, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var options optimizerOptions
	for _, opt := range opts {
		opt(&options)
	}

	store := options.store
	if store == nil {
		var err error
		store, err = buildStore(cfg.Cache, logger)
		if err != nil {
			return nil, err
		}
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.Namespace, options.registerer, logger)
	}

	strategy, err := buildStrategy(cfg.Retry, logger)
	if err != nil {
		return nil, err
	}

	var handlerOpts []errorhandler.Option
	if collector != nil {
		handlerOpts = append(handlerOpts, errorhandler.WithMetrics(collector))
	}
	handler := errorhandler.New(strategy, errorhandler.Config{
		Breaker: circuitbreaker.Config{
			Threshold: cfg.Breaker.Threshold,
			Cooldown:  cfg.Breaker.Cooldown,
		},
		RateLimit: cfg.RateLimit.RPS,
		RateBurst: cfg.RateLimit.Burst,
	}, logger, handlerOpts...)

	processorOpts := []batch.Option{batch.WithStore(store)}
	if collector != nil {
		processorOpts = append(processorOpts, batch.WithMetrics(collector))
	}
	processor := batch.NewProcessor(batch.Config{
		MaxBatchSize: cfg.Batch.MaxBatchSize,
		BatchTimeout: cfg.Batch.BatchTimeout,
		CacheTTL:     cfg.Cache.TTL,
	}, logger, processorOpts...)

	o := &Optimizer{
		cfg:       cfg,
		logger:    logger.With(zap.String("component", "optimizer")),
		provider:  provider,
		processor: processor,
		handler:   handler,
		store:     store,
	}
	o.protected = llm.ProviderFunc{
		ProviderName: provider.Name(),
		Fn: func(ctx context.Context, req *types.AnalysisRequest) (*types.AIResponse, error) {
			return errorhandler.DoValue(ctx, handler, provider.Name(), "", func(ctx context.Context) (*types.AIResponse, error) {
				return provider.AnalyzeWithContext(ctx, req)
			})
		},
	}
	return o, nil
}

func buildStore(cfg config.CacheConfig, logger *zap.Logger) (cache.Store, error) {
	switch cfg.Backend {
	case "redis":
		return cache.NewRedisStore(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.TTL,
		}, logger)
	default:
		return cache.NewMemoryStore(cfg.TTL), nil
	}
}

func buildStrategy(cfg config.RetryConfig, logger *zap.Logger) (retry.Strategy, error) {
	switch cfg.Strategy {
	case "adaptive":
		return retry.NewAdaptive(cfg.MaxAttempts, logger), nil
	case "exponential", "":
		return retry.NewExponentialBackoff(retry.BackoffPolicy{
			BaseDelay:   cfg.BaseDelay,
			MaxDelay:    cfg.MaxDelay,
			MaxAttempts: cfg.MaxAttempts,
			Jitter:      cfg.Jitter,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown retry strategy %q", cfg.Strategy)
	}
}

// Submit queues a request for batched processing and returns its generated
// identifier.
func (o *Optimizer) Submit(req *types.AnalysisRequest, priority int) string {
	id := uuid.NewString()
	o.processor.AddRequest(id, req, priority)
	return id
}

// SubmitWithID queues a request under a caller-chosen identifier.
func (o *Optimizer) SubmitWithID(id string, req *types.AnalysisRequest, priority int) {
	o.processor.AddRequest(id, req, priority)
}

// ProcessKey drains one batch key completely, making one provider call per
// drained group (each call protected by the error handler).
func (o *Optimizer) ProcessKey(ctx context.Context, batchKey string) []*batch.BatchResult {
	var results []*batch.BatchResult
	for {
		group := o.processor.ProcessBatch(ctx, batchKey, o.protected)
		if len(group) == 0 {
			return results
		}
		results = append(results, group...)
	}
}

// ProcessAll drains every pending batch key concurrently and returns the
// results keyed by request identifier. Per-request failures are reported in
// the results, not as the returned error, which is reserved for context
// cancellation.
func (o *Optimizer) ProcessAll(ctx context.Context) (map[string]*batch.BatchResult, error) {
	keys := o.processor.BatchKeys()

	var mu sync.Mutex
	byID := make(map[string]*batch.BatchResult)

	g, ctx := errgroup.WithContext(ctx)
	for _, key := range keys {
		key := key
		g.Go(func() error {
			results := o.ProcessKey(ctx, key)
			mu.Lock()
			for _, r := range results {
				byID[r.RequestID] = r
			}
			mu.Unlock()
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return byID, err
	}
	return byID, nil
}

// WaitAndProcess waits for the key's queue to reach targetSize (bounded by
// timeout or the configured default) and then drains whatever is queued.
func (o *Optimizer) WaitAndProcess(ctx context.Context, batchKey string, targetSize int) []*batch.BatchResult {
	o.processor.WaitForBatch(ctx, batchKey, targetSize, o.cfg.Batch.BatchTimeout)
	return o.ProcessKey(ctx, batchKey)
}

// Statistics merges the batching and error-reporting snapshots.
type Statistics struct {
	Batch  batch.Statistics        `json:"batch"`
	Errors errorhandler.Statistics `json:"errors"`
}

// Statistics returns the current merged snapshot.
func (o *Optimizer) Statistics(ctx context.Context) Statistics {
	return Statistics{
		Batch:  o.processor.Statistics(ctx),
		Errors: o.handler.ErrorStatistics(),
	}
}

// Processor exposes the underlying batch processor.
func (o *Optimizer) Processor() *batch.Processor { return o.processor }

// ErrorHandler exposes the underlying error handler.
func (o *Optimizer) ErrorHandler() *errorhandler.Handler { return o.handler }

// Close releases backend resources such as Redis connections.
func (o *Optimizer) Close() error {
	if closer, ok := o.store.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
