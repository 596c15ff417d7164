package batch

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/debugg-ai/browse-to-test/internal/metrics"
	"github.com/debugg-ai/browse-to-test/llm"
	"github.com/debugg-ai/browse-to-test/llm/cache"
	"github.com/debugg-ai/browse-to-test/types"
)

// Config configures a Processor.
type Config struct {
	// MaxBatchSize caps how many pending entries one ProcessBatch call
	// drains.
	MaxBatchSize int `yaml:"max_batch_size" json:"max_batch_size"`
	// BatchTimeout is the default wait budget for WaitForBatch.
	BatchTimeout time.Duration `yaml:"batch_timeout" json:"batch_timeout"`
	// CacheTTL is the response-cache lifetime when the processor builds
	// its own in-memory store.
	CacheTTL time.Duration `yaml:"cache_ttl" json:"cache_ttl"`
}

// DefaultConfig returns the processor defaults.
func DefaultConfig() Config {
	return Config{
		MaxBatchSize: 10,
		BatchTimeout: 2 * time.Second,
		CacheTTL:     time.Hour,
	}
}

// Option customizes a Processor.
type Option func(*Processor)

// WithStore replaces the default in-memory response cache.
func WithStore(store cache.Store) Option {
	return func(p *Processor) { p.store = store }
}

// WithMetrics attaches a Prometheus collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(p *Processor) { p.metrics = c }
}

type waiter struct {
	target int
	ready  chan struct{}
}

// Processor owns the per-batch-key request queues and the time-boxed
// response cache, combines compatible requests into single provider calls,
// and demultiplexes combined responses back into per-request results.
type Processor struct {
	config  Config
	store   cache.Store
	metrics *metrics.Collector
	logger  *zap.Logger

	mu      sync.Mutex
	queues  map[string][]*BatchableRequest
	waiters map[string][]*waiter

	totalRequests   int64
	batchedRequests int64
	cacheHits       int64
	apiCallsSaved   int64
}

// NewProcessor creates a processor with an in-memory response cache unless
// WithStore overrides it.
func NewProcessor(config Config, logger *zap.Logger, opts ...Option) *Processor {
	if config.MaxBatchSize <= 0 {
		config.MaxBatchSize = 10
	}
	if config.BatchTimeout <= 0 {
		config.BatchTimeout = 2 * time.Second
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Processor{
		config:  config,
		logger:  logger.With(zap.String("component", "batch_processor")),
		queues:  make(map[string][]*BatchableRequest),
		waiters: make(map[string][]*waiter),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.store == nil {
		p.store = cache.NewMemoryStore(config.CacheTTL)
	}
	return p
}

// AddRequest wraps the request and enqueues it onto the queue for its
// batch key. Safe for concurrent use across any batch keys.
func (p *Processor) AddRequest(id string, req *types.AnalysisRequest, priority int) *BatchableRequest {
	wrapped := NewBatchableRequest(id, req, priority)
	key := wrapped.BatchKey()

	p.mu.Lock()
	p.queues[key] = append(p.queues[key], wrapped)
	p.totalRequests++
	size := len(p.queues[key])
	p.signalWaitersLocked(key, size)
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.RecordRequest(string(req.AnalysisType), req.TargetFramework)
	}
	p.logger.Debug("request enqueued",
		zap.String("request_id", id),
		zap.String("batch_key", key),
		zap.Int("priority", priority),
		zap.Int("queue_size", size),
	)
	return wrapped
}

// signalWaitersLocked wakes every waiter whose target size is now met.
func (p *Processor) signalWaitersLocked(key string, size int) {
	remaining := p.waiters[key][:0]
	for _, w := range p.waiters[key] {
		if size >= w.target {
			close(w.ready)
		} else {
			remaining = append(remaining, w)
		}
	}
	if len(remaining) == 0 {
		delete(p.waiters, key)
	} else {
		p.waiters[key] = remaining
	}
}

// WaitForBatch suspends until the queue for batchKey holds at least
// targetSize pending entries (true, returning promptly) or the timeout
// elapses (false). A non-positive timeout uses the configured default.
func (p *Processor) WaitForBatch(ctx context.Context, batchKey string, targetSize int, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = p.config.BatchTimeout
	}

	p.mu.Lock()
	if len(p.queues[batchKey]) >= targetSize {
		p.mu.Unlock()
		return true
	}
	w := &waiter{target: targetSize, ready: make(chan struct{})}
	p.waiters[batchKey] = append(p.waiters[batchKey], w)
	p.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-w.ready:
		return true
	case <-timer.C:
	case <-ctx.Done():
	}

	p.removeWaiter(batchKey, w)
	return false
}

func (p *Processor) removeWaiter(key string, target *waiter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ws := p.waiters[key]
	for i, w := range ws {
		if w == target {
			p.waiters[key] = append(ws[:i], ws[i+1:]...)
			break
		}
	}
	if len(p.waiters[key]) == 0 {
		delete(p.waiters, key)
	}
}

// ProcessBatch drains up to MaxBatchSize pending entries for batchKey
// (highest priority first, ties broken by earlier creation), resolves
// cache hits, and serves the remainder with exactly one provider call.
// Errors from that call are attributed to every remaining entry; the
// method itself never fails.
//
// The drain is claimed atomically, so concurrent invocations for the same
// key interleave without ever processing the same entry twice; a queue
// longer than MaxBatchSize needs multiple invocations to empty.
func (p *Processor) ProcessBatch(ctx context.Context, batchKey string, provider llm.Provider) []*BatchResult {
	tracer := otel.Tracer("browse-to-test/batch")
	ctx, span := tracer.Start(ctx, "batch.ProcessBatch")
	span.SetAttributes(attribute.String("batch.key", batchKey))
	defer span.End()

	drained := p.drain(batchKey)
	if len(drained) == 0 {
		return nil
	}

	results := make([]*BatchResult, 0, len(drained))
	remaining := make([]*BatchableRequest, 0, len(drained))

	for _, entry := range drained {
		key := cache.Key(entry.Request)
		cached, err := p.store.Get(ctx, key)
		if err == nil {
			p.mu.Lock()
			p.cacheHits++
			p.mu.Unlock()
			if p.metrics != nil {
				p.metrics.RecordCacheHit()
			}
			results = append(results, &BatchResult{
				RequestID:        entry.ID,
				Response:         cached.Response,
				ExtractedContent: cached.Response.Content,
			})
			continue
		}
		if p.metrics != nil {
			p.metrics.RecordCacheMiss()
		}
		remaining = append(remaining, entry)
	}

	if len(remaining) == 0 {
		return results
	}

	span.SetAttributes(attribute.Int("batch.size", len(remaining)))

	combined := p.buildCombinedRequest(remaining)
	resp, err := provider.AnalyzeWithContext(ctx, combined)
	if err != nil {
		p.logger.Warn("combined provider call failed",
			zap.String("batch_key", batchKey),
			zap.Int("batch_size", len(remaining)),
			zap.Error(err),
		)
		if p.metrics != nil {
			p.metrics.RecordBatch(provider.Name(), "error", len(remaining))
		}
		// One combined call means one indivisible failure: every
		// remaining entry carries the same error.
		for _, entry := range remaining {
			results = append(results, &BatchResult{RequestID: entry.ID, Err: err})
		}
		return results
	}

	sections := SplitResponseSections(resp.Content)

	for _, entry := range remaining {
		content, ok := sections[entry.ID]
		if !ok {
			content = sections[FallbackSectionKey]
			if content == "" && len(sections) > 0 {
				content = resp.Content
			}
		}

		entryResp := resp.WithContent(content)
		results = append(results, &BatchResult{
			RequestID:        entry.ID,
			Response:         entryResp,
			ExtractedContent: content,
		})

		if serr := p.store.Set(ctx, cache.Key(entry.Request), entryResp); serr != nil {
			p.logger.Warn("response cache write failed",
				zap.String("request_id", entry.ID),
				zap.Error(serr),
			)
		}
	}

	p.mu.Lock()
	p.batchedRequests += int64(len(remaining))
	p.apiCallsSaved += int64(len(remaining) - 1)
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.RecordBatch(provider.Name(), "success", len(remaining))
		p.metrics.RecordTokens(resp.Provider, resp.Model, resp.TokensUsed)
	}

	p.logger.Info("batch processed",
		zap.String("batch_key", batchKey),
		zap.Int("served", len(remaining)),
		zap.Int("cache_hits", len(results)-len(remaining)),
	)
	return results
}

// drain atomically claims up to MaxBatchSize entries for key, highest
// priority first, ties broken by earlier creation time.
func (p *Processor) drain(key string) []*BatchableRequest {
	p.mu.Lock()
	defer p.mu.Unlock()

	queue := p.queues[key]
	if len(queue) == 0 {
		return nil
	}

	sort.SliceStable(queue, func(i, j int) bool {
		if queue[i].Priority != queue[j].Priority {
			return queue[i].Priority > queue[j].Priority
		}
		return queue[i].CreatedAt.Before(queue[j].CreatedAt)
	})

	n := len(queue)
	if n > p.config.MaxBatchSize {
		n = p.config.MaxBatchSize
	}

	drained := queue[:n:n]
	rest := queue[n:]
	if len(rest) == 0 {
		delete(p.queues, key)
	} else {
		p.queues[key] = rest
	}
	return drained
}

// buildCombinedRequest derives the single outgoing request for a drained
// group, marking it as a batch per the combined-call protocol.
func (p *Processor) buildCombinedRequest(entries []*BatchableRequest) *types.AnalysisRequest {
	ids := make([]string, len(entries))
	payloads := make([]map[string]any, len(entries))
	for i, entry := range entries {
		ids[i] = entry.ID
		payloads[i] = map[string]any{
			"request_id":      entry.ID,
			"automation_data": entry.Request.AutomationData,
		}
	}

	combined := entries[0].Request.Clone()
	combined.AutomationData = payloads
	if combined.AdditionalContext == nil {
		combined.AdditionalContext = make(map[string]any, 3)
	}
	combined.AdditionalContext["batch_processing"] = true
	combined.AdditionalContext["batch_size"] = len(entries)
	combined.AdditionalContext["request_ids"] = ids
	return combined
}

// Statistics is a read-only snapshot of the processor's counters.
type Statistics struct {
	TotalRequests   int64 `json:"total_requests"`
	BatchedRequests int64 `json:"batched_requests"`
	CacheHits       int64 `json:"cache_hits"`
	APICallsSaved   int64 `json:"api_calls_saved"`
	CacheSize       int   `json:"cache_size"`
	ActiveBatches   int   `json:"active_batches"`
	PendingRequests int   `json:"pending_requests"`
}

// Statistics returns the current snapshot.
func (p *Processor) Statistics(ctx context.Context) Statistics {
	p.mu.Lock()
	stats := Statistics{
		TotalRequests:   p.totalRequests,
		BatchedRequests: p.batchedRequests,
		CacheHits:       p.cacheHits,
		APICallsSaved:   p.apiCallsSaved,
		ActiveBatches:   len(p.queues),
	}
	for _, q := range p.queues {
		stats.PendingRequests += len(q)
	}
	p.mu.Unlock()

	if size, err := p.store.Size(ctx); err == nil {
		stats.CacheSize = size
	}
	return stats
}

// PendingFor reports the queue depth for one batch key.
func (p *Processor) PendingFor(batchKey string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queues[batchKey])
}

// BatchKeys lists every batch key with pending work.
func (p *Processor) BatchKeys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]string, 0, len(p.queues))
	for k := range p.queues {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
