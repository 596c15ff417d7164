// Copyright 2026 BrowseToTest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

// Package metrics records the optimization layer's Prometheus series. The
// package is internal; the facade and the llm subpackages share one
// Collector per pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector records the optimization layer's Prometheus metrics. It is
// constructed against an explicit Registerer so independent pipelines (and
// tests) can use private registries.
type Collector struct {
	requestsTotal   *prometheus.CounterVec
	batchesTotal    *prometheus.CounterVec
	batchSize       prometheus.Histogram
	callsSavedTotal prometheus.Counter
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	errorsTotal     *prometheus.CounterVec
	tokensUsedTotal *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector registers the layer's metrics with reg. A nil reg falls
// back to the default registerer.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.requestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of analysis requests submitted",
		},
		[]string{"analysis_type", "framework"},
	)

	c.batchesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Total number of combined provider calls",
		},
		[]string{"provider", "status"},
	)

	c.batchSize = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of requests served per combined call",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34},
		},
	)

	c.callsSavedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_calls_saved_total",
			Help:      "Cumulative provider calls avoided by batching",
		},
	)

	c.cacheHits = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of response cache hits",
		},
	)

	c.cacheMisses = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of response cache misses",
		},
	)

	c.errorsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total classified provider errors",
		},
		[]string{"provider", "error_type"},
	)

	c.tokensUsedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_used_total",
			Help:      "Total tokens reported by provider responses",
		},
		[]string{"provider", "model"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// RecordRequest counts one submitted analysis request.
func (c *Collector) RecordRequest(analysisType, framework string) {
	c.requestsTotal.WithLabelValues(analysisType, framework).Inc()
}

// RecordBatch counts one combined provider call and its size.
func (c *Collector) RecordBatch(provider, status string, size int) {
	c.batchesTotal.WithLabelValues(provider, status).Inc()
	c.batchSize.Observe(float64(size))
	if size > 1 && status == "success" {
		c.callsSavedTotal.Add(float64(size - 1))
	}
}

// RecordCacheHit counts one response cache hit.
func (c *Collector) RecordCacheHit() { c.cacheHits.Inc() }

// RecordCacheMiss counts one response cache miss.
func (c *Collector) RecordCacheMiss() { c.cacheMisses.Inc() }

// RecordError counts one classified provider error.
func (c *Collector) RecordError(provider, errorType string) {
	c.errorsTotal.WithLabelValues(provider, errorType).Inc()
}

// RecordTokens accumulates provider-reported token usage.
func (c *Collector) RecordTokens(provider, model string, tokens int) {
	if tokens > 0 {
		c.tokensUsedTotal.WithLabelValues(provider, model).Add(float64(tokens))
	}
}
