// Copyright 2026 BrowseToTest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

// Package circuitbreaker tracks consecutive provider failures and blocks
// calls to a provider for a cooldown period once a threshold is reached.
// Expiry is checked lazily on access; there is no background timer.
package circuitbreaker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrCircuitOpen is returned while a provider's breaker is open. It is
// distinct from provider-originated errors so callers can apply their own
// backoff policy to it.
var ErrCircuitOpen = errors.New("circuit breaker open")

// Config configures the registry.
type Config struct {
	// Threshold is the consecutive-failure count that opens a breaker.
	Threshold int `yaml:"threshold" json:"threshold"`
	// Cooldown is how long an opened breaker rejects calls.
	Cooldown time.Duration `yaml:"cooldown" json:"cooldown"`
}

// DefaultConfig returns the defaults used when none are supplied.
func DefaultConfig() Config {
	return Config{
		Threshold: 5,
		Cooldown:  60 * time.Second,
	}
}

type state struct {
	failures  int
	openUntil time.Time
}

// Registry holds one breaker per provider name. All state is owned by the
// instance; independent registries never interfere.
type Registry struct {
	config Config
	logger *zap.Logger

	mu       sync.Mutex
	breakers map[string]*state

	// now is swappable for cooldown tests.
	now func() time.Time
}

// NewRegistry validates the config and creates an empty registry.
func NewRegistry(config Config, logger *zap.Logger) *Registry {
	if config.Threshold <= 0 {
		config.Threshold = 5
	}
	if config.Cooldown <= 0 {
		config.Cooldown = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		config:   config,
		logger:   logger,
		breakers: make(map[string]*state),
		now:      time.Now,
	}
}

// Allow reports whether a call for provider may proceed. While the current
// time is before the breaker's open-until timestamp it returns
// ErrCircuitOpen; once the cooldown has passed the breaker closes and the
// failure count resets to zero.
func (r *Registry) Allow(provider string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.breakers[provider]
	if !ok || st.openUntil.IsZero() {
		return nil
	}

	if r.now().Before(st.openUntil) {
		return fmt.Errorf("%w for provider %s until %s",
			ErrCircuitOpen, provider, st.openUntil.Format(time.RFC3339))
	}

	// Cooldown elapsed: close and reset.
	st.openUntil = time.Time{}
	st.failures = 0
	r.logger.Info("circuit breaker closed after cooldown",
		zap.String("provider", provider),
	)
	return nil
}

// RecordFailure increments the provider's failure count and opens the
// breaker when the threshold is reached.
func (r *Registry) RecordFailure(provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.breakers[provider]
	if !ok {
		st = &state{}
		r.breakers[provider] = st
	}

	st.failures++
	if st.failures >= r.config.Threshold {
		wasOpen := !st.openUntil.IsZero()
		st.openUntil = r.now().Add(r.config.Cooldown)
		if !wasOpen {
			r.logger.Warn("circuit breaker opened",
				zap.String("provider", provider),
				zap.Int("failures", st.failures),
				zap.Time("open_until", st.openUntil),
			)
		}
	}
}

// RecordSuccess resets the provider's failure count and closes its breaker.
func (r *Registry) RecordSuccess(provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.breakers[provider]
	if !ok {
		return
	}
	if !st.openUntil.IsZero() {
		r.logger.Info("circuit breaker closed after success",
			zap.String("provider", provider),
		)
	}
	st.failures = 0
	st.openUntil = time.Time{}
}

// Failures reports the current consecutive-failure count for provider.
func (r *Registry) Failures(provider string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.breakers[provider]; ok {
		return st.failures
	}
	return 0
}

// IsOpen reports whether the provider's breaker currently rejects calls.
func (r *Registry) IsOpen(provider string) bool {
	return r.Allow(provider) != nil
}
