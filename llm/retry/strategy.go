// Copyright 2026 BrowseToTest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

// Package retry defines the retry policy abstraction for failed provider
// calls and its two implementations: a stateless exponential backoff and a
// stateful adaptive policy that learns per-provider success rates.
package retry

import (
	"time"

	"github.com/debugg-ai/browse-to-test/types"
)

// Strategy decides whether a classified failure is worth another attempt
// and how long to wait first. Implementations are selected at construction
// time; callers never branch on the concrete type.
type Strategy interface {
	// ShouldRetry reports whether the attempt described by ctx should be
	// repeated.
	ShouldRetry(ctx *types.ErrorContext) bool

	// Delay computes how long to suspend before the next attempt.
	Delay(ctx *types.ErrorContext) time.Duration
}

// OutcomeRecorder is implemented by strategies that learn from call
// outcomes. The error handler feeds it after every terminal attempt.
type OutcomeRecorder interface {
	RecordOutcome(ctx *types.ErrorContext, success bool)
}

// transientKinds are the error kinds the default policy treats as worth
// retrying; everything else is permanent.
var transientKinds = map[types.ErrorType]bool{
	types.ErrorRateLimit:          true,
	types.ErrorTimeout:            true,
	types.ErrorNetwork:            true,
	types.ErrorServiceUnavailable: true,
}
