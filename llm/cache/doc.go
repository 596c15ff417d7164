// Copyright 2026 BrowseToTest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

// Package cache provides the time-boxed response cache used by the batch
// processor, with an in-memory store for single-process pipelines and a
// Redis-backed store for shared deployments. Cache keys are SHA-256
// digests over the canonical serialization of a request.
package cache
