// Copyright 2026 BrowseToTest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

// Package types defines the value types shared across the optimization
// layer: analysis requests, provider responses, and the error taxonomy.
// The package is a leaf and must stay free of project dependencies.
package types
