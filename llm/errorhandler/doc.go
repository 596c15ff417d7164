// Copyright 2026 BrowseToTest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

// Package errorhandler wraps provider calls with error classification,
// retry, circuit breaking, and outcome recording. The classifier is
// isolated in classify.go so its heuristic rules can be extended without
// touching the retry loop or breaker logic.
package errorhandler
