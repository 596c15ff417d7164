// Copyright 2026 BrowseToTest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

// Package batch combines compatible analysis requests into single provider
// calls. Requests group by batch key (analysis kind, target framework,
// target URL); each drained group is checked against the response cache,
// served with at most one combined call, and split back into per-request
// results by the "### Request: <id>" marker protocol.
package batch
