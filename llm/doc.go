// Copyright 2026 BrowseToTest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package llm defines the boundary between the optimization layer and the
external model provider client.

The layer never constructs prompts and never interprets generated text; it
only needs a provider that can execute one request/response round trip:

	resp, err := provider.AnalyzeWithContext(ctx, req)

Failures cross the boundary as ordinary error values. Providers that can
surface HTTP details should return a *ProviderError so the classifier can
honor status codes and Retry-After headers; anything else is classified
from its message text.

Subpackages implement the layer itself:

  - llm/batch: request grouping, the response cache, and combined calls
  - llm/cache: cache stores (in-memory TTL, Redis)
  - llm/retry: retry strategies (exponential backoff, adaptive)
  - llm/circuitbreaker: per-provider cooldown tracking
  - llm/errorhandler: classification, retry loop, breaker composition
*/
package llm
