package errorhandler

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"time"

	"github.com/debugg-ai/browse-to-test/llm"
	"github.com/debugg-ai/browse-to-test/types"
)

// classifyRule maps message substrings to an error kind. Rules are applied
// in order; the first match wins. Classification is deliberately
// message-based (the raw error is an opaque value from the provider
// client) and best-effort: extend the table here, never the retry logic.
type classifyRule struct {
	kind     types.ErrorType
	patterns []string
}

var classifyRules = []classifyRule{
	{types.ErrorRateLimit, []string{"rate limit", "rate_limit", "too many requests", "429"}},
	{types.ErrorTimeout, []string{"timeout", "timed out", "deadline exceeded"}},
	{types.ErrorAuthentication, []string{"unauthorized", "invalid api key", "api key", "authentication", "401", "403"}},
	{types.ErrorInvalidRequest, []string{"bad request", "invalid request", "invalid parameter", "malformed", "400"}},
	{types.ErrorNetwork, []string{"connection", "network", "dns", "no such host", "broken pipe", "connection refused"}},
	{types.ErrorServiceUnavailable, []string{"service unavailable", "unavailable", "503", "overloaded"}},
	{types.ErrorAPIError, []string{"internal server error", "server error", "500", "api error"}},
}

// ClassifyError turns an arbitrary provider failure into a typed
// ErrorContext. A *llm.ProviderError contributes its Retry-After header
// verbatim under the retry_after metadata key; timeout-typed error values
// are recognized ahead of message matching.
func ClassifyError(err error, provider string) *types.ErrorContext {
	ec := types.NewErrorContext(types.ErrorUnknown, err.Error(), provider)
	ec.Err = err

	var perr *llm.ProviderError
	if errors.As(err, &perr) {
		if retryAfter, ok := perr.Header("Retry-After"); ok {
			ec.Metadata[types.MetaRetryAfter] = retryAfter
		}
	}

	ec.Type = classifyKind(err)
	return ec
}

func classifyKind(err error) types.ErrorType {
	// Timeout-specific error values outrank message matching, except when
	// the text clearly names a rate limit.
	msg := strings.ToLower(err.Error())
	if matchesAny(msg, classifyRules[0].patterns) {
		return types.ErrorRateLimit
	}

	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return types.ErrorTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return types.ErrorTimeout
	}

	for _, rule := range classifyRules[1:] {
		if matchesAny(msg, rule.patterns) {
			return rule.kind
		}
	}
	return types.ErrorUnknown
}

func matchesAny(msg string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// classifyAt stamps an existing classification with a new attempt number,
// preserving message, metadata, and the original error.
func classifyAt(err error, provider, model string, attempt int) *types.ErrorContext {
	ec := ClassifyError(err, provider)
	ec.Model = model
	ec.AttemptNumber = attempt
	ec.Timestamp = time.Now()
	return ec
}
