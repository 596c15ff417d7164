package types

import (
	"fmt"
	"time"
)

// ErrorType classifies a provider failure for retry and reporting purposes.
type ErrorType string

const (
	ErrorRateLimit          ErrorType = "rate_limit"
	ErrorTimeout            ErrorType = "timeout"
	ErrorAPIError           ErrorType = "api_error"
	ErrorNetwork            ErrorType = "network_error"
	ErrorInvalidRequest     ErrorType = "invalid_request"
	ErrorAuthentication     ErrorType = "authentication"
	ErrorServiceUnavailable ErrorType = "service_unavailable"
	ErrorUnknown            ErrorType = "unknown"
)

// ErrorTypes lists every error kind in the taxonomy.
func ErrorTypes() []ErrorType {
	return []ErrorType{
		ErrorRateLimit,
		ErrorTimeout,
		ErrorAPIError,
		ErrorNetwork,
		ErrorInvalidRequest,
		ErrorAuthentication,
		ErrorServiceUnavailable,
		ErrorUnknown,
	}
}

// MetaRetryAfter is the ErrorContext metadata key carrying a
// provider-supplied "retry after N seconds" hint, copied verbatim from the
// response headers.
const MetaRetryAfter = "retry_after"

// ErrorContext is a classified provider failure. It is the unit the retry
// strategies and the error handler reason about; the raw error stays
// attached for final propagation only.
type ErrorContext struct {
	Type          ErrorType         `json:"error_type"`
	Message       string            `json:"error_message"`
	Provider      string            `json:"provider"`
	Model         string            `json:"model,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
	AttemptNumber int               `json:"attempt_number"`
	Err           error             `json:"-"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// NewErrorContext builds a context for the first attempt at the current time.
func NewErrorContext(kind ErrorType, message, provider string) *ErrorContext {
	return &ErrorContext{
		Type:          kind,
		Message:       message,
		Provider:      provider,
		Timestamp:     time.Now(),
		AttemptNumber: 1,
		Metadata:      map[string]string{},
	}
}

// ProviderKey identifies the provider/model pair for success-rate tracking.
// An empty model collapses to "default" so keys stay readable.
func (c *ErrorContext) ProviderKey() string {
	model := c.Model
	if model == "" {
		model = "default"
	}
	return c.Provider + ":" + model
}

// StatKey is the provider:error_kind key used by the statistics surface.
func (c *ErrorContext) StatKey() string {
	return fmt.Sprintf("%s:%s", c.Provider, c.Type)
}
