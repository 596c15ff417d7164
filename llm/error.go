package llm

import (
	"fmt"
	"strings"
)

// ProviderError is the explicit result type for provider failures that
// carry transport details. Provider clients are encouraged to return it so
// the classifier can use the status code and Retry-After header instead of
// guessing from message text alone.
type ProviderError struct {
	Provider   string
	Message    string
	StatusCode int
	Headers    map[string]string
	Cause      error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Provider, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error { return e.Cause }

// Header looks up a response header case-insensitively on the common
// capitalizations ("Retry-After", "retry-after").
func (e *ProviderError) Header(name string) (string, bool) {
	if e.Headers == nil {
		return "", false
	}
	if v, ok := e.Headers[name]; ok {
		return v, true
	}
	for k, v := range e.Headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}
