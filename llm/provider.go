package llm

import (
	"context"

	"github.com/debugg-ai/browse-to-test/types"
)

// Provider executes a single request/response round trip against a remote
// model service. Implementations live outside this module; the optimization
// layer only consumes this interface.
type Provider interface {
	// Name reports the provider identity used for circuit breaking and
	// statistics ("openai", "anthropic", ...).
	Name() string

	// AnalyzeWithContext performs one network call and returns generated
	// text plus token-usage metadata, or an error inspectable as free text.
	AnalyzeWithContext(ctx context.Context, req *types.AnalysisRequest) (*types.AIResponse, error)
}

// ProviderFunc adapts a function to the Provider interface, mainly for
// tests and small wrappers.
type ProviderFunc struct {
	ProviderName string
	Fn           func(ctx context.Context, req *types.AnalysisRequest) (*types.AIResponse, error)
}

func (p ProviderFunc) Name() string { return p.ProviderName }

func (p ProviderFunc) AnalyzeWithContext(ctx context.Context, req *types.AnalysisRequest) (*types.AIResponse, error) {
	return p.Fn(ctx, req)
}
