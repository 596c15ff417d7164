package testutil

import (
	"context"
	"sync"

	"github.com/debugg-ai/browse-to-test/types"
)

// MockProvider is a scripted Provider implementation. Each call pops the
// next queued outcome; once the script is exhausted the final outcome
// repeats. The zero value answers every call with an empty response.
type MockProvider struct {
	ProviderName string

	mu       sync.Mutex
	script   []mockOutcome
	calls    int
	requests []*types.AnalysisRequest
}

type mockOutcome struct {
	resp *types.AIResponse
	err  error
}

// NewMockProvider creates a mock named name.
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{ProviderName: name}
}

// Name implements llm.Provider.
func (m *MockProvider) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

// QueueResponse appends a successful outcome to the script.
func (m *MockProvider) QueueResponse(resp *types.AIResponse) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, mockOutcome{resp: resp})
	return m
}

// QueueContent appends a successful outcome with the given content.
func (m *MockProvider) QueueContent(content string) *MockProvider {
	return m.QueueResponse(&types.AIResponse{
		Content:  content,
		Model:    "mock-model",
		Provider: m.Name(),
	})
}

// QueueError appends a failed outcome to the script.
func (m *MockProvider) QueueError(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, mockOutcome{err: err})
	return m
}

// AnalyzeWithContext implements llm.Provider.
func (m *MockProvider) AnalyzeWithContext(ctx context.Context, req *types.AnalysisRequest) (*types.AIResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	idx := m.calls
	m.calls++

	if len(m.script) == 0 {
		return &types.AIResponse{Model: "mock-model", Provider: m.Name()}, nil
	}
	if idx >= len(m.script) {
		idx = len(m.script) - 1
	}
	out := m.script[idx]
	if out.err != nil {
		return nil, out.err
	}
	return out.resp, nil
}

// Calls reports how many times the provider was invoked.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Requests returns a copy of every request received, in order.
func (m *MockProvider) Requests() []*types.AnalysisRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*types.AnalysisRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// LastRequest returns the most recent request, or nil.
func (m *MockProvider) LastRequest() *types.AnalysisRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}
