package types

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemContextFingerprint_Deterministic(t *testing.T) {
	sc := &SystemContext{
		Project:       ProjectInfo{Name: "shop", TestFrameworks: []string{"playwright", "cypress"}},
		ExistingTests: []string{"login_test.ts", "cart_test.ts"},
		UIComponents:  []string{"NavBar", "Cart"},
	}

	first := sc.Fingerprint()
	second := sc.Fingerprint()
	assert.Equal(t, first, second)
	assert.Len(t, first, 32)
}

func TestSystemContextFingerprint_OrderIndependent(t *testing.T) {
	a := &SystemContext{
		Project:       ProjectInfo{Name: "shop", TestFrameworks: []string{"playwright", "cypress"}},
		ExistingTests: []string{"b_test.ts", "a_test.ts"},
		UIComponents:  []string{"Cart", "NavBar"},
	}
	b := &SystemContext{
		Project:       ProjectInfo{Name: "shop", TestFrameworks: []string{"cypress", "playwright"}},
		ExistingTests: []string{"a_test.ts", "b_test.ts"},
		UIComponents:  []string{"NavBar", "Cart"},
	}

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

func TestSystemContextFingerprint_DistinguishesContent(t *testing.T) {
	a := &SystemContext{Project: ProjectInfo{Name: "shop"}}
	b := &SystemContext{Project: ProjectInfo{Name: "blog"}}

	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestSystemContextFingerprint_Nil(t *testing.T) {
	var sc *SystemContext
	assert.Equal(t, "", sc.Fingerprint())
}

func TestAnalysisRequestClone(t *testing.T) {
	req := &AnalysisRequest{
		AnalysisType:      AnalysisConversion,
		TargetFramework:   "playwright",
		AdditionalContext: map[string]any{"k": "v"},
	}

	cp := req.Clone()
	cp.AdditionalContext["k"] = "changed"
	cp.AdditionalContext["extra"] = true

	assert.Equal(t, "v", req.AdditionalContext["k"])
	assert.NotContains(t, req.AdditionalContext, "extra")
}

func TestAIResponseWithContent(t *testing.T) {
	resp := &AIResponse{Content: "full", Model: "gpt-4", Provider: "openai", TokensUsed: 42}

	section := resp.WithContent("section")
	assert.Equal(t, "section", section.Content)
	assert.Equal(t, "gpt-4", section.Model)
	assert.Equal(t, "openai", section.Provider)
	assert.Equal(t, 42, section.TokensUsed)
	assert.Equal(t, "full", resp.Content)
}

func TestNewErrorContext(t *testing.T) {
	before := time.Now()
	ec := NewErrorContext(ErrorRateLimit, "too many requests", "openai")

	require.NotNil(t, ec)
	assert.Equal(t, ErrorRateLimit, ec.Type)
	assert.Equal(t, "too many requests", ec.Message)
	assert.Equal(t, "openai", ec.Provider)
	assert.Equal(t, 1, ec.AttemptNumber)
	assert.NotNil(t, ec.Metadata)
	assert.False(t, ec.Timestamp.Before(before))
}

func TestErrorContextProviderKey(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		model    string
		want     string
	}{
		{"with model", "openai", "gpt-4", "openai:gpt-4"},
		{"empty model collapses to default", "anthropic", "", "anthropic:default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ec := &ErrorContext{Provider: tt.provider, Model: tt.model}
			assert.Equal(t, tt.want, ec.ProviderKey())
		})
	}
}

func TestErrorContextStatKey(t *testing.T) {
	ec := &ErrorContext{Provider: "openai", Type: ErrorRateLimit}
	assert.Equal(t, "openai:rate_limit", ec.StatKey())
}

func TestErrorTypes_Complete(t *testing.T) {
	kinds := ErrorTypes()
	assert.Len(t, kinds, 8)
	assert.Contains(t, kinds, ErrorUnknown)
	assert.Contains(t, kinds, ErrorInvalidRequest)
}

func TestErrorContextKeepsRawError(t *testing.T) {
	raw := errors.New("boom")
	ec := NewErrorContext(ErrorUnknown, raw.Error(), "openai")
	ec.Err = raw

	assert.Same(t, raw, ec.Err)
}
