package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// AnalysisType tags what kind of analysis a request asks the model for.
type AnalysisType string

const (
	AnalysisConversion   AnalysisType = "conversion"
	AnalysisOptimization AnalysisType = "optimization"
	AnalysisValidation   AnalysisType = "validation"
	AnalysisContext      AnalysisType = "context"
)

// ProjectInfo is the coarse identity of the project a request belongs to.
type ProjectInfo struct {
	Name           string   `json:"name"`
	TestFrameworks []string `json:"test_frameworks,omitempty"`
}

// SystemContext carries the caller's project knowledge that accompanies a
// request. The optimization layer never interprets it; it only fingerprints
// it for cache and compatibility equality.
type SystemContext struct {
	Project       ProjectInfo `json:"project"`
	ExistingTests []string    `json:"existing_tests,omitempty"`
	UIComponents  []string    `json:"ui_components,omitempty"`
}

// Fingerprint returns a stable, order-independent digest of the context's
// coarse shape. It is used only for equality decisions and can never
// reproduce the context.
func (sc *SystemContext) Fingerprint() string {
	if sc == nil {
		return ""
	}

	frameworks := append([]string(nil), sc.Project.TestFrameworks...)
	sort.Strings(frameworks)
	tests := append([]string(nil), sc.ExistingTests...)
	sort.Strings(tests)
	components := append([]string(nil), sc.UIComponents...)
	sort.Strings(components)

	var b strings.Builder
	fmt.Fprintf(&b, "project=%s;", sc.Project.Name)
	fmt.Fprintf(&b, "frameworks=%s;", strings.Join(frameworks, ","))
	fmt.Fprintf(&b, "tests=%d:%s;", len(tests), strings.Join(tests, ","))
	fmt.Fprintf(&b, "components=%d:%s", len(components), strings.Join(components, ","))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:16])
}

// AnalysisRequest is one unit of work for the model provider. It is opaque
// to the optimization layer except for the grouping fields (AnalysisType,
// TargetFramework, TargetURL) and the system context. Immutable once
// submitted.
type AnalysisRequest struct {
	AnalysisType      AnalysisType   `json:"analysis_type"`
	AutomationData    any            `json:"automation_data"`
	TargetFramework   string         `json:"target_framework"`
	TargetURL         string         `json:"target_url,omitempty"`
	SystemContext     *SystemContext `json:"system_context,omitempty"`
	AdditionalContext map[string]any `json:"additional_context,omitempty"`
}

// Clone returns a shallow copy with its own AdditionalContext map, so a
// combined batch request can be derived without mutating the original.
func (r *AnalysisRequest) Clone() *AnalysisRequest {
	cp := *r
	if r.AdditionalContext != nil {
		cp.AdditionalContext = make(map[string]any, len(r.AdditionalContext))
		for k, v := range r.AdditionalContext {
			cp.AdditionalContext[k] = v
		}
	}
	return &cp
}
