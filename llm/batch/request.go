package batch

import (
	"fmt"
	"time"

	"github.com/debugg-ai/browse-to-test/types"
)

// noURLPlaceholder stands in for an absent target URL inside batch keys.
const noURLPlaceholder = "no_url"

// BatchableRequest wraps one AnalysisRequest with the identity, priority,
// and timing metadata the processor needs. Instances are immutable once
// enqueued.
type BatchableRequest struct {
	ID        string                 `json:"id"`
	Request   *types.AnalysisRequest `json:"request"`
	Priority  int                    `json:"priority"`
	CreatedAt time.Time              `json:"created_at"`
	Metadata  map[string]any         `json:"metadata,omitempty"`
}

// NewBatchableRequest wraps a request at the current time.
func NewBatchableRequest(id string, req *types.AnalysisRequest, priority int) *BatchableRequest {
	return &BatchableRequest{
		ID:        id,
		Request:   req,
		Priority:  priority,
		CreatedAt: time.Now(),
		Metadata:  map[string]any{},
	}
}

// BatchKey groups requests eligible to share one provider call. It is a
// pure function of analysis kind, target framework, and target URL;
// payload content does not participate.
func (r *BatchableRequest) BatchKey() string {
	url := r.Request.TargetURL
	if url == "" {
		url = noURLPlaceholder
	}
	return fmt.Sprintf("%s|%s|%s", r.Request.AnalysisType, r.Request.TargetFramework, url)
}

// CompatibleWith reports whether two requests may be combined: same batch
// key, and either both lack a system context or both contexts fingerprint
// identically.
func (r *BatchableRequest) CompatibleWith(other *BatchableRequest) bool {
	if r.BatchKey() != other.BatchKey() {
		return false
	}
	return r.Request.SystemContext.Fingerprint() == other.Request.SystemContext.Fingerprint()
}

// BatchResult is the terminal outcome for one batched request: exactly one
// of Response or Err, plus optionally the pre-extracted content section.
type BatchResult struct {
	RequestID        string            `json:"request_id"`
	Response         *types.AIResponse `json:"response,omitempty"`
	Err              error             `json:"-"`
	ExtractedContent string            `json:"extracted_content,omitempty"`
}
