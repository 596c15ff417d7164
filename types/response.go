package types

// AIResponse is the outcome of one provider round trip: generated text plus
// usage metadata. Instances are immutable once returned.
type AIResponse struct {
	Content    string `json:"content"`
	Model      string `json:"model"`
	Provider   string `json:"provider"`
	TokensUsed int    `json:"tokens_used,omitempty"`
}

// WithContent returns a copy of the response carrying different text, used
// when a combined batch response is split into per-request sections.
func (r *AIResponse) WithContent(content string) *AIResponse {
	cp := *r
	cp.Content = content
	return &cp
}
