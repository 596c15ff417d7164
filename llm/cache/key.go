package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/debugg-ai/browse-to-test/types"
)

// canonicalRequest fixes the field order of the normalized request so the
// digest is stable across submissions. encoding/json sorts map keys, which
// keeps free-form payloads deterministic too.
type canonicalRequest struct {
	AnalysisType    types.AnalysisType `json:"analysis_type"`
	AutomationData  any                `json:"automation_data"`
	TargetFramework string             `json:"target_framework"`
	TargetURL       string             `json:"target_url"`
	ContextDigest   string             `json:"context_digest,omitempty"`
}

// Key derives the cache key for a request: a SHA-256 digest, rendered as 64
// hex characters, over the canonical serialization of kind, payload,
// framework, URL, and the context fingerprint when present.
func Key(req *types.AnalysisRequest) string {
	canonical := canonicalRequest{
		AnalysisType:    req.AnalysisType,
		AutomationData:  req.AutomationData,
		TargetFramework: req.TargetFramework,
		TargetURL:       req.TargetURL,
		ContextDigest:   req.SystemContext.Fingerprint(),
	}

	data, err := json.Marshal(canonical)
	if err != nil {
		// Unmarshalable payloads still need a deterministic key.
		data = []byte(fmt.Sprintf("%v", canonical))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
