package analysis

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/thebtf/keyscout/pkg/models"
)

// Arguments are the decoded arguments of the analyzeKeywords tool.
type Arguments struct {
	Keywords []models.KeywordInput
	Meta     models.AnalysisMeta
}

// DecodeArguments decodes raw tool arguments. A missing, null, or non-array
// keywords field yields ErrKeywordsRequired. An empty array is valid.
func DecodeArguments(raw json.RawMessage) (*Arguments, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, ErrKeywordsRequired
	}

	var wire struct {
		Keywords       json.RawMessage `json:"keywords"`
		Concept        string          `json:"concept"`
		TargetAudience string          `json:"targetAudience"`
		Niche          string          `json:"niche"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	kwRaw := bytes.TrimSpace(wire.Keywords)
	if len(kwRaw) == 0 || kwRaw[0] != '[' {
		return nil, ErrKeywordsRequired
	}

	keywords := []models.KeywordInput{}
	if err := json.Unmarshal(kwRaw, &keywords); err != nil {
		return nil, fmt.Errorf("invalid keywords: %w", err)
	}
	if keywords == nil {
		keywords = []models.KeywordInput{}
	}

	return &Arguments{
		Keywords: keywords,
		Meta: models.AnalysisMeta{
			Concept:        wire.Concept,
			TargetAudience: wire.TargetAudience,
			Niche:          wire.Niche,
		},
	}, nil
}
