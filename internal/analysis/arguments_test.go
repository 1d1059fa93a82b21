package analysis

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/keyscout/pkg/models"
)

func TestDecodeArguments(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantErr  error
		anyErr   bool
		keywords []models.KeywordInput
		meta     models.AnalysisMeta
	}{
		{
			name:     "bare strings",
			input:    `{"keywords":["best camera tutorial","hidden gem cameras"]}`,
			keywords: []models.KeywordInput{{Keyword: "best camera tutorial"}, {Keyword: "hidden gem cameras"}},
		},
		{
			name:  "mixed strings and objects with metadata",
			input: `{"keywords":["a",{"keyword":"b","category":"long-tail","searchVolume":"high","competition":"low","relevance":0.9}],"concept":"c","targetAudience":"t","niche":"gaming"}`,
			keywords: []models.KeywordInput{
				{Keyword: "a"},
				{Keyword: "b", Category: "long-tail", SearchVolume: "high", Competition: "low", Relevance: ptr(0.9)},
			},
			meta: models.AnalysisMeta{Concept: "c", TargetAudience: "t", Niche: "gaming"},
		},
		{
			name:     "empty array is valid",
			input:    `{"keywords":[]}`,
			keywords: []models.KeywordInput{},
		},
		{name: "missing arguments", input: ``, wantErr: ErrKeywordsRequired},
		{name: "null arguments", input: `null`, wantErr: ErrKeywordsRequired},
		{name: "missing keywords", input: `{"concept":"x"}`, wantErr: ErrKeywordsRequired},
		{name: "null keywords", input: `{"keywords":null}`, wantErr: ErrKeywordsRequired},
		{name: "keywords not an array", input: `{"keywords":"best camera"}`, wantErr: ErrKeywordsRequired},
		{name: "keywords object", input: `{"keywords":{"keyword":"x"}}`, wantErr: ErrKeywordsRequired},
		{name: "arguments not an object", input: `[1,2]`, anyErr: true},
		{name: "numeric keyword entry", input: `{"keywords":[5]}`, anyErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := DecodeArguments(json.RawMessage(tt.input))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			if tt.anyErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.keywords, args.Keywords)
			assert.Equal(t, tt.meta, args.Meta)
		})
	}
}
