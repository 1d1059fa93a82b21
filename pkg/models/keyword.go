// Package models contains domain models for keyscout.
package models

import (
	"bytes"
	"time"

	json "github.com/goccy/go-json"
)

// Level is a coarse low/medium/high bucket for a 0-100 score.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// TrendDirection is the estimated popularity trajectory of a keyword.
type TrendDirection string

const (
	TrendRising    TrendDirection = "rising"
	TrendStable    TrendDirection = "stable"
	TrendDeclining TrendDirection = "declining"
)

// Difficulty is how hard a keyword is expected to rank for.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// OpportunityRating buckets the opportunity score.
type OpportunityRating string

const (
	RatingExcellent OpportunityRating = "excellent"
	RatingGood      OpportunityRating = "good"
	RatingLow       OpportunityRating = "low"
)

// Well-known categories.
const (
	CategoryGeneral  = "general"
	CategoryPrimary  = "primary"
	CategoryLongTail = "long-tail"
)

// KeywordInput is one candidate keyword submitted for analysis.
// It decodes from either a bare JSON string or an object.
type KeywordInput struct {
	Keyword      string   `json:"keyword"`
	Category     string   `json:"category,omitempty"`
	SearchVolume string   `json:"searchVolume,omitempty"`
	Competition  string   `json:"competition,omitempty"` // accepted, not used for scoring
	Relevance    *float64 `json:"relevance,omitempty"`
}

// UnmarshalJSON accepts "keyword" as shorthand for {"keyword":"keyword"}.
func (k *KeywordInput) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*k = KeywordInput{Keyword: s}
		return nil
	}

	type plain KeywordInput
	var p plain
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return err
	}
	*k = KeywordInput(p)
	return nil
}

// KeywordAnalysis holds the per-keyword signals.
type KeywordAnalysis struct {
	CompetitionScore int            `json:"competitionScore"`
	CompetitionLevel Level          `json:"competitionLevel"`
	VolumeScore      int            `json:"volumeScore"`
	VolumeLevel      Level          `json:"volumeLevel"`
	TrendDirection   TrendDirection `json:"trendDirection"`
	Difficulty       Difficulty     `json:"difficulty"`
}

// AnalyzedKeyword is a scored keyword. It is not modified after scoring.
type AnalyzedKeyword struct {
	Keyword           string            `json:"keyword"`
	Category          string            `json:"category"`
	Analysis          KeywordAnalysis   `json:"analysis"`
	Relevance         float64           `json:"relevance"`
	OpportunityScore  int               `json:"opportunityScore"`
	OpportunityRating OpportunityRating `json:"opportunityRating"`
	Recommendation    string            `json:"recommendation"`
}

// AnalysisMeta is the optional descriptive metadata sent with a batch.
type AnalysisMeta struct {
	Concept        string `json:"concept,omitempty"`
	TargetAudience string `json:"targetAudience,omitempty"`
	Niche          string `json:"niche,omitempty"`
}

// InsightType identifies which rule produced an insight.
type InsightType string

const (
	InsightGap         InsightType = "gap"
	InsightOpportunity InsightType = "opportunity"
	InsightQuickWin    InsightType = "quick-win"
	InsightNiche       InsightType = "niche"
)

// Insight is a qualitative observation about an analyzed batch.
type Insight struct {
	Type     InsightType `json:"type"`
	Title    string      `json:"title"`
	Message  string      `json:"message"`
	Keywords []string    `json:"keywords,omitempty"`
}

// Summary holds tier counts and the mean opportunity score.
type Summary struct {
	TopKeywords             int `json:"topKeywords"`
	GoodKeywords            int `json:"goodKeywords"`
	LowPriorityKeywords     int `json:"lowPriorityKeywords"`
	AverageOpportunityScore int `json:"averageOpportunityScore"`
}

// Recommended holds the keyword sets suggested for each placement.
type Recommended struct {
	Primary   []AnalyzedKeyword `json:"primary"`
	Secondary []AnalyzedKeyword `json:"secondary"`
	LongTail  []AnalyzedKeyword `json:"longTail"`
}

// AnalysisReport is the full result of analyzing one batch.
type AnalysisReport struct {
	ReportID       string            `json:"reportId"`
	Concept        string            `json:"concept"`
	TargetAudience string            `json:"targetAudience"`
	Niche          string            `json:"niche"`
	Timestamp      time.Time         `json:"timestamp"`
	TotalAnalyzed  int               `json:"totalAnalyzed"`
	Summary        Summary           `json:"summary"`
	Recommended    Recommended       `json:"recommended"`
	AllKeywords    []AnalyzedKeyword `json:"allKeywords"`
	Insights       []Insight         `json:"insights"`
	NextSteps      []string          `json:"nextSteps"`
}
