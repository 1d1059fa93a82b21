// Package analysis ranks scored keywords and assembles keyword research reports.
package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/thebtf/keyscout/internal/scoring"
	"github.com/thebtf/keyscout/pkg/models"
)

// Tier boundaries on the opportunity score.
const (
	TopTierMin  = 70
	GoodTierMin = 50
)

// Recommendation slice sizes.
const (
	MaxPrimary   = 3
	MaxSecondary = 5
	MaxLongTail  = 10
)

// Metadata defaults used when the caller leaves a field empty.
const (
	DefaultConcept        = "Not specified"
	DefaultTargetAudience = "general"
	DefaultNiche          = "general"
)

var (
	// ErrKeywordsRequired is returned when no keyword list was supplied.
	// The message is part of the wire contract.
	ErrKeywordsRequired = errors.New("Keywords array is required") //nolint:staticcheck // caller-facing text

	// ErrMissingKeyword is returned when a keyword entry has no keyword text.
	ErrMissingKeyword = errors.New("keyword entry is missing the keyword field")
)

// Analyzer scores a batch of keywords and builds the ranked report.
type Analyzer struct {
	scorer *scoring.Scorer
	now    func() time.Time
	newID  func() string
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithClock sets the clock used for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		if now != nil {
			a.now = now
		}
	}
}

// WithIDGenerator sets the report ID generator.
func WithIDGenerator(newID func() string) Option {
	return func(a *Analyzer) {
		if newID != nil {
			a.newID = newID
		}
	}
}

// NewAnalyzer creates an analyzer. A nil scorer uses the default scorer.
func NewAnalyzer(scorer *scoring.Scorer, opts ...Option) *Analyzer {
	if scorer == nil {
		scorer = scoring.NewScorer(nil, nil)
	}
	a := &Analyzer{
		scorer: scorer,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Tiers partitions a sorted batch by opportunity score.
type Tiers struct {
	Top  []models.AnalyzedKeyword
	Good []models.AnalyzedKeyword
	Low  []models.AnalyzedKeyword
}

// Analyze scores every input, ranks the batch, and assembles the report.
// A nil inputs slice yields ErrKeywordsRequired; an empty one yields an empty report.
func (a *Analyzer) Analyze(inputs []models.KeywordInput, meta models.AnalysisMeta) (*models.AnalysisReport, error) {
	if inputs == nil {
		return nil, ErrKeywordsRequired
	}
	for i, in := range inputs {
		if in.Keyword == "" {
			return nil, fmt.Errorf("keywords[%d]: %w", i, ErrMissingKeyword)
		}
	}

	analyzed := make([]models.AnalyzedKeyword, 0, len(inputs))
	for _, in := range inputs {
		analyzed = append(analyzed, a.scorer.Score(in))
	}
	SortByOpportunity(analyzed)

	tiers := Partition(analyzed)
	recommended := models.Recommended{
		Primary:   head(tiers.Top, MaxPrimary),
		Secondary: head(tiers.Good, MaxSecondary),
		LongTail:  head(filterCategory(analyzed, models.CategoryLongTail), MaxLongTail),
	}

	report := &models.AnalysisReport{
		ReportID:       a.newID(),
		Concept:        orDefault(meta.Concept, DefaultConcept),
		TargetAudience: orDefault(meta.TargetAudience, DefaultTargetAudience),
		Niche:          orDefault(meta.Niche, DefaultNiche),
		Timestamp:      a.now().UTC(),
		TotalAnalyzed:  len(analyzed),
		Summary: models.Summary{
			TopKeywords:             len(tiers.Top),
			GoodKeywords:            len(tiers.Good),
			LowPriorityKeywords:     len(tiers.Low),
			AverageOpportunityScore: AverageOpportunity(analyzed),
		},
		Recommended: recommended,
		AllKeywords: analyzed,
		Insights:    GenerateInsights(analyzed, meta),
	}
	report.NextSteps = NextSteps(report)

	return report, nil
}

// SortByOpportunity sorts descending by opportunity score. Equal scores keep input order.
func SortByOpportunity(keywords []models.AnalyzedKeyword) {
	sort.SliceStable(keywords, func(i, j int) bool {
		return keywords[i].OpportunityScore > keywords[j].OpportunityScore
	})
}

// Partition splits an already sorted batch into top (>=70), good ([50,70)) and low (<50) tiers.
func Partition(sorted []models.AnalyzedKeyword) Tiers {
	t := Tiers{
		Top:  []models.AnalyzedKeyword{},
		Good: []models.AnalyzedKeyword{},
		Low:  []models.AnalyzedKeyword{},
	}
	for _, kw := range sorted {
		switch {
		case kw.OpportunityScore >= TopTierMin:
			t.Top = append(t.Top, kw)
		case kw.OpportunityScore >= GoodTierMin:
			t.Good = append(t.Good, kw)
		default:
			t.Low = append(t.Low, kw)
		}
	}
	return t
}

// AverageOpportunity returns the rounded mean opportunity score, or 0 for an empty batch.
func AverageOpportunity(keywords []models.AnalyzedKeyword) int {
	if len(keywords) == 0 {
		return 0
	}
	total := 0
	for _, kw := range keywords {
		total += kw.OpportunityScore
	}
	return int(math.Floor(float64(total)/float64(len(keywords)) + 0.5))
}

func filterCategory(keywords []models.AnalyzedKeyword, category string) []models.AnalyzedKeyword {
	out := []models.AnalyzedKeyword{}
	for _, kw := range keywords {
		if kw.Category == category {
			out = append(out, kw)
		}
	}
	return out
}

// head returns a copy of at most n leading elements.
func head(keywords []models.AnalyzedKeyword, n int) []models.AnalyzedKeyword {
	n = min(n, len(keywords))
	out := make([]models.AnalyzedKeyword, n)
	copy(out, keywords[:n])
	return out
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
