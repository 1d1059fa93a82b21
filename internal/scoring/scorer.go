package scoring

import (
	"math"
	"regexp"
	"strings"

	"github.com/thebtf/keyscout/pkg/models"
)

// Competition score parameters.
const (
	BaseCompetition      = 50
	HighCompetitionBoost = 15
	MediumCompetitionAdj = 5
	LowCompetitionRelief = -20
	LongTailRelief       = -15
	LongTailMinTokens    = 4
	MinCompetition       = 10
	MaxCompetition       = 95
)

// Volume score parameters.
const (
	BaseVolume    = 50
	HighVolume    = 85
	MediumVolume  = 60
	LowVolume     = 35
	TrendingBoost = 15
	MaxVolume     = 100
)

// DefaultRelevance is used when an input carries no relevance.
const DefaultRelevance = 0.5

// Recommendation texts, selected by opportunity score.
const (
	RecommendPrimaryExcellent = "Excellent primary keyword - use it in titles, thumbnails, and opening lines"
	RecommendExcellent        = "High-value keyword - feature it prominently in titles and descriptions"
	RecommendGood             = "Solid secondary keyword - include it in descriptions and tags"
	RecommendLow              = "Low priority - use sparingly as a supporting tag"
)

// Trend draw thresholds: r > 0.7 is rising, r > 0.3 is stable, otherwise declining.
const (
	risingThreshold = 0.7
	stableThreshold = 0.3
)

var (
	yearPattern = regexp.MustCompile(`202[4-9]`)
	stableTerms = []string{"classic", "traditional"}
)

// Scorer computes heuristic competition, volume, and opportunity signals for keywords.
// A Scorer is immutable after construction and safe for concurrent use as long
// as its RandomSource is.
type Scorer struct {
	patterns Patterns
	random   RandomSource
}

// NewScorer creates a scorer. A nil patterns uses DefaultPatterns and a nil
// random uses DefaultSource.
func NewScorer(patterns *Patterns, random RandomSource) *Scorer {
	p := DefaultPatterns()
	if patterns != nil {
		p = patterns.clone()
	}
	if random == nil {
		random = DefaultSource()
	}
	return &Scorer{patterns: p, random: random}
}

// Patterns returns a copy of the scorer's pattern tables.
func (s *Scorer) Patterns() Patterns {
	return s.patterns.clone()
}

// Components is the breakdown of one keyword's score.
type Components struct {
	HighTerm         string                `json:"high_term,omitempty"`
	MediumTerm       string                `json:"medium_term,omitempty"`
	LowTerm          string                `json:"low_term,omitempty"`
	TrendingTerm     string                `json:"trending_term,omitempty"`
	Tokens           int                   `json:"tokens"`
	LongTail         bool                  `json:"long_tail"`
	RawCompetition   int                   `json:"raw_competition"`
	CompetitionScore int                   `json:"competition_score"`
	VolumeScore      int                   `json:"volume_score"`
	Trend            models.TrendDirection `json:"trend"`
	TrendDraw        *float64              `json:"trend_draw,omitempty"`
	Relevance        float64               `json:"relevance"`
	OpportunityScore int                   `json:"opportunity_score"`
}

// Score analyzes a single keyword.
func (s *Scorer) Score(input models.KeywordInput) models.AnalyzedKeyword {
	c := s.ScoreComponents(input)

	category := input.Category
	if category == "" {
		category = models.CategoryGeneral
	}

	return models.AnalyzedKeyword{
		Keyword:  input.Keyword,
		Category: category,
		Analysis: models.KeywordAnalysis{
			CompetitionScore: c.CompetitionScore,
			CompetitionLevel: LevelFor(c.CompetitionScore),
			VolumeScore:      c.VolumeScore,
			VolumeLevel:      LevelFor(c.VolumeScore),
			TrendDirection:   c.Trend,
			Difficulty:       DifficultyFor(c.CompetitionScore),
		},
		Relevance:         c.Relevance,
		OpportunityScore:  c.OpportunityScore,
		OpportunityRating: RatingFor(c.OpportunityScore),
		Recommendation:    Recommendation(c.OpportunityScore, category),
	}
}

// ScoreComponents returns the individual steps of the score calculation.
// Score delegates to this.
func (s *Scorer) ScoreComponents(input models.KeywordInput) Components {
	kw := strings.ToLower(input.Keyword)
	var c Components

	// Each bucket is scanned independently and contributes at most once.
	competition := BaseCompetition
	if term, ok := firstMatch(kw, s.patterns.HighCompetition); ok {
		c.HighTerm = term
		competition += HighCompetitionBoost
	}
	if term, ok := firstMatch(kw, s.patterns.MediumCompetition); ok {
		c.MediumTerm = term
		competition += MediumCompetitionAdj
	}
	if term, ok := firstMatch(kw, s.patterns.LowCompetition); ok {
		c.LowTerm = term
		competition += LowCompetitionRelief
	}

	c.Tokens = len(strings.Fields(kw))
	if c.Tokens >= LongTailMinTokens {
		c.LongTail = true
		competition += LongTailRelief
	}
	c.RawCompetition = competition
	c.CompetitionScore = clamp(competition, MinCompetition, MaxCompetition)

	volume := BaseVolume
	switch input.SearchVolume {
	case string(models.LevelHigh):
		volume = HighVolume
	case string(models.LevelMedium):
		volume = MediumVolume
	case string(models.LevelLow):
		volume = LowVolume
	}
	if term, ok := firstMatch(kw, s.patterns.Trending); ok {
		c.TrendingTerm = term
		volume = min(volume+TrendingBoost, MaxVolume)
	}
	c.VolumeScore = volume

	switch {
	case c.TrendingTerm != "" || yearPattern.MatchString(kw):
		c.Trend = models.TrendRising
	case containsAny(kw, stableTerms):
		c.Trend = models.TrendStable
	default:
		r := s.random.Float64()
		c.TrendDraw = &r
		c.Trend = trendFromDraw(r)
	}

	c.Relevance = DefaultRelevance
	if input.Relevance != nil {
		c.Relevance = *input.Relevance
	}
	c.OpportunityScore = Opportunity(c.VolumeScore, c.CompetitionScore, c.Relevance)

	return c
}

// Opportunity combines volume, inverse competition, and relevance into one score.
func Opportunity(volumeScore, competitionScore int, relevance float64) int {
	raw := float64(volumeScore)*0.4 + float64(100-competitionScore)*0.4 + relevance*20
	return roundHalfUp(raw)
}

// LevelFor maps a 0-100 score to a level using the 70/40 thresholds.
func LevelFor(score int) models.Level {
	switch {
	case score >= 70:
		return models.LevelHigh
	case score >= 40:
		return models.LevelMedium
	default:
		return models.LevelLow
	}
}

// DifficultyFor maps a competition score to a ranking difficulty.
func DifficultyFor(competitionScore int) models.Difficulty {
	switch {
	case competitionScore >= 70:
		return models.DifficultyHard
	case competitionScore >= 40:
		return models.DifficultyMedium
	default:
		return models.DifficultyEasy
	}
}

// RatingFor maps an opportunity score to its rating.
func RatingFor(opportunityScore int) models.OpportunityRating {
	switch {
	case opportunityScore >= 70:
		return models.RatingExcellent
	case opportunityScore >= 50:
		return models.RatingGood
	default:
		return models.RatingLow
	}
}

// Recommendation returns the advice text for an opportunity score. The
// category only matters in the top band.
func Recommendation(opportunityScore int, category string) string {
	switch {
	case opportunityScore >= 70 && category == models.CategoryPrimary:
		return RecommendPrimaryExcellent
	case opportunityScore >= 70:
		return RecommendExcellent
	case opportunityScore >= 50:
		return RecommendGood
	default:
		return RecommendLow
	}
}

func trendFromDraw(r float64) models.TrendDirection {
	switch {
	case r > risingThreshold:
		return models.TrendRising
	case r > stableThreshold:
		return models.TrendStable
	default:
		return models.TrendDeclining
	}
}

func containsAny(s string, terms []string) bool {
	_, ok := firstMatch(s, terms)
	return ok
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// roundHalfUp rounds .5 toward positive infinity.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
