package scoring

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/thebtf/keyscout/pkg/models"
)

// fixedSource always returns the same draw.
type fixedSource float64

func (f fixedSource) Float64() float64 { return float64(f) }

func ptr(f float64) *float64 { return &f }

// ScorerSuite is a test suite for the Scorer.
type ScorerSuite struct {
	suite.Suite
	scorer *Scorer
}

func (s *ScorerSuite) SetupTest() {
	s.scorer = NewScorer(nil, fixedSource(0.5))
}

func TestScorerSuite(t *testing.T) {
	suite.Run(t, new(ScorerSuite))
}

// =============================================================================
// GOOD SCENARIOS - Expected normal operations
// =============================================================================

func (s *ScorerSuite) TestScore_GoodScenarios_HighCompetitionTermAppliedOnce() {
	// "best" and "tutorial" are both high-competition terms; the bucket fires once.
	c := s.scorer.ScoreComponents(models.KeywordInput{Keyword: "best camera tutorial"})

	s.Equal("tutorial", c.HighTerm, "first term in table order wins")
	s.Equal(65, c.CompetitionScore)
	s.Equal(3, c.Tokens)
	s.False(c.LongTail)

	kw := s.scorer.Score(models.KeywordInput{Keyword: "best camera tutorial"})
	s.GreaterOrEqual(kw.Analysis.CompetitionScore, 65)
	s.Contains([]models.Difficulty{models.DifficultyMedium, models.DifficultyHard}, kw.Analysis.Difficulty)
	s.Equal(44, kw.OpportunityScore) // 50*0.4 + 35*0.4 + 0.5*20
	s.Equal(models.RatingLow, kw.OpportunityRating)
}

func (s *ScorerSuite) TestScore_GoodScenarios_LongTailWithLowCompetitionTerms() {
	kw := s.scorer.Score(models.KeywordInput{
		Keyword:   "advanced photography secrets for professionals",
		Relevance: ptr(0.9),
	})

	// 50 - 20 (low bucket once) - 15 (five tokens) = 15
	s.Equal(15, kw.Analysis.CompetitionScore)
	s.Equal(models.DifficultyEasy, kw.Analysis.Difficulty)
	s.Equal(models.LevelLow, kw.Analysis.CompetitionLevel)
	s.Equal(50, kw.Analysis.VolumeScore)
	s.Equal(72, kw.OpportunityScore) // 20 + 34 + 18
	s.Equal(models.RatingExcellent, kw.OpportunityRating)
	s.Equal(RecommendExcellent, kw.Recommendation)
}

func (s *ScorerSuite) TestScore_GoodScenarios_AllThreeBucketsAccumulate() {
	c := s.scorer.ScoreComponents(models.KeywordInput{Keyword: "best tips for hidden features"})

	s.Equal("best", c.HighTerm)
	s.Equal("tips", c.MediumTerm)
	s.Equal("hidden", c.LowTerm)
	s.True(c.LongTail)
	// 50 + 15 + 5 - 20 - 15
	s.Equal(35, c.CompetitionScore)
}

func (s *ScorerSuite) TestScore_GoodScenarios_TrendingKeyword() {
	kw := s.scorer.Score(models.KeywordInput{Keyword: "AI camera tips 2025"})

	s.Equal("AI camera tips 2025", kw.Keyword, "original casing is preserved")
	s.Equal(40, kw.Analysis.CompetitionScore) // 50 + 5 - 15
	s.Equal(65, kw.Analysis.VolumeScore)
	s.Equal(models.TrendRising, kw.Analysis.TrendDirection)
	s.Equal(60, kw.OpportunityScore)
}

func (s *ScorerSuite) TestScore_GoodScenarios_SearchVolumeOverride() {
	tests := []struct {
		volume   string
		expected int
	}{
		{"high", HighVolume},
		{"medium", MediumVolume},
		{"low", LowVolume},
		{"", BaseVolume},
		{"HIGH", BaseVolume},
		{"huge", BaseVolume},
	}

	for _, tt := range tests {
		kw := s.scorer.Score(models.KeywordInput{Keyword: "film cameras", SearchVolume: tt.volume})
		s.Equal(tt.expected, kw.Analysis.VolumeScore, "searchVolume=%q", tt.volume)
	}
}

func (s *ScorerSuite) TestScore_GoodScenarios_VolumeCappedAt100() {
	kw := s.scorer.Score(models.KeywordInput{Keyword: "viral shorts ideas", SearchVolume: "high"})

	s.Equal(MaxVolume, kw.Analysis.VolumeScore)
	s.Equal(models.LevelHigh, kw.Analysis.VolumeLevel)
}

func (s *ScorerSuite) TestScore_GoodScenarios_Defaults() {
	kw := s.scorer.Score(models.KeywordInput{Keyword: "film cameras"})

	s.Equal(models.CategoryGeneral, kw.Category)
	s.Equal(DefaultRelevance, kw.Relevance)
}

func (s *ScorerSuite) TestScore_GoodScenarios_PrimaryRecommendation() {
	input := models.KeywordInput{
		Keyword:   "advanced photography secrets for professionals",
		Category:  models.CategoryPrimary,
		Relevance: ptr(0.9),
	}

	kw := s.scorer.Score(input)

	s.Equal(models.CategoryPrimary, kw.Category)
	s.Equal(RecommendPrimaryExcellent, kw.Recommendation)
}

// =============================================================================
// TREND DIRECTION
// =============================================================================

func (s *ScorerSuite) TestTrend_YearPatternIsRising() {
	c := s.scorer.ScoreComponents(models.KeywordInput{Keyword: "camera settings 2027"})

	s.Empty(c.TrendingTerm)
	s.Equal(BaseVolume, c.VolumeScore, "years outside the trending table do not boost volume")
	s.Equal(models.TrendRising, c.Trend)
	s.Nil(c.TrendDraw)
}

func (s *ScorerSuite) TestTrend_ClassicIsStable() {
	for _, kw := range []string{"classic film cameras", "Traditional darkroom printing"} {
		scorer := NewScorer(nil, fixedSource(0.99))
		c := scorer.ScoreComponents(models.KeywordInput{Keyword: kw})
		s.Equal(models.TrendStable, c.Trend, kw)
		s.Nil(c.TrendDraw, "no draw for %q", kw)
	}
}

func (s *ScorerSuite) TestTrend_DrawThresholds() {
	tests := []struct {
		draw     float64
		expected models.TrendDirection
	}{
		{0.99, models.TrendRising},
		{0.71, models.TrendRising},
		{0.7, models.TrendStable},
		{0.5, models.TrendStable},
		{0.31, models.TrendStable},
		{0.3, models.TrendDeclining},
		{0.0, models.TrendDeclining},
	}

	for _, tt := range tests {
		scorer := NewScorer(nil, fixedSource(tt.draw))
		kw := scorer.Score(models.KeywordInput{Keyword: "film cameras"})
		s.Equal(tt.expected, kw.Analysis.TrendDirection, "draw=%v", tt.draw)
	}
}

// =============================================================================
// EDGE CASES - Quirks that are kept on purpose
// =============================================================================

func (s *ScorerSuite) TestScore_EdgeCases_SubstringMatching() {
	// "email" contains "ai", so it counts as trending.
	c := s.scorer.ScoreComponents(models.KeywordInput{Keyword: "email newsletter"})

	s.Equal("ai", c.TrendingTerm)
	s.Equal(models.TrendRising, c.Trend)
}

func (s *ScorerSuite) TestScore_EdgeCases_ExplicitZeroRelevanceKept() {
	kw := s.scorer.Score(models.KeywordInput{Keyword: "film cameras", Relevance: ptr(0)})

	s.Equal(0.0, kw.Relevance)
	s.Equal(40, kw.OpportunityScore) // 20 + 20 + 0
}

func (s *ScorerSuite) TestScore_EdgeCases_CompetitionIgnored() {
	a := s.scorer.Score(models.KeywordInput{Keyword: "film cameras"})
	b := s.scorer.Score(models.KeywordInput{Keyword: "film cameras", Competition: "high"})

	s.Equal(a, b)
}

func (s *ScorerSuite) TestScore_EdgeCases_ExtraWhitespace() {
	c := s.scorer.ScoreComponents(models.KeywordInput{Keyword: "  film   camera  light meter "})

	s.Equal(4, c.Tokens)
	s.True(c.LongTail)
}

// =============================================================================
// PROPERTIES
// =============================================================================

var propertyKeywords = []string{
	"best camera tutorial",
	"hidden gem cameras",
	"ai camera tips 2025",
	"advanced photography secrets for professionals",
	"how to review the top 10 best guide tutorial",
	"mistakes underrated hidden secret advanced tricks in a very long phrase",
	"x",
	"",
	"CHATGPT automation walkthrough demo explained",
	"classic cameras",
}

func TestScore_Bounds(t *testing.T) {
	scorer := NewScorer(nil, NewSeededSource(42))
	volumes := []string{"", "high", "medium", "low"}

	for _, kw := range propertyKeywords {
		for _, vol := range volumes {
			got := scorer.Score(models.KeywordInput{Keyword: kw, SearchVolume: vol})
			assert.GreaterOrEqual(t, got.Analysis.CompetitionScore, MinCompetition, kw)
			assert.LessOrEqual(t, got.Analysis.CompetitionScore, MaxCompetition, kw)
			assert.GreaterOrEqual(t, got.Analysis.VolumeScore, 0, kw)
			assert.LessOrEqual(t, got.Analysis.VolumeScore, MaxVolume, kw)
		}
	}
}

func TestScore_IdempotentExceptTrend(t *testing.T) {
	first := NewScorer(nil, fixedSource(0.1))
	second := NewScorer(nil, fixedSource(0.9))

	for _, kw := range propertyKeywords {
		input := models.KeywordInput{Keyword: kw, Relevance: ptr(0.8)}
		a := first.Score(input)
		b := second.Score(input)

		assert.Equal(t, a.Analysis.CompetitionScore, b.Analysis.CompetitionScore, kw)
		assert.Equal(t, a.Analysis.VolumeScore, b.Analysis.VolumeScore, kw)
		assert.Equal(t, a.OpportunityScore, b.OpportunityScore, kw)
		assert.Equal(t, a.Analysis.Difficulty, b.Analysis.Difficulty, kw)
		assert.Equal(t, a.Recommendation, b.Recommendation, kw)
	}
}

func TestScore_ConcurrentUse(t *testing.T) {
	scorer := NewScorer(nil, NewSeededSource(7))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, kw := range propertyKeywords {
				got := scorer.Score(models.KeywordInput{Keyword: kw})
				assert.NotEmpty(t, got.Analysis.TrendDirection)
			}
		}()
	}
	wg.Wait()
}

func TestNewScorer_CopiesPatterns(t *testing.T) {
	p := DefaultPatterns()
	scorer := NewScorer(&p, nil)

	p.HighCompetition[0] = "mutated"

	assert.Equal(t, "tutorial", scorer.Patterns().HighCompetition[0])
}

func TestOpportunity(t *testing.T) {
	tests := []struct {
		name        string
		volume      int
		competition int
		relevance   float64
		expected    int
	}{
		{"defaults", 50, 50, 0.5, 50},
		{"max signal", 100, 10, 1, 96},
		{"min signal", 35, 95, 0, 16},
		{"rounds half up", 50, 50, 0.525, 51}, // 20 + 20 + 10.5
		{"rounds down", 50, 50, 0.51, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Opportunity(tt.volume, tt.competition, tt.relevance))
		})
	}
}

func TestThresholdHelpers(t *testing.T) {
	assert.Equal(t, models.LevelHigh, LevelFor(70))
	assert.Equal(t, models.LevelMedium, LevelFor(69))
	assert.Equal(t, models.LevelMedium, LevelFor(40))
	assert.Equal(t, models.LevelLow, LevelFor(39))

	assert.Equal(t, models.DifficultyHard, DifficultyFor(70))
	assert.Equal(t, models.DifficultyMedium, DifficultyFor(40))
	assert.Equal(t, models.DifficultyEasy, DifficultyFor(39))

	assert.Equal(t, models.RatingExcellent, RatingFor(70))
	assert.Equal(t, models.RatingGood, RatingFor(50))
	assert.Equal(t, models.RatingLow, RatingFor(49))

	assert.Equal(t, RecommendPrimaryExcellent, Recommendation(70, models.CategoryPrimary))
	assert.Equal(t, RecommendExcellent, Recommendation(70, models.CategoryGeneral))
	assert.Equal(t, RecommendGood, Recommendation(69, models.CategoryPrimary))
	assert.Equal(t, RecommendLow, Recommendation(49, models.CategoryPrimary))
}

func TestClampAndRound(t *testing.T) {
	assert.Equal(t, MinCompetition, clamp(-5, MinCompetition, MaxCompetition))
	assert.Equal(t, MaxCompetition, clamp(120, MinCompetition, MaxCompetition))
	assert.Equal(t, 50, clamp(50, MinCompetition, MaxCompetition))

	assert.Equal(t, 3, roundHalfUp(2.5))
	assert.Equal(t, -2, roundHalfUp(-2.5))
	assert.Equal(t, 2, roundHalfUp(2.49))
}

func TestSeededSource_Reproducible(t *testing.T) {
	a := NewSeededSource(99)
	b := NewSeededSource(99)

	for i := 0; i < 10; i++ {
		v := a.Float64()
		require.Equal(t, v, b.Float64())
		require.GreaterOrEqual(t, v, 0.0)
		require.Less(t, v, 1.0)
	}
}
