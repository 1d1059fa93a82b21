package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/keyscout/pkg/models"
)

func kw(keyword, category string, trend models.TrendDirection, difficulty models.Difficulty, volume int) models.AnalyzedKeyword {
	return models.AnalyzedKeyword{
		Keyword:  keyword,
		Category: category,
		Analysis: models.KeywordAnalysis{
			TrendDirection: trend,
			Difficulty:     difficulty,
			VolumeScore:    volume,
		},
	}
}

func insightTypes(insights []models.Insight) []models.InsightType {
	out := make([]models.InsightType, len(insights))
	for i, in := range insights {
		out[i] = in.Type
	}
	return out
}

func TestGenerateInsights_OrderAndConditions(t *testing.T) {
	analyzed := []models.AnalyzedKeyword{
		kw("a", "general", models.TrendRising, models.DifficultyEasy, 50),
		kw("b", "general", models.TrendRising, models.DifficultyHard, 50),
		kw("c", "general", models.TrendRising, models.DifficultyEasy, 40),
		kw("d", "general", models.TrendRising, models.DifficultyEasy, 39),
		kw("e", "general", models.TrendStable, models.DifficultyEasy, 85),
	}

	insights := GenerateInsights(analyzed, models.AnalysisMeta{Niche: "gaming"})

	require.Equal(t, []models.InsightType{
		models.InsightGap,
		models.InsightOpportunity,
		models.InsightQuickWin,
		models.InsightNiche,
	}, insightTypes(insights))

	opportunity := insights[1]
	assert.Equal(t, []string{"a", "b", "c"}, opportunity.Keywords, "first three in sort order")
	assert.Contains(t, opportunity.Message, "4 keyword(s)")

	quickWin := insights[2]
	assert.Equal(t, []string{"a", "c", "e"}, quickWin.Keywords)
	assert.Contains(t, quickWin.Message, "3 keyword(s)")
}

func TestGenerateInsights_NoGapWhenLongTailPresent(t *testing.T) {
	analyzed := []models.AnalyzedKeyword{
		kw("a", models.CategoryLongTail, models.TrendDeclining, models.DifficultyHard, 50),
	}

	insights := GenerateInsights(analyzed, models.AnalysisMeta{})

	assert.Empty(t, insights)
	assert.NotNil(t, insights)
}

func TestGenerateInsights_NicheMentionedOnce(t *testing.T) {
	analyzed := []models.AnalyzedKeyword{
		kw("speedrun tips", "general", models.TrendStable, models.DifficultyMedium, 50),
	}

	insights := GenerateInsights(analyzed, models.AnalysisMeta{Niche: "gaming"})

	var niche []models.Insight
	for _, in := range insights {
		if in.Type == models.InsightNiche {
			niche = append(niche, in)
		}
	}
	require.Len(t, niche, 1)
	assert.Contains(t, niche[0].Message, "gaming")
}

func TestGenerateInsights_NoNicheWhenEmpty(t *testing.T) {
	insights := GenerateInsights(nil, models.AnalysisMeta{Concept: "anything"})

	assert.NotContains(t, insightTypes(insights), models.InsightNiche)
}

func TestNextSteps(t *testing.T) {
	base := func() *models.AnalysisReport {
		return &models.AnalysisReport{
			Summary: models.Summary{TopKeywords: 1},
			Recommended: models.Recommended{
				LongTail: []models.AnalyzedKeyword{},
			},
		}
	}

	t.Run("fixed steps only", func(t *testing.T) {
		assert.Len(t, NextSteps(base()), 3)
	})

	t.Run("long-tail step", func(t *testing.T) {
		r := base()
		r.Recommended.LongTail = []models.AnalyzedKeyword{{Keyword: "x"}, {Keyword: "y"}}
		steps := NextSteps(r)
		require.Len(t, steps, 4)
		assert.Contains(t, steps[3], "2 long-tail")
	})

	t.Run("no top tier", func(t *testing.T) {
		r := base()
		r.Summary.TopKeywords = 0
		steps := NextSteps(r)
		require.Len(t, steps, 4)
		assert.Contains(t, steps[3], "top tier")
	})

	t.Run("rising keyword", func(t *testing.T) {
		r := base()
		r.AllKeywords = []models.AnalyzedKeyword{
			kw("a", "general", models.TrendRising, models.DifficultyEasy, 50),
			kw("b", "general", models.TrendRising, models.DifficultyEasy, 50),
		}
		steps := NextSteps(r)
		require.Len(t, steps, 4, "trend step is added once")
		assert.Contains(t, steps[3], "rising")
	})
}
