package analysis

import (
	"fmt"
	"strings"

	"github.com/thebtf/keyscout/pkg/models"
)

// MaxInsightExamples caps the example keywords attached to an insight.
const MaxInsightExamples = 3

// QuickWinMinVolume is the minimum volume score for an easy keyword to count as a quick win.
const QuickWinMinVolume = 40

// GenerateInsights derives qualitative observations from an analyzed batch.
// Rules are evaluated independently and appended in a fixed order: gap,
// opportunity, quick-win, niche.
func GenerateInsights(analyzed []models.AnalyzedKeyword, meta models.AnalysisMeta) []models.Insight {
	insights := []models.Insight{}

	hasLongTail := false
	for _, kw := range analyzed {
		if kw.Category == models.CategoryLongTail {
			hasLongTail = true
			break
		}
	}
	if !hasLongTail {
		insights = append(insights, models.Insight{
			Type:    models.InsightGap,
			Title:   "Missing long-tail keywords",
			Message: "No long-tail keywords in this set. Add specific multi-word phrases to reach lower-competition searches.",
		})
	}

	rising := selectKeywords(analyzed, func(kw models.AnalyzedKeyword) bool {
		return kw.Analysis.TrendDirection == models.TrendRising
	})
	if len(rising) > 0 {
		examples := head(rising, MaxInsightExamples)
		insights = append(insights, models.Insight{
			Type:     models.InsightOpportunity,
			Title:    "Trending keywords",
			Message:  fmt.Sprintf("%d keyword(s) show a rising trend. Prioritize content around: %s", len(rising), joinKeywords(examples)),
			Keywords: keywordTexts(examples),
		})
	}

	quickWins := selectKeywords(analyzed, func(kw models.AnalyzedKeyword) bool {
		return kw.Analysis.Difficulty == models.DifficultyEasy && kw.Analysis.VolumeScore >= QuickWinMinVolume
	})
	if len(quickWins) > 0 {
		examples := head(quickWins, MaxInsightExamples)
		insights = append(insights, models.Insight{
			Type:     models.InsightQuickWin,
			Title:    "Quick wins",
			Message:  fmt.Sprintf("%d keyword(s) combine low difficulty with solid volume: %s", len(quickWins), joinKeywords(examples)),
			Keywords: keywordTexts(examples),
		})
	}

	if meta.Niche != "" {
		insights = append(insights, models.Insight{
			Type:    models.InsightNiche,
			Title:   "Niche focus",
			Message: fmt.Sprintf("For the %s niche, mix broad terms with %s-specific vocabulary your audience already searches for.", meta.Niche, meta.Niche),
		})
	}

	return insights
}

// NextSteps returns the fixed action list followed by steps derived from the report.
func NextSteps(report *models.AnalysisReport) []string {
	steps := []string{
		"Place primary keywords in titles and the opening lines of descriptions",
		"Work secondary keywords into descriptions, tags, and section headings",
		"Re-run the analysis after publishing to see how opportunities shift",
	}

	if n := len(report.Recommended.LongTail); n > 0 {
		steps = append(steps, fmt.Sprintf("Plan dedicated content for %d long-tail keyword(s)", n))
	}
	if report.Summary.TopKeywords == 0 {
		steps = append(steps, "Research more specific keyword variations, since no keyword reached the top tier")
	}
	for _, kw := range report.AllKeywords {
		if kw.Analysis.TrendDirection == models.TrendRising {
			steps = append(steps, "Publish on rising topics soon while search interest is growing")
			break
		}
	}

	return steps
}

func selectKeywords(keywords []models.AnalyzedKeyword, keep func(models.AnalyzedKeyword) bool) []models.AnalyzedKeyword {
	var out []models.AnalyzedKeyword
	for _, kw := range keywords {
		if keep(kw) {
			out = append(out, kw)
		}
	}
	return out
}

func keywordTexts(keywords []models.AnalyzedKeyword) []string {
	out := make([]string, len(keywords))
	for i, kw := range keywords {
		out[i] = kw.Keyword
	}
	return out
}

func joinKeywords(keywords []models.AnalyzedKeyword) string {
	return strings.Join(keywordTexts(keywords), ", ")
}
