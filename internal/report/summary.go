package report

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/spacesedan/newsmood/internal/models"
	"github.com/spacesedan/newsmood/internal/utils"
)

const (
	summaryTitle     = "GEOPOLITICAL NARRATIVE ANALYSIS - SUMMARY REPORT"
	rule             = "============================================================"
	sampleTitleRunes = 70
)

var emotionMeanings = map[models.Emotion]string{
	models.Fear:     "High anxiety about the situation",
	models.Anger:    "Public frustration evident",
	models.Sadness:  "Somber tone in coverage",
	models.Joy:      "Optimistic reporting",
	models.Surprise: "Unexpected developments",
	models.Neutral:  "Objective reporting tone",
	models.Disgust:  "Strong negative reactions",
}

// Summary renders the plain-text summary of a report's statistics.
func Summary(r models.Report) string {
	var b strings.Builder
	b.WriteString(summaryTitle + "\n")
	b.WriteString(rule + "\n\n")

	b.WriteString("SENTIMENT ANALYSIS:\n")
	if s := r.SentimentStatistics; s != nil {
		fmt.Fprintf(&b, "  Total articles:  %d\n", s.TotalAnalyzed)
		fmt.Fprintf(&b, "  Positive:        %d (%s%%)\n", s.Positive, formatPercent(s.PositivePercent))
		fmt.Fprintf(&b, "  Negative:        %d (%s%%)\n", s.Negative, formatPercent(s.NegativePercent))
		fmt.Fprintf(&b, "  Neutral:         %d (%s%%)\n", s.Neutral, formatPercent(s.NeutralPercent))
		fmt.Fprintf(&b, "  Avg confidence:  %s\n", strconv.FormatFloat(s.AverageConfidence, 'f', -1, 64))
	} else {
		b.WriteString("  No articles analyzed\n")
	}
	b.WriteString("\n")

	b.WriteString("EMOTION ANALYSIS:\n")
	e := r.EmotionStatistics
	if e == nil || e.MostCommonEmotion == nil {
		b.WriteString("  No articles analyzed\n")
		return b.String()
	}
	fmt.Fprintf(&b, "  Most common emotion: %s\n", *e.MostCommonEmotion)
	b.WriteString("  Distribution:\n")
	if e.EmotionDistribution != nil {
		for pair := e.EmotionDistribution.Oldest(); pair != nil; pair = pair.Next() {
			fmt.Fprintf(&b, "    %-10s: %5.1f%%\n", pair.Key, pair.Value)
		}
	}
	return b.String()
}

func WriteSummary(path string, r models.Report) error {
	if err := utils.WriteFileAtomic(path, []byte(Summary(r))); err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	return nil
}

// Insights returns one line on the overall tone of coverage and one on the
// most common emotion.
func Insights(r models.Report) []string {
	var lines []string
	if s := r.SentimentStatistics; s != nil {
		switch {
		case s.NegativePercent > 50:
			lines = append(lines, formatPercent(s.NegativePercent)+"% of coverage is NEGATIVE")
		case s.PositivePercent > 50:
			lines = append(lines, formatPercent(s.PositivePercent)+"% of coverage is POSITIVE")
		default:
			lines = append(lines, "Coverage is relatively BALANCED")
		}
	}
	if e := r.EmotionStatistics; e != nil && e.MostCommonEmotion != nil {
		if meaning, ok := emotionMeanings[*e.MostCommonEmotion]; ok {
			lines = append(lines, meaning)
		}
	}
	return lines
}

type EmotionScore struct {
	Emotion models.Emotion
	Score   float64
}

// TopEmotions returns the k highest category means of an overall result,
// ties in category order.
func TopEmotions(o *models.EmotionOverall, k int) []EmotionScore {
	if o == nil {
		return nil
	}
	scores := make([]EmotionScore, 0, len(o.Scores))
	for _, e := range models.Emotions {
		if v, ok := o.Scores[e]; ok {
			scores = append(scores, EmotionScore{Emotion: e, Score: v})
		}
	}
	slices.SortStableFunc(scores, func(a, b EmotionScore) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	return scores[:min(k, len(scores))]
}

// LogSamples logs the verdicts for the first n articles of a report.
func LogSamples(logger *slog.Logger, r models.Report, n int) {
	for i, article := range r.Articles[:min(n, len(r.Articles))] {
		attrs := []any{
			slog.Int("index", i+1),
			slog.String("title", shorten(article.Article.String("title", "No title"), sampleTitleRunes)),
			slog.String("source", article.Article.String("source", "Unknown")),
			slog.String("published", article.Article.String("published_at", "Unknown")),
		}
		if article.Sentiment != nil && article.Sentiment.Overall != nil {
			attrs = append(attrs,
				slog.String("sentiment", article.Sentiment.Overall.Label),
				slog.Float64("sentiment_score", article.Sentiment.Overall.Score))
		}
		if article.Emotion != nil && article.Emotion.Overall != nil && article.Emotion.Overall.DominantEmotion != "" {
			top := TopEmotions(article.Emotion.Overall, 3)
			parts := make([]string, len(top))
			for j, s := range top {
				parts[j] = fmt.Sprintf("%s(%.2f)", s.Emotion, s.Score)
			}
			attrs = append(attrs,
				slog.String("dominant_emotion", string(article.Emotion.Overall.DominantEmotion)),
				slog.Float64("dominant_score", article.Emotion.Overall.DominantScore),
				slog.String("top_emotions", strings.Join(parts, ", ")))
		}
		logger.Info("[Report] Sample article", attrs...)
	}
}

// formatPercent prints whole numbers with one decimal (100.0) and anything
// else with the digits it has (33.33).
func formatPercent(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func shorten(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
