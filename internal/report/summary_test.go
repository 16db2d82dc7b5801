package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/newsmood/internal/models"
)

func TestSummary(t *testing.T) {
	want := `GEOPOLITICAL NARRATIVE ANALYSIS - SUMMARY REPORT
============================================================

SENTIMENT ANALYSIS:
  Total articles:  3
  Positive:        1 (33.33%)
  Negative:        2 (66.67%)
  Neutral:         0 (0.0%)
  Avg confidence:  0.8333

EMOTION ANALYSIS:
  Most common emotion: fear
  Distribution:
    fear      :  66.7%
    joy       :  33.3%
`

	assert.Equal(t, want, Summary(buildTestReport(t)))
}

func TestSummary_Empty(t *testing.T) {
	out := Summary(models.NewReport(nil))

	assert.Contains(t, out, "SENTIMENT ANALYSIS:\n  No articles analyzed\n")
	assert.Contains(t, out, "EMOTION ANALYSIS:\n  No articles analyzed\n")
}

func TestWriteSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), SummaryFilename)

	require.NoError(t, WriteSummary(path, buildTestReport(t)))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Most common emotion: fear")
}

func TestInsights(t *testing.T) {
	assert.Equal(t, []string{
		"66.67% of coverage is NEGATIVE",
		"High anxiety about the situation",
	}, Insights(buildTestReport(t)))

	positive := models.Report{SentimentStatistics: &models.SentimentStats{PositivePercent: 100}}
	assert.Equal(t, []string{"100.0% of coverage is POSITIVE"}, Insights(positive))

	balanced := models.Report{SentimentStatistics: &models.SentimentStats{PositivePercent: 50, NegativePercent: 50}}
	assert.Equal(t, []string{"Coverage is relatively BALANCED"}, Insights(balanced))

	assert.Empty(t, Insights(models.Report{}))
}

func TestTopEmotions(t *testing.T) {
	overall := &models.EmotionOverall{Scores: models.EmotionScores{
		models.Anger:    0.2,
		models.Fear:     0.5,
		models.Joy:      0.2,
		models.Surprise: 0.1,
	}}

	top := TopEmotions(overall, 3)

	assert.Equal(t, []EmotionScore{
		{Emotion: models.Fear, Score: 0.5},
		{Emotion: models.Anger, Score: 0.2},
		{Emotion: models.Joy, Score: 0.2},
	}, top)
	assert.Len(t, TopEmotions(overall, 10), 4)
	assert.Nil(t, TopEmotions(nil, 3))
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "100.0", formatPercent(100))
	assert.Equal(t, "0.0", formatPercent(0))
	assert.Equal(t, "33.33", formatPercent(33.33))
	assert.Equal(t, "12.5", formatPercent(12.5))
}
