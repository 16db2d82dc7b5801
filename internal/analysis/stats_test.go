package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/newsmood/internal/models"
)

func withSentiment(label string, score float64) models.AnnotatedArticle {
	sa := models.NewSentimentAnalysis()
	sa.Fields.Set("title", models.SentimentResult{Label: label, Score: score})
	sa.Overall = &models.SentimentResult{Label: label, Score: score}
	return models.AnnotatedArticle{Article: models.Article{"title": "t"}, Sentiment: sa}
}

func withEmotion(scores models.EmotionScores) models.AnnotatedArticle {
	ea := models.NewEmotionAnalysis()
	ea.Fields.Set("title", scores)
	ea.Overall = OverallEmotion([]models.EmotionScores{scores})
	return models.AnnotatedArticle{Article: models.Article{"title": "t"}, Emotion: ea}
}

func TestOverallSentiment_MajorityAndTieBreak(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		want   string
	}{
		{"majority", []string{"NEGATIVE", "POSITIVE", "NEGATIVE"}, "NEGATIVE"},
		{"positive beats negative", []string{"NEGATIVE", "POSITIVE"}, "POSITIVE"},
		{"negative beats neutral", []string{"NEUTRAL", "NEGATIVE"}, "NEGATIVE"},
		{"neutral beats error", []string{"ERROR", "NEUTRAL"}, "NEUTRAL"},
		{"known beats unknown", []string{"MIXED", "ERROR"}, "ERROR"},
		{"unknown lexical", []string{"ZETA", "ALPHA"}, "ALPHA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := make([]models.SentimentResult, len(tt.labels))
			for i, l := range tt.labels {
				results[i] = models.SentimentResult{Label: l, Score: 0.5}
			}
			got := OverallSentiment(results)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Label)
		})
	}
}

func TestOverallSentiment_Empty(t *testing.T) {
	assert.Nil(t, OverallSentiment(nil))
}

func TestOverallSentiment_MeanRounded(t *testing.T) {
	got := OverallSentiment([]models.SentimentResult{
		{Label: "POSITIVE", Score: 0.9999},
		{Label: "POSITIVE", Score: 0.8888},
		{Label: "NEGATIVE", Score: 0.7777},
	})

	require.NotNil(t, got)
	assert.Equal(t, "POSITIVE", got.Label)
	assert.InDelta(t, 0.8888, got.Score, 1e-9)
}

func TestOverallEmotion_TieBreakByCategoryOrder(t *testing.T) {
	got := OverallEmotion([]models.EmotionScores{{
		models.Anger: 0.1, models.Joy: 0.4, models.Fear: 0.4, models.Sadness: 0.1,
	}})

	require.NotNil(t, got)
	assert.Equal(t, models.Fear, got.DominantEmotion)
	assert.InDelta(t, 0.4, got.DominantScore, 1e-9)
}

func TestOverallEmotion_MissingCategoryExcluded(t *testing.T) {
	got := OverallEmotion([]models.EmotionScores{
		{models.Joy: 0.6, models.Fear: 0.2},
		{models.Fear: 0.4},
	})

	require.NotNil(t, got)
	assert.InDelta(t, 0.6, got.Scores[models.Joy], 1e-9)
	assert.InDelta(t, 0.3, got.Scores[models.Fear], 1e-9)
	_, hasAnger := got.Scores[models.Anger]
	assert.False(t, hasAnger)
	assert.Equal(t, models.Joy, got.DominantEmotion)
}

func TestOverallEmotion_NoScores(t *testing.T) {
	assert.Nil(t, OverallEmotion([]models.EmotionScores{{}}))
}

func TestSentimentStatistics_AllPositive(t *testing.T) {
	articles := []models.AnnotatedArticle{
		withSentiment("POSITIVE", 0.9),
		withSentiment("POSITIVE", 0.8),
		withSentiment("POSITIVE", 0.7),
	}

	stats := SentimentStatistics(articles)

	require.NotNil(t, stats)
	assert.Equal(t, 3, stats.TotalAnalyzed)
	assert.Equal(t, 100.0, stats.PositivePercent)
	assert.Equal(t, 0.0, stats.NegativePercent)
	assert.Equal(t, 0.0, stats.NeutralPercent)
	assert.InDelta(t, 0.8, stats.AverageConfidence, 1e-9)
}

func TestSentimentStatistics_NeutralFoldsError(t *testing.T) {
	articles := []models.AnnotatedArticle{
		withSentiment("POSITIVE", 0.9),
		withSentiment("NEGATIVE", 0.8),
		withSentiment("NEUTRAL", 0.0),
		withSentiment("ERROR", 0.0),
		withSentiment("NEGATIVE", 0.6),
		{Article: models.Article{"title": ""}, Sentiment: models.NewSentimentAnalysis()},
		{Article: models.Article{"title": "never analysed"}},
	}

	stats := SentimentStatistics(articles)

	require.NotNil(t, stats)
	assert.Equal(t, models.SentimentStats{
		TotalAnalyzed:     5,
		Positive:          1,
		Negative:          2,
		Neutral:           2,
		PositivePercent:   20,
		NegativePercent:   40,
		NeutralPercent:    40,
		AverageConfidence: 0.46,
	}, *stats)
}

func TestSentimentStatistics_PercentRounding(t *testing.T) {
	stats := SentimentStatistics([]models.AnnotatedArticle{
		withSentiment("POSITIVE", 0.5),
		withSentiment("NEGATIVE", 0.5),
		withSentiment("NEGATIVE", 0.5),
	})

	require.NotNil(t, stats)
	assert.Equal(t, 33.33, stats.PositivePercent)
	assert.Equal(t, 66.67, stats.NegativePercent)
}

func TestSentimentStatistics_Empty(t *testing.T) {
	assert.Nil(t, SentimentStatistics(nil))
	assert.Nil(t, SentimentStatistics([]models.AnnotatedArticle{{Article: models.Article{}}}))
}

func TestEmotionStatistics_TwoRecords(t *testing.T) {
	fearful := emotionPredictions(models.Fear, 0.9)
	joyful := emotionPredictions(models.Joy, 0.8)
	clf := &mockClassifier{respond: func(text string) ([]models.Prediction, error) {
		if text == "A" {
			return fearful, nil
		}
		return joyful, nil
	}}
	analyzer := NewEmotionAnalyzer(clf)

	out, err := analyzer.AnalyzeArticles(context.Background(), []models.AnnotatedArticle{
		article(map[string]any{"title": "A"}),
		article(map[string]any{"title": "B"}),
	})
	require.NoError(t, err)

	stats := EmotionStatistics(out)

	require.NotNil(t, stats)
	assert.Equal(t, 2, stats.TotalAnalyzed)

	fear, _ := stats.DominantEmotionCounts.Get("fear")
	joy, _ := stats.DominantEmotionCounts.Get("joy")
	assert.Equal(t, 1, fear)
	assert.Equal(t, 1, joy)
	assert.Equal(t, 2, stats.DominantEmotionCounts.Len())

	fearPct, _ := stats.EmotionDistribution.Get("fear")
	joyPct, _ := stats.EmotionDistribution.Get("joy")
	assert.Equal(t, 50.0, fearPct)
	assert.Equal(t, 50.0, joyPct)

	require.NotNil(t, stats.MostCommonEmotion)
	assert.Equal(t, models.Fear, *stats.MostCommonEmotion)
	assert.Equal(t, "fear", stats.DominantEmotionCounts.Oldest().Key)
}

func TestEmotionStatistics_RankedByCount(t *testing.T) {
	articles := []models.AnnotatedArticle{
		withEmotion(models.EmotionScores{models.Joy: 0.9, models.Sadness: 0.1}),
		withEmotion(models.EmotionScores{models.Sadness: 0.7, models.Joy: 0.3}),
		withEmotion(models.EmotionScores{models.Sadness: 0.6, models.Joy: 0.4}),
		withEmotion(models.EmotionScores{models.Anger: 0.5, models.Joy: 0.5}),
	}

	stats := EmotionStatistics(articles)

	require.NotNil(t, stats)
	var order []string
	for pair := stats.DominantEmotionCounts.Oldest(); pair != nil; pair = pair.Next() {
		order = append(order, pair.Key)
	}
	assert.Equal(t, []string{"sadness", "anger", "joy"}, order)
	assert.Equal(t, models.Sadness, *stats.MostCommonEmotion)

	sadPct, _ := stats.EmotionDistribution.Get("sadness")
	assert.Equal(t, 50.0, sadPct)
	assert.InDelta(t, 0.525, stats.AverageEmotions[models.Joy], 1e-9)
	assert.InDelta(t, 0.5, stats.AverageEmotions[models.Anger], 1e-9)
	assert.Equal(t, 0.0, stats.AverageEmotions[models.Disgust])
}

func TestEmotionStatistics_Empty(t *testing.T) {
	assert.Nil(t, EmotionStatistics(nil))
	assert.Nil(t, EmotionStatistics([]models.AnnotatedArticle{}))
}
