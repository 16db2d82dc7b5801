package analysis

import (
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/spacesedan/newsmood/internal/models"
)

// SentimentStatistics summarises the overall sentiment verdicts of a corpus.
// Articles without an overall verdict are skipped. It returns nil when no
// article has one, which callers must tell apart from an all-zero result.
func SentimentStatistics(articles []models.AnnotatedArticle) *models.SentimentStats {
	var overall []models.SentimentResult
	for _, a := range articles {
		if a.Sentiment != nil && a.Sentiment.Overall != nil {
			overall = append(overall, *a.Sentiment.Overall)
		}
	}
	if len(overall) == 0 {
		return nil
	}

	stats := &models.SentimentStats{TotalAnalyzed: len(overall)}
	scores := make([]float64, 0, len(overall))
	for _, o := range overall {
		switch o.Label {
		case models.LabelPositive:
			stats.Positive++
		case models.LabelNegative:
			stats.Negative++
		}
		scores = append(scores, o.Score)
	}
	stats.Neutral = stats.TotalAnalyzed - stats.Positive - stats.Negative

	total := float64(stats.TotalAnalyzed)
	stats.PositivePercent = round(float64(stats.Positive)/total*100, 2)
	stats.NegativePercent = round(float64(stats.Negative)/total*100, 2)
	stats.NeutralPercent = round(float64(stats.Neutral)/total*100, 2)
	stats.AverageConfidence = round(mean(scores), 4)
	return stats
}

// EmotionStatistics summarises the overall emotion verdicts of a corpus.
// Articles without an overall verdict are skipped; nil means no article had
// one.
func EmotionStatistics(articles []models.AnnotatedArticle) *models.EmotionStats {
	var overall []*models.EmotionOverall
	for _, a := range articles {
		if a.Emotion != nil && a.Emotion.Overall != nil {
			overall = append(overall, a.Emotion.Overall)
		}
	}
	if len(overall) == 0 {
		return nil
	}

	averages := make(models.EmotionScores, len(models.Emotions))
	for _, e := range models.Emotions {
		var values []float64
		for _, o := range overall {
			if v, ok := o.Scores[e]; ok {
				values = append(values, v)
			}
		}
		averages[e] = round(mean(values), 4)
	}

	counts := make(map[models.Emotion]int)
	dominantTotal := 0
	for _, o := range overall {
		if o.DominantEmotion == "" {
			continue
		}
		counts[o.DominantEmotion]++
		dominantTotal++
	}

	ranked := make([]models.Emotion, 0, len(counts))
	for e := range counts {
		ranked = append(ranked, e)
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if counts[a] != counts[b] {
			return counts[a] > counts[b]
		}
		if rank(a) != rank(b) {
			return rank(a) < rank(b)
		}
		return a < b
	})

	stats := &models.EmotionStats{
		TotalAnalyzed:         len(overall),
		AverageEmotions:       averages,
		DominantEmotionCounts: orderedmap.New[string, int](),
		EmotionDistribution:   orderedmap.New[string, float64](),
	}
	for _, e := range ranked {
		stats.DominantEmotionCounts.Set(string(e), counts[e])
		stats.EmotionDistribution.Set(string(e), round(float64(counts[e])/float64(dominantTotal)*100, 2))
	}
	if len(ranked) > 0 {
		mostCommon := ranked[0]
		stats.MostCommonEmotion = &mostCommon
	}
	return stats
}

// rank orders known categories by enumeration order and unknown ones (read
// back from foreign reports) after them.
func rank(e models.Emotion) int {
	if i := e.Index(); i >= 0 {
		return i
	}
	return len(models.Emotions)
}
