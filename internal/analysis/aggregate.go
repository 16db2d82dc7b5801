package analysis

import (
	"sort"

	"github.com/spacesedan/newsmood/internal/models"
)

// labelPriority breaks ties in the majority vote. Labels not listed here
// rank after these, in lexical order.
var labelPriority = map[string]int{
	models.LabelPositive: 0,
	models.LabelNegative: 1,
	models.LabelNeutral:  2,
	models.LabelError:    3,
}

// OverallSentiment combines the per-field results of one article. The label
// is the most frequent one (ties: POSITIVE > NEGATIVE > NEUTRAL > ERROR) and
// the score is the plain mean of the field scores. It returns nil when there
// are no results.
func OverallSentiment(results []models.SentimentResult) *models.SentimentResult {
	if len(results) == 0 {
		return nil
	}

	counts := make(map[string]int, len(results))
	scores := make([]float64, 0, len(results))
	for _, r := range results {
		counts[r.Label]++
		scores = append(scores, r.Score)
	}

	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		a, b := labels[i], labels[j]
		if counts[a] != counts[b] {
			return counts[a] > counts[b]
		}
		pa, oka := labelPriority[a]
		pb, okb := labelPriority[b]
		switch {
		case oka && okb:
			return pa < pb
		case oka != okb:
			return oka
		default:
			return a < b
		}
	})

	return &models.SentimentResult{
		Label: labels[0],
		Score: round(mean(scores), 4),
	}
}

// OverallEmotion averages each category over the fields that carry it and
// picks the dominant category (ties: first in models.Emotions). It returns
// nil when no field carries any category.
func OverallEmotion(fields []models.EmotionScores) *models.EmotionOverall {
	averages := make(models.EmotionScores, len(models.Emotions))
	for _, e := range models.Emotions {
		var values []float64
		for _, scores := range fields {
			if v, ok := scores[e]; ok {
				values = append(values, v)
			}
		}
		if len(values) > 0 {
			averages[e] = round(mean(values), 4)
		}
	}
	if len(averages) == 0 {
		return nil
	}

	overall := &models.EmotionOverall{Scores: averages}
	for _, e := range models.Emotions {
		v, ok := averages[e]
		if !ok {
			continue
		}
		if overall.DominantEmotion == "" || v > overall.DominantScore {
			overall.DominantEmotion = e
			overall.DominantScore = v
		}
	}
	return overall
}
