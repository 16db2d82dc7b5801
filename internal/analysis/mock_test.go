package analysis

import (
	"context"
	"strings"

	"github.com/spacesedan/newsmood/internal/models"
)

type mockClassifier struct {
	calls   []string
	respond func(text string) ([]models.Prediction, error)
}

func (m *mockClassifier) Classify(_ context.Context, text string) ([]models.Prediction, error) {
	m.calls = append(m.calls, text)
	return m.respond(text)
}

type mockBatchClassifier struct {
	mockClassifier
	batches      [][]string
	respondBatch func(texts []string) ([][]models.Prediction, error)
}

func (m *mockBatchClassifier) ClassifyBatch(_ context.Context, texts []string) ([][]models.Prediction, error) {
	m.batches = append(m.batches, append([]string(nil), texts...))
	return m.respondBatch(texts)
}

// keywordSentiment is a deterministic sentiment model: texts containing
// "bad" are NEGATIVE, everything else POSITIVE. The score depends on the
// text length so different texts get different scores.
func keywordSentiment(text string) ([]models.Prediction, error) {
	score := 0.5 + float64(len(text)%50)/100
	if strings.Contains(text, "bad") {
		return []models.Prediction{{Label: "NEGATIVE", Score: score}}, nil
	}
	return []models.Prediction{{Label: "POSITIVE", Score: score}}, nil
}

func fixedSentiment(label string, score float64) func(string) ([]models.Prediction, error) {
	return func(string) ([]models.Prediction, error) {
		return []models.Prediction{{Label: label, Score: score}}, nil
	}
}

// emotionPredictions builds a full seven-label answer with the given peak and
// the rest of the mass spread evenly.
func emotionPredictions(peak models.Emotion, score float64) []models.Prediction {
	rest := (1 - score) / float64(len(models.Emotions)-1)
	out := make([]models.Prediction, 0, len(models.Emotions))
	for _, e := range models.Emotions {
		s := rest
		if e == peak {
			s = score
		}
		out = append(out, models.Prediction{Label: string(e), Score: s})
	}
	return out
}

func article(fields map[string]any) models.AnnotatedArticle {
	return models.AnnotatedArticle{Article: models.Article(fields)}
}
