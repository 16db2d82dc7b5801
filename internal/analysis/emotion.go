package analysis

import (
	"context"
	"log/slog"

	"github.com/spacesedan/newsmood/internal/models"
)

// EmotionAnalyzer scores text against the seven fixed emotion categories.
type EmotionAnalyzer struct {
	classifier Classifier
	settings
}

func NewEmotionAnalyzer(classifier Classifier, opts ...Option) *EmotionAnalyzer {
	return &EmotionAnalyzer{classifier: classifier, settings: newSettings(opts)}
}

// AnalyzeText returns one score per emotion category. Blank text and
// classifier failures both yield every category at 0; on failure the *Error
// is returned as well.
func (e *EmotionAnalyzer) AnalyzeText(ctx context.Context, text string) (models.EmotionScores, error) {
	if isBlank(text) {
		return models.ZeroEmotionScores(), nil
	}

	predictions, err := e.classifier.Classify(ctx, truncate(text, e.maxLength))
	if err != nil {
		return models.ZeroEmotionScores(), classifyError(err)
	}

	scores, aerr := emotionScores(predictions)
	if aerr != nil {
		return models.ZeroEmotionScores(), aerr
	}
	return scores, nil
}

// AnalyzeArticles adds an emotion_analysis annotation to a copy of every
// article, with per-field scores and the overall averages and dominant
// emotion.
func (e *EmotionAnalyzer) AnalyzeArticles(ctx context.Context, articles []models.AnnotatedArticle, fields ...string) ([]models.AnnotatedArticle, error) {
	fields = normalizeFields(fields)
	e.logger.Info("[EmotionAnalyzer] Analyzing emotions in articles",
		slog.Int("articles", len(articles)),
		slog.Any("fields", fields))

	analyzed := make([]models.AnnotatedArticle, 0, len(articles))
	for i, article := range articles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		analysis := models.NewEmotionAnalysis()
		for _, field := range fields {
			text := article.Article.Text(field)
			if isBlank(text) {
				continue
			}
			scores, err := e.AnalyzeText(ctx, text)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				e.logger.Warn("[EmotionAnalyzer] Failed to analyze field",
					slog.Int("article", i),
					slog.String("field", field),
					slog.String("error", err.Error()))
			}
			analysis.Fields.Set(field, scores)
		}
		if analysis.Fields.Len() > 0 {
			analysis.Overall = OverallEmotion(analysis.Results())
		}

		annotated := article.Clone()
		annotated.Emotion = analysis
		analyzed = append(analyzed, annotated)

		if (i+1)%e.progressEvery == 0 || i+1 == len(articles) {
			e.logger.Debug("[EmotionAnalyzer] Progress",
				slog.Int("done", i+1),
				slog.Int("total", len(articles)))
		}
	}
	return analyzed, nil
}

// emotionScores keeps the predictions that name one of the fixed categories.
// Unknown labels are dropped; output with no known label is malformed.
func emotionScores(predictions []models.Prediction) (models.EmotionScores, *Error) {
	scores := make(models.EmotionScores, len(models.Emotions))
	for _, p := range predictions {
		emotion, ok := models.ParseEmotion(p.Label)
		if !ok {
			continue
		}
		if !validScore(p.Score) {
			return nil, malformed("score %v for %s out of range", p.Score, emotion)
		}
		scores[emotion] = round(p.Score, 4)
	}
	if len(scores) == 0 {
		return nil, malformed("no known emotion labels in %d predictions", len(predictions))
	}
	return scores, nil
}
