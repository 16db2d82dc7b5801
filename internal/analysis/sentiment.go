package analysis

import (
	"context"
	"log/slog"
	"strings"

	"github.com/spacesedan/newsmood/internal/models"
	"github.com/spacesedan/newsmood/internal/utils"
)

// SentimentAnalyzer labels text as POSITIVE / NEGATIVE using a binary
// sentiment classifier. Calls are sequential; the analyzer holds no state
// between calls.
type SentimentAnalyzer struct {
	classifier Classifier
	settings
}

func NewSentimentAnalyzer(classifier Classifier, opts ...Option) *SentimentAnalyzer {
	return &SentimentAnalyzer{classifier: classifier, settings: newSettings(opts)}
}

// AnalyzeText classifies a single text. Blank text yields NEUTRAL/0 without
// calling the classifier. On a classifier failure the ERROR sentinel is
// returned together with an *Error describing what went wrong.
func (s *SentimentAnalyzer) AnalyzeText(ctx context.Context, text string) (models.SentimentResult, error) {
	if isBlank(text) {
		return models.NeutralSentiment(), nil
	}

	predictions, err := s.classifier.Classify(ctx, truncate(text, s.maxLength))
	if err != nil {
		return models.ErrorSentiment(), classifyError(err)
	}

	result, aerr := topSentiment(predictions)
	if aerr != nil {
		return models.ErrorSentiment(), aerr
	}
	return result, nil
}

// AnalyzeBatch classifies independent texts in chunks of the configured batch
// size. A chunk whose classifier call fails is filled with the ERROR sentinel
// and processing moves on to the next chunk. The only error returned is the
// context's.
func (s *SentimentAnalyzer) AnalyzeBatch(ctx context.Context, texts []string) ([]models.SentimentResult, error) {
	s.logger.Info("[SentimentAnalyzer] Analyzing texts",
		slog.Int("count", len(texts)),
		slog.Int("batch_size", s.batchSize))

	results := make([]models.SentimentResult, 0, len(texts))
	for i, chunk := range utils.Chunks(texts, s.batchSize) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		chunkResults, err := s.analyzeChunk(ctx, chunk)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("[SentimentAnalyzer] Batch failed, marking texts as ERROR",
				slog.Int("batch", i),
				slog.Int("size", len(chunk)),
				slog.String("error", err.Error()))
			chunkResults = make([]models.SentimentResult, len(chunk))
			for j := range chunkResults {
				chunkResults[j] = models.ErrorSentiment()
			}
		}
		results = append(results, chunkResults...)
	}
	return results, nil
}

func (s *SentimentAnalyzer) analyzeChunk(ctx context.Context, chunk []string) ([]models.SentimentResult, error) {
	results := make([]models.SentimentResult, len(chunk))
	pending := make([]string, 0, len(chunk))
	positions := make([]int, 0, len(chunk))
	for i, text := range chunk {
		if isBlank(text) {
			results[i] = models.NeutralSentiment()
			continue
		}
		pending = append(pending, truncate(text, s.maxLength))
		positions = append(positions, i)
	}
	if len(pending) == 0 {
		return results, nil
	}

	batch, ok := s.classifier.(BatchClassifier)
	if !ok {
		for j, text := range pending {
			predictions, err := s.classifier.Classify(ctx, text)
			if err != nil {
				return nil, classifyError(err)
			}
			result, aerr := topSentiment(predictions)
			if aerr != nil {
				return nil, aerr
			}
			results[positions[j]] = result
		}
		return results, nil
	}

	outputs, err := batch.ClassifyBatch(ctx, pending)
	if err != nil {
		return nil, classifyError(err)
	}
	if len(outputs) != len(pending) {
		return nil, malformed("got %d results for %d texts", len(outputs), len(pending))
	}
	for j, predictions := range outputs {
		result, aerr := topSentiment(predictions)
		if aerr != nil {
			return nil, aerr
		}
		results[positions[j]] = result
	}
	return results, nil
}

// AnalyzeArticles adds a sentiment_analysis annotation to a copy of every
// article. Each requested field with non-blank text is classified; the
// overall verdict is added when at least one field was. Classifier failures
// are logged and stored as ERROR; only context cancellation aborts the run.
func (s *SentimentAnalyzer) AnalyzeArticles(ctx context.Context, articles []models.AnnotatedArticle, fields ...string) ([]models.AnnotatedArticle, error) {
	fields = normalizeFields(fields)
	s.logger.Info("[SentimentAnalyzer] Analyzing sentiment in articles",
		slog.Int("articles", len(articles)),
		slog.Any("fields", fields))

	analyzed := make([]models.AnnotatedArticle, 0, len(articles))
	for i, article := range articles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		analysis := models.NewSentimentAnalysis()
		for _, field := range fields {
			text := article.Article.Text(field)
			if isBlank(text) {
				continue
			}
			result, err := s.AnalyzeText(ctx, text)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				s.logger.Warn("[SentimentAnalyzer] Failed to analyze field",
					slog.Int("article", i),
					slog.String("field", field),
					slog.String("error", err.Error()))
			}
			analysis.Fields.Set(field, result)
		}
		analysis.Overall = OverallSentiment(analysis.Results())

		annotated := article.Clone()
		annotated.Sentiment = analysis
		analyzed = append(analyzed, annotated)

		if (i+1)%s.progressEvery == 0 || i+1 == len(articles) {
			s.logger.Debug("[SentimentAnalyzer] Progress",
				slog.Int("done", i+1),
				slog.Int("total", len(articles)))
		}
	}
	return analyzed, nil
}

// topSentiment keeps the highest scoring prediction, upper-casing its label.
func topSentiment(predictions []models.Prediction) (models.SentimentResult, *Error) {
	if len(predictions) == 0 {
		return models.SentimentResult{}, malformed("no predictions")
	}

	best := predictions[0]
	for _, p := range predictions[1:] {
		if p.Score > best.Score {
			best = p
		}
	}

	label := strings.ToUpper(strings.TrimSpace(best.Label))
	if label == "" {
		return models.SentimentResult{}, malformed("empty label")
	}
	if !validScore(best.Score) {
		return models.SentimentResult{}, malformed("score %v out of range", best.Score)
	}
	return models.SentimentResult{Label: label, Score: round(best.Score, 4)}, nil
}
