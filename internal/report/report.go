// Package report loads article batches, runs both analyzers over them and
// writes the combined JSON report and its plain-text summary.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spacesedan/newsmood/internal/analysis"
	"github.com/spacesedan/newsmood/internal/models"
	"github.com/spacesedan/newsmood/internal/utils"
)

const (
	ReportFilename  = "sentiment_emotion_analysis.json"
	SummaryFilename = "analysis_summary.txt"
)

var ErrNoAnalyzer = errors.New("report: sentiment and emotion analyzers are required")

// LoadArticles reads a batch saved by the ingestor (an object with an
// "articles" array) or a bare JSON array of articles. Any other JSON shape
// yields no articles; entries that are not objects are skipped.
func LoadArticles(path string) ([]models.Article, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read articles: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	var items []any
	switch v := doc.(type) {
	case []any:
		items = v
	case map[string]any:
		items, _ = v["articles"].([]any)
	}

	articles := make([]models.Article, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			articles = append(articles, models.Article(obj))
		}
	}
	return articles, nil
}

// Build runs sentiment then emotion analysis over articles and returns the
// combined report with both corpus statistics. Only cancellation of ctx
// aborts it; classifier failures end up as sentinel results.
func Build(ctx context.Context, sentiment *analysis.SentimentAnalyzer, emotion *analysis.EmotionAnalyzer, articles []models.Article, fields ...string) (models.Report, error) {
	if sentiment == nil || emotion == nil {
		return models.Report{}, ErrNoAnalyzer
	}

	annotated, err := sentiment.AnalyzeArticles(ctx, models.Annotate(articles), fields...)
	if err != nil {
		return models.Report{}, err
	}
	annotated, err = emotion.AnalyzeArticles(ctx, annotated, fields...)
	if err != nil {
		return models.Report{}, err
	}
	return WithStatistics(models.NewReport(annotated)), nil
}

// WithStatistics recomputes both statistics objects from the report's
// articles.
func WithStatistics(r models.Report) models.Report {
	r.TotalArticles = len(r.Articles)
	r.WithStatistics = true
	r.SentimentStatistics = analysis.SentimentStatistics(r.Articles)
	r.EmotionStatistics = analysis.EmotionStatistics(r.Articles)
	return r
}

// Save writes the report to path atomically: a failed run never leaves a
// partial report behind.
func Save(path string, r models.Report) error {
	if err := utils.WriteJSONAtomic(path, r); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func Load(path string) (models.Report, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return models.Report{}, fmt.Errorf("read report: %w", err)
	}
	var r models.Report
	if err := json.Unmarshal(raw, &r); err != nil {
		return models.Report{}, fmt.Errorf("parse report %s: %w", path, err)
	}
	return r, nil
}
