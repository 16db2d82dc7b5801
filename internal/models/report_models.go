package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Prediction is one label/score pair returned by a text classifier.
type Prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Report is the document written at the end of an analysis run. When
// WithStatistics is set, both statistics objects are written; a nil
// statistics pointer is written as {}.
type Report struct {
	TotalArticles       int
	WithStatistics      bool
	SentimentStatistics *SentimentStats
	EmotionStatistics   *EmotionStats
	Articles            []AnnotatedArticle
}

func NewReport(articles []AnnotatedArticle) Report {
	if articles == nil {
		articles = []AnnotatedArticle{}
	}
	return Report{TotalArticles: len(articles), Articles: articles}
}

type reportWire struct {
	TotalArticles       int                `json:"total_articles"`
	SentimentStatistics any                `json:"sentiment_statistics,omitempty"`
	EmotionStatistics   any                `json:"emotion_statistics,omitempty"`
	Articles            []AnnotatedArticle `json:"articles"`
}

func (r Report) MarshalJSON() ([]byte, error) {
	wire := reportWire{TotalArticles: r.TotalArticles, Articles: r.Articles}
	if wire.Articles == nil {
		wire.Articles = []AnnotatedArticle{}
	}
	if r.WithStatistics {
		wire.SentimentStatistics = StatsOrEmpty(r.SentimentStatistics)
		wire.EmotionStatistics = StatsOrEmpty(r.EmotionStatistics)
	}
	return marshalJSON(wire)
}

func (r *Report) UnmarshalJSON(data []byte) error {
	var wire struct {
		TotalArticles       int                `json:"total_articles"`
		SentimentStatistics json.RawMessage    `json:"sentiment_statistics"`
		EmotionStatistics   json.RawMessage    `json:"emotion_statistics"`
		Articles            []AnnotatedArticle `json:"articles"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*r = Report{TotalArticles: wire.TotalArticles, Articles: wire.Articles}
	if wire.SentimentStatistics != nil || wire.EmotionStatistics != nil {
		r.WithStatistics = true
	}
	if !isEmptyObject(wire.SentimentStatistics) {
		r.SentimentStatistics = &SentimentStats{}
		if err := json.Unmarshal(wire.SentimentStatistics, r.SentimentStatistics); err != nil {
			return fmt.Errorf("decode sentiment_statistics: %w", err)
		}
	}
	if !isEmptyObject(wire.EmotionStatistics) {
		r.EmotionStatistics = &EmotionStats{}
		if err := json.Unmarshal(wire.EmotionStatistics, r.EmotionStatistics); err != nil {
			return fmt.Errorf("decode emotion_statistics: %w", err)
		}
	}
	return nil
}

// StatsOrEmpty renders missing statistics as {} rather than null.
func StatsOrEmpty[T any](stats *T) any {
	if stats == nil {
		return struct{}{}
	}
	return stats
}

func isEmptyObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return true
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return false
	}
	return len(m) == 0
}
