// Package monitoring records classifier and run metrics on a private
// Prometheus registry. Batch runs have no scrape endpoint, so the registry is
// written to a node-exporter textfile when the run ends.
package monitoring

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/spacesedan/newsmood/internal/models"
)

const namespace = "newsmood"

type Metrics struct {
	registry *prometheus.Registry

	ClassifierRequests  *prometheus.CounterVec
	ClassifierDuration  *prometheus.HistogramVec
	ClassifierBatchSize *prometheus.HistogramVec
	ArticlesAnalyzed    prometheus.Counter
	OverallSentiment    *prometheus.CounterVec
	DominantEmotion     *prometheus.CounterVec
	LastRunTimestamp    prometheus.Gauge
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ClassifierRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "requests_total",
			Help:      "Classifier calls by model and outcome.",
		}, []string{"model", "outcome"}),
		ClassifierDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "request_duration_seconds",
			Help:      "Classifier call latency.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
		}, []string{"model"}),
		ClassifierBatchSize: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "batch_size",
			Help:      "Texts per classifier call.",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64},
		}, []string{"model"}),
		ArticlesAnalyzed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_analyzed_total",
			Help:      "Articles written to analysis reports.",
		}),
		OverallSentiment: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "overall_sentiment_total",
			Help:      "Articles by overall sentiment label.",
		}, []string{"label"}),
		DominantEmotion: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dominant_emotion_total",
			Help:      "Articles by dominant emotion.",
		}, []string{"emotion"}),
		LastRunTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last report was recorded.",
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveReport counts the report's articles by overall sentiment and
// dominant emotion. Articles without an overall result are not labelled.
func (m *Metrics) ObserveReport(report models.Report) {
	for _, article := range report.Articles {
		m.ArticlesAnalyzed.Inc()
		if article.Sentiment != nil && article.Sentiment.Overall != nil {
			m.OverallSentiment.WithLabelValues(article.Sentiment.Overall.Label).Inc()
		}
		if article.Emotion != nil && article.Emotion.Overall != nil && article.Emotion.Overall.DominantEmotion != "" {
			m.DominantEmotion.WithLabelValues(string(article.Emotion.Overall.DominantEmotion)).Inc()
		}
	}
	m.LastRunTimestamp.SetToCurrentTime()
}

// WriteToTextfile writes every registered metric to path in the text
// exposition format.
func (m *Metrics) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("[Metrics] write %s: %w", path, err)
	}
	return nil
}
