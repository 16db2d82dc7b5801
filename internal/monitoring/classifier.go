package monitoring

import (
	"context"
	"errors"
	"time"

	"github.com/spacesedan/newsmood/internal/analysis"
	"github.com/spacesedan/newsmood/internal/models"
)

// InstrumentedClassifier records the outcome, latency and size of every call
// made to the wrapped classifier.
type InstrumentedClassifier struct {
	inner   analysis.Classifier
	metrics *Metrics
	model   string
}

func NewInstrumentedClassifier(inner analysis.Classifier, metrics *Metrics, model string) *InstrumentedClassifier {
	return &InstrumentedClassifier{inner: inner, metrics: metrics, model: model}
}

func (c *InstrumentedClassifier) Classify(ctx context.Context, text string) ([]models.Prediction, error) {
	start := time.Now()
	predictions, err := c.inner.Classify(ctx, text)
	c.observe(start, 1, err)
	return predictions, err
}

// ClassifyBatch uses the wrapped classifier's batch call when it has one and
// falls back to one call per text otherwise.
func (c *InstrumentedClassifier) ClassifyBatch(ctx context.Context, texts []string) ([][]models.Prediction, error) {
	batch, ok := c.inner.(analysis.BatchClassifier)
	if !ok {
		out := make([][]models.Prediction, 0, len(texts))
		for _, text := range texts {
			predictions, err := c.Classify(ctx, text)
			if err != nil {
				return nil, err
			}
			out = append(out, predictions)
		}
		return out, nil
	}

	start := time.Now()
	out, err := batch.ClassifyBatch(ctx, texts)
	c.observe(start, len(texts), err)
	return out, err
}

func (c *InstrumentedClassifier) observe(start time.Time, size int, err error) {
	c.metrics.ClassifierDuration.WithLabelValues(c.model).Observe(time.Since(start).Seconds())
	c.metrics.ClassifierBatchSize.WithLabelValues(c.model).Observe(float64(size))
	c.metrics.ClassifierRequests.WithLabelValues(c.model, Outcome(err)).Inc()
}

// Outcome names the result of a classifier call for the outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, analysis.ErrMalformedOutput):
		return analysis.KindMalformedOutput.String()
	case errors.Is(err, analysis.ErrInputRejected):
		return analysis.KindInputRejected.String()
	default:
		return analysis.KindUnavailable.String()
	}
}
