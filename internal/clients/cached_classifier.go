package clients

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/spacesedan/newsmood/internal/analysis"
	"github.com/spacesedan/newsmood/internal/models"
)

const CACHE_KEY_PREFIX = "newsmood:clf:"

// Cache is the key/value store behind CachedClassifier. ValkeyClient
// implements it.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedClassifier memoises successful predictions per model and text.
// Failures are never cached, and cache errors fall through to the wrapped
// classifier, so results are the same with or without the cache.
type CachedClassifier struct {
	inner analysis.Classifier
	cache Cache
	model string
	ttl   time.Duration
}

func NewCachedClassifier(inner analysis.Classifier, cache Cache, model string, ttl time.Duration) *CachedClassifier {
	return &CachedClassifier{inner: inner, cache: cache, model: model, ttl: ttl}
}

func (c *CachedClassifier) Classify(ctx context.Context, text string) ([]models.Prediction, error) {
	key := c.key(text)
	if predictions, ok := c.lookup(ctx, key); ok {
		return predictions, nil
	}

	predictions, err := c.inner.Classify(ctx, text)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, predictions)
	return predictions, nil
}

// ClassifyBatch serves hits from the cache and sends only the misses to the
// wrapped classifier, in one batch call when it supports that.
func (c *CachedClassifier) ClassifyBatch(ctx context.Context, texts []string) ([][]models.Prediction, error) {
	out := make([][]models.Prediction, len(texts))
	keys := make([]string, len(texts))
	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		keys[i] = c.key(text)
		if predictions, ok := c.lookup(ctx, keys[i]); ok {
			out[i] = predictions
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	var fresh [][]models.Prediction
	if batch, ok := c.inner.(analysis.BatchClassifier); ok {
		var err error
		fresh, err = batch.ClassifyBatch(ctx, missTexts)
		if err != nil {
			return nil, err
		}
	} else {
		fresh = make([][]models.Prediction, 0, len(missTexts))
		for _, text := range missTexts {
			predictions, err := c.inner.Classify(ctx, text)
			if err != nil {
				return nil, err
			}
			fresh = append(fresh, predictions)
		}
	}
	if len(fresh) != len(missTexts) {
		return nil, fmt.Errorf("[CachedClassifier] %w: got %d results for %d texts", analysis.ErrMalformedOutput, len(fresh), len(missTexts))
	}

	for j, predictions := range fresh {
		i := missIdx[j]
		out[i] = predictions
		c.store(ctx, keys[i], predictions)
	}
	return out, nil
}

func (c *CachedClassifier) key(text string) string {
	sum := sha256.Sum256([]byte(c.model + "\x00" + text))
	return CACHE_KEY_PREFIX + hex.EncodeToString(sum[:])
}

func (c *CachedClassifier) lookup(ctx context.Context, key string) ([]models.Prediction, bool) {
	raw, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("[CachedClassifier] Cache read failed", slog.String("error", err.Error()))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var predictions []models.Prediction
	if err := json.Unmarshal(raw, &predictions); err != nil || len(predictions) == 0 {
		return nil, false
	}
	return predictions, true
}

func (c *CachedClassifier) store(ctx context.Context, key string, predictions []models.Prediction) {
	if len(predictions) == 0 {
		return
	}
	raw, err := json.Marshal(predictions)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, raw, c.ttl); err != nil {
		slog.Warn("[CachedClassifier] Cache write failed", slog.String("error", err.Error()))
	}
}
