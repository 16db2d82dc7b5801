// Package backend builds the sentiment and emotion classifiers for the
// configured backend, layering the cache and metrics on top when enabled.
package backend

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spacesedan/newsmood/config"
	"github.com/spacesedan/newsmood/internal/analysis"
	"github.com/spacesedan/newsmood/internal/clients"
	"github.com/spacesedan/newsmood/internal/clients/hugot_client"
	"github.com/spacesedan/newsmood/internal/monitoring"
	"github.com/spacesedan/newsmood/internal/sentiment"
)

const vaderModel = "vader"

// Options carries the optional layers. A nil Cache or Metrics disables that
// layer; a nil Logger means slog.Default().
type Options struct {
	Cache   clients.Cache
	Metrics *monitoring.Metrics
	Logger  *slog.Logger
}

type Classifiers struct {
	Sentiment      analysis.Classifier
	Emotion        analysis.Classifier
	SentimentModel string
	EmotionModel   string
	closers        []func() error
}

func (c *Classifiers) Close() error {
	var errs []error
	for _, closeFn := range c.closers {
		errs = append(errs, closeFn())
	}
	return errors.Join(errs...)
}

// newHugot is swapped out in tests; the real constructor downloads models.
var newHugot = func(opts hugot_client.HugotOptions) (analysis.Classifier, func() error, error) {
	client, err := hugot_client.NewHugotClient(opts)
	if err != nil {
		return nil, nil, err
	}
	return client, client.Close, nil
}

// New builds both classifiers. The vader backend only covers sentiment, so
// emotion is served by the local hugot model in that case.
func New(cfg *config.Config, opts Options) (*Classifiers, error) {
	c := &Classifiers{}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sentimentBackend := cfg.ClassifierBackend
	emotionBackend := cfg.ClassifierBackend
	if emotionBackend == config.BackendVader {
		emotionBackend = config.BackendHugot
		logger.Info("[Backend] VADER has no emotion model, using hugot for emotions")
	}

	var err error
	c.Sentiment, c.SentimentModel, err = c.build(cfg, sentimentBackend, cfg.SentimentModel, false)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("[Backend] sentiment classifier: %w", err)
	}
	c.Emotion, c.EmotionModel, err = c.build(cfg, emotionBackend, cfg.EmotionModel, true)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("[Backend] emotion classifier: %w", err)
	}

	c.Sentiment = wrap(c.Sentiment, opts, sentimentBackend+":"+c.SentimentModel, cfg)
	c.Emotion = wrap(c.Emotion, opts, emotionBackend+":"+c.EmotionModel, cfg)

	logger.Info("[Backend] Classifiers ready",
		slog.String("sentiment", sentimentBackend+":"+c.SentimentModel),
		slog.String("emotion", emotionBackend+":"+c.EmotionModel),
		slog.Bool("cache", opts.Cache != nil),
		slog.Bool("metrics", opts.Metrics != nil))
	return c, nil
}

func (c *Classifiers) build(cfg *config.Config, backend, model string, emotion bool) (analysis.Classifier, string, error) {
	switch backend {
	case config.BackendHugot:
		clf, closeFn, err := newHugot(hugot_client.HugotOptions{
			Model:      model,
			ModelDir:   cfg.ModelDir,
			MultiLabel: emotion,
		})
		if err != nil {
			return nil, "", err
		}
		c.closers = append(c.closers, closeFn)
		return clf, model, nil

	case config.BackendHuggingFace:
		topK := 0
		if emotion {
			topK = len(clients.EmotionLabels)
		}
		return clients.NewHuggingFaceClient(clients.HuggingFaceOptions{
			Token:       cfg.HFAPIToken,
			Model:       model,
			TopK:        topK,
			MaxAttempts: cfg.HFMaxAttempts,
		}), model, nil

	case config.BackendOpenAI:
		labels := clients.SentimentLabels
		if emotion {
			labels = clients.EmotionLabels
		}
		return clients.NewOpenAIClient(clients.OpenAIOptions{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
			Labels: labels,
		}), cfg.OpenAIModel, nil

	case config.BackendVader:
		return sentiment.NewVaderClassifier(), vaderModel, nil

	default:
		return nil, "", fmt.Errorf("unknown backend %q", backend)
	}
}

// wrap puts metrics right around the model so they count real model calls,
// and the cache outside that.
func wrap(clf analysis.Classifier, opts Options, key string, cfg *config.Config) analysis.Classifier {
	if opts.Metrics != nil {
		clf = monitoring.NewInstrumentedClassifier(clf, opts.Metrics, key)
	}
	if opts.Cache != nil {
		clf = clients.NewCachedClassifier(clf, opts.Cache, key, cfg.CacheTTL)
	}
	return clf
}
