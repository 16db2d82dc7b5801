package config

import (
	"errors"
	"fmt"
	"time"
)

const (
	BackendHugot       = "hugot"
	BackendHuggingFace = "huggingface"
	BackendOpenAI      = "openai"
	BackendVader       = "vader"
)

const (
	DefaultSentimentModel = "distilbert/distilbert-base-uncased-finetuned-sst-2-english"
	DefaultEmotionModel   = "j-hartmann/emotion-english-distilroberta-base"
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultCacheTTL       = 24 * time.Hour
	DefaultBatchSize      = 8
)

// Config is the runtime configuration shared by the commands. It is read from
// the environment once at startup.
type Config struct {
	NewsAPIKey string

	ClassifierBackend string
	SentimentModel    string
	EmotionModel      string
	ModelDir          string

	HFAPIToken    string
	HFMaxAttempts int

	OpenAIAPIKey string
	OpenAIModel  string

	ValkeyAddress  string
	ValkeyPassword string
	ValkeyTLS      bool
	CacheTTL       time.Duration

	KafkaBroker       string
	KafkaResultsTopic string

	RedditClientID     string
	RedditClientSecret string

	AnalysisFields []string
	BatchSize      int

	LogLevel    string
	LogDir      string
	MetricsFile string
}

// Load reads Config from the environment. Call LoadEnv first to pull in a
// .env file.
func Load() (*Config, error) {
	cfg := &Config{
		NewsAPIKey:         getEnv("NEWS_API_KEY", ""),
		ClassifierBackend:  getEnv("CLASSIFIER_BACKEND", BackendHugot),
		SentimentModel:     getEnv("SENTIMENT_MODEL", DefaultSentimentModel),
		EmotionModel:       getEnv("EMOTION_MODEL", DefaultEmotionModel),
		ModelDir:           getEnv("MODEL_DIR", "./models"),
		HFAPIToken:         getEnv("HF_API_TOKEN", ""),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:        getEnv("OPENAI_MODEL", DefaultOpenAIModel),
		ValkeyAddress:      getEnv("VALKEY_INIT_ADDRESS", ""),
		ValkeyPassword:     getEnv("VALKEY_PASSWORD", ""),
		KafkaBroker:        getEnv("KAFKA_BROKER", ""),
		KafkaResultsTopic:  getEnv("KAFKA_RESULTS_TOPIC", "newsmood.analysis"),
		RedditClientID:     getEnv("REDDIT_CLIENT_ID", ""),
		RedditClientSecret: getEnv("REDDIT_CLIENT_SECRET", ""),
		AnalysisFields:     getEnvList("ANALYSIS_FIELDS", []string{"title", "description"}),
		LogLevel:           getEnv("LOG_LEVEL", "INFO"),
		LogDir:             getEnv("LOG_DIR", ""),
		MetricsFile:        getEnv("METRICS_FILE", ""),
	}

	var errs []error
	var err error
	if cfg.HFMaxAttempts, err = getEnvInt("HF_MAX_ATTEMPTS", 1); err != nil {
		errs = append(errs, err)
	}
	if cfg.BatchSize, err = getEnvInt("BATCH_SIZE", DefaultBatchSize); err != nil {
		errs = append(errs, err)
	}
	if cfg.ValkeyTLS, err = getEnvBool("VALKEY_TLS", false); err != nil {
		errs = append(errs, err)
	}
	if cfg.CacheTTL, err = getEnvDuration("CACHE_TTL", DefaultCacheTTL); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("[Config] invalid environment: %w", errors.Join(errs...))
	}
	return cfg, nil
}

// Validate checks the settings needed by the selected classifier backend.
func (c *Config) Validate() error {
	var errs []error
	switch c.ClassifierBackend {
	case BackendHugot:
		if c.ModelDir == "" {
			errs = append(errs, errors.New("MODEL_DIR is required for the hugot backend"))
		}
	case BackendHuggingFace:
		if c.HFAPIToken == "" {
			errs = append(errs, errors.New("HF_API_TOKEN is required for the huggingface backend"))
		}
	case BackendOpenAI:
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai backend"))
		}
	case BackendVader:
	default:
		errs = append(errs, fmt.Errorf("unknown CLASSIFIER_BACKEND %q", c.ClassifierBackend))
	}
	if c.HFMaxAttempts < 1 {
		errs = append(errs, errors.New("HF_MAX_ATTEMPTS must be at least 1"))
	}
	if c.BatchSize < 1 {
		errs = append(errs, errors.New("BATCH_SIZE must be at least 1"))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, errors.New("CACHE_TTL must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("[Config] %w", errors.Join(errs...))
	}
	return nil
}

// CacheEnabled reports whether a Valkey address is configured.
func (c *Config) CacheEnabled() bool { return c.ValkeyAddress != "" }

// PublishEnabled reports whether a Kafka broker is configured.
func (c *Config) PublishEnabled() bool { return c.KafkaBroker != "" }
