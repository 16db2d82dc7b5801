package kafka_client

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"

	"github.com/spacesedan/newsmood/internal/clients/kafka_client/utils"
	"github.com/spacesedan/newsmood/internal/models"
)

// transactionalProducer is the part of *kafka.Producer the publisher uses.
type transactionalProducer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	BeginTransaction() error
	CommitTransaction(ctx context.Context) error
	AbortTransaction(ctx context.Context) error
	Flush(timeoutMs int) int
	Close()
}

// ResultPublisher writes annotated articles and the run's statistics to
// Kafka in a single transaction, so consumers see all of a run or none.
type ResultPublisher struct {
	producer transactionalProducer
	cfg      KafkaConfig
}

type runSummary struct {
	RunID               string `json:"run_id"`
	TotalArticles       int    `json:"total_articles"`
	SentimentStatistics any    `json:"sentiment_statistics"`
	EmotionStatistics   any    `json:"emotion_statistics"`
}

func NewResultPublisher(cfg KafkaConfig) (*ResultPublisher, error) {
	cfg = cfg.WithDefaults()
	slog.Info("[KafkaClient] Initializing Kafka Producer...", slog.String("broker", cfg.Broker))

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":                     cfg.Broker,
		"security.protocol":                     "PLAINTEXT",
		"api.version.request":                   "true",
		"enable.idempotence":                    true,
		"acks":                                  "all",
		"max.in.flight.requests.per.connection": 1,
		"transactional.id":                      cfg.TransactionalID,
	})
	if err != nil {
		return nil, fmt.Errorf("[KafkaClient] Failed to create producer: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := p.InitTransactions(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("[KafkaClient] Failed to init transactions: %w", err)
	}

	slog.Info("[KafkaClient] Kafka Producer initialized successfully")
	return newResultPublisher(p, cfg), nil
}

func newResultPublisher(p transactionalProducer, cfg KafkaConfig) *ResultPublisher {
	return &ResultPublisher{producer: p, cfg: cfg.WithDefaults()}
}

// PublishReport sends one message per article to the results topic, keyed
// by the article URL, and one summary message to the summary topic.
func (p *ResultPublisher) PublishReport(ctx context.Context, runID string, report models.Report) error {
	if err := p.producer.BeginTransaction(); err != nil {
		return fmt.Errorf("[KafkaClient] failed to begin transaction: %w", err)
	}

	messages, err := p.messages(runID, report)
	if err != nil {
		return p.abort(ctx, err)
	}

	for _, msg := range messages {
		if err := p.produce(msg); err != nil {
			return p.abort(ctx, err)
		}
	}

	var commitErr error
	for i := 0; i < MAX_RETRIES; i++ {
		commitErr = p.producer.CommitTransaction(ctx)
		if commitErr == nil {
			break
		}
		slog.Warn("[KafkaClient] Failed to commit transaction, retrying...",
			slog.Int("attempt", i+1),
			slog.String("error", commitErr.Error()))
	}
	if commitErr != nil {
		return p.abort(ctx, fmt.Errorf("[KafkaClient] failed to commit transaction after %d retries: %w", MAX_RETRIES, commitErr))
	}

	slog.Info("[KafkaClient] Published analysis results to Kafka transactionally",
		slog.String("run_id", runID),
		slog.String("topic", p.cfg.ResultsTopic),
		slog.Int("articles", len(report.Articles)))
	return nil
}

func (p *ResultPublisher) messages(runID string, report models.Report) ([]*kafka.Message, error) {
	messages := make([]*kafka.Message, 0, len(report.Articles)+1)
	for i, article := range report.Articles {
		value, err := utils.SerializeToJSON(article)
		if err != nil {
			return nil, fmt.Errorf("[KafkaClient] serialize article %d: %w", i, err)
		}
		key := article.Article.Text("url")
		if key == "" {
			key = runID + ":" + strconv.Itoa(i)
		}
		messages = append(messages, &kafka.Message{
			TopicPartition: kafka.TopicPartition{Topic: &p.cfg.ResultsTopic, Partition: kafka.PartitionAny},
			Key:            []byte(key),
			Value:          value,
			Headers:        utils.Headers("run_id", runID, "article_index", strconv.Itoa(i)),
		})
	}

	summary, err := utils.SerializeToJSON(runSummary{
		RunID:               runID,
		TotalArticles:       report.TotalArticles,
		SentimentStatistics: models.StatsOrEmpty(report.SentimentStatistics),
		EmotionStatistics:   models.StatsOrEmpty(report.EmotionStatistics),
	})
	if err != nil {
		return nil, fmt.Errorf("[KafkaClient] serialize summary: %w", err)
	}
	messages = append(messages, &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &p.cfg.SummaryTopic, Partition: kafka.PartitionAny},
		Key:            []byte(runID),
		Value:          summary,
		Headers:        utils.Headers("run_id", runID),
	})
	return messages, nil
}

func (p *ResultPublisher) produce(msg *kafka.Message) error {
	var err error
	for i := 0; i < MAX_RETRIES; i++ {
		if err = p.producer.Produce(msg, nil); err == nil {
			return nil
		}
		slog.Warn("[KafkaClient] Failed to produce message, retrying...",
			slog.Int("attempt", i+1),
			slog.String("error", err.Error()))
	}
	return fmt.Errorf("[KafkaClient] produce to %s: %w", *msg.TopicPartition.Topic, err)
}

func (p *ResultPublisher) abort(ctx context.Context, cause error) error {
	if abortErr := p.producer.AbortTransaction(ctx); abortErr != nil {
		return fmt.Errorf("[KafkaClient] failed to abort transaction: %w (after: %w)", abortErr, cause)
	}
	return cause
}

func (p *ResultPublisher) Close() {
	slog.Info("[KafkaClient] Flushing Kafka producer before shutdown...")
	if remaining := p.producer.Flush(int(FLUSH_TIMEOUT.Milliseconds())); remaining > 0 {
		slog.Warn("[KafkaClient] Not all messages were delivered before shutdown",
			slog.Int("remaining", remaining))
	}
	p.producer.Close()
	slog.Info("[KafkaClient] Kafka producer shut down")
}
