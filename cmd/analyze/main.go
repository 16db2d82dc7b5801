package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/spacesedan/newsmood/config"
	"github.com/spacesedan/newsmood/internal/analysis"
	"github.com/spacesedan/newsmood/internal/backend"
	"github.com/spacesedan/newsmood/internal/clients"
	"github.com/spacesedan/newsmood/internal/clients/kafka_client"
	"github.com/spacesedan/newsmood/internal/logging"
	"github.com/spacesedan/newsmood/internal/models"
	"github.com/spacesedan/newsmood/internal/monitoring"
	"github.com/spacesedan/newsmood/internal/report"
)

const sampleArticles = 3

type flags struct {
	env       string
	input     string
	outputDir string
	fields    string
	backend   string
	noPublish bool
}

func parseFlags() flags {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	var f flags
	flag.StringVar(&f.env, "env", env, "environment whose config/envs/.env.<env> file is loaded")
	flag.StringVar(&f.input, "input", "data/raw/news/test_articles.json", "articles file written by ingest")
	flag.StringVar(&f.outputDir, "out", "data/processed/combined_analysis", "directory for the report and summary")
	flag.StringVar(&f.fields, "fields", "", "comma separated text fields to analyze (overrides ANALYSIS_FIELDS)")
	flag.StringVar(&f.backend, "backend", "", "classifier backend: hugot, huggingface, openai or vader (overrides CLASSIFIER_BACKEND)")
	flag.BoolVar(&f.noPublish, "no-publish", false, "skip publishing results to Kafka")
	flag.Parse()
	return f
}

func main() {
	f := parseFlags()

	if err := config.LoadEnv(f.env); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if f.backend != "" {
		cfg.ClassifierBackend = f.backend
	}
	if f.fields != "" {
		cfg.AnalysisFields = splitList(f.fields)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, closeLog, err := logging.NewLogger(logging.Options{
		Name:  "analyze",
		Level: logging.ParseLevel(cfg.LogLevel),
		Dir:   cfg.LogDir,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closeLog()

	runID := uuid.NewString()
	logger = logger.With(slog.String("run_id", runID))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, f, runID, logger); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("[Main] Analysis interrupted, no report written")
		} else {
			logger.Error("[Main] Analysis failed", slog.String("error", err.Error()))
		}
		stop()
		_ = closeLog()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, f flags, runID string, logger *slog.Logger) error {
	articles, err := report.LoadArticles(f.input)
	if err != nil {
		return err
	}
	logger.Info("[Main] Loaded articles",
		slog.String("input", f.input),
		slog.Int("articles", len(articles)))

	opts := backend.Options{Logger: logger}
	if cfg.CacheEnabled() {
		cache, err := clients.NewValkeyClient(clients.ValkeyOptions{
			Address:  cfg.ValkeyAddress,
			Password: cfg.ValkeyPassword,
			TLS:      cfg.ValkeyTLS,
		})
		if err != nil {
			logger.Warn("[Main] Valkey unavailable, running without cache", slog.String("error", err.Error()))
		} else {
			defer cache.Close()
			opts.Cache = cache
		}
	}
	if cfg.MetricsFile != "" {
		opts.Metrics = monitoring.NewMetrics()
	}

	classifiers, err := backend.New(cfg, opts)
	if err != nil {
		return err
	}
	defer classifiers.Close()

	analyzerOpts := []analysis.Option{
		analysis.WithLogger(logger),
		analysis.WithBatchSize(cfg.BatchSize),
	}
	result, err := report.Build(ctx,
		analysis.NewSentimentAnalyzer(classifiers.Sentiment, analyzerOpts...),
		analysis.NewEmotionAnalyzer(classifiers.Emotion, analyzerOpts...),
		articles,
		cfg.AnalysisFields...)
	if err != nil {
		return err
	}

	report.LogSamples(logger, result, sampleArticles)

	reportPath := filepath.Join(f.outputDir, report.ReportFilename)
	if err := report.Save(reportPath, result); err != nil {
		return err
	}
	summaryPath := filepath.Join(f.outputDir, report.SummaryFilename)
	if err := report.WriteSummary(summaryPath, result); err != nil {
		return err
	}
	logger.Info("[Main] Saved reports",
		slog.String("report", reportPath),
		slog.String("summary", summaryPath))
	for _, line := range report.Insights(result) {
		logger.Info("[Main] Key insight", slog.String("insight", line))
	}

	if opts.Metrics != nil {
		opts.Metrics.ObserveReport(result)
		if err := opts.Metrics.WriteToTextfile(cfg.MetricsFile); err != nil {
			logger.Warn("[Main] Failed to write metrics", slog.String("error", err.Error()))
		} else {
			logger.Info("[Main] Wrote metrics textfile", slog.String("path", cfg.MetricsFile))
		}
	}

	if cfg.PublishEnabled() && !f.noPublish {
		if err := publish(ctx, cfg, runID, result); err != nil {
			return err
		}
	}

	logger.Info("[Main] Analysis complete",
		slog.String("report", reportPath),
		slog.Int("articles", result.TotalArticles))
	return nil
}

func publish(ctx context.Context, cfg *config.Config, runID string, result models.Report) error {
	publisher, err := kafka_client.NewResultPublisher(kafka_client.KafkaConfig{
		Broker:       cfg.KafkaBroker,
		ResultsTopic: cfg.KafkaResultsTopic,
	})
	if err != nil {
		return err
	}
	defer publisher.Close()
	return publisher.PublishReport(ctx, runID, result)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
