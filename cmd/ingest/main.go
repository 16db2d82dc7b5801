package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/spacesedan/newsmood/config"
	"github.com/spacesedan/newsmood/internal/clients"
	"github.com/spacesedan/newsmood/internal/ingestion"
	"github.com/spacesedan/newsmood/internal/logging"
	"github.com/spacesedan/newsmood/internal/models"
)

const (
	defaultPerTopic = 20
	seenTTL         = 30 * 24 * time.Hour
)

type flags struct {
	env         string
	topics      string
	daysBack    int
	maxPerTopic int
	outputDir   string
	feeds       string
	subreddit   string
	redditQuery string
	redditLimit int
}

func parseFlags() flags {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	var f flags
	flag.StringVar(&f.env, "env", env, "environment whose config/envs/.env.<env> file is loaded")
	flag.StringVar(&f.topics, "topics", strings.Join(ingestion.DefaultTopics, ","), "comma separated NewsAPI queries, empty to skip NewsAPI")
	flag.IntVar(&f.daysBack, "days", ingestion.DefaultDaysBack, "how many days back to search")
	flag.IntVar(&f.maxPerTopic, "max", defaultPerTopic, "maximum articles per topic")
	flag.StringVar(&f.outputDir, "out", ingestion.DefaultDataDir, "directory for saved article batches")
	flag.StringVar(&f.feeds, "feeds", "", "comma separated RSS or Atom feed URLs")
	flag.StringVar(&f.subreddit, "subreddit", "", "subreddit to search, e.g. worldnews")
	flag.StringVar(&f.redditQuery, "reddit-query", "", "search query for -subreddit")
	flag.IntVar(&f.redditLimit, "reddit-limit", clients.REDDIT_MAX_LIMIT, "maximum reddit posts")
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

	logger, closeLog, err := logging.NewLogger(logging.Options{
		Name:  "ingest",
		Level: logging.ParseLevel(cfg.LogLevel),
		Dir:   cfg.LogDir,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closeLog()

	logger = logger.With(slog.String("run_id", uuid.NewString()))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, f, logger); err != nil {
		logger.Error("[Main] Ingestion failed", slog.String("error", err.Error()))
		stop()
		_ = closeLog()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, f flags, logger *slog.Logger) error {
	topics := splitList(f.topics)
	if len(topics) > 0 && cfg.NewsAPIKey == "" {
		return clients.ErrNewsAPIKeyMissing
	}

	opts := []ingestion.Option{
		ingestion.WithDataDir(f.outputDir),
		ingestion.WithLogger(logger),
		ingestion.WithFeeds(clients.NewRSSClient()),
	}

	if cfg.CacheEnabled() {
		seen, err := clients.NewValkeyClient(clients.ValkeyOptions{
			Address:  cfg.ValkeyAddress,
			Password: cfg.ValkeyPassword,
			TLS:      cfg.ValkeyTLS,
		})
		if err != nil {
			logger.Warn("[Main] Valkey unavailable, keeping repeats", slog.String("error", err.Error()))
		} else {
			defer seen.Close()
			opts = append(opts, ingestion.WithSeenStore(seen, seenTTL))
		}
	}

	if f.subreddit != "" {
		reddit, err := clients.NewRedditClient(clients.RedditOptions{
			ClientID:     cfg.RedditClientID,
			ClientSecret: cfg.RedditClientSecret,
		})
		if err != nil {
			return err
		}
		opts = append(opts, ingestion.WithPosts(reddit))
	}

	ingestor := ingestion.NewNewsIngestor(clients.NewNewsAPIClient(cfg.NewsAPIKey), opts...)

	var errs []error
	if len(topics) > 0 {
		results, err := ingestor.FetchMultipleTopics(ctx, topics, f.daysBack, f.maxPerTopic)
		for _, res := range results {
			if res.Err != nil {
				errs = append(errs, fmt.Errorf("topic %q: %w", res.Topic, res.Err))
				continue
			}
			save(ctx, ingestor, logger, res.Articles, ingestion.TopicFilename(res.Topic, time.Now()))
		}
		if err != nil {
			return err
		}
	}

	if feeds := splitList(f.feeds); len(feeds) > 0 {
		articles, err := ingestor.FetchFeeds(ctx, feeds)
		if err != nil {
			return err
		}
		save(ctx, ingestor, logger, articles, "rss_"+time.Now().Format("20060102_150405")+".json")
	}

	if f.subreddit != "" {
		articles, err := ingestor.FetchReddit(ctx, f.subreddit, f.redditQuery, f.redditLimit)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			errs = append(errs, err)
		} else {
			save(ctx, ingestor, logger, articles, "reddit_"+f.subreddit+"_"+time.Now().Format("20060102_150405")+".json")
		}
	}

	if len(errs) > 0 && len(errs) == len(topics)+boolToInt(f.subreddit != "") {
		return errors.Join(errs...)
	}
	for _, err := range errs {
		logger.Warn("[Main] Partial failure", slog.String("error", err.Error()))
	}
	return nil
}

func save(ctx context.Context, ingestor *ingestion.NewsIngestor, logger *slog.Logger, articles []models.Article, filename string) {
	path, err := ingestor.SaveArticles(ctx, articles, filename)
	if err != nil {
		logger.Error("[Main] Failed to save batch", slog.String("file", filename), slog.String("error", err.Error()))
		return
	}
	if path == "" {
		return
	}

	stats := ingestion.Statistics(articles)
	attrs := []any{
		slog.String("path", path),
		slog.Int("articles", stats.Total),
		slog.Int("sources", stats.Sources),
	}
	if stats.DateRange != nil {
		attrs = append(attrs,
			slog.String("earliest", stats.DateRange.Earliest),
			slog.String("latest", stats.DateRange.Latest))
	}
	logger.Info("[Main] Batch statistics", attrs...)
	for _, sc := range stats.TopSources {
		logger.Info("[Main] Top source", slog.String("source", sc.Source), slog.Int("count", sc.Count))
	}
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

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
