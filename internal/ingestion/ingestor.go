// Package ingestion fetches news from NewsAPI, RSS feeds and Reddit,
// normalises it into flat article records and saves batches to disk.
package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/spacesedan/newsmood/internal/clients"
	"github.com/spacesedan/newsmood/internal/models"
	"github.com/spacesedan/newsmood/internal/utils"
)

const (
	DefaultDataDir     = "data/raw/news"
	DefaultDaysBack    = 7
	DefaultMaxArticles = 100
	DefaultLanguage    = "en"
	DefaultSortBy      = "relevancy"
	DefaultTopicPause  = 2 * time.Second

	SourceNewsAPI = "newsapi"
	SourceRSS     = "rss"
	SourceReddit  = "reddit"
)

// DefaultTopics are the geopolitical queries fetched when none are given.
var DefaultTopics = []string{
	"Ukraine Russia conflict",
	"China Taiwan geopolitics",
	"Middle East diplomacy",
	"NATO expansion",
	"election interference",
}

type NewsSource interface {
	Everything(ctx context.Context, q clients.EverythingQuery) (*models.NewsAPIResponse, error)
}

type FeedSource interface {
	Fetch(ctx context.Context, feedURL string) (*gofeed.Feed, error)
}

type PostSource interface {
	Search(ctx context.Context, subreddit, query string, limit int) ([]models.RedditAPIChildData, error)
}

// SeenStore remembers which article URLs were already ingested per source.
// ValkeyClient implements it.
type SeenStore interface {
	Seen(ctx context.Context, source string, keys ...string) ([]bool, error)
	MarkSeen(ctx context.Context, source string, ttl time.Duration, keys ...string) error
}

type Query struct {
	Topic       string
	DaysBack    int
	MaxArticles int
	Language    string
	SortBy      string
}

type TopicResult struct {
	Topic    string
	Articles []models.Article
	Err      error
}

type NewsIngestor struct {
	news    NewsSource
	feeds   FeedSource
	posts   PostSource
	seen    SeenStore
	seenTTL time.Duration
	// pending maps fetched URLs to their source until a save marks them seen.
	pending map[string]string
	dataDir string
	pause   time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

type Option func(*NewsIngestor)

func WithFeeds(feeds FeedSource) Option {
	return func(n *NewsIngestor) { n.feeds = feeds }
}

func WithPosts(posts PostSource) Option {
	return func(n *NewsIngestor) { n.posts = posts }
}

// WithSeenStore drops articles whose URL was saved within ttl.
func WithSeenStore(store SeenStore, ttl time.Duration) Option {
	return func(n *NewsIngestor) {
		n.seen = store
		n.seenTTL = ttl
	}
}

func WithDataDir(dir string) Option {
	return func(n *NewsIngestor) {
		if dir != "" {
			n.dataDir = dir
		}
	}
}

func WithTopicPause(d time.Duration) Option {
	return func(n *NewsIngestor) { n.pause = d }
}

func WithClock(now func() time.Time) Option {
	return func(n *NewsIngestor) { n.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(n *NewsIngestor) {
		if logger != nil {
			n.logger = logger
		}
	}
}

func NewNewsIngestor(news NewsSource, opts ...Option) *NewsIngestor {
	n := &NewsIngestor{
		news:    news,
		dataDir: DefaultDataDir,
		pause:   DefaultTopicPause,
		now:     time.Now,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		pending: make(map[string]string),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *NewsIngestor) DataDir() string { return n.dataDir }

// FetchNews queries NewsAPI for articles about q.Topic published within the
// last q.DaysBack days and returns them cleaned.
func (n *NewsIngestor) FetchNews(ctx context.Context, q Query) ([]models.Article, error) {
	if n.news == nil {
		return nil, fmt.Errorf("[NewsIngestor] no news source configured")
	}
	q = q.withDefaults()
	to := n.now()
	from := to.AddDate(0, 0, -q.DaysBack)

	n.logger.Info("[NewsIngestor] Fetching news articles",
		slog.String("query", q.Topic),
		slog.String("from", from.Format(time.DateOnly)),
		slog.String("to", to.Format(time.DateOnly)))

	resp, err := n.news.Everything(ctx, clients.EverythingQuery{
		Query:    q.Topic,
		From:     from,
		To:       to,
		Language: q.Language,
		SortBy:   q.SortBy,
		PageSize: min(q.MaxArticles, clients.NEWS_API_MAX_PAGE),
	})
	if err != nil {
		return nil, fmt.Errorf("[NewsIngestor] fetch %q: %w", q.Topic, err)
	}

	fetchedAt := n.now()
	articles := make([]models.Article, 0, len(resp.Articles))
	for _, raw := range resp.Articles {
		articles = append(articles, CleanArticle(raw, fetchedAt))
	}
	articles = n.dropSeen(ctx, SourceNewsAPI, articles)

	n.logger.Info("[NewsIngestor] Fetched articles",
		slog.String("query", q.Topic),
		slog.Int("articles", len(articles)))
	return articles, nil
}

// FetchMultipleTopics fetches each topic in turn, pausing between requests.
// A failed topic is reported in its result and does not stop the others;
// only cancellation does.
func (n *NewsIngestor) FetchMultipleTopics(ctx context.Context, topics []string, daysBack, maxPerTopic int) ([]TopicResult, error) {
	results := make([]TopicResult, 0, len(topics))
	for i, topic := range topics {
		n.logger.Info("[NewsIngestor] Fetching topic",
			slog.Int("index", i+1),
			slog.Int("topics", len(topics)),
			slog.String("topic", topic))

		articles, err := n.FetchNews(ctx, Query{Topic: topic, DaysBack: daysBack, MaxArticles: maxPerTopic})
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			n.logger.Warn("[NewsIngestor] Topic failed",
				slog.String("topic", topic),
				slog.String("error", err.Error()))
		}
		results = append(results, TopicResult{Topic: topic, Articles: articles, Err: err})

		if i < len(topics)-1 && n.pause > 0 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(n.pause):
			}
		}
	}
	return results, nil
}

// FetchFeeds reads every feed and returns their items as articles. Feeds
// that fail to parse are logged and skipped.
func (n *NewsIngestor) FetchFeeds(ctx context.Context, feedURLs []string) ([]models.Article, error) {
	if n.feeds == nil {
		return nil, fmt.Errorf("[NewsIngestor] no feed source configured")
	}
	var articles []models.Article
	for _, feedURL := range feedURLs {
		feed, err := n.feeds.Fetch(ctx, feedURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			n.logger.Warn("[NewsIngestor] Skipping feed",
				slog.String("url", feedURL),
				slog.String("error", err.Error()))
			continue
		}
		fetchedAt := n.now()
		for _, item := range feed.Items {
			if item == nil || item.Link == "" {
				continue
			}
			articles = append(articles, CleanFeedItem(feed.Title, item, fetchedAt))
		}
	}
	return n.dropSeen(ctx, SourceRSS, articles), nil
}

// FetchReddit searches a subreddit and returns the posts as articles.
func (n *NewsIngestor) FetchReddit(ctx context.Context, subreddit, query string, limit int) ([]models.Article, error) {
	if n.posts == nil {
		return nil, fmt.Errorf("[NewsIngestor] no reddit source configured")
	}
	posts, err := n.posts.Search(ctx, subreddit, query, limit)
	if err != nil {
		return nil, fmt.Errorf("[NewsIngestor] search r/%s: %w", subreddit, err)
	}
	fetchedAt := n.now()
	articles := make([]models.Article, 0, len(posts))
	for _, post := range posts {
		articles = append(articles, CleanRedditPost(post, fetchedAt))
	}
	return n.dropSeen(ctx, SourceReddit, articles), nil
}

type savedBatch struct {
	FetchedAt     string           `json:"fetched_at"`
	TotalArticles int              `json:"total_articles"`
	Articles      []models.Article `json:"articles"`
}

// SaveArticles writes articles under the data directory and returns the
// path. An existing batch file is extended, not replaced; articles whose URL
// it already holds are skipped. URLs are marked seen only once the write has
// succeeded. An empty batch writes nothing and returns "".
func (n *NewsIngestor) SaveArticles(ctx context.Context, articles []models.Article, filename string) (string, error) {
	if len(articles) == 0 {
		n.logger.Info("[NewsIngestor] No articles to save")
		return "", nil
	}
	if filename == "" {
		filename = "news_" + n.now().Format("20060102_150405") + ".json"
	}
	path := filepath.Join(n.dataDir, filename)

	existing, err := readBatch(path)
	if err != nil {
		return "", fmt.Errorf("[NewsIngestor] read existing batch: %w", err)
	}
	merged := mergeByURL(existing, articles)

	err = utils.WriteJSONAtomic(path, savedBatch{
		FetchedAt:     n.now().Format(time.RFC3339),
		TotalArticles: len(merged),
		Articles:      merged,
	})
	if err != nil {
		return "", fmt.Errorf("[NewsIngestor] save articles: %w", err)
	}
	n.markSaved(ctx, articles)

	n.logger.Info("[NewsIngestor] Saved articles",
		slog.Int("articles", len(articles)),
		slog.Int("total", len(merged)),
		slog.String("path", path))
	return path, nil
}

// readBatch returns the articles of a previously saved batch, or nil when
// there is none.
func readBatch(path string) ([]models.Article, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var batch savedBatch
	dec := json.NewDecoder(f)
	dec.UseNumber()
	if err := dec.Decode(&batch); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return batch.Articles, nil
}

func mergeByURL(existing, incoming []models.Article) []models.Article {
	if len(existing) == 0 {
		return incoming
	}
	have := make(map[string]bool, len(existing))
	for _, a := range existing {
		if url := a.Text("url"); url != "" {
			have[url] = true
		}
	}
	merged := append([]models.Article(nil), existing...)
	for _, a := range incoming {
		url := a.Text("url")
		if url != "" {
			if have[url] {
				continue
			}
			have[url] = true
		}
		merged = append(merged, a)
	}
	return merged
}

// markSaved records the saved URLs in the seen store under the source they
// were fetched from.
func (n *NewsIngestor) markSaved(ctx context.Context, articles []models.Article) {
	if n.seen == nil {
		return
	}
	bySource := make(map[string][]string)
	var sources []string
	for _, a := range articles {
		url := a.Text("url")
		source, ok := n.pending[url]
		if !ok {
			continue
		}
		delete(n.pending, url)
		if _, ok := bySource[source]; !ok {
			sources = append(sources, source)
		}
		bySource[source] = append(bySource[source], url)
	}
	for _, source := range sources {
		if err := n.seen.MarkSeen(ctx, source, n.seenTTL, bySource[source]...); err != nil {
			n.logger.Warn("[NewsIngestor] Failed to mark articles seen",
				slog.String("source", source),
				slog.String("error", err.Error()))
		}
	}
}

// TopicFilename names the daily file for a topic, e.g.
// news_nato_expansion_20250310.json.
func TopicFilename(topic string, day time.Time) string {
	safe := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(topic), " ", "_"))
	return fmt.Sprintf("news_%s_%s.json", safe, day.Format("20060102"))
}

func (n *NewsIngestor) dropSeen(ctx context.Context, source string, articles []models.Article) []models.Article {
	if n.seen == nil || len(articles) == 0 {
		return articles
	}

	urls := make([]string, len(articles))
	for i, a := range articles {
		urls[i] = a.Text("url")
	}
	seen, err := n.seen.Seen(ctx, source, urls...)
	if err != nil || len(seen) != len(articles) {
		n.logger.Warn("[NewsIngestor] Seen lookup failed, keeping all articles",
			slog.String("source", source),
			slog.Any("error", err))
		return articles
	}

	fresh := make([]models.Article, 0, len(articles))
	for i, a := range articles {
		if urls[i] != "" && seen[i] {
			continue
		}
		fresh = append(fresh, a)
		if urls[i] != "" {
			n.pending[urls[i]] = source
		}
	}
	if dropped := len(articles) - len(fresh); dropped > 0 {
		n.logger.Info("[NewsIngestor] Dropped already ingested articles",
			slog.String("source", source),
			slog.Int("dropped", dropped))
	}
	return fresh
}

func (q Query) withDefaults() Query {
	if q.DaysBack <= 0 {
		q.DaysBack = DefaultDaysBack
	}
	if q.MaxArticles <= 0 {
		q.MaxArticles = DefaultMaxArticles
	}
	if q.Language == "" {
		q.Language = DefaultLanguage
	}
	if q.SortBy == "" {
		q.SortBy = DefaultSortBy
	}
	return q
}
