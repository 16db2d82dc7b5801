package clients

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
)

const RSS_FETCH_TIMEOUT = 30 * time.Second

type RSSClient struct {
	parser *gofeed.Parser
}

func NewRSSClient() *RSSClient {
	parser := gofeed.NewParser()
	parser.UserAgent = USER_AGENT
	parser.Client = &http.Client{Timeout: RSS_FETCH_TIMEOUT}
	return &RSSClient{parser: parser}
}

// Fetch downloads and parses an RSS, Atom or JSON feed.
func (c *RSSClient) Fetch(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	feed, err := c.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		slog.Warn("[RSSClient] Failed to parse feed",
			slog.String("url", feedURL),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("[RSSClient] parse %s: %w", feedURL, err)
	}
	slog.Info("[RSSClient] Fetched feed",
		slog.String("feed", feed.Title),
		slog.Int("items", len(feed.Items)))
	return feed, nil
}
