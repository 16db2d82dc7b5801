package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/spacesedan/newsmood/internal/models"
)

const (
	REDDIT_AUTH_URL   = "https://www.reddit.com/api/v1/access_token"
	REDDIT_API_URL    = "https://oauth.reddit.com"
	REDDIT_MAX_LIMIT  = 100
	REDDIT_USER_AGENT = "newsmood-bot/1.0"
)

var ErrRedditCredentialsMissing = errors.New("[RedditClient] client id or secret is missing")

type RedditOptions struct {
	ClientID     string
	ClientSecret string
	// AuthURL and APIURL default to Reddit's production endpoints.
	AuthURL string
	APIURL  string
}

type RedditClient struct {
	Config  *clientcredentials.Config
	Client  *http.Client
	apiURL  string
	backoff time.Duration
	mu      sync.Mutex
}

func NewRedditClient(opts RedditOptions) (*RedditClient, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" {
		return nil, ErrRedditCredentialsMissing
	}
	if opts.AuthURL == "" {
		opts.AuthURL = REDDIT_AUTH_URL
	}
	if opts.APIURL == "" {
		opts.APIURL = REDDIT_API_URL
	}

	oauthConf := &clientcredentials.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		TokenURL:     opts.AuthURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	return &RedditClient{
		Config:  oauthConf,
		Client:  oauthConf.Client(context.Background()),
		apiURL:  strings.TrimRight(opts.APIURL, "/"),
		backoff: INITIAL_BACKOFF,
	}, nil
}

// RefreshClient drops the cached token so the next request fetches a new one.
func (rc *RedditClient) RefreshClient() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.Client = rc.Config.Client(context.Background())
}

func (rc *RedditClient) httpClient() *http.Client {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.Client
}

// Search returns the top posts in subreddit matching query.
func (rc *RedditClient) Search(ctx context.Context, subreddit, query string, limit int) ([]models.RedditAPIChildData, error) {
	endpoint, err := rc.searchURL(subreddit, query, limit)
	if err != nil {
		return nil, err
	}

	backoff := rc.backoff
	refreshed := false

	for attempt := 1; attempt <= MAX_RETRIES; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("[RedditClient] build request: %w", err)
		}
		req.Header.Set("User-Agent", REDDIT_USER_AGENT)

		resp, err := rc.httpClient().Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("[RedditClient] request failed: %w", err)
		}

		switch resp.StatusCode {
		case http.StatusOK:
			var listing models.RedditAPIResponse
			err := json.NewDecoder(resp.Body).Decode(&listing)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("[RedditClient] parse listing: %w", err)
			}
			posts := make([]models.RedditAPIChildData, 0, len(listing.Data.Children))
			for _, child := range listing.Data.Children {
				posts = append(posts, child.Data)
			}
			slog.Info("[RedditClient] Fetched subreddit posts",
				slog.String("subreddit", subreddit),
				slog.Int("posts", len(posts)))
			return posts, nil
		case http.StatusUnauthorized:
			resp.Body.Close()
			if refreshed {
				return nil, fmt.Errorf("[RedditClient] unauthorized after token refresh")
			}
			slog.Warn("[RedditClient] Token expired - Refreshing and Retrying...")
			rc.RefreshClient()
			refreshed = true
			continue
		case http.StatusTooManyRequests:
			resp.Body.Close()
			slog.Warn("[RedditClient] 429 Too Many Requests - Retrying with backoff",
				slog.Int("attempt", attempt), slog.Duration("backoff", backoff))
		default:
			resp.Body.Close()
			if resp.StatusCode < 500 {
				return nil, fmt.Errorf("[RedditClient] unexpected status code %d", resp.StatusCode)
			}
			slog.Warn("[RedditClient] Server Error", slog.Int("statusCode", resp.StatusCode))
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, MAX_BACKOFF)
	}
	return nil, fmt.Errorf("[RedditClient] Max retries reached request failed")
}

func (rc *RedditClient) searchURL(subreddit, query string, limit int) (string, error) {
	parsedURL, err := url.Parse(fmt.Sprintf("%s/r/%s/search", rc.apiURL, url.PathEscape(subreddit)))
	if err != nil {
		return "", fmt.Errorf("[RedditClient] Failed to parse URL: %w", err)
	}
	if limit <= 0 || limit > REDDIT_MAX_LIMIT {
		limit = REDDIT_MAX_LIMIT
	}
	params := parsedURL.Query()
	params.Set("q", query)
	params.Set("sort", "top")
	params.Set("restrict_sr", "on")
	params.Set("limit", strconv.Itoa(limit))
	parsedURL.RawQuery = params.Encode()
	return parsedURL.String(), nil
}
