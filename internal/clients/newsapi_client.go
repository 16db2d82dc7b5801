package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/spacesedan/newsmood/internal/models"
)

const (
	NEWS_API_ENDPOINT = "https://newsapi.org/v2/everything"
	NEWS_API_MAX_PAGE = 100
)

var (
	ErrNewsAPIKeyMissing = errors.New("[NewsAPIClient] API key is missing")
	ErrNewsAPIRejected   = errors.New("[NewsAPIClient] request rejected")
)

// EverythingQuery mirrors the /v2/everything parameters the ingestor uses.
type EverythingQuery struct {
	Query    string
	From     time.Time
	To       time.Time
	Language string
	SortBy   string
	PageSize int
}

type NewsAPIClient struct {
	Client   *http.Client
	APIKey   string
	endpoint string
	backoff  time.Duration
}

func NewNewsAPIClient(apiKey string) *NewsAPIClient {
	return &NewsAPIClient{
		Client:   &http.Client{Timeout: 30 * time.Second},
		APIKey:   apiKey,
		endpoint: NEWS_API_ENDPOINT,
		backoff:  INITIAL_BACKOFF,
	}
}

func (n *NewsAPIClient) Everything(ctx context.Context, q EverythingQuery) (*models.NewsAPIResponse, error) {
	if n.APIKey == "" {
		slog.Error("[NewsAPIClient] API key is missing")
		return nil, ErrNewsAPIKeyMissing
	}
	endpoint, err := n.everythingURL(q)
	if err != nil {
		return nil, err
	}

	var lastErr error
	backoff := n.backoff

	for attempt := 1; attempt <= MAX_RETRIES; attempt++ {
		slog.Info("[NewsAPIClient] Fetching articles",
			slog.String("query", q.Query),
			slog.Int("attempt", attempt))

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("[NewsAPIClient] build request: %w", err)
		}
		req.Header.Set("X-Api-Key", n.APIKey)
		req.Header.Set("User-Agent", USER_AGENT)

		response, retry, err := n.do(req)
		if err == nil {
			slog.Info("[NewsAPIClient] Successfully fetched articles",
				slog.Int("articles", len(response.Articles)),
				slog.Int("total_results", response.TotalResults))
			return response, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err

		if attempt == MAX_RETRIES {
			break
		}
		slog.Warn("[NewsAPIClient] Retrying after backoff",
			slog.Duration("backoff", backoff),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, MAX_BACKOFF)
	}

	slog.Error("[NewsAPIClient] Failed after max retries")
	return nil, fmt.Errorf("[NewsAPIClient] failed after max retries: %w", lastErr)
}

// do runs one request. retry reports whether the failure is worth retrying.
func (n *NewsAPIClient) do(req *http.Request) (*models.NewsAPIResponse, bool, error) {
	res, err := n.Client.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return nil, false, req.Context().Err()
		}
		return nil, true, fmt.Errorf("[NewsAPIClient] request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, true, fmt.Errorf("[NewsAPIClient] read response body: %w", err)
	}

	var response models.NewsAPIResponse
	decodeErr := json.Unmarshal(body, &response)

	switch {
	case res.StatusCode == http.StatusOK:
		if decodeErr != nil {
			return nil, false, fmt.Errorf("[NewsAPIClient] parse JSON response: %w", decodeErr)
		}
		if response.Status != "ok" {
			return nil, false, fmt.Errorf("%w: %s", ErrNewsAPIRejected, apiMessage(response))
		}
		return &response, false, nil
	case res.StatusCode == http.StatusBadRequest:
		slog.Warn("[NewsAPIClient] Bad request: check query parameters")
		return nil, false, fmt.Errorf("%w: bad request: %s", ErrNewsAPIRejected, apiMessage(response))
	case res.StatusCode == http.StatusUnauthorized:
		slog.Error("[NewsAPIClient] Invalid API Key, check credentials")
		return nil, false, fmt.Errorf("%w: invalid API key: %s", ErrNewsAPIRejected, apiMessage(response))
	case res.StatusCode == http.StatusForbidden:
		slog.Error("[NewsAPIClient] Access forbidden, check API key permissions")
		return nil, false, fmt.Errorf("%w: API key lacks required permissions", ErrNewsAPIRejected)
	case res.StatusCode == http.StatusTooManyRequests:
		slog.Warn("[NewsAPIClient] Rate limit exceeded")
		return nil, true, fmt.Errorf("[NewsAPIClient] rate limited: %s", apiMessage(response))
	case res.StatusCode >= 500:
		slog.Warn("[NewsAPIClient] Server Error", slog.Int("statusCode", res.StatusCode))
		return nil, true, fmt.Errorf("[NewsAPIClient] server error %d", res.StatusCode)
	default:
		slog.Warn("[NewsAPIClient] Unexpected Response", slog.Int("statusCode", res.StatusCode))
		return nil, false, fmt.Errorf("[NewsAPIClient] unexpected status code %d", res.StatusCode)
	}
}

func (n *NewsAPIClient) everythingURL(q EverythingQuery) (string, error) {
	u, err := url.Parse(n.endpoint)
	if err != nil {
		return "", fmt.Errorf("[NewsAPIClient] parse endpoint: %w", err)
	}
	pageSize := q.PageSize
	if pageSize <= 0 || pageSize > NEWS_API_MAX_PAGE {
		pageSize = NEWS_API_MAX_PAGE
	}

	params := u.Query()
	params.Set("q", q.Query)
	if !q.From.IsZero() {
		params.Set("from", q.From.Format(time.DateOnly))
	}
	if !q.To.IsZero() {
		params.Set("to", q.To.Format(time.DateOnly))
	}
	if q.Language != "" {
		params.Set("language", q.Language)
	}
	if q.SortBy != "" {
		params.Set("sortBy", q.SortBy)
	}
	params.Set("pageSize", strconv.Itoa(pageSize))
	u.RawQuery = params.Encode()
	return u.String(), nil
}

func apiMessage(r models.NewsAPIResponse) string {
	if r.Message != "" {
		return r.Message
	}
	if r.Code != "" {
		return r.Code
	}
	return "unknown error"
}
