package clients

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNewsAPI(t *testing.T, handler http.HandlerFunc) *NewsAPIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewNewsAPIClient("news-key")
	client.endpoint = srv.URL + "/v2/everything"
	client.backoff = time.Millisecond
	return client
}

func TestNewsAPIClient_Everything(t *testing.T) {
	client := newTestNewsAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/everything", r.URL.Path)
		assert.Equal(t, "news-key", r.Header.Get("X-Api-Key"))
		q := r.URL.Query()
		assert.Equal(t, "NATO expansion", q.Get("q"))
		assert.Equal(t, "2025-03-01", q.Get("from"))
		assert.Equal(t, "2025-03-08", q.Get("to"))
		assert.Equal(t, "en", q.Get("language"))
		assert.Equal(t, "relevancy", q.Get("sortBy"))
		assert.Equal(t, "100", q.Get("pageSize"))

		_, _ = io.WriteString(w, `{"status":"ok","totalResults":1,"articles":[
			{"source":{"id":null,"name":"BBC News"},"author":null,"title":"Summit opens","description":"Leaders meet",
			 "url":"https://bbc.example/1","urlToImage":null,"publishedAt":"2025-03-07T10:00:00Z","content":"..."}]}`)
	})

	resp, err := client.Everything(context.Background(), EverythingQuery{
		Query:    "NATO expansion",
		From:     time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		To:       time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC),
		Language: "en",
		SortBy:   "relevancy",
		PageSize: 500,
	})

	require.NoError(t, err)
	require.Len(t, resp.Articles, 1)
	assert.Equal(t, "BBC News", resp.Articles[0].Source.Name)
	assert.Equal(t, "", resp.Articles[0].Author)
	assert.Equal(t, "2025-03-07T10:00:00Z", resp.Articles[0].PublishedAt)
}

func TestNewsAPIClient_MissingKey(t *testing.T) {
	client := NewNewsAPIClient("")

	_, err := client.Everything(context.Background(), EverythingQuery{Query: "x"})

	assert.ErrorIs(t, err, ErrNewsAPIKeyMissing)
}

func TestNewsAPIClient_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"bad request", http.StatusBadRequest, `{"status":"error","code":"parameterInvalid","message":"bad q"}`},
		{"unauthorized", http.StatusUnauthorized, `{"status":"error","code":"apiKeyInvalid"}`},
		{"forbidden", http.StatusForbidden, ``},
		{"status error in 200", http.StatusOK, `{"status":"error","message":"quota"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			client := newTestNewsAPI(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := client.Everything(context.Background(), EverythingQuery{Query: "x"})

			assert.ErrorIs(t, err, ErrNewsAPIRejected)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestNewsAPIClient_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	client := newTestNewsAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, `{"status":"error","code":"rateLimited"}`)
			return
		}
		_, _ = io.WriteString(w, `{"status":"ok","totalResults":0,"articles":[]}`)
	})

	resp, err := client.Everything(context.Background(), EverythingQuery{Query: "x"})

	require.NoError(t, err)
	assert.Empty(t, resp.Articles)
	assert.Equal(t, int32(2), calls.Load())
}

func TestNewsAPIClient_GivesUpOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestNewsAPI(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Everything(context.Background(), EverythingQuery{Query: "x"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed after max retries")
	assert.Equal(t, int32(MAX_RETRIES), calls.Load())
}
