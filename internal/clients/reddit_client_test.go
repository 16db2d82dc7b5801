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

const redditListing = `{"data":{"after":null,"children":[
	{"data":{"subreddit":"worldnews","author":"someone","title":"Ceasefire talks resume","selftext":"",
	 "permalink":"/r/worldnews/comments/abc/","url":"https://news.example/abc","ups":420,"created_utc":1741600000,"id":"abc"}}]}}`

func newTestReddit(t *testing.T, api http.HandlerFunc) (*RedditClient, *atomic.Int32) {
	t.Helper()
	var tokens atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "id", user)
		assert.Equal(t, "secret", pass)
		tokens.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"tok","token_type":"bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/r/", api)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := NewRedditClient(RedditOptions{
		ClientID:     "id",
		ClientSecret: "secret",
		AuthURL:      srv.URL + "/api/v1/access_token",
		APIURL:       srv.URL,
	})
	require.NoError(t, err)
	client.backoff = time.Millisecond
	return client, &tokens
}

func TestRedditClient_Search(t *testing.T) {
	client, tokens := newTestReddit(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/r/worldnews/search", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, REDDIT_USER_AGENT, r.Header.Get("User-Agent"))
		assert.Equal(t, "ceasefire", r.URL.Query().Get("q"))
		assert.Equal(t, "top", r.URL.Query().Get("sort"))
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		_, _ = io.WriteString(w, redditListing)
	})

	posts, err := client.Search(context.Background(), "worldnews", "ceasefire", 25)

	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "Ceasefire talks resume", posts[0].Title)
	assert.Equal(t, 420, posts[0].Ups)
	assert.Equal(t, int32(1), tokens.Load())
}

func TestRedditClient_RefreshesTokenOnUnauthorized(t *testing.T) {
	var calls atomic.Int32
	client, tokens := newTestReddit(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, redditListing)
	})

	posts, err := client.Search(context.Background(), "worldnews", "ceasefire", 0)

	require.NoError(t, err)
	assert.Len(t, posts, 1)
	assert.Equal(t, int32(2), tokens.Load())
}

func TestRedditClient_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestReddit(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = io.WriteString(w, redditListing)
	})

	posts, err := client.Search(context.Background(), "worldnews", "ceasefire", 10)

	require.NoError(t, err)
	assert.Len(t, posts, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRedditClient_NotFoundIsFinal(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestReddit(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.Search(context.Background(), "nope", "x", 10)

	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestNewRedditClient_RequiresCredentials(t *testing.T) {
	_, err := NewRedditClient(RedditOptions{ClientID: "id"})

	assert.ErrorIs(t, err, ErrRedditCredentialsMissing)
}
