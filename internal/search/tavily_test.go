package search_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/civiscope/civiscope-go/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTavilySearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "London Breed housing", req["query"])
		assert.Equal(t, float64(2), req["max_results"])
		assert.Equal(t, "news", req["topic"])

		json.NewEncoder(w).Encode(map[string]any{
			"query": req["query"],
			"results": []map[string]any{
				{"title": "Breed on housing", "url": "https://example.com/a", "content": "article text", "score": 0.91},
				{"title": "Housing plan", "url": "https://example.com/b", "content": "more text", "score": 0.72},
			},
		})
	}))
	defer srv.Close()

	client := search.NewTavilyClient(srv.URL, "test-key", 5*time.Second)

	resp, err := client.Search(context.Background(), "London Breed housing", search.Options{
		MaxResults:        2,
		Topic:             "news",
		IncludeRawContent: true,
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "Breed on housing", resp.Results[0].Title)
	assert.InDelta(t, 0.91, resp.Results[0].Score, 0.001)
}

func TestTavilySearchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := search.NewTavilyClient(srv.URL, "test-key", 5*time.Second)

	_, err := client.Search(context.Background(), "anything", search.Options{MaxResults: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search error")
}

func TestTavilySearchContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	client := search.NewTavilyClient(srv.URL, "test-key", 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Search(ctx, "anything", search.Options{})
	require.Error(t, err)
}

func TestAdapterFunc(t *testing.T) {
	called := false
	fn := search.AdapterFunc(func(ctx context.Context, query string, opts search.Options) (*search.Response, error) {
		called = true
		return &search.Response{Query: query}, nil
	})

	resp, err := fn.Search(context.Background(), "q", search.Options{})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "q", resp.Query)
}
