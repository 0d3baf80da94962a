// Package search provides the external search provider contract and its
// Tavily implementation.
package search

import "context"

// Result is one document returned by the search provider.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Response wraps a provider search response.
type Response struct {
	Query   string   `json:"query"`
	Results []Result `json:"results"`
}

// Options bound a single search call.
type Options struct {
	MaxResults        int
	Topic             string
	IncludeRawContent bool
}

// Adapter is the external search collaborator. Implementations may fail or
// return empty; callers treat any error as zero results for that query.
type Adapter interface {
	Search(ctx context.Context, query string, opts Options) (*Response, error)
}

// AdapterFunc adapts a function to the Adapter interface.
type AdapterFunc func(ctx context.Context, query string, opts Options) (*Response, error)

// Search calls f.
func (f AdapterFunc) Search(ctx context.Context, query string, opts Options) (*Response, error) {
	return f(ctx, query, opts)
}
