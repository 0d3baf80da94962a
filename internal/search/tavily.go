package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultBaseURL is the production Tavily API endpoint.
const DefaultBaseURL = "https://api.tavily.com"

// TavilyClient implements Adapter against the Tavily REST API.
type TavilyClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Compile-time check that TavilyClient implements Adapter.
var _ Adapter = (*TavilyClient)(nil)

// NewTavilyClient creates a Tavily search client. If baseURL is empty,
// DefaultBaseURL is used. Timeout 0 defaults to 30 seconds.
func NewTavilyClient(baseURL, apiKey string, timeout time.Duration) *TavilyClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &TavilyClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// tavilyRequest is the POST /search payload.
type tavilyRequest struct {
	Query             string `json:"query"`
	Topic             string `json:"topic,omitempty"`
	MaxResults        int    `json:"max_results,omitempty"`
	IncludeRawContent bool   `json:"include_raw_content,omitempty"`
}

// Search executes one search query against Tavily.
func (c *TavilyClient) Search(ctx context.Context, query string, opts Options) (*Response, error) {
	reqBody, err := json.Marshal(tavilyRequest{
		Query:             query,
		Topic:             opts.Topic,
		MaxResults:        opts.MaxResults,
		IncludeRawContent: opts.IncludeRawContent,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/search", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search error: %s - %s", resp.Status, string(body))
	}

	var result Response
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return &result, nil
}
