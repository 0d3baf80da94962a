// Package client provides a REST and websocket client for the Civiscope
// research server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/civiscope/civiscope-go/internal/models"
	"github.com/civiscope/civiscope-go/internal/stream"
	"github.com/gorilla/websocket"
)

// ErrInProgress indicates results were requested for a task that has not
// finished yet.
var ErrInProgress = errors.New("research still in progress")

// Client talks to the Civiscope research server.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// New creates a new client.
// If endpoint is empty, uses CIVISCOPE_SERVER_URL env var or defaults to
// localhost:8000. Timeout can be configured via CIVISCOPE_CLIENT_TIMEOUT.
func New(endpoint string) *Client {
	if endpoint == "" {
		endpoint = os.Getenv("CIVISCOPE_SERVER_URL")
	}
	if endpoint == "" {
		endpoint = "http://localhost:8000"
	}
	endpoint = strings.TrimRight(endpoint, "/")

	timeout := time.Minute
	if t := os.Getenv("CIVISCOPE_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ResearchStarted acknowledges a newly created research task.
type ResearchStarted struct {
	ResearchID           string `json:"research_id"`
	Status               string `json:"status"`
	WebsocketURL         string `json:"websocket_url"`
	EstimatedTimeSeconds int    `json:"estimated_time_seconds"`
	Message              string `json:"message"`
}

// TaskStatus is the server's point-in-time view of a task.
type TaskStatus struct {
	ResearchID      string   `json:"research_id"`
	Kind            string   `json:"kind"`
	Subjects        []string `json:"subjects"`
	Status          string   `json:"status"`
	PercentComplete int      `json:"percent_complete"`
	CurrentStep     string   `json:"current_step"`
	SourcesFound    int      `json:"sources_found"`
	StartedAt       string   `json:"started_at"`
	CompletedAt     string   `json:"completed_at,omitempty"`
	ElapsedSeconds  float64  `json:"elapsed_seconds"`
	Error           string   `json:"error,omitempty"`
}

// CandidateResearchInput starts a single-subject task. The candidate name
// becomes part of the URL path, the rest is sent as the request body.
type CandidateResearchInput struct {
	CandidateName        string   `json:"-"`
	ResearchDepth        string   `json:"research_depth,omitempty"`
	FocusTopics          []string `json:"focus_topics,omitempty"`
	IncludeVotingRecords bool     `json:"include_voting_records,omitempty"`
	MaxSources           int      `json:"max_sources,omitempty"`
}

// ComparisonInput starts a comparison task.
type ComparisonInput struct {
	CandidateNames      []string `json:"candidate_names"`
	FocusTopic          string   `json:"focus_topic,omitempty"`
	GenerateStanceCards bool     `json:"generate_stance_cards,omitempty"`
}

// serverError is the error envelope returned by the server.
type serverError struct {
	Error string `json:"error"`
}

// do issues one request and decodes the response into result when the
// status is 2xx.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var se serverError
		if json.Unmarshal(data, &se) == nil && se.Error != "" {
			return fmt.Errorf("server error: %s", se.Error)
		}
		return fmt.Errorf("server error: %s - %s", resp.Status, string(data))
	}

	if result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// StartCandidateResearch starts a single-subject research task.
func (c *Client) StartCandidateResearch(ctx context.Context, input CandidateResearchInput) (*ResearchStarted, error) {
	var out ResearchStarted
	path := "/api/v1/research/candidate/" + url.PathEscape(input.CandidateName)
	if err := c.do(ctx, http.MethodPost, path, input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StartComparison starts a comparison research task.
func (c *Client) StartComparison(ctx context.Context, input ComparisonInput) (*ResearchStarted, error) {
	var out ResearchStarted
	if err := c.do(ctx, http.MethodPost, "/api/v1/research/compare", input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetStatus retrieves the current status of a task.
func (c *Client) GetStatus(ctx context.Context, researchID string) (*TaskStatus, error) {
	var out TaskStatus
	if err := c.do(ctx, http.MethodGet, "/api/v1/research/status/"+researchID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetResults fetches the archived payload for a finished task. Returns
// ErrInProgress while the task is still running.
func (c *Client) GetResults(ctx context.Context, researchID string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/api/v1/research/results/"+researchID, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return json.RawMessage(data), nil
	case http.StatusAccepted:
		return nil, ErrInProgress
	default:
		var se serverError
		if json.Unmarshal(data, &se) == nil && se.Error != "" {
			return nil, fmt.Errorf("server error: %s", se.Error)
		}
		return nil, fmt.Errorf("server error: %s", resp.Status)
	}
}

// Cancel cancels a running research task.
func (c *Client) Cancel(ctx context.Context, researchID string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/research/"+researchID, nil, nil)
}

// ListCandidates returns the server's candidate roster.
func (c *Client) ListCandidates(ctx context.Context) ([]models.CandidateInfo, error) {
	var out struct {
		Candidates []models.CandidateInfo `json:"candidates"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/candidates", nil, &out); err != nil {
		return nil, err
	}
	return out.Candidates, nil
}

// GetCandidate looks up one candidate on the server's roster by name.
func (c *Client) GetCandidate(ctx context.Context, name string) (*models.CandidateInfo, error) {
	var out models.CandidateInfo
	if err := c.do(ctx, http.MethodGet, "/api/v1/candidates/"+url.PathEscape(name), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListActive returns all currently running tasks.
func (c *Client) ListActive(ctx context.Context) ([]TaskStatus, error) {
	var out struct {
		Tasks []TaskStatus `json:"tasks"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/research/active", nil, &out); err != nil {
		return nil, err
	}
	return out.Tasks, nil
}

// Stats returns server runtime statistics as raw JSON.
func (c *Client) Stats(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/v1/stats", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// WatchEvent is one notification from a task's websocket stream. Fields
// are populated according to Type.
type WatchEvent struct {
	Type                      string         `json:"type"`
	ResearchID                string         `json:"research_id,omitempty"`
	PercentComplete           int            `json:"percent_complete,omitempty"`
	CurrentTask               string         `json:"current_task,omitempty"`
	SourcesFound              int            `json:"sources_found,omitempty"`
	EstimatedRemainingSeconds int            `json:"estimated_remaining_seconds,omitempty"`
	Title                     string         `json:"title,omitempty"`
	URL                       string         `json:"url,omitempty"`
	RelevanceScore            float64        `json:"relevance_score,omitempty"`
	ResultsURL                string         `json:"results_url,omitempty"`
	Summary                   map[string]int `json:"summary,omitempty"`
	Message                   string         `json:"message,omitempty"`
	Recoverable               bool           `json:"recoverable,omitempty"`
	Timestamp                 string         `json:"timestamp,omitempty"`
}

// Terminal reports whether the event ends the stream.
func (e WatchEvent) Terminal() bool {
	return e.Type == stream.TypeComplete || e.Type == stream.TypeError
}

// Watch subscribes to a task's websocket stream. The onEvent callback is
// invoked for every notification; return an error from onEvent to abort.
// Watch returns nil after a terminal event.
func (c *Client) Watch(ctx context.Context, researchID string, onEvent func(event WatchEvent) error) error {
	wsEndpoint := c.endpoint
	wsEndpoint = strings.Replace(wsEndpoint, "http://", "ws://", 1)
	wsEndpoint = strings.Replace(wsEndpoint, "https://", "wss://", 1)

	u, err := url.Parse(wsEndpoint + "/ws/research/" + researchID)
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("unknown research task: %s", researchID)
		}
		return fmt.Errorf("websocket connect: %w", err)
	}
	if resp != nil {
		resp.Body.Close()
	}

	var mu sync.Mutex
	closed := false
	closeConn := func() {
		mu.Lock()
		defer mu.Unlock()
		if !closed {
			closed = true
			conn.Close()
		}
	}
	defer closeConn()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			closeConn()
		case <-done:
		}
	}()

	for {
		var event WatchEvent
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read event: %w", err)
		}

		if err := onEvent(event); err != nil {
			return err
		}
		if event.Terminal() {
			return nil
		}
	}
}
