// Package stream provides per-task fan-out of research notifications to
// live subscribers.
package stream

import "time"

// Message type discriminators. Consumers switch on the "type" field.
const (
	TypeProgress = "progress"
	TypeSource   = "source"
	TypeComplete = "complete"
	TypeError    = "error"
)

// ProgressMessage reports step progress for a task.
type ProgressMessage struct {
	Type                      string `json:"type"`
	ResearchID                string `json:"research_id"`
	PercentComplete           int    `json:"percent_complete"`
	CurrentTask               string `json:"current_task"`
	SourcesFound              int    `json:"sources_found"`
	EstimatedRemainingSeconds int    `json:"estimated_remaining_seconds"`
	Timestamp                 string `json:"timestamp"`
}

// SourceMessage announces one newly discovered source.
type SourceMessage struct {
	Type           string  `json:"type"`
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	RelevanceScore float64 `json:"relevance_score"`
	Timestamp      string  `json:"timestamp"`
}

// CompleteMessage announces task completion with a pointer to results.
type CompleteMessage struct {
	Type       string         `json:"type"`
	ResearchID string         `json:"research_id"`
	ResultsURL string         `json:"results_url"`
	Summary    map[string]int `json:"summary"`
	Timestamp  string         `json:"timestamp"`
}

// ErrorMessage announces a task error or cancellation.
type ErrorMessage struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	Recoverable bool   `json:"recoverable"`
	Timestamp   string `json:"timestamp"`
}

// NewProgress builds a progress message with the current timestamp.
func NewProgress(researchID string, percent int, currentTask string, sourcesFound, estimatedRemaining int) ProgressMessage {
	return ProgressMessage{
		Type:                      TypeProgress,
		ResearchID:                researchID,
		PercentComplete:           percent,
		CurrentTask:               currentTask,
		SourcesFound:              sourcesFound,
		EstimatedRemainingSeconds: estimatedRemaining,
		Timestamp:                 timestamp(),
	}
}

// NewSource builds a source-discovered message.
func NewSource(title, url string, relevance float64) SourceMessage {
	return SourceMessage{
		Type:           TypeSource,
		Title:          title,
		URL:            url,
		RelevanceScore: relevance,
		Timestamp:      timestamp(),
	}
}

// NewComplete builds a completion message.
func NewComplete(researchID, resultsURL string, summary map[string]int) CompleteMessage {
	return CompleteMessage{
		Type:       TypeComplete,
		ResearchID: researchID,
		ResultsURL: resultsURL,
		Summary:    summary,
		Timestamp:  timestamp(),
	}
}

// NewError builds an error message.
func NewError(message string, recoverable bool) ErrorMessage {
	return ErrorMessage{
		Type:        TypeError,
		Message:     message,
		Recoverable: recoverable,
		Timestamp:   timestamp(),
	}
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
