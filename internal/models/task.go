// Package models defines data structures for Civiscope research tasks.
package models

import "time"

// TaskKind distinguishes the two research task shapes.
type TaskKind string

const (
	KindSingleSubject TaskKind = "single-subject"
	KindComparison    TaskKind = "comparison"
)

// TaskStatus represents the lifecycle state of a research task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusProcessing TaskStatus = "processing"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
	StatusCancelled  TaskStatus = "cancelled"
)

// Terminal reports whether the status is absorbing.
func (s TaskStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// ResearchDepth is the coarse knob controlling how many queries and
// results a task generates.
type ResearchDepth string

const (
	DepthQuick    ResearchDepth = "quick"
	DepthStandard ResearchDepth = "standard"
	DepthDeep     ResearchDepth = "deep"
)

// Valid reports whether d is one of the known depth tiers.
func (d ResearchDepth) Valid() bool {
	switch d {
	case DepthQuick, DepthStandard, DepthDeep:
		return true
	}
	return false
}

// TaskParams is the opaque configuration bag fixed at task creation.
type TaskParams struct {
	Topics               []string      `json:"topics,omitempty"`
	Depth                ResearchDepth `json:"depth,omitempty"`
	IncludeVotingRecords bool          `json:"include_voting_records,omitempty"`
	MaxSources           int           `json:"max_sources,omitempty"`
	FocusTopic           string        `json:"focus_topic,omitempty"`
	GenerateStanceCards  bool          `json:"generate_stance_cards,omitempty"`
}

// Source is one discovered research document.
type Source struct {
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	SourceType     string  `json:"source_type"`
	Summary        string  `json:"summary"`
	RelevanceScore float64 `json:"relevance_score"`
}

// Task is a point-in-time projection of a research task. The live task
// record is owned by the task store; callers only ever see copies.
type Task struct {
	ID              string     `json:"id"`
	Kind            TaskKind   `json:"kind"`
	Subjects        []string   `json:"subjects"`
	Params          TaskParams `json:"params"`
	Status          TaskStatus `json:"status"`
	PercentComplete int        `json:"percent_complete"`
	CurrentStep     string     `json:"current_step"`
	Sources         []Source   `json:"sources,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	Error           string     `json:"error,omitempty"`
}

// SourcesFound returns the number of sources discovered so far.
func (t Task) SourcesFound() int {
	return len(t.Sources)
}
