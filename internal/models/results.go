package models

import "time"

// Alignment values used in candidate matches.
const (
	AlignmentSupports = "supports"
	AlignmentOpposes  = "opposes"
)

// CandidateMatch captures one candidate's position on a specific issue.
type CandidateMatch struct {
	Name       string `json:"name"`
	Alignment  string `json:"alignment"`
	SourceLink string `json:"source_link"`
	Party      string `json:"party"`
	Bio        string `json:"bio"`
	Gender     string `json:"gender"`
}

// StanceCard represents a political issue with candidate positions.
type StanceCard struct {
	StanceID         string           `json:"stance_id"`
	Question         string           `json:"question"`
	Context          string           `json:"context"`
	Analysis         string           `json:"analysis"`
	CandidateMatches []CandidateMatch `json:"candidate_matches"`
}

// CandidateProfile is the per-candidate slice of a comparison result.
type CandidateProfile struct {
	Name    string   `json:"name"`
	Sources []Source `json:"sources"`
	Bio     string   `json:"bio"`
	Party   string   `json:"party"`
	Gender  string   `json:"gender,omitempty"`
}

// ResearchResults is the terminal payload of a single-subject task.
type ResearchResults struct {
	ResearchID       string         `json:"research_id"`
	CandidateName    string         `json:"candidate_name"`
	CompletedAt      time.Time      `json:"completed_at"`
	TotalSources     int            `json:"total_sources"`
	TopicsResearched []string       `json:"topics_researched"`
	Stances          []StanceCard   `json:"stances"`
	RawSources       []Source       `json:"raw_sources"`
	Summary          string         `json:"summary"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// ComparisonResults is the terminal payload of a comparison task.
type ComparisonResults struct {
	ComparisonID      string             `json:"comparison_id"`
	Candidates        []string           `json:"candidates"`
	Topic             string             `json:"topic,omitempty"`
	CompletedAt       time.Time          `json:"completed_at"`
	StanceCards       []StanceCard       `json:"stance_cards"`
	CandidateProfiles []CandidateProfile `json:"candidate_profiles"`
	Summary           string             `json:"summary"`
}
