package models

// CandidateInfo describes one entry of the subject directory. Instances
// are read-only: the orchestrator never mutates them.
type CandidateInfo struct {
	Name             string   `json:"name"`
	CurrentRole      string   `json:"current_role"`
	PartyAffiliation string   `json:"party_affiliation"`
	Gender           string   `json:"gender"`
	BioSummary       string   `json:"bio_summary"`
	KeyIssues        []string `json:"key_issues"`
}
