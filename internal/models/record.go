package models

import (
	"fmt"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// ResearchTaskRecord is the persisted form of a research task. Written only
// when SurrealDB persistence is configured; used for restart reconciliation
// and operator inspection, never as the source of truth for live tasks.
type ResearchTaskRecord struct {
	ID              surrealmodels.RecordID `json:"id"`
	Kind            string                 `json:"kind"`
	Subjects        []string               `json:"subjects"`
	Params          map[string]any         `json:"params,omitempty"`
	Status          string                 `json:"status"`
	PercentComplete int                    `json:"percent_complete"`
	CurrentStep     string                 `json:"current_step"`
	SourcesFound    int                    `json:"sources_found"`
	Result          map[string]any         `json:"result,omitempty"`
	Error           *string                `json:"error,omitempty"`
	StartedAt       time.Time              `json:"started_at"`
	CompletedAt     *time.Time             `json:"completed_at,omitempty"`
}

// RecordIDString extracts the string form of a SurrealDB record ID.
func RecordIDString(id surrealmodels.RecordID) (string, error) {
	s, ok := id.ID.(string)
	if !ok {
		return "", fmt.Errorf("record ID is not a string: %v", id.ID)
	}
	return s, nil
}
