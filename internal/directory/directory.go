// Package directory provides the subject directory: the static roster of
// researchable candidates.
package directory

import (
	"strings"

	"github.com/civiscope/civiscope-go/internal/models"
)

// Directory resolves subject names to candidate records.
type Directory interface {
	// Resolve looks up a candidate by name, case-insensitive exact match.
	Resolve(name string) (*models.CandidateInfo, bool)
	// All returns every candidate in roster order.
	All() []models.CandidateInfo
}

// Static is a Directory backed by a fixed roster.
type Static struct {
	candidates []models.CandidateInfo
}

// Compile-time check that Static implements Directory.
var _ Directory = (*Static)(nil)

// NewStatic creates a directory over the given roster.
func NewStatic(candidates []models.CandidateInfo) *Static {
	return &Static{candidates: candidates}
}

// Default returns the directory of SF mayoral candidates.
func Default() *Static {
	return NewStatic(MayoralCandidates)
}

// Resolve looks up a candidate by name, case-insensitive exact match.
func (d *Static) Resolve(name string) (*models.CandidateInfo, bool) {
	for i := range d.candidates {
		if strings.EqualFold(d.candidates[i].Name, name) {
			c := d.candidates[i]
			return &c, true
		}
	}
	return nil, false
}

// All returns a copy of the roster.
func (d *Static) All() []models.CandidateInfo {
	out := make([]models.CandidateInfo, len(d.candidates))
	copy(out, d.candidates)
	return out
}

// MayoralCandidates is the built-in roster for the SF mayoral race.
var MayoralCandidates = []models.CandidateInfo{
	{
		Name:             "London Breed",
		CurrentRole:      "Mayor of San Francisco (Incumbent)",
		PartyAffiliation: "Moderate Democrat",
		Gender:           "female",
		BioSummary:       "Incumbent mayor since 2018, former supervisor",
		KeyIssues:        []string{"housing", "public_safety", "economy"},
	},
	{
		Name:             "Daniel Lurie",
		CurrentRole:      "Business Leader",
		PartyAffiliation: "Moderate Democrat",
		Gender:           "male",
		BioSummary:       "Levi Strauss heir and former nonprofit executive",
		KeyIssues:        []string{"homelessness", "public_safety", "economy"},
	},
	{
		Name:             "Aaron Peskin",
		CurrentRole:      "SF Board of Supervisors President",
		PartyAffiliation: "Progressive Democrat",
		Gender:           "male",
		BioSummary:       "Progressive supervisor, former board president",
		KeyIssues:        []string{"housing", "transportation", "great_highway"},
	},
	{
		Name:             "Mark Farrell",
		CurrentRole:      "Former SF Supervisor",
		PartyAffiliation: "Moderate Democrat",
		Gender:           "male",
		BioSummary:       "Former supervisor and interim mayor in 2018",
		KeyIssues:        []string{"public_safety", "housing", "economy"},
	},
	{
		Name:             "Ahsha Safai",
		CurrentRole:      "SF Board of Supervisors",
		PartyAffiliation: "Moderate Democrat",
		Gender:           "male",
		BioSummary:       "Supervisor from District 11, labor organizer background",
		KeyIssues:        []string{"housing", "labor", "homelessness"},
	},
}
