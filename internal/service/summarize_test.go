package service

import (
	"context"
	"testing"

	"github.com/civiscope/civiscope-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var breed = models.CandidateInfo{
	Name:             "London Breed",
	PartyAffiliation: "Democrat",
	Gender:           "female",
}

func TestHeuristicStanceCards(t *testing.T) {
	sources := []models.Source{
		{Title: "Breed unveils housing plan", URL: "https://example.com/1", Summary: "a major expansion of affordable housing"},
		{Title: "Transit budget shortfall", URL: "https://example.com/2", Summary: "muni funding gap widens"},
	}

	stances, err := Heuristic{}.StanceCards(context.Background(), breed, []string{"housing", "transit", "great_highway"}, sources)
	require.NoError(t, err)

	// great_highway has no matching source, so only two cards come back.
	require.Len(t, stances, 2)

	housing := stances[0]
	assert.Equal(t, "london-breed-housing-01", housing.StanceID)
	assert.Equal(t, "Should San Francisco prioritize housing?", housing.Question)
	require.Len(t, housing.CandidateMatches, 1)
	assert.Equal(t, models.AlignmentSupports, housing.CandidateMatches[0].Alignment)
	assert.Equal(t, "https://example.com/1", housing.CandidateMatches[0].SourceLink)
	assert.Equal(t, "Democrat", housing.CandidateMatches[0].Party)

	transit := stances[1]
	assert.Equal(t, "london-breed-transit-02", transit.StanceID)
}

func TestHeuristicStanceCardsNoSources(t *testing.T) {
	stances, err := Heuristic{}.StanceCards(context.Background(), breed, []string{"housing"}, nil)
	require.NoError(t, err)
	assert.Empty(t, stances)
}

func TestInferAlignment(t *testing.T) {
	tests := []struct {
		name    string
		summary string
		want    string
	}{
		{"explicit opposition", "came out against the proposal", models.AlignmentOpposes},
		{"reject keyword", "urged voters to reject the measure", models.AlignmentOpposes},
		{"no opposition keywords", "praised the new initiative", models.AlignmentSupports},
		{"empty", "", models.AlignmentSupports},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := inferAlignment([]models.Source{{Summary: tt.summary}})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHeuristicComparisonCard(t *testing.T) {
	profiles := []models.CandidateProfile{
		{
			Name:  "London Breed",
			Party: "Democrat",
			Sources: []models.Source{
				{Title: "Breed on housing", URL: "https://example.com/breed", Summary: "supports dense development"},
			},
		},
		{
			Name:  "Aaron Peskin",
			Party: "Democrat",
			Sources: []models.Source{
				{Title: "Peskin on housing", URL: "https://example.com/peskin", Summary: "campaigned against upzoning"},
			},
		},
		{
			Name: "Mark Farrell",
			// No sources: alignment defaults to supports, no link.
		},
	}

	card, err := Heuristic{}.ComparisonCard(context.Background(), "housing", profiles)
	require.NoError(t, err)
	require.NotNil(t, card)

	assert.Equal(t, "compare-housing-01", card.StanceID)
	require.Len(t, card.CandidateMatches, 3)
	assert.Equal(t, models.AlignmentSupports, card.CandidateMatches[0].Alignment)
	assert.Equal(t, models.AlignmentOpposes, card.CandidateMatches[1].Alignment)
	assert.Equal(t, models.AlignmentSupports, card.CandidateMatches[2].Alignment)
	assert.Empty(t, card.CandidateMatches[2].SourceLink)
}

func TestHeuristicComparisonCardEmptyTopic(t *testing.T) {
	card, err := Heuristic{}.ComparisonCard(context.Background(), "", []models.CandidateProfile{{Name: "London Breed"}})
	require.NoError(t, err)
	assert.Nil(t, card)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "london-breed", slugify("London Breed"))
	assert.Equal(t, "great_highway", slugify("great_highway"))
}
