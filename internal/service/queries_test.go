package service

import (
	"testing"

	"github.com/civiscope/civiscope-go/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestBuildSearchQueriesQuickDepth(t *testing.T) {
	queries := buildSearchQueries("London Breed", []string{"housing", "public_safety"}, models.DepthQuick, false)

	assert.Len(t, queries, 2, "quick depth emits one query per topic")
	assert.Contains(t, queries[0], "housing")
	assert.Contains(t, queries[1], "public_safety")
}

func TestBuildSearchQueriesStandardDepth(t *testing.T) {
	queries := buildSearchQueries("London Breed", []string{"housing"}, models.DepthStandard, false)

	// Two per topic plus the general campaign query.
	assert.Len(t, queries, 3)
	assert.Contains(t, queries[2], "mayoral campaign")
}

func TestBuildSearchQueriesNeverExceedsCap(t *testing.T) {
	cases := []struct {
		name           string
		topics         []string
		depth          models.ResearchDepth
		includeRecords bool
	}{
		{"worst case deep", []string{"housing", "public_safety", "great_highway", "economy", "transit"}, models.DepthDeep, true},
		{"many topics standard", []string{"a", "b", "c", "d", "e", "f", "g"}, models.DepthStandard, false},
		{"many topics quick", []string{"a", "b", "c", "d", "e", "f", "g"}, models.DepthQuick, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			queries := buildSearchQueries("Aaron Peskin", tc.topics, tc.depth, tc.includeRecords)
			assert.LessOrEqual(t, len(queries), maxQueriesPerTask)
		})
	}
}

func TestBuildSearchQueriesDeepIncludesVotingRecord(t *testing.T) {
	queries := buildSearchQueries("Mark Farrell", []string{"housing"}, models.DepthDeep, true)

	found := false
	for _, q := range queries {
		if q == "Mark Farrell SF Board of Supervisors voting record" {
			found = true
		}
	}
	assert.True(t, found, "deep + extended search adds the voting-record query")

	// Without extended search the query is absent.
	queries = buildSearchQueries("Mark Farrell", []string{"housing"}, models.DepthDeep, false)
	for _, q := range queries {
		assert.NotEqual(t, "Mark Farrell SF Board of Supervisors voting record", q)
	}
}

func TestBuildSearchQueriesDeterministic(t *testing.T) {
	a := buildSearchQueries("London Breed", []string{"housing", "economy"}, models.DepthDeep, true)
	b := buildSearchQueries("London Breed", []string{"housing", "economy"}, models.DepthDeep, true)
	assert.Equal(t, a, b)
}

func TestComparisonQuery(t *testing.T) {
	assert.Equal(t,
		"Daniel Lurie San Francisco 2025 2026 position on housing",
		comparisonQuery("Daniel Lurie", "housing"))
	assert.Equal(t,
		"Daniel Lurie San Francisco 2025 2026 position",
		comparisonQuery("Daniel Lurie", ""))
}

func TestResultCapForDepth(t *testing.T) {
	assert.Equal(t, 2, resultCapForDepth(models.DepthQuick))
	assert.Equal(t, 3, resultCapForDepth(models.DepthStandard))
	assert.Equal(t, 3, resultCapForDepth(models.DepthDeep))
}
