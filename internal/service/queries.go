package service

import (
	"fmt"

	"github.com/civiscope/civiscope-go/internal/models"
)

// maxQueriesPerTask is the hard cap on search queries one task may issue.
// Bounding work by count is the backpressure mechanism protecting the
// external adapter; there is no wall-clock timeout in the core.
const maxQueriesPerTask = 5

// buildSearchQueries produces the deterministic query list for a
// single-subject task. The policy is not adaptive: the same inputs always
// yield the same queries, truncated to maxQueriesPerTask.
func buildSearchQueries(candidateName string, topics []string, depth models.ResearchDepth, includeVotingRecords bool) []string {
	var queries []string

	for _, topic := range topics {
		if depth == models.DepthQuick {
			queries = append(queries, fmt.Sprintf("%s San Francisco %s position 2025", candidateName, topic))
		} else {
			queries = append(queries,
				fmt.Sprintf("%s San Francisco %s policy stance", candidateName, topic),
				fmt.Sprintf("%s SF %s voting record", candidateName, topic),
			)
		}
	}

	if depth == models.DepthStandard || depth == models.DepthDeep {
		queries = append(queries, fmt.Sprintf("%s San Francisco mayoral campaign 2025 2026", candidateName))
	}

	if depth == models.DepthDeep && includeVotingRecords {
		queries = append(queries, fmt.Sprintf("%s SF Board of Supervisors voting record", candidateName))
	}

	if len(queries) > maxQueriesPerTask {
		queries = queries[:maxQueriesPerTask]
	}
	return queries
}

// comparisonQuery produces the single query used per candidate in a
// comparison task.
func comparisonQuery(candidateName, topic string) string {
	suffix := ""
	if topic != "" {
		suffix = " on " + topic
	}
	return fmt.Sprintf("%s San Francisco 2025 2026 position%s", candidateName, suffix)
}

// resultCapForDepth bounds how many results one query may return.
func resultCapForDepth(depth models.ResearchDepth) int {
	if depth == models.DepthQuick {
		return 2
	}
	return 3
}
