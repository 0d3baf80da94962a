package cli

import (
	"context"
	"fmt"

	"github.com/civiscope/civiscope-go/internal/client"
	"github.com/spf13/cobra"
)

var (
	researchTopics        []string
	researchDepth         string
	researchVotingRecords bool
	researchMaxSources    int
	researchWatch         bool
)

var researchCmd = &cobra.Command{
	Use:   "research <candidate>",
	Short: "Research a mayoral candidate",
	Long: `Start an asynchronous research task for a single candidate.

Examples:
  civiscope research "London Breed"
  civiscope research "Daniel Lurie" --topics housing,homelessness --depth deep
  civiscope research "Aaron Peskin" --voting-records --watch`,
	Args: cobra.ExactArgs(1),
	RunE: runResearch,
}

func init() {
	researchCmd.Flags().StringSliceVarP(&researchTopics, "topics", "t", nil, "focus topics (default housing,public_safety,great_highway)")
	researchCmd.Flags().StringVarP(&researchDepth, "depth", "d", "standard", "research depth: quick, standard, deep")
	researchCmd.Flags().BoolVar(&researchVotingRecords, "voting-records", false, "include voting record searches")
	researchCmd.Flags().IntVar(&researchMaxSources, "max-sources", 0, "cap on collected sources (1-20)")
	researchCmd.Flags().BoolVarP(&researchWatch, "watch", "w", false, "stream live progress until the task finishes")
	rootCmd.AddCommand(researchCmd)
}

func runResearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	started, err := apiClient.StartCandidateResearch(ctx, client.CandidateResearchInput{
		CandidateName:        args[0],
		ResearchDepth:        researchDepth,
		FocusTopics:          researchTopics,
		IncludeVotingRecords: researchVotingRecords,
		MaxSources:           researchMaxSources,
	})
	if err != nil {
		return fmt.Errorf("start research: %w", err)
	}

	fmt.Printf("Research started: %s\n", started.ResearchID)
	fmt.Printf("  Estimated time: %ds\n", started.EstimatedTimeSeconds)

	if researchWatch {
		return RunWatchProgress(apiClient, started.ResearchID)
	}

	fmt.Printf("\nUse 'civiscope watch %s' to stream progress.\n", started.ResearchID)
	return nil
}
