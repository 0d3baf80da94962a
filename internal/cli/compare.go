package cli

import (
	"context"
	"fmt"

	"github.com/civiscope/civiscope-go/internal/client"
	"github.com/spf13/cobra"
)

var (
	compareTopic       string
	compareStanceCards bool
	compareWatch       bool
)

var compareCmd = &cobra.Command{
	Use:   "compare <candidate> <candidate> [candidate...]",
	Short: "Compare 2-5 candidates on an issue",
	Long: `Start an asynchronous comparison task across multiple candidates.

Examples:
  civiscope compare "London Breed" "Aaron Peskin" --topic housing
  civiscope compare "London Breed" "Daniel Lurie" "Mark Farrell" --topic great_highway --stance-cards --watch`,
	Args: cobra.RangeArgs(2, 5),
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().StringVarP(&compareTopic, "topic", "t", "", "focus topic for the comparison")
	compareCmd.Flags().BoolVar(&compareStanceCards, "stance-cards", false, "generate a stance card for the topic")
	compareCmd.Flags().BoolVarP(&compareWatch, "watch", "w", false, "stream live progress until the task finishes")
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	started, err := apiClient.StartComparison(ctx, client.ComparisonInput{
		CandidateNames:      args,
		FocusTopic:          compareTopic,
		GenerateStanceCards: compareStanceCards,
	})
	if err != nil {
		return fmt.Errorf("start comparison: %w", err)
	}

	fmt.Printf("Comparison started: %s\n", started.ResearchID)
	fmt.Printf("  Estimated time: %ds\n", started.EstimatedTimeSeconds)

	if compareWatch {
		return RunWatchProgress(apiClient, started.ResearchID)
	}

	fmt.Printf("\nUse 'civiscope watch %s' to stream progress.\n", started.ResearchID)
	return nil
}
