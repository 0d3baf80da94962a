package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <research-id>",
	Short: "Show the status of a research task",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	status, err := apiClient.GetStatus(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("get status: %w", err)
	}

	fmt.Printf("Research: %s\n", status.ResearchID)
	fmt.Printf("  Kind: %s\n", status.Kind)
	fmt.Printf("  Subjects: %v\n", status.Subjects)
	fmt.Printf("  Status: %s (%d%%)\n", status.Status, status.PercentComplete)
	fmt.Printf("  Step: %s\n", status.CurrentStep)
	fmt.Printf("  Sources found: %d\n", status.SourcesFound)
	fmt.Printf("  Started: %s\n", status.StartedAt)
	if status.CompletedAt != "" {
		fmt.Printf("  Completed: %s (%.1fs)\n", status.CompletedAt, status.ElapsedSeconds)
	}
	if status.Error != "" {
		fmt.Printf("  Error: %s\n", status.Error)
	}
	return nil
}
