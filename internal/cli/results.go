package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/civiscope/civiscope-go/internal/client"
	"github.com/spf13/cobra"
)

var resultsCmd = &cobra.Command{
	Use:   "results <research-id>",
	Short: "Fetch the archived results of a finished task",
	Args:  cobra.ExactArgs(1),
	RunE:  runResults,
}

func init() {
	rootCmd.AddCommand(resultsCmd)
}

func runResults(cmd *cobra.Command, args []string) error {
	raw, err := apiClient.GetResults(context.Background(), args[0])
	if errors.Is(err, client.ErrInProgress) {
		fmt.Printf("Research %s is still in progress. Use 'civiscope watch %s' to follow it.\n", args[0], args[0])
		return nil
	}
	if err != nil {
		return fmt.Errorf("get results: %w", err)
	}

	fmt.Println(string(raw))
	return nil
}
