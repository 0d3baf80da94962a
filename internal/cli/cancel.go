package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <research-id>",
	Short: "Cancel a running research task",
	Args:  cobra.ExactArgs(1),
	RunE:  runCancel,
}

func init() {
	rootCmd.AddCommand(cancelCmd)
}

func runCancel(cmd *cobra.Command, args []string) error {
	if err := apiClient.Cancel(context.Background(), args[0]); err != nil {
		return fmt.Errorf("cancel research: %w", err)
	}
	fmt.Printf("Research %s cancelled\n", args[0])
	return nil
}
