package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var activeCmd = &cobra.Command{
	Use:   "active",
	Short: "List currently running research tasks",
	Args:  cobra.NoArgs,
	RunE:  runActive,
}

func init() {
	rootCmd.AddCommand(activeCmd)
}

func runActive(cmd *cobra.Command, args []string) error {
	tasks, err := apiClient.ListActive(context.Background())
	if err != nil {
		return fmt.Errorf("list active tasks: %w", err)
	}

	if len(tasks) == 0 {
		fmt.Println("No active research tasks")
		return nil
	}

	fmt.Printf("%-36s %-15s %-5s %s\n", "ID", "KIND", "PCT", "STEP")
	fmt.Println(strings.Repeat("-", 90))
	for _, task := range tasks {
		fmt.Printf("%-36s %-15s %3d%% %s\n", task.ResearchID, task.Kind, task.PercentComplete, task.CurrentStep)
	}
	return nil
}
