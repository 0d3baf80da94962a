package cli

import (
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <research-id>",
	Short: "Stream live progress for a research task",
	Long: `Attach to a running research task and stream its progress updates
until it completes, fails, or is cancelled. Joining late replays the most
recent update first.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	return RunWatchProgress(apiClient, args[0])
}
