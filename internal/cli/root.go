// Package cli provides the command-line interface for civiscope.
package cli

import (
	"github.com/civiscope/civiscope-go/internal/client"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	serverURL string
	verbose   bool

	// apiClient talks to the research server.
	apiClient *client.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "civiscope",
	Short: "SF political research from the command line",
	Long: `Civiscope researches San Francisco mayoral candidates: their positions,
voting records, and stances on key local issues.

Research runs asynchronously on the civiscope server; commands start tasks,
stream live progress over websocket, and fetch archived results.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		apiClient = client.New(serverURL)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "", "server URL (default CIVISCOPE_SERVER_URL or http://localhost:8000)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
