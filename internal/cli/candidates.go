package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var candidatesCmd = &cobra.Command{
	Use:   "candidates [name]",
	Short: "List researchable candidates, or show one candidate's profile",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCandidates,
}

func init() {
	rootCmd.AddCommand(candidatesCmd)
}

func runCandidates(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		c, err := apiClient.GetCandidate(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("get candidate: %w", err)
		}
		fmt.Printf("%s\n", c.Name)
		fmt.Printf("  Role:       %s\n", c.CurrentRole)
		fmt.Printf("  Party:      %s\n", c.PartyAffiliation)
		fmt.Printf("  Bio:        %s\n", c.BioSummary)
		fmt.Printf("  Key issues: %s\n", strings.Join(c.KeyIssues, ", "))
		return nil
	}

	candidates, err := apiClient.ListCandidates(context.Background())
	if err != nil {
		return fmt.Errorf("list candidates: %w", err)
	}

	fmt.Printf("%-16s %-40s %s\n", "NAME", "ROLE", "PARTY")
	fmt.Println(strings.Repeat("-", 80))
	for _, c := range candidates {
		fmt.Printf("%-16s %-40s %s\n", c.Name, c.CurrentRole, c.PartyAffiliation)
		if verbose {
			fmt.Printf("  %s\n", c.BioSummary)
			fmt.Printf("  Key issues: %s\n", strings.Join(c.KeyIssues, ", "))
		}
	}
	return nil
}
