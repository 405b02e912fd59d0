package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// resolveCmd matches a free-text person reference against the directory.
var resolveCmd = &cobra.Command{
	Use:   "resolve <token>",
	Short: "Match a free-text person reference against the identity directory",
	Long: `Resolve runs the identity resolution cascade for one token, e.g.
"jsmith@example.com", "Smith, John" or "John Smith (Contractor)", and
prints the match with its confidence tier and any close alternatives.`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	result := client.Resolve(cmd.Context(), args[0])
	fmt.Printf("Input:      %s\n", result.Input)
	fmt.Printf("Normalized: %s\n", result.Normalized)
	fmt.Printf("Tier:       %s\n", result.Tier)
	if result.Matched() {
		fmt.Printf("Match:      %s (%s)\n", result.Identity.DisplayName, result.Identity.Key)
		fmt.Printf("Score:      %.2f via %s\n", result.Score, result.Strategy)
	} else {
		fmt.Printf("No match:   %s\n", result.Explanation)
	}
	for _, alt := range result.Alternatives {
		fmt.Printf("Also close: %s (%s) %.2f\n", alt.Identity.DisplayName, alt.Identity.Key, alt.Score)
	}
	return nil
}
