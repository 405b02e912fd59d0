package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	conflictsAll bool
	resolveBy    string
	resolveNotes string
)

// conflictsCmd lists recorded data conflicts.
var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "List recorded data conflicts",
	RunE:  runConflicts,
}

// conflictsResolveCmd marks a conflict resolved.
var conflictsResolveCmd = &cobra.Command{
	Use:   "resolve <id>",
	Short: "Mark a conflict resolved with an audit trail",
	Args:  cobra.ExactArgs(1),
	RunE:  runConflictsResolve,
}

func init() {
	conflictsCmd.Flags().BoolVar(&conflictsAll, "all", false, "include resolved conflicts")
	conflictsResolveCmd.Flags().StringVar(&resolveBy, "by", "", "who is resolving the conflict (required)")
	conflictsResolveCmd.Flags().StringVar(&resolveNotes, "notes", "", "resolution notes")
	_ = conflictsResolveCmd.MarkFlagRequired("by")
	conflictsCmd.AddCommand(conflictsResolveCmd)
	rootCmd.AddCommand(conflictsCmd)
}

func runConflicts(cmd *cobra.Command, _ []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	list, err := client.Conflicts(cmd.Context(), conflictsAll)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No conflicts recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tAPPLICATION\tKIND\tRESOLVED\tDESCRIPTION")
	for _, c := range list {
		resolved := ""
		if c.Resolved {
			resolved = c.ResolvedBy
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Application, c.Kind, resolved, c.Description)
	}
	return w.Flush()
}

func runConflictsResolve(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	if err := client.ResolveConflict(cmd.Context(), args[0], resolveBy, resolveNotes); err != nil {
		return err
	}
	fmt.Printf("Conflict %s resolved by %s.\n", args[0], resolveBy)
	return nil
}
