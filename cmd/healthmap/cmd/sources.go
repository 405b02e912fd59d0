package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/agentstation/healthmap/pkg/sources"
)

// sourcesCmd shows configured sources and probes their connectivity.
var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Show configured sources and test their connectivity",
	RunE:  runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, _ []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tCONFIGURED\tSTATUS\tDETAIL")
	for _, id := range sources.SyncOrder() {
		if viper.GetString(sourceFileKeys[id]) == "" {
			fmt.Fprintf(w, "%s\tno\t-\t-\n", id)
			continue
		}
		result := client.TestConnection(cmd.Context(), id)
		status := "ok"
		detail := result.Message
		if !result.OK {
			status = "error"
			if result.Err != nil {
				detail = result.Err.Error()
			}
		}
		fmt.Fprintf(w, "%s\tyes\t%s\t%s\n", id, status, detail)
	}
	return w.Flush()
}
