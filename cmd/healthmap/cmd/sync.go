package cmd

import (
	"fmt"
	"os"
	"os/user"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentstation/healthmap"
	"github.com/agentstation/healthmap/pkg/conflicts"
	"github.com/agentstation/healthmap/pkg/jobs"
	"github.com/agentstation/healthmap/pkg/sources"
)

var syncAll bool

// syncCmd triggers sync jobs.
var syncCmd = &cobra.Command{
	Use:   "sync [source]",
	Short: "Sync application records from upstream sources",
	Long: `Sync runs one sync job for the named source, or every configured
source in dependency order (roster, docs, repos, traffic) with --all.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncAll, "all", false, "sync every configured source in order")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if !syncAll && len(args) == 0 {
		return fmt.Errorf("name a source (%v) or pass --all", sources.SyncOrder())
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	client.OnProgress(func(p healthmap.SyncProgress) {
		if verbose && p.Total > 0 {
			fmt.Fprintf(os.Stderr, "%s: %d/%d %s\n", p.Source, p.Processed, p.Total, p.Current)
		}
	})
	client.OnConflictDetected(func(c *conflicts.Conflict) {
		fmt.Fprintf(os.Stderr, "conflict: %s %s: %s\n", c.Application, c.Kind, c.Description)
	})

	ctx := cmd.Context()
	triggeredBy := triggeredByUser()

	if syncAll {
		summary, err := client.SyncAll(ctx, triggeredBy)
		if err != nil {
			return err
		}
		printJobs(summary.Jobs)
		fmt.Println(summary.Summary())
		return nil
	}

	id := sources.ID(args[0])
	job, err := client.Sync(ctx, id, triggeredBy)
	if err != nil {
		return err
	}
	printJobs([]*jobs.SyncJob{job})
	if job.Status == jobs.StatusFailed {
		return fmt.Errorf("sync failed: %s", job.Error)
	}
	return nil
}

// triggeredByUser attributes CLI-triggered jobs to the local user.
func triggeredByUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return "cli:" + u.Username
	}
	return "cli"
}

// printJobs renders jobs as an aligned table.
func printJobs(list []*jobs.SyncJob) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSOURCE\tSTATUS\tPROCESSED\tCREATED\tUPDATED\tSKIPPED\tERRORS\tDURATION")
	for _, job := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			job.ID, job.Source, job.Status,
			job.Counts.Processed, job.Counts.Created, job.Counts.Updated,
			job.Counts.Skipped, job.Counts.Errors, job.Duration().Round(time.Millisecond))
	}
	_ = w.Flush()
}
