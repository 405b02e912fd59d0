package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var jobsLimit int

// jobsCmd lists sync jobs.
var jobsCmd = &cobra.Command{
	Use:   "jobs [id]",
	Short: "List sync jobs or show one job in detail",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runJobs,
}

func init() {
	jobsCmd.Flags().IntVar(&jobsLimit, "limit", 20, "maximum number of jobs to list (0 for all)")
	rootCmd.AddCommand(jobsCmd)
}

func runJobs(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if len(args) == 1 {
		job, err := client.Job(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Job:          %s\n", job.ID)
		fmt.Printf("Source:       %s\n", job.Source)
		fmt.Printf("Status:       %s\n", job.Status)
		fmt.Printf("Triggered by: %s\n", job.TriggeredBy)
		if !job.StartTime.IsZero() {
			fmt.Printf("Started:      %s\n", job.StartTime.Format(time.RFC3339))
		}
		if !job.EndTime.IsZero() {
			fmt.Printf("Ended:        %s (%s)\n", job.EndTime.Format(time.RFC3339), job.Duration().Round(time.Millisecond))
		}
		if job.Error != "" {
			fmt.Printf("Error:        %s\n", job.Error)
		}
		fmt.Printf("Counts:       %d processed, %d created, %d updated, %d skipped, %d errors\n",
			job.Counts.Processed, job.Counts.Created, job.Counts.Updated,
			job.Counts.Skipped, job.Counts.Errors)
		if len(job.Steps) > 0 {
			fmt.Println("Steps:")
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "  NAME\tSUCCESS\tFAILED\tSKIPPED\tDURATION")
			for _, step := range job.Steps {
				fmt.Fprintf(w, "  %s\t%d\t%d\t%d\t%s\n",
					step.Name, step.Success, step.Failed, step.Skipped,
					step.Duration.Round(time.Millisecond))
			}
			_ = w.Flush()
		}
		return nil
	}

	list, err := client.Jobs(ctx, jobsLimit)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No jobs recorded.")
		return nil
	}
	printJobs(list)
	return nil
}
