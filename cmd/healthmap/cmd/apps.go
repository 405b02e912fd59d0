package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentstation/healthmap/pkg/apps"
)

// appsCmd lists aggregated application records.
var appsCmd = &cobra.Command{
	Use:   "apps [name]",
	Short: "List aggregated application records or show one in detail",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runApps,
}

func init() {
	rootCmd.AddCommand(appsCmd)
}

func runApps(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if len(args) == 1 {
		app, err := client.Application(ctx, strings.ToLower(strings.TrimSpace(args[0])))
		if err != nil {
			return err
		}
		printApp(app)
		return nil
	}

	list, err := client.Applications(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No application records. Run a sync first.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tREPOSITORY\tENABLED\tOWNERS\tLAST SYNCED")
	for _, app := range list {
		lastSynced := "-"
		if !app.LastSyncedAt.IsZero() {
			lastSynced = app.LastSyncedAt.Format(time.DateOnly)
		}
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n",
			app.Name, app.Repository, app.Enabled,
			occupantList(app.Occupants(apps.RoleOwner)), lastSynced)
	}
	return w.Flush()
}

func printApp(app *apps.Application) {
	fmt.Printf("Name:       %s\n", app.Name)
	fmt.Printf("ID:         %s\n", app.ID)
	fmt.Printf("Repository: %s\n", app.Repository)
	fmt.Printf("Enabled:    %t\n", app.Enabled)
	fmt.Printf("Source:     %s\n", app.Source)
	if !app.LastSyncedAt.IsZero() {
		fmt.Printf("Synced:     %s\n", app.LastSyncedAt.Format(time.RFC3339))
	}
	for _, role := range []apps.Role{apps.RoleOwner, apps.RoleTechLead, apps.RoleProductMgr} {
		if occ := app.Occupants(role); len(occ) > 0 {
			fmt.Printf("%-11s %s\n", strings.ReplaceAll(role.String(), "_", " ")+":", occupantList(occ))
		}
	}
	if len(app.Facts.TechStack) > 0 {
		fmt.Printf("Tech stack: %s\n", strings.Join(app.Facts.TechStack, ", "))
	}
	if app.Facts.Commits != nil {
		fmt.Printf("Commits:    %d total, %d authors, last %s\n",
			app.Facts.Commits.Total, app.Facts.Commits.Authors,
			app.Facts.Commits.LastCommit.Format(time.DateOnly))
	}
	if app.Facts.Readme != nil {
		fmt.Printf("README:     present=%t score=%d\n", app.Facts.Readme.Present, app.Facts.Readme.Score)
	}
	if app.Facts.Build != nil {
		fmt.Printf("Build:      %s\n", app.Facts.Build.State)
	}
	if app.Facts.Security != nil {
		s := app.Facts.Security
		fmt.Printf("Security:   %d critical, %d high, %d medium, %d low\n", s.Critical, s.High, s.Medium, s.Low)
	}
}

// occupantList renders occupants, preferring the resolved directory key.
func occupantList(occupants []apps.Occupant) string {
	if len(occupants) == 0 {
		return "-"
	}
	parts := make([]string, len(occupants))
	for i, occ := range occupants {
		if occ.Resolved != "" {
			parts[i] = occ.Resolved
		} else {
			parts[i] = occ.Raw
		}
	}
	return strings.Join(parts, ", ")
}
