package healthmap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/agentstation/healthmap/pkg/apps"
	"github.com/agentstation/healthmap/pkg/conflicts"
	"github.com/agentstation/healthmap/pkg/identity"
	"github.com/agentstation/healthmap/pkg/jobs"
	"github.com/agentstation/healthmap/pkg/sources"
)

const rosterFixture = `- name: billing
  repository: https://github.com/acme/billing
  enabled: true
  roles:
    owner:
      - raw: Jeff Jones
- name: orphaned
  enabled: true
`

func writeRoster(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roster.yaml")
	if err := os.WriteFile(path, []byte(rosterFixture), 0o644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
	return path
}

func testDirectory() identity.Directory {
	return identity.NewDirectory(&identity.Identity{
		Key:         "jjones",
		DisplayName: "Jeff Jones",
		GivenName:   "Jeff",
		FamilyName:  "Jones",
		Email:       "jjones@example.com",
		Enabled:     true,
	})
}

// TestSyncIntegration runs one sync end to end through the public API:
// pull, identity resolution, conflict detection, and hooks.
func TestSyncIntegration(t *testing.T) {
	ctx := context.Background()

	hm, err := New(
		WithSources(sources.NewFileSource(sources.RosterID, writeRoster(t))),
		WithDirectory(testDirectory()),
	)
	if err != nil {
		t.Fatalf("Failed to create healthmap: %v", err)
	}

	var startedCount, completedCount, conflictCount int
	hm.OnJobStarted(func(_ *jobs.SyncJob) { startedCount++ })
	hm.OnJobCompleted(func(_ *jobs.SyncJob) { completedCount++ })
	hm.OnConflictDetected(func(_ *conflicts.Conflict) { conflictCount++ })

	job, err := hm.Sync(ctx, sources.RosterID, "test")
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if job.Status != jobs.StatusCompleted {
		t.Fatalf("Expected completed job, got %s (%s)", job.Status, job.Error)
	}
	if job.Counts.Processed != 2 || job.Counts.Created != 2 {
		t.Errorf("Unexpected counts: %+v", job.Counts)
	}
	if startedCount != 1 {
		t.Errorf("Expected 1 started hook call, got %d", startedCount)
	}
	if completedCount != 1 {
		t.Errorf("Expected 1 completed hook call, got %d", completedCount)
	}

	// The owner occupant resolved against the directory.
	billing, err := hm.Application(ctx, "billing")
	if err != nil {
		t.Fatalf("Application lookup failed: %v", err)
	}
	owners := billing.Occupants(apps.RoleOwner)
	if len(owners) != 1 || owners[0].Resolved != "jjones" {
		t.Errorf("Expected resolved owner jjones, got %+v", owners)
	}

	// The record without an owner produced a role conflict.
	open, err := hm.Conflicts(ctx, false)
	if err != nil {
		t.Fatalf("Conflicts failed: %v", err)
	}
	if len(open) != 1 {
		t.Fatalf("Expected 1 open conflict, got %d", len(open))
	}
	if open[0].Application != "orphaned" {
		t.Errorf("Expected conflict on orphaned, got %s", open[0].Application)
	}
	if conflictCount != 1 {
		t.Errorf("Expected 1 conflict hook call, got %d", conflictCount)
	}

	// Job queries go through the same client.
	got, err := hm.Job(ctx, job.ID)
	if err != nil {
		t.Fatalf("Job lookup failed: %v", err)
	}
	if got.Status != jobs.StatusCompleted {
		t.Errorf("Expected completed, got %s", got.Status)
	}
	list, err := hm.Jobs(ctx, 0)
	if err != nil {
		t.Fatalf("Jobs failed: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("Expected 1 job in history, got %d", len(list))
	}
}

func TestHookIntegration(t *testing.T) {
	hm, err := New(
		WithSources(sources.NewFileSource(sources.RosterID, writeRoster(t))),
	)
	if err != nil {
		t.Fatalf("Failed to create healthmap: %v", err)
	}

	var progressCount int
	hm.OnProgress(func(p SyncProgress) {
		if p.JobID == "" {
			t.Error("Progress update missing job id")
		}
		progressCount++
	})

	if _, err := hm.Sync(context.Background(), sources.RosterID, "test"); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if progressCount == 0 {
		t.Error("Expected progress hook calls")
	}
}

func TestResolveConflictFlow(t *testing.T) {
	ctx := context.Background()
	hm, err := New(
		WithSources(sources.NewFileSource(sources.RosterID, writeRoster(t))),
	)
	if err != nil {
		t.Fatalf("Failed to create healthmap: %v", err)
	}
	if _, err := hm.Sync(ctx, sources.RosterID, "test"); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	open, err := hm.Conflicts(ctx, false)
	if err != nil || len(open) != 1 {
		t.Fatalf("Expected 1 open conflict, got %d (err %v)", len(open), err)
	}

	if err := hm.ResolveConflict(ctx, open[0].ID, "admin", "assigned an owner"); err != nil {
		t.Fatalf("ResolveConflict failed: %v", err)
	}

	open, err = hm.Conflicts(ctx, false)
	if err != nil {
		t.Fatalf("Conflicts failed: %v", err)
	}
	if len(open) != 0 {
		t.Errorf("Expected no open conflicts after resolution, got %d", len(open))
	}
	all, err := hm.Conflicts(ctx, true)
	if err != nil {
		t.Fatalf("Conflicts failed: %v", err)
	}
	if len(all) != 1 || !all[0].Resolved {
		t.Errorf("Expected 1 resolved conflict, got %+v", all)
	}
}

func TestResolveWithoutDirectory(t *testing.T) {
	hm, err := New()
	if err != nil {
		t.Fatalf("Failed to create healthmap: %v", err)
	}

	result := hm.Resolve(context.Background(), "Jeff Jones")
	if result.Matched() {
		t.Error("Expected no match without a directory")
	}
	if result.Explanation == "" {
		t.Error("Expected an explanation for the unmatched result")
	}
}

func TestResolveWithDirectory(t *testing.T) {
	hm, err := New(WithDirectory(testDirectory()))
	if err != nil {
		t.Fatalf("Failed to create healthmap: %v", err)
	}

	result := hm.Resolve(context.Background(), "jjones@example.com")
	if !result.Matched() {
		t.Fatalf("Expected a match: %s", result.Explanation)
	}
	if result.Identity.Key != "jjones" {
		t.Errorf("Expected jjones, got %s", result.Identity.Key)
	}
	if result.Tier != identity.TierExact {
		t.Errorf("Expected exact tier, got %s", result.Tier)
	}
}

func TestStoreDirPersistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	roster := writeRoster(t)

	hm, err := New(
		WithStoreDir(dir),
		WithSources(sources.NewFileSource(sources.RosterID, roster)),
	)
	if err != nil {
		t.Fatalf("Failed to create healthmap: %v", err)
	}
	if _, err := hm.Sync(ctx, sources.RosterID, "test"); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	// A fresh client over the same directory sees the synced records.
	reopened, err := New(WithStoreDir(dir))
	if err != nil {
		t.Fatalf("Failed to reopen healthmap: %v", err)
	}
	records, err := reopened.Applications(ctx)
	if err != nil {
		t.Fatalf("Applications failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("Expected 2 persisted records, got %d", len(records))
	}
	list, err := reopened.Jobs(ctx, 0)
	if err != nil {
		t.Fatalf("Jobs failed: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("Expected 1 persisted job, got %d", len(list))
	}
}

func TestTestConnection(t *testing.T) {
	hm, err := New(
		WithSources(sources.NewFileSource(sources.RosterID, writeRoster(t))),
	)
	if err != nil {
		t.Fatalf("Failed to create healthmap: %v", err)
	}

	if result := hm.TestConnection(context.Background(), sources.RosterID); !result.OK {
		t.Errorf("Expected OK connection, got %q", result.Message)
	}
	if result := hm.TestConnection(context.Background(), sources.DocsID); result.OK {
		t.Error("Expected failure for an unregistered source")
	}
}
