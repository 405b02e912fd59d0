package syncer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/healthmap/pkg/apps"
	"github.com/agentstation/healthmap/pkg/conflicts"
	"github.com/agentstation/healthmap/pkg/identity"
	"github.com/agentstation/healthmap/pkg/jobs"
	"github.com/agentstation/healthmap/pkg/sources"
	"github.com/agentstation/healthmap/pkg/store"
)

// fakeSource is a scripted source adapter.
type fakeSource struct {
	id        sources.ID
	records   []*apps.Application
	pullErr   error
	pullCalls int

	factErr   map[apps.FactKind]error
	factCalls map[apps.FactKind]int
}

func newFakeSource(id sources.ID, records ...*apps.Application) *fakeSource {
	return &fakeSource{
		id:        id,
		records:   records,
		factErr:   make(map[apps.FactKind]error),
		factCalls: make(map[apps.FactKind]int),
	}
}

func (f *fakeSource) ID() sources.ID { return f.id }

func (f *fakeSource) TestConnection(_ context.Context) sources.ConnectionResult {
	return sources.ConnectionResult{OK: true}
}

func (f *fakeSource) Pull(_ context.Context) *sources.SyncResult[[]*apps.Application] {
	f.pullCalls++
	started := time.Now()
	if f.pullErr != nil {
		return sources.Fail[[]*apps.Application](f.pullErr, started)
	}
	out := make([]*apps.Application, 0, len(f.records))
	for _, app := range f.records {
		out = append(out, app.Copy())
	}
	return sources.OK(out, started)
}

func (f *fakeSource) PullFact(_ context.Context, _ *apps.Application, kind apps.FactKind) *sources.SyncResult[apps.Facts] {
	f.factCalls[kind]++
	started := time.Now()
	if err := f.factErr[kind]; err != nil {
		return sources.Fail[apps.Facts](err, started)
	}
	var facts apps.Facts
	facts.Apply(apps.Facts{
		TechStack: []string{"go"},
		Commits:   &apps.CommitActivity{Total: 10},
		Packages:  []apps.Package{{Name: "left-pad"}},
		Readme:    &apps.ReadmeQuality{Present: true, Score: 80},
		Build:     &apps.BuildStatus{State: "passing"},
		Security:  &apps.SecurityFindings{High: 1},
	}, kind)
	return sources.OK(facts, started)
}

// blockingSource parks in Pull until its context is cancelled.
type blockingSource struct {
	id      sources.ID
	pulling chan struct{}
}

func (b *blockingSource) ID() sources.ID { return b.id }

func (b *blockingSource) TestConnection(_ context.Context) sources.ConnectionResult {
	return sources.ConnectionResult{OK: true}
}

func (b *blockingSource) Pull(ctx context.Context) *sources.SyncResult[[]*apps.Application] {
	started := time.Now()
	close(b.pulling)
	<-ctx.Done()
	return sources.Fail[[]*apps.Application](ctx.Err(), started)
}

// failingJobStore rejects every job write.
type failingJobStore struct {
	*store.Memory
}

func (s *failingJobStore) UpsertJob(_ context.Context, _ *jobs.SyncJob) error {
	return fmt.Errorf("disk full")
}

func ownedApp(name, owner string) *apps.Application {
	app := &apps.Application{Name: name, Enabled: true}
	if owner != "" {
		app.SetOccupants(apps.RoleOwner, []apps.Occupant{{Raw: owner}})
	}
	return app
}

func newTestEngine(t *testing.T, srcs []sources.Source, opts ...Option) (*Engine, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	opts = append([]Option{WithRetry(1, 0)}, opts...)
	return New(mem, sources.NewRegistry(srcs...), nil, opts...), mem
}

func TestSyncDataSourceCompletes(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource(sources.RosterID,
		ownedApp("billing", "Jeff Jones"),
		ownedApp("invoicing", "Jane Doe"),
	)

	var started, completed, failed []*jobs.SyncJob
	engine, mem := newTestEngine(t, []sources.Source{src}, WithEvents(Events{
		JobStarted:   func(j *jobs.SyncJob) { started = append(started, j) },
		JobCompleted: func(j *jobs.SyncJob) { completed = append(completed, j) },
		JobFailed:    func(j *jobs.SyncJob) { failed = append(failed, j) },
	}))

	job, err := engine.SyncDataSource(ctx, sources.RosterID, "test")
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusCompleted, job.Status)
	assert.Equal(t, 2, job.Counts.Processed)
	assert.Equal(t, 2, job.Counts.Created)
	assert.Equal(t, 0, job.Counts.Errors)
	assert.False(t, job.EndTime.IsZero())

	// Exactly one started and one completed event, no failed.
	require.Len(t, started, 1)
	require.Len(t, completed, 1)
	assert.Empty(t, failed)
	assert.Equal(t, jobs.StatusRunning, started[0].Status)

	// Terminal state persisted.
	stored, err := mem.Job(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusCompleted, stored.Status)

	// Records landed in the store with generated ids.
	billing, err := mem.Application(ctx, "billing")
	require.NoError(t, err)
	assert.NotEmpty(t, billing.ID)
	assert.Equal(t, "roster", billing.Source)
}

func TestSyncDataSourceInvalidID(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	_, err := engine.SyncDataSource(context.Background(), "bogus", "test")
	assert.Error(t, err)
}

func TestSyncDataSourceUnregistered(t *testing.T) {
	var failed []*jobs.SyncJob
	engine, mem := newTestEngine(t, nil, WithEvents(Events{
		JobFailed: func(j *jobs.SyncJob) { failed = append(failed, j) },
	}))

	job, err := engine.SyncDataSource(context.Background(), sources.DocsID, "test")
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusFailed, job.Status)
	assert.Contains(t, job.Error, "not registered")
	require.Len(t, failed, 1)

	stored, err := mem.Job(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusFailed, stored.Status)
}

func TestSyncDataSourcePullFailure(t *testing.T) {
	src := newFakeSource(sources.DocsID)
	src.pullErr = fmt.Errorf("upstream 503")
	engine, _ := newTestEngine(t, []sources.Source{src})

	job, err := engine.SyncDataSource(context.Background(), sources.DocsID, "test")
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusFailed, job.Status)
	assert.Contains(t, job.Error, "upstream 503")
}

func TestJobStartPersistFailureStillTerminal(t *testing.T) {
	src := newFakeSource(sources.RosterID, ownedApp("billing", "Jeff Jones"))
	st := &failingJobStore{Memory: store.NewMemory()}

	var started, failed []*jobs.SyncJob
	engine := New(st, sources.NewRegistry(src), nil, WithEvents(Events{
		JobStarted: func(j *jobs.SyncJob) { started = append(started, j) },
		JobFailed:  func(j *jobs.SyncJob) { failed = append(failed, j) },
	}))

	job, err := engine.SyncDataSource(context.Background(), sources.RosterID, "test")
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, jobs.StatusFailed, job.Status)
	assert.Contains(t, job.Error, "persisting job record")
	assert.False(t, job.EndTime.IsZero())

	// The pipeline never ran; the job failed before the pull.
	assert.Equal(t, 0, src.pullCalls)

	// Event order holds: one started, one failed.
	require.Len(t, started, 1)
	require.Len(t, failed, 1)

	// The terminal record is still reachable through the history cache
	// even though the store rejected every write.
	got, err := engine.Job(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusFailed, got.Status)
}

func TestCancelMidSync(t *testing.T) {
	src := &blockingSource{id: sources.RosterID, pulling: make(chan struct{})}

	startedCh := make(chan string, 1)
	terminal := make(chan jobs.Status, 2)
	engine, mem := newTestEngine(t, []sources.Source{src}, WithEvents(Events{
		JobStarted:   func(j *jobs.SyncJob) { startedCh <- j.ID },
		JobCompleted: func(j *jobs.SyncJob) { terminal <- j.Status },
		JobFailed:    func(j *jobs.SyncJob) { terminal <- j.Status },
	}))

	done := make(chan *jobs.SyncJob, 1)
	go func() {
		job, _ := engine.SyncDataSource(context.Background(), sources.RosterID, "test")
		done <- job
	}()

	jobID := <-startedCh
	<-src.pulling
	assert.True(t, engine.Cancel(jobID))

	job := <-done
	assert.Equal(t, jobs.StatusCancelled, job.Status)
	assert.False(t, job.EndTime.IsZero())

	// Cancelled jobs emit neither a completed nor a failed event.
	select {
	case status := <-terminal:
		t.Fatalf("unexpected terminal event %s for cancelled job", status)
	default:
	}

	stored, err := mem.Job(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusCancelled, stored.Status)

	// The cancellation scope is gone once the job is terminal.
	assert.False(t, engine.Cancel(jobID))
}

func TestIncrementalDisabledRecordsSkipped(t *testing.T) {
	records := make([]*apps.Application, 0, 50)
	for i := 0; i < 50; i++ {
		app := ownedApp(fmt.Sprintf("app-%02d", i), "Jeff Jones")
		app.Enabled = i < 2 // 48 of 50 disabled
		records = append(records, app)
	}
	src := newFakeSource(sources.ReposID, records...)
	engine, _ := newTestEngine(t, []sources.Source{src})

	job, err := engine.SyncDataSource(context.Background(), sources.ReposID, "test")
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusCompleted, job.Status)
	assert.Equal(t, 50, job.Counts.Processed)
	assert.Equal(t, 48, job.Counts.Skipped)
	assert.Equal(t, 2, job.Counts.Created)

	require.Len(t, job.Steps, 6)
	for _, step := range job.Steps {
		// Every record accounts for every step exactly once.
		assert.Equal(t, 50, step.Total(), step.Name)
		assert.Equal(t, 2, step.Success, step.Name)
		assert.Equal(t, 48, step.Skipped, step.Name)
	}
	assert.Equal(t, 2, src.factCalls[apps.FactTechStack])
}

func TestIncrementalSecurityOnly(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 9, 1, 15, 0, 0, 0, time.UTC)

	src := newFakeSource(sources.ReposID, ownedApp("billing", "Jeff Jones"))
	engine, mem := newTestEngine(t, []sources.Source{src},
		WithClock(func() time.Time { return now }))

	// Already synced today, but the security pass never happened.
	existing := ownedApp("billing", "Jeff Jones")
	existing.LastSyncedAt = now.Add(-2 * time.Hour)
	existing.Facts.TechStack = []string{"go"}
	require.NoError(t, mem.UpsertApplication(ctx, existing))

	job, err := engine.SyncDataSource(ctx, sources.ReposID, "test")
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusCompleted, job.Status)

	assert.Equal(t, 1, src.factCalls[apps.FactSecurity])
	assert.Equal(t, 0, src.factCalls[apps.FactTechStack])

	for _, step := range job.Steps {
		if step.Name == "Security Findings" {
			assert.Equal(t, 1, step.Success)
		} else {
			assert.Equal(t, 1, step.Skipped, step.Name)
		}
	}

	stored, err := mem.Application(ctx, "billing")
	require.NoError(t, err)
	require.NotNil(t, stored.Facts.Security)
	// Earlier facts carry forward untouched.
	assert.Equal(t, []string{"go"}, stored.Facts.TechStack)
}

func TestIncrementalFullySyncedSkips(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 9, 1, 15, 0, 0, 0, time.UTC)

	src := newFakeSource(sources.ReposID, ownedApp("billing", "Jeff Jones"))
	engine, mem := newTestEngine(t, []sources.Source{src},
		WithClock(func() time.Time { return now }))

	existing := ownedApp("billing", "Jeff Jones")
	existing.LastSyncedAt = now.Add(-time.Hour)
	existing.Facts.Security = &apps.SecurityFindings{High: 1}
	require.NoError(t, mem.UpsertApplication(ctx, existing))

	job, err := engine.SyncDataSource(ctx, sources.ReposID, "test")
	require.NoError(t, err)
	assert.Equal(t, 1, job.Counts.Skipped)
	assert.Equal(t, 0, job.Counts.Updated)
	assert.Empty(t, src.factCalls)

	// The skipped record carries forward with a refreshed timestamp.
	stored, err := mem.Application(ctx, "billing")
	require.NoError(t, err)
	assert.True(t, stored.LastSyncedAt.Equal(now))
}

func TestStepFailureDoesNotAbortRecord(t *testing.T) {
	src := newFakeSource(sources.ReposID, ownedApp("billing", "Jeff Jones"))
	src.factErr[apps.FactCommits] = fmt.Errorf("rate limited")
	engine, _ := newTestEngine(t, []sources.Source{src})

	job, err := engine.SyncDataSource(context.Background(), sources.ReposID, "test")
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusCompletedWithErrors, job.Status)
	assert.Equal(t, 1, job.Counts.Errors)

	// Later steps still ran.
	assert.Equal(t, 1, src.factCalls[apps.FactSecurity])
	for _, step := range job.Steps {
		if step.Name == "Commit History" {
			assert.Equal(t, 1, step.Failed)
		} else {
			assert.Equal(t, 1, step.Success, step.Name)
		}
	}
}

func TestSyncAllOrderAndRetry(t *testing.T) {
	roster := newFakeSource(sources.RosterID)
	roster.pullErr = fmt.Errorf("boom")
	repos := newFakeSource(sources.ReposID, ownedApp("billing", "Jeff Jones"))

	engine, _ := newTestEngine(t, []sources.Source{roster, repos}, WithRetry(2, 0))

	summary := engine.SyncAll(context.Background(), "test")
	require.Len(t, summary.Jobs, 2)

	// Fixed dependency order, and the roster failure never blocks repos.
	assert.Equal(t, sources.RosterID, summary.Jobs[0].Source)
	assert.Equal(t, jobs.StatusFailed, summary.Jobs[0].Status)
	assert.Equal(t, sources.ReposID, summary.Jobs[1].Source)
	assert.Equal(t, jobs.StatusCompleted, summary.Jobs[1].Status)

	// The failing source was retried.
	assert.Equal(t, 2, roster.pullCalls)
	require.Len(t, summary.Failed(), 1)
}

func TestResolveOccupantsDuringSync(t *testing.T) {
	dir := identity.NewDirectory(&identity.Identity{
		Key:         "jjones",
		DisplayName: "Jeff Jones",
		GivenName:   "Jeff",
		FamilyName:  "Jones",
		Email:       "jjones@example.com",
		Enabled:     true,
	})
	mem := store.NewMemory()
	src := newFakeSource(sources.RosterID, ownedApp("billing", "Jones, Jeff"))
	engine := New(mem, sources.NewRegistry(src), identity.NewResolver(dir))

	job, err := engine.SyncDataSource(context.Background(), sources.RosterID, "test")
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusCompleted, job.Status)

	stored, err := mem.Application(context.Background(), "billing")
	require.NoError(t, err)
	owners := stored.Occupants(apps.RoleOwner)
	require.Len(t, owners, 1)
	assert.Equal(t, "Jones, Jeff", owners[0].Raw)
	assert.Equal(t, "jjones", owners[0].Resolved)
}

func TestConflictDetectedOnlyOnInsert(t *testing.T) {
	// No owner: every pass detects the same role conflict.
	src := newFakeSource(sources.RosterID, ownedApp("orphaned", ""))

	var events []*conflicts.Conflict
	engine, mem := newTestEngine(t, []sources.Source{src}, WithEvents(Events{
		ConflictDetected: func(c *conflicts.Conflict) { events = append(events, c) },
	}))

	_, err := engine.SyncDataSource(context.Background(), sources.RosterID, "test")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, conflicts.KindRole, events[0].Kind)
	assert.NotEmpty(t, events[0].ID)

	// Second pass dedups on the natural key: no new conflict, no event.
	_, err = engine.SyncDataSource(context.Background(), sources.RosterID, "test")
	require.NoError(t, err)
	assert.Len(t, events, 1)

	open, err := mem.Conflicts(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestResolvedDuplicateNotResurrected(t *testing.T) {
	ctx := context.Background()
	billing := ownedApp("billing", "Jeff Jones")
	billing.Repository = "https://github.com/acme/shared"
	invoicing := ownedApp("invoicing", "Jeff Jones")
	invoicing.Repository = "git@github.com:acme/shared.git"
	src := newFakeSource(sources.ReposID, billing, invoicing)

	var events []*conflicts.Conflict
	engine, mem := newTestEngine(t, []sources.Source{src}, WithEvents(Events{
		ConflictDetected: func(c *conflicts.Conflict) { events = append(events, c) },
	}))

	_, err := engine.SyncDataSource(ctx, sources.ReposID, "test")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, conflicts.KindDuplicateRepository, events[0].Kind)

	// A human resolves the duplication.
	open, err := mem.Conflicts(ctx, false)
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.NoError(t, open[0].Resolve("admin", "invoicing is being split out", time.Now().UTC()))
	require.NoError(t, mem.UpdateConflict(ctx, open[0]))

	// Re-syncing unchanged data re-detects the same natural key; the
	// resolved conflict must not come back as a fresh open one.
	_, err = engine.SyncDataSource(ctx, sources.ReposID, "test")
	require.NoError(t, err)
	assert.Len(t, events, 1)

	open, err = mem.Conflicts(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, open)

	all, err := mem.Conflicts(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Resolved)
}

func TestJobsReadThroughHydration(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	old := jobs.New("old-job", sources.RosterID, "test")
	require.NoError(t, old.Transition(jobs.StatusRunning, time.Now().UTC()))
	require.NoError(t, old.Transition(jobs.StatusCompleted, time.Now().UTC()))
	require.NoError(t, mem.UpsertJob(ctx, old))

	engine := New(mem, sources.NewRegistry(), nil)

	list, err := engine.Jobs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "old-job", list[0].ID)

	got, err := engine.Job(ctx, "old-job")
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusCompleted, got.Status)
}

func TestProgressEvents(t *testing.T) {
	src := newFakeSource(sources.RosterID,
		ownedApp("billing", "Jeff Jones"),
		ownedApp("invoicing", "Jeff Jones"),
	)
	var progress []Progress
	engine, _ := newTestEngine(t, []sources.Source{src}, WithEvents(Events{
		Progress: func(p Progress) { progress = append(progress, p) },
	}))

	job, err := engine.SyncDataSource(context.Background(), sources.RosterID, "test")
	require.NoError(t, err)

	var recordUpdates int
	for _, p := range progress {
		assert.Equal(t, job.ID, p.JobID)
		if p.Phase == "records" {
			recordUpdates++
			assert.Equal(t, 2, p.Total)
		}
	}
	assert.Equal(t, 2, recordUpdates)
}
