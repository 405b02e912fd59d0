// Package healthmap aggregates per-application health records from four
// upstream systems into one queryable picture: who owns each
// application, where its repository lives, how healthy the code is, and
// which records disagree with each other.
package healthmap

import (
	"context"
	"fmt"
	"time"

	"github.com/agentstation/healthmap/internal/syncer"
	"github.com/agentstation/healthmap/pkg/apps"
	"github.com/agentstation/healthmap/pkg/conflicts"
	"github.com/agentstation/healthmap/pkg/identity"
	"github.com/agentstation/healthmap/pkg/jobs"
	"github.com/agentstation/healthmap/pkg/sources"
	"github.com/agentstation/healthmap/pkg/store"
)

// Healthmap manages the aggregated application records with sync
// orchestration, identity resolution, conflict tracking, and event hooks
type Healthmap interface {
	// Sync runs one sync job for one source and returns its terminal record
	Sync(ctx context.Context, source sources.ID, triggeredBy string) (*jobs.SyncJob, error)

	// SyncAll syncs every registered source in dependency order with
	// per-source retry
	SyncAll(ctx context.Context, triggeredBy string) (*jobs.RunSummary, error)

	// CancelSync requests cancellation of a running job
	CancelSync(jobID string) bool

	// Job returns one sync job by id
	Job(ctx context.Context, id string) (*jobs.SyncJob, error)

	// Jobs returns sync jobs newest-first; limit <= 0 means all
	Jobs(ctx context.Context, limit int) ([]*jobs.SyncJob, error)

	// Application returns one aggregated record by its case-insensitive key
	Application(ctx context.Context, key string) (*apps.Application, error)

	// Applications lists all aggregated records
	Applications(ctx context.Context) ([]*apps.Application, error)

	// Conflicts lists recorded conflicts, optionally including resolved ones
	Conflicts(ctx context.Context, includeResolved bool) ([]*conflicts.Conflict, error)

	// ResolveConflict marks a conflict resolved with an audit trail
	ResolveConflict(ctx context.Context, id, resolvedBy, notes string) error

	// Resolve matches one free-text person reference against the directory
	Resolve(ctx context.Context, token string) identity.MatchResult

	// TestConnection probes one source adapter
	TestConnection(ctx context.Context, id sources.ID) sources.ConnectionResult

	// OnJobStarted registers a callback for when jobs start
	OnJobStarted(JobStartedHook)

	// OnJobCompleted registers a callback for when jobs complete
	OnJobCompleted(JobCompletedHook)

	// OnJobFailed registers a callback for when jobs fail
	OnJobFailed(JobFailedHook)

	// OnProgress registers a callback for job progress updates
	OnProgress(ProgressHook)

	// OnConflictDetected registers a callback for new conflicts
	OnConflictDetected(ConflictDetectedHook)
}

// healthmap is the internal implementation of the Healthmap interface
type healthmap struct {
	config    *config
	store     store.Store
	directory identity.Directory
	resolver  *identity.Resolver
	engine    *syncer.Engine

	// Event hooks
	hooks *hooks
}

// New creates a new Healthmap instance with the given options
func New(opts ...Option) (Healthmap, error) {
	hm := &healthmap{
		config: newConfig(),
		hooks:  newHooks(),
	}

	for _, opt := range opts {
		if err := opt(hm.config); err != nil {
			return nil, fmt.Errorf("applying options: %w", err)
		}
	}

	// Use the provided store, a file store, or fall back to memory.
	switch {
	case hm.config.store != nil:
		hm.store = hm.config.store
	case hm.config.storeDir != "":
		fs, err := store.NewFiles(hm.config.storeDir)
		if err != nil {
			return nil, fmt.Errorf("opening file store: %w", err)
		}
		hm.store = fs
	default:
		hm.store = store.NewMemory()
	}

	// Use the provided directory, a directory file, or none. Without a
	// directory, occupant resolution is skipped.
	switch {
	case hm.config.directory != nil:
		hm.directory = hm.config.directory
	case hm.config.directoryPath != "":
		dir, err := identity.LoadDirectoryFile(hm.config.directoryPath)
		if err != nil {
			return nil, fmt.Errorf("loading directory file: %w", err)
		}
		hm.directory = dir
	}
	if hm.directory != nil {
		hm.resolver = identity.NewResolver(hm.directory)
	}

	registry := sources.NewRegistry(hm.config.sources...)

	engineOpts := []syncer.Option{
		syncer.WithEvents(syncer.Events{
			JobStarted:       hm.hooks.fireJobStarted,
			JobCompleted:     hm.hooks.fireJobCompleted,
			JobFailed:        hm.hooks.fireJobFailed,
			Progress:         hm.fireProgress,
			ConflictDetected: hm.hooks.fireConflictDetected,
		}),
		syncer.WithMinConfidence(hm.config.minConfidence),
	}
	if hm.config.jobTimeout > 0 {
		engineOpts = append(engineOpts, syncer.WithJobTimeout(hm.config.jobTimeout))
	}
	if hm.config.maxAttempts > 0 {
		engineOpts = append(engineOpts, syncer.WithRetry(hm.config.maxAttempts, hm.config.retryDelay))
	}
	if hm.config.historyLimit > 0 {
		engineOpts = append(engineOpts, syncer.WithHistoryLimit(hm.config.historyLimit))
	}
	hm.engine = syncer.New(hm.store, registry, hm.resolver, engineOpts...)

	return hm, nil
}

// fireProgress adapts engine progress updates onto the public hook type.
func (hm *healthmap) fireProgress(p syncer.Progress) {
	hm.hooks.fireProgress(SyncProgress{
		JobID:     p.JobID,
		Source:    p.Source,
		Phase:     p.Phase,
		Processed: p.Processed,
		Total:     p.Total,
		Current:   p.Current,
		Message:   p.Message,
	})
}

// Sync runs one sync job for one source
func (hm *healthmap) Sync(ctx context.Context, source sources.ID, triggeredBy string) (*jobs.SyncJob, error) {
	return hm.engine.SyncDataSource(ctx, source, triggeredBy)
}

// SyncAll syncs every registered source in dependency order
func (hm *healthmap) SyncAll(ctx context.Context, triggeredBy string) (*jobs.RunSummary, error) {
	return hm.engine.SyncAll(ctx, triggeredBy), nil
}

// CancelSync requests cancellation of a running job
func (hm *healthmap) CancelSync(jobID string) bool {
	return hm.engine.Cancel(jobID)
}

// Job returns one sync job by id
func (hm *healthmap) Job(ctx context.Context, id string) (*jobs.SyncJob, error) {
	return hm.engine.Job(ctx, id)
}

// Jobs returns sync jobs newest-first
func (hm *healthmap) Jobs(ctx context.Context, limit int) ([]*jobs.SyncJob, error) {
	return hm.engine.Jobs(ctx, limit)
}

// Application returns one aggregated record by key
func (hm *healthmap) Application(ctx context.Context, key string) (*apps.Application, error) {
	return hm.store.Application(ctx, key)
}

// Applications lists all aggregated records
func (hm *healthmap) Applications(ctx context.Context) ([]*apps.Application, error) {
	return hm.store.Applications(ctx)
}

// Conflicts lists recorded conflicts
func (hm *healthmap) Conflicts(ctx context.Context, includeResolved bool) ([]*conflicts.Conflict, error) {
	return hm.store.Conflicts(ctx, includeResolved)
}

// ResolveConflict marks a conflict resolved with an audit trail
func (hm *healthmap) ResolveConflict(ctx context.Context, id, resolvedBy, notes string) error {
	c, err := hm.store.Conflict(ctx, id)
	if err != nil {
		return err
	}
	if err := c.Resolve(resolvedBy, notes, time.Now().UTC()); err != nil {
		return err
	}
	return hm.store.UpdateConflict(ctx, c)
}

// Resolve matches one free-text person reference against the directory
func (hm *healthmap) Resolve(ctx context.Context, token string) identity.MatchResult {
	if hm.resolver == nil {
		return identity.MatchResult{
			Input:       token,
			Tier:        identity.TierNoMatch,
			Explanation: "no identity directory configured",
		}
	}
	return hm.resolver.Resolve(ctx, token, identity.MatchContext{
		MinConfidence: hm.config.minConfidence,
	})
}

// TestConnection probes one source adapter
func (hm *healthmap) TestConnection(ctx context.Context, id sources.ID) sources.ConnectionResult {
	return hm.engine.TestConnection(ctx, id)
}

// OnJobStarted registers a callback for when jobs start
func (hm *healthmap) OnJobStarted(fn JobStartedHook) { hm.hooks.OnJobStarted(fn) }

// OnJobCompleted registers a callback for when jobs complete
func (hm *healthmap) OnJobCompleted(fn JobCompletedHook) { hm.hooks.OnJobCompleted(fn) }

// OnJobFailed registers a callback for when jobs fail
func (hm *healthmap) OnJobFailed(fn JobFailedHook) { hm.hooks.OnJobFailed(fn) }

// OnProgress registers a callback for job progress updates
func (hm *healthmap) OnProgress(fn ProgressHook) { hm.hooks.OnProgress(fn) }

// OnConflictDetected registers a callback for new conflicts
func (hm *healthmap) OnConflictDetected(fn ConflictDetectedHook) { hm.hooks.OnConflictDetected(fn) }
