package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agentstation/healthmap/pkg/apps"
	"github.com/agentstation/healthmap/pkg/conflicts"
	"github.com/agentstation/healthmap/pkg/errors"
	"github.com/agentstation/healthmap/pkg/identity"
	"github.com/agentstation/healthmap/pkg/jobs"
	"github.com/agentstation/healthmap/pkg/logging"
	"github.com/agentstation/healthmap/pkg/sources"
	"github.com/agentstation/healthmap/pkg/store"
)

// Engine defaults.
const (
	// DefaultJobTimeout bounds one job's wall-clock runtime.
	DefaultJobTimeout = 60 * time.Minute
	// DefaultMaxAttempts is how many times SyncAll tries one source
	// before moving on.
	DefaultMaxAttempts = 3
	// DefaultRetryDelay is the fixed pause between SyncAll attempts.
	DefaultRetryDelay = 10 * time.Second
	// DefaultHistoryLimit bounds the in-memory job history cache.
	DefaultHistoryLimit = 100
)

// Engine orchestrates sync jobs: it runs one source's pull-merge-detect
// pipeline under a job record, enforces the job state machine, and owns
// cancellation and the read-through job history cache. The store remains
// the source of truth; the cache is hydrated lazily on first read.
type Engine struct {
	store    store.Store
	registry *sources.Registry
	resolver *identity.Resolver
	detector *conflicts.Detector
	events   Events

	jobTimeout    time.Duration
	maxAttempts   int
	retryDelay    time.Duration
	historyLimit  int
	minConfidence identity.Tier

	clock func() time.Time
	newID func() string

	// mu guards the job history cache and the cancellation scopes. Jobs
	// are coarse-grained enough that one mutex is not contended.
	mu       sync.Mutex
	history  []*jobs.SyncJob // newest first
	hydrated bool
	running  map[string]context.CancelFunc
}

// Option configures an Engine.
type Option func(*Engine)

// WithEvents sets the engine's event callbacks.
func WithEvents(events Events) Option {
	return func(e *Engine) { e.events = events }
}

// WithJobTimeout overrides the per-job timeout.
func WithJobTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.jobTimeout = d
		}
	}
}

// WithRetry overrides SyncAll's per-source attempt count and the fixed
// delay between attempts.
func WithRetry(maxAttempts int, delay time.Duration) Option {
	return func(e *Engine) {
		if maxAttempts > 0 {
			e.maxAttempts = maxAttempts
		}
		if delay >= 0 {
			e.retryDelay = delay
		}
	}
}

// WithHistoryLimit bounds the in-memory job history cache.
func WithHistoryLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.historyLimit = n
		}
	}
}

// WithMinConfidence sets the confidence tier below which an occupant
// match is discarded during sync.
func WithMinConfidence(tier identity.Tier) Option {
	return func(e *Engine) { e.minConfidence = tier }
}

// WithDetector replaces the default conflict detector.
func WithDetector(d *conflicts.Detector) Option {
	return func(e *Engine) { e.detector = d }
}

// WithClock overrides the engine clock. Used by tests.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// New creates an engine over a store, a source registry, and an identity
// resolver. The resolver may be nil; occupant resolution and the
// user-not-found conflict rule are then skipped.
func New(st store.Store, registry *sources.Registry, resolver *identity.Resolver, opts ...Option) *Engine {
	e := &Engine{
		store:         st,
		registry:      registry,
		resolver:      resolver,
		jobTimeout:    DefaultJobTimeout,
		maxAttempts:   DefaultMaxAttempts,
		retryDelay:    DefaultRetryDelay,
		historyLimit:  DefaultHistoryLimit,
		minConfidence: identity.TierMedium,
		clock:         func() time.Time { return time.Now().UTC() },
		newID:         uuid.NewString,
		running:       make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.detector == nil {
		e.detector = conflicts.NewDetector(resolver, conflicts.WithMinConfidence(e.minConfidence))
	}
	return e
}

// SyncDataSource runs one sync job for one source and returns the
// terminal job record. The job is persisted at Running and again at its
// terminal state, so a crash between the two leaves a visible Running
// record. A store failure at either write fails the job rather than
// escaping as an error; only an invalid source id is rejected before a
// job is created.
func (e *Engine) SyncDataSource(ctx context.Context, id sources.ID, triggeredBy string) (*jobs.SyncJob, error) {
	if !id.IsValid() {
		return nil, errors.NewValidationError("source", id.String(), "unknown source id")
	}

	job := jobs.New(e.newID(), id, triggeredBy)
	jobCtx, cancel := context.WithTimeout(ctx, e.jobTimeout)
	defer cancel()
	e.track(job.ID, cancel)
	defer e.untrack(job.ID)

	if err := job.Transition(jobs.StatusRunning, e.clock()); err != nil {
		return nil, err
	}
	startErr := e.store.UpsertJob(ctx, job)
	e.recordJob(job)
	e.events.emitStarted(job)

	if startErr != nil {
		// The call still produces exactly one terminal job record even
		// when the start could not be written through.
		logging.Ctx(ctx).Error().Err(startErr).Str("job", job.ID).Msg("Failed to persist job start")
		e.finish(job, jobs.StatusFailed, fmt.Sprintf("persisting job record: %v", startErr))
	} else {
		e.run(jobCtx, job)
	}

	// Persist the terminal record with an uncancellable context so a
	// cancelled job is still written through.
	if err := e.store.UpsertJob(context.WithoutCancel(ctx), job); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("job", job.ID).Msg("Failed to persist terminal job record")
	}
	e.recordJob(job)
	e.events.emitTerminal(job)
	return job.Copy(), nil
}

// run executes the job body and always leaves the job in a terminal
// state. Panics from source adapters are converted into a failed job.
func (e *Engine) run(ctx context.Context, job *jobs.SyncJob) {
	log := logging.Ctx(ctx).With().
		Str("job", job.ID).
		Str("source", job.Source.String()).
		Logger()

	defer func() {
		if r := recover(); r != nil {
			e.finish(job, jobs.StatusFailed, fmt.Sprintf("panic during sync: %v", r))
			log.Error().Any("panic", r).Msg("Sync job panicked")
		}
	}()

	src, ok := e.registry.Get(job.Source)
	if !ok {
		e.finish(job, jobs.StatusFailed, fmt.Sprintf("source %q is not registered", job.Source))
		return
	}
	if ctx.Err() != nil {
		e.finish(job, jobs.StatusCancelled, "")
		return
	}

	e.events.emitProgress(Progress{
		JobID:   job.ID,
		Source:  job.Source,
		Phase:   "fetch",
		Message: "pulling records",
	})
	pull := src.Pull(ctx)
	if !pull.Success {
		if ctx.Err() != nil {
			e.finish(job, jobs.StatusCancelled, "")
			return
		}
		e.finish(job, jobs.StatusFailed, pull.Error())
		log.Error().Err(pull.Err).Str("error_kind", pull.ErrorKind.String()).Msg("Source pull failed")
		return
	}

	records := pull.Data
	fs, _ := src.(sources.FactSource)
	tracker := newStepTracker()
	now := e.clock()

	for i, incoming := range records {
		if ctx.Err() != nil {
			e.finish(job, jobs.StatusCancelled, "")
			return
		}
		job.Counts.Processed++

		existing, err := e.store.Application(ctx, incoming.Key())
		if err != nil && !errors.IsNotFound(err) {
			job.Counts.Errors++
			log.Warn().Err(err).Str("application", incoming.Name).Msg("Application lookup failed")
			continue
		}

		merged := e.mergeRecord(incoming, existing, job.Source)
		e.resolveOccupants(ctx, merged)

		var skipped bool
		if fs != nil {
			var failed int
			failed, skipped = e.refreshFacts(ctx, fs, merged, now, tracker)
			job.Counts.Errors += failed
		}

		if err := e.store.UpsertApplication(ctx, merged); err != nil {
			job.Counts.Errors++
			log.Warn().Err(err).Str("application", merged.Name).Msg("Application upsert failed")
			continue
		}
		switch {
		case skipped:
			job.Counts.Skipped++
		case existing == nil:
			job.Counts.Created++
		default:
			job.Counts.Updated++
		}

		e.events.emitProgress(Progress{
			JobID:     job.ID,
			Source:    job.Source,
			Phase:     "records",
			Processed: i + 1,
			Total:     len(records),
			Current:   incoming.Name,
		})
	}
	if fs != nil {
		job.Steps = tracker.summaries()
	}

	if ctx.Err() != nil {
		e.finish(job, jobs.StatusCancelled, "")
		return
	}

	e.detectConflicts(ctx, job)
	if ctx.Err() != nil {
		e.finish(job, jobs.StatusCancelled, "")
		return
	}

	if job.Counts.Errors > 0 {
		e.finish(job, jobs.StatusCompletedWithErrors, fmt.Sprintf("%d record errors", job.Counts.Errors))
	} else {
		e.finish(job, jobs.StatusCompleted, "")
	}
	log.Info().
		Int("processed", job.Counts.Processed).
		Int("created", job.Counts.Created).
		Int("updated", job.Counts.Updated).
		Int("skipped", job.Counts.Skipped).
		Int("errors", job.Counts.Errors).
		Str("status", job.Status.String()).
		Msg("Sync job finished")
}

// mergeRecord overlays an incoming record onto the stored one. The
// roster source owns the enabled flag and role assignments; other
// sources contribute their own fields and fact categories without
// clobbering roster data.
func (e *Engine) mergeRecord(incoming, existing *apps.Application, src sources.ID) *apps.Application {
	if existing == nil {
		merged := incoming.Copy()
		if merged.ID == "" {
			merged.ID = e.newID()
		}
		if merged.Source == "" {
			merged.Source = src.String()
		}
		return merged
	}

	merged := existing.Copy()
	if incoming.Repository != "" {
		merged.Repository = incoming.Repository
	}
	for role, occ := range incoming.Roles {
		merged.SetOccupants(role, append([]apps.Occupant(nil), occ...))
	}
	if src == sources.RosterID {
		merged.Enabled = incoming.Enabled
	}
	for _, kind := range apps.FactKinds() {
		if hasFact(incoming.Facts, kind) {
			merged.Facts.Apply(incoming.Facts, kind)
		}
	}
	return merged
}

// hasFact reports whether a fact category carries data.
func hasFact(f apps.Facts, kind apps.FactKind) bool {
	switch kind {
	case apps.FactTechStack:
		return len(f.TechStack) > 0
	case apps.FactCommits:
		return f.Commits != nil
	case apps.FactPackages:
		return len(f.Packages) > 0
	case apps.FactReadme:
		return f.Readme != nil
	case apps.FactBuild:
		return f.Build != nil
	case apps.FactSecurity:
		return f.Security != nil
	}
	return false
}

// resolveOccupants runs identity resolution over every unresolved role
// occupant, recording the directory key of confident matches.
func (e *Engine) resolveOccupants(ctx context.Context, app *apps.Application) {
	if e.resolver == nil {
		return
	}
	for role, occupants := range app.Roles {
		for i, occ := range occupants {
			if occ.Resolved != "" {
				continue
			}
			result := e.resolver.Resolve(ctx, occ.Raw, identity.MatchContext{
				MinConfidence: e.minConfidence,
				Application:   app.Name,
				Role:          role.String(),
				Source:        app.Source,
			})
			if result.Matched() {
				occupants[i].Resolved = result.Identity.Key
			}
		}
		app.SetOccupants(role, occupants)
	}
}

// detectConflicts runs the conflict rules over the full aggregated
// record set, assigns ids to fresh conflicts, and appends them with
// natural-key dedup. Only actually inserted conflicts emit an event.
func (e *Engine) detectConflicts(ctx context.Context, job *jobs.SyncJob) {
	e.events.emitProgress(Progress{
		JobID:   job.ID,
		Source:  job.Source,
		Phase:   "detect",
		Message: "running conflict detection",
	})

	all, err := e.store.Applications(ctx)
	if err != nil {
		job.Counts.Errors++
		logging.Ctx(ctx).Warn().Err(err).Str("job", job.ID).Msg("Conflict detection could not load records")
		return
	}

	for _, c := range e.detector.Detect(ctx, all, job.Source.String()) {
		if ctx.Err() != nil {
			return
		}
		c.ID = e.newID()
		inserted, err := e.store.AppendConflict(ctx, c)
		if err != nil {
			job.Counts.Errors++
			logging.Ctx(ctx).Warn().Err(err).Str("job", job.ID).Msg("Conflict append failed")
			continue
		}
		if inserted {
			e.events.emitConflict(c)
		}
	}
}

// finish moves a job to its terminal state, recording the error message
// where one applies. Already-terminal jobs are left untouched.
func (e *Engine) finish(job *jobs.SyncJob, status jobs.Status, msg string) {
	if job.Status.Terminal() {
		return
	}
	if msg != "" {
		job.Error = msg
	}
	// Running -> terminal is always legal; the guard above covers the rest.
	_ = job.Transition(status, e.clock())
}

// SyncAll syncs every registered source in the fixed dependency order.
// A source that fails is retried up to the configured attempt count
// with a fixed delay, and a source that exhausts its attempts never
// blocks the ones after it.
func (e *Engine) SyncAll(ctx context.Context, triggeredBy string) *jobs.RunSummary {
	started := e.clock()
	summary := &jobs.RunSummary{StartedAt: started}
	log := logging.Ctx(ctx)

	for _, id := range sources.SyncOrder() {
		if _, ok := e.registry.Get(id); !ok {
			continue
		}

		var job *jobs.SyncJob
		for attempt := 1; ; attempt++ {
			j, err := e.SyncDataSource(ctx, id, triggeredBy)
			if err != nil {
				log.Error().Err(err).Str("source", id.String()).Msg("Sync could not start")
				break
			}
			job = j
			if job.Status != jobs.StatusFailed || attempt >= e.maxAttempts || ctx.Err() != nil {
				break
			}
			log.Warn().
				Str("source", id.String()).
				Int("attempt", attempt).
				Int("max_attempts", e.maxAttempts).
				Str("error", job.Error).
				Msg("Sync failed, retrying")
			select {
			case <-ctx.Done():
			case <-time.After(e.retryDelay):
			}
			if ctx.Err() != nil {
				break
			}
		}
		if job != nil {
			summary.Jobs = append(summary.Jobs, job)
		}
		if ctx.Err() != nil {
			break
		}
	}

	summary.Duration = e.clock().Sub(started)
	log.Info().
		Int("jobs", len(summary.Jobs)).
		Int("failed", len(summary.Failed())).
		Dur("duration", summary.Duration).
		Msg("Full sync finished")
	return summary
}

// Cancel requests cancellation of a running job. It reports whether a
// job with that id was running; the job itself transitions to Cancelled
// at its next cancellation check.
func (e *Engine) Cancel(jobID string) bool {
	e.mu.Lock()
	cancel, ok := e.running[jobID]
	e.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// TestConnection probes one source adapter.
func (e *Engine) TestConnection(ctx context.Context, id sources.ID) sources.ConnectionResult {
	src, ok := e.registry.Get(id)
	if !ok {
		return sources.ConnectionResult{
			Message: fmt.Sprintf("source %q is not registered", id),
			Err:     errors.NewNotFoundError("source", id.String()),
		}
	}
	return src.TestConnection(ctx)
}

// Job returns one job by id, read through the history cache.
func (e *Engine) Job(ctx context.Context, id string) (*jobs.SyncJob, error) {
	e.mu.Lock()
	for _, j := range e.history {
		if j.ID == id {
			dup := j.Copy()
			e.mu.Unlock()
			return dup, nil
		}
	}
	e.mu.Unlock()
	return e.store.Job(ctx, id)
}

// Jobs returns jobs newest-first through the lazily hydrated history
// cache. limit <= 0 means all cached jobs.
func (e *Engine) Jobs(ctx context.Context, limit int) ([]*jobs.SyncJob, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.hydrateLocked(ctx); err != nil {
		return nil, err
	}
	n := len(e.history)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*jobs.SyncJob, 0, n)
	for _, j := range e.history[:n] {
		out = append(out, j.Copy())
	}
	return out, nil
}

// hydrateLocked fills the history cache from the store once. Jobs that
// ran before hydration are already cached by recordJob and win over the
// stored copy.
func (e *Engine) hydrateLocked(ctx context.Context) error {
	if e.hydrated {
		return nil
	}
	stored, err := e.store.Jobs(ctx, e.historyLimit)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(e.history))
	for _, j := range e.history {
		seen[j.ID] = true
	}
	for _, j := range stored {
		if !seen[j.ID] {
			e.history = append(e.history, j)
		}
	}
	e.trimHistoryLocked()
	e.hydrated = true
	return nil
}

// recordJob inserts or updates a job in the history cache.
func (e *Engine) recordJob(job *jobs.SyncJob) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, j := range e.history {
		if j.ID == job.ID {
			e.history[i] = job.Copy()
			return
		}
	}
	e.history = append([]*jobs.SyncJob{job.Copy()}, e.history...)
	e.trimHistoryLocked()
}

func (e *Engine) trimHistoryLocked() {
	if len(e.history) > e.historyLimit {
		e.history = e.history[:e.historyLimit]
	}
}

// track registers a running job's cancellation scope.
func (e *Engine) track(jobID string, cancel context.CancelFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running[jobID] = cancel
}

// untrack removes a finished job's cancellation scope.
func (e *Engine) untrack(jobID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.running, jobID)
}
