package syncer

import (
	"context"
	"time"

	"github.com/agentstation/healthmap/pkg/apps"
	"github.com/agentstation/healthmap/pkg/jobs"
	"github.com/agentstation/healthmap/pkg/logging"
	"github.com/agentstation/healthmap/pkg/sources"
)

// refreshMode is the per-record incremental decision.
type refreshMode int

const (
	// refreshFull runs every fact step in order.
	refreshFull refreshMode = iota
	// refreshSecurityOnly runs only the security step.
	refreshSecurityOnly
	// refreshSkip carries the record forward untouched.
	refreshSkip
)

// refreshModeFor applies the incremental policy: a record synced on
// today's calendar date with security data present is skipped, one
// synced today without security data gets a security-only pass, and
// everything else gets the full step sequence.
func refreshModeFor(app *apps.Application, now time.Time) refreshMode {
	if !app.SyncedToday(now) {
		return refreshFull
	}
	if app.HasSecurityData() {
		return refreshSkip
	}
	return refreshSecurityOnly
}

// stepNames maps fact kinds to the human-readable step names surfaced in
// job summaries.
var stepNames = map[apps.FactKind]string{
	apps.FactTechStack: "Tech Stack Detection",
	apps.FactCommits:   "Commit History",
	apps.FactPackages:  "Package Inventory",
	apps.FactReadme:    "README Quality",
	apps.FactBuild:     "Build Status",
	apps.FactSecurity:  "Security Findings",
}

// stepTracker accumulates per-step outcome counts across every record of
// one job. Every processed record accounts for every step exactly once,
// so each step's total equals the record count.
type stepTracker struct {
	steps map[apps.FactKind]*jobs.StepSummary
}

func newStepTracker() *stepTracker {
	t := &stepTracker{steps: make(map[apps.FactKind]*jobs.StepSummary, len(stepNames))}
	for _, kind := range apps.FactKinds() {
		t.steps[kind] = &jobs.StepSummary{Name: stepNames[kind]}
	}
	return t
}

func (t *stepTracker) success(kind apps.FactKind, d time.Duration) {
	s := t.steps[kind]
	s.Success++
	s.Duration += d
}

func (t *stepTracker) fail(kind apps.FactKind, d time.Duration) {
	s := t.steps[kind]
	s.Failed++
	s.Duration += d
}

func (t *stepTracker) skip(kind apps.FactKind) {
	t.steps[kind].Skipped++
}

// skipAll marks every step skipped for one record.
func (t *stepTracker) skipAll() {
	for _, kind := range apps.FactKinds() {
		t.skip(kind)
	}
}

// summaries returns the step summaries in refresh order.
func (t *stepTracker) summaries() []jobs.StepSummary {
	out := make([]jobs.StepSummary, 0, len(t.steps))
	for _, kind := range apps.FactKinds() {
		out = append(out, *t.steps[kind])
	}
	return out
}

// refreshFacts runs the incremental fact steps for one record, mutating
// app in place. It returns the number of failed steps and whether the
// record was skipped outright. A step failure never aborts the record;
// the remaining steps still run.
func (e *Engine) refreshFacts(ctx context.Context, fs sources.FactSource, app *apps.Application, now time.Time, tracker *stepTracker) (failed int, skipped bool) {
	if !app.Enabled {
		// Disabled or inaccessible records are skipped work, not failures.
		tracker.skipAll()
		return 0, true
	}

	mode := refreshModeFor(app, now)
	if mode == refreshSkip {
		// Carried forward untouched except for a refreshed timestamp.
		tracker.skipAll()
		app.LastSyncedAt = now
		return 0, true
	}

	log := logging.Ctx(ctx)
	for _, kind := range apps.FactKinds() {
		if ctx.Err() != nil {
			return failed, false
		}
		if mode == refreshSecurityOnly && kind != apps.FactSecurity {
			tracker.skip(kind)
			continue
		}
		start := time.Now()
		res := fs.PullFact(ctx, app, kind)
		if res.Success {
			app.Facts.Apply(res.Data, kind)
			tracker.success(kind, time.Since(start))
			continue
		}
		tracker.fail(kind, time.Since(start))
		failed++
		log.Warn().
			Str("application", app.Name).
			Str("step", kind.String()).
			Str("error_kind", res.ErrorKind.String()).
			Err(res.Err).
			Msg("Fact step failed")
	}

	// Only a clean full pass counts as a completed refresh; a partial
	// pass stays eligible for re-fetch on the next run today.
	if mode == refreshFull && failed == 0 {
		app.LastSyncedAt = now
	}
	return failed, false
}
