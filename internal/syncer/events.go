// Package syncer implements the sync orchestration engine: job
// lifecycle, scheduling order, retry, cancellation, incremental
// re-fetch, and conflict detection across the four source adapters.
package syncer

import (
	"github.com/agentstation/healthmap/pkg/conflicts"
	"github.com/agentstation/healthmap/pkg/jobs"
	"github.com/agentstation/healthmap/pkg/sources"
)

// Progress describes one progress update emitted while a job runs.
type Progress struct {
	JobID     string
	Source    sources.ID
	Phase     string // "fetch", "records", "detect"
	Processed int
	Total     int
	Current   string // current item, usually an application name
	Message   string
}

// Events is the callback registry the engine emits into. Nil callbacks
// are skipped. For one job id the order is strictly JobStarted, zero or
// more Progress updates, then exactly one of JobCompleted/JobFailed.
// Cancelled jobs emit neither completion event.
type Events struct {
	JobStarted       func(job *jobs.SyncJob)
	JobCompleted     func(job *jobs.SyncJob)
	JobFailed        func(job *jobs.SyncJob)
	Progress         func(p Progress)
	ConflictDetected func(c *conflicts.Conflict)
}

// emitStarted fires the JobStarted callback with a copy of the job.
func (e Events) emitStarted(job *jobs.SyncJob) {
	if e.JobStarted != nil {
		e.JobStarted(job.Copy())
	}
}

// emitTerminal fires the completion callback matching the job's terminal
// status. Cancelled jobs emit nothing.
func (e Events) emitTerminal(job *jobs.SyncJob) {
	switch job.Status {
	case jobs.StatusCompleted, jobs.StatusCompletedWithErrors:
		if e.JobCompleted != nil {
			e.JobCompleted(job.Copy())
		}
	case jobs.StatusFailed:
		if e.JobFailed != nil {
			e.JobFailed(job.Copy())
		}
	}
}

// emitProgress fires the Progress callback.
func (e Events) emitProgress(p Progress) {
	if e.Progress != nil {
		e.Progress(p)
	}
}

// emitConflict fires the ConflictDetected callback.
func (e Events) emitConflict(c *conflicts.Conflict) {
	if e.ConflictDetected != nil {
		dup := *c
		e.ConflictDetected(&dup)
	}
}
