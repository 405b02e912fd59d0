// Package jobs defines the auditable record of one sync execution and
// its status state machine.
package jobs

import (
	"fmt"
	"time"

	"github.com/agentstation/healthmap/pkg/sources"
)

// Status is the lifecycle state of a sync job.
type Status string

// Job states: Pending -> Running -> {Completed, CompletedWithErrors,
// Failed, Cancelled}. Terminal states are immutable.
const (
	StatusPending             Status = "pending"
	StatusRunning             Status = "running"
	StatusCompleted           Status = "completed"
	StatusCompletedWithErrors Status = "completed_with_errors"
	StatusFailed              Status = "failed"
	StatusCancelled           Status = "cancelled"
)

// String returns the string representation of a status.
func (s Status) String() string {
	return string(s)
}

// Terminal reports whether the status is a terminal state.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCompletedWithErrors, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// validTransitions encodes the state machine.
var validTransitions = map[Status][]Status{
	StatusPending: {StatusRunning, StatusCancelled},
	StatusRunning: {StatusCompleted, StatusCompletedWithErrors, StatusFailed, StatusCancelled},
}

// CanTransition reports whether moving from s to next is legal.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Counts aggregates per-record outcomes of one job.
type Counts struct {
	Processed int `json:"processed" yaml:"processed"`
	Created   int `json:"created" yaml:"created"`
	Updated   int `json:"updated" yaml:"updated"`
	Errors    int `json:"errors" yaml:"errors"`
	Skipped   int `json:"skipped" yaml:"skipped"`
}

// SyncJob is one tracked execution of a sync for one data source.
// Created on request, mutated only by the orchestration engine while
// running, immutable once terminal.
type SyncJob struct {
	ID          string     `json:"id" yaml:"id"`
	Source      sources.ID `json:"source" yaml:"source"`
	Status      Status     `json:"status" yaml:"status"`
	TriggeredBy string     `json:"triggered_by" yaml:"triggered_by"`
	StartTime   time.Time  `json:"start_time,omitempty" yaml:"start_time,omitempty"`
	EndTime     time.Time  `json:"end_time,omitempty" yaml:"end_time,omitempty"`
	Counts      Counts     `json:"counts" yaml:"counts"`
	Error       string     `json:"error,omitempty" yaml:"error,omitempty"`

	// Steps summarizes the per-category incremental work, keyed in
	// execution order.
	Steps []StepSummary `json:"steps,omitempty" yaml:"steps,omitempty"`
}

// New creates a pending job for one source.
func New(id string, source sources.ID, triggeredBy string) *SyncJob {
	return &SyncJob{
		ID:          id,
		Source:      source,
		Status:      StatusPending,
		TriggeredBy: triggeredBy,
	}
}

// Transition moves the job to the next status, enforcing the state
// machine. Start and end times are recorded on the relevant edges.
func (j *SyncJob) Transition(next Status, now time.Time) error {
	if !j.Status.CanTransition(next) {
		return fmt.Errorf("invalid job transition %s -> %s", j.Status, next)
	}
	if next == StatusRunning {
		j.StartTime = now
	}
	if next.Terminal() {
		j.EndTime = now
	}
	j.Status = next
	return nil
}

// Duration returns the job's wall-clock duration, or zero while the job
// has not finished.
func (j *SyncJob) Duration() time.Duration {
	if j.StartTime.IsZero() || j.EndTime.IsZero() {
		return 0
	}
	return j.EndTime.Sub(j.StartTime)
}

// Copy returns a copy of the job safe for hand-out.
func (j *SyncJob) Copy() *SyncJob {
	dup := *j
	dup.Steps = append([]StepSummary(nil), j.Steps...)
	return &dup
}

// StepSummary is the named per-step outcome aggregation for structured
// diagnostics: how many records each fact step succeeded, failed, or
// skipped for, and how long the step took overall.
type StepSummary struct {
	Name     string        `json:"name" yaml:"name"`
	Success  int           `json:"success" yaml:"success"`
	Failed   int           `json:"failed" yaml:"failed"`
	Skipped  int           `json:"skipped" yaml:"skipped"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Total returns the number of records the step accounted for.
func (s StepSummary) Total() int {
	return s.Success + s.Failed + s.Skipped
}

// RunSummary aggregates the jobs of one SyncAll pass.
type RunSummary struct {
	Jobs      []*SyncJob    `json:"jobs" yaml:"jobs"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}

// Failed returns the jobs that ended in a failed state.
func (r *RunSummary) Failed() []*SyncJob {
	var failed []*SyncJob
	for _, j := range r.Jobs {
		if j.Status == StatusFailed {
			failed = append(failed, j)
		}
	}
	return failed
}

// Summary returns a human-readable one-line summary.
func (r *RunSummary) Summary() string {
	completed := 0
	for _, j := range r.Jobs {
		if j.Status == StatusCompleted || j.Status == StatusCompletedWithErrors {
			completed++
		}
	}
	return fmt.Sprintf("%d/%d sources synced in %s", completed, len(r.Jobs), r.Duration.Round(time.Millisecond))
}
