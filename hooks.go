package healthmap

import (
	"sync"

	"github.com/agentstation/healthmap/pkg/conflicts"
	"github.com/agentstation/healthmap/pkg/jobs"
	"github.com/agentstation/healthmap/pkg/sources"
)

// SyncProgress is one progress update from a running sync job.
type SyncProgress struct {
	JobID     string
	Source    sources.ID
	Phase     string
	Processed int
	Total     int
	Current   string
	Message   string
}

// Hook function types for sync events
type (
	// JobStartedHook is called when a sync job begins running
	JobStartedHook func(job *jobs.SyncJob)

	// JobCompletedHook is called when a sync job completes, with or
	// without record errors
	JobCompletedHook func(job *jobs.SyncJob)

	// JobFailedHook is called when a sync job fails
	JobFailedHook func(job *jobs.SyncJob)

	// ProgressHook is called as a running job makes progress
	ProgressHook func(p SyncProgress)

	// ConflictDetectedHook is called when a new conflict is recorded
	ConflictDetectedHook func(c *conflicts.Conflict)
)

// hooks manages event callbacks for sync activity
type hooks struct {
	mu                 sync.RWMutex
	onJobStarted       []JobStartedHook
	onJobCompleted     []JobCompletedHook
	onJobFailed        []JobFailedHook
	onProgress         []ProgressHook
	onConflictDetected []ConflictDetectedHook
}

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

// OnJobStarted registers a callback for when jobs start
func (h *hooks) OnJobStarted(fn JobStartedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onJobStarted = append(h.onJobStarted, fn)
}

// OnJobCompleted registers a callback for when jobs complete
func (h *hooks) OnJobCompleted(fn JobCompletedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onJobCompleted = append(h.onJobCompleted, fn)
}

// OnJobFailed registers a callback for when jobs fail
func (h *hooks) OnJobFailed(fn JobFailedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onJobFailed = append(h.onJobFailed, fn)
}

// OnProgress registers a callback for job progress updates
func (h *hooks) OnProgress(fn ProgressHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onProgress = append(h.onProgress, fn)
}

// OnConflictDetected registers a callback for newly recorded conflicts
func (h *hooks) OnConflictDetected(fn ConflictDetectedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onConflictDetected = append(h.onConflictDetected, fn)
}

func (h *hooks) fireJobStarted(job *jobs.SyncJob) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onJobStarted {
		hook(job)
	}
}

func (h *hooks) fireJobCompleted(job *jobs.SyncJob) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onJobCompleted {
		hook(job)
	}
}

func (h *hooks) fireJobFailed(job *jobs.SyncJob) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onJobFailed {
		hook(job)
	}
}

func (h *hooks) fireProgress(p SyncProgress) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onProgress {
		hook(p)
	}
}

func (h *hooks) fireConflictDetected(c *conflicts.Conflict) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onConflictDetected {
		hook(c)
	}
}
