package store

import (
	"context"
	"sort"
	"sync"

	"github.com/agentstation/healthmap/pkg/apps"
	"github.com/agentstation/healthmap/pkg/conflicts"
	"github.com/agentstation/healthmap/pkg/errors"
	"github.com/agentstation/healthmap/pkg/jobs"
)

// Memory is an in-memory Store for tests and ephemeral runs.
type Memory struct {
	mu           sync.RWMutex
	jobs         map[string]*jobs.SyncJob
	jobOrder     []string
	conflicts    map[string]*conflicts.Conflict
	confOrder    []string
	applications map[string]*apps.Application
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		jobs:         make(map[string]*jobs.SyncJob),
		conflicts:    make(map[string]*conflicts.Conflict),
		applications: make(map[string]*apps.Application),
	}
}

// UpsertJob inserts or replaces a job by id.
func (m *Memory) UpsertJob(_ context.Context, job *jobs.SyncJob) error {
	if job.ID == "" {
		return errors.NewValidationError("id", job.ID, "job id is empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.jobs[job.ID]; !exists {
		m.jobOrder = append(m.jobOrder, job.ID)
	}
	m.jobs[job.ID] = job.Copy()
	return nil
}

// Job returns a job by id.
func (m *Memory) Job(_ context.Context, id string) (*jobs.SyncJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, errors.NewNotFoundError("job", id)
	}
	return job.Copy(), nil
}

// Jobs returns jobs newest-first. limit <= 0 means all.
func (m *Memory) Jobs(_ context.Context, limit int) ([]*jobs.SyncJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*jobs.SyncJob, 0, len(m.jobOrder))
	for i := len(m.jobOrder) - 1; i >= 0; i-- {
		out = append(out, m.jobs[m.jobOrder[i]].Copy())
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// AppendConflict inserts a conflict unless one with the same natural
// key was ever recorded. Resolved conflicts keep suppressing their key,
// so a resolved disagreement is never resurrected by a later sync over
// unchanged data; only a new distinct natural key opens a new conflict.
func (m *Memory) AppendConflict(_ context.Context, c *conflicts.Conflict) (bool, error) {
	if c.ID == "" {
		return false, errors.NewValidationError("id", c.ID, "conflict id is empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := c.NaturalKey()
	for _, existing := range m.conflicts {
		if existing.NaturalKey() == key {
			return false, nil
		}
	}
	dup := *c
	m.conflicts[c.ID] = &dup
	m.confOrder = append(m.confOrder, c.ID)
	return true, nil
}

// UpdateConflict replaces a stored conflict by id.
func (m *Memory) UpdateConflict(_ context.Context, c *conflicts.Conflict) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.conflicts[c.ID]; !ok {
		return errors.NewNotFoundError("conflict", c.ID)
	}
	dup := *c
	m.conflicts[c.ID] = &dup
	return nil
}

// Conflict returns a conflict by id.
func (m *Memory) Conflict(_ context.Context, id string) (*conflicts.Conflict, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.conflicts[id]
	if !ok {
		return nil, errors.NewNotFoundError("conflict", id)
	}
	dup := *c
	return &dup, nil
}

// Conflicts lists conflicts in detection order.
func (m *Memory) Conflicts(_ context.Context, includeResolved bool) ([]*conflicts.Conflict, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*conflicts.Conflict, 0, len(m.confOrder))
	for _, id := range m.confOrder {
		c := m.conflicts[id]
		if !includeResolved && c.Resolved {
			continue
		}
		dup := *c
		out = append(out, &dup)
	}
	return out, nil
}

// UpsertApplication inserts or replaces an application record.
func (m *Memory) UpsertApplication(_ context.Context, app *apps.Application) error {
	key := app.Key()
	if key == "" {
		return errors.NewValidationError("name", app.Name, "application name is empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applications[key] = app.Copy()
	return nil
}

// Application returns an application by key.
func (m *Memory) Application(_ context.Context, key string) (*apps.Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	app, ok := m.applications[key]
	if !ok {
		return nil, errors.NewNotFoundError("application", key)
	}
	return app.Copy(), nil
}

// Applications lists all application records sorted by key.
func (m *Memory) Applications(_ context.Context) ([]*apps.Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.applications))
	for key := range m.applications {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]*apps.Application, 0, len(keys))
	for _, key := range keys {
		out = append(out, m.applications[key].Copy())
	}
	return out, nil
}
