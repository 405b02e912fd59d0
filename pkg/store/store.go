// Package store persists sync jobs, conflicts, and aggregated
// application records. The durable store is the source of truth; the
// orchestration engine layers a read-through cache on top of it.
package store

import (
	"context"

	"github.com/agentstation/healthmap/pkg/apps"
	"github.com/agentstation/healthmap/pkg/conflicts"
	"github.com/agentstation/healthmap/pkg/jobs"
)

// Store is the durable backing store. IDs are opaque strings generated
// by the orchestration engine, never by the store.
type Store interface {
	// UpsertJob inserts or replaces a job by id. The engine persists at
	// Running and again at terminal so a crash leaves a visible Running
	// record for reconciliation.
	UpsertJob(ctx context.Context, job *jobs.SyncJob) error

	// Job returns a job by id.
	Job(ctx context.Context, id string) (*jobs.SyncJob, error)

	// Jobs returns jobs newest-first. limit <= 0 means all.
	Jobs(ctx context.Context, limit int) ([]*jobs.SyncJob, error)

	// AppendConflict inserts a conflict unless one with the same natural
	// key was ever recorded, resolved or not. It reports whether the
	// conflict was inserted.
	AppendConflict(ctx context.Context, c *conflicts.Conflict) (bool, error)

	// UpdateConflict replaces a stored conflict by id.
	UpdateConflict(ctx context.Context, c *conflicts.Conflict) error

	// Conflict returns a conflict by id.
	Conflict(ctx context.Context, id string) (*conflicts.Conflict, error)

	// Conflicts lists conflicts, optionally including resolved ones.
	Conflicts(ctx context.Context, includeResolved bool) ([]*conflicts.Conflict, error)

	// UpsertApplication inserts or replaces an application record by its
	// case-insensitive key.
	UpsertApplication(ctx context.Context, app *apps.Application) error

	// Application returns an application by key.
	Application(ctx context.Context, key string) (*apps.Application, error)

	// Applications lists all application records.
	Applications(ctx context.Context) ([]*apps.Application, error)
}
