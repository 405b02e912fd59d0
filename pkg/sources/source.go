// Package sources defines the uniform capability interface for the four
// upstream systems healthmap aggregates from: the work-tracking and
// repository platform, the document library, the HR-adjacent ticketing
// system (roster), and the web-traffic log warehouse.
//
// Adapters are external collaborators: their wire formats and scraping
// logic live outside this module, behind this interface.
package sources

import (
	"context"
	"slices"
	"sync"

	"github.com/agentstation/healthmap/pkg/apps"
)

// ID identifies a data source adapter.
type ID string

// String returns the string representation of a source ID.
func (id ID) String() string {
	return string(id)
}

// The four upstream sources. SyncOrder lists them in dependency order.
const (
	// RosterID is the HR-adjacent ticketing system that provides the
	// application roster and role occupants.
	RosterID ID = "roster"
	// DocsID is the document library.
	DocsID ID = "docs"
	// ReposID is the work-tracking/repository platform.
	ReposID ID = "repos"
	// TrafficID is the web-traffic log warehouse.
	TrafficID ID = "traffic"
)

// SyncOrder returns all source IDs in the fixed dependency order used by
// a full sync: the roster first because later conflict detection assumes
// its application roster exists, usage metrics last.
func SyncOrder() []ID {
	return []ID{RosterID, DocsID, ReposID, TrafficID}
}

// IsValid returns true if the ID is one of the defined constants.
func (id ID) IsValid() bool {
	return slices.Contains(SyncOrder(), id)
}

// ConnectionResult is the outcome of a connectivity probe.
type ConnectionResult struct {
	OK      bool
	Message string
	Err     error
}

// Source is the uniform adapter capability: test the connection and
// pull the source's view of the application records.
type Source interface {
	// ID returns the identity of this source.
	ID() ID

	// TestConnection probes the upstream system.
	TestConnection(ctx context.Context) ConnectionResult

	// Pull retrieves this source's full view of the application records.
	// Failure to produce the record list is fatal to the calling job.
	Pull(ctx context.Context) *SyncResult[[]*apps.Application]
}

// FactSource is implemented by sources that can refresh a single fact
// category for one application, enabling narrowed incremental re-fetches.
type FactSource interface {
	Source

	// PullFact fetches one fact category for one application. The
	// returned facts carry only the requested category.
	PullFact(ctx context.Context, app *apps.Application, kind apps.FactKind) *SyncResult[apps.Facts]
}

// Registry is a thread-safe container of source adapters.
type Registry struct {
	mu      sync.RWMutex
	sources map[ID]Source
}

// NewRegistry creates a registry over the given sources.
func NewRegistry(srcs ...Source) *Registry {
	r := &Registry{sources: make(map[ID]Source, len(srcs))}
	for _, src := range srcs {
		r.sources[src.ID()] = src
	}
	return r
}

// Get returns a source by ID.
func (r *Registry) Get(id ID) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src, ok := r.sources[id]
	return src, ok
}

// Set registers or replaces a source.
func (r *Registry) Set(src Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[src.ID()] = src
}

// Len returns the number of registered sources.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sources)
}

// IDs returns the registered source IDs in sync order, followed by any
// sources outside the fixed order.
func (r *Registry) IDs() []ID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]ID, 0, len(r.sources))
	for _, id := range SyncOrder() {
		if _, ok := r.sources[id]; ok {
			ids = append(ids, id)
		}
	}
	for id := range r.sources {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids
}
