package sources

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/healthmap/pkg/apps"
	"github.com/agentstation/healthmap/pkg/errors"
)

// FileSource is a source adapter backed by a YAML fixture file holding
// the source's view of the application records. It serves local runs and
// tests; production adapters implement the same interfaces against the
// real upstream systems.
type FileSource struct {
	id   ID
	path string

	mu      sync.Mutex
	records []*apps.Application // cached after first successful read
}

var _ FactSource = (*FileSource)(nil)

// NewFileSource creates a file-backed source adapter.
func NewFileSource(id ID, path string) *FileSource {
	return &FileSource{id: id, path: path}
}

// ID returns the identity of this source.
func (s *FileSource) ID() ID {
	return s.id
}

// TestConnection probes the fixture file.
func (s *FileSource) TestConnection(_ context.Context) ConnectionResult {
	info, err := os.Stat(s.path)
	if err != nil {
		return ConnectionResult{
			Message: "fixture file is not readable",
			Err:     errors.WrapIO("stat", s.path, err),
		}
	}
	if info.IsDir() {
		return ConnectionResult{
			Message: "fixture path is a directory",
			Err:     errors.NewValidationError("path", s.path, "expected a file"),
		}
	}
	return ConnectionResult{OK: true, Message: "fixture file readable"}
}

// Pull reads the full record list from the fixture file.
func (s *FileSource) Pull(ctx context.Context) *SyncResult[[]*apps.Application] {
	started := time.Now()
	if err := ctx.Err(); err != nil {
		return Fail[[]*apps.Application](err, started)
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return Fail[[]*apps.Application](errors.WrapSource(s.id.String(), errors.KindConnection, "pull", err), started)
	}
	var records []*apps.Application
	if err := yaml.Unmarshal(data, &records); err != nil {
		return Fail[[]*apps.Application](errors.WrapParse("yaml", s.path, err), started)
	}

	s.mu.Lock()
	s.records = records
	s.mu.Unlock()

	out := make([]*apps.Application, 0, len(records))
	for _, app := range records {
		out = append(out, app.Copy())
	}
	return OK(out, started)
}

// PullFact serves one fact category for one application from the cached
// fixture records, reading the file if no pull has happened yet.
func (s *FileSource) PullFact(ctx context.Context, app *apps.Application, kind apps.FactKind) *SyncResult[apps.Facts] {
	started := time.Now()
	if err := ctx.Err(); err != nil {
		return Fail[apps.Facts](err, started)
	}

	s.mu.Lock()
	cached := s.records
	s.mu.Unlock()
	if cached == nil {
		pull := s.Pull(ctx)
		if !pull.Success {
			return Fail[apps.Facts](pull.Err, started)
		}
		cached = pull.Data
	}

	for _, record := range cached {
		if record.Key() != app.Key() {
			continue
		}
		var facts apps.Facts
		facts.Apply(record.Facts, kind)
		return OK(facts, started)
	}
	return Fail[apps.Facts](errors.NewNotFoundError("application", app.Key()), started)
}
