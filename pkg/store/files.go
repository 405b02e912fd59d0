package store

import (
	"context"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/healthmap/pkg/apps"
	"github.com/agentstation/healthmap/pkg/conflicts"
	"github.com/agentstation/healthmap/pkg/errors"
	"github.com/agentstation/healthmap/pkg/jobs"
)

// File names inside the store directory.
const (
	jobsFile         = "jobs.yaml"
	conflictsFile    = "conflicts.yaml"
	applicationsFile = "applications.yaml"

	dirPermissions  = 0o755
	filePermissions = 0o644
)

// Files is a YAML-file-backed Store. State is loaded once at open and
// every mutation rewrites the affected file, so a crash mid-job leaves
// the last persisted Running record on disk for reconciliation.
type Files struct {
	dir string
	mem *Memory
}

// NewFiles opens (or initializes) a file store rooted at dir.
func NewFiles(dir string) (*Files, error) {
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, errors.WrapIO("create", dir, err)
	}
	f := &Files{dir: dir, mem: NewMemory()}
	if err := f.load(); err != nil {
		return nil, err
	}
	return f, nil
}

// load hydrates the in-memory state from disk.
func (f *Files) load() error {
	ctx := context.Background()

	var jobList []*jobs.SyncJob
	if err := f.readFile(jobsFile, &jobList); err != nil {
		return err
	}
	for _, job := range jobList {
		if err := f.mem.UpsertJob(ctx, job); err != nil {
			return err
		}
	}

	var conflictList []*conflicts.Conflict
	if err := f.readFile(conflictsFile, &conflictList); err != nil {
		return err
	}
	for _, c := range conflictList {
		// Direct insert: natural-key dedup already happened when the
		// conflict was first appended.
		f.mem.conflicts[c.ID] = c
		f.mem.confOrder = append(f.mem.confOrder, c.ID)
	}

	var appList []*apps.Application
	if err := f.readFile(applicationsFile, &appList); err != nil {
		return err
	}
	for _, app := range appList {
		if err := f.mem.UpsertApplication(ctx, app); err != nil {
			return err
		}
	}
	return nil
}

// readFile unmarshals one YAML file, treating a missing file as empty.
func (f *Files) readFile(name string, out any) error {
	path := filepath.Join(f.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.WrapIO("read", path, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return errors.WrapParse("yaml", path, err)
	}
	return nil
}

// writeFile marshals one YAML file atomically via a temp file rename.
func (f *Files) writeFile(name string, in any) error {
	path := filepath.Join(f.dir, name)
	data, err := yaml.Marshal(in)
	if err != nil {
		return errors.WrapParse("yaml", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, filePermissions); err != nil {
		return errors.WrapIO("write", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}

// flushJobs persists the job list oldest-first.
func (f *Files) flushJobs(ctx context.Context) error {
	all, err := f.mem.Jobs(ctx, 0)
	if err != nil {
		return err
	}
	// Jobs() is newest-first; store oldest-first for stable diffs.
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	return f.writeFile(jobsFile, all)
}

// UpsertJob inserts or replaces a job and persists the job file.
func (f *Files) UpsertJob(ctx context.Context, job *jobs.SyncJob) error {
	if err := f.mem.UpsertJob(ctx, job); err != nil {
		return err
	}
	return f.flushJobs(ctx)
}

// Job returns a job by id.
func (f *Files) Job(ctx context.Context, id string) (*jobs.SyncJob, error) {
	return f.mem.Job(ctx, id)
}

// Jobs returns jobs newest-first.
func (f *Files) Jobs(ctx context.Context, limit int) ([]*jobs.SyncJob, error) {
	return f.mem.Jobs(ctx, limit)
}

// AppendConflict inserts a conflict and persists the conflict file.
func (f *Files) AppendConflict(ctx context.Context, c *conflicts.Conflict) (bool, error) {
	inserted, err := f.mem.AppendConflict(ctx, c)
	if err != nil || !inserted {
		return inserted, err
	}
	return true, f.flushConflicts(ctx)
}

// UpdateConflict replaces a conflict and persists the conflict file.
func (f *Files) UpdateConflict(ctx context.Context, c *conflicts.Conflict) error {
	if err := f.mem.UpdateConflict(ctx, c); err != nil {
		return err
	}
	return f.flushConflicts(ctx)
}

// Conflict returns a conflict by id.
func (f *Files) Conflict(ctx context.Context, id string) (*conflicts.Conflict, error) {
	return f.mem.Conflict(ctx, id)
}

// Conflicts lists conflicts.
func (f *Files) Conflicts(ctx context.Context, includeResolved bool) ([]*conflicts.Conflict, error) {
	return f.mem.Conflicts(ctx, includeResolved)
}

// flushConflicts persists the full conflict list.
func (f *Files) flushConflicts(ctx context.Context) error {
	all, err := f.mem.Conflicts(ctx, true)
	if err != nil {
		return err
	}
	return f.writeFile(conflictsFile, all)
}

// UpsertApplication inserts or replaces an application record and
// persists the application file.
func (f *Files) UpsertApplication(ctx context.Context, app *apps.Application) error {
	if err := f.mem.UpsertApplication(ctx, app); err != nil {
		return err
	}
	all, err := f.mem.Applications(ctx)
	if err != nil {
		return err
	}
	return f.writeFile(applicationsFile, all)
}

// Application returns an application by key.
func (f *Files) Application(ctx context.Context, key string) (*apps.Application, error) {
	return f.mem.Application(ctx, key)
}

// Applications lists all application records.
func (f *Files) Applications(ctx context.Context) ([]*apps.Application, error) {
	return f.mem.Applications(ctx)
}
