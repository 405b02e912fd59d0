package sources

import (
	"time"

	"github.com/agentstation/healthmap/pkg/errors"
)

// SyncResult carries the outcome of one adapter call: a success flag,
// the classified error kind from the taxonomy, timing, and an optional
// payload. Sub-fetch failures are classified per call, never rolled into
// a single overall error when partial results exist.
type SyncResult[T any] struct {
	Success   bool
	Data      T
	Err       error
	ErrorKind errors.Kind
	StartedAt time.Time
	Duration  time.Duration
}

// OK creates a successful result with timing.
func OK[T any](data T, startedAt time.Time) *SyncResult[T] {
	return &SyncResult[T]{
		Success:   true,
		Data:      data,
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
	}
}

// Fail creates a failed result, classifying the error into its kind.
func Fail[T any](err error, startedAt time.Time) *SyncResult[T] {
	return &SyncResult[T]{
		Err:       err,
		ErrorKind: errors.KindOf(err),
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
	}
}

// Error returns the result's error message, or "" on success.
func (r *SyncResult[T]) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
