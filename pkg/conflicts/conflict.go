// Package conflicts detects and records disagreements between upstream
// sources about the same application. Conflicts are deduplicated by
// natural key and resolved only by explicit human action; a later sync
// showing the disagreement gone never auto-resolves one.
package conflicts

import (
	"fmt"
	"strings"
	"time"
)

// Kind classifies a detected disagreement.
type Kind string

// Conflict kinds produced by the deterministic detection rules.
const (
	// KindRole flags an application with zero occupants of a mandatory role.
	KindRole Kind = "role_conflict"
	// KindInvalidRepository flags a repository reference that fails to
	// parse as a well-formed locator.
	KindInvalidRepository Kind = "invalid_repository"
	// KindDuplicateRepository flags a repository claimed by more than one
	// application.
	KindDuplicateRepository Kind = "duplicate_repository"
	// KindUserNotFound flags a role occupant whose free-text reference
	// fails to match the identity directory above the caller's threshold.
	KindUserNotFound Kind = "user_not_found"
)

// String returns the string representation of a kind.
func (k Kind) String() string {
	return string(k)
}

// Conflict is a detected, human-resolvable disagreement about one
// application. Open conflicts reference an application that existed at
// detection time.
type Conflict struct {
	ID          string `json:"id" yaml:"id"`
	Application string `json:"application" yaml:"application"`
	Kind        Kind   `json:"kind" yaml:"kind"`
	Description string `json:"description" yaml:"description"`

	// Value is the normalized disputed value used for natural-key dedup.
	Value string `json:"value" yaml:"value"`

	// The two disputed readings and where each came from.
	ValueA  string `json:"value_a,omitempty" yaml:"value_a,omitempty"`
	SourceA string `json:"source_a,omitempty" yaml:"source_a,omitempty"`
	ValueB  string `json:"value_b,omitempty" yaml:"value_b,omitempty"`
	SourceB string `json:"source_b,omitempty" yaml:"source_b,omitempty"`

	DetectedAt time.Time `json:"detected_at" yaml:"detected_at"`

	Resolved        bool      `json:"resolved" yaml:"resolved"`
	ResolvedBy      string    `json:"resolved_by,omitempty" yaml:"resolved_by,omitempty"`
	ResolutionNotes string    `json:"resolution_notes,omitempty" yaml:"resolution_notes,omitempty"`
	ResolvedAt      time.Time `json:"resolved_at,omitempty" yaml:"resolved_at,omitempty"`
}

// NaturalKey is the (application, kind, disputed value) tuple used to
// avoid duplicate open conflicts across repeated detection runs.
func (c *Conflict) NaturalKey() string {
	return strings.ToLower(c.Application) + "|" + string(c.Kind) + "|" + strings.ToLower(c.Value)
}

// Resolve marks the conflict resolved. Resolution is one-way: resolving
// an already-resolved conflict is an error.
func (c *Conflict) Resolve(resolvedBy, notes string, now time.Time) error {
	if c.Resolved {
		return fmt.Errorf("conflict %s already resolved by %s", c.ID, c.ResolvedBy)
	}
	if resolvedBy == "" {
		return fmt.Errorf("conflict resolution requires a resolver identity")
	}
	c.Resolved = true
	c.ResolvedBy = resolvedBy
	c.ResolutionNotes = notes
	c.ResolvedAt = now
	return nil
}
