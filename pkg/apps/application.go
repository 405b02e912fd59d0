// Package apps defines the composite health record kept for each
// software application, aggregated from the four upstream systems.
package apps

import (
	"strings"
	"time"
)

// Role names an organizational responsibility attached to an application.
type Role string

// Roles populated by the roster source. Owner is mandatory; an
// application with zero owners raises a role conflict during detection.
const (
	RoleOwner      Role = "owner"
	RoleTechLead   Role = "tech_lead"
	RoleProductMgr Role = "product_manager"
)

// String returns the string representation of a role.
func (r Role) String() string {
	return string(r)
}

// MandatoryRoles are roles that every application must have at least one
// occupant for.
var MandatoryRoles = []Role{RoleOwner}

// Occupant is one free-text person reference holding a role. The value
// comes from a system with no referential integrity: it may be an email,
// "Last, First (Nickname)", or any other spelling a human typed.
type Occupant struct {
	Raw      string `json:"raw" yaml:"raw"`
	Resolved string `json:"resolved,omitempty" yaml:"resolved,omitempty"` // directory key once matched
}

// Application is the composite health record for one application.
type Application struct {
	ID         string              `json:"id" yaml:"id"`
	Name       string              `json:"name" yaml:"name"`
	Repository string              `json:"repository,omitempty" yaml:"repository,omitempty"`
	Roles      map[Role][]Occupant `json:"roles,omitempty" yaml:"roles,omitempty"`
	Enabled    bool                `json:"enabled" yaml:"enabled"`

	Facts Facts `json:"facts" yaml:"facts"`

	// LastSyncedAt is when any full fact refresh last completed.
	LastSyncedAt time.Time `json:"last_synced_at,omitempty" yaml:"last_synced_at,omitempty"`
	// Source that contributed this record's roster entry.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
}

// SyncedToday reports whether the record was synced on the same calendar
// date as now. The policy compares calendar dates, not a rolling window.
func (a *Application) SyncedToday(now time.Time) bool {
	if a.LastSyncedAt.IsZero() {
		return false
	}
	y1, m1, d1 := a.LastSyncedAt.UTC().Date()
	y2, m2, d2 := now.UTC().Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// HasSecurityData reports whether security findings have been collected.
func (a *Application) HasSecurityData() bool {
	return a.Facts.Security != nil
}

// Occupants returns the occupants of a role, never nil.
func (a *Application) Occupants(role Role) []Occupant {
	if a.Roles == nil {
		return nil
	}
	return a.Roles[role]
}

// SetOccupants replaces the occupants of a role.
func (a *Application) SetOccupants(role Role, occupants []Occupant) {
	if a.Roles == nil {
		a.Roles = make(map[Role][]Occupant)
	}
	a.Roles[role] = occupants
}

// Copy returns a deep copy of the application record.
func (a *Application) Copy() *Application {
	dup := *a
	if a.Roles != nil {
		dup.Roles = make(map[Role][]Occupant, len(a.Roles))
		for role, occ := range a.Roles {
			dup.Roles[role] = append([]Occupant(nil), occ...)
		}
	}
	dup.Facts = a.Facts.Copy()
	return &dup
}

// Key returns the case-insensitive identity key used for lookups.
func (a *Application) Key() string {
	return strings.ToLower(strings.TrimSpace(a.Name))
}
