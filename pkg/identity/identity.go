// Package identity reconciles free-text human names and email addresses
// against an authoritative identity directory. Tokens arrive from a
// system with no referential integrity, in inconsistent formats such as
// "Last, First (Nickname)", and may refer to people who have left the
// organization. Resolution runs a cascade of matching strategies of
// increasing fuzziness and decreasing confidence.
package identity

import (
	"time"
)

// Identity is a directory-known person. Read-only except for alias
// learning, which attaches new spellings without mutating the identity.
type Identity struct {
	Key         string `json:"key" yaml:"key"` // stable directory key
	DisplayName string `json:"display_name" yaml:"display_name"`
	GivenName   string `json:"given_name,omitempty" yaml:"given_name,omitempty"`
	FamilyName  string `json:"family_name,omitempty" yaml:"family_name,omitempty"`
	Email       string `json:"email,omitempty" yaml:"email,omitempty"`
	UPN         string `json:"upn,omitempty" yaml:"upn,omitempty"` // user principal name
	EmployeeID  string `json:"employee_id,omitempty" yaml:"employee_id,omitempty"`
	Enabled     bool   `json:"enabled" yaml:"enabled"`
}

// Alias is a discovered association from a normalized name-or-email
// variant to one identity. Aliases are never deleted; they give O(1)
// lookups for spellings the directory has seen before.
type Alias struct {
	Value       string    `json:"value" yaml:"value"` // normalized key
	IdentityKey string    `json:"identity_key" yaml:"identity_key"`
	Source      string    `json:"source,omitempty" yaml:"source,omitempty"` // discovery source
	CreatedAt   time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// Directory is the authoritative store of known people. Lookups are
// exact-key; Enumerate supports the fuzzy scan and is expected to stay
// within a few thousand entries, since fuzzy matching has no index.
type Directory interface {
	// ByEmail looks up an identity by email or user principal name,
	// case-insensitively.
	ByEmail(email string) (*Identity, bool)

	// ByKey looks up an identity by its stable directory key.
	ByKey(key string) (*Identity, bool)

	// ByName looks up an identity by normalized display name or by the
	// normalized "given family" concatenation.
	ByName(normalized string) (*Identity, bool)

	// Alias looks up a learned alias by normalized value.
	Alias(normalized string) (*Identity, bool)

	// AddAlias records a learned alias. Adding an alias whose value is
	// already known is a no-op.
	AddAlias(alias Alias) error

	// Enumerate returns all identities for bounded full scans.
	Enumerate() []*Identity
}
