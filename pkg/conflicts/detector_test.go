package conflicts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/healthmap/pkg/apps"
	"github.com/agentstation/healthmap/pkg/identity"
)

func ownedApp(name, repo, owner string) *apps.Application {
	app := &apps.Application{Name: name, Repository: repo, Enabled: true}
	if owner != "" {
		app.SetOccupants(apps.RoleOwner, []apps.Occupant{{Raw: owner}})
	}
	return app
}

func conflictsOfKind(found []*Conflict, kind Kind) []*Conflict {
	var out []*Conflict
	for _, c := range found {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func TestDetectMissingMandatoryRole(t *testing.T) {
	d := NewDetector(nil)
	records := []*apps.Application{
		ownedApp("billing", "", "Jeff Jones"),
		ownedApp("orphaned", "", ""),
	}

	found := conflictsOfKind(d.Detect(context.Background(), records, "roster"), KindRole)
	require.Len(t, found, 1)
	assert.Equal(t, "orphaned", found[0].Application)
	assert.Equal(t, "owner", found[0].Value)
	assert.Contains(t, found[0].Description, "mandatory role")
}

func TestDetectInvalidRepository(t *testing.T) {
	d := NewDetector(nil)
	records := []*apps.Application{
		ownedApp("billing", "https://github.com/acme/billing", "Jeff Jones"),
		ownedApp("legacy", "not a repository", "Jeff Jones"),
	}

	found := conflictsOfKind(d.Detect(context.Background(), records, "repos"), KindInvalidRepository)
	require.Len(t, found, 1)
	assert.Equal(t, "legacy", found[0].Application)
	assert.Equal(t, "not a repository", found[0].Value)
}

func TestDetectDuplicateRepository(t *testing.T) {
	d := NewDetector(nil)
	records := []*apps.Application{
		ownedApp("billing", "https://github.com/acme/shared", "Jeff Jones"),
		ownedApp("invoicing", "git@github.com:ACME/Shared.git", "Jeff Jones"),
		ownedApp("payments", "https://GitHub.com/Acme/Shared", "Jeff Jones"),
		ownedApp("standalone", "https://github.com/acme/standalone", "Jeff Jones"),
	}

	found := conflictsOfKind(d.Detect(context.Background(), records, "repos"), KindDuplicateRepository)
	// First claimant is unflagged; the two later claimants each get one.
	require.Len(t, found, 2)
	for _, c := range found {
		assert.Equal(t, "github.com/acme/shared", c.Value)
		assert.Equal(t, "billing", c.ValueA)
		// All claimant names appear in the description.
		assert.Contains(t, c.Description, "billing")
		assert.Contains(t, c.Description, "invoicing")
		assert.Contains(t, c.Description, "payments")
	}
	assert.Equal(t, "invoicing", found[0].Application)
	assert.Equal(t, "payments", found[1].Application)
}

func TestDetectUnknownUser(t *testing.T) {
	dir := identity.NewDirectory(&identity.Identity{
		Key:         "jjones",
		DisplayName: "Jeff Jones",
		GivenName:   "Jeff",
		FamilyName:  "Jones",
		Email:       "jjones@example.com",
		Enabled:     true,
	})
	d := NewDetector(identity.NewResolver(dir))

	records := []*apps.Application{
		ownedApp("billing", "", "Jeff Jones"),
		ownedApp("legacy", "", "Zebulon Quartermaine"),
	}

	found := conflictsOfKind(d.Detect(context.Background(), records, "roster"), KindUserNotFound)
	require.Len(t, found, 1)
	assert.Equal(t, "legacy", found[0].Application)
	assert.Equal(t, "owner:zebulon quartermaine", found[0].Value)
	assert.Equal(t, "Zebulon Quartermaine", found[0].ValueA)
}

func TestDetectUnknownUserSkippedWithoutResolver(t *testing.T) {
	d := NewDetector(nil)
	records := []*apps.Application{ownedApp("legacy", "", "Zebulon Quartermaine")}

	found := conflictsOfKind(d.Detect(context.Background(), records, "roster"), KindUserNotFound)
	assert.Empty(t, found)
}

func TestDetectSamePersonTwoRolesTwoConflicts(t *testing.T) {
	dir := identity.NewDirectory()
	d := NewDetector(identity.NewResolver(dir))

	app := &apps.Application{Name: "billing", Enabled: true}
	app.SetOccupants(apps.RoleOwner, []apps.Occupant{{Raw: "Ghost Person"}})
	app.SetOccupants(apps.RoleTechLead, []apps.Occupant{{Raw: "Ghost Person"}})

	found := conflictsOfKind(d.Detect(context.Background(), []*apps.Application{app}, "roster"), KindUserNotFound)
	require.Len(t, found, 2)
	// The role is part of the dedup value, so the keys differ.
	assert.NotEqual(t, found[0].NaturalKey(), found[1].NaturalKey())
}
