package conflicts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNaturalKey(t *testing.T) {
	a := &Conflict{Application: "Billing", Kind: KindDuplicateRepository, Value: "github.com/acme/billing"}
	b := &Conflict{Application: "billing", Kind: KindDuplicateRepository, Value: "GitHub.com/Acme/Billing"}
	assert.Equal(t, a.NaturalKey(), b.NaturalKey())

	c := &Conflict{Application: "billing", Kind: KindRole, Value: "owner"}
	assert.NotEqual(t, a.NaturalKey(), c.NaturalKey())
}

func TestResolveOneWay(t *testing.T) {
	now := time.Now().UTC()
	c := &Conflict{ID: "c1", Application: "billing", Kind: KindRole, Value: "owner"}

	require.NoError(t, c.Resolve("admin", "owner assigned out of band", now))
	assert.True(t, c.Resolved)
	assert.Equal(t, "admin", c.ResolvedBy)
	assert.Equal(t, now, c.ResolvedAt)

	// Resolution is one-way.
	assert.Error(t, c.Resolve("someone-else", "", now))
	assert.Equal(t, "admin", c.ResolvedBy)
}

func TestResolveRequiresResolver(t *testing.T) {
	c := &Conflict{ID: "c2", Application: "billing", Kind: KindRole, Value: "owner"}
	assert.Error(t, c.Resolve("", "notes", time.Now().UTC()))
	assert.False(t, c.Resolved)
}
