package apps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRepoLocator(t *testing.T) {
	tests := []struct {
		name    string
		ref     string
		want    RepoLocator
		wantErr bool
	}{
		{
			name: "https url",
			ref:  "https://github.com/acme/billing",
			want: RepoLocator{Host: "github.com", Owner: "acme", Name: "billing"},
		},
		{
			name: "https url with .git and trailing slash",
			ref:  "https://GitHub.com/Acme/Billing.git/",
			want: RepoLocator{Host: "github.com", Owner: "Acme", Name: "Billing"},
		},
		{
			name: "scp-like git form",
			ref:  "git@github.com:acme/billing.git",
			want: RepoLocator{Host: "github.com", Owner: "acme", Name: "billing"},
		},
		{
			name: "deep path keeps owner and name",
			ref:  "https://gitlab.example.com/group/subgroup/project",
			want: RepoLocator{Host: "gitlab.example.com", Owner: "group", Name: "subgroup"},
		},
		{name: "empty", ref: "  ", wantErr: true},
		{name: "no host", ref: "https:///acme/billing", wantErr: true},
		{name: "missing name", ref: "https://github.com/acme", wantErr: true},
		{name: "unsupported scheme", ref: "ftp://github.com/acme/billing", wantErr: true},
		{name: "bare words", ref: "not a repository", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRepoLocator(tt.ref)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Host, got.Host)
			assert.Equal(t, tt.want.Owner, got.Owner)
			assert.Equal(t, tt.want.Name, got.Name)
		})
	}
}

func TestNormalizedGroupsCaseInsensitively(t *testing.T) {
	a, err := ParseRepoLocator("https://github.com/Acme/Billing")
	require.NoError(t, err)
	b, err := ParseRepoLocator("git@GITHUB.COM:acme/billing.git")
	require.NoError(t, err)
	assert.Equal(t, a.Normalized(), b.Normalized())
	assert.Equal(t, "github.com/acme/billing", a.Normalized())
}

func TestNormalizeRepoRefFallback(t *testing.T) {
	assert.Equal(t, "github.com/acme/billing", NormalizeRepoRef("https://github.com/ACME/Billing"))
	// Unparseable refs fall back to the lowercased raw input.
	assert.Equal(t, "not a repository", NormalizeRepoRef("  Not A Repository "))
}
