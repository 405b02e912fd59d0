package apps

import (
	"net/url"
	"strings"

	"github.com/agentstation/healthmap/pkg/errors"
)

// RepoLocator is a parsed, well-formed repository reference.
type RepoLocator struct {
	Host  string // e.g. "github.com"
	Owner string // organization or project
	Name  string // repository name
	Raw   string // original input
}

// Normalized returns the case-insensitive canonical form used for
// duplicate grouping.
func (l RepoLocator) Normalized() string {
	return strings.ToLower(l.Host + "/" + l.Owner + "/" + l.Name)
}

// ParseRepoLocator parses a repository reference into a locator. It
// accepts https URLs and scp-like git forms ("git@host:owner/name.git").
// A reference that does not parse is what the InvalidRepository conflict
// rule flags.
func ParseRepoLocator(ref string) (RepoLocator, error) {
	raw := strings.TrimSpace(ref)
	if raw == "" {
		return RepoLocator{}, errors.NewParseError("url", ref, "empty repository reference", nil)
	}

	// scp-like form: git@host:owner/name(.git)
	if strings.HasPrefix(raw, "git@") {
		rest := strings.TrimPrefix(raw, "git@")
		host, path, ok := strings.Cut(rest, ":")
		if !ok || host == "" || path == "" {
			return RepoLocator{}, errors.NewParseError("url", ref, "malformed scp-like reference", nil)
		}
		return locatorFromPath(host, path, raw)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return RepoLocator{}, errors.WrapParse("url", ref, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "ssh" {
		return RepoLocator{}, errors.NewParseError("url", ref, "unsupported scheme "+u.Scheme, nil)
	}
	if u.Host == "" {
		return RepoLocator{}, errors.NewParseError("url", ref, "missing host", nil)
	}
	return locatorFromPath(u.Host, strings.TrimPrefix(u.Path, "/"), raw)
}

// locatorFromPath splits an owner/name path into a locator.
func locatorFromPath(host, path, raw string) (RepoLocator, error) {
	path = strings.TrimSuffix(strings.Trim(path, "/"), ".git")
	parts := strings.Split(path, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return RepoLocator{}, errors.NewParseError("url", raw, "expected owner/name path", nil)
	}
	return RepoLocator{
		Host:  strings.ToLower(host),
		Owner: parts[0],
		Name:  parts[1],
		Raw:   raw,
	}, nil
}

// NormalizeRepoRef returns the canonical duplicate-grouping key for a
// repository reference, or the lowercased raw input when the reference
// does not parse.
func NormalizeRepoRef(ref string) string {
	loc, err := ParseRepoLocator(ref)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(ref))
	}
	return loc.Normalized()
}
