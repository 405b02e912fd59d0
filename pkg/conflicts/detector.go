package conflicts

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/agentstation/healthmap/pkg/apps"
	"github.com/agentstation/healthmap/pkg/identity"
	"github.com/agentstation/healthmap/pkg/logging"
)

// Detector runs the deterministic conflict rules over aggregated
// application records. It runs after each source sync and independently
// as a cross-source pass.
type Detector struct {
	resolver      *identity.Resolver
	minConfidence identity.Tier
}

// Option configures a Detector.
type Option func(*Detector)

// WithMinConfidence sets the confidence threshold below which a role
// occupant is reported as not found.
func WithMinConfidence(tier identity.Tier) Option {
	return func(d *Detector) {
		d.minConfidence = tier
	}
}

// NewDetector creates a detector. The resolver may be nil, in which case
// the user-not-found rule is skipped.
func NewDetector(resolver *identity.Resolver, opts ...Option) *Detector {
	d := &Detector{
		resolver:      resolver,
		minConfidence: identity.TierMedium,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect evaluates every rule over the given records and returns the
// detected conflicts with IDs unset; the orchestration engine assigns
// ids before persisting. sourceName attributes the fresh pull.
func (d *Detector) Detect(ctx context.Context, records []*apps.Application, sourceName string) []*Conflict {
	now := time.Now().UTC()
	var found []*Conflict

	found = append(found, d.detectRoles(records, sourceName, now)...)
	found = append(found, d.detectRepositories(records, sourceName, now)...)
	if d.resolver != nil {
		found = append(found, d.detectUnknownUsers(ctx, records, sourceName, now)...)
	}

	logging.Ctx(ctx).Debug().
		Int("records", len(records)).
		Int("conflicts", len(found)).
		Str("source", sourceName).
		Msg("Conflict detection pass finished")
	return found
}

// detectRoles flags applications with zero occupants of a mandatory role.
func (d *Detector) detectRoles(records []*apps.Application, sourceName string, now time.Time) []*Conflict {
	var found []*Conflict
	for _, app := range records {
		for _, role := range apps.MandatoryRoles {
			if len(app.Occupants(role)) > 0 {
				continue
			}
			found = append(found, &Conflict{
				Application: app.Name,
				Kind:        KindRole,
				Value:       role.String(),
				Description: fmt.Sprintf("application %q has no occupant for mandatory role %q", app.Name, role),
				ValueA:      "",
				SourceA:     sourceName,
				DetectedAt:  now,
			})
		}
	}
	return found
}

// detectRepositories flags unparseable references and repositories
// claimed by more than one application. Grouping is case-insensitive;
// every claimant after the first is flagged and all claimant names are
// listed.
func (d *Detector) detectRepositories(records []*apps.Application, sourceName string, now time.Time) []*Conflict {
	var found []*Conflict
	claims := make(map[string][]*apps.Application)

	for _, app := range records {
		if app.Repository == "" {
			continue
		}
		loc, err := apps.ParseRepoLocator(app.Repository)
		if err != nil {
			found = append(found, &Conflict{
				Application: app.Name,
				Kind:        KindInvalidRepository,
				Value:       strings.ToLower(strings.TrimSpace(app.Repository)),
				Description: fmt.Sprintf("repository reference %q is not a well-formed locator: %v", app.Repository, err),
				ValueA:      app.Repository,
				SourceA:     sourceName,
				DetectedAt:  now,
			})
			continue
		}
		key := loc.Normalized()
		claims[key] = append(claims[key], app)
	}

	// Deterministic group order for stable output.
	keys := make([]string, 0, len(claims))
	for key := range claims {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		claimants := claims[key]
		if len(claimants) < 2 {
			continue
		}
		names := make([]string, len(claimants))
		for i, app := range claimants {
			names[i] = app.Name
		}
		for _, app := range claimants[1:] {
			found = append(found, &Conflict{
				Application: app.Name,
				Kind:        KindDuplicateRepository,
				Value:       key,
				Description: fmt.Sprintf("repository %q is claimed by %d applications: %s", key, len(claimants), strings.Join(names, ", ")),
				ValueA:      claimants[0].Name,
				SourceA:     sourceName,
				ValueB:      app.Name,
				SourceB:     sourceName,
				DetectedAt:  now,
			})
		}
	}
	return found
}

// detectUnknownUsers resolves every role occupant and flags the ones
// whose effective match is nil, including good candidates below the
// confidence threshold. Dedup key includes the role so the same person
// failing in two roles yields two conflicts.
func (d *Detector) detectUnknownUsers(ctx context.Context, records []*apps.Application, sourceName string, now time.Time) []*Conflict {
	var found []*Conflict
	for _, app := range records {
		for role, occupants := range app.Roles {
			for _, occ := range occupants {
				mc := identity.MatchContext{
					MinConfidence:  d.minConfidence,
					CreateConflict: true,
					Application:    app.Name,
					Role:           role.String(),
					Source:         sourceName,
				}
				result := d.resolver.Resolve(ctx, occ.Raw, mc)
				if result.Matched() {
					continue
				}
				found = append(found, &Conflict{
					Application: app.Name,
					Kind:        KindUserNotFound,
					Value:       role.String() + ":" + result.Normalized,
					Description: fmt.Sprintf("role %q occupant %q could not be matched to the directory: %s", role, occ.Raw, result.Explanation),
					ValueA:      occ.Raw,
					SourceA:     sourceName,
					DetectedAt:  now,
				})
			}
		}
	}
	return found
}
