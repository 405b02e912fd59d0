package identity

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/agentstation/healthmap/pkg/logging"
)

// Tier buckets match certainty. Tiers are totally ordered:
// NoMatch < Low < Medium < High < Exact.
type Tier int

// Confidence tiers.
const (
	TierNoMatch Tier = iota
	TierLow
	TierMedium
	TierHigh
	TierExact
)

// String returns the string representation of a tier.
func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierHigh:
		return "high"
	case TierMedium:
		return "medium"
	case TierLow:
		return "low"
	default:
		return "no_match"
	}
}

// Similarity thresholds mapping scores to tiers. Candidates scoring
// below the floor are discarded entirely.
const (
	HighThreshold   = 0.95
	MediumThreshold = 0.85
	LowThreshold    = 0.70
	ScoreFloor      = 0.60

	// structuredStrongScore is the score assigned when surnames match
	// exactly and given names are equivalent (exact, nickname, or prefix).
	structuredStrongScore = 0.95

	// maxAlternatives bounds the runner-up list on a match result.
	maxAlternatives = 3
)

// TierForScore maps a similarity score to its consistent tier. Scores
// between the floor and the low threshold survive the candidate scan but
// never constitute a match on their own.
func TierForScore(score float64) Tier {
	switch {
	case score >= HighThreshold:
		return TierHigh
	case score >= MediumThreshold:
		return TierMedium
	case score >= LowThreshold:
		return TierLow
	default:
		return TierNoMatch
	}
}

// Strategy names the matching strategy that produced a result.
type Strategy string

// Strategies, in cascade order.
const (
	StrategyExactEmail        Strategy = "exact_email"
	StrategyExactAlias        Strategy = "exact_alias"
	StrategyExactDisplayName  Strategy = "exact_display_name"
	StrategyNamePermutation   Strategy = "name_permutation"
	StrategyFuzzyStructured   Strategy = "fuzzy_structured"
	StrategyFuzzyUnstructured Strategy = "fuzzy_unstructured"
	StrategyNone              Strategy = "none"
)

// Candidate is one scored directory entry from the fuzzy scan.
type Candidate struct {
	Identity *Identity
	Score    float64
	Strategy Strategy
}

// MatchResult is the outcome of resolving one free-text token. Identity
// is nil when no effective match was found; the best sub-threshold
// candidate, if any, is still surfaced through the explanation and
// alternatives.
type MatchResult struct {
	Input        string
	Normalized   string
	Identity     *Identity
	Tier         Tier
	Score        float64
	Strategy     Strategy
	Explanation  string
	Alternatives []Candidate
}

// Matched reports whether an effective match was found.
func (r MatchResult) Matched() bool {
	return r.Identity != nil
}

// MatchContext carries caller-supplied constraints and provenance for
// one resolution.
type MatchContext struct {
	// MinConfidence is the minimum tier for an effective match. A best
	// candidate below it leaves the result unmatched, with the candidate
	// surfaced as explanation only.
	MinConfidence Tier

	// CreateConflict requests a departed/unmatched-person conflict when
	// the effective match is nil. Acted on by the caller, not here.
	CreateConflict bool

	// Application and Role give the conflict its context.
	Application string
	Role        string

	// Source tags learned aliases with their discovery source.
	Source string
}

// Resolver reconciles free-text tokens against a directory.
type Resolver struct {
	dir Directory
}

// NewResolver creates a resolver over the given directory.
func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

// Resolve reconciles one free-text token. Strategies are attempted in
// order and the first confident hit wins:
//
//  1. exact email/UPN (only for tokens that look like an address)
//  2. exact learned alias
//  3. exact display name
//  4. name permutations ("Last, First" <-> "First Last" <-> "Last First")
//  5. fuzzy scan (structured given/family scoring vs. edit distance)
//
// A best candidate below mc.MinConfidence leaves the result unmatched.
func (r *Resolver) Resolve(ctx context.Context, token string, mc MatchContext) MatchResult {
	normalized := CleanToken(token)
	result := MatchResult{
		Input:      token,
		Normalized: normalized,
		Tier:       TierNoMatch,
		Strategy:   StrategyNone,
	}
	if normalized == "" {
		result.Explanation = "empty token"
		return result
	}

	// 1. Exact email/UPN.
	if LooksLikeEmail(normalized) {
		if id, ok := r.dir.ByEmail(normalized); ok {
			result.Identity = id
			result.Tier = TierExact
			result.Score = 1.0
			result.Strategy = StrategyExactEmail
			result.Explanation = "exact email/principal match"
			r.learnAlias(ctx, normalized, id, mc)
			return r.applyMinConfidence(result, mc)
		}
	}

	// 2. Exact learned alias.
	if id, ok := r.dir.Alias(normalized); ok {
		result.Identity = id
		result.Tier = TierHigh
		result.Score = 1.0
		result.Strategy = StrategyExactAlias
		result.Explanation = "learned alias match"
		return r.applyMinConfidence(result, mc)
	}

	// 3. Exact display name.
	if id, ok := r.dir.ByName(normalized); ok {
		result.Identity = id
		result.Tier = TierHigh
		result.Score = 1.0
		result.Strategy = StrategyExactDisplayName
		result.Explanation = "exact display name match"
		r.learnAlias(ctx, normalized, id, mc)
		return r.applyMinConfidence(result, mc)
	}

	// 4. Name permutations.
	for _, perm := range Permutations(normalized) {
		if id, ok := r.dir.ByName(perm); ok {
			result.Identity = id
			result.Tier = TierHigh
			result.Score = 1.0
			result.Strategy = StrategyNamePermutation
			result.Explanation = fmt.Sprintf("display name permutation %q", perm)
			r.learnAlias(ctx, normalized, id, mc)
			return r.applyMinConfidence(result, mc)
		}
		if id, ok := r.dir.Alias(perm); ok {
			result.Identity = id
			result.Tier = TierHigh
			result.Score = 1.0
			result.Strategy = StrategyNamePermutation
			result.Explanation = fmt.Sprintf("alias permutation %q", perm)
			r.learnAlias(ctx, normalized, id, mc)
			return r.applyMinConfidence(result, mc)
		}
	}

	// 5. Fuzzy scan over the whole directory.
	candidates := r.fuzzyScan(normalized)
	if len(candidates) == 0 {
		result.Explanation = "no candidate at or above similarity floor"
		return result
	}

	best := candidates[0]
	result.Identity = best.Identity
	result.Tier = TierForScore(best.Score)
	result.Score = best.Score
	result.Strategy = best.Strategy
	result.Explanation = fmt.Sprintf("fuzzy match %q (%.2f)", best.Identity.DisplayName, best.Score)
	if len(candidates) > 1 {
		n := len(candidates) - 1
		if n > maxAlternatives {
			n = maxAlternatives
		}
		result.Alternatives = candidates[1 : 1+n]
	}

	if result.Tier >= TierHigh && best.Strategy == StrategyFuzzyStructured {
		r.learnAlias(ctx, normalized, best.Identity, mc)
	}
	return r.applyMinConfidence(result, mc)
}

// ResolveAll applies the single-token algorithm independently per input
// with no cross-input coupling.
func (r *Resolver) ResolveAll(ctx context.Context, tokens []string, mc MatchContext) []MatchResult {
	results := make([]MatchResult, 0, len(tokens))
	for _, token := range tokens {
		results = append(results, r.Resolve(ctx, token, mc))
	}
	return results
}

// applyMinConfidence nils out the effective match when the best
// candidate sits below the caller's minimum confidence. The candidate
// remains visible through the explanation.
func (r *Resolver) applyMinConfidence(result MatchResult, mc MatchContext) MatchResult {
	if result.Identity == nil {
		return result
	}
	if result.Tier != TierNoMatch && result.Tier >= mc.MinConfidence {
		return result
	}
	result.Explanation = fmt.Sprintf("best candidate %q (%.2f, %s) below minimum confidence %s",
		result.Identity.DisplayName, result.Score, result.Tier, mc.MinConfidence)
	result.Identity = nil
	result.Tier = TierNoMatch
	return result
}

// fuzzyScan scores every directory entry against the token and returns
// candidates at or above the floor, ranked descending by score.
func (r *Resolver) fuzzyScan(normalized string) []Candidate {
	interpretations := ParseName(normalized)

	var candidates []Candidate
	for _, id := range r.dir.Enumerate() {
		score, strategy := scoreIdentity(normalized, interpretations, id)
		if score >= ScoreFloor {
			candidates = append(candidates, Candidate{Identity: id, Score: score, Strategy: strategy})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates
}

// scoreIdentity takes the max of the structured and unstructured
// sub-scores for one directory entry.
func scoreIdentity(normalized string, interpretations []NameParts, id *Identity) (float64, Strategy) {
	structured := structuredScore(interpretations, id)
	unstructured := unstructuredScore(normalized, id)

	if structured >= unstructured {
		return structured, StrategyFuzzyStructured
	}
	return unstructured, StrategyFuzzyUnstructured
}

// structuredScore compares given/family interpretations of the input
// against the directory entry's structured name. Surnames must match
// exactly; equivalent given names (exact, nickname table, or >=3 char
// prefix) score 0.95, otherwise the score scales with given-name
// similarity in [0.70, 0.90].
func structuredScore(interpretations []NameParts, id *Identity) float64 {
	given := Normalize(id.GivenName)
	family := Normalize(id.FamilyName)
	if family == "" {
		return 0
	}

	best := 0.0
	for _, parts := range interpretations {
		if parts.Family != family {
			continue
		}
		if givenNamesEquivalent(parts.Given, given) {
			return structuredStrongScore
		}
		score := 0.70 + 0.20*Similarity(parts.Given, given)
		if score > best {
			best = score
		}
	}
	return best
}

// unstructuredScore is the best normalized edit-distance similarity of
// the input against the cleaned display name, "given family", and
// "family given" renderings.
func unstructuredScore(normalized string, id *Identity) float64 {
	given := Normalize(id.GivenName)
	family := Normalize(id.FamilyName)

	forms := []string{CleanToken(id.DisplayName)}
	if given != "" && family != "" {
		forms = append(forms, given+" "+family, family+" "+given)
	}

	best := 0.0
	for _, form := range forms {
		if form == "" {
			continue
		}
		if s := Similarity(normalized, form); s > best {
			best = s
		}
	}
	return best
}

// learnAlias opportunistically registers the normalized input as a new
// alias when it is not already known to the directory.
func (r *Resolver) learnAlias(ctx context.Context, normalized string, id *Identity, mc MatchContext) {
	if normalized == "" {
		return
	}
	if _, known := r.dir.Alias(normalized); known {
		return
	}
	if _, known := r.dir.ByName(normalized); known {
		return
	}
	if LooksLikeEmail(normalized) {
		if _, known := r.dir.ByEmail(normalized); known {
			return
		}
	}

	alias := Alias{
		Value:       normalized,
		IdentityKey: id.Key,
		Source:      mc.Source,
		CreatedAt:   time.Now().UTC(),
	}
	if err := r.dir.AddAlias(alias); err != nil {
		logging.Ctx(ctx).Warn().
			Err(err).
			Str("alias", normalized).
			Str("identity", id.Key).
			Msg("Could not register learned alias")
	}
}
