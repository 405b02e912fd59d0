package identity

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Pre-compiled regular expressions for token normalization.
var (
	trailingQualifierRe = regexp.MustCompile(`\s*\([^)]*\)\s*$`)
	whitespaceRe        = regexp.MustCompile(`\s+`)
)

// Normalize lowercases, trims, strips diacritics, and collapses
// whitespace. Commas are preserved so that "Last, First" structure
// survives normalization; use Permutations to rewrite between forms.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return s
	}
	s = stripDiacritics(s)
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// StripQualifier removes a trailing parenthetical qualifier such as the
// nickname in "Jones, Jeffery (JJ)".
func StripQualifier(s string) string {
	return strings.TrimSpace(trailingQualifierRe.ReplaceAllString(s, ""))
}

// CleanToken is the normalized form used for alias keys and equality
// comparisons: qualifier stripped, then normalized.
func CleanToken(s string) string {
	return Normalize(StripQualifier(s))
}

// LooksLikeEmail reports whether a token is plausibly an email address
// or user principal name. Only such tokens attempt the exact-email
// strategy.
func LooksLikeEmail(s string) bool {
	return strings.Contains(s, "@") && strings.Contains(s, ".")
}

// stripDiacritics removes diacritical marks from a string by NFD
// decomposition and dropping combining marks.
func stripDiacritics(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NameParts is one structural interpretation of a free-text name.
type NameParts struct {
	Given  string
	Family string
}

// ParseName extracts given/family interpretations from a cleaned token.
// "last, first" yields one interpretation; a space-separated name with
// n tokens treats the last token as the surname and the remainder as
// the given name, plus the reverse reading for two-token names.
func ParseName(clean string) []NameParts {
	if clean == "" {
		return nil
	}
	if last, first, ok := strings.Cut(clean, ","); ok {
		last = strings.TrimSpace(last)
		first = strings.TrimSpace(first)
		if last == "" || first == "" {
			return nil
		}
		return []NameParts{{Given: first, Family: last}}
	}

	tokens := strings.Fields(clean)
	switch {
	case len(tokens) < 2:
		return nil
	case len(tokens) == 2:
		// Both readings: "First Last" and "Last First".
		return []NameParts{
			{Given: tokens[0], Family: tokens[1]},
			{Given: tokens[1], Family: tokens[0]},
		}
	default:
		// 3+ tokens: last token is the surname, remainder the given name.
		return []NameParts{{
			Given:  strings.Join(tokens[:len(tokens)-1], " "),
			Family: tokens[len(tokens)-1],
		}}
	}
}

// Permutations rewrites a cleaned name token between its comma and
// space forms:
//
//	"smith, john" -> {"john smith", "smith john"}
//	"john smith"  -> {"smith, john", "smith john"}
//
// The input itself is not included. Unparseable tokens yield nil.
func Permutations(clean string) []string {
	if last, first, ok := strings.Cut(clean, ","); ok {
		last = strings.TrimSpace(last)
		first = strings.TrimSpace(first)
		if last == "" || first == "" {
			return nil
		}
		return []string{first + " " + last, last + " " + first}
	}

	tokens := strings.Fields(clean)
	if len(tokens) < 2 {
		return nil
	}
	family := tokens[len(tokens)-1]
	given := strings.Join(tokens[:len(tokens)-1], " ")
	return []string{family + ", " + given, family + " " + given}
}
