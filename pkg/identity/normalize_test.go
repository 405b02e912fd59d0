package identity

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase and trim", "  John SMITH ", "john smith"},
		{"collapse whitespace", "john \t  smith", "john smith"},
		{"strip diacritics", "José García", "jose garcia"},
		{"preserve comma", "Smith,  John", "smith, john"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStripQualifier(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Jones, Jeffery (JJ)", "Jones, Jeffery"},
		{"John Smith (Contractor)", "John Smith"},
		{"John Smith", "John Smith"},
		{"(orphan)", ""},
	}
	for _, tt := range tests {
		if got := StripQualifier(tt.input); got != tt.want {
			t.Errorf("StripQualifier(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestCleanToken(t *testing.T) {
	if got := CleanToken("  Jones, Jeffery (JJ) "); got != "jones, jeffery" {
		t.Errorf("CleanToken = %q, want %q", got, "jones, jeffery")
	}
}

func TestLooksLikeEmail(t *testing.T) {
	if !LooksLikeEmail("jsmith@example.com") {
		t.Error("expected email to be recognized")
	}
	if LooksLikeEmail("john smith") {
		t.Error("expected plain name to not look like an email")
	}
	if LooksLikeEmail("jsmith@localhost") {
		t.Error("expected address without dot to not look like an email")
	}
}

func TestParseName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []NameParts
	}{
		{
			name:  "comma form",
			input: "smith, john",
			want:  []NameParts{{Given: "john", Family: "smith"}},
		},
		{
			name:  "two tokens both readings",
			input: "john smith",
			want: []NameParts{
				{Given: "john", Family: "smith"},
				{Given: "smith", Family: "john"},
			},
		},
		{
			name:  "three tokens last is surname",
			input: "mary jo smith",
			want:  []NameParts{{Given: "mary jo", Family: "smith"}},
		},
		{name: "single token", input: "smith", want: nil},
		{name: "empty", input: "", want: nil},
		{name: "dangling comma", input: "smith,", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseName(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseName(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestPermutations(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"smith, john", []string{"john smith", "smith john"}},
		{"john smith", []string{"smith, john", "smith john"}},
		{"mary jo smith", []string{"smith, mary jo", "smith mary jo"}},
		{"smith", nil},
	}
	for _, tt := range tests {
		if got := Permutations(tt.input); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Permutations(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNicknamesMatch(t *testing.T) {
	if !NicknamesMatch("jeff", "jeffrey") {
		t.Error("jeff and jeffrey should match")
	}
	if !NicknamesMatch("Jeffrey", "jeff") {
		t.Error("nickname matching should be symmetric and case-insensitive")
	}
	if NicknamesMatch("jeff", "john") {
		t.Error("jeff and john should not match")
	}
	if NicknamesMatch("", "jeff") {
		t.Error("empty name should never match")
	}
}
