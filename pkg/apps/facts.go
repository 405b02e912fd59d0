package apps

import "time"

// FactKind identifies one independently fetched fact category.
type FactKind string

// Fact categories, in the order the full refresh sequence runs them.
const (
	FactTechStack FactKind = "tech_stack"
	FactCommits   FactKind = "commits"
	FactPackages  FactKind = "packages"
	FactReadme    FactKind = "readme"
	FactBuild     FactKind = "build"
	FactSecurity  FactKind = "security"
)

// String returns the string representation of a fact kind.
func (k FactKind) String() string {
	return string(k)
}

// FactKinds returns all fact kinds in refresh order.
func FactKinds() []FactKind {
	return []FactKind{FactTechStack, FactCommits, FactPackages, FactReadme, FactBuild, FactSecurity}
}

// Facts holds the per-category collected facts for one application.
// Nil pointers mean the category has never been collected.
type Facts struct {
	TechStack []string          `json:"tech_stack,omitempty" yaml:"tech_stack,omitempty"`
	Commits   *CommitActivity   `json:"commits,omitempty" yaml:"commits,omitempty"`
	Packages  []Package         `json:"packages,omitempty" yaml:"packages,omitempty"`
	Readme    *ReadmeQuality    `json:"readme,omitempty" yaml:"readme,omitempty"`
	Build     *BuildStatus      `json:"build,omitempty" yaml:"build,omitempty"`
	Security  *SecurityFindings `json:"security,omitempty" yaml:"security,omitempty"`
}

// CommitActivity summarizes recent repository commit history.
type CommitActivity struct {
	Total      int       `json:"total" yaml:"total"`
	LastCommit time.Time `json:"last_commit,omitempty" yaml:"last_commit,omitempty"`
	Authors    int       `json:"authors,omitempty" yaml:"authors,omitempty"`
}

// Package is one declared dependency of the application.
type Package struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
}

// ReadmeQuality scores the repository README.
type ReadmeQuality struct {
	Present bool `json:"present" yaml:"present"`
	Score   int  `json:"score" yaml:"score"` // 0-100
}

// BuildStatus is the last known CI build outcome.
type BuildStatus struct {
	State      string    `json:"state" yaml:"state"` // "passing", "failing", "unknown"
	FinishedAt time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
}

// SecurityFindings counts open findings by severity.
type SecurityFindings struct {
	Critical  int       `json:"critical" yaml:"critical"`
	High      int       `json:"high" yaml:"high"`
	Medium    int       `json:"medium" yaml:"medium"`
	Low       int       `json:"low" yaml:"low"`
	ScannedAt time.Time `json:"scanned_at,omitempty" yaml:"scanned_at,omitempty"`
}

// Copy returns a deep copy of the facts.
func (f Facts) Copy() Facts {
	dup := f
	dup.TechStack = append([]string(nil), f.TechStack...)
	dup.Packages = append([]Package(nil), f.Packages...)
	if f.Commits != nil {
		c := *f.Commits
		dup.Commits = &c
	}
	if f.Readme != nil {
		r := *f.Readme
		dup.Readme = &r
	}
	if f.Build != nil {
		b := *f.Build
		dup.Build = &b
	}
	if f.Security != nil {
		s := *f.Security
		dup.Security = &s
	}
	return dup
}

// Apply copies the category named by kind from src into f, leaving the
// other categories untouched. Used by incremental sync to merge a single
// sub-fetch result into a carried-forward record.
func (f *Facts) Apply(src Facts, kind FactKind) {
	switch kind {
	case FactTechStack:
		f.TechStack = append([]string(nil), src.TechStack...)
	case FactCommits:
		f.Commits = src.Commits
	case FactPackages:
		f.Packages = append([]Package(nil), src.Packages...)
	case FactReadme:
		f.Readme = src.Readme
	case FactBuild:
		f.Build = src.Build
	case FactSecurity:
		f.Security = src.Security
	}
}
