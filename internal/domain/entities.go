// Package domain defines the core business entities and interfaces for commitsense.
package domain

import (
	"fmt"
	"strings"
)

// Strategy identifies which rule of the base-commit fallback chain produced a result.
type Strategy string

// Base-commit strategies, in priority order.
const (
	StrategyExplicitRef   Strategy = "explicit_ref"
	StrategyTagGlob       Strategy = "tag_glob"
	StrategyTagRegex      Strategy = "tag_regex"
	StrategyReleaseCommit Strategy = "release_commit"
	StrategySemverTag     Strategy = "semver_tag"
	StrategyInitialCommit Strategy = "initial_commit"
)

// ReleaseCommitPrefix marks a conventional release commit. Matched case-insensitively at line start.
const ReleaseCommitPrefix = "release: "

// NoChangesChangelogText is published when there is nothing new since the base commit.
const NoChangesChangelogText = "No changes detected since last release."

// BaseCommitInput contains the optional selectors for base-commit resolution.
// TagGlob and TagRegex are mutually exclusive.
type BaseCommitInput struct {
	// ExplicitRef is a branch, tag or hash that overrides every other strategy.
	ExplicitRef string

	// TagGlob selects the latest tag whose name matches the glob.
	TagGlob string

	// TagRegex selects the latest tag whose name matches the regular expression.
	TagRegex string
}

// Validate checks the precondition that glob and regex are not both set.
func (in BaseCommitInput) Validate() error {
	if in.TagGlob != "" && in.TagRegex != "" {
		return fmt.Errorf("%w: pattern %q, regex %q", ErrConflictingTagFilters, in.TagGlob, in.TagRegex)
	}
	return nil
}

// BaseCommit is the commit representing the last release.
type BaseCommit struct {
	// OID is the full commit hash.
	OID string

	// Strategy is the rule that selected the commit.
	Strategy Strategy

	// Tag is the tag name when Strategy is tag based, empty otherwise.
	Tag string
}

// BumpType is the semantic-version category implied by a set of commits.
type BumpType string

// Supported bump types.
const (
	BumpMajor BumpType = "major"
	BumpMinor BumpType = "minor"
	BumpPatch BumpType = "patch"
	BumpNone  BumpType = "none"
)

// ParseBumpType parses a bump type case-insensitively.
func ParseBumpType(s string) (BumpType, error) {
	switch b := BumpType(strings.ToLower(strings.TrimSpace(s))); b {
	case BumpMajor, BumpMinor, BumpPatch, BumpNone:
		return b, nil
	default:
		return "", fmt.Errorf("%w: unknown bump type %q", ErrVersion, s)
	}
}

// ProjectType is the kind of manifest holding the project version.
type ProjectType string

// Supported project types.
const (
	ProjectRust       ProjectType = "rust"
	ProjectJavaScript ProjectType = "javascript"
)

// ParseProjectType parses a project type, accepting the common JavaScript aliases.
func ParseProjectType(s string) (ProjectType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rust":
		return ProjectRust, nil
	case "js", "ts", "javascript", "typescript", "node":
		return ProjectJavaScript, nil
	default:
		return "", fmt.Errorf(
			"%w: invalid project type %q; supported types are 'rust', 'js', 'ts', 'javascript', 'typescript', 'node'",
			ErrConfig, s,
		)
	}
}

// DisplayName returns a human-friendly project type name.
func (p ProjectType) DisplayName() string {
	switch p {
	case ProjectRust:
		return "Rust"
	case ProjectJavaScript:
		return "JavaScript/TypeScript"
	default:
		return string(p)
	}
}

// Suggestion is the AI-proposed release classification.
type Suggestion struct {
	BumpType          BumpType
	NextVersion       string
	ChangelogMarkdown string
}

// AnalyzeInput contains the parameters for one release analysis.
type AnalyzeInput struct {
	Base BaseCommitInput

	// Write applies the version and changelog changes to disk.
	Write bool

	// Nightly converts the suggested version into a nightly pre-release.
	Nightly bool
}

// AnalyzeOutput is the result of a release analysis.
type AnalyzeOutput struct {
	ProjectType    ProjectType
	CurrentVersion string
	Base           BaseCommit
	CommitCount    int

	// NoChanges is set when no commits exist after the base commit.
	NoChanges bool

	BumpType         BumpType
	NextVersion      string
	NightlyVersion   string
	ChangelogSection string

	// Applied reports whether the manifest and changelog were written.
	Applied bool
}

// FinalVersion returns the nightly version when set, otherwise the next version.
func (o *AnalyzeOutput) FinalVersion() string {
	if o.NightlyVersion != "" {
		return o.NightlyVersion
	}
	return o.NextVersion
}
