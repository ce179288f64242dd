// Package domain defines the core business entities and interfaces for commitsense.
// This package contains no external dependencies and represents the innermost layer
// of the CLEAN architecture.
package domain

import (
	"context"
	"errors"
	"fmt"
)

// Domain errors. Callers match kinds with errors.Is.
var (
	// ErrGitCommand indicates a git query failed or returned unusable output.
	ErrGitCommand = errors.New("git command execution failed")

	// ErrNoInitialCommit indicates no parentless commit is reachable from HEAD,
	// which only happens for a repository without commits.
	ErrNoInitialCommit = fmt.Errorf(
		"%w: could not find the initial commit (no commits with zero parents found from HEAD)",
		ErrGitCommand,
	)

	// ErrRepositoryNotFound indicates the specified path is not a valid Git repository.
	ErrRepositoryNotFound = errors.New("git repository not found at specified path")

	// ErrReferenceNotFound indicates a ref could not be resolved to a commit.
	ErrReferenceNotFound = errors.New("reference not found")

	// ErrConfig indicates invalid user-supplied configuration.
	ErrConfig = errors.New("configuration error")

	// ErrInvalidBaseRef indicates the explicit base reference could not be resolved.
	ErrInvalidBaseRef = fmt.Errorf("%w: explicit base reference could not be resolved", ErrConfig)

	// ErrConflictingTagFilters indicates both a tag glob and a tag regex were supplied.
	ErrConflictingTagFilters = fmt.Errorf("%w: tag pattern and tag regex are mutually exclusive", ErrConfig)

	// ErrInvalidTagFilter indicates the tag glob or regex does not compile.
	ErrInvalidTagFilter = fmt.Errorf("%w: invalid tag filter", ErrConfig)

	// ErrProject indicates the project manifest could not be read or updated.
	ErrProject = errors.New("project file handling error")

	// ErrVersion indicates an invalid semantic version or bump type.
	ErrVersion = errors.New("versioning error")

	// ErrChangelog indicates the changelog could not be written.
	ErrChangelog = errors.New("changelog generation/writing error")

	// ErrAPI indicates the AI suggestion call failed or returned an unusable response.
	ErrAPI = errors.New("AI API error")
)

// Repository is the query surface over a local version-control repository.
// Implementations exist for go-git, the git binary and an in-memory graph.
type Repository interface {
	// ResolveReference resolves a branch, tag, hash or HEAD to a full commit hash.
	// Annotated tags are peeled to the commit they point at.
	// Returns an error wrapping ErrReferenceNotFound if the ref does not exist.
	ResolveReference(ctx context.Context, ref string) (string, error)

	// ListTags returns all tag names in unspecified order.
	ListTags(ctx context.Context) ([]string, error)

	// CommitTime returns the committer time of ref in seconds since the epoch.
	CommitTime(ctx context.Context, ref string) (int64, error)

	// FindCommitByMessagePrefix returns the most recent commit reachable from HEAD
	// having a message line that starts with prefix.
	// Returns ("", false, nil) if no commit matches.
	FindCommitByMessagePrefix(ctx context.Context, prefix string, caseInsensitive bool) (string, bool, error)

	// ListRootCommits returns the parentless commits reachable from HEAD.
	// Returns an empty slice for a repository without commits.
	ListRootCommits(ctx context.Context) ([]string, error)

	// ListCommitsBetween returns the full messages of commits reachable from head
	// but not from base, oldest first.
	ListCommitsBetween(ctx context.Context, base, head string) ([]string, error)

	// CurrentHead returns the commit hash HEAD points at.
	CurrentHead(ctx context.Context) (string, error)

	// Close releases any resources held by the repository.
	Close() error
}

// BaseCommitResolver picks the commit that represents the last release.
type BaseCommitResolver interface {
	// Resolve runs the strategy chain and returns the first usable base commit.
	Resolve(ctx context.Context, input BaseCommitInput) (*BaseCommit, error)

	// CommitsSince returns the messages of commits after base, oldest first.
	CommitsSince(ctx context.Context, baseOID string) ([]string, error)
}

// Project reads and writes the version of a project manifest.
type Project interface {
	// Type returns the manifest kind.
	Type() ProjectType

	// VersionFilePath returns the path of the manifest file.
	VersionFilePath() string

	// CurrentVersion reads the version string from the manifest.
	CurrentVersion() (string, error)

	// SetVersion writes a new version string into the manifest.
	SetVersion(version string) error
}

// Suggester asks a language model to classify commits into a release suggestion.
type Suggester interface {
	// Suggest returns the bump type, next version and changelog markdown.
	Suggest(ctx context.Context, currentVersion string, messages []string, projectType ProjectType) (*Suggestion, error)
}

// ChangelogWriter prepends formatted release sections to a changelog.
type ChangelogWriter interface {
	// FormatSection formats the markdown for one version.
	FormatSection(version, changesMarkdown string) string

	// Prepend inserts section before previous version sections.
	Prepend(section string) error
}

// ReleaseAnalyzer runs one end-to-end release analysis.
type ReleaseAnalyzer interface {
	Analyze(ctx context.Context, input AnalyzeInput) (*AnalyzeOutput, error)
}

// OutputWriter publishes the analysis result.
type OutputWriter interface {
	// WriteResult writes the report and any CI outputs.
	WriteResult(result *AnalyzeOutput) error
}
