// Package usecases contains the application business logic.
// This package orchestrates domain entities and interfaces to fulfill use cases.
package usecases

import (
	"context"
	"fmt"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/MyCarrier-DevOps/commitsense/internal/domain"
)

// Logger defines the logging interface required by the use cases.
// This abstracts the logger dependency to avoid coupling to a specific implementation.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, err error, fields map[string]interface{})
}

// BaseCommitResolver finds the commit that represents the last release using only
// generic repository queries: tags, commit message search and topology.
type BaseCommitResolver struct {
	repo   domain.Repository
	logger Logger
}

// NewBaseCommitResolver creates a new BaseCommitResolver over the given repository.
func NewBaseCommitResolver(repo domain.Repository, log Logger) *BaseCommitResolver {
	return &BaseCommitResolver{
		repo:   repo,
		logger: log,
	}
}

// tagCandidate is a tag that survived filtering, with its lazily fetched metadata.
type tagCandidate struct {
	name    string
	time    int64
	version *semver.Version
}

// Resolve runs the strategy chain in priority order and returns the first usable result:
//
//  1. explicit reference (fatal on failure)
//  2. latest tag matching the glob
//  3. latest tag matching the regex
//  4. most recent "release: " commit
//  5. highest semantic-version tag
//  6. initial commit
//
// Listing and per-candidate failures are logged and absorbed. Only an unresolvable
// explicit reference, an invalid filter or an empty repository end the chain with an error.
func (r *BaseCommitResolver) Resolve(ctx context.Context, input domain.BaseCommitInput) (*domain.BaseCommit, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	if input.ExplicitRef != "" {
		return r.resolveExplicitRef(ctx, input.ExplicitRef)
	}

	tags := r.listTags(ctx)

	switch {
	case input.TagGlob != "":
		base, err := r.resolveByGlob(ctx, tags, input.TagGlob)
		if err != nil || base != nil {
			return base, err
		}
	case input.TagRegex != "":
		base, err := r.resolveByRegex(ctx, tags, input.TagRegex)
		if err != nil || base != nil {
			return base, err
		}
	}

	if base := r.resolveReleaseCommit(ctx); base != nil {
		return base, nil
	}

	if base := r.resolveSemverTag(ctx, tags); base != nil {
		return base, nil
	}

	return r.resolveInitialCommit(ctx)
}

// CommitsSince returns the full messages of commits after baseOID up to HEAD, oldest first.
// An empty slice means HEAD is the base commit and there is nothing new to release.
func (r *BaseCommitResolver) CommitsSince(ctx context.Context, baseOID string) ([]string, error) {
	head, err := r.repo.CurrentHead(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	if head == baseOID {
		r.logger.Info(ctx, "HEAD is the base commit; no new commits", map[string]interface{}{
			"head": head,
		})
		return []string{}, nil
	}

	messages, err := r.repo.ListCommitsBetween(ctx, baseOID, head)
	if err != nil {
		return nil, fmt.Errorf("failed to list commits between %s and %s: %w", baseOID, head, err)
	}

	r.logger.Info(ctx, "collected commit messages since base commit", map[string]interface{}{
		"base":          baseOID,
		"head":          head,
		"commits_count": len(messages),
	})

	return messages, nil
}

func (r *BaseCommitResolver) resolveExplicitRef(ctx context.Context, ref string) (*domain.BaseCommit, error) {
	r.logger.Info(ctx, "using explicit base reference", map[string]interface{}{
		"strategy": domain.StrategyExplicitRef,
		"ref":      ref,
	})

	oid, err := r.repo.ResolveReference(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", domain.ErrInvalidBaseRef, ref, err)
	}

	return &domain.BaseCommit{OID: oid, Strategy: domain.StrategyExplicitRef}, nil
}

// listTags lists tags once for every tag-based strategy. A failing listing is treated as empty.
func (r *BaseCommitResolver) listTags(ctx context.Context) []string {
	tags, err := r.repo.ListTags(ctx)
	if err != nil {
		r.logger.Warn(ctx, "failed to list git tags; proceeding without tag-based discovery", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}

	r.logger.Debug(ctx, "listed git tags", map[string]interface{}{
		"tags_count": len(tags),
	})
	return tags
}

func (r *BaseCommitResolver) resolveByGlob(
	ctx context.Context,
	tags []string,
	pattern string,
) (*domain.BaseCommit, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%w: glob pattern %q", domain.ErrInvalidTagFilter, pattern)
	}

	r.logger.Info(ctx, "searching for tags matching glob pattern", map[string]interface{}{
		"strategy": domain.StrategyTagGlob,
		"pattern":  pattern,
	})

	return r.resolveLatestMatchingTag(ctx, domain.StrategyTagGlob, tags, func(tag string) bool {
		matched, err := doublestar.Match(pattern, tag)
		return err == nil && matched
	}), nil
}

func (r *BaseCommitResolver) resolveByRegex(
	ctx context.Context,
	tags []string,
	expr string,
) (*domain.BaseCommit, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: regex %q: %w", domain.ErrInvalidTagFilter, expr, err)
	}

	r.logger.Info(ctx, "searching for tags matching regex pattern", map[string]interface{}{
		"strategy": domain.StrategyTagRegex,
		"regex":    expr,
	})

	return r.resolveLatestMatchingTag(ctx, domain.StrategyTagRegex, tags, re.MatchString), nil
}

// resolveLatestMatchingTag picks the matching tag with the latest commit time.
// Equal times are broken by the lexically greatest tag name.
func (r *BaseCommitResolver) resolveLatestMatchingTag(
	ctx context.Context,
	strategy domain.Strategy,
	tags []string,
	match func(string) bool,
) *domain.BaseCommit {
	var (
		matched int
		latest  *tagCandidate
	)

	for _, tag := range tags {
		if !match(tag) {
			continue
		}
		matched++

		commitTime, err := r.repo.CommitTime(ctx, tag)
		if err != nil {
			r.logger.Warn(ctx, "could not get commit time for matching tag", map[string]interface{}{
				"strategy": strategy,
				"tag":      tag,
				"error":    err.Error(),
			})
			continue
		}

		if latest == nil || commitTime > latest.time || (commitTime == latest.time && tag > latest.name) {
			latest = &tagCandidate{name: tag, time: commitTime}
		}
	}

	if latest == nil {
		reason := "no matching tags found"
		if matched > 0 {
			reason = "no matching tags with valid commit times found"
		}
		r.logger.Warn(ctx, "tag filter provided but no usable tag; falling back", map[string]interface{}{
			"strategy":     strategy,
			"reason":       reason,
			"tags_matched": matched,
		})
		return nil
	}

	return r.baseFromTag(ctx, strategy, latest.name)
}

func (r *BaseCommitResolver) resolveReleaseCommit(ctx context.Context) *domain.BaseCommit {
	r.logger.Info(ctx, "searching for latest conventional release commit", map[string]interface{}{
		"strategy": domain.StrategyReleaseCommit,
		"prefix":   domain.ReleaseCommitPrefix,
	})

	oid, found, err := r.repo.FindCommitByMessagePrefix(ctx, domain.ReleaseCommitPrefix, true)
	if err != nil {
		r.logger.Warn(ctx, "failed to search for conventional release commits", map[string]interface{}{
			"strategy": domain.StrategyReleaseCommit,
			"error":    err.Error(),
		})
		return nil
	}
	if !found {
		r.logger.Debug(ctx, "no conventional release commit found", map[string]interface{}{
			"strategy": domain.StrategyReleaseCommit,
		})
		return nil
	}

	r.logger.Info(ctx, "using latest conventional release commit as base", map[string]interface{}{
		"strategy": domain.StrategyReleaseCommit,
		"oid":      oid,
	})
	return &domain.BaseCommit{OID: oid, Strategy: domain.StrategyReleaseCommit}
}

// resolveSemverTag picks the tag with the highest semantic version, ignoring tags that
// do not parse. Equal versions are broken by later commit time, then by tag name.
func (r *BaseCommitResolver) resolveSemverTag(ctx context.Context, tags []string) *domain.BaseCommit {
	r.logger.Info(ctx, "searching for latest semver tag", map[string]interface{}{
		"strategy": domain.StrategySemverTag,
	})

	var latest *tagCandidate
	for _, tag := range tags {
		version, err := semver.StrictNewVersion(trimVersionPrefix(tag))
		if err != nil {
			continue
		}

		commitTime, err := r.repo.CommitTime(ctx, tag)
		if err != nil {
			r.logger.Warn(ctx, "could not get commit time for semver tag", map[string]interface{}{
				"strategy": domain.StrategySemverTag,
				"tag":      tag,
				"error":    err.Error(),
			})
			continue
		}

		candidate := &tagCandidate{name: tag, time: commitTime, version: version}
		if latest == nil || newerSemverTag(candidate, latest) {
			latest = candidate
		}
	}

	if latest == nil {
		r.logger.Debug(ctx, "no semver tags found", map[string]interface{}{
			"strategy":   domain.StrategySemverTag,
			"tags_count": len(tags),
		})
		return nil
	}

	r.logger.Info(ctx, "selected latest semver tag", map[string]interface{}{
		"strategy": domain.StrategySemverTag,
		"tag":      latest.name,
		"version":  latest.version.String(),
	})
	return r.baseFromTag(ctx, domain.StrategySemverTag, latest.name)
}

func newerSemverTag(candidate, current *tagCandidate) bool {
	switch cmp := candidate.version.Compare(current.version); {
	case cmp != 0:
		return cmp > 0
	case candidate.time != current.time:
		return candidate.time > current.time
	default:
		return candidate.name > current.name
	}
}

func (r *BaseCommitResolver) resolveInitialCommit(ctx context.Context) (*domain.BaseCommit, error) {
	r.logger.Warn(ctx, "no base ref, tag match, release commit or semver tag found; using initial commit", map[string]interface{}{
		"strategy": domain.StrategyInitialCommit,
	})

	roots, err := r.repo.ListRootCommits(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list root commits: %w", err)
	}
	if len(roots) == 0 {
		return nil, domain.ErrNoInitialCommit
	}

	r.logger.Info(ctx, "found initial commit", map[string]interface{}{
		"strategy":    domain.StrategyInitialCommit,
		"oid":         roots[0],
		"roots_count": len(roots),
	})
	return &domain.BaseCommit{OID: roots[0], Strategy: domain.StrategyInitialCommit}, nil
}

// baseFromTag resolves a selected tag to its commit. An unresolvable tag falls through.
func (r *BaseCommitResolver) baseFromTag(ctx context.Context, strategy domain.Strategy, tag string) *domain.BaseCommit {
	oid, err := r.repo.ResolveReference(ctx, tag)
	if err != nil {
		r.logger.Warn(ctx, "failed to resolve selected tag to a commit; falling back", map[string]interface{}{
			"strategy": strategy,
			"tag":      tag,
			"error":    err.Error(),
		})
		return nil
	}

	r.logger.Info(ctx, "using tag as base", map[string]interface{}{
		"strategy": strategy,
		"tag":      tag,
		"oid":      oid,
	})
	return &domain.BaseCommit{OID: oid, Strategy: strategy, Tag: tag}
}
