// Package git provides adapters for interacting with local Git repositories.
// This package implements domain.Repository with go-git/v5, the git executable
// and an in-memory commit graph.
package git

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"github.com/MyCarrier-DevOps/commitsense/internal/domain"
)

// Logger defines the logging interface for the git adapters.
// This interface enables dependency injection and testability.
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
}

// GoGitRepository implements domain.Repository using go-git/v5.
// No git executable is required.
type GoGitRepository struct {
	repo   *git.Repository
	path   string
	logger Logger
}

// NewGoGitRepository creates a new GoGitRepository for the given path.
// The path may be the working tree root or any directory below it, so a sub-package
// of a monorepo can be analyzed directly.
// Returns domain.ErrRepositoryNotFound if no repository contains the path.
func NewGoGitRepository(path string, log Logger) (*GoGitRepository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrRepositoryNotFound, path)
	}

	return &GoGitRepository{
		repo:   repo,
		path:   path,
		logger: log,
	}, nil
}

// ResolveReference resolves a branch, tag, hash or HEAD to a full commit hash.
// Annotated tags are peeled to their commit.
func (r *GoGitRepository) ResolveReference(_ context.Context, ref string) (string, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", domain.ErrReferenceNotFound, ref, err)
	}
	return hash.String(), nil
}

// ListTags returns the short names of all tags.
func (r *GoGitRepository) ListTags(ctx context.Context) ([]string, error) {
	iter, err := r.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list tags: %w", domain.ErrGitCommand, err)
	}
	defer iter.Close()

	var tags []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		tags = append(tags, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to iterate tags: %w", domain.ErrGitCommand, err)
	}

	r.logger.Debug(ctx, "listed tags", map[string]interface{}{
		"path":       r.path,
		"tags_count": len(tags),
	})

	return tags, nil
}

// CommitTime returns the committer time of ref in unix seconds.
func (r *GoGitRepository) CommitTime(_ context.Context, ref string) (int64, error) {
	commit, err := r.commitForRef(ref)
	if err != nil {
		return 0, err
	}
	return commit.Committer.When.Unix(), nil
}

// FindCommitByMessagePrefix walks history from HEAD newest first and returns the first
// commit with a message line starting with prefix.
func (r *GoGitRepository) FindCommitByMessagePrefix(
	ctx context.Context,
	prefix string,
	caseInsensitive bool,
) (string, bool, error) {
	head, err := r.headCommit()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	var found string
	iter := object.NewCommitIterCTime(head, nil, nil)
	defer iter.Close()

	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if messageHasPrefix(c.Message, prefix, caseInsensitive) {
			found = c.Hash.String()
			return storer.ErrStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return "", false, fmt.Errorf("%w: failed to search commit messages: %w", domain.ErrGitCommand, err)
	}

	return found, found != "", nil
}

// ListRootCommits returns the parentless commits reachable from HEAD, newest first.
// An unborn HEAD yields an empty slice.
func (r *GoGitRepository) ListRootCommits(ctx context.Context) ([]string, error) {
	head, err := r.headCommit()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		r.logger.Debug(ctx, "HEAD is unborn; repository has no commits", map[string]interface{}{
			"path": r.path,
		})
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	roots := []string{}
	iter := object.NewCommitIterCTime(head, nil, nil)
	defer iter.Close()

	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.NumParents() == 0 {
			roots = append(roots, c.Hash.String())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to walk commit history: %w", domain.ErrGitCommand, err)
	}

	return roots, nil
}

// ListCommitsBetween returns the trimmed messages of commits reachable from head but
// not from base, oldest first. Commits with empty messages are skipped.
func (r *GoGitRepository) ListCommitsBetween(ctx context.Context, base, head string) ([]string, error) {
	baseCommit, err := r.commitForRef(base)
	if err != nil {
		return nil, err
	}
	headCommit, err := r.commitForRef(head)
	if err != nil {
		return nil, err
	}

	excluded := make(map[plumbing.Hash]bool)
	baseIter := object.NewCommitPreorderIter(baseCommit, nil, nil)
	defer baseIter.Close()

	err = baseIter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		excluded[c.Hash] = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to walk base history: %w", domain.ErrGitCommand, err)
	}

	var messages []string
	iter := object.NewCommitIterCTime(headCommit, excluded, nil)
	defer iter.Close()

	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if msg := strings.TrimSpace(c.Message); msg != "" {
			messages = append(messages, msg)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to walk commit range: %w", domain.ErrGitCommand, err)
	}

	slices.Reverse(messages)

	r.logger.Debug(ctx, "walked commit range", map[string]interface{}{
		"base":          base,
		"head":          head,
		"commits_count": len(messages),
		"excluded":      len(excluded),
	})

	return messages, nil
}

// CurrentHead returns the commit hash HEAD points at.
func (r *GoGitRepository) CurrentHead(ctx context.Context) (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("%w: failed to get HEAD: %w", domain.ErrGitCommand, err)
	}

	if !head.Name().IsBranch() {
		r.logger.Debug(ctx, "HEAD is detached", map[string]interface{}{
			"head_sha": head.Hash().String(),
			"path":     r.path,
		})
	}

	return head.Hash().String(), nil
}

// Close releases any resources held by the repository.
// For go-git, this is a no-op as the repository doesn't hold persistent resources.
func (r *GoGitRepository) Close() error {
	return nil
}

// headCommit returns the commit object for HEAD. The error wraps
// plumbing.ErrReferenceNotFound when HEAD is unborn.
func (r *GoGitRepository) headCommit() (*object.Commit, error) {
	head, err := r.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: failed to get HEAD: %w", domain.ErrGitCommand, err)
	}

	commit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get commit object for HEAD: %w", domain.ErrGitCommand, err)
	}
	return commit, nil
}

func (r *GoGitRepository) commitForRef(ref string) (*object.Commit, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrReferenceNotFound, ref, err)
	}

	commit, err := r.repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get commit object for %s: %w", domain.ErrGitCommand, ref, err)
	}
	return commit, nil
}
