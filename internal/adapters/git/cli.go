package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/MyCarrier-DevOps/commitsense/internal/domain"
)

// commitSeparator terminates each message in `git log` output. NUL never occurs in commit messages.
const commitSeparator = "\x00"

// CommandError describes a failed git invocation.
// It matches both domain.ErrGitCommand and the underlying exec error.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("git command `git %s` failed: %s", strings.Join(e.Args, " "), e.Stderr)
	}
	return fmt.Sprintf("git command `git %s` failed: %v", strings.Join(e.Args, " "), e.Err)
}

// Unwrap returns the error kinds this failure matches.
func (e *CommandError) Unwrap() []error {
	return []error{domain.ErrGitCommand, e.Err}
}

// ExitCode returns the process exit code, or -1 if git did not run to completion.
func (e *CommandError) ExitCode() int {
	var exitErr *exec.ExitError
	if errors.As(e.Err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// CLIRepository implements domain.Repository by running the git executable.
type CLIRepository struct {
	dir     string
	gitPath string
	logger  Logger
}

// NewCLIRepository creates a CLIRepository rooted at path.
// Returns domain.ErrGitCommand if git is not installed and
// domain.ErrRepositoryNotFound if path is not inside a work tree.
func NewCLIRepository(path string, log Logger) (*CLIRepository, error) {
	gitPath, err := exec.LookPath("git")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to execute git; is 'git' installed and in PATH? %w", domain.ErrGitCommand, err)
	}

	dir, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrRepositoryNotFound, path, err)
	}

	r := &CLIRepository{
		dir:     dir,
		gitPath: gitPath,
		logger:  log,
	}

	if _, err := r.run(context.Background(), "rev-parse", "--git-dir"); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrRepositoryNotFound, path)
	}

	return r, nil
}

// ResolveReference resolves ref with `git rev-parse`, peeling tags to their commit.
func (r *CLIRepository) ResolveReference(ctx context.Context, ref string) (string, error) {
	if ref == "" || strings.HasPrefix(ref, "-") {
		return "", fmt.Errorf("%w: %q", domain.ErrReferenceNotFound, ref)
	}

	out, err := r.run(ctx, "rev-parse", "--verify", "--quiet", ref+"^{commit}")
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) && cmdErr.ExitCode() == 1 {
			return "", fmt.Errorf("%w: %s", domain.ErrReferenceNotFound, ref)
		}
		return "", err
	}

	oid := strings.TrimSpace(out)
	if oid == "" {
		return "", fmt.Errorf("%w: %s resolved to an empty object id", domain.ErrReferenceNotFound, ref)
	}
	return oid, nil
}

// ListTags returns all tag names from `git tag --list`.
func (r *CLIRepository) ListTags(ctx context.Context) ([]string, error) {
	out, err := r.run(ctx, "tag", "--list")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// CommitTime returns the committer time of ref from `git log -1 --format=%ct`.
func (r *CLIRepository) CommitTime(ctx context.Context, ref string) (int64, error) {
	oid, err := r.ResolveReference(ctx, ref)
	if err != nil {
		return 0, err
	}

	out, err := r.run(ctx, "log", "-1", "--format=%ct", oid, "--")
	if err != nil {
		return 0, err
	}

	value := strings.TrimSpace(out)
	seconds, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to parse commit time %q for ref %q: %w", domain.ErrGitCommand, value, ref, err)
	}
	return seconds, nil
}

// FindCommitByMessagePrefix runs `git log --grep=^prefix -n 1` from HEAD.
func (r *CLIRepository) FindCommitByMessagePrefix(
	ctx context.Context,
	prefix string,
	caseInsensitive bool,
) (string, bool, error) {
	hasHead, err := r.hasHead(ctx)
	if err != nil || !hasHead {
		return "", false, err
	}

	args := []string{"log", "--grep=^" + regexp.QuoteMeta(prefix), "-E"}
	if caseInsensitive {
		args = append(args, "-i")
	}
	args = append(args, "-n", "1", "--format=%H", "HEAD", "--")

	out, err := r.run(ctx, args...)
	if err != nil {
		return "", false, err
	}

	oid := strings.TrimSpace(out)
	return oid, oid != "", nil
}

// ListRootCommits runs `git rev-list --max-parents=0 HEAD`.
// An unborn HEAD yields an empty slice.
func (r *CLIRepository) ListRootCommits(ctx context.Context) ([]string, error) {
	hasHead, err := r.hasHead(ctx)
	if err != nil {
		return nil, err
	}
	if !hasHead {
		r.logger.Debug(ctx, "HEAD is unborn; repository has no commits", map[string]interface{}{
			"path": r.dir,
		})
		return []string{}, nil
	}

	out, err := r.run(ctx, "rev-list", "--max-parents=0", "HEAD", "--")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// ListCommitsBetween runs `git log base..head --reverse` and returns full messages.
func (r *CLIRepository) ListCommitsBetween(ctx context.Context, base, head string) ([]string, error) {
	out, err := r.run(ctx, "log", "--format=%B"+"%x00", "--reverse", base+".."+head, "--")
	if err != nil {
		return nil, err
	}

	messages := []string{}
	for _, block := range strings.Split(out, commitSeparator) {
		if msg := strings.TrimSpace(block); msg != "" {
			messages = append(messages, msg)
		}
	}
	return messages, nil
}

// CurrentHead returns the commit hash of HEAD.
func (r *CLIRepository) CurrentHead(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "rev-parse", "--verify", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Close releases any resources held by the repository. Nothing is held between commands.
func (r *CLIRepository) Close() error {
	return nil
}

// hasHead reports whether HEAD points at a commit. It is false for a fresh `git init`.
func (r *CLIRepository) hasHead(ctx context.Context) (bool, error) {
	_, err := r.run(ctx, "rev-parse", "--verify", "--quiet", "HEAD")
	if err == nil {
		return true, nil
	}

	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && cmdErr.ExitCode() == 1 {
		return false, nil
	}
	return false, err
}

func (r *CLIRepository) run(ctx context.Context, args ...string) (string, error) {
	r.logger.Debug(ctx, "running git command", map[string]interface{}{
		"args": strings.Join(args, " "),
		"dir":  r.dir,
	})

	cmd := exec.CommandContext(ctx, r.gitPath, args...)
	cmd.Dir = r.dir
	cmd.Env = append(os.Environ(), "LC_ALL=C", "GIT_TERMINAL_PROMPT=0")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		cmdErr := &CommandError{
			Args:   args,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
		r.logger.Warn(ctx, "git command failed", map[string]interface{}{
			"args":   strings.Join(args, " "),
			"stderr": cmdErr.Stderr,
			"stdout": strings.TrimSpace(stdout.String()),
		})
		return "", cmdErr
	}

	return stdout.String(), nil
}

func splitLines(s string) []string {
	lines := []string{}
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
