package git

import (
	"cmp"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/MyCarrier-DevOps/commitsense/internal/domain"
)

// MemoryOp names a MemoryRepository operation for failure injection.
type MemoryOp string

// Operations that can be made to fail with MemoryRepository.Fail.
const (
	OpResolveReference          MemoryOp = "ResolveReference"
	OpListTags                  MemoryOp = "ListTags"
	OpCommitTime                MemoryOp = "CommitTime"
	OpFindCommitByMessagePrefix MemoryOp = "FindCommitByMessagePrefix"
	OpListRootCommits           MemoryOp = "ListRootCommits"
	OpListCommitsBetween        MemoryOp = "ListCommitsBetween"
	OpCurrentHead               MemoryOp = "CurrentHead"
)

// defaultBranch is the branch HEAD points at in a new MemoryRepository.
const defaultBranch = "main"

// minAbbrevLength is the shortest hash prefix ResolveReference accepts, as git does.
const minAbbrevLength = 4

type memoryCommit struct {
	oid     string
	message string
	time    int64
	parents []string
	seq     int
}

// MemoryRepository implements domain.Repository over an in-memory commit graph.
// It is safe for concurrent use. The zero value is not usable; call NewMemoryRepository.
type MemoryRepository struct {
	mu sync.RWMutex

	commits  map[string]*memoryCommit
	tags     map[string]string
	branches map[string]string

	// headBranch is the branch HEAD follows. Empty means HEAD is detached at detached.
	headBranch string
	detached   string

	failures map[MemoryOp]map[string]error
	seq      int
}

// NewMemoryRepository creates an empty repository whose HEAD is the unborn main branch.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		commits:    make(map[string]*memoryCommit),
		tags:       make(map[string]string),
		branches:   make(map[string]string),
		headBranch: defaultBranch,
		failures:   make(map[MemoryOp]map[string]error),
	}
}

// Commit records a commit on top of HEAD and advances HEAD. It returns the new commit hash.
func (m *MemoryRepository) Commit(message string, unixTime int64) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var parents []string
	if head := m.headLocked(); head != "" {
		parents = []string{head}
	}
	return m.commitLocked(message, unixTime, parents)
}

// CommitWithParents records a commit with explicit parents and advances HEAD.
// No parents creates an additional root commit.
func (m *MemoryRepository) CommitWithParents(message string, unixTime int64, parents ...string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range parents {
		if _, ok := m.commits[p]; !ok {
			panic(fmt.Sprintf("memory repository: unknown parent %s", p))
		}
	}
	return m.commitLocked(message, unixTime, slices.Clone(parents))
}

// Tag points tag name at the commit oid, replacing any existing tag of that name.
func (m *MemoryRepository) Tag(name, oid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tags[name] = oid
}

// Branch points branch name at the commit oid.
func (m *MemoryRepository) Branch(name, oid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.branches[name] = oid
}

// Checkout makes HEAD follow branch name. The branch may be unborn.
func (m *MemoryRepository) Checkout(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.headBranch = name
	m.detached = ""
}

// SetHead detaches HEAD at the commit oid.
func (m *MemoryRepository) SetHead(oid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.headBranch = ""
	m.detached = oid
}

// Fail makes op return err. A non-empty arg restricts the failure to calls whose
// first argument equals arg.
func (m *MemoryRepository) Fail(op MemoryOp, arg string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures[op] == nil {
		m.failures[op] = make(map[string]error)
	}
	m.failures[op][arg] = err
}

// ResolveReference resolves HEAD, a tag, a branch or a full or abbreviated hash.
// Tags win over branches, matching git's ref lookup order.
func (m *MemoryRepository) ResolveReference(_ context.Context, ref string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failureLocked(OpResolveReference, ref); err != nil {
		return "", err
	}
	return m.resolveLocked(ref)
}

// ListTags returns the tag names sorted lexically.
func (m *MemoryRepository) ListTags(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failureLocked(OpListTags, ""); err != nil {
		return nil, err
	}

	tags := make([]string, 0, len(m.tags))
	for name := range m.tags {
		tags = append(tags, name)
	}
	slices.Sort(tags)
	return tags, nil
}

// CommitTime returns the recorded time of the commit ref resolves to.
func (m *MemoryRepository) CommitTime(_ context.Context, ref string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failureLocked(OpCommitTime, ref); err != nil {
		return 0, err
	}

	oid, err := m.resolveLocked(ref)
	if err != nil {
		return 0, err
	}
	return m.commits[oid].time, nil
}

// FindCommitByMessagePrefix returns the newest commit reachable from HEAD with a
// message line starting with prefix.
func (m *MemoryRepository) FindCommitByMessagePrefix(
	_ context.Context,
	prefix string,
	caseInsensitive bool,
) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failureLocked(OpFindCommitByMessagePrefix, prefix); err != nil {
		return "", false, err
	}

	head := m.headLocked()
	if head == "" {
		return "", false, nil
	}

	for _, c := range m.newestFirst(m.reachable(head)) {
		if messageHasPrefix(c.message, prefix, caseInsensitive) {
			return c.oid, true, nil
		}
	}
	return "", false, nil
}

// ListRootCommits returns the parentless commits reachable from HEAD, newest first.
func (m *MemoryRepository) ListRootCommits(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failureLocked(OpListRootCommits, ""); err != nil {
		return nil, err
	}

	roots := []string{}
	head := m.headLocked()
	if head == "" {
		return roots, nil
	}

	for _, c := range m.newestFirst(m.reachable(head)) {
		if len(c.parents) == 0 {
			roots = append(roots, c.oid)
		}
	}
	return roots, nil
}

// ListCommitsBetween returns trimmed messages of commits reachable from head but not
// from base, oldest first.
func (m *MemoryRepository) ListCommitsBetween(_ context.Context, base, head string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failureLocked(OpListCommitsBetween, base); err != nil {
		return nil, err
	}

	baseOID, err := m.resolveLocked(base)
	if err != nil {
		return nil, err
	}
	headOID, err := m.resolveLocked(head)
	if err != nil {
		return nil, err
	}

	excluded := m.reachable(baseOID)
	included := make(map[string]*memoryCommit)
	for oid, c := range m.reachable(headOID) {
		if _, ok := excluded[oid]; !ok {
			included[oid] = c
		}
	}

	ordered := m.newestFirst(included)
	slices.Reverse(ordered)

	messages := []string{}
	for _, c := range ordered {
		if msg := strings.TrimSpace(c.message); msg != "" {
			messages = append(messages, msg)
		}
	}
	return messages, nil
}

// CurrentHead returns the commit HEAD points at.
func (m *MemoryRepository) CurrentHead(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failureLocked(OpCurrentHead, ""); err != nil {
		return "", err
	}

	head := m.headLocked()
	if head == "" {
		return "", fmt.Errorf("%w: failed to get HEAD: %w", domain.ErrGitCommand, domain.ErrReferenceNotFound)
	}
	return head, nil
}

// Close is a no-op.
func (m *MemoryRepository) Close() error {
	return nil
}

func (m *MemoryRepository) commitLocked(message string, unixTime int64, parents []string) string {
	m.seq++

	h := sha1.New()
	h.Write([]byte(strconv.Itoa(m.seq)))
	h.Write([]byte{0})
	h.Write([]byte(message))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(unixTime, 10)))
	for _, p := range parents {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	oid := hex.EncodeToString(h.Sum(nil))

	m.commits[oid] = &memoryCommit{
		oid:     oid,
		message: message,
		time:    unixTime,
		parents: parents,
		seq:     m.seq,
	}

	if m.headBranch != "" {
		m.branches[m.headBranch] = oid
	} else {
		m.detached = oid
	}
	return oid
}

func (m *MemoryRepository) headLocked() string {
	if m.headBranch != "" {
		return m.branches[m.headBranch]
	}
	return m.detached
}

func (m *MemoryRepository) resolveLocked(ref string) (string, error) {
	if ref == "HEAD" {
		if head := m.headLocked(); head != "" {
			return head, nil
		}
		return "", fmt.Errorf("%w: %s", domain.ErrReferenceNotFound, ref)
	}

	for _, name := range []string{ref, strings.TrimPrefix(ref, "refs/tags/")} {
		if oid, ok := m.tags[name]; ok {
			return oid, nil
		}
	}
	for _, name := range []string{ref, strings.TrimPrefix(ref, "refs/heads/")} {
		if oid, ok := m.branches[name]; ok {
			return oid, nil
		}
	}

	if _, ok := m.commits[ref]; ok {
		return ref, nil
	}

	if len(ref) >= minAbbrevLength {
		var match string
		for oid := range m.commits {
			if !strings.HasPrefix(oid, ref) {
				continue
			}
			if match != "" {
				return "", fmt.Errorf("%w: %s is ambiguous", domain.ErrReferenceNotFound, ref)
			}
			match = oid
		}
		if match != "" {
			return match, nil
		}
	}

	return "", fmt.Errorf("%w: %s", domain.ErrReferenceNotFound, ref)
}

// reachable returns every commit reachable from oid, including oid itself.
func (m *MemoryRepository) reachable(oid string) map[string]*memoryCommit {
	seen := make(map[string]*memoryCommit)
	stack := []string{oid}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		c, ok := m.commits[current]
		if !ok {
			continue
		}
		if _, visited := seen[current]; visited {
			continue
		}
		seen[current] = c
		stack = append(stack, c.parents...)
	}
	return seen
}

// newestFirst orders commits by time, newest first. Equal times keep creation order reversed.
func (m *MemoryRepository) newestFirst(set map[string]*memoryCommit) []*memoryCommit {
	ordered := make([]*memoryCommit, 0, len(set))
	for _, c := range set {
		ordered = append(ordered, c)
	}
	slices.SortFunc(ordered, func(a, b *memoryCommit) int {
		if c := cmp.Compare(b.time, a.time); c != 0 {
			return c
		}
		return cmp.Compare(b.seq, a.seq)
	})
	return ordered
}

func (m *MemoryRepository) failureLocked(op MemoryOp, arg string) error {
	byArg, ok := m.failures[op]
	if !ok {
		return nil
	}
	if err, ok := byArg[arg]; ok {
		return err
	}
	return byArg[""]
}
