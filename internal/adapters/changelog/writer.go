// Package changelog formats release sections and prepends them to CHANGELOG.md.
package changelog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MyCarrier-DevOps/commitsense/internal/domain"
)

const (
	// FileName is the changelog file created in the project directory.
	FileName = "CHANGELOG.md"

	// Header starts a newly created changelog.
	Header = "# Changelog\n\nAll notable changes to this project will be documented in this file.\n\n"

	// sectionMarker opens every version section.
	sectionMarker = "## ["

	dateLayout = "2006-01-02"
)

// Logger defines the logging interface for the changelog writer.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
}

// Writer implements domain.ChangelogWriter for the CHANGELOG.md in one directory.
type Writer struct {
	path   string
	now    func() time.Time
	logger Logger
}

// Option configures a Writer.
type Option func(*Writer)

// WithClock overrides the clock used for section dates.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) {
		w.now = now
	}
}

// NewWriter creates a Writer for dir/CHANGELOG.md.
func NewWriter(dir string, log Logger, opts ...Option) *Writer {
	w := &Writer{
		path:   filepath.Join(dir, FileName),
		now:    time.Now,
		logger: log,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Path returns the changelog file path.
func (w *Writer) Path() string {
	return w.path
}

// FormatSection returns "## [version] - YYYY-MM-DD" followed by the trimmed markdown.
func (w *Writer) FormatSection(version, changesMarkdown string) string {
	return fmt.Sprintf("%s%s] - %s\n\n%s",
		sectionMarker, version, w.now().Format(dateLayout), strings.TrimSpace(changesMarkdown))
}

// Prepend inserts section before the newest existing version section. A missing
// changelog is created with Header.
func (w *Writer) Prepend(section string) error {
	ctx := context.Background()

	data, err := os.ReadFile(w.path)
	existed := err == nil
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: failed to read existing %s: %w", domain.ErrChangelog, w.path, err)
	}

	content := string(data)
	var pos int
	if existed {
		pos = insertPosition(content)
	} else {
		w.logger.Info(ctx, "changelog not found; creating it with the default header", map[string]interface{}{
			"path": w.path,
		})
		content = Header
		pos = len(Header)
	}

	before := content[:pos]
	if pos == len(content) && before != "" && !strings.HasSuffix(before, "\n\n") {
		before = strings.TrimRight(before, "\n") + "\n\n"
	}

	var b strings.Builder
	b.Grow(len(content) + len(section) + 4)
	b.WriteString(before)
	b.WriteString(section)
	b.WriteString("\n\n")
	b.WriteString(content[pos:])

	if err := os.WriteFile(w.path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("%w: failed to write %s: %w", domain.ErrChangelog, w.path, err)
	}

	w.logger.Debug(ctx, "updated changelog", map[string]interface{}{
		"path":              w.path,
		"insert_position":   pos,
		"created_changelog": !existed,
	})
	return nil
}

// insertPosition finds the first version section, else the end of the header block
// (the first blank-line gap), else the end of the file.
func insertPosition(content string) int {
	if i := strings.Index(content, sectionMarker); i >= 0 {
		return i
	}
	if i := strings.Index(content, "\n\n\n"); i >= 0 {
		return i + 2
	}
	return len(content)
}
