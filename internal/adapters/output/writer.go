// Package output renders analysis results for people and for GitHub Actions.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/MyCarrier-DevOps/commitsense/internal/domain"
)

// GitHubOutputEnv names the environment variable GitHub Actions sets to the step output file.
const GitHubOutputEnv = "GITHUB_OUTPUT"

const ruler = "----------------------------"

// Writer prints the console report to out and publishes step outputs either to the
// GitHub Actions output file or, when none is configured, as key: value lines on out.
type Writer struct {
	out          io.Writer
	githubOutput string
	delimiter    string

	heading *color.Color
	label   *color.Color
	value   *color.Color
	notice  *color.Color
}

// Option configures a Writer.
type Option func(*Writer)

// WithGitHubOutput sets the path of the GitHub Actions output file. An empty path
// selects the key: value fallback.
func WithGitHubOutput(path string) Option {
	return func(w *Writer) {
		w.githubOutput = path
	}
}

// WithColor forces colored output on or off.
func WithColor(enabled bool) Option {
	return func(w *Writer) {
		for _, c := range []*color.Color{w.heading, w.label, w.value, w.notice} {
			if enabled {
				c.EnableColor()
			} else {
				c.DisableColor()
			}
		}
	}
}

// WithDelimiter sets the heredoc delimiter used for multiline GitHub outputs.
func WithDelimiter(delimiter string) Option {
	return func(w *Writer) {
		w.delimiter = delimiter
	}
}

// NewWriter creates a Writer on stdout that publishes to $GITHUB_OUTPUT when set.
// Color follows the terminal and NO_COLOR.
func NewWriter(opts ...Option) *Writer {
	return NewWriterWithOutput(os.Stdout, append([]Option{WithGitHubOutput(os.Getenv(GitHubOutputEnv))}, opts...)...)
}

// NewWriterWithOutput creates a Writer with a custom console destination.
func NewWriterWithOutput(out io.Writer, opts ...Option) *Writer {
	w := &Writer{
		out:       out,
		delimiter: fmt.Sprintf("EOF_%d", os.Getpid()),
		heading:   color.New(color.FgCyan, color.Bold),
		label:     color.New(color.Bold),
		value:     color.New(color.FgGreen),
		notice:    color.New(color.FgYellow),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteResult prints the report and publishes the step outputs.
func (w *Writer) WriteResult(result *domain.AnalyzeOutput) error {
	if err := w.writeReport(result); err != nil {
		return err
	}
	if w.githubOutput != "" {
		return w.writeGitHubOutput(result)
	}
	return w.writeFallback(result)
}

func (w *Writer) writeReport(result *domain.AnalyzeOutput) error {
	var b strings.Builder

	if result.NoChanges {
		b.WriteString(w.notice.Sprint("No new commits detected since the last identified release point."))
		b.WriteString("\n")
		_, err := io.WriteString(w.out, b.String())
		return err
	}

	fmt.Fprintf(&b, "\n%s\n", w.heading.Sprint("--- CommitSense Analysis ---"))
	fmt.Fprintf(&b, "%s %s\n", w.label.Sprint("Suggested Bump Type:"), w.value.Sprint(result.BumpType))
	fmt.Fprintf(&b, "%s %s\n", w.label.Sprint("Suggested Next Version:"), w.value.Sprint(result.NextVersion))
	if result.NightlyVersion != "" {
		fmt.Fprintf(&b, "%s %s\n", w.label.Sprint("Nightly Version:"), w.value.Sprint(result.NightlyVersion))
	}
	fmt.Fprintf(&b, "\n%s\n%s\n%s\n%s\n", w.label.Sprint("Generated Changelog Section:"), ruler, result.ChangelogSection, ruler)

	if result.Applied {
		fmt.Fprintf(&b, "%s\n", w.value.Sprintf("Updated version to %s and prepended CHANGELOG.md.", result.FinalVersion()))
	} else {
		fmt.Fprintf(&b, "%s\n", w.notice.Sprint("Dry run: no files were modified."))
	}

	_, err := io.WriteString(w.out, b.String())
	return err
}

// writeGitHubOutput appends name=value pairs to the output file. The changelog is
// multiline and uses the name<<DELIMITER form.
func (w *Writer) writeGitHubOutput(result *domain.AnalyzeOutput) error {
	var b strings.Builder
	fmt.Fprintf(&b, "bump_type=%s\n", result.BumpType)
	fmt.Fprintf(&b, "next_version=%s\n", result.NextVersion)

	if result.NoChanges {
		fmt.Fprintf(&b, "changelog=%s\n", domain.NoChangesChangelogText)
	} else {
		if result.NightlyVersion != "" {
			fmt.Fprintf(&b, "nightly_version=%s\n", result.NightlyVersion)
		}
		fmt.Fprintf(&b, "changelog<<%s\n%s\n%s\n", w.delimiter, result.ChangelogSection, w.delimiter)
	}

	f, err := os.OpenFile(w.githubOutput, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open GitHub output file %s: %w", w.githubOutput, err)
	}
	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		return fmt.Errorf("failed to write GitHub output file %s: %w", w.githubOutput, err)
	}
	return f.Close()
}

func (w *Writer) writeFallback(result *domain.AnalyzeOutput) error {
	var b strings.Builder
	fmt.Fprintf(&b, "bump_type: %s\n", result.BumpType)
	fmt.Fprintf(&b, "next_version: %s\n", result.NextVersion)

	if result.NoChanges {
		fmt.Fprintf(&b, "changelog: %s\n", domain.NoChangesChangelogText)
	} else {
		if result.NightlyVersion != "" {
			fmt.Fprintf(&b, "nightly_version: %s\n", result.NightlyVersion)
		}
		fmt.Fprintf(&b, "\nChangelog:\n%s\n", result.ChangelogSection)
	}

	_, err := io.WriteString(w.out, b.String())
	return err
}
