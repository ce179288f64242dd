// Package progress shows a terminal spinner while the release suggestion is requested.
package progress

import (
	"context"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"golang.org/x/term"

	"github.com/MyCarrier-DevOps/commitsense/internal/domain"
)

const (
	unicodeCharSet = 14
	asciiCharSet   = 9
	refreshRate    = 100 * time.Millisecond
	suffix         = " Asking the model for a release suggestion..."
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Suggester decorates a domain.Suggester with a spinner for the duration of each call.
type Suggester struct {
	next    domain.Suggester
	file    *os.File
	enabled bool
	charSet int
}

// Option configures a Suggester.
type Option func(*Suggester)

// WithFile sets the spinner destination and whether the spinner is shown at all.
// The spinner still stays silent when f is not a terminal.
func WithFile(f *os.File, enabled bool) Option {
	return func(s *Suggester) {
		s.file = f
		s.enabled = enabled
	}
}

// WithASCII switches to a spinner made of plain ASCII characters.
func WithASCII() Option {
	return func(s *Suggester) {
		s.charSet = asciiCharSet
	}
}

// NewSuggester wraps next. By default the spinner is drawn on stderr when stderr is a terminal.
func NewSuggester(next domain.Suggester, opts ...Option) *Suggester {
	s := &Suggester{
		next:    next,
		file:    os.Stderr,
		enabled: IsTerminal(os.Stderr),
		charSet: unicodeCharSet,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Suggest runs the wrapped suggester, spinning until it returns.
func (s *Suggester) Suggest(
	ctx context.Context,
	currentVersion string,
	messages []string,
	projectType domain.ProjectType,
) (*domain.Suggestion, error) {
	if !s.enabled {
		return s.next.Suggest(ctx, currentVersion, messages, projectType)
	}

	sp := spinner.New(spinner.CharSets[s.charSet], refreshRate, spinner.WithWriterFile(s.file))
	sp.Suffix = suffix
	_ = sp.Color("cyan")
	sp.Start()
	defer sp.Stop()

	return s.next.Suggest(ctx, currentVersion, messages, projectType)
}
