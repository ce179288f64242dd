package changelog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MyCarrier-DevOps/commitsense/internal/domain"
)

// mockLogger implements the Logger interface for testing.
type mockLogger struct{}

func (m *mockLogger) Info(_ context.Context, _ string, _ map[string]interface{})  {}
func (m *mockLogger) Debug(_ context.Context, _ string, _ map[string]interface{}) {}

var _ domain.ChangelogWriter = (*Writer)(nil)

func fixedClock() time.Time {
	return time.Date(2026, time.January, 15, 9, 30, 0, 0, time.Local)
}

func TestWriter_FormatSection(t *testing.T) {
	w := NewWriter(t.TempDir(), &mockLogger{}, WithClock(fixedClock))

	got := w.FormatSection("1.2.0", "\n### Added\n- New parser\n\n")

	assert.Equal(t, "## [1.2.0] - 2026-01-15\n\n### Added\n- New parser", got)
}

func TestWriter_Prepend(t *testing.T) {
	const section = "## [1.1.0] - 2026-01-15\n\n- Newest change"

	tests := []struct {
		name     string
		existing *string
		want     string
	}{
		{
			name: "creates file with header",
			want: Header + section + "\n\n",
		},
		{
			name:     "inserts before previous sections",
			existing: ptr("# Changelog\n\nIntro.\n\n## [1.0.0] - 2025-12-01\n\n- Old change\n"),
			want:     "# Changelog\n\nIntro.\n\n" + section + "\n\n## [1.0.0] - 2025-12-01\n\n- Old change\n",
		},
		{
			name:     "inserts after header block when no sections exist",
			existing: ptr("# Changelog\n\nIntro.\n\n\nFooter\n"),
			want:     "# Changelog\n\nIntro.\n\n" + section + "\n\n\nFooter\n",
		},
		{
			name:     "appends after a bare header",
			existing: ptr("# Changelog\n"),
			want:     "# Changelog\n\n" + section + "\n\n",
		},
		{
			name:     "empty existing file",
			existing: ptr(""),
			want:     section + "\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, FileName)
			if tt.existing != nil {
				require.NoError(t, os.WriteFile(path, []byte(*tt.existing), 0o644))
			}

			w := NewWriter(dir, &mockLogger{})
			require.NoError(t, w.Prepend(section))

			content, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(content))
			assert.Equal(t, path, w.Path())
		})
	}
}

func TestWriter_Prepend_Twice(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, &mockLogger{}, WithClock(fixedClock))

	require.NoError(t, w.Prepend(w.FormatSection("1.0.0", "- first")))
	require.NoError(t, w.Prepend(w.FormatSection("1.1.0", "- second")))

	content, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.Equal(t, Header+
		"## [1.1.0] - 2026-01-15\n\n- second\n\n"+
		"## [1.0.0] - 2026-01-15\n\n- first\n\n", string(content))
}

func TestWriter_Prepend_Errors(t *testing.T) {
	t.Run("directory does not exist", func(t *testing.T) {
		w := NewWriter(filepath.Join(t.TempDir(), "missing"), &mockLogger{})

		err := w.Prepend("## [1.0.0] - 2026-01-15\n\n- change")

		assert.ErrorIs(t, err, domain.ErrChangelog)
	})

	t.Run("changelog path is a directory", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.Mkdir(filepath.Join(dir, FileName), 0o755))
		w := NewWriter(dir, &mockLogger{})

		err := w.Prepend("## [1.0.0] - 2026-01-15\n\n- change")

		assert.ErrorIs(t, err, domain.ErrChangelog)
	})
}

func ptr(s string) *string {
	return &s
}
