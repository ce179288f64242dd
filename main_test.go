package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MyCarrier-DevOps/commitsense/cmd"
	logadapter "github.com/MyCarrier-DevOps/commitsense/internal/adapters/logger"
	"github.com/MyCarrier-DevOps/commitsense/internal/domain"
	"github.com/MyCarrier-DevOps/commitsense/internal/infrastructure/config"
)

// recordingLogger implements logadapter.Logger and cmd.Logger for testing.
type recordingLogger struct {
	lastFields map[string]any
}

func (r *recordingLogger) Info(_ context.Context, _ string, fields map[string]any)  { r.lastFields = fields }
func (r *recordingLogger) Debug(_ context.Context, _ string, fields map[string]any) { r.lastFields = fields }
func (r *recordingLogger) Warn(_ context.Context, _ string, fields map[string]any)  { r.lastFields = fields }
func (r *recordingLogger) Error(_ context.Context, _ string, _ error, fields map[string]any) {
	r.lastFields = fields
}

func TestToAppConfig(t *testing.T) {
	cfg := &config.Config{
		APIKey:      "key",
		APIURL:      "http://localhost/v1",
		Model:       "gpt-test",
		ProjectType: "rust",
		BaseRef:     "main",
		TagPattern:  "v*",
		TagRegex:    "",
		Write:       true,
		Nightly:     true,
		GitBackend:  "cli",
		LogLevel:    "debug",
		LogAppName:  "commitsense",
	}

	got := toAppConfig(cfg)

	assert.Equal(t, &cmd.AppConfig{
		APIKey:           "key",
		APIURL:           "http://localhost/v1",
		Model:            "gpt-test",
		ProjectType:      "rust",
		BaseRef:          "main",
		TagPattern:       "v*",
		Write:            true,
		Nightly:          true,
		GitBackend:       "cli",
		LogLevel:         "debug",
		LogAppName:       "commitsense",
		ErrMissingAPIKey: config.ErrAPIKeyRequired,
	}, got)
}

func TestOpenRepository(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		wantErr error
	}{
		{name: "default backend", backend: "", wantErr: domain.ErrRepositoryNotFound},
		{name: "gogit backend", backend: config.GitBackendGoGit, wantErr: domain.ErrRepositoryNotFound},
		{name: "unknown backend", backend: "memory", wantErr: config.ErrInvalidGitBackend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, err := openRepository(t.TempDir(), tt.backend, &recordingLogger{})

			require.Error(t, err)
			assert.Nil(t, repo)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestWithComponent(t *testing.T) {
	base := &recordingLogger{}

	scoped := withComponent(logadapter.NewZapAdapter(base), "resolver")
	scoped.Info(context.Background(), "message", map[string]any{"tag": "v1"})

	assert.Equal(t, map[string]any{logadapter.ComponentField: "resolver", "tag": "v1"}, base.lastFields)
}

func TestWithComponent_UnscopedLogger(t *testing.T) {
	base := &recordingLogger{}

	assert.Same(t, base, withComponent(base, "git"))
}
