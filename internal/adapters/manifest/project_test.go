package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MyCarrier-DevOps/commitsense/internal/domain"
)

// mockLogger implements the Logger interface for testing.
type mockLogger struct{}

func (m *mockLogger) Info(_ context.Context, _ string, _ map[string]interface{})  {}
func (m *mockLogger) Debug(_ context.Context, _ string, _ map[string]interface{}) {}

var _ domain.Project = (*Project)(nil)

const cargoManifest = `# workspace member
[package]
name = "demo"
version = "1.2.3" # keep in sync
edition = "2021"

[dependencies]
serde = { version = "1.0", features = ["derive"] }

[dependencies.log]
version = "0.4"
`

const packageManifest = `{
  "name": "demo",
  "description": "has a \"version\" in it",
  "version": "0.4.1",
  "dependencies": {
    "version": "9.9.9",
    "left-pad": "^1.3.0"
  },
  "scripts": { "build": "tsc" }
}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewProject_Detection(t *testing.T) {
	tests := []struct {
		name     string
		files    map[string]string
		explicit domain.ProjectType
		wantType domain.ProjectType
		wantFile string
		wantErr  bool
	}{
		{
			name:     "cargo detected",
			files:    map[string]string{CargoFile: cargoManifest},
			wantType: domain.ProjectRust,
			wantFile: CargoFile,
		},
		{
			name:     "package.json detected",
			files:    map[string]string{PackageFile: packageManifest},
			wantType: domain.ProjectJavaScript,
			wantFile: PackageFile,
		},
		{
			name:     "cargo preferred when both exist",
			files:    map[string]string{CargoFile: cargoManifest, PackageFile: packageManifest},
			wantType: domain.ProjectRust,
			wantFile: CargoFile,
		},
		{
			name:     "explicit javascript when both exist",
			files:    map[string]string{CargoFile: cargoManifest, PackageFile: packageManifest},
			explicit: domain.ProjectJavaScript,
			wantType: domain.ProjectJavaScript,
			wantFile: PackageFile,
		},
		{
			name:     "explicit type without its file",
			files:    map[string]string{PackageFile: packageManifest},
			explicit: domain.ProjectRust,
			wantErr:  true,
		},
		{
			name:    "nothing to detect",
			files:   map[string]string{"README.md": "# demo"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tt.files {
				writeFile(t, dir, name, content)
			}

			project, err := NewProject(dir, tt.explicit, &mockLogger{})

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrConfig)
				assert.Nil(t, project)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, project.Type())
			assert.Equal(t, filepath.Join(dir, tt.wantFile), project.VersionFilePath())
		})
	}
}

func TestNewProject_DirectoryNamedLikeManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, CargoFile), 0o755))
	writeFile(t, dir, PackageFile, packageManifest)

	project, err := NewProject(dir, "", &mockLogger{})

	require.NoError(t, err)
	assert.Equal(t, domain.ProjectJavaScript, project.Type())
}

func TestProject_Cargo(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, CargoFile, cargoManifest)

	project, err := NewProject(dir, "", &mockLogger{})
	require.NoError(t, err)

	version, err := project.CurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", version)

	require.NoError(t, project.SetVersion("1.3.0"))

	version, err = project.CurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, "1.3.0", version)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `version = "1.3.0" # keep in sync`)
	assert.Contains(t, string(content), `serde = { version = "1.0", features = ["derive"] }`)
	assert.Contains(t, string(content), "[dependencies.log]\nversion = \"0.4\"\n")
	assert.Contains(t, string(content), "# workspace member\n")
}

func TestProject_Cargo_SingleQuotes(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, CargoFile, "[package]\nname = 'demo'\nversion = '0.1.0'\n")

	project, err := NewProject(dir, domain.ProjectRust, &mockLogger{})
	require.NoError(t, err)
	require.NoError(t, project.SetVersion("0.2.0-nightly.20260101"))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[package]\nname = 'demo'\nversion = '0.2.0-nightly.20260101'\n", string(content))
}

func TestProject_Cargo_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "no package table", content: "[workspace]\nmembers = [\"a\"]\n"},
		{name: "workspace inherited version", content: "[package]\nname = \"demo\"\nversion.workspace = true\n"},
		{name: "invalid toml", content: "[package\nversion = \"1.0.0\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, CargoFile, tt.content)

			project, err := NewProject(dir, domain.ProjectRust, &mockLogger{})
			require.NoError(t, err)

			_, err = project.CurrentVersion()
			assert.ErrorIs(t, err, domain.ErrProject)

			err = project.SetVersion("2.0.0")
			assert.ErrorIs(t, err, domain.ErrProject)
		})
	}
}

func TestProject_PackageJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, PackageFile, packageManifest)

	project, err := NewProject(dir, domain.ProjectJavaScript, &mockLogger{})
	require.NoError(t, err)

	version, err := project.CurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, "0.4.1", version)

	require.NoError(t, project.SetVersion("0.5.0"))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	want := `{
  "name": "demo",
  "description": "has a \"version\" in it",
  "version": "0.5.0",
  "dependencies": {
    "version": "9.9.9",
    "left-pad": "^1.3.0"
  },
  "scripts": { "build": "tsc" }
}
`
	assert.Equal(t, want, string(content))
}

func TestProject_PackageJSON_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "missing version", content: `{"name": "demo"}`},
		{name: "version is not a string", content: `{"version": 1}`},
		{name: "root is an array", content: `["version"]`},
		{name: "invalid json", content: `{"version": "1.0.0"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, PackageFile, tt.content)

			project, err := NewProject(dir, domain.ProjectJavaScript, &mockLogger{})
			require.NoError(t, err)

			_, err = project.CurrentVersion()
			assert.ErrorIs(t, err, domain.ErrProject)

			err = project.SetVersion("2.0.0")
			assert.ErrorIs(t, err, domain.ErrProject)
		})
	}
}

func TestProject_MissingFileAfterDetection(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, PackageFile, packageManifest)

	project, err := NewProject(dir, "", &mockLogger{})
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	_, err = project.CurrentVersion()
	assert.ErrorIs(t, err, domain.ErrProject)

	err = project.SetVersion("1.0.0")
	assert.ErrorIs(t, err, domain.ErrProject)
}
