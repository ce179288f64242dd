// Package manifest reads and writes the version field of project manifests.
// Updates replace the version value in place so the rest of the file keeps its formatting.
package manifest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MyCarrier-DevOps/commitsense/internal/domain"
)

// Manifest file names.
const (
	CargoFile   = "Cargo.toml"
	PackageFile = "package.json"
)

// Logger defines the logging interface for the manifest adapter.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
}

// versionCodec extracts and replaces the version in one manifest format.
type versionCodec interface {
	read(data []byte) (string, error)
	replace(data []byte, version string) ([]byte, error)
}

// Project implements domain.Project for a Cargo.toml or package.json manifest.
type Project struct {
	projectType domain.ProjectType
	path        string
	codec       versionCodec
	logger      Logger
}

// NewProject locates the manifest in dir. An empty explicitType auto-detects,
// preferring Cargo.toml over package.json.
// Returns an error wrapping domain.ErrConfig if no suitable manifest exists.
func NewProject(dir string, explicitType domain.ProjectType, log Logger) (*Project, error) {
	ctx := context.Background()
	cargoPath := filepath.Join(dir, CargoFile)
	packagePath := filepath.Join(dir, PackageFile)

	var (
		projectType domain.ProjectType
		path        string
	)

	switch explicitType {
	case "":
		log.Info(ctx, "attempting to auto-detect project type", map[string]interface{}{
			"path": dir,
		})
		switch {
		case fileExists(cargoPath):
			projectType, path = domain.ProjectRust, cargoPath
		case fileExists(packagePath):
			projectType, path = domain.ProjectJavaScript, packagePath
		default:
			return nil, fmt.Errorf(
				"%w: could not auto-detect project type; no '%s' or '%s' found in '%s'; specify --project-type",
				domain.ErrConfig, CargoFile, PackageFile, dir,
			)
		}
	case domain.ProjectRust:
		projectType, path = domain.ProjectRust, cargoPath
	case domain.ProjectJavaScript:
		projectType, path = domain.ProjectJavaScript, packagePath
	default:
		return nil, fmt.Errorf("%w: unsupported project type %q", domain.ErrConfig, explicitType)
	}

	if explicitType != "" && !fileExists(path) {
		return nil, fmt.Errorf(
			"%w: explicit project type '%s' specified, but the expected version file '%s' was not found in '%s'",
			domain.ErrConfig, explicitType, filepath.Base(path), dir,
		)
	}

	log.Info(ctx, "project initialized", map[string]interface{}{
		"project_type": string(projectType),
		"version_file": path,
	})

	return &Project{
		projectType: projectType,
		path:        path,
		codec:       codecFor(projectType),
		logger:      log,
	}, nil
}

func codecFor(t domain.ProjectType) versionCodec {
	if t == domain.ProjectRust {
		return cargoCodec{}
	}
	return packageJSONCodec{}
}

// Type returns the manifest kind.
func (p *Project) Type() domain.ProjectType {
	return p.projectType
}

// VersionFilePath returns the path of the manifest file.
func (p *Project) VersionFilePath() string {
	return p.path
}

// CurrentVersion reads the version string from the manifest.
func (p *Project) CurrentVersion() (string, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read version file '%s': %w", domain.ErrProject, p.path, err)
	}

	version, err := p.codec.read(data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", p.path, err)
	}

	p.logger.Debug(context.Background(), "read current version", map[string]interface{}{
		"version":      version,
		"version_file": p.path,
	})
	return version, nil
}

// SetVersion replaces the version value in the manifest.
func (p *Project) SetVersion(version string) error {
	p.logger.Info(context.Background(), "updating manifest version", map[string]interface{}{
		"version":      version,
		"version_file": p.path,
	})

	info, err := os.Stat(p.path)
	if err != nil {
		return fmt.Errorf("%w: failed to stat version file '%s': %w", domain.ErrProject, p.path, err)
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("%w: failed to read version file '%s' before update: %w", domain.ErrProject, p.path, err)
	}

	updated, err := p.codec.replace(data, version)
	if err != nil {
		return fmt.Errorf("%s: %w", p.path, err)
	}

	if err := os.WriteFile(p.path, updated, info.Mode().Perm()); err != nil {
		return fmt.Errorf("%w: failed to write updated version to '%s': %w", domain.ErrProject, p.path, err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
