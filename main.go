// Package main is the entry point for the commitsense CLI application.
// commitsense suggests the next semantic version and a changelog section
// from the commits made since the last release.
package main

import (
	"context"
	"os"
	"sync"

	"github.com/MyCarrier-DevOps/goLibMyCarrier/logger"

	"github.com/MyCarrier-DevOps/commitsense/cmd"
	"github.com/MyCarrier-DevOps/commitsense/internal/adapters/ai"
	"github.com/MyCarrier-DevOps/commitsense/internal/adapters/changelog"
	"github.com/MyCarrier-DevOps/commitsense/internal/adapters/git"
	logadapter "github.com/MyCarrier-DevOps/commitsense/internal/adapters/logger"
	"github.com/MyCarrier-DevOps/commitsense/internal/adapters/manifest"
	"github.com/MyCarrier-DevOps/commitsense/internal/adapters/output"
	"github.com/MyCarrier-DevOps/commitsense/internal/adapters/progress"
	"github.com/MyCarrier-DevOps/commitsense/internal/domain"
	"github.com/MyCarrier-DevOps/commitsense/internal/infrastructure/config"
	"github.com/MyCarrier-DevOps/commitsense/internal/usecases"
)

func main() {
	// The zap logger reads LOG_LEVEL when built, so it is created on first use,
	// after the command has applied --verbose and the configured level.
	var (
		once    sync.Once
		adapter *logadapter.ZapAdapter
	)
	newLogger := func() cmd.Logger {
		once.Do(func() {
			adapter = logadapter.NewZapAdapter(logger.NewZapLoggerFromConfig())
		})
		return adapter
	}

	// Wire up production dependencies
	deps := &cmd.Dependencies{
		LoggerFactory: newLogger,

		ConfigLoader: func(ctx context.Context, opts cmd.ConfigOptions) (*cmd.AppConfig, error) {
			cfg, err := config.LoadWithOptions(ctx, config.LoadOptions{
				ProjectPath: opts.ProjectPath,
				ConfigFile:  opts.ConfigFile,
			})
			if err != nil {
				return nil, err
			}
			return toAppConfig(cfg), nil
		},

		GitRepoFactory: func(path, backend string, log cmd.Logger) (domain.Repository, error) {
			return openRepository(path, backend, withComponent(log, "git"))
		},

		ProjectFactory: func(path string, projectType domain.ProjectType, log cmd.Logger) (domain.Project, error) {
			return manifest.NewProject(path, projectType, withComponent(log, "manifest"))
		},

		SuggesterFactory: func(cfg *cmd.AppConfig, log cmd.Logger) domain.Suggester {
			client := ai.NewClient(cfg.APIKey, withComponent(log, "ai"),
				ai.WithBaseURL(cfg.APIURL),
				ai.WithModel(cfg.Model),
			)
			// Debug logs would interleave with the spinner.
			spin := progress.IsTerminal(os.Stderr) && cfg.LogLevel != "debug"
			return progress.NewSuggester(client, progress.WithFile(os.Stderr, spin))
		},

		ChangelogWriterFactory: func(path string, log cmd.Logger) domain.ChangelogWriter {
			return changelog.NewWriter(path, withComponent(log, "changelog"))
		},

		ResolverFactory: func(repo domain.Repository, log cmd.Logger) domain.BaseCommitResolver {
			return usecases.NewBaseCommitResolver(repo, withComponent(log, "resolver"))
		},

		AnalyzerFactory: func(
			project domain.Project,
			resolver domain.BaseCommitResolver,
			suggester domain.Suggester,
			changelogWriter domain.ChangelogWriter,
			log cmd.Logger,
		) domain.ReleaseAnalyzer {
			return usecases.NewReleaseAnalyzer(project, resolver, suggester, changelogWriter, withComponent(log, "analyzer"))
		},

		OutputWriterFactory: func() domain.OutputWriter {
			return output.NewWriter()
		},

		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}

	cmd.SetDefaultDependencies(deps)
	cmd.Execute()
}

// toAppConfig copies the loaded configuration into the command's view of it.
func toAppConfig(cfg *config.Config) *cmd.AppConfig {
	return &cmd.AppConfig{
		APIKey:           cfg.APIKey,
		APIURL:           cfg.APIURL,
		Model:            cfg.Model,
		ProjectType:      cfg.ProjectType,
		BaseRef:          cfg.BaseRef,
		TagPattern:       cfg.TagPattern,
		TagRegex:         cfg.TagRegex,
		Write:            cfg.Write,
		Nightly:          cfg.Nightly,
		GitBackend:       cfg.GitBackend,
		LogLevel:         cfg.LogLevel,
		LogAppName:       cfg.LogAppName,
		ErrMissingAPIKey: config.ErrAPIKeyRequired,
	}
}

// openRepository opens path with the named git backend.
func openRepository(path, backend string, log git.Logger) (domain.Repository, error) {
	switch backend {
	case config.GitBackendGoGit, "":
		return git.NewGoGitRepository(path, log)
	case config.GitBackendCLI:
		return git.NewCLIRepository(path, log)
	default:
		return nil, config.ValidateGitBackend(backend)
	}
}

// withComponent tags log events with the component name when the logger supports scoping.
func withComponent(log cmd.Logger, component string) cmd.Logger {
	if zap, ok := log.(*logadapter.ZapAdapter); ok {
		return zap.WithComponent(component)
	}
	return log
}
