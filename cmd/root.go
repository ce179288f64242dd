// Package cmd provides the CLI commands for commitsense.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/MyCarrier-DevOps/commitsense/internal/domain"
)

// Logger defines the logging interface used by the command.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, err error, fields map[string]interface{})
}

// Dependencies holds all injectable dependencies for the command.
// This enables testing by allowing mock implementations to be injected.
type Dependencies struct {
	// LoggerFactory creates a logger instance. It is called after configuration
	// has been loaded so the log level can take effect.
	LoggerFactory func() Logger

	// ConfigLoader loads application configuration.
	ConfigLoader func(ctx context.Context, opts ConfigOptions) (*AppConfig, error)

	// GitRepoFactory opens the repository at path with the named backend.
	GitRepoFactory func(path, backend string, log Logger) (domain.Repository, error)

	// ProjectFactory detects or opens the project manifest in path.
	// An empty project type selects auto-detection.
	ProjectFactory func(path string, projectType domain.ProjectType, log Logger) (domain.Project, error)

	// SuggesterFactory creates the AI suggester from the effective configuration.
	SuggesterFactory func(cfg *AppConfig, log Logger) domain.Suggester

	// ChangelogWriterFactory creates the changelog writer for path.
	ChangelogWriterFactory func(path string, log Logger) domain.ChangelogWriter

	// ResolverFactory creates the base commit resolver.
	ResolverFactory func(repo domain.Repository, log Logger) domain.BaseCommitResolver

	// AnalyzerFactory creates the release analyzer.
	AnalyzerFactory func(
		project domain.Project,
		resolver domain.BaseCommitResolver,
		suggester domain.Suggester,
		changelog domain.ChangelogWriter,
		log Logger,
	) domain.ReleaseAnalyzer

	// OutputWriterFactory creates an OutputWriter.
	OutputWriterFactory func() domain.OutputWriter

	// Stdout is the writer for standard output.
	Stdout io.Writer

	// Stderr is the writer for standard error (for warnings/errors).
	Stderr io.Writer
}

// ConfigOptions tells the ConfigLoader where to look.
type ConfigOptions struct {
	// ProjectPath is the project directory.
	ProjectPath string

	// ConfigFile is an explicit configuration file, empty for the default lookup.
	ConfigFile string
}

// AppConfig holds application configuration loaded by ConfigLoader.
// Command-line flags are applied on top of it.
type AppConfig struct {
	APIKey string
	APIURL string
	Model  string

	ProjectType string
	BaseRef     string
	TagPattern  string
	TagRegex    string
	Write       bool
	Nightly     bool
	GitBackend  string

	// LogLevel is the log level setting.
	LogLevel string

	// LogAppName is the application name for logging.
	LogAppName string

	// ErrMissingAPIKey is returned when a remote call is needed and APIKey is empty.
	ErrMissingAPIKey error
}

func (c *AppConfig) requireAPIKey() error {
	if c.APIKey != "" {
		return nil
	}
	if c.ErrMissingAPIKey != nil {
		return c.ErrMissingAPIKey
	}
	return fmt.Errorf("%w: API key required", domain.ErrConfig)
}

// flags holds the command-line flag values of one command instance.
type flags struct {
	path        string
	configFile  string
	apiKey      string
	apiURL      string
	model       string
	projectType string
	baseRef     string
	tagPattern  string
	tagRegex    string
	gitBackend  string
	write       bool
	nightly     bool
	verbose     bool
}

// defaultDeps holds the production dependencies.
// This is set by the production wiring in main or via SetDefaultDependencies.
var defaultDeps *Dependencies

// SetDefaultDependencies sets the default dependencies for production use.
// This should be called from main() before Execute().
func SetDefaultDependencies(deps *Dependencies) {
	defaultDeps = deps
}

// NewRootCmd creates the root command for commitsense.
func NewRootCmd() *cobra.Command {
	return NewRootCmdWithDeps(defaultDeps)
}

// NewRootCmdWithDeps creates the root command with explicit dependencies.
// This is the primary constructor that enables testing via dependency injection.
func NewRootCmdWithDeps(deps *Dependencies) *cobra.Command {
	f := &flags{}

	rootCmd := &cobra.Command{
		Use:   "commitsense",
		Short: "Suggest the next semantic version and changelog from commit history",
		Long: `commitsense analyzes the commits since the last release, asks an
OpenAI-compatible model to classify them, and reports the next semantic
version together with a changelog section.

The last release is found by, in order: --base-ref, the latest tag matching
--tag-pattern or --tag-regex, the most recent "release: " commit, the highest
semver tag, and finally the initial commit.

Configuration is read from .commitsense.yaml, .env, the environment
(OPENAI_API_KEY, OPENAI_API_URL, OPENAI_MODEL, COMMITSENSE_*) and Vault.
Flags take precedence over all of them.

Examples:
  # Dry run in the current directory
  commitsense

  # Only consider tags of one component
  commitsense --tag-pattern 'app-v*'

  # Apply a nightly version to Cargo.toml and CHANGELOG.md
  commitsense --path ./crate --write --nightly`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalyze(cmd, f, deps)
		},
	}

	fs := rootCmd.Flags()
	fs.StringVarP(&f.path, "path", "p", ".", "Path to the project directory")
	fs.StringVar(&f.configFile, "config", "", "Configuration file (defaults to .commitsense.yaml in the project)")
	fs.StringVar(&f.apiKey, "api-key", "", "OpenAI API key")
	fs.StringVar(&f.apiURL, "api-url", "", "OpenAI-compatible API base URL")
	fs.StringVar(&f.model, "model", "", "Chat model name")
	fs.StringVar(&f.projectType, "project-type", "",
		"Project type: rust, js, ts, javascript, typescript or node (auto-detected by default)")
	fs.StringVar(&f.baseRef, "base-ref", "", "Branch, tag or commit to analyze from")
	fs.StringVar(&f.tagPattern, "tag-pattern", "", "Glob selecting release tags, e.g. 'v*'")
	fs.StringVar(&f.tagRegex, "tag-regex", "", "Regular expression selecting release tags")
	fs.StringVar(&f.gitBackend, "git-backend", "", "Git backend: gogit or cli")
	fs.BoolVar(&f.write, "write", false, "Write the new version and changelog to disk")
	fs.BoolVar(&f.nightly, "nightly", false, "Produce a MAJOR.MINOR.PATCH-nightly.YYYYMMDD version")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "Enable verbose/debug logging")

	rootCmd.MarkFlagsMutuallyExclusive("tag-pattern", "tag-regex")

	return rootCmd
}

// runAnalyze executes the release analysis with injected dependencies.
func runAnalyze(cmd *cobra.Command, f *flags, deps *Dependencies) error {
	if deps == nil {
		return errors.New("dependencies not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	stderr := deps.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	cfg, err := deps.ConfigLoader(ctx, ConfigOptions{ProjectPath: f.path, ConfigFile: f.configFile})
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	applyFlags(cmd, f, cfg)

	// The logger reads its settings from the environment (best-effort).
	if f.verbose {
		cfg.LogLevel = "debug"
	}
	setEnv(stderr, "LOG_LEVEL", cfg.LogLevel)
	setEnv(stderr, "LOG_APP_NAME", cfg.LogAppName)

	log := deps.LoggerFactory()

	log.Info(ctx, "starting commitsense", map[string]interface{}{
		"path":        f.path,
		"git_backend": cfg.GitBackend,
		"write":       cfg.Write,
		"nightly":     cfg.Nightly,
	})

	input := domain.AnalyzeInput{
		Base: domain.BaseCommitInput{
			ExplicitRef: cfg.BaseRef,
			TagGlob:     cfg.TagPattern,
			TagRegex:    cfg.TagRegex,
		},
		Write:   cfg.Write,
		Nightly: cfg.Nightly,
	}
	if err := input.Base.Validate(); err != nil {
		log.Error(ctx, "invalid tag filters", err, nil)
		return err
	}

	var projectType domain.ProjectType
	if cfg.ProjectType != "" {
		projectType, err = domain.ParseProjectType(cfg.ProjectType)
		if err != nil {
			log.Error(ctx, "invalid project type", err, nil)
			return err
		}
	}

	repo, err := deps.GitRepoFactory(f.path, cfg.GitBackend, log)
	if err != nil {
		log.Error(ctx, "failed to open git repository", err, map[string]interface{}{
			"path": f.path,
		})
		if errors.Is(err, domain.ErrRepositoryNotFound) {
			return fmt.Errorf("not a git repository: %s", f.path)
		}
		return err
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			log.Warn(ctx, "failed to close git repository", map[string]interface{}{
				"error": closeErr.Error(),
			})
		}
	}()

	project, err := deps.ProjectFactory(f.path, projectType, log)
	if err != nil {
		log.Error(ctx, "failed to open project manifest", err, map[string]interface{}{
			"path": f.path,
		})
		return err
	}

	suggester := &keyCheckedSuggester{
		requireKey: cfg.requireAPIKey,
		build:      func() domain.Suggester { return deps.SuggesterFactory(cfg, log) },
	}

	analyzer := deps.AnalyzerFactory(
		project,
		deps.ResolverFactory(repo, log),
		suggester,
		deps.ChangelogWriterFactory(f.path, log),
		log,
	)

	result, err := analyzer.Analyze(ctx, input)
	if err != nil {
		log.Error(ctx, "release analysis failed", err, nil)
		return describeError(err)
	}

	writer := deps.OutputWriterFactory()
	if err := writer.WriteResult(result); err != nil {
		log.Error(ctx, "failed to write output", err, nil)
		return fmt.Errorf("output error: %w", err)
	}

	log.Info(ctx, "release analysis complete", map[string]interface{}{
		"base":         result.Base.OID,
		"strategy":     string(result.Base.Strategy),
		"commit_count": result.CommitCount,
		"bump_type":    string(result.BumpType),
		"version":      result.FinalVersion(),
		"applied":      result.Applied,
	})

	return nil
}

// applyFlags overrides configuration values with the flags the user actually set.
func applyFlags(cmd *cobra.Command, f *flags, cfg *AppConfig) {
	fs := cmd.Flags()
	overrides := []struct {
		name  string
		apply func()
	}{
		{"api-key", func() { cfg.APIKey = f.apiKey }},
		{"api-url", func() { cfg.APIURL = f.apiURL }},
		{"model", func() { cfg.Model = f.model }},
		{"project-type", func() { cfg.ProjectType = f.projectType }},
		{"base-ref", func() { cfg.BaseRef = f.baseRef }},
		{"git-backend", func() { cfg.GitBackend = f.gitBackend }},
		{"write", func() { cfg.Write = f.write }},
		{"nightly", func() { cfg.Nightly = f.nightly }},
	}
	for _, o := range overrides {
		if fs.Changed(o.name) {
			o.apply()
		}
	}

	// A tag filter given on the command line replaces both configured filters.
	if fs.Changed("tag-pattern") || fs.Changed("tag-regex") {
		cfg.TagPattern = f.tagPattern
		cfg.TagRegex = f.tagRegex
	}
}

// describeError maps well-known error kinds to short user-facing messages,
// keeping the original error in the chain.
func describeError(err error) error {
	switch {
	case errors.Is(err, domain.ErrNoInitialCommit):
		return fmt.Errorf("repository has no commits: %w", err)
	case errors.Is(err, domain.ErrInvalidBaseRef):
		return fmt.Errorf("base reference not found: %w", err)
	case errors.Is(err, domain.ErrConfig):
		return fmt.Errorf("configuration error: %w", err)
	case errors.Is(err, domain.ErrProject):
		return fmt.Errorf("project manifest error: %w", err)
	case errors.Is(err, domain.ErrVersion):
		return fmt.Errorf("version error: %w", err)
	case errors.Is(err, domain.ErrChangelog):
		return fmt.Errorf("changelog error: %w", err)
	case errors.Is(err, domain.ErrAPI):
		return fmt.Errorf("AI suggestion failed: %w", err)
	case errors.Is(err, domain.ErrGitCommand):
		return fmt.Errorf("git error: %w", err)
	default:
		return err
	}
}

// keyCheckedSuggester defers the API key check and client construction until
// the first suggestion is requested, so runs without new commits need no key.
type keyCheckedSuggester struct {
	requireKey func() error
	build      func() domain.Suggester
	next       domain.Suggester
}

func (s *keyCheckedSuggester) Suggest(
	ctx context.Context,
	currentVersion string,
	messages []string,
	projectType domain.ProjectType,
) (*domain.Suggestion, error) {
	if s.next == nil {
		if err := s.requireKey(); err != nil {
			return nil, err
		}
		s.next = s.build()
	}
	return s.next.Suggest(ctx, currentVersion, messages, projectType)
}

// setEnv exports a non-empty value for components configured from the environment.
func setEnv(stderr io.Writer, name, value string) {
	if value == "" {
		return
	}
	if err := os.Setenv(name, value); err != nil {
		writeWarningf(stderr, "warning: could not set %s: %v\n", name, err)
	}
}

// Execute runs the root command.
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// writeWarningf writes a warning message to the given writer.
// This is a best-effort operation; errors are intentionally ignored
// because there is no recovery action if stderr writes fail.
func writeWarningf(w io.Writer, format string, args ...any) {
	_, err := fmt.Fprintf(w, format, args...)
	if err != nil {
		return
	}
}
