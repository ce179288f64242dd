package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/MyCarrier-DevOps/commitsense/internal/domain"
)

// ReleaseAnalyzer runs one release analysis: read the current version, find the last
// release, collect commits, ask for a suggestion and optionally apply it.
type ReleaseAnalyzer struct {
	project   domain.Project
	resolver  domain.BaseCommitResolver
	suggester domain.Suggester
	changelog domain.ChangelogWriter
	logger    Logger
	now       func() time.Time
}

// NewReleaseAnalyzer creates a new ReleaseAnalyzer with the given dependencies.
func NewReleaseAnalyzer(
	project domain.Project,
	resolver domain.BaseCommitResolver,
	suggester domain.Suggester,
	changelog domain.ChangelogWriter,
	log Logger,
) *ReleaseAnalyzer {
	return &ReleaseAnalyzer{
		project:   project,
		resolver:  resolver,
		suggester: suggester,
		changelog: changelog,
		logger:    log,
		now:       time.Now,
	}
}

// Analyze executes the analysis. No commits since the base short-circuits before the
// suggester is called.
func (a *ReleaseAnalyzer) Analyze(ctx context.Context, input domain.AnalyzeInput) (*domain.AnalyzeOutput, error) {
	current, err := a.project.CurrentVersion()
	if err != nil {
		return nil, err
	}

	a.logger.Info(ctx, "detected project", map[string]interface{}{
		"project_type":    a.project.Type().DisplayName(),
		"current_version": current,
		"version_file":    a.project.VersionFilePath(),
	})

	base, err := a.resolver.Resolve(ctx, input.Base)
	if err != nil {
		return nil, fmt.Errorf("failed to determine the base commit for analysis: %w", err)
	}

	messages, err := a.resolver.CommitsSince(ctx, base.OID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve commits since the base commit: %w", err)
	}

	output := &domain.AnalyzeOutput{
		ProjectType:    a.project.Type(),
		CurrentVersion: current,
		Base:           *base,
		CommitCount:    len(messages),
	}

	if len(messages) == 0 {
		a.logger.Warn(ctx, "no new commits since base commit; no version bump or changelog needed", map[string]interface{}{
			"base":     base.OID,
			"strategy": base.Strategy,
		})
		output.NoChanges = true
		output.BumpType = domain.BumpNone
		output.NextVersion = current
		output.ChangelogSection = domain.NoChangesChangelogText
		return output, nil
	}

	suggestion, err := a.suggester.Suggest(ctx, current, messages, a.project.Type())
	if err != nil {
		return nil, fmt.Errorf("failed to get a release suggestion: %w", err)
	}

	next, err := a.validateSuggestion(ctx, current, suggestion)
	if err != nil {
		return nil, err
	}

	output.BumpType = suggestion.BumpType
	output.NextVersion = next.String()

	finalVersion := output.NextVersion
	if input.Nightly {
		output.NightlyVersion = NightlyVersion(next, a.now()).String()
		finalVersion = output.NightlyVersion
		a.logger.Info(ctx, "applied nightly versioning", map[string]interface{}{
			"next_version":    output.NextVersion,
			"nightly_version": output.NightlyVersion,
		})
	}

	output.ChangelogSection = a.changelog.FormatSection(finalVersion, suggestion.ChangelogMarkdown)

	if !input.Write {
		a.logger.Info(ctx, "dry run; no files were modified", nil)
		return output, nil
	}

	if suggestion.BumpType == domain.BumpNone && !input.Nightly {
		a.logger.Info(ctx, "bump type is none and nightly is disabled; no file changes needed", nil)
		return output, nil
	}

	if err := a.project.SetVersion(finalVersion); err != nil {
		return nil, fmt.Errorf("failed to update project version file: %w", err)
	}
	if err := a.changelog.Prepend(output.ChangelogSection); err != nil {
		return nil, fmt.Errorf("failed to update changelog: %w", err)
	}
	output.Applied = true

	a.logger.Info(ctx, "applied release changes", map[string]interface{}{
		"version":      finalVersion,
		"version_file": a.project.VersionFilePath(),
	})

	return output, nil
}

// validateSuggestion checks the suggested version against the strict bump arithmetic.
// On disagreement the computed version wins.
func (a *ReleaseAnalyzer) validateSuggestion(
	ctx context.Context,
	current string,
	suggestion *domain.Suggestion,
) (*semver.Version, error) {
	currentVersion, err := ParseVersion(current)
	if err != nil {
		return nil, fmt.Errorf("current project version: %w", err)
	}

	suggested, err := ParseVersion(suggestion.NextVersion)
	if err != nil {
		return nil, fmt.Errorf("suggested next version: %w", err)
	}

	expected := CalculateExpectedVersion(currentVersion, suggestion.BumpType)
	if !suggested.Equal(expected) {
		a.logger.Warn(ctx, "suggested version does not match the bump type; using the computed version", map[string]interface{}{
			"bump_type":         string(suggestion.BumpType),
			"suggested_version": suggested.String(),
			"expected_version":  expected.String(),
		})
	}

	a.logger.Info(ctx, "validated release suggestion", map[string]interface{}{
		"bump_type":    string(suggestion.BumpType),
		"next_version": expected.String(),
	})
	return expected, nil
}
