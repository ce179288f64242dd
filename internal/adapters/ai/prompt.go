package ai

import (
	"fmt"
	"strings"

	"github.com/MyCarrier-DevOps/commitsense/internal/domain"
)

const systemPrompt = `You are a release manager. Classify git commits into a semantic version bump and write a changelog entry.
Rules:
- "major" for breaking changes (a "!" after the type, or a "BREAKING CHANGE" footer).
- "minor" for new features.
- "patch" for fixes, performance work and other user-visible corrections.
- "none" when nothing warrants a release (docs, CI, chores only).
Reply with a single JSON object inside a ` + "```json" + ` fence with exactly these fields:
{"bump": "major|minor|patch|none", "next_version": "X.Y.Z", "changelog": "markdown bullet list grouped under ### headings"}`

// buildUserPrompt lists the release context and every commit message, oldest first.
func buildUserPrompt(currentVersion string, messages []string, projectType domain.ProjectType) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project type: %s\n", projectType.DisplayName())
	fmt.Fprintf(&b, "Current version: %s\n", currentVersion)
	fmt.Fprintf(&b, "Commits since the last release (%d, oldest first):\n", len(messages))

	if len(messages) == 0 {
		b.WriteString("(none)\n")
	}
	for i, msg := range messages {
		fmt.Fprintf(&b, "\n--- commit %d ---\n%s\n", i+1, strings.TrimSpace(msg))
	}
	return b.String()
}
