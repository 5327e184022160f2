package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/codeready-toolchain/repoai/pkg/config"
	"github.com/codeready-toolchain/repoai/pkg/llm"
	"github.com/codeready-toolchain/repoai/pkg/models"
)

// Narrator writes the PR description for a finished change set.
type Narrator struct {
	caller llm.Caller
	logger *slog.Logger
}

// NewNarrator creates the narrator runner.
func NewNarrator(caller llm.Caller) *Narrator {
	return &Narrator{
		caller: caller,
		logger: slog.With("component", "narrator_agent"),
	}
}

// Run produces a PRDescription. File categorization happens host-side
// and overrides whatever category the model assigns.
func (a *Narrator) Run(ctx context.Context, changes models.CodeChanges, validation models.ValidationResult) (*models.PRDescription, error) {
	categories := make(map[string]string, len(changes.Changes))
	for _, c := range changes.Changes {
		categories[c.FilePath] = CategorizeFile(c.FilePath)
	}

	var desc models.PRDescription
	meta, err := a.caller.CompleteJSON(ctx, config.RolePRNarrator,
		narratorSystemPrompt, buildNarratorUser(changes, validation, categories),
		prDescriptionSchema, &desc)
	if err != nil {
		return nil, fmt.Errorf("narrator agent: %w", err)
	}

	desc.PlanID = changes.PlanID
	a.annotate(&desc, changes, categories)

	a.logger.Info("Narration complete", "plan_id", desc.PlanID, "title", desc.Title, "model", meta.Model)
	return &desc, nil
}

// annotate forces deterministic categories and fills in files the
// model forgot to describe.
func (a *Narrator) annotate(desc *models.PRDescription, changes models.CodeChanges, categories map[string]string) {
	described := make(map[string]bool, len(desc.FileDescriptions))
	for i := range desc.FileDescriptions {
		fd := &desc.FileDescriptions[i]
		described[fd.FilePath] = true
		if cat, ok := categories[fd.FilePath]; ok {
			fd.Category = cat
		}
	}
	for _, c := range changes.Changes {
		if described[c.FilePath] {
			continue
		}
		desc.FileDescriptions = append(desc.FileDescriptions, models.FileDescription{
			FilePath:    c.FilePath,
			Category:    categories[c.FilePath],
			Description: defaultFileDescription(c),
		})
	}

	if len(desc.BreakingChanges) == 0 {
		desc.BreakingChanges = ExtractBreakingChanges(changes)
	}
}

// CategorizeFile buckets a path into the PR description categories.
func CategorizeFile(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.Contains(lower, "/test/") || strings.HasSuffix(lower, "test.java") || strings.HasSuffix(lower, "tests.java") || strings.HasSuffix(lower, "it.java"):
		return "tests"
	case strings.HasSuffix(lower, "pom.xml") || strings.Contains(lower, "build.gradle") ||
		strings.HasSuffix(lower, ".yml") || strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".properties"):
		return "configuration"
	case strings.HasSuffix(lower, ".md") || strings.Contains(lower, "/docs/"):
		return "docs"
	case strings.HasSuffix(lower, ".java"):
		return "refactoring"
	default:
		return "features"
	}
}

func defaultFileDescription(c models.CodeChange) string {
	switch c.ChangeType {
	case models.ChangeCreated:
		return fmt.Sprintf("New file with %d lines", c.LinesAdded)
	case models.ChangeDeleted:
		return "Removed"
	default:
		parts := []string{fmt.Sprintf("+%d/-%d lines", c.LinesAdded, c.LinesRemoved)}
		if len(c.MethodsAdded) > 0 {
			parts = append(parts, "methods added: "+strings.Join(c.MethodsAdded, ", "))
		}
		return strings.Join(parts, "; ")
	}
}

// ExtractBreakingChanges derives breaking-change notes from removed
// files and dependency removals.
func ExtractBreakingChanges(changes models.CodeChanges) []string {
	var out []string
	for _, c := range changes.Changes {
		switch {
		case c.ChangeType == models.ChangeDeleted && strings.HasSuffix(c.FilePath, ".java"):
			out = append(out, fmt.Sprintf("%s was removed; callers must migrate", c.FilePath))
		case c.ChangeType == models.ChangeModified && isManifest(c.FilePath) && c.LinesRemoved > 0:
			out = append(out, fmt.Sprintf("dependency declarations changed in %s", c.FilePath))
		}
	}
	return out
}

func isManifest(path string) bool {
	return strings.HasSuffix(path, "pom.xml") || strings.Contains(path, "build.gradle")
}
