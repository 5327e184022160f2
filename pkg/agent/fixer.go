package agent

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/codeready-toolchain/repoai/pkg/config"
	"github.com/codeready-toolchain/repoai/pkg/llm"
	"github.com/codeready-toolchain/repoai/pkg/models"
)

const fixerSystemPrompt = `You are the code transformation agent of an automated Java refactoring
service, in targeted-fix mode. Validation failed after the previous change set.
You receive the error digest and the current content of only the affected
files. Output the minimal change objects that make the build and tests pass:
file_path, change_type, and modified_content holding the ENTIRE corrected
file. Do not rework files the errors do not mention.`

// Fixer generates targeted fixes: a focused transformer call scoped to
// the files flagged by the last validation result.
type Fixer struct {
	caller llm.Caller
	logger *slog.Logger
}

// NewFixer creates the targeted fix generator.
func NewFixer(caller llm.Caller) *Fixer {
	return &Fixer{
		caller: caller,
		logger: slog.With("component", "targeted_fixer"),
	}
}

// Run generates fixes for the validation failures. guidance carries the
// orchestrator's modification instructions; when empty the prompt falls
// back to pattern hints derived from the error digest.
func (f *Fixer) Run(ctx context.Context, repoRoot string, changes models.CodeChanges, validation models.ValidationResult, guidance string) ([]models.CodeChange, error) {
	digest := validation.ErrorDigest()
	flagged := flaggedFiles(changes, validation)

	var b strings.Builder
	b.WriteString("## Validation errors\n\n")
	for _, line := range digest {
		fmt.Fprintf(&b, "- %s\n", line)
	}

	if guidance != "" {
		b.WriteString("\n## Fix instructions\n\n")
		b.WriteString(guidance)
	} else if hints := patternHints(digest); len(hints) > 0 {
		b.WriteString("\n## Likely failure patterns\n\n")
		for _, h := range hints {
			fmt.Fprintf(&b, "- %s\n", h)
		}
	}

	b.WriteString("\n## Affected files\n")
	for _, rel := range flagged {
		content, err := os.ReadFile(filepath.Join(repoRoot, filepath.FromSlash(rel)))
		if err != nil {
			f.logger.Warn("Flagged file unreadable, describing by name only", "file", rel, "error", err)
			fmt.Fprintf(&b, "\n### %s (unreadable)\n", rel)
			continue
		}
		fmt.Fprintf(&b, "\n### %s\n```java\n%s\n```\n", rel, content)
	}

	var out struct {
		Changes []models.CodeChange `json:"changes"`
	}
	meta, err := f.caller.CompleteJSON(ctx, config.RoleCoder, fixerSystemPrompt, b.String(), codeChangesSchema, &out)
	if err != nil {
		return nil, fmt.Errorf("targeted fix: %w", err)
	}

	for i := range out.Changes {
		if err := FinalizeChange(&out.Changes[i]); err != nil {
			return nil, fmt.Errorf("targeted fix: %w", err)
		}
	}
	f.logger.Info("Targeted fix generated", "fixes", len(out.Changes), "model", meta.Model)
	return out.Changes, nil
}

// flaggedFiles collects the repository-relative paths the validation
// result points at, falling back to every changed file.
func flaggedFiles(changes models.CodeChanges, validation models.ValidationResult) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(path string) {
		if path != "" && !seen[path] {
			seen[path] = true
			out = append(out, path)
		}
	}

	for _, check := range validation.Checks {
		for _, ce := range check.CompilationErrors {
			add(ce.File)
		}
	}
	for _, tf := range validation.TestFailures {
		// Map test class names back to changed file paths.
		for _, c := range changes.Changes {
			if strings.Contains(c.FilePath, classFileName(tf.Class)) {
				add(c.FilePath)
			}
		}
	}
	if len(out) == 0 {
		for _, c := range changes.Changes {
			if c.ChangeType != models.ChangeDeleted {
				add(c.FilePath)
			}
		}
	}
	return out
}

func classFileName(class string) string {
	if i := strings.LastIndex(class, "."); i >= 0 {
		class = class[i+1:]
	}
	return class + ".java"
}

// patternHints matches the digest against known failure shapes so the
// model starts from a diagnosis instead of raw compiler noise.
func patternHints(digest []string) []string {
	joined := strings.ToLower(strings.Join(digest, "\n"))
	var hints []string
	if strings.Contains(joined, "cannot find symbol") || strings.Contains(joined, "cannot resolve") {
		hints = append(hints, "Missing symbols: an import, class, or method referenced by the new code does not exist; add the import or create the member")
	}
	if strings.Contains(joined, "constructor") || strings.Contains(joined, "actual and formal argument lists differ") {
		hints = append(hints, "Wrong constructor arguments: call sites still pass the old parameter list; update them to the new signature")
	}
	if strings.Contains(joined, "mock") || strings.Contains(joined, "stub") {
		hints = append(hints, "Tests mock a class or method that was removed or renamed; update the test doubles to the new API")
	}
	if strings.Contains(joined, "incompatible types") {
		hints = append(hints, "Incompatible types: a changed return or field type is not reflected at all usage sites")
	}
	if strings.Contains(joined, "package") && strings.Contains(joined, "does not exist") {
		hints = append(hints, "Missing dependency or wrong package declaration; check the build manifest and package statements")
	}
	return hints
}
