package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/codeready-toolchain/repoai/pkg/config"
	"github.com/codeready-toolchain/repoai/pkg/llm"
	"github.com/codeready-toolchain/repoai/pkg/models"
)

// Validator judges an applied change set. Static scanners and the
// coverage estimate run host-side; the model sees their findings plus
// the factual compiler and test summaries and renders the verdict.
type Validator struct {
	caller llm.Caller
	logger *slog.Logger
}

// NewValidator creates the validator runner.
func NewValidator(caller llm.Caller) *Validator {
	return &Validator{
		caller: caller,
		logger: slog.With("component", "validator_agent"),
	}
}

// Run produces a normalized ValidationResult. compileSummary and
// testSummary are the build driver's factual outputs; the pipeline
// re-annotates the result with them afterwards so the facts always win.
func (a *Validator) Run(ctx context.Context, changes models.CodeChanges, compileSummary, testSummary string) (*models.ValidationResult, error) {
	files := make(map[string]string, len(changes.Changes))
	for _, c := range changes.Changes {
		if c.ChangeType != models.ChangeDeleted {
			files[c.FilePath] = c.ModifiedContent
		}
	}
	staticChecks := RunScanners(files)
	coverage := EstimateCoverage(ctx, files)

	var result models.ValidationResult
	meta, err := a.caller.CompleteJSON(ctx, config.RoleCoder,
		validatorSystemPrompt,
		buildValidatorUser(changes, compileSummary, testSummary, staticChecks, coverage),
		validationSchema, &result)
	if err != nil {
		return nil, fmt.Errorf("validator agent: %w", err)
	}

	result.PlanID = changes.PlanID
	result.Checks = mergeChecks(result.Checks, staticChecks)
	if result.TestCoverage == 0 {
		result.TestCoverage = coverage
	}
	result.Normalize()

	a.logger.Info("Validation complete", "plan_id", result.PlanID, "passed", result.Passed,
		"checks", len(result.Checks), "model", meta.Model)
	return &result, nil
}

// mergeChecks keeps the scanners' deterministic findings authoritative
// over the model's retelling of them.
func mergeChecks(fromModel, static []models.ValidationCheck) []models.ValidationCheck {
	byName := make(map[string]int, len(static))
	out := make([]models.ValidationCheck, len(static))
	copy(out, static)
	for i, c := range out {
		byName[c.Name] = i
	}
	for _, c := range fromModel {
		if _, ok := byName[c.Name]; ok {
			continue
		}
		out = append(out, c)
	}
	return out
}
