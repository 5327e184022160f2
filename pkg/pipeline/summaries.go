package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/codeready-toolchain/repoai/pkg/build"
	"github.com/codeready-toolchain/repoai/pkg/models"
)

// planData is the structured plan view carried by plan_ready events
// and the session's confirmation data.
func planData(plan *models.RefactorPlan) map[string]any {
	steps := make([]map[string]any, len(plan.Steps))
	for i, s := range plan.Steps {
		steps[i] = map[string]any{
			"step_number": s.StepNumber,
			"action":      s.Action,
			"description": s.Description,
			"risk_level":  s.RiskLevel,
		}
	}
	return map[string]any{
		"plan_id":                    plan.PlanID,
		"steps":                      steps,
		"overall_risk":               plan.RiskAssessment.OverallRisk,
		"estimated_duration_minutes": plan.EstimatedDuration,
	}
}

// summarizePlan renders the plan for decision engine prompts.
func summarizePlan(plan *models.RefactorPlan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d steps, %s risk, ~%d minutes\n",
		len(plan.Steps), plan.RiskAssessment.OverallRisk, plan.EstimatedDuration)
	for _, s := range plan.Steps {
		fmt.Fprintf(&b, "%d. [%s] %s\n", s.StepNumber, s.Action, s.Description)
	}
	return b.String()
}

func (r *run) pushData() map[string]any {
	data := map[string]any{"files": r.changes.Paths()}
	if r.validation != nil {
		data["validation_passed"] = r.validation.Passed
		data["test_coverage"] = r.validation.TestCoverage
	}
	if r.prDesc != nil {
		data["title"] = r.prDesc.Title
		data["summary"] = r.prDesc.Summary
	}
	return data
}

func pushSummary(changes models.CodeChanges, validation *models.ValidationResult, desc *models.PRDescription) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d files changed (+%d/-%d)\n", len(changes.Changes), changes.TotalAdded, changes.TotalRemoved)
	if validation != nil {
		fmt.Fprintf(&b, "Validation passed: %t\n", validation.Passed)
	}
	if desc != nil {
		fmt.Fprintf(&b, "Title: %s\nSummary: %s\n", desc.Title, desc.Summary)
	}
	return b.String()
}

// compileSummary renders the factual compile outcome for the Validator
// prompt.
func compileSummary(result *build.Result) string {
	if result.Success {
		return fmt.Sprintf("Compilation succeeded in %s with %d warnings.", result.Duration.Round(0), len(result.Warnings))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Compilation FAILED with %d errors:\n", len(result.Errors))
	for _, e := range result.Errors {
		if e.File != "" {
			fmt.Fprintf(&b, "- %s:%d: %s\n", e.File, e.Line, e.Message)
		} else {
			fmt.Fprintf(&b, "- %s\n", e.Message)
		}
	}
	return b.String()
}

func testSummary(result *build.TestRunResult) string {
	if result == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Tests run: %d, passed: %d, failed: %d, skipped: %d\n",
		result.Totals.Run, result.Totals.Passed, result.Totals.Failed, result.Totals.Skipped)
	for _, f := range result.Failures {
		fmt.Fprintf(&b, "- %s.%s: %s\n", f.Class, f.Method, f.Message)
	}
	return b.String()
}

func testFailureIssues(failures []models.TestFailure) []string {
	issues := make([]string, len(failures))
	for i, f := range failures {
		issues[i] = fmt.Sprintf("%s.%s: %s", f.Class, f.Method, f.Message)
	}
	return issues
}

func fileEventType(ct models.ChangeType) string {
	switch ct {
	case models.ChangeCreated:
		return models.EventFileCreated
	case models.ChangeDeleted:
		return models.EventFileDeleted
	default:
		return models.EventFileModified
	}
}

func pastTense(ct models.ChangeType) string {
	switch ct {
	case models.ChangeCreated:
		return "Created"
	case models.ChangeDeleted:
		return "Deleted"
	default:
		return "Modified"
	}
}

func hasTests(root string) bool {
	info, err := os.Stat(filepath.Join(root, "src", "test"))
	return err == nil && info.IsDir()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
