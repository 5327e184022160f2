package agent

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"github.com/codeready-toolchain/repoai/pkg/config"
	"github.com/codeready-toolchain/repoai/pkg/javasrc"
	"github.com/codeready-toolchain/repoai/pkg/llm"
	"github.com/codeready-toolchain/repoai/pkg/models"
)

// plannerMaxFiles caps how many source structures are embedded in one
// planning prompt.
const plannerMaxFiles = 40

// Planner turns a JobSpec plus the repository contents into an ordered
// RefactorPlan.
type Planner struct {
	caller   llm.Caller
	analyzer *javasrc.Analyzer
	logger   *slog.Logger
}

// NewPlanner creates the planner runner.
func NewPlanner(caller llm.Caller) *Planner {
	return &Planner{
		caller:   caller,
		analyzer: javasrc.NewAnalyzer(),
		logger:   slog.With("component", "planner_agent"),
	}
}

// Run produces a plan for the job. The repository is enumerated and the
// in-scope files parsed host-side; the model only sees structures, not
// full sources. The returned plan always satisfies the plan invariants.
func (a *Planner) Run(ctx context.Context, spec models.JobSpec, repoRoot string) (*models.RefactorPlan, error) {
	structures, err := a.analyzeScope(ctx, spec, repoRoot)
	if err != nil {
		return nil, fmt.Errorf("planner agent: %w", err)
	}

	var plan models.RefactorPlan
	meta, err := a.caller.CompleteJSON(ctx, config.RolePlanner,
		plannerSystemPrompt, buildPlannerUser(spec, structures), planSchema, &plan)
	if err != nil {
		return nil, fmt.Errorf("planner agent: %w", err)
	}

	plan.JobID = spec.JobID
	if plan.PlanID == "" {
		plan.PlanID = "plan_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	}
	a.normalize(&plan)
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("planner agent: model produced invalid plan: %w", err)
	}

	a.logger.Info("Planning complete", "plan_id", plan.PlanID, "steps", len(plan.Steps),
		"overall_risk", plan.RiskAssessment.OverallRisk, "model", meta.Model)
	return &plan, nil
}

// analyzeScope enumerates the repository, keeps files matching the
// scope globs minus the exclusions, and parses each one.
func (a *Planner) analyzeScope(ctx context.Context, spec models.JobSpec, repoRoot string) (map[string]*javasrc.Structure, error) {
	files, err := javasrc.ListSourceFiles(repoRoot)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	structures := make(map[string]*javasrc.Structure)
	for _, rel := range files {
		if !strings.HasSuffix(rel, ".java") || !inScope(rel, spec.Scope) {
			continue
		}
		content, err := os.ReadFile(filepath.Join(repoRoot, filepath.FromSlash(rel)))
		if err != nil {
			a.logger.Warn("Skipping unreadable source file", "file", rel, "error", err)
			continue
		}
		structure, err := a.analyzer.Analyze(ctx, content)
		if err != nil {
			a.logger.Warn("Skipping unparseable source file", "file", rel, "error", err)
			continue
		}
		structures[rel] = structure
		if len(structures) >= plannerMaxFiles {
			break
		}
	}
	return structures, nil
}

func inScope(rel string, scope models.JobScope) bool {
	for _, pattern := range scope.Excludes {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return false
		}
	}
	if len(scope.TargetFiles) == 0 {
		return true
	}
	for _, pattern := range scope.TargetFiles {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// normalize repairs the model's plan so it meets the invariants:
// dense 1-based numbering, semantic dependency suggestions, estimate
// and risk defaults, mitigation strategies.
func (a *Planner) normalize(plan *models.RefactorPlan) {
	renumber := make(map[int]int, len(plan.Steps))
	for i := range plan.Steps {
		renumber[plan.Steps[i].StepNumber] = i + 1
	}
	for i := range plan.Steps {
		step := &plan.Steps[i]
		step.StepNumber = i + 1

		deps := step.Dependencies
		step.Dependencies = step.Dependencies[:0]
		for _, d := range deps {
			if n, ok := renumber[d]; ok && n < step.StepNumber {
				step.Dependencies = append(step.Dependencies, n)
			}
		}
		if step.EstimatedMinutes == 0 {
			step.EstimatedMinutes = EstimateMinutes(step.Action)
		}
		if step.RiskLevel == 0 {
			step.RiskLevel = EstimateRisk(step.Action, false, false)
		}
	}
	plan.Steps = SuggestStepDependencies(plan.Steps)

	if len(plan.RiskAssessment.MitigationStrategies) == 0 {
		plan.RiskAssessment.MitigationStrategies = MitigationStrategies(
			plan.RiskAssessment.OverallRisk,
			plan.RiskAssessment.BreakingChanges,
			plan.RiskAssessment.CompilationRisk)
	}
	if plan.RiskAssessment.OverallRisk == "" {
		plan.RiskAssessment.OverallRisk = overallRiskLabel(plan.Steps)
	}
	if plan.EstimatedDuration == 0 {
		for _, s := range plan.Steps {
			plan.EstimatedDuration += s.EstimatedMinutes
		}
	}
}

// overallRiskLabel derives a plan-level label from the highest step
// risk.
func overallRiskLabel(steps []models.PlanStep) string {
	max := 0
	for _, s := range steps {
		if s.RiskLevel > max {
			max = s.RiskLevel
		}
	}
	switch {
	case max >= 8:
		return "critical"
	case max >= 6:
		return "high"
	case max >= 3:
		return "medium"
	default:
		return "low"
	}
}
