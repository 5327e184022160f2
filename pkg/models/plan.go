package models

import "fmt"

// PlanStep is one ordered unit of work inside a RefactorPlan.
type PlanStep struct {
	StepNumber       int      `json:"step_number"`
	Action           string   `json:"action"`
	TargetFiles      []string `json:"target_files,omitempty"`
	TargetClasses    []string `json:"target_classes,omitempty"`
	Description      string   `json:"description"`
	Dependencies     []int    `json:"dependencies,omitempty"`
	RiskLevel        int      `json:"risk_level"`
	EstimatedMinutes int      `json:"estimated_minutes"`
}

// RiskAssessment aggregates per-step risk into a plan-level view.
type RiskAssessment struct {
	OverallRisk          string   `json:"overall_risk"`
	BreakingChanges      bool     `json:"breaking_changes"`
	CompilationRisk      bool     `json:"compilation_risk"`
	AffectedModules      []string `json:"affected_modules,omitempty"`
	MitigationStrategies []string `json:"mitigation_strategies,omitempty"`
}

// RefactorPlan is the Planner agent's ordered decomposition of a JobSpec.
type RefactorPlan struct {
	PlanID            string         `json:"plan_id"`
	JobID             string         `json:"job_id"`
	Steps             []PlanStep     `json:"steps"`
	RiskAssessment    RiskAssessment `json:"risk_assessment"`
	EstimatedDuration int            `json:"estimated_duration_minutes"`
}

// Validate checks the structural plan invariants: step numbers are 1-based
// and dense, each step's risk level is within [0,10], and every dependency
// refers to a strictly earlier step (which also rules out cycles).
func (p *RefactorPlan) Validate() error {
	if len(p.Steps) == 0 {
		return fmt.Errorf("plan %s has no steps", p.PlanID)
	}
	for i, step := range p.Steps {
		want := i + 1
		if step.StepNumber != want {
			return fmt.Errorf("plan %s: step at index %d has number %d, want %d", p.PlanID, i, step.StepNumber, want)
		}
		if step.RiskLevel < 0 || step.RiskLevel > 10 {
			return fmt.Errorf("plan %s: step %d risk level %d out of range", p.PlanID, step.StepNumber, step.RiskLevel)
		}
		for _, dep := range step.Dependencies {
			if dep < 1 || dep >= step.StepNumber {
				return fmt.Errorf("plan %s: step %d depends on %d, must be an earlier step", p.PlanID, step.StepNumber, dep)
			}
		}
	}
	return nil
}

// Step returns the step with the given number, or nil.
func (p *RefactorPlan) Step(number int) *PlanStep {
	if number < 1 || number > len(p.Steps) {
		return nil
	}
	return &p.Steps[number-1]
}
