package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func step(n int, deps ...int) PlanStep {
	return PlanStep{
		StepNumber:       n,
		Action:           "modify_class",
		Description:      "step",
		Dependencies:     deps,
		RiskLevel:        3,
		EstimatedMinutes: 5,
	}
}

func TestRefactorPlanValidate(t *testing.T) {
	tests := []struct {
		name    string
		plan    RefactorPlan
		wantErr string
	}{
		{
			name: "valid chain",
			plan: RefactorPlan{PlanID: "plan-1", Steps: []PlanStep{step(1), step(2, 1), step(3, 1, 2)}},
		},
		{
			name:    "no steps",
			plan:    RefactorPlan{PlanID: "plan-2"},
			wantErr: "has no steps",
		},
		{
			name:    "non-dense numbering",
			plan:    RefactorPlan{PlanID: "plan-3", Steps: []PlanStep{step(1), step(3)}},
			wantErr: "has number 3, want 2",
		},
		{
			name:    "forward dependency",
			plan:    RefactorPlan{PlanID: "plan-4", Steps: []PlanStep{step(1, 2), step(2)}},
			wantErr: "depends on 2",
		},
		{
			name:    "self dependency",
			plan:    RefactorPlan{PlanID: "plan-5", Steps: []PlanStep{step(1), step(2, 2)}},
			wantErr: "depends on 2",
		},
		{
			name: "risk out of range",
			plan: RefactorPlan{PlanID: "plan-6", Steps: []PlanStep{
				{StepNumber: 1, Action: "modify_class", RiskLevel: 11},
			}},
			wantErr: "risk level 11 out of range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestRefactorPlanStep(t *testing.T) {
	plan := RefactorPlan{Steps: []PlanStep{step(1), step(2, 1)}}

	require.NotNil(t, plan.Step(2))
	assert.Equal(t, 2, plan.Step(2).StepNumber)
	assert.Nil(t, plan.Step(0))
	assert.Nil(t, plan.Step(3))
}
