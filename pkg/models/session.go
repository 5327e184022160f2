package models

// Mode controls how much the pipeline pauses for user input.
type Mode string

const (
	ModeAutonomous          Mode = "autonomous"
	ModeInteractive         Mode = "interactive"
	ModeInteractiveDetailed Mode = "interactive-detailed"
)

// Valid reports whether m is one of the recognized modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeAutonomous, ModeInteractive, ModeInteractiveDetailed:
		return true
	}
	return false
}

// Interactive reports whether the pipeline gates on user confirmations.
func (m Mode) Interactive() bool {
	return m == ModeInteractiveDetailed
}

// Stage is a coarse step of the pipeline state machine.
type Stage string

const (
	StageIntake                 Stage = "intake"
	StagePlanning               Stage = "planning"
	StageAwaitingPlanConfirm    Stage = "awaiting_plan_confirmation"
	StageTransformation         Stage = "transformation"
	StageAwaitingValidateConfirm Stage = "awaiting_validation_confirmation"
	StageValidation             Stage = "validation"
	StageNarration              Stage = "narration"
	StageAwaitingPushConfirm    Stage = "awaiting_push_confirmation"
	StageGitOperations          Stage = "git_operations"
	StageComplete               Stage = "complete"
	StageFailed                 Stage = "failed"
	StageCancelled              Stage = "cancelled"
)

// Terminal reports whether no further stage transitions may occur.
func (s Stage) Terminal() bool {
	switch s {
	case StageComplete, StageFailed, StageCancelled:
		return true
	}
	return false
}

// Status is the session lifecycle flag, orthogonal to Stage.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusRetrying  Status = "retrying"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// ConfirmationType identifies which gate a paused session is waiting on.
type ConfirmationType string

const (
	ConfirmationNone       ConfirmationType = ""
	ConfirmationPlan       ConfirmationType = "plan"
	ConfirmationValidation ConfirmationType = "validation"
	ConfirmationPush       ConfirmationType = "push"
)
