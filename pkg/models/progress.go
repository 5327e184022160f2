package models

import "time"

// Structured event types carried by ProgressEvent.EventType.
const (
	EventPlanReady         = "plan_ready"
	EventValidationReady   = "validation_ready"
	EventPushReady         = "push_ready"
	EventFileCreated       = "file_created"
	EventFileModified      = "file_modified"
	EventFileDeleted       = "file_deleted"
	EventBuildOutput       = "build_output"
	EventGitOperation      = "git_operation"
	EventBranchLink        = "branch_link"
	EventValidationFailed  = "validation_failed"
	EventLLMReasoning      = "llm_reasoning"
	EventBatchStarted      = "batch_started"
	EventBatchCompleted    = "batch_completed"
	EventDependencyAdded   = "dependency_added"
	EventPipelineCompleted = "pipeline_completed"
)

// ProgressEvent is one element on the per-session progress bus.
type ProgressEvent struct {
	SessionID            string           `json:"session_id"`
	Stage                Stage            `json:"stage"`
	Status               Status           `json:"status"`
	Progress             float64          `json:"progress"`
	Message              string           `json:"message"`
	EventType            string           `json:"event_type,omitempty"`
	FilePath             string           `json:"file_path,omitempty"`
	RequiresConfirmation bool             `json:"requires_confirmation,omitempty"`
	ConfirmationType     ConfirmationType `json:"confirmation_type,omitempty"`
	Data                 map[string]any   `json:"data,omitempty"`
	Timestamp            time.Time        `json:"timestamp"`
}
