package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/repoai/pkg/models"
)

// Session holds all mutable state for one refactoring run. Pipeline
// stages read and write it through the thread-safe accessors; transport
// handlers read consistent copies through Snapshot.
type Session struct {
	ID         string
	UserID     string
	UserPrompt string
	RepoURL    string
	Mode       models.Mode
	MaxRetries int

	Stage     models.Stage
	Status    models.Status
	CreatedAt time.Time
	UpdatedAt time.Time

	RetryCount int
	Errors     []string
	Warnings   []string

	// StageTimings records how long each completed stage took.
	StageTimings map[models.Stage]time.Duration

	AwaitingConfirmation models.ConfirmationType
	ConfirmationData     map[string]any

	JobSpec       *models.JobSpec
	Plan          *models.RefactorPlan
	Changes       *models.CodeChanges
	Validation    *models.ValidationResult
	PRDescription *models.PRDescription

	RepoRoot   string
	BackupRoot string
	BranchName string
	BranchURL  string

	mu           sync.RWMutex
	stageEntered time.Time
	cancelFunc   context.CancelFunc
	confirm      *ConfirmChannel
}

// NewID returns a fresh session identifier, sortable by creation time.
func NewID() string {
	short := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("session_%d_%s", time.Now().UnixMilli(), short)
}

// SetStage transitions the session to a new stage, recording how long
// the previous stage ran.
func (s *Session) SetStage(stage models.Stage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if s.Stage != "" && !s.stageEntered.IsZero() {
		s.StageTimings[s.Stage] = now.Sub(s.stageEntered)
	}
	s.Stage = stage
	s.stageEntered = now
	s.UpdatedAt = now
}

// SetStatus updates the session status.
func (s *Session) SetStatus(status models.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = status
	s.UpdatedAt = time.Now()
}

// CurrentStage returns the stage the session is in.
func (s *Session) CurrentStage() models.Stage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Stage
}

// AddError records a non-fatal or fatal error message on the session.
func (s *Session) AddError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Errors = append(s.Errors, msg)
	s.UpdatedAt = time.Now()
}

// AddWarning records a warning message on the session.
func (s *Session) AddWarning(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Warnings = append(s.Warnings, msg)
	s.UpdatedAt = time.Now()
}

// IncrementRetry bumps the retry counter and returns the new value.
func (s *Session) IncrementRetry() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RetryCount++
	s.UpdatedAt = time.Now()
	return s.RetryCount
}

// SetAwaiting marks the session as paused at a confirmation gate and
// stores the data the client needs to decide.
func (s *Session) SetAwaiting(ct models.ConfirmationType, data map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AwaitingConfirmation = ct
	s.ConfirmationData = data
	s.Status = models.StatusPaused
	s.UpdatedAt = time.Now()
}

// ClearAwaiting resumes the session past a confirmation gate.
func (s *Session) ClearAwaiting() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AwaitingConfirmation = models.ConfirmationNone
	s.ConfirmationData = nil
	s.Status = models.StatusRunning
	s.UpdatedAt = time.Now()
}

// Awaiting reports the gate the session is paused at, if any.
func (s *Session) Awaiting() models.ConfirmationType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.AwaitingConfirmation
}

// Artifact setters store pipeline outputs as stages produce them.

func (s *Session) SetJobSpec(spec *models.JobSpec) { s.setArtifact(func() { s.JobSpec = spec }) }

func (s *Session) SetPlan(plan *models.RefactorPlan) { s.setArtifact(func() { s.Plan = plan }) }

func (s *Session) SetChanges(changes *models.CodeChanges) {
	s.setArtifact(func() { s.Changes = changes })
}

func (s *Session) SetValidation(v *models.ValidationResult) {
	s.setArtifact(func() { s.Validation = v })
}

func (s *Session) SetPRDescription(d *models.PRDescription) {
	s.setArtifact(func() { s.PRDescription = d })
}

func (s *Session) setArtifact(assign func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	assign()
	s.UpdatedAt = time.Now()
}

// SetRepoRoot records where the working tree was cloned or found.
func (s *Session) SetRepoRoot(root string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RepoRoot = root
	s.UpdatedAt = time.Now()
}

// SetBackupRoot records the backup directory for this run.
func (s *Session) SetBackupRoot(root string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.BackupRoot = root
	s.UpdatedAt = time.Now()
}

// SetBranch records the pushed branch name and its browse URL.
func (s *Session) SetBranch(name, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.BranchName = name
	s.BranchURL = url
	s.UpdatedAt = time.Now()
}

// SetCancelFunc stores the cancel function for the session's pipeline
// context.
func (s *Session) SetCancelFunc(cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelFunc = cancel
}

// Cancel aborts the running pipeline. Returns false when nothing was
// running or the session already reached a terminal stage.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelFunc == nil || s.Stage.Terminal() {
		return false
	}
	s.cancelFunc()
	s.cancelFunc = nil
	return true
}

// Confirmations returns the session's confirmation channel.
func (s *Session) Confirmations() *ConfirmChannel {
	return s.confirm
}

// Snapshot is an immutable projection of a Session, safe to serialize.
type Snapshot struct {
	ID         string      `json:"session_id"`
	UserID     string      `json:"user_id,omitempty"`
	UserPrompt string      `json:"user_prompt"`
	RepoURL    string      `json:"repo_url,omitempty"`
	Mode       models.Mode `json:"mode"`

	Stage     models.Stage  `json:"stage"`
	Status    models.Status `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`

	RetryCount int      `json:"retry_count"`
	Errors     []string `json:"errors,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`

	StageTimings map[models.Stage]time.Duration `json:"stage_timings,omitempty"`

	AwaitingConfirmation models.ConfirmationType `json:"awaiting_confirmation,omitempty"`
	ConfirmationData     map[string]any          `json:"confirmation_data,omitempty"`

	JobSpec       *models.JobSpec          `json:"job_spec,omitempty"`
	Plan          *models.RefactorPlan     `json:"plan,omitempty"`
	Changes       *models.CodeChanges      `json:"changes,omitempty"`
	Validation    *models.ValidationResult `json:"validation,omitempty"`
	PRDescription *models.PRDescription    `json:"pr_description,omitempty"`

	BranchName string `json:"branch_name,omitempty"`
	BranchURL  string `json:"branch_url,omitempty"`
}

// Snapshot returns a consistent copy of the session for reading.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	errs := make([]string, len(s.Errors))
	copy(errs, s.Errors)
	warnings := make([]string, len(s.Warnings))
	copy(warnings, s.Warnings)

	timings := make(map[models.Stage]time.Duration, len(s.StageTimings))
	for stage, d := range s.StageTimings {
		timings[stage] = d
	}

	return Snapshot{
		ID:                   s.ID,
		UserID:               s.UserID,
		UserPrompt:           s.UserPrompt,
		RepoURL:              s.RepoURL,
		Mode:                 s.Mode,
		Stage:                s.Stage,
		Status:               s.Status,
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            s.UpdatedAt,
		RetryCount:           s.RetryCount,
		Errors:               errs,
		Warnings:             warnings,
		StageTimings:         timings,
		AwaitingConfirmation: s.AwaitingConfirmation,
		ConfirmationData:     s.ConfirmationData,
		JobSpec:              s.JobSpec,
		Plan:                 s.Plan,
		Changes:              s.Changes,
		Validation:           s.Validation,
		PRDescription:        s.PRDescription,
		BranchName:           s.BranchName,
		BranchURL:            s.BranchURL,
	}
}
