// Package pipeline drives a refactoring session through its stages:
// intake, planning, streamed transformation, validation with retries,
// narration, and the final git push. One goroutine owns each run; it
// suspends at LLM calls, subprocess output, and confirmation gates.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/repoai/pkg/build"
	"github.com/codeready-toolchain/repoai/pkg/config"
	"github.com/codeready-toolchain/repoai/pkg/decision"
	"github.com/codeready-toolchain/repoai/pkg/events"
	"github.com/codeready-toolchain/repoai/pkg/fileops"
	"github.com/codeready-toolchain/repoai/pkg/gitops"
	"github.com/codeready-toolchain/repoai/pkg/llm"
	"github.com/codeready-toolchain/repoai/pkg/models"
	"github.com/codeready-toolchain/repoai/pkg/session"
)

// errCancelled marks a user-initiated abort; the session terminates
// CANCELLED instead of FAILED.
var errCancelled = errors.New("cancelled by user")

const defaultConfirmationTimeout = time.Hour

// Controller builds and runs pipeline executions. It is safe for
// concurrent use; all per-run state lives in the run struct.
type Controller struct {
	caller llm.Caller
	engine *decision.Engine
	git    *gitops.Client
	driver *build.Driver
	cfg    config.PipelineConfig
	logger *slog.Logger
}

func NewController(caller llm.Caller, git *gitops.Client, cfg config.PipelineConfig) *Controller {
	if cfg.ConfirmationTimeout <= 0 {
		cfg.ConfirmationTimeout = defaultConfirmationTimeout
	}
	return &Controller{
		caller: caller,
		engine: decision.NewEngine(caller),
		git:    git,
		driver: build.NewDriver(cfg.MaxOutputBytes),
		cfg:    cfg,
		logger: slog.With("component", "pipeline"),
	}
}

// Run drives one session to a terminal stage. It never returns an
// error: failures are recorded on the session and published before the
// bus closes with its sentinel.
func (c *Controller) Run(ctx context.Context, sess *session.Session, bus *events.Bus) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	sess.SetCancelFunc(cancel)
	defer bus.Close()

	r := &run{c: c, sess: sess, bus: bus}
	logger := c.logger.With("session_id", sess.ID)

	done, err := r.execute(ctx)
	if done {
		// Conversational short-circuit: exactly one event, no artifacts.
		return
	}
	r.cleanup()

	switch {
	case err == nil && (r.validation == nil || r.validation.Passed):
		sess.SetStage(models.StageComplete)
		sess.SetStatus(models.StatusCompleted)
		r.publishCompleted("Refactoring complete")
		logger.Info("Pipeline complete", "retry_count", sess.RetryCount)

	case err == nil:
		// Validation ultimately failed; narration and push already ran
		// as far as the mode allowed.
		sess.SetStage(models.StageFailed)
		sess.SetStatus(models.StatusFailed)
		r.publishCompleted("Refactoring finished with failing validation")
		logger.Warn("Pipeline finished with failed validation")

	case errors.Is(err, errCancelled) || errors.Is(err, context.Canceled):
		sess.SetStage(models.StageCancelled)
		sess.SetStatus(models.StatusCancelled)
		bus.Publish(models.ProgressEvent{
			Stage:   models.StageCancelled,
			Status:  models.StatusCancelled,
			Message: "Session cancelled",
		})
		logger.Info("Pipeline cancelled")

	default:
		sess.AddError(err.Error())
		sess.SetStage(models.StageFailed)
		sess.SetStatus(models.StatusFailed)
		bus.Publish(models.ProgressEvent{
			Stage:   models.StageFailed,
			Status:  models.StatusFailed,
			Message: fmt.Sprintf("Pipeline failed: %v", err),
		})
		logger.Error("Pipeline failed", "error", err)
	}
}

// run carries the mutable state of one pipeline execution.
type run struct {
	c    *Controller
	sess *session.Session
	bus  *events.Bus

	spec       models.JobSpec
	plan       *models.RefactorPlan
	changes    models.CodeChanges
	validation *models.ValidationResult
	prDesc     *models.PRDescription

	// retryHistory summarizes earlier fix attempts for the decision
	// engine.
	retryHistory []string

	branchOverride string
	commitOverride string

	// clonedRoot is set only when this run cloned the repository, so
	// cleanup never removes a caller-provided working tree.
	clonedRoot string
}

// execute walks the stages. The bool result is true when the run
// short-circuited before the pipeline proper started.
func (r *run) execute(ctx context.Context) (bool, error) {
	if r.preflight(ctx) {
		return true, nil
	}
	if err := r.clone(ctx); err != nil {
		return false, err
	}
	if err := r.intake(ctx); err != nil {
		return false, err
	}
	if err := r.planAndConfirm(ctx, r.spec); err != nil {
		return false, err
	}
	if err := r.transform(ctx); err != nil {
		return false, err
	}

	mode, err := r.validationGate(ctx)
	if err != nil {
		return false, err
	}
	if err := r.validateWithRetries(ctx, mode); err != nil {
		return false, err
	}

	// Narration always runs so the user gets a PR description even when
	// validation failed.
	if err := r.narrate(ctx); err != nil {
		return false, err
	}

	push, err := r.pushGate(ctx)
	if err != nil {
		return false, err
	}
	if push {
		if err := r.gitStage(ctx); err != nil {
			return false, err
		}
	}
	return false, nil
}

// publish fills the session's current stage into an event and puts it
// on the bus.
func (r *run) publish(event models.ProgressEvent) {
	if event.Stage == "" {
		event.Stage = r.sess.CurrentStage()
	}
	if event.Status == "" {
		event.Status = models.StatusRunning
	}
	r.bus.Publish(event)
}

func (r *run) publishCompleted(message string) {
	event := models.ProgressEvent{
		Stage:     r.sess.Stage,
		Status:    r.sess.Status,
		Progress:  1,
		Message:   message,
		EventType: models.EventPipelineCompleted,
	}
	if r.validation != nil {
		event.Data = map[string]any{"validation": r.validation}
	}
	r.bus.Publish(event)
}

// cleanup removes the backup snapshot and the cloned repository root.
// Best effort; the session keeps serving its terminal snapshot.
func (r *run) cleanup() {
	if root := r.sess.BackupRoot; root != "" {
		if err := fileops.CleanupBackup(root); err != nil {
			r.c.logger.Warn("Failed to remove backup", "session_id", r.sess.ID, "error", err)
		}
	}
	if r.clonedRoot != "" {
		r.c.git.Cleanup(r.clonedRoot)
	}
}
