package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/codeready-toolchain/repoai/pkg/agent"
	"github.com/codeready-toolchain/repoai/pkg/build"
	"github.com/codeready-toolchain/repoai/pkg/decision"
	"github.com/codeready-toolchain/repoai/pkg/fileops"
	"github.com/codeready-toolchain/repoai/pkg/gitops"
	"github.com/codeready-toolchain/repoai/pkg/models"
	"github.com/codeready-toolchain/repoai/pkg/session"
	"github.com/codeready-toolchain/repoai/pkg/stream"
)

// regenerateRe in a commit override asks for a fresh narration instead
// of a literal message.
var regenerateRe = regexp.MustCompile(`(?i)\b(regenerate|rewrite|improve|better)\b`)

// preflight classifies the prompt; conversational input terminates the
// session with a single friendly event and no repository access.
func (r *run) preflight(ctx context.Context) bool {
	cls := r.c.engine.ClassifyInput(ctx, r.sess.UserPrompt)
	if cls.IsRequest {
		return false
	}
	r.sess.SetStage(models.StageComplete)
	r.sess.SetStatus(models.StatusCompleted)
	r.bus.Publish(models.ProgressEvent{
		Stage:    models.StageComplete,
		Status:   models.StatusCompleted,
		Progress: 1,
		Message:  cls.Reply,
	})
	return true
}

func (r *run) clone(ctx context.Context) error {
	if r.sess.RepoURL == "" || r.sess.RepoRoot != "" {
		return nil
	}
	root, err := r.c.git.Clone(ctx, r.sess.RepoURL)
	if err != nil {
		return fmt.Errorf("clone repository: %w", err)
	}
	r.clonedRoot = root
	r.sess.SetRepoRoot(root)
	r.publish(models.ProgressEvent{
		EventType: models.EventGitOperation,
		Progress:  0.05,
		Message:   "Repository cloned",
		Data:      map[string]any{"repo_url": r.sess.RepoURL},
	})
	return nil
}

func (r *run) intake(ctx context.Context) error {
	r.sess.SetStage(models.StageIntake)
	r.sess.SetStatus(models.StatusRunning)
	r.publish(models.ProgressEvent{Progress: 0.05, Message: "Analyzing request"})

	spec, err := agent.NewIntake(r.c.caller).Run(ctx, r.sess.UserPrompt, "")
	if err != nil {
		return fmt.Errorf("intake: %w", err)
	}
	r.spec = *spec
	r.sess.SetJobSpec(spec)
	r.publish(models.ProgressEvent{
		Progress: 0.15,
		Message:  fmt.Sprintf("Job understood: %s", spec.Intent),
		Data:     map[string]any{"job_id": spec.JobID, "intent": spec.Intent},
	})
	return nil
}

// planAndConfirm produces the plan and, in interactive-detailed mode,
// holds the session at the plan gate until the user approves. A modify
// reply replans with the user's instructions appended as a critical
// requirement.
func (r *run) planAndConfirm(ctx context.Context, spec models.JobSpec) error {
	for {
		r.sess.SetStage(models.StagePlanning)
		r.publish(models.ProgressEvent{Progress: 0.2, Message: "Planning refactoring steps"})

		plan, err := agent.NewPlanner(r.c.caller).Run(ctx, spec, r.sess.RepoRoot)
		if err != nil {
			return fmt.Errorf("planning: %w", err)
		}
		r.spec = spec
		r.plan = plan
		r.sess.SetPlan(plan)
		r.publish(models.ProgressEvent{
			Progress: 0.25,
			Message:  fmt.Sprintf("Plan ready: %d steps, %s risk", len(plan.Steps), plan.RiskAssessment.OverallRisk),
			Data:     planData(plan),
		})

		if !r.sess.Mode.Interactive() {
			return nil
		}
		d, err := r.confirmPlan(ctx, plan)
		if err != nil {
			return err
		}
		switch d.Action {
		case models.ActionApprove:
			return nil
		case models.ActionModify:
			spec = r.amendedSpec(spec, d.Modifications)
		default:
			return errCancelled
		}
	}
}

// confirmPlan blocks at the plan gate, re-publishing the confirmation
// request after each clarify round.
func (r *run) confirmPlan(ctx context.Context, plan *models.RefactorPlan) (models.OrchestratorDecision, error) {
	summary := summarizePlan(plan)
	message := "Review the refactoring plan"
	for {
		r.sess.SetStage(models.StageAwaitingPlanConfirm)
		r.sess.SetAwaiting(models.ConfirmationPlan, planData(plan))
		r.publish(models.ProgressEvent{
			Status:               models.StatusPaused,
			EventType:            models.EventPlanReady,
			Message:              message,
			RequiresConfirmation: true,
			ConfirmationType:     models.ConfirmationPlan,
			Data:                 planData(plan),
		})

		payload, err := r.await(ctx)
		if err != nil {
			return models.OrchestratorDecision{}, err
		}
		d := r.planDecision(ctx, payload, summary)
		if d.Action == models.ActionClarify {
			message = "Please clarify: reply approve, modify with instructions, or abort"
			continue
		}
		return d, nil
	}
}

func (r *run) planDecision(ctx context.Context, p session.ConfirmPayload, summary string) models.OrchestratorDecision {
	if p.Structured() {
		switch {
		case p.Modifications != "":
			return models.OrchestratorDecision{Action: models.ActionModify, Modifications: p.Modifications, Confidence: 1}
		case p.Approved:
			return models.OrchestratorDecision{Action: models.ActionApprove, Confidence: 1}
		default:
			return models.OrchestratorDecision{Action: models.ActionAbort, Confidence: 1}
		}
	}
	return r.c.engine.InterpretPlanConfirmation(ctx, p.UserResponse, summary)
}

// amendedSpec appends the modification directive and, when present, a
// truncated digest of the previous validation errors.
func (r *run) amendedSpec(spec models.JobSpec, instructions string) models.JobSpec {
	extra := []string{"CRITICAL: " + instructions}
	if r.validation != nil {
		if digest := r.validation.ErrorDigest(); len(digest) > 0 {
			extra = append(extra, "Previous validation errors: "+truncate(strings.Join(digest, "; "), 500))
		}
	}
	return spec.WithRequirements(extra...)
}

// transform streams the plan through the transformer, applying each
// change as it arrives. The backup created on the first pass is reused
// across retries so a restore reverts to the pre-change state.
func (r *run) transform(ctx context.Context) error {
	r.sess.SetStage(models.StageTransformation)
	if r.sess.BackupRoot == "" {
		backup, err := fileops.CreateBackup(r.sess.RepoRoot)
		if err != nil {
			return fmt.Errorf("create backup: %w", err)
		}
		r.sess.SetBackupRoot(backup)
	}
	r.publish(models.ProgressEvent{Progress: 0.4, Message: fmt.Sprintf("Transforming %d steps", len(r.plan.Steps))})

	stageCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	adapter := stream.NewAdapter(r.c.caller, r.c.cfg.BatchSize)
	out, errs := adapter.Transform(stageCtx, r.spec, *r.plan, r.loadFileContexts(), r.publish)

	var applyErr error
	for em := range out {
		if applyErr != nil {
			continue
		}
		if err := fileops.Apply(em.Change, r.sess.RepoRoot, r.sess.BackupRoot); err != nil {
			// An unsafe path fails only that change; the stream continues.
			if errors.Is(err, fileops.ErrUnsafePath) {
				r.changes.FailedChanges++
				r.sess.AddWarning(fmt.Sprintf("rejected change with unsafe path %q: %v", em.Change.FilePath, err))
				r.c.logger.Warn("Rejected unsafe change path",
					"session_id", r.sess.ID, "file_path", em.Change.FilePath, "error", err)
				continue
			}
			applyErr = fmt.Errorf("apply %s: %w", em.Change.FilePath, err)
			cancel()
			continue
		}
		r.recordChange(em.Change)
	}
	if streamErr := <-errs; applyErr == nil && streamErr != nil {
		applyErr = streamErr
	}
	if applyErr != nil {
		if err := fileops.Restore(r.sess.BackupRoot, r.sess.RepoRoot); err != nil {
			r.c.logger.Warn("Restore after failed transformation failed",
				"session_id", r.sess.ID, "error", err)
		}
		return fmt.Errorf("transformation: %w", applyErr)
	}

	r.changes.PlanID = r.plan.PlanID
	r.sess.SetChanges(&r.changes)
	r.publish(models.ProgressEvent{
		Progress: 0.6,
		Message: fmt.Sprintf("Applied %d changes (+%d/-%d lines)",
			len(r.changes.Changes), r.changes.TotalAdded, r.changes.TotalRemoved),
		Data: map[string]any{"files": r.changes.Paths()},
	})
	return nil
}

// loadFileContexts reads every plan target that already exists, capped
// per file by the targeted context size.
func (r *run) loadFileContexts() map[string]string {
	limit := r.c.cfg.TargetedContextSize
	if limit <= 0 {
		limit = 32 * 1024
	}
	contexts := make(map[string]string)
	for _, step := range r.plan.Steps {
		for _, path := range step.TargetFiles {
			if _, ok := contexts[path]; ok {
				continue
			}
			data, err := os.ReadFile(filepath.Join(r.sess.RepoRoot, path))
			if err != nil {
				continue
			}
			content := string(data)
			if len(content) > limit {
				content = content[:limit]
			}
			contexts[path] = content
		}
	}
	return contexts
}

// recordChange upserts the change into the aggregate and emits the
// matching file_* event carrying the full diff.
func (r *run) recordChange(change models.CodeChange) {
	replaced := false
	for i := range r.changes.Changes {
		if r.changes.Changes[i].FilePath == change.FilePath {
			r.changes.Changes[i] = change
			replaced = true
			break
		}
	}
	if replaced {
		r.changes.Recount()
	} else {
		r.changes.Append(change)
	}

	data := map[string]any{"diff": change.Diff}
	if len(change.ImportsAdded) > 0 {
		data["imports_added"] = change.ImportsAdded
	}
	if len(change.MethodsAdded) > 0 {
		data["methods_added"] = change.MethodsAdded
	}
	if len(change.AnnotationsAdded) > 0 {
		data["annotations_added"] = change.AnnotationsAdded
	}
	r.publish(models.ProgressEvent{
		EventType: fileEventType(change.ChangeType),
		FilePath:  change.FilePath,
		Message:   fmt.Sprintf("%s %s (+%d/-%d)", pastTense(change.ChangeType), change.FilePath, change.LinesAdded, change.LinesRemoved),
		Data:      data,
	})
}

// validationGate resolves the validation mode. Outside of
// interactive-detailed mode, and on gate timeout, the answer is full.
func (r *run) validationGate(ctx context.Context) (decision.ValidationMode, error) {
	if !r.sess.Mode.Interactive() {
		return decision.ModeFull, nil
	}
	r.sess.SetStage(models.StageAwaitingValidateConfirm)
	r.sess.SetAwaiting(models.ConfirmationValidation, map[string]any{"files": r.changes.Paths()})
	r.publish(models.ProgressEvent{
		Status:               models.StatusPaused,
		EventType:            models.EventValidationReady,
		Message:              "Choose validation mode: full, compile_only, or skip",
		RequiresConfirmation: true,
		ConfirmationType:     models.ConfirmationValidation,
		Data:                 map[string]any{"files": r.changes.Paths()},
	})

	payload, err := r.await(ctx)
	if err != nil {
		if errors.Is(err, session.ErrConfirmationTimeout) {
			r.c.logger.Info("Validation gate timed out, defaulting to full", "session_id", r.sess.ID)
			return decision.ModeFull, nil
		}
		return decision.ModeFull, err
	}
	if payload.Structured() {
		switch decision.ValidationMode(payload.ValidationMode) {
		case decision.ModeCompileOnly:
			return decision.ModeCompileOnly, nil
		case decision.ModeSkip:
			return decision.ModeSkip, nil
		default:
			return decision.ModeFull, nil
		}
	}
	return r.c.engine.InterpretValidationMode(ctx, payload.UserResponse), nil
}

// validateWithRetries runs validation and the auto-fix loop. It
// returns nil even when validation ultimately fails; the terminal
// handler inspects r.validation.
func (r *run) validateWithRetries(ctx context.Context, mode decision.ValidationMode) error {
	for {
		result, err := r.validate(ctx, mode)
		if err != nil {
			return err
		}
		r.validation = result
		r.sess.SetValidation(result)

		if result.Passed {
			r.publish(models.ProgressEvent{Progress: 0.8, Message: "Validation passed"})
			return nil
		}

		digest := result.ErrorDigest()
		r.publish(models.ProgressEvent{
			EventType: models.EventValidationFailed,
			Message:   fmt.Sprintf("Validation failed (%d issues)", len(digest)),
			Data:      map[string]any{"errors": digest},
		})
		if !r.c.cfg.AutoFix || r.sess.RetryCount >= r.sess.MaxRetries {
			return nil
		}

		d := r.c.engine.ChooseRetryStrategy(ctx, strings.Join(digest, "\n"),
			r.sess.RetryCount+1, r.sess.MaxRetries, r.retryHistory,
			func(delta string) {
				r.publish(models.ProgressEvent{EventType: models.EventLLMReasoning, Message: delta})
			})

		switch d.Action {
		case models.ActionRetry:
			r.sess.IncrementRetry()
			r.sess.SetStatus(models.StatusRetrying)
			if err := r.applyFixes(ctx, d.Modifications); err != nil {
				return err
			}
			r.retryHistory = append(r.retryHistory, "retry: "+d.Reasoning)

		case models.ActionModify:
			r.sess.IncrementRetry()
			r.sess.SetStatus(models.StatusRetrying)
			if err := r.replanAndRetransform(ctx, d.Modifications); err != nil {
				return err
			}
			r.retryHistory = append(r.retryHistory, "modify: "+d.Reasoning)

		case models.ActionEscalate:
			r.sess.AddWarning("validation flagged for human review: " + d.Reasoning)
			return nil

		default: // abort
			return nil
		}
		r.sess.SetStatus(models.StatusRunning)
	}
}

// validate runs one validation round: compile, optionally tests, then
// the Validator agent annotated with the factual build results.
func (r *run) validate(ctx context.Context, mode decision.ValidationMode) (*models.ValidationResult, error) {
	r.sess.SetStage(models.StageValidation)
	r.publish(models.ProgressEvent{Progress: 0.7, Message: "Validating changes"})

	if mode == decision.ModeSkip {
		result := &models.ValidationResult{
			PlanID:            r.plan.PlanID,
			Passed:            true,
			CompilationPassed: true,
			Confidence:        models.ConfidenceMetrics{CodeSafety: 0.3, OverallChange: 0.3},
			Recommendations:   []string{"validation skipped at user request; review the diff manually"},
		}
		result.Normalize()
		return result, nil
	}

	root := r.sess.RepoRoot
	sink := func(line string) {
		r.publish(models.ProgressEvent{EventType: models.EventBuildOutput, Message: line})
	}

	var compileResult *build.Result
	info, detectErr := build.Detect(root)
	if detectErr != nil {
		compileResult = build.MissingToolResult(root)
	} else {
		var err error
		compileResult, err = r.c.driver.Compile(ctx, root, info, build.CompileOptions{SkipTests: true, Sink: sink})
		if err != nil {
			return nil, fmt.Errorf("compile: %w", err)
		}
	}

	var testRun *build.TestRunResult
	if detectErr == nil && compileResult.Success && mode == decision.ModeFull && hasTests(root) {
		var err error
		testRun, err = r.c.driver.RunTests(ctx, root, info, build.TestOptions{Sink: sink})
		if err != nil {
			return nil, fmt.Errorf("run tests: %w", err)
		}
	}

	result, err := agent.NewValidator(r.c.caller).Run(ctx, r.changes, compileSummary(compileResult), testSummary(testRun))
	if err != nil {
		return nil, fmt.Errorf("validation agent: %w", err)
	}
	annotate(result, compileResult, testRun)
	return result, nil
}

// annotate overwrites the Validator's claims with the factual build
// outputs.
func annotate(result *models.ValidationResult, compileResult *build.Result, testRun *build.TestRunResult) {
	result.CompilationPassed = compileResult.Success
	upsertCheck(result, models.ValidationCheck{
		Name:              "compilation",
		Passed:            compileResult.Success,
		Issues:            []string{},
		CompilationErrors: compileResult.Errors,
	})
	if testRun != nil {
		totals := testRun.Totals
		result.JUnitTestResults = &totals
		result.TestFailures = testRun.Failures
		upsertCheck(result, models.ValidationCheck{
			Name:   "junit_tests",
			Passed: testRun.Success,
			Issues: testFailureIssues(testRun.Failures),
		})
		// A failing test run fails the result no matter what the
		// Validator claimed.
		if !testRun.Success {
			result.Passed = false
		}
	}
	result.Normalize()
}

func upsertCheck(result *models.ValidationResult, check models.ValidationCheck) {
	for i := range result.Checks {
		if result.Checks[i].Name == check.Name {
			result.Checks[i] = check
			return
		}
	}
	result.Checks = append(result.Checks, check)
}

// applyFixes runs the targeted fix generator and applies its output.
func (r *run) applyFixes(ctx context.Context, guidance string) error {
	fixes, err := agent.NewFixer(r.c.caller).Run(ctx, r.sess.RepoRoot, r.changes, *r.validation, guidance)
	if err != nil {
		return fmt.Errorf("targeted fix: %w", err)
	}
	for _, fix := range fixes {
		if err := fileops.Apply(fix, r.sess.RepoRoot, r.sess.BackupRoot); err != nil {
			return fmt.Errorf("apply fix %s: %w", fix.FilePath, err)
		}
		r.recordChange(fix)
	}
	r.sess.SetChanges(&r.changes)
	return nil
}

// replanAndRetransform regenerates the plan with the orchestrator's
// instructions and re-runs the transformation, reusing the backup.
func (r *run) replanAndRetransform(ctx context.Context, instructions string) error {
	spec := r.amendedSpec(r.spec, instructions)
	r.sess.SetStage(models.StagePlanning)

	plan, err := agent.NewPlanner(r.c.caller).Run(ctx, spec, r.sess.RepoRoot)
	if err != nil {
		return fmt.Errorf("replanning: %w", err)
	}
	r.spec = spec
	r.plan = plan
	r.sess.SetPlan(plan)
	return r.transform(ctx)
}

func (r *run) narrate(ctx context.Context) error {
	r.sess.SetStage(models.StageNarration)
	r.publish(models.ProgressEvent{Progress: 0.85, Message: "Writing pull request description"})

	var validation models.ValidationResult
	if r.validation != nil {
		validation = *r.validation
	}
	desc, err := agent.NewNarrator(r.c.caller).Run(ctx, r.changes, validation)
	if err != nil {
		return fmt.Errorf("narration: %w", err)
	}
	r.prDesc = desc
	r.sess.SetPRDescription(desc)
	r.publish(models.ProgressEvent{
		Progress: 0.9,
		Message:  "PR description ready: " + desc.Title,
		Data:     map[string]any{"title": desc.Title, "summary": desc.Summary},
	})
	return nil
}

// pushGate resolves whether to push. Outside interactive-detailed mode
// the answer is yes; the git stage itself still requires credentials.
func (r *run) pushGate(ctx context.Context) (bool, error) {
	if !r.sess.Mode.Interactive() {
		return true, nil
	}

	data := r.pushData()
	summary := pushSummary(r.changes, r.validation, r.prDesc)
	message := "Ready to push. Approve, cancel, or adjust branch and commit message"
	for {
		r.sess.SetStage(models.StageAwaitingPushConfirm)
		r.sess.SetAwaiting(models.ConfirmationPush, data)
		r.publish(models.ProgressEvent{
			Status:               models.StatusPaused,
			EventType:            models.EventPushReady,
			Message:              message,
			RequiresConfirmation: true,
			ConfirmationType:     models.ConfirmationPush,
			Data:                 data,
		})

		payload, err := r.await(ctx)
		if err != nil {
			return false, err
		}
		d := r.pushDecision(ctx, payload, summary)
		switch d.Action {
		case models.ActionApprove:
			r.branchOverride = firstNonEmpty(payload.BranchOverride, d.BranchOverride())
			commit := firstNonEmpty(payload.CommitMessageOverride, d.CommitMessageOverride())
			if regenerateRe.MatchString(commit) {
				commit = r.regenerateCommitMessage(ctx, commit)
			}
			r.commitOverride = commit
			return true, nil
		case models.ActionCancel:
			return false, errCancelled
		default: // clarify
			message = "Please clarify: reply approve or cancel, optionally with branch and commit message overrides"
		}
	}
}

func (r *run) pushDecision(ctx context.Context, p session.ConfirmPayload, summary string) models.OrchestratorDecision {
	if p.Structured() {
		if p.Approved {
			return models.OrchestratorDecision{Action: models.ActionApprove, Confidence: 1}
		}
		return models.OrchestratorDecision{Action: models.ActionCancel, Confidence: 1}
	}
	return r.c.engine.InterpretPushConfirmation(ctx, p.UserResponse, summary)
}

// regenerateCommitMessage re-runs the Narrator when the user asked for
// a better message; its summary becomes the commit message.
func (r *run) regenerateCommitMessage(ctx context.Context, requested string) string {
	var validation models.ValidationResult
	if r.validation != nil {
		validation = *r.validation
	}
	desc, err := agent.NewNarrator(r.c.caller).Run(ctx, r.changes, validation)
	if err != nil {
		r.c.logger.Warn("Narrator re-run failed, keeping requested message",
			"session_id", r.sess.ID, "error", err)
		return requested
	}
	r.prDesc = desc
	r.sess.SetPRDescription(desc)
	return desc.Summary
}

// gitStage branches, commits and pushes. Without credentials the stage
// is skipped and the session still completes.
func (r *run) gitStage(ctx context.Context) error {
	if !r.c.git.HasCredentials() || r.sess.RepoURL == "" {
		r.c.logger.Info("No repository credentials configured, skipping push", "session_id", r.sess.ID)
		return nil
	}
	r.sess.SetStage(models.StageGitOperations)

	branch := r.branchOverride
	if branch == "" {
		branch = gitops.DefaultBranchName(r.sess.ID)
	}
	r.publish(models.ProgressEvent{
		EventType: models.EventGitOperation,
		Progress:  0.92,
		Message:   "Creating branch " + branch,
		Data:      map[string]any{"branch": branch},
	})
	if err := r.c.git.CreateBranch(ctx, r.sess.RepoRoot, branch); err != nil {
		return err
	}

	commit := r.commitOverride
	if commit == "" && r.prDesc != nil {
		commit = r.prDesc.Title
	}
	if commit == "" {
		commit = "Automated refactoring"
	}
	r.publish(models.ProgressEvent{
		EventType: models.EventGitOperation,
		Progress:  0.94,
		Message:   "Committing changes",
		Data:      map[string]any{"commit_message": commit},
	})
	if err := r.c.git.CommitAll(ctx, r.sess.RepoRoot, commit); err != nil {
		return err
	}

	r.publish(models.ProgressEvent{
		EventType: models.EventGitOperation,
		Progress:  0.96,
		Message:   "Pushing to origin",
		Data:      map[string]any{"branch": branch},
	})
	if err := r.c.git.Push(ctx, r.sess.RepoRoot, r.sess.RepoURL, branch); err != nil {
		return err
	}

	url := gitops.BranchURL(r.sess.RepoURL, branch)
	r.sess.SetBranch(branch, url)
	r.publish(models.ProgressEvent{
		EventType: models.EventBranchLink,
		Progress:  0.98,
		Message:   "Branch pushed: " + url,
		Data:      map[string]any{"branch": branch, "branch_url": url},
	})
	return nil
}

// await blocks on the confirmation channel and clears the gate.
func (r *run) await(ctx context.Context) (session.ConfirmPayload, error) {
	payload, err := r.sess.Confirmations().Await(ctx, r.c.cfg.ConfirmationTimeout)
	r.sess.ClearAwaiting()
	if errors.Is(err, session.ErrConfirmationTimeout) {
		return payload, fmt.Errorf("confirmation timeout after %s: %w", r.c.cfg.ConfirmationTimeout, err)
	}
	return payload, err
}
