package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/codeready-toolchain/repoai/pkg/config"
	"github.com/codeready-toolchain/repoai/pkg/llm"
	"github.com/codeready-toolchain/repoai/pkg/models"
)

// Intake turns the raw user prompt into a JobSpec.
type Intake struct {
	caller llm.Caller
	logger *slog.Logger
}

// NewIntake creates the intake runner.
func NewIntake(caller llm.Caller) *Intake {
	return &Intake{
		caller: caller,
		logger: slog.With("component", "intake_agent"),
	}
}

// Run produces a validated JobSpec for the prompt. Host-side tools fill
// the job id and normalize the scope after the model responds.
func (a *Intake) Run(ctx context.Context, userPrompt, codeContext string) (*models.JobSpec, error) {
	var spec models.JobSpec
	meta, err := a.caller.CompleteJSON(ctx, config.RoleIntake,
		intakeSystemPrompt, buildIntakeUser(userPrompt, codeContext), jobSpecSchema, &spec)
	if err != nil {
		return nil, fmt.Errorf("intake agent: %w", err)
	}

	if spec.JobID == "" {
		spec.JobID = GenerateJobID()
	}
	if spec.Scope.SourceLanguage == "" {
		spec.Scope.SourceLanguage = "java"
	}
	if len(spec.Scope.TargetFiles) == 0 {
		spec.Scope.TargetFiles = SuggestGlobs(spec.Intent)
	}
	if len(spec.Scope.Excludes) == 0 {
		spec.Scope.Excludes = StandardExclusions()
	}
	for _, module := range spec.Scope.TargetModules {
		if !ValidPackageName(spec.Scope.SourceLanguage, module) {
			return nil, fmt.Errorf("intake agent: invalid target module name %q", module)
		}
	}

	a.logger.Info("Intake complete", "job_id", spec.JobID, "intent", spec.Intent,
		"model", meta.Model, "tokens_out", meta.Usage.OutputTokens)
	return &spec, nil
}
