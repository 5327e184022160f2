// Package decision implements the orchestrator decision engine: it
// interprets free-form user replies at confirmation gates, chooses
// retry strategies after failed validations, and classifies incoming
// prompts as refactoring requests or conversation.
package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/codeready-toolchain/repoai/pkg/config"
	"github.com/codeready-toolchain/repoai/pkg/llm"
	"github.com/codeready-toolchain/repoai/pkg/models"
)

// decisionMaxTokens keeps orchestrator calls cheap; decisions are
// short structured documents, not prose.
const decisionMaxTokens = 1024

// clarifyThreshold is the minimum confidence for acting on a plan or
// push interpretation. Below it the action degrades to clarify and the
// session stays in its awaiting state.
const clarifyThreshold = 0.7

var decisionSchema = llm.MustCompileSchema("decision.json", []byte(`{
	"type": "object",
	"properties": {
		"action": {"type": "string"},
		"reasoning": {"type": "string"},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1},
		"modifications": {"type": "string"},
		"next_step": {"type": "string"},
		"estimated_success_probability": {"type": "number"}
	},
	"required": ["action", "reasoning", "confidence"]
}`))

// Engine issues orchestrator-role calls and normalizes their output
// into OrchestratorDecision values. It never returns an error: failed
// calls degrade to synthetic clarify or abort decisions so the
// pipeline always has a course of action.
type Engine struct {
	caller llm.Caller
	logger *slog.Logger
}

func NewEngine(caller llm.Caller) *Engine {
	return &Engine{
		caller: caller,
		logger: slog.With("component", "decision_engine"),
	}
}

// InterpretPlanConfirmation maps the user's reply to the plan gate
// onto approve, modify, abort or clarify.
func (e *Engine) InterpretPlanConfirmation(ctx context.Context, userReply, planSummary string) models.OrchestratorDecision {
	d := e.decide(ctx, buildPlanUser(userReply, planSummary), models.ActionClarify, 0)
	return clampInterpretation(d, models.ActionApprove, models.ActionModify, models.ActionAbort)
}

// InterpretPushConfirmation maps the user's reply to the push gate
// onto approve, cancel or clarify. Branch and commit overrides ride in
// the decision's Modifications field.
func (e *Engine) InterpretPushConfirmation(ctx context.Context, userReply, pushSummary string) models.OrchestratorDecision {
	d := e.decide(ctx, buildPushUser(userReply, pushSummary), models.ActionClarify, 0)
	return clampInterpretation(d, models.ActionApprove, models.ActionCancel)
}

// ValidationMode is the user's choice at the validation gate.
type ValidationMode string

const (
	ModeFull        ValidationMode = "full"
	ModeCompileOnly ValidationMode = "compile_only"
	ModeSkip        ValidationMode = "skip"
)

// InterpretValidationMode resolves the user's reply to one of the
// three validation modes, defaulting to full on anything unparseable.
func (e *Engine) InterpretValidationMode(ctx context.Context, userReply string) ValidationMode {
	d := e.decide(ctx, buildModeUser(userReply), models.ActionApprove, 0)
	switch ValidationMode(strings.TrimSpace(strings.ToLower(d.Modifications))) {
	case ModeCompileOnly:
		return ModeCompileOnly
	case ModeSkip:
		return ModeSkip
	default:
		return ModeFull
	}
}

// ChooseRetryStrategy decides how to react to a failed validation:
// retry (targeted fix), modify (replan), abort, or escalate. The
// decision is streamed so onReasoning can forward the model's analysis
// as progress events while it is being generated.
func (e *Engine) ChooseRetryStrategy(ctx context.Context, errorDigest string, attempt, maxRetries int, history []string, onReasoning func(string)) models.OrchestratorDecision {
	user := buildRetryUser(errorDigest, attempt, maxRetries, history)
	opts := &llm.CallOptions{MaxTokens: decisionMaxTokens}

	text, meta, err := e.caller.StreamText(ctx, config.RoleOrchestrator, orchestratorSystemPrompt, user, opts, onReasoning)
	if err != nil {
		e.logger.Error("Retry strategy call failed", "error", err)
		return synthetic(models.ActionAbort, 0.5, err)
	}

	var d models.OrchestratorDecision
	if err := json.Unmarshal([]byte(llm.ExtractJSON(text)), &d); err != nil {
		e.logger.Error("Retry strategy output unparseable", "error", err, "model", meta.Model)
		return synthetic(models.ActionAbort, 0.5, err)
	}

	switch d.Action {
	case models.ActionRetry, models.ActionModify, models.ActionAbort, models.ActionEscalate:
	default:
		d.Reasoning = fmt.Sprintf("unsupported retry action %q: %s", d.Action, d.Reasoning)
		d.Action = models.ActionAbort
	}
	// Retrying beyond the budget is never allowed.
	if attempt > maxRetries && (d.Action == models.ActionRetry || d.Action == models.ActionModify) {
		d.Action = models.ActionEscalate
		d.Reasoning = "retry budget exhausted: " + d.Reasoning
	}
	return d
}

// decide issues one structured orchestrator call, degrading to a
// synthetic decision with the given fallback action on any failure.
func (e *Engine) decide(ctx context.Context, user string, fallback models.DecisionAction, fallbackConfidence float64) models.OrchestratorDecision {
	var d models.OrchestratorDecision
	meta, err := e.caller.CompleteJSON(ctx, config.RoleOrchestrator, orchestratorSystemPrompt, user, decisionSchema, &d)
	if err != nil {
		e.logger.Error("Orchestrator call failed", "error", err)
		return synthetic(fallback, fallbackConfidence, err)
	}
	e.logger.Debug("Orchestrator decision",
		"action", d.Action, "confidence", d.Confidence, "model", meta.Model)
	return d
}

// clampInterpretation restricts a gate interpretation to its allowed
// actions and degrades low-confidence results to clarify.
func clampInterpretation(d models.OrchestratorDecision, allowed ...models.DecisionAction) models.OrchestratorDecision {
	if d.Action != models.ActionClarify {
		ok := false
		for _, a := range allowed {
			if d.Action == a {
				ok = true
				break
			}
		}
		if !ok {
			d.Reasoning = fmt.Sprintf("unsupported action %q: %s", d.Action, d.Reasoning)
			d.Action = models.ActionClarify
		}
	}
	if d.Confidence < clarifyThreshold && d.Action != models.ActionAbort && d.Action != models.ActionCancel {
		d.Action = models.ActionClarify
	}
	return d
}

func synthetic(action models.DecisionAction, confidence float64, err error) models.OrchestratorDecision {
	return models.OrchestratorDecision{
		Action:     action,
		Reasoning:  fmt.Sprintf("decision engine failure: %v", err),
		Confidence: confidence,
	}
}
