// Package stream adapts the Transformer LLM's streamed file-by-file
// output into an ordered sequence of individual code changes. Plan
// steps are batched per call; batches halve adaptively when the model
// hits its token limit.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/codeready-toolchain/repoai/pkg/agent"
	"github.com/codeready-toolchain/repoai/pkg/config"
	"github.com/codeready-toolchain/repoai/pkg/llm"
	"github.com/codeready-toolchain/repoai/pkg/models"
)

// enlargedMaxTokens is the output budget for the single-batch sentinel
// ("all steps at once").
const enlargedMaxTokens = 16384

// Emission is one transformed change plus the metadata the pipeline
// needs for progress reporting.
type Emission struct {
	Change      models.CodeChange
	Batch       int
	StepNumbers []int
}

// Adapter drives the streaming transformation.
type Adapter struct {
	caller    llm.Caller
	batchSize int
	logger    *slog.Logger
}

// NewAdapter creates an adapter with the given batch size. Size zero
// falls back to the default of 4; negative values and sizes covering
// the whole plan select the single-batch path.
func NewAdapter(caller llm.Caller, batchSize int) *Adapter {
	if batchSize == 0 {
		batchSize = 4
	}
	return &Adapter{
		caller:    caller,
		batchSize: batchSize,
		logger:    slog.With("component", "stream_adapter"),
	}
}

// partialChanges mirrors the transformer's output document for
// incremental decoding of repaired snapshots.
type partialChanges struct {
	Changes []models.CodeChange `json:"changes"`
}

// Transform streams the plan through the transformer. Emissions arrive
// on the first channel in generation order; the caller must apply each
// change before receiving the next. After the emission channel closes,
// the error channel yields exactly one value: nil on success.
func (a *Adapter) Transform(ctx context.Context, spec models.JobSpec, plan models.RefactorPlan, fileContexts map[string]string, publish func(models.ProgressEvent)) (<-chan Emission, <-chan error) {
	out := make(chan Emission)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		batches := partition(plan.Steps, a.batchSize)
		opts := &llm.CallOptions{}
		if len(batches) == 1 && (a.batchSize <= 0 || a.batchSize >= len(plan.Steps)) {
			opts.MaxTokens = enlargedMaxTokens
		}

		seen := make(map[string]bool)
		for i, batch := range batches {
			if err := a.runBatch(ctx, spec, batch, i+1, fileContexts, opts, seen, out, publish); err != nil {
				errs <- fmt.Errorf("transform batch %d: %w", i+1, err)
				return
			}
		}
		errs <- nil
	}()

	return out, errs
}

// runBatch streams one batch, halving it on token-limit errors until
// size one, then propagating.
func (a *Adapter) runBatch(ctx context.Context, spec models.JobSpec, steps []models.PlanStep, ordinal int, fileContexts map[string]string, opts *llm.CallOptions, seen map[string]bool, out chan<- Emission, publish func(models.ProgressEvent)) error {
	numbers := stepNumbers(steps)
	publish(models.ProgressEvent{
		Stage:     models.StageTransformation,
		Status:    models.StatusRunning,
		EventType: models.EventBatchStarted,
		Message:   fmt.Sprintf("Transforming steps %v", numbers),
		Data:      map[string]any{"steps": numbers, "actions": stepActions(steps)},
	})

	emitted, err := a.streamBatch(ctx, spec, steps, ordinal, fileContexts, opts, seen, out)
	if err != nil {
		if llm.IsTokenLimit(err) && len(steps) > 1 {
			half := len(steps) / 2
			a.logger.Warn("Token limit hit, halving batch",
				"steps", len(steps), "first_half", half, "error", err)
			if err := a.runBatch(ctx, spec, steps[:half], ordinal, fileContexts, opts, seen, out, publish); err != nil {
				return err
			}
			return a.runBatch(ctx, spec, steps[half:], ordinal, fileContexts, opts, seen, out, publish)
		}
		return err
	}

	publish(models.ProgressEvent{
		Stage:     models.StageTransformation,
		Status:    models.StatusRunning,
		EventType: models.EventBatchCompleted,
		Message:   fmt.Sprintf("Completed steps %v (%d files)", numbers, len(emitted)),
		Data:      map[string]any{"steps": numbers, "files": emitted},
	})
	return nil
}

// streamBatch performs one streamed LLM call and emits each newly
// completed change. A change inside a snapshot counts as complete once
// a later change has started behind it; the final document flushes the
// rest.
func (a *Adapter) streamBatch(ctx context.Context, spec models.JobSpec, steps []models.PlanStep, ordinal int, fileContexts map[string]string, opts *llm.CallOptions, seen map[string]bool, out chan<- Emission) ([]string, error) {
	numbers := stepNumbers(steps)
	var emitted []string

	emit := func(change models.CodeChange) error {
		if change.FilePath == "" || seen[change.FilePath] {
			return nil
		}
		seen[change.FilePath] = true
		if err := agent.FinalizeChange(&change); err != nil {
			return err
		}
		select {
		case out <- Emission{Change: change, Batch: ordinal, StepNumbers: numbers}:
			emitted = append(emitted, change.FilePath)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	var emitErr error
	onSnapshot := func(snapshot json.RawMessage) {
		if emitErr != nil {
			return
		}
		var partial partialChanges
		if err := json.Unmarshal(snapshot, &partial); err != nil {
			return
		}
		// The last element may still be mid-generation.
		for i := 0; i+1 < len(partial.Changes); i++ {
			if err := emit(partial.Changes[i]); err != nil {
				emitErr = err
				return
			}
		}
	}

	user := agent.BuildBatchPrompt(spec, steps, fileContexts)
	final, _, err := a.caller.StreamJSON(ctx, config.RoleCoder, agent.TransformerSystemPrompt, user, opts, onSnapshot)
	if err != nil {
		return emitted, err
	}
	if emitErr != nil {
		return emitted, emitErr
	}

	var full partialChanges
	if err := json.Unmarshal(final, &full); err != nil {
		return emitted, fmt.Errorf("%w: %v", llm.ErrInvalidJSON, err)
	}
	for _, change := range full.Changes {
		if err := emit(change); err != nil {
			return emitted, err
		}
	}
	return emitted, nil
}

func partition(steps []models.PlanStep, size int) [][]models.PlanStep {
	if size <= 0 || size >= len(steps) {
		return [][]models.PlanStep{steps}
	}
	var out [][]models.PlanStep
	for start := 0; start < len(steps); start += size {
		end := start + size
		if end > len(steps) {
			end = len(steps)
		}
		out = append(out, steps[start:end])
	}
	return out
}

func stepNumbers(steps []models.PlanStep) []int {
	out := make([]int, len(steps))
	for i, s := range steps {
		out[i] = s.StepNumber
	}
	return out
}

func stepActions(steps []models.PlanStep) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.Action
	}
	return out
}
