package decision

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/repoai/pkg/config"
	"github.com/codeready-toolchain/repoai/pkg/llm"
	"github.com/codeready-toolchain/repoai/pkg/models"
)

type fakeCaller struct {
	response string
	err      error
	calls    int
	lastUser string
}

func (f *fakeCaller) CompleteText(ctx context.Context, role config.Role, system, user string, opts *llm.CallOptions) (string, llm.CallMeta, error) {
	f.calls++
	f.lastUser = user
	return f.response, llm.CallMeta{Model: "fake"}, f.err
}

func (f *fakeCaller) CompleteJSON(ctx context.Context, role config.Role, system, user string, schema *jsonschema.Schema, out any) (llm.CallMeta, error) {
	f.calls++
	f.lastUser = user
	if f.err != nil {
		return llm.CallMeta{}, f.err
	}
	return llm.CallMeta{Model: "fake"}, json.Unmarshal([]byte(f.response), out)
}

func (f *fakeCaller) StreamText(ctx context.Context, role config.Role, system, user string, opts *llm.CallOptions, onDelta func(string)) (string, llm.CallMeta, error) {
	f.calls++
	f.lastUser = user
	if f.err != nil {
		return "", llm.CallMeta{}, f.err
	}
	if onDelta != nil {
		for _, chunk := range strings.SplitAfter(f.response, " ") {
			onDelta(chunk)
		}
	}
	return f.response, llm.CallMeta{Model: "fake"}, nil
}

func (f *fakeCaller) StreamJSON(ctx context.Context, role config.Role, system, user string, opts *llm.CallOptions, onSnapshot func(json.RawMessage)) (json.RawMessage, llm.CallMeta, error) {
	f.calls++
	return json.RawMessage(f.response), llm.CallMeta{Model: "fake"}, f.err
}

func TestClassifyVocabularyFastPath(t *testing.T) {
	caller := &fakeCaller{}
	got := NewEngine(caller).ClassifyInput(context.Background(), "please refactor the UserService")
	assert.True(t, got.IsRequest)
	assert.Zero(t, caller.calls, "fast path never calls the model")
}

func TestClassifyGreeting(t *testing.T) {
	caller := &fakeCaller{}
	engine := NewEngine(caller)

	for _, text := range []string{"hi", "Hello there!", "good morning"} {
		got := engine.ClassifyInput(context.Background(), text)
		assert.False(t, got.IsRequest, "%q", text)
		assert.NotEmpty(t, got.Reply)
	}
	assert.Zero(t, caller.calls)
}

func TestClassifyCapabilityAndThanks(t *testing.T) {
	caller := &fakeCaller{}
	engine := NewEngine(caller)

	got := engine.ClassifyInput(context.Background(), "what can you do for me exactly?")
	assert.False(t, got.IsRequest)
	got = engine.ClassifyInput(context.Background(), "thanks, that was great")
	assert.False(t, got.IsRequest)
	assert.Zero(t, caller.calls)
}

func TestClassifyLongTextIsAlwaysRequest(t *testing.T) {
	caller := &fakeCaller{}
	text := "I would like you to look at the service layer and make it nicer somehow please thank"
	got := NewEngine(caller).ClassifyInput(context.Background(), text)
	assert.True(t, got.IsRequest)
	assert.Zero(t, caller.calls)
}

func TestClassifyShortAmbiguousConsultsModel(t *testing.T) {
	caller := &fakeCaller{response: `{"is_refactor_request": false, "reply": "Happy to help once you name a change."}`}
	got := NewEngine(caller).ClassifyInput(context.Background(), "make it nicer please")
	assert.False(t, got.IsRequest)
	assert.Equal(t, "Happy to help once you name a change.", got.Reply)
	assert.Equal(t, 1, caller.calls)
}

func TestClassifyModelFailureDefaultsToRequest(t *testing.T) {
	caller := &fakeCaller{err: errors.New("route exhausted")}
	got := NewEngine(caller).ClassifyInput(context.Background(), "make it nicer please")
	assert.True(t, got.IsRequest)
}

func TestInterpretPlanConfirmation(t *testing.T) {
	tests := []struct {
		name     string
		response string
		err      error
		want     models.DecisionAction
	}{
		{
			name:     "confident approval",
			response: `{"action": "approve", "reasoning": "user said looks good", "confidence": 0.95}`,
			want:     models.ActionApprove,
		},
		{
			name:     "low confidence degrades to clarify",
			response: `{"action": "approve", "reasoning": "maybe", "confidence": 0.4}`,
			want:     models.ActionClarify,
		},
		{
			name:     "unsupported action degrades to clarify",
			response: `{"action": "cancel", "reasoning": "?", "confidence": 0.9}`,
			want:     models.ActionClarify,
		},
		{
			name: "caller failure yields synthetic clarify",
			err:  errors.New("route exhausted"),
			want: models.ActionClarify,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caller := &fakeCaller{response: tt.response, err: tt.err}
			d := NewEngine(caller).InterpretPlanConfirmation(context.Background(), "reply", "plan summary")
			assert.Equal(t, tt.want, d.Action)
			if tt.err != nil {
				assert.Zero(t, d.Confidence)
				assert.Contains(t, d.Reasoning, "route exhausted")
			}
		})
	}
}

func TestInterpretPlanModifyCarriesInstructions(t *testing.T) {
	caller := &fakeCaller{response: `{"action": "modify", "reasoning": "wants caching", "confidence": 0.9,
		"modifications": "also add a Redis-backed cache"}`}
	d := NewEngine(caller).InterpretPlanConfirmation(context.Background(), "looks good but also add a cache using Redis", "plan")
	assert.Equal(t, models.ActionModify, d.Action)
	assert.Contains(t, d.Modifications, "Redis")
	assert.Contains(t, caller.lastUser, "looks good but also add a cache")
}

func TestInterpretPushConfirmationOverrides(t *testing.T) {
	caller := &fakeCaller{response: `{"action": "approve", "reasoning": "go", "confidence": 0.9,
		"modifications": "branch: feature/caching\ncommit_message: Add Redis caching"}`}
	d := NewEngine(caller).InterpretPushConfirmation(context.Background(), "push to feature/caching", "summary")
	assert.Equal(t, models.ActionApprove, d.Action)
	assert.Equal(t, "feature/caching", d.BranchOverride())
	assert.Equal(t, "Add Redis caching", d.CommitMessageOverride())
}

func TestInterpretPushClampsActions(t *testing.T) {
	caller := &fakeCaller{response: `{"action": "modify", "reasoning": "?", "confidence": 0.9}`}
	d := NewEngine(caller).InterpretPushConfirmation(context.Background(), "hmm", "summary")
	assert.Equal(t, models.ActionClarify, d.Action)

	caller = &fakeCaller{response: `{"action": "cancel", "reasoning": "user declined", "confidence": 0.9}`}
	d = NewEngine(caller).InterpretPushConfirmation(context.Background(), "no, stop", "summary")
	assert.Equal(t, models.ActionCancel, d.Action)
}

func TestInterpretValidationMode(t *testing.T) {
	tests := []struct {
		name     string
		response string
		err      error
		want     ValidationMode
	}{
		{"compile only", `{"action": "approve", "reasoning": "r", "confidence": 1, "modifications": "compile_only"}`, nil, ModeCompileOnly},
		{"skip", `{"action": "approve", "reasoning": "r", "confidence": 1, "modifications": "Skip"}`, nil, ModeSkip},
		{"garbage defaults to full", `{"action": "approve", "reasoning": "r", "confidence": 1, "modifications": "whatever"}`, nil, ModeFull},
		{"failure defaults to full", "", errors.New("boom"), ModeFull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caller := &fakeCaller{response: tt.response, err: tt.err}
			assert.Equal(t, tt.want, NewEngine(caller).InterpretValidationMode(context.Background(), "reply"))
		})
	}
}

func TestChooseRetryStrategyStreamsReasoning(t *testing.T) {
	caller := &fakeCaller{response: `The compile error is a missing import.
{"action": "retry", "reasoning": "add the missing import", "confidence": 0.8,
 "modifications": "add org.springframework.stereotype.Service import"}`}

	var streamed strings.Builder
	d := NewEngine(caller).ChooseRetryStrategy(context.Background(), "cannot find symbol Service", 1, 3, nil,
		func(delta string) { streamed.WriteString(delta) })

	assert.Equal(t, models.ActionRetry, d.Action)
	assert.Contains(t, d.Modifications, "stereotype.Service")
	assert.Contains(t, streamed.String(), "missing import", "reasoning forwarded as it streams")
}

func TestChooseRetryStrategyClampsAndEscalates(t *testing.T) {
	caller := &fakeCaller{response: `{"action": "approve", "reasoning": "?", "confidence": 0.9}`}
	d := NewEngine(caller).ChooseRetryStrategy(context.Background(), "digest", 1, 3, nil, nil)
	assert.Equal(t, models.ActionAbort, d.Action, "unsupported action degrades to abort")

	caller = &fakeCaller{response: `{"action": "retry", "reasoning": "one more", "confidence": 0.9}`}
	d = NewEngine(caller).ChooseRetryStrategy(context.Background(), "digest", 4, 3, nil, nil)
	assert.Equal(t, models.ActionEscalate, d.Action, "no retries left")

	caller = &fakeCaller{response: `{"action": "retry", "reasoning": "last one", "confidence": 0.9}`}
	d = NewEngine(caller).ChooseRetryStrategy(context.Background(), "digest", 3, 3, nil, nil)
	assert.Equal(t, models.ActionRetry, d.Action, "final attempt within budget")
}

func TestChooseRetryStrategyFailure(t *testing.T) {
	caller := &fakeCaller{err: errors.New("route exhausted")}
	d := NewEngine(caller).ChooseRetryStrategy(context.Background(), "digest", 1, 3, nil, nil)
	require.Equal(t, models.ActionAbort, d.Action)
	assert.InDelta(t, 0.5, d.Confidence, 0.001)
	assert.Contains(t, d.Reasoning, "route exhausted")
}

func TestRetryPromptEmbedsHistory(t *testing.T) {
	caller := &fakeCaller{response: `{"action": "abort", "reasoning": "r", "confidence": 1}`}
	NewEngine(caller).ChooseRetryStrategy(context.Background(), "digest",
		2, 3, []string{"retry: added import, still failing"}, nil)
	assert.Contains(t, caller.lastUser, "attempt 2 of 3")
	assert.Contains(t, caller.lastUser, "still failing")
}
