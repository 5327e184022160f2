package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/repoai/pkg/config"
)

// fakeProvider returns scripted results per model id.
type fakeProvider struct {
	name      string
	responses map[string]string
	errs      map[string]error
	calls     []string
	// streamed, when set, overrides Complete-style scripting for Stream.
	streamed map[string][]string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Complete(_ context.Context, req Request) (*Response, error) {
	f.calls = append(f.calls, req.Model)
	if err := f.errs[req.Model]; err != nil {
		return nil, err
	}
	text, ok := f.responses[req.Model]
	if !ok {
		return nil, ErrEmptyResponse
	}
	return &Response{Text: text, Model: req.Model}, nil
}

func (f *fakeProvider) Stream(_ context.Context, req Request) (<-chan string, <-chan error) {
	f.calls = append(f.calls, req.Model)
	deltas := make(chan string, 16)
	errs := make(chan error, 1)
	go func() {
		defer close(deltas)
		defer close(errs)
		if err := f.errs[req.Model]; err != nil {
			errs <- err
			return
		}
		for _, d := range f.streamed[req.Model] {
			deltas <- d
		}
		errs <- nil
	}()
	return deltas, errs
}

func testRouter(p *fakeProvider, models ...string) *Router {
	routes := config.NewModelRouteRegistry(map[config.Role]config.ModelRoute{
		config.RoleCoder: {Models: models, Temperature: 0.1, MaxTokens: 1024},
	})
	return NewRouter(routes, map[string]Provider{p.name: p})
}

func TestCompleteTextFallsThroughRoute(t *testing.T) {
	p := &fakeProvider{
		name:      "openai",
		responses: map[string]string{"model-b": "hello"},
		errs:      map[string]error{"model-a": errors.New("boom")},
	}
	router := testRouter(p, "model-a", "model-b")

	text, meta, err := router.CompleteText(context.Background(), config.RoleCoder, "sys", "hi", nil)

	require.NoError(t, err)
	assert.Equal(t, "hello", text)
	assert.Equal(t, "model-b", meta.Model)
	assert.Equal(t, []string{"model-a", "model-b"}, p.calls)
}

func TestCompleteTextExhaustsRoute(t *testing.T) {
	p := &fakeProvider{
		name: "openai",
		errs: map[string]error{
			"model-a": errors.New("bad request"),
			"model-b": errors.New("worse request"),
		},
	}
	router := testRouter(p, "model-a", "model-b")

	_, _, err := router.CompleteText(context.Background(), config.RoleCoder, "", "hi", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRouteExhausted)
	assert.Contains(t, err.Error(), "worse request")
}

func TestCompleteTextNoFallbackOption(t *testing.T) {
	p := &fakeProvider{
		name: "openai",
		errs: map[string]error{"model-a": errors.New("boom")},
		responses: map[string]string{
			"model-b": "never reached",
		},
	}
	router := testRouter(p, "model-a", "model-b")

	_, _, err := router.CompleteText(context.Background(), config.RoleCoder, "", "hi", &CallOptions{NoFallback: true})

	require.Error(t, err)
	assert.Equal(t, []string{"model-a"}, p.calls)
}

func TestCompleteJSONValidatesSchema(t *testing.T) {
	schema := MustCompileSchema("test.json", []byte(`{
		"type": "object",
		"required": ["job_id"],
		"properties": {"job_id": {"type": "string"}}
	}`))

	p := &fakeProvider{
		name: "openai",
		responses: map[string]string{
			"model-a": `{"wrong_field": 1}`,
			"model-b": "```json\n{\"job_id\": \"job-42\"}\n```",
		},
	}
	router := testRouter(p, "model-a", "model-b")

	var out struct {
		JobID string `json:"job_id"`
	}
	meta, err := router.CompleteJSON(context.Background(), config.RoleCoder, "", "go", schema, &out)

	require.NoError(t, err)
	assert.Equal(t, "job-42", out.JobID)
	// Schema-invalid output from model-a fails that attempt and falls back.
	assert.Equal(t, "model-b", meta.Model)
}

func TestTokenLimitStopsFallback(t *testing.T) {
	p := &fakeProvider{
		name: "openai",
		errs: map[string]error{"model-a": errors.New("maximum context length exceeded")},
		responses: map[string]string{
			"model-b": "should not be reached",
		},
	}
	router := testRouter(p, "model-a", "model-b")

	_, _, err := router.CompleteText(context.Background(), config.RoleCoder, "", "hi", nil)

	require.Error(t, err)
	assert.True(t, IsTokenLimit(err))
	assert.Equal(t, []string{"model-a"}, p.calls)
}

func TestStreamJSONEmitsRepairedSnapshots(t *testing.T) {
	p := &fakeProvider{
		name: "openai",
		streamed: map[string][]string{
			"model-a": {
				`{"plan_id": "p1", "changes": [`,
				`{"file_path": "src/A.java", "change_type": "created"}`,
				`, {"file_path": "src/B.java", "change_type": "modified"}]}`,
			},
		},
	}
	router := testRouter(p, "model-a")

	var snapshots []string
	final, meta, err := router.StreamJSON(context.Background(), config.RoleCoder, "", "go", nil, func(raw json.RawMessage) {
		snapshots = append(snapshots, string(raw))
	})

	require.NoError(t, err)
	assert.Equal(t, "model-a", meta.Model)
	assert.NotEmpty(t, snapshots)
	for _, s := range snapshots {
		assert.True(t, json.Valid([]byte(s)), "snapshot must be valid JSON: %s", s)
	}

	var doc struct {
		Changes []struct {
			FilePath string `json:"file_path"`
		} `json:"changes"`
	}
	require.NoError(t, json.Unmarshal(final, &doc))
	require.Len(t, doc.Changes, 2)
	assert.Equal(t, "src/B.java", doc.Changes[1].FilePath)
}

func TestIsTokenLimit(t *testing.T) {
	assert.True(t, IsTokenLimit(errors.New("openai: context_length_exceeded")))
	assert.True(t, IsTokenLimit(errors.New("prompt is too long: 210000 tokens")))
	assert.False(t, IsTokenLimit(errors.New("rate limit exceeded")))
	assert.False(t, IsTokenLimit(nil))
}
