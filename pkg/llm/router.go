package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/codeready-toolchain/repoai/pkg/config"
)

// CallMeta reports which model served a call and what it cost.
type CallMeta struct {
	Model     string `json:"model"`
	Provider  string `json:"provider"`
	ElapsedMS int64  `json:"elapsed_ms"`
	Usage     Usage  `json:"usage"`
}

// CallOptions override a route's per-role defaults for one call.
type CallOptions struct {
	MaxTokens   int
	Temperature *float64
	// NoFallback restricts the call to the route's first model.
	NoFallback bool
}

// Caller is the role-based calling surface agents depend on. Router is
// the production implementation; tests substitute scripted fakes.
type Caller interface {
	CompleteText(ctx context.Context, role config.Role, system, user string, opts *CallOptions) (string, CallMeta, error)
	CompleteJSON(ctx context.Context, role config.Role, system, user string, schema *jsonschema.Schema, out any) (CallMeta, error)
	StreamText(ctx context.Context, role config.Role, system, user string, opts *CallOptions, onDelta func(string)) (string, CallMeta, error)
	StreamJSON(ctx context.Context, role config.Role, system, user string, opts *CallOptions, onSnapshot func(json.RawMessage)) (json.RawMessage, CallMeta, error)
}

// Router multiplexes LLM calls over logical roles with ordered model
// fallback. Model ids are resolved to providers by name prefix.
type Router struct {
	routes    *config.ModelRouteRegistry
	providers map[string]Provider
	logger    *slog.Logger
}

// NewRouter creates a router over the given routes and providers. The
// providers map is keyed by provider name ("anthropic", "openai").
func NewRouter(routes *config.ModelRouteRegistry, providers map[string]Provider) *Router {
	return &Router{
		routes:    routes,
		providers: providers,
		logger:    slog.With("component", "llm_router"),
	}
}

// providerFor resolves a model id to a registered provider. Claude
// models route to Anthropic; everything else routes to OpenAI when
// registered, otherwise to the sole registered provider.
func (r *Router) providerFor(model string) (Provider, error) {
	name := "openai"
	if strings.HasPrefix(model, "claude") {
		name = "anthropic"
	}
	if p, ok := r.providers[name]; ok {
		return p, nil
	}
	if len(r.providers) == 1 {
		for _, p := range r.providers {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoProviderForModel, model)
}

func (r *Router) buildRequest(model string, route config.ModelRoute, system, user string, opts *CallOptions) Request {
	req := Request{
		Model:       model,
		System:      system,
		Messages:    UserMessage(user),
		Temperature: route.Temperature,
		MaxTokens:   route.MaxTokens,
	}
	if opts != nil {
		if opts.MaxTokens > 0 {
			req.MaxTokens = opts.MaxTokens
		}
		if opts.Temperature != nil {
			req.Temperature = *opts.Temperature
		}
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = 4096
	}
	return req
}

// attempt runs fn once per model in the role's route until one
// succeeds, retrying transient errors against the same model first.
func (r *Router) attempt(ctx context.Context, role config.Role, opts *CallOptions, fn func(Provider, Request) error) (CallMeta, error) {
	route, err := r.routes.Get(role)
	if err != nil {
		return CallMeta{}, err
	}
	models := route.Models
	if opts != nil && opts.NoFallback && len(models) > 1 {
		models = models[:1]
	}

	var lastErr error
	for _, model := range models {
		provider, err := r.providerFor(model)
		if err != nil {
			lastErr = err
			continue
		}
		req := r.buildRequest(model, route, "", "", opts)
		start := time.Now()

		op := func() error {
			if err := fn(provider, req); err != nil {
				if IsTransient(err) {
					return err
				}
				return backoff.Permanent(err)
			}
			return nil
		}
		policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
		if err := backoff.Retry(op, policy); err != nil {
			lastErr = err
			// Token-limit errors are the streaming adapter's signal to
			// halve its batch; crossing to a fallback model would mask it.
			if IsTokenLimit(err) {
				return CallMeta{Model: model, Provider: provider.Name()}, err
			}
			r.logger.Warn("Model attempt failed, trying next in route",
				"role", role, "model", model, "error", err)
			continue
		}
		return CallMeta{
			Model:     model,
			Provider:  provider.Name(),
			ElapsedMS: time.Since(start).Milliseconds(),
		}, nil
	}
	return CallMeta{}, fmt.Errorf("%w: role %s: %w", ErrRouteExhausted, role, lastErr)
}

// CompleteText runs a blocking text call for a role.
func (r *Router) CompleteText(ctx context.Context, role config.Role, system, user string, opts *CallOptions) (string, CallMeta, error) {
	var text string
	var usage Usage
	meta, err := r.attempt(ctx, role, opts, func(p Provider, req Request) error {
		req.System = system
		req.Messages = UserMessage(user)
		resp, err := p.Complete(ctx, req)
		if err != nil {
			return err
		}
		text = resp.Text
		usage = resp.Usage
		return nil
	})
	meta.Usage = usage
	if err != nil {
		return "", meta, err
	}
	return text, meta, nil
}

// CompleteJSON runs a blocking structured-output call: the model's
// reply is stripped of fences, validated against schema when given,
// and unmarshaled into out. Invalid output fails the model attempt so
// the route can fall back.
func (r *Router) CompleteJSON(ctx context.Context, role config.Role, system, user string, schema *jsonschema.Schema, out any) (CallMeta, error) {
	var usage Usage
	meta, err := r.attempt(ctx, role, nil, func(p Provider, req Request) error {
		req.System = system
		req.Messages = UserMessage(user + "\n\nRespond with a single JSON object only. No prose, no markdown fences.")
		resp, err := p.Complete(ctx, req)
		if err != nil {
			return err
		}
		usage = resp.Usage
		raw := ExtractJSON(resp.Text)

		if schema != nil {
			var doc any
			if err := json.Unmarshal([]byte(raw), &doc); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
			}
			if err := schema.Validate(doc); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
			}
		}
		if err := json.Unmarshal([]byte(raw), out); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
		return nil
	})
	meta.Usage = usage
	return meta, err
}

// StreamText streams a text call for a role, invoking onDelta for each
// chunk, and returns the accumulated text.
func (r *Router) StreamText(ctx context.Context, role config.Role, system, user string, opts *CallOptions, onDelta func(string)) (string, CallMeta, error) {
	var full strings.Builder
	meta, err := r.attempt(ctx, role, opts, func(p Provider, req Request) error {
		req.System = system
		req.Messages = UserMessage(user)
		full.Reset()

		deltas, errs := p.Stream(ctx, req)
		for delta := range deltas {
			full.WriteString(delta)
			if onDelta != nil {
				onDelta(delta)
			}
		}
		return <-errs
	})
	if err != nil {
		return "", meta, err
	}
	return full.String(), meta, nil
}

// StreamJSON streams a structured-output call. While the model
// generates, each delta triggers a best-effort repair of the
// accumulated fragment; every successfully repaired snapshot is passed
// to onSnapshot. The final, complete document is returned.
func (r *Router) StreamJSON(ctx context.Context, role config.Role, system, user string, opts *CallOptions, onSnapshot func(json.RawMessage)) (json.RawMessage, CallMeta, error) {
	var final json.RawMessage
	meta, err := r.attempt(ctx, role, opts, func(p Provider, req Request) error {
		req.System = system
		req.Messages = UserMessage(user + "\n\nRespond with a single JSON object only. No prose, no markdown fences.")
		var full strings.Builder

		deltas, errs := p.Stream(ctx, req)
		for delta := range deltas {
			full.WriteString(delta)
			if onSnapshot != nil {
				if snapshot, ok := RepairJSON(full.String()); ok {
					onSnapshot(snapshot)
				}
			}
		}
		if err := <-errs; err != nil {
			return err
		}

		raw := ExtractJSON(full.String())
		if !json.Valid([]byte(raw)) {
			repaired, ok := RepairJSON(raw)
			if !ok {
				return fmt.Errorf("%w: truncated stream output", ErrInvalidJSON)
			}
			raw = string(repaired)
		}
		final = json.RawMessage(raw)
		return nil
	})
	if err != nil {
		return nil, meta, err
	}
	return final, meta, nil
}
