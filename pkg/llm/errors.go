package llm

import (
	"errors"
	"strings"
)

var (
	// ErrRouteExhausted indicates every model in a role's route failed
	ErrRouteExhausted = errors.New("all models in route failed")

	// ErrNoProviderForModel indicates no registered provider serves a model id
	ErrNoProviderForModel = errors.New("no provider for model")

	// ErrEmptyResponse indicates the provider returned no usable content
	ErrEmptyResponse = errors.New("empty model response")

	// ErrInvalidJSON indicates structured output failed schema validation or parsing
	ErrInvalidJSON = errors.New("model output is not valid JSON for schema")
)

// tokenLimitPatterns match provider messages for context-window and
// oversized-call failures. The streaming adapter halves its batch on
// these instead of failing the stage.
var tokenLimitPatterns = []string{
	"context_length_exceeded",
	"maximum context length",
	"context window",
	"prompt is too long",
	"too many tokens",
	"request too large",
	"max_tokens",
	"output limit",
	"malformed function call",
}

// IsTokenLimit reports whether err looks like a token/context budget
// failure that batch halving can work around.
func IsTokenLimit(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range tokenLimitPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsTransient reports whether err is worth retrying against the same
// model before falling through the route.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range []string{"rate limit", "429", "overloaded", "529", "timeout", "connection reset", "temporarily unavailable", "503"} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
