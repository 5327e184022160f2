package llm

import "context"

// Message is one turn of a conversation sent to a provider.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Request is a provider-agnostic completion request.
type Request struct {
	Model       string
	System      string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Usage reports token consumption for one call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Response is a completed (non-streaming) provider reply.
type Response struct {
	Text       string
	Model      string
	Usage      Usage
	StopReason string
}

// Provider is a single LLM backend. Stream delivers text deltas on the
// first channel; after it closes, the error channel yields exactly one
// value (nil on clean completion).
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Response, error)
	Stream(ctx context.Context, req Request) (<-chan string, <-chan error)
}

// UserMessage is a convenience constructor for a single-turn request.
func UserMessage(content string) []Message {
	return []Message{{Role: "user", Content: content}}
}
