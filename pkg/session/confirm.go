package session

import (
	"context"
	"time"

	"github.com/codeready-toolchain/repoai/pkg/models"
)

// ConfirmPayload is one user response delivered to a paused pipeline.
// Either UserResponse carries free-form text for the decision engine to
// interpret, or the typed fields carry the structured form the
// transport validated.
type ConfirmPayload struct {
	Type models.ConfirmationType `json:"type"`

	// UserResponse is the natural-language reply, exclusive with the
	// structured fields below.
	UserResponse string `json:"user_response,omitempty"`

	Approved      bool   `json:"approved"`
	Feedback      string `json:"feedback,omitempty"`
	Modifications string `json:"modifications,omitempty"`

	// ValidationMode is set for validation confirmations: full,
	// compile_only or skip.
	ValidationMode string `json:"validation_mode,omitempty"`

	// Push overrides.
	BranchOverride        string `json:"branch_name_override,omitempty"`
	CommitMessageOverride string `json:"commit_message_override,omitempty"`
}

// Structured reports whether the payload used the typed form rather
// than natural language.
func (p ConfirmPayload) Structured() bool {
	return p.UserResponse == ""
}

// ConfirmChannel carries confirmation responses from the transport to
// the pipeline goroutine. Capacity is one: at most a single response
// can be queued, and responses are only accepted while the pipeline is
// blocked at the matching gate.
type ConfirmChannel struct {
	session *Session
	ch      chan ConfirmPayload
	done    chan struct{}
}

func newConfirmChannel(s *Session) *ConfirmChannel {
	return &ConfirmChannel{
		session: s,
		ch:      make(chan ConfirmPayload, 1),
		done:    make(chan struct{}),
	}
}

// Deliver hands a response to the waiting pipeline. It fails when the
// session is not paused at a gate, when the gate does not match the
// payload type, or when a response is already queued.
func (c *ConfirmChannel) Deliver(p ConfirmPayload) error {
	pending := c.session.Awaiting()
	if pending == models.ConfirmationNone {
		return ErrNotAwaitingConfirmation
	}
	if p.Type != pending {
		return ErrWrongConfirmationType
	}

	select {
	case c.ch <- p:
		return nil
	default:
		return ErrConfirmationPending
	}
}

// Await blocks the pipeline until a response arrives, the timeout
// elapses, or ctx is cancelled.
func (c *ConfirmChannel) Await(ctx context.Context, timeout time.Duration) (ConfirmPayload, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case p := <-c.ch:
		return p, nil
	case <-timer.C:
		return ConfirmPayload{}, ErrConfirmationTimeout
	case <-ctx.Done():
		return ConfirmPayload{}, ctx.Err()
	case <-c.done:
		return ConfirmPayload{}, ErrSessionClosed
	}
}

// Close releases any blocked waiter. Safe to call once, at session
// teardown.
func (c *ConfirmChannel) Close() {
	close(c.done)
}
