// Package events carries progress events from the pipeline to the
// transport layer. Each session gets its own bus: publishes never
// block, every event is buffered so a late subscriber replays the full
// history, and closing the bus drains the subscriber before ending its
// stream.
package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/codeready-toolchain/repoai/pkg/models"
)

var (
	// ErrAlreadySubscribed indicates the bus already has its one consumer.
	ErrAlreadySubscribed = errors.New("bus already has a subscriber")

	// ErrBusClosed indicates the bus was closed before the operation.
	ErrBusClosed = errors.New("bus closed")
)

// Bus is a single-producer, single-consumer progress event stream for
// one session. The producer is the pipeline goroutine; the consumer is
// one SSE or WebSocket handler at a time.
type Bus struct {
	sessionID string

	mu   sync.Mutex
	cond *sync.Cond
	// buffer holds the full event history so a reconnecting consumer
	// replays from the start; it is freed when the registry evicts the
	// bus. TODO: cap retained history for very long sessions.
	buffer     []models.ProgressEvent
	closed     bool
	subscribed bool
}

// NewBus creates a bus for the given session.
func NewBus(sessionID string) *Bus {
	b := &Bus{sessionID: sessionID}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Publish appends an event to the stream. It never blocks and never
// drops: the buffer grows as needed. Session ID and timestamp are
// filled in when the caller left them empty. Publishing after Close is
// a silent no-op so a finishing pipeline cannot panic the process.
func (b *Bus) Publish(event models.ProgressEvent) {
	if event.SessionID == "" {
		event.SessionID = b.sessionID
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.buffer = append(b.buffer, event)
	b.cond.Broadcast()
}

// Subscribe attaches the single consumer. The returned channel first
// replays every event published so far, then delivers live events in
// publish order, and is closed once the bus is closed and drained.
// Cancelling ctx detaches the consumer; the buffer is kept so a later
// subscriber replays from the start.
func (b *Bus) Subscribe(ctx context.Context) (<-chan models.ProgressEvent, error) {
	b.mu.Lock()
	if b.subscribed {
		b.mu.Unlock()
		return nil, ErrAlreadySubscribed
	}
	b.subscribed = true
	b.mu.Unlock()

	out := make(chan models.ProgressEvent)

	// Wake the pump when the subscriber's context ends; cond.Wait cannot
	// observe ctx.Done on its own.
	stop := context.AfterFunc(ctx, func() {
		b.mu.Lock()
		b.cond.Broadcast()
		b.mu.Unlock()
	})

	go func() {
		defer func() {
			stop()
			b.mu.Lock()
			b.subscribed = false
			b.mu.Unlock()
			close(out)
		}()

		next := 0
		for {
			b.mu.Lock()
			for next == len(b.buffer) && !b.closed && ctx.Err() == nil {
				b.cond.Wait()
			}
			if ctx.Err() != nil {
				b.mu.Unlock()
				return
			}
			if next == len(b.buffer) && b.closed {
				b.mu.Unlock()
				return
			}
			event := b.buffer[next]
			next++
			b.mu.Unlock()

			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Close ends the stream. The subscriber still receives everything
// published before the close, then its channel is closed. Idempotent.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.cond.Broadcast()
}

// Len reports how many events have been published.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buffer)
}

// History returns a copy of all events published so far.
func (b *Bus) History() []models.ProgressEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.ProgressEvent, len(b.buffer))
	copy(out, b.buffer)
	return out
}
