package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/repoai/pkg/models"
)

func collect(t *testing.T, ch <-chan models.ProgressEvent, n int) []models.ProgressEvent {
	t.Helper()
	out := make([]models.ProgressEvent, 0, n)
	timeout := time.After(2 * time.Second)
	for len(out) < n {
		select {
		case e, ok := <-ch:
			require.True(t, ok, "channel closed after %d of %d events", len(out), n)
			out = append(out, e)
		case <-timeout:
			t.Fatalf("timed out after %d of %d events", len(out), n)
		}
	}
	return out
}

func TestPublishFillsDefaults(t *testing.T) {
	b := NewBus("session_1")
	b.Publish(models.ProgressEvent{Message: "hello"})

	history := b.History()
	require.Len(t, history, 1)
	assert.Equal(t, "session_1", history[0].SessionID)
	assert.False(t, history[0].Timestamp.IsZero())
}

func TestSubscribeDeliversInOrder(t *testing.T) {
	b := NewBus("s")
	ch, err := b.Subscribe(context.Background())
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		b.Publish(models.ProgressEvent{Progress: float64(i)})
	}
	got := collect(t, ch, 50)
	for i, e := range got {
		assert.Equal(t, float64(i), e.Progress)
	}
}

func TestLateSubscriberReplaysHistory(t *testing.T) {
	b := NewBus("s")
	b.Publish(models.ProgressEvent{Message: "first"})
	b.Publish(models.ProgressEvent{Message: "second"})

	ch, err := b.Subscribe(context.Background())
	require.NoError(t, err)

	got := collect(t, ch, 2)
	assert.Equal(t, "first", got[0].Message)
	assert.Equal(t, "second", got[1].Message)

	// Live events keep flowing after the replay.
	b.Publish(models.ProgressEvent{Message: "third"})
	assert.Equal(t, "third", collect(t, ch, 1)[0].Message)
}

func TestSecondSubscriberRejected(t *testing.T) {
	b := NewBus("s")
	_, err := b.Subscribe(context.Background())
	require.NoError(t, err)

	_, err = b.Subscribe(context.Background())
	assert.ErrorIs(t, err, ErrAlreadySubscribed)
}

func TestUnsubscribeThenResubscribeReplaysFromStart(t *testing.T) {
	b := NewBus("s")
	b.Publish(models.ProgressEvent{Message: "one"})

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := b.Subscribe(ctx)
	require.NoError(t, err)
	collect(t, ch, 1)
	cancel()

	// Wait for the pump to release the subscriber slot.
	for _, ok := <-ch; ok; _, ok = <-ch {
	}

	require.Eventually(t, func() bool {
		ch2, err := b.Subscribe(context.Background())
		if err != nil {
			return false
		}
		got := collect(t, ch2, 1)
		return got[0].Message == "one"
	}, time.Second, 5*time.Millisecond)
}

func TestCloseDrainsThenEndsStream(t *testing.T) {
	b := NewBus("s")
	b.Publish(models.ProgressEvent{Message: "pending"})
	b.Close()

	ch, err := b.Subscribe(context.Background())
	require.NoError(t, err)

	got := collect(t, ch, 1)
	assert.Equal(t, "pending", got[0].Message)

	_, ok := <-ch
	assert.False(t, ok, "stream ends after draining")

	// Publish after close is dropped silently.
	b.Publish(models.ProgressEvent{Message: "late"})
	assert.Equal(t, 1, b.Len())
	b.Close()
}

func TestPublishNeverBlocksWithoutSubscriber(t *testing.T) {
	b := NewBus("s")
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10000; i++ {
			b.Publish(models.ProgressEvent{Progress: float64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked without a subscriber")
	}
	assert.Equal(t, 10000, b.Len())
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	b := r.Create("s1")
	assert.Same(t, b, r.Create("s1"), "create is idempotent")
	assert.Same(t, b, r.Get("s1"))
	assert.Nil(t, r.Get("missing"))

	b.Publish(models.ProgressEvent{Message: "x"})
	r.Delete("s1")
	assert.Nil(t, r.Get("s1"))

	// Deleted bus is closed: subscriber drains history then ends.
	ch, err := b.Subscribe(context.Background())
	require.NoError(t, err)
	collect(t, ch, 1)
	_, ok := <-ch
	assert.False(t, ok)
}
