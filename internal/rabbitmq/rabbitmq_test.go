package rabbitmq

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/tabgo/internal/domain"
)

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "check.closed", RoutingKey(domain.CheckClosed))
	assert.Equal(t, "check.voided", RoutingKey(domain.CheckVoided))
}

// fakeConfirm resolves once done is closed, the way a broker confirm arrives.
type fakeConfirm struct {
	ack  bool
	done chan struct{}
}

func newFakeConfirm(ack bool) *fakeConfirm {
	return &fakeConfirm{ack: ack, done: make(chan struct{})}
}

func (f *fakeConfirm) WaitContext(ctx context.Context) (bool, error) {
	select {
	case <-f.done:
		return f.ack, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func TestAwaitConfirm(t *testing.T) {
	t.Run("ack", func(t *testing.T) {
		c := newFakeConfirm(true)
		close(c.done)
		require.NoError(t, awaitConfirm(context.Background(), c))
	})

	t.Run("nack", func(t *testing.T) {
		c := newFakeConfirm(false)
		close(c.done)
		require.ErrorIs(t, awaitConfirm(context.Background(), c), ErrNacked)
	})

	t.Run("deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		require.ErrorIs(t, awaitConfirm(ctx, newFakeConfirm(true)), context.DeadlineExceeded)
	})
}

// A publish that timed out waiting must not hand its late ack to the next one.
func TestAwaitConfirm_LateAckDoesNotLeakIntoNextPublish(t *testing.T) {
	first := newFakeConfirm(true)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, awaitConfirm(ctx, first), context.DeadlineExceeded)

	second := newFakeConfirm(false)
	close(first.done)
	close(second.done)

	require.ErrorIs(t, awaitConfirm(context.Background(), second), ErrNacked)
}
