package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTickerStartAndCancel(t *testing.T) {
	reg := NewTickerRegistry(zap.NewNop())
	pollID := uuid.New()
	done := make(chan struct{})

	reg.Start(pollID, func(ctx context.Context) {
		<-ctx.Done()
		close(done)
	})
	require.True(t, reg.Active(pollID))

	reg.Cancel(pollID)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ticker did not observe cancellation")
	}
	require.False(t, reg.Active(pollID))
}

func TestTickerCancelIsIdempotent(t *testing.T) {
	reg := NewTickerRegistry(zap.NewNop())
	pollID := uuid.New()

	reg.Start(pollID, func(ctx context.Context) { <-ctx.Done() })

	reg.Cancel(pollID)
	reg.Cancel(pollID)
	reg.Cancel(pollID)
	require.False(t, reg.Active(pollID))

	// Canceling a poll that never had a ticker is a no-op.
	reg.Cancel(uuid.New())
}

func TestStartCancelsStaleTickers(t *testing.T) {
	reg := NewTickerRegistry(zap.NewNop())
	first := uuid.New()
	second := uuid.New()
	firstDone := make(chan struct{})

	reg.Start(first, func(ctx context.Context) {
		<-ctx.Done()
		close(firstDone)
	})
	reg.Start(second, func(ctx context.Context) { <-ctx.Done() })

	select {
	case <-firstDone:
	case <-time.After(time.Second):
		t.Fatal("stale ticker was not canceled by the new start")
	}
	require.False(t, reg.Active(first))
	require.True(t, reg.Active(second))

	reg.CancelAll()
	require.False(t, reg.Active(second))
}

func TestTickerUnregistersWhenRunReturns(t *testing.T) {
	reg := NewTickerRegistry(zap.NewNop())
	pollID := uuid.New()
	ran := make(chan struct{})

	reg.Start(pollID, func(ctx context.Context) { close(ran) })

	<-ran
	require.Eventually(t, func() bool { return !reg.Active(pollID) }, time.Second, 10*time.Millisecond)
}
