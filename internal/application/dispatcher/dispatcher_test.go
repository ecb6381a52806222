package dispatcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mediaops/content-approval/internal/domain/event"
)

func TestDispatchDeliversToAllHandlers(t *testing.T) {
	d := New(zap.NewNop())

	var mu sync.Mutex
	var received []string

	d.Subscribe(event.TypeWorkflowStarted, "first", func(ctx context.Context, evt *event.Event) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, "first")
		return nil
	})
	d.Subscribe(event.TypeWorkflowStarted, "second", func(ctx context.Context, evt *event.Event) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, "second")
		return nil
	})

	evt := event.New(event.TypeWorkflowStarted, "content-1", nil)
	require.NoError(t, d.Dispatch(context.Background(), evt))
	assert.Equal(t, []string{"first", "second"}, received)
}

func TestDispatchReturnsHandlerError(t *testing.T) {
	d := New(zap.NewNop())

	d.Subscribe(event.TypeStageStarted, "failing", func(ctx context.Context, evt *event.Event) error {
		return errors.New("boom")
	})

	err := d.Dispatch(context.Background(), event.New(event.TypeStageStarted, "content-1", nil))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failing")
}

func TestDispatchIgnoresUnsubscribedTypes(t *testing.T) {
	d := New(zap.NewNop())
	assert.NoError(t, d.Dispatch(context.Background(), event.New(event.TypeWorkflowCompleted, "content-1", nil)))
}

func TestDispatchAsyncDoesNotBlock(t *testing.T) {
	d := New(zap.NewNop())

	done := make(chan struct{})
	d.Subscribe(event.TypeStageCompleted, "slow", func(ctx context.Context, evt *event.Event) error {
		defer close(done)
		time.Sleep(10 * time.Millisecond)
		return nil
	})

	d.DispatchAsync(context.Background(), event.New(event.TypeStageCompleted, "content-1", nil))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("async handler never ran")
	}
}

func TestDispatchRecoversFromHandlerPanic(t *testing.T) {
	d := New(zap.NewNop())

	d.Subscribe(event.TypeStageEscalated, "panics", func(ctx context.Context, evt *event.Event) error {
		panic("handler bug")
	})

	err := d.Dispatch(context.Background(), event.New(event.TypeStageEscalated, "content-1", nil))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "panic")
}

func TestCloseWaitsForAsyncHandlers(t *testing.T) {
	d := New(zap.NewNop())

	var completed sync.WaitGroup
	completed.Add(1)
	handlerDone := false

	d.Subscribe(event.TypeWorkflowCancelled, "slow", func(ctx context.Context, evt *event.Event) error {
		defer completed.Done()
		time.Sleep(20 * time.Millisecond)
		handlerDone = true
		return nil
	})

	d.DispatchAsync(context.Background(), event.New(event.TypeWorkflowCancelled, "content-1", nil))
	require.NoError(t, d.Close())
	completed.Wait()
	assert.True(t, handlerDone)
}

func TestDispatchAfterClose(t *testing.T) {
	d := New(zap.NewNop())
	require.NoError(t, d.Close())

	assert.Error(t, d.Dispatch(context.Background(), event.New(event.TypeWorkflowStarted, "content-1", nil)))
	assert.Error(t, d.Close())

	// Dropped silently, must not panic.
	d.DispatchAsync(context.Background(), event.New(event.TypeWorkflowStarted, "content-1", nil))
}
