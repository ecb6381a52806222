package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWorker struct {
	name     string
	startErr error
	stopErr  error
	started  atomic.Bool
	stopped  atomic.Bool
}

func (w *fakeWorker) Name() string { return w.name }

func (w *fakeWorker) Start(ctx context.Context) error {
	if w.startErr != nil {
		return w.startErr
	}
	w.started.Store(true)
	return nil
}

func (w *fakeWorker) Stop() error {
	if w.stopErr != nil {
		return w.stopErr
	}
	w.stopped.Store(true)
	return nil
}

func TestManagerStartsAndStopsWorkers(t *testing.T) {
	m := NewManager(zap.NewNop())
	a := &fakeWorker{name: "a"}
	b := &fakeWorker{name: "b"}
	m.Register(a)
	m.Register(b)

	require.NoError(t, m.StartAll(context.Background()))
	assert.True(t, a.started.Load())
	assert.True(t, b.started.Load())

	require.NoError(t, m.StopAll())
	assert.True(t, a.stopped.Load())
	assert.True(t, b.stopped.Load())
}

func TestManagerRejectsDoubleStart(t *testing.T) {
	m := NewManager(zap.NewNop())
	m.Register(&fakeWorker{name: "a"})

	require.NoError(t, m.StartAll(context.Background()))
	assert.Error(t, m.StartAll(context.Background()))
	require.NoError(t, m.StopAll())
}

func TestManagerContinuesPastFailedStart(t *testing.T) {
	m := NewManager(zap.NewNop())
	bad := &fakeWorker{name: "bad", startErr: errors.New("no dice")}
	good := &fakeWorker{name: "good"}
	m.Register(bad)
	m.Register(good)

	require.NoError(t, m.StartAll(context.Background()))
	assert.False(t, bad.started.Load())
	assert.True(t, good.started.Load())
	require.NoError(t, m.StopAll())
}

func TestManagerStopAllReportsFailures(t *testing.T) {
	m := NewManager(zap.NewNop())
	m.Register(&fakeWorker{name: "bad", stopErr: errors.New("stuck")})

	require.NoError(t, m.StartAll(context.Background()))
	assert.Error(t, m.StopAll())
}

func TestManagerStopWithoutStartIsNoop(t *testing.T) {
	m := NewManager(zap.NewNop())
	assert.NoError(t, m.StopAll())
}
