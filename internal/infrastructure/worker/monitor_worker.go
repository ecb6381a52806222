package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mediaops/content-approval/internal/application/engine"
)

// MonitorWorker periodically flags stalled workflows: active executions
// whose current stage has seen no activity past the configured threshold.
// It only observes and publishes; it never cancels anything.
type MonitorWorker struct {
	engine    *engine.Engine
	interval  time.Duration
	threshold time.Duration
	logger    *zap.Logger

	done chan struct{}
}

// NewMonitorWorker creates a stalled-workflow monitor.
func NewMonitorWorker(eng *engine.Engine, interval, threshold time.Duration, logger *zap.Logger) *MonitorWorker {
	return &MonitorWorker{
		engine:    eng,
		interval:  interval,
		threshold: threshold,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Name returns the worker name.
func (w *MonitorWorker) Name() string {
	return "stalled-workflow-monitor"
}

// Start launches the monitor loop.
func (w *MonitorWorker) Start(ctx context.Context) error {
	go w.run(ctx)
	return nil
}

// Stop waits for the monitor loop to exit after context cancellation.
func (w *MonitorWorker) Stop() error {
	<-w.done
	return nil
}

func (w *MonitorWorker) run(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			flagged, err := w.engine.DetectStalled(ctx, w.threshold)
			if err != nil {
				w.logger.Error("Stalled-workflow check failed", zap.Error(err))
				continue
			}
			if flagged > 0 {
				w.logger.Warn("Stalled workflows detected", zap.Int("count", flagged))
			}
		}
	}
}
