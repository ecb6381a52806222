package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mediaops/content-approval/internal/domain/entity"
	"github.com/mediaops/content-approval/internal/domain/event"
	"github.com/mediaops/content-approval/internal/domain/workflow"
)

// RecoverActiveExecutions rebuilds the in-memory active index from the
// persisted execution snapshots and re-arms stage timers. Timers whose
// deadlines already passed while the process was down fire immediately.
// Returns the number of recovered executions.
func (e *Engine) RecoverActiveExecutions(ctx context.Context) (int, error) {
	items, err := e.contents.ListActiveExecutions(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active executions: %w", err)
	}

	recovered := 0
	for _, content := range items {
		exec := content.Execution
		if exec == nil || !exec.IsActive() {
			continue
		}

		unlock := e.locks.acquire(content.ID)

		def := e.registry.Get(exec.WorkflowID)
		if def == nil {
			// Definition disappeared between runs; the execution cannot
			// make progress, so it is parked in the error state.
			e.logger.Error("Recovered execution references unknown definition",
				zap.String("content_id", content.ID),
				zap.String("workflow_id", exec.WorkflowID))
			if ferr := transitionExecution(exec, workflow.TriggerFail); ferr == nil {
				done := e.now()
				exec.CompletedAt = &done
				if serr := e.contents.Save(ctx, content); serr != nil {
					e.logger.Error("Failed to persist errored execution",
						zap.String("content_id", content.ID), zap.Error(serr))
				}
			}
			unlock()
			continue
		}

		e.setActive(exec)
		if se := exec.CurrentStage(); se != nil && !stageEnded(se) {
			if stage := def.StageByID(se.StageID); stage != nil {
				e.scheduler.ScheduleStageTimeouts(content.ID, stage, se.StartedAt)
			}
		}
		recovered++
		unlock()
	}

	e.logger.Info("Recovered active executions", zap.Int("count", recovered))
	return recovered, nil
}

// DetectStalled publishes a workflow.stalled event for every active
// execution whose current stage has seen no activity for longer than the
// threshold. It never cancels anything; the event exists for operator
// attention. Returns the number of executions flagged in this pass.
func (e *Engine) DetectStalled(ctx context.Context, threshold time.Duration) (int, error) {
	items, err := e.contents.ListActiveExecutions(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active executions: %w", err)
	}

	flagged := 0
	for _, content := range items {
		unlock := e.locks.acquire(content.ID)

		exec := e.getActive(content.ID)
		if exec == nil || !exec.IsActive() {
			unlock()
			continue
		}

		last := exec.LastActivity()
		if e.now().Sub(last) < threshold {
			unlock()
			continue
		}
		// Flag each stall once; a new stall after fresh activity is
		// flagged again.
		if raw, ok := exec.Metadata["stalled_flagged_at"]; ok {
			if at, perr := time.Parse(time.RFC3339, raw); perr == nil && at.After(last) {
				unlock()
				continue
			}
		}

		exec.Metadata["stalled_flagged_at"] = e.now().Format(time.RFC3339)
		content.Execution = exec
		if serr := e.contents.Save(ctx, content); serr != nil {
			e.logger.Error("Failed to persist stall flag",
				zap.String("content_id", content.ID), zap.Error(serr))
		}

		stageID := ""
		if se := exec.CurrentStage(); se != nil {
			stageID = se.StageID
		}
		if aerr := e.audit.Record(ctx, content.ID, entity.SystemUserID, "workflow_stalled",
			fmt.Sprintf("stage=%s idle_since=%s", stageID, last.Format(time.RFC3339))); aerr != nil {
			e.logger.Error("Audit write failed",
				zap.String("content_id", content.ID), zap.Error(aerr))
		}
		e.events.DispatchAsync(ctx, event.New(event.TypeWorkflowStalled, content.ID, map[string]interface{}{
			"idle_since": last.Format(time.RFC3339),
		}).WithStage(stageID))

		stalledDetected.Inc()
		flagged++
		unlock()
	}

	return flagged, nil
}
