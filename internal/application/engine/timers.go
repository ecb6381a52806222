package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mediaops/content-approval/internal/application/scheduler"
	"github.com/mediaops/content-approval/internal/domain/entity"
	"github.com/mediaops/content-approval/internal/domain/event"
	"github.com/mediaops/content-approval/internal/domain/workflow"
)

// Timer firings are delivered here by the scheduler and routed through the
// same per-content lock as foreground calls. A timer that fires after its
// stage already completed, or after the execution terminated, is a no-op.

// HandleAutoApprove applies the auto-approval effect for a stage whose
// deadline elapsed with no completing human decision.
func (e *Engine) HandleAutoApprove(contentID, stageID string) {
	timerFirings.WithLabelValues(scheduler.KindAutoApprove).Inc()
	ctx := context.Background()

	unlock := e.locks.acquire(contentID)
	defer unlock()

	exec, se := e.liveStage(contentID, stageID)
	if se == nil {
		return
	}
	if se.HasActed(entity.SystemUserID) {
		return
	}

	content, def, err := e.loadContext(ctx, exec)
	if err != nil {
		e.logger.Error("Auto-approve timer could not load context",
			zap.String("content_id", contentID), zap.Error(err))
		return
	}
	stage := def.StageByID(stageID)
	if stage == nil {
		return
	}

	t := e.newTxn(ctx, content, def, exec)

	se.Approvals = append(se.Approvals, entity.ApprovalRecord{
		UserID:    entity.SystemUserID,
		Action:    entity.ActionApproved,
		Timestamp: e.now(),
		Comments:  "timeout",
	})

	t.audit(entity.SystemUserID, "auto_approve", fmt.Sprintf("stage=%s reason=timeout", stageID))
	t.event(event.New(event.TypeStageActionProcessed, contentID, map[string]interface{}{
		"action": entity.ActionApproved,
		"reason": "timeout",
	}).WithStage(stageID).WithUser(entity.SystemUserID))

	if err := e.evaluateStageOutcome(t, stage, se); err != nil {
		t.rollback()
		e.logger.Error("Auto-approve failed",
			zap.String("content_id", contentID),
			zap.String("stage_id", stageID),
			zap.Error(err))
		return
	}
	if err := e.finish(t); err != nil {
		e.logger.Error("Auto-approve persistence failed",
			zap.String("content_id", contentID), zap.Error(err))
	}
}

// HandleEscalation adds the escalation target to the stage's assignees
// without removing existing assignees, and sends an urgent notification.
func (e *Engine) HandleEscalation(contentID, stageID, target string) {
	timerFirings.WithLabelValues(scheduler.KindEscalation).Inc()
	ctx := context.Background()

	unlock := e.locks.acquire(contentID)
	defer unlock()

	exec, se := e.liveStage(contentID, stageID)
	if se == nil || target == "" {
		return
	}

	content, def, err := e.loadContext(ctx, exec)
	if err != nil {
		e.logger.Error("Escalation timer could not load context",
			zap.String("content_id", contentID), zap.Error(err))
		return
	}
	stage := def.StageByID(stageID)
	if stage == nil {
		return
	}

	t := e.newTxn(ctx, content, def, exec)

	if !se.HasAssignee(target) {
		se.Assignees = append(se.Assignees, target)
	}
	if !containsUser(content.Assignees, target) {
		content.Assignees = append(content.Assignees, target)
	}
	if se.Status == entity.StageStatusInProgress {
		if err := transitionStage(se, workflow.TriggerEscalate); err != nil {
			t.rollback()
			e.logger.Error("Escalation transition failed",
				zap.String("content_id", contentID), zap.Error(err))
			return
		}
	}

	t.audit(entity.SystemUserID, "stage_escalated", fmt.Sprintf("stage=%s target=%s", stageID, target))
	t.notify(target, "escalation",
		"Overdue content review escalated to you",
		fmt.Sprintf("%q has been waiting on stage %s past its escalation window", content.Title, stage.Name), true)
	t.event(event.New(event.TypeStageEscalated, contentID, map[string]interface{}{
		"target": target,
		"reason": "timeout",
	}).WithStage(stageID))

	if err := e.finish(t); err != nil {
		e.logger.Error("Escalation persistence failed",
			zap.String("content_id", contentID), zap.Error(err))
	}
}

// liveStage returns the active execution and its current stage execution
// when the given stage is still the live, unfinished one. Both nil
// otherwise; the timer is then stale and must do nothing.
func (e *Engine) liveStage(contentID, stageID string) (*entity.WorkflowExecution, *entity.StageExecution) {
	exec := e.getActive(contentID)
	if exec == nil || !exec.IsActive() {
		return nil, nil
	}
	se := exec.CurrentStage()
	if se == nil || se.StageID != stageID || stageEnded(se) {
		return nil, nil
	}
	return exec, se
}
