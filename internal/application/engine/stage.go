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

// txn buffers the side effects of one mutation under the content lock.
// Events, notifications, timer arming, timer cancellation and active-set
// removal are deferred until the new state has been durably recorded;
// audit entries are written synchronously after the save but their
// failures never abort the operation. The snapshot taken at creation
// restores the in-memory execution when the save fails, so a caller
// retry starts from the state the repository still holds.
type txn struct {
	ctx      context.Context
	content  *entity.Content
	def      *entity.WorkflowDefinition
	exec     *entity.WorkflowExecution
	snapshot *entity.WorkflowExecution

	events        []*event.Event
	notifications []notification
	audits        []auditEntry
	timers        []timerRequest
	cancelStages  []string
	cancelAll     bool
	deactivate    bool
}

type notification struct {
	userID  string
	kind    string
	title   string
	message string
	urgent  bool
}

type auditEntry struct {
	actor   string
	action  string
	details string
}

type timerRequest struct {
	stage     *entity.Stage
	startedAt time.Time
}

func (e *Engine) newTxn(ctx context.Context, content *entity.Content, def *entity.WorkflowDefinition, exec *entity.WorkflowExecution) *txn {
	return &txn{ctx: ctx, content: content, def: def, exec: exec, snapshot: exec.Clone()}
}

// rollback restores the execution to its pre-operation state. Callers
// must create the txn before mutating the execution.
func (t *txn) rollback() {
	if t.exec != nil && t.snapshot != nil {
		*t.exec = *t.snapshot
	}
}

func (t *txn) event(evt *event.Event) {
	t.events = append(t.events, evt)
}

func (t *txn) notify(userID, kind, title, message string, urgent bool) {
	if userID == "" {
		return
	}
	t.notifications = append(t.notifications, notification{userID, kind, title, message, urgent})
}

func (t *txn) audit(actor, action, details string) {
	t.audits = append(t.audits, auditEntry{actor, action, details})
}

// finish persists the content record (with its execution snapshot) and
// then applies the buffered side effects. The caller only sees success
// after the state is durable.
func (e *Engine) finish(t *txn) error {
	if err := e.contents.Save(t.ctx, t.content); err != nil {
		t.rollback()
		return fmt.Errorf("failed to persist execution for content %s: %w", t.content.ID, err)
	}

	if t.deactivate {
		e.removeActive(t.content.ID)
	}
	if t.cancelAll {
		e.scheduler.CancelAll(t.content.ID)
	} else {
		for _, stageID := range t.cancelStages {
			e.scheduler.CancelStageTimers(t.content.ID, stageID)
		}
		for _, tr := range t.timers {
			e.scheduler.ScheduleStageTimeouts(t.content.ID, tr.stage, tr.startedAt)
		}
	}

	for _, a := range t.audits {
		if err := e.audit.Record(t.ctx, t.content.ID, a.actor, a.action, a.details); err != nil {
			e.logger.Error("Audit write failed",
				zap.String("content_id", t.content.ID),
				zap.String("action", a.action),
				zap.Error(err))
		}
	}

	for _, n := range t.notifications {
		if err := e.notifier.Send(t.ctx, n.userID, n.kind, n.title, n.message, n.urgent); err != nil {
			e.logger.Warn("Notification request failed",
				zap.String("content_id", t.content.ID),
				zap.String("user_id", n.userID),
				zap.Error(err))
		}
	}

	for _, evt := range t.events {
		e.events.DispatchAsync(t.ctx, evt)
	}
	return nil
}

// startStage appends a fresh stage execution at the given definition
// index, runs the stage's rules, resolves assignees, arms timers and
// requests assignment notifications.
func (e *Engine) startStage(t *txn, index int) error {
	stage := t.def.StageAt(index)
	if stage == nil {
		return fmt.Errorf("definition %s has no stage at index %d", t.def.ID, index)
	}
	t.exec.CurrentStageIndex = index

	t.exec.StageHistory = append(t.exec.StageHistory, entity.StageExecution{
		StageID:   stage.ID,
		StartedAt: e.now(),
		Status:    entity.StageStatusPending,
		Assignees: []string{},
		Approvals: []entity.ApprovalRecord{},
	})
	se := t.exec.CurrentStage()
	if err := transitionStage(se, workflow.TriggerStart); err != nil {
		return err
	}

	reassignTo, escalateAdds, err := e.applyStageRules(t, stage, se)
	if err != nil {
		return err
	}
	if stageEnded(se) || !t.exec.IsActive() {
		return nil
	}

	resolved, err := e.resolver.Resolve(t.ctx, stage.AssigneeReferences)
	if err != nil {
		return fmt.Errorf("failed to resolve assignees for stage %s: %w", stage.ID, err)
	}
	assignees := resolved
	if reassignTo != "" {
		assignees = []string{reassignTo}
	}
	for _, u := range escalateAdds {
		if !containsUser(assignees, u) {
			assignees = append(assignees, u)
		}
	}
	se.Assignees = assignees
	t.content.Assignees = append([]string(nil), assignees...)

	t.timers = append(t.timers, timerRequest{stage: stage, startedAt: se.StartedAt})

	for _, u := range assignees {
		t.notify(u, "assignment",
			fmt.Sprintf("Content awaiting your %s", stage.Type),
			fmt.Sprintf("%q entered stage %s", t.content.Title, stage.Name), false)
	}

	t.event(event.New(event.TypeStageStarted, t.content.ID, map[string]interface{}{
		"stage_name": stage.Name,
		"assignees":  assignees,
	}).WithStage(stage.ID))
	return nil
}

// applyStageRules evaluates the stage's rules against the content item and
// applies the triggered actions in definition order. Returns the pending
// reassignment target and escalation additions for assignee resolution.
func (e *Engine) applyStageRules(t *txn, stage *entity.Stage, se *entity.StageExecution) (string, []string, error) {
	triggered := e.evaluator.Evaluate(t.content, stage.Rules)

	var reassignTo string
	var escalateAdds []string

	for _, ta := range triggered {
		if stageEnded(se) || !t.exec.IsActive() {
			break
		}
		action := ta.Action

		switch action.Type {
		case entity.RuleActionAutoApprove:
			if se.HasActed(entity.SystemUserID) {
				continue
			}
			se.Approvals = append(se.Approvals, entity.ApprovalRecord{
				UserID:    entity.SystemUserID,
				Action:    entity.ActionApproved,
				Timestamp: e.now(),
				Comments:  action.Value,
			})
			t.audit(entity.SystemUserID, "auto_approve", fmt.Sprintf("stage=%s", stage.ID))
			if err := e.evaluateStageOutcome(t, stage, se); err != nil {
				return "", nil, err
			}

		case entity.RuleActionAutoReject:
			se.Approvals = append(se.Approvals, entity.ApprovalRecord{
				UserID:    entity.SystemUserID,
				Action:    entity.ActionRejected,
				Timestamp: e.now(),
				Comments:  action.Value,
			})
			t.audit(entity.SystemUserID, "auto_reject", fmt.Sprintf("stage=%s", stage.ID))
			if err := e.evaluateStageOutcome(t, stage, se); err != nil {
				return "", nil, err
			}

		case entity.RuleActionEscalate:
			if action.Target == "" {
				continue
			}
			escalateAdds = append(escalateAdds, action.Target)
			if se.Status == entity.StageStatusInProgress {
				if err := transitionStage(se, workflow.TriggerEscalate); err != nil {
					return "", nil, err
				}
			}
			t.notify(action.Target, "escalation",
				"Content review escalated to you",
				fmt.Sprintf("%q needs attention on stage %s", t.content.Title, stage.Name), true)
			t.event(event.New(event.TypeStageEscalated, t.content.ID, map[string]interface{}{
				"target": action.Target,
			}).WithStage(stage.ID))

		case entity.RuleActionReassign:
			if action.Target == "" {
				continue
			}
			reassignTo = action.Target
			t.event(event.New(event.TypeStageReassigned, t.content.ID, map[string]interface{}{
				"target": action.Target,
			}).WithStage(stage.ID))

		case entity.RuleActionSkipStage:
			t.audit(entity.SystemUserID, "stage_skipped", fmt.Sprintf("stage=%s", stage.ID))
			if err := e.advanceStage(t, se, workflow.TriggerSkip); err != nil {
				return "", nil, err
			}

		case entity.RuleActionNotify:
			target := action.Target
			if target == "" {
				target = t.content.AuthorID
			}
			t.notify(target, "rule_notification",
				"Workflow notification",
				fmt.Sprintf("%q matched a rule on stage %s", t.content.Title, stage.Name), false)

		case entity.RuleActionSetPriority:
			// The evaluator already mutated the content's priority.
			t.audit(entity.SystemUserID, "priority_changed", fmt.Sprintf("priority=%s", action.Value))

		default:
			e.logger.Warn("Ignoring rule action with unknown type",
				zap.String("action_type", action.Type),
				zap.String("stage_id", stage.ID))
		}
	}

	return reassignTo, escalateAdds, nil
}

// evaluateStageOutcome inspects the stage's recorded decisions and either
// terminates the execution (rejection), parks it for revision, completes
// the stage when the quorum is met, or leaves it in flight.
func (e *Engine) evaluateStageOutcome(t *txn, stage *entity.Stage, se *entity.StageExecution) error {
	if se.CountAction(entity.ActionRejected) > 0 {
		if err := e.finishStageRecord(t, se, workflow.TriggerComplete); err != nil {
			return err
		}
		return e.cancelExecution(t, "stage rejected", entity.ContentStatusRejected)
	}

	if se.CountAction(entity.ActionRevisionRequested) > 0 {
		if err := e.finishStageRecord(t, se, workflow.TriggerComplete); err != nil {
			return err
		}
		// Execution stays active, parked on the same stage index; the
		// author re-enters via ResubmitAfterRevision.
		t.content.Status = entity.ContentStatusRevisionRequested
		t.exec.Metadata["revision_stage_id"] = se.StageID
		t.notify(t.content.AuthorID, "revision_request",
			"Revision requested",
			fmt.Sprintf("Reviewers requested changes to %q", t.content.Title), false)
		return nil
	}

	approvals := se.CountAction(entity.ActionApproved)
	if stage.Requirements.RequireAllApprovals {
		if len(se.Assignees) > 0 && approvals == len(se.Assignees) {
			return e.advanceStage(t, se, workflow.TriggerComplete)
		}
		return nil
	}

	required := stage.Requirements.MinApprovals
	if required < 1 {
		required = 1
	}
	if approvals >= required {
		return e.advanceStage(t, se, workflow.TriggerComplete)
	}
	return nil
}

// finishStageRecord marks the stage execution done via the given trigger
// and cancels its timers. It does not advance the execution.
func (e *Engine) finishStageRecord(t *txn, se *entity.StageExecution, trigger workflow.Trigger) error {
	if err := transitionStage(se, trigger); err != nil {
		return err
	}
	done := e.now()
	se.CompletedAt = &done
	t.cancelStages = append(t.cancelStages, se.StageID)

	t.event(event.New(event.TypeStageCompleted, t.content.ID, map[string]interface{}{
		"status": se.Status,
	}).WithStage(se.StageID))
	return nil
}

// advanceStage completes the current stage and either starts the next
// stage or completes the workflow when this was the last one.
func (e *Engine) advanceStage(t *txn, se *entity.StageExecution, trigger workflow.Trigger) error {
	if err := e.finishStageRecord(t, se, trigger); err != nil {
		return err
	}

	next := t.exec.CurrentStageIndex + 1
	if next >= len(t.def.Stages) {
		return e.completeWorkflow(t)
	}
	return e.startStage(t, next)
}

// completeWorkflow terminates the execution successfully and marks the
// content approved.
func (e *Engine) completeWorkflow(t *txn) error {
	if err := transitionExecution(t.exec, workflow.TriggerFinish); err != nil {
		return err
	}
	done := e.now()
	t.exec.CompletedAt = &done
	t.content.Status = entity.ContentStatusApproved
	t.deactivate = true
	t.cancelAll = true

	workflowsCompleted.Inc()
	t.audit(entity.SystemUserID, "workflow_completed", fmt.Sprintf("execution=%s", t.exec.ID))
	t.notify(t.content.AuthorID, "workflow_completed",
		"Content approved",
		fmt.Sprintf("%q completed its approval workflow", t.content.Title), false)
	t.event(event.New(event.TypeWorkflowCompleted, t.content.ID, map[string]interface{}{
		"execution_id": t.exec.ID,
	}))

	e.logger.Info("Workflow completed",
		zap.String("content_id", t.content.ID),
		zap.String("execution_id", t.exec.ID))
	return nil
}

// cancelExecution terminates the execution as cancelled, setting the
// content status to the given terminal value (rejected or cancelled). All
// timers for the content item are cancelled before the lock is released.
func (e *Engine) cancelExecution(t *txn, reason, contentStatus string) error {
	if err := transitionExecution(t.exec, workflow.TriggerCancel); err != nil {
		return err
	}
	done := e.now()
	t.exec.CompletedAt = &done
	t.content.Status = contentStatus
	t.deactivate = true
	t.cancelAll = true

	workflowsCancelled.Inc()
	t.notify(t.content.AuthorID, "workflow_cancelled",
		"Workflow ended",
		fmt.Sprintf("The workflow for %q ended: %s", t.content.Title, reason), false)
	t.event(event.New(event.TypeWorkflowCancelled, t.content.ID, map[string]interface{}{
		"reason": reason,
		"status": contentStatus,
	}))

	e.logger.Info("Workflow cancelled",
		zap.String("content_id", t.content.ID),
		zap.String("reason", reason))
	return nil
}

func transitionStage(se *entity.StageExecution, trigger workflow.Trigger) error {
	m := workflow.NewStageMachine(workflow.State(se.Status))
	if err := m.Fire(trigger); err != nil {
		return err
	}
	se.Status = m.State().String()
	return nil
}

func transitionExecution(exec *entity.WorkflowExecution, trigger workflow.Trigger) error {
	m := workflow.NewExecutionMachine(workflow.State(exec.Status))
	if err := m.Fire(trigger); err != nil {
		return err
	}
	exec.Status = m.State().String()
	return nil
}

// stageEnded reports whether the stage execution reached a terminal
// status (completed or skipped).
func stageEnded(se *entity.StageExecution) bool {
	return se.CompletedAt != nil ||
		se.Status == entity.StageStatusCompleted ||
		se.Status == entity.StageStatusSkipped
}

func containsUser(list []string, userID string) bool {
	for _, u := range list {
		if u == userID {
			return true
		}
	}
	return false
}
