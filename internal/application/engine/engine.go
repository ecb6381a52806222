package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mediaops/content-approval/internal/application/dispatcher"
	"github.com/mediaops/content-approval/internal/application/port"
	"github.com/mediaops/content-approval/internal/application/registry"
	"github.com/mediaops/content-approval/internal/application/resolver"
	"github.com/mediaops/content-approval/internal/application/rules"
	"github.com/mediaops/content-approval/internal/application/scheduler"
	"github.com/mediaops/content-approval/internal/domain/entity"
	"github.com/mediaops/content-approval/internal/domain/event"
	"github.com/mediaops/content-approval/internal/domain/workflow"
)

// Stage action request types accepted by ProcessStageAction.
const (
	ActionApprove         = "approve"
	ActionReject          = "reject"
	ActionRevisionRequest = "revision_request"
)

// StageAction is a reviewer's decision on the current stage.
type StageAction struct {
	Type     string `json:"type"`
	Comments string `json:"comments,omitempty"`
}

// Engine drives content items through approval workflows. It exclusively
// owns in-memory executions; the content repository is the system of
// record used for restart recovery.
type Engine struct {
	contents  port.ContentRepository
	registry  *registry.Registry
	resolver  *resolver.Resolver
	evaluator *rules.Evaluator
	scheduler *scheduler.Scheduler
	events    dispatcher.Dispatcher
	audit     port.AuditSink
	notifier  port.Notifier
	logger    *zap.Logger
	now       func() time.Time

	locks *contentLocks

	mu     sync.RWMutex
	active map[string]*entity.WorkflowExecution
}

// New creates the execution engine and registers it as the scheduler's
// timer handler.
func New(
	contents port.ContentRepository,
	reg *registry.Registry,
	res *resolver.Resolver,
	eval *rules.Evaluator,
	sched *scheduler.Scheduler,
	events dispatcher.Dispatcher,
	audit port.AuditSink,
	notifier port.Notifier,
	logger *zap.Logger,
) *Engine {
	e := &Engine{
		contents:  contents,
		registry:  reg,
		resolver:  res,
		evaluator: eval,
		scheduler: sched,
		events:    events,
		audit:     audit,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
		locks:     newContentLocks(),
		active:    make(map[string]*entity.WorkflowExecution),
	}
	sched.SetHandler(e)
	return e
}

// StartWorkflow creates and starts an execution for a content item. When
// workflowID is empty the registry selects a definition by criteria with
// fallback to the default definition.
func (e *Engine) StartWorkflow(ctx context.Context, contentID, workflowID string) (*entity.WorkflowExecution, error) {
	unlock := e.locks.acquire(contentID)
	defer unlock()

	if e.getActive(contentID) != nil {
		return nil, fmt.Errorf("%w: content %s", workflow.ErrAlreadyActive, contentID)
	}

	content, err := e.contents.FindByID(ctx, contentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load content %s: %w", contentID, err)
	}
	if content == nil {
		return nil, fmt.Errorf("%w: content %s", workflow.ErrNotFound, contentID)
	}
	if content.Execution != nil && content.Execution.IsActive() {
		return nil, fmt.Errorf("%w: content %s", workflow.ErrAlreadyActive, contentID)
	}

	var def *entity.WorkflowDefinition
	if workflowID != "" {
		if def = e.registry.Get(workflowID); def == nil {
			return nil, fmt.Errorf("%w: workflow definition %s", workflow.ErrNotFound, workflowID)
		}
	} else {
		if def, err = e.registry.SelectForContent(content); err != nil {
			return nil, err
		}
	}

	exec := &entity.WorkflowExecution{
		ID:                uuid.NewString(),
		ContentID:         contentID,
		WorkflowID:        def.ID,
		CurrentStageIndex: 0,
		Status:            entity.ExecutionStatusActive,
		StartedAt:         e.now(),
		Metadata:          make(map[string]string),
	}
	content.Execution = exec
	content.Status = entity.ContentStatusInReview

	t := e.newTxn(ctx, content, def, exec)
	t.audit(entity.SystemUserID, "workflow_started", fmt.Sprintf("workflow=%s", def.ID))
	t.event(event.New(event.TypeWorkflowStarted, contentID, map[string]interface{}{
		"workflow_id":  def.ID,
		"execution_id": exec.ID,
	}))

	if err := e.startStage(t, 0); err != nil {
		return nil, err
	}
	if exec.IsActive() {
		e.setActive(exec)
	}

	if err := e.finish(t); err != nil {
		// Timers are only armed after a successful save, so dropping the
		// execution from the active index is the whole compensation.
		e.removeActive(contentID)
		return nil, err
	}

	workflowsStarted.Inc()
	e.logger.Info("Workflow started",
		zap.String("content_id", contentID),
		zap.String("workflow_id", def.ID),
		zap.String("execution_id", exec.ID))
	return exec, nil
}

// ProcessStageAction records a user's decision on the execution's current
// stage and evaluates stage completion.
func (e *Engine) ProcessStageAction(ctx context.Context, contentID, stageID, userID string, action StageAction) error {
	recordAction, err := mapActionType(action.Type)
	if err != nil {
		return err
	}

	unlock := e.locks.acquire(contentID)
	defer unlock()

	exec := e.getActive(contentID)
	if exec == nil {
		return fmt.Errorf("%w: content %s", workflow.ErrNoActiveExecution, contentID)
	}

	content, def, err := e.loadContext(ctx, exec)
	if err != nil {
		return err
	}

	se := exec.CurrentStage()
	if se == nil || se.StageID != stageID {
		return fmt.Errorf("%w: stage %s", workflow.ErrStageMismatch, stageID)
	}
	if stageEnded(se) {
		// Parked for revision: the stage record is closed until resubmission.
		return fmt.Errorf("%w: stage %s is not in progress", workflow.ErrStageMismatch, stageID)
	}
	stage := def.StageByID(se.StageID)
	if stage == nil {
		return fmt.Errorf("stage %s missing from definition %s", se.StageID, def.ID)
	}

	if !se.HasAssignee(userID) {
		return fmt.Errorf("%w: user %s", workflow.ErrUnauthorized, userID)
	}
	if recordAction == entity.ActionApproved &&
		userID == content.AuthorID && !stage.Requirements.AllowSelfApproval {
		return fmt.Errorf("%w: self-approval not allowed for user %s", workflow.ErrUnauthorized, userID)
	}
	if se.HasActed(userID) {
		return fmt.Errorf("%w: user %s on stage %s", workflow.ErrAlreadyActed, userID, stageID)
	}

	// Snapshot before the first mutation so a failed save rolls back to
	// the state the repository still holds.
	t := e.newTxn(ctx, content, def, exec)

	se.Approvals = append(se.Approvals, entity.ApprovalRecord{
		UserID:    userID,
		Action:    recordAction,
		Timestamp: e.now(),
		Comments:  action.Comments,
	})
	stageActions.WithLabelValues(recordAction).Inc()

	t.audit(userID, "stage_action", fmt.Sprintf("stage=%s action=%s", stageID, recordAction))
	t.event(event.New(event.TypeStageActionProcessed, contentID, map[string]interface{}{
		"action": recordAction,
	}).WithStage(stageID).WithUser(userID))
	t.notify(content.AuthorID, "stage_action",
		"Review activity on your content",
		fmt.Sprintf("%s recorded %s on stage %s", userID, recordAction, stage.Name), false)

	if err := e.evaluateStageOutcome(t, stage, se); err != nil {
		t.rollback()
		return err
	}
	return e.finish(t)
}

// CancelWorkflow cancels the active execution for a content item. A
// second cancellation fails with ErrNoActiveExecution since no active
// execution remains.
func (e *Engine) CancelWorkflow(ctx context.Context, contentID, reason string) error {
	unlock := e.locks.acquire(contentID)
	defer unlock()

	exec := e.getActive(contentID)
	if exec == nil {
		return fmt.Errorf("%w: content %s", workflow.ErrNoActiveExecution, contentID)
	}

	content, err := e.contents.FindByID(ctx, contentID)
	if err != nil {
		return fmt.Errorf("failed to load content %s: %w", contentID, err)
	}
	if content == nil {
		return fmt.Errorf("%w: content %s", workflow.ErrNotFound, contentID)
	}
	content.Execution = exec

	t := e.newTxn(ctx, content, nil, exec)
	if reason == "" {
		reason = "cancelled by caller"
	}
	t.audit(entity.SystemUserID, "workflow_cancelled", reason)
	if err := e.cancelExecution(t, reason, entity.ContentStatusCancelled); err != nil {
		t.rollback()
		return err
	}
	return e.finish(t)
}

// ResubmitAfterRevision restarts the current stage after the author has
// revised the content. The restarted stage gets a fresh stage execution
// with cleared approvals; assignees are re-resolved and timers re-armed.
func (e *Engine) ResubmitAfterRevision(ctx context.Context, contentID string) error {
	unlock := e.locks.acquire(contentID)
	defer unlock()

	exec := e.getActive(contentID)
	if exec == nil {
		return fmt.Errorf("%w: content %s", workflow.ErrNoActiveExecution, contentID)
	}

	content, def, err := e.loadContext(ctx, exec)
	if err != nil {
		return err
	}
	if content.Status != entity.ContentStatusRevisionRequested {
		return fmt.Errorf("%w: content %s is not awaiting revision", workflow.ErrInvalidTransition, contentID)
	}

	t := e.newTxn(ctx, content, def, exec)
	content.Status = entity.ContentStatusInReview
	delete(exec.Metadata, "revision_stage_id")

	t.audit(content.AuthorID, "content_resubmitted", fmt.Sprintf("stage_index=%d", exec.CurrentStageIndex))
	if err := e.startStage(t, exec.CurrentStageIndex); err != nil {
		t.rollback()
		return err
	}
	return e.finish(t)
}

// GetExecution returns the execution for a content item: the live one
// when active, otherwise the last persisted snapshot.
func (e *Engine) GetExecution(ctx context.Context, contentID string) (*entity.WorkflowExecution, error) {
	if exec := e.getActive(contentID); exec != nil {
		return exec, nil
	}

	content, err := e.contents.FindByID(ctx, contentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load content %s: %w", contentID, err)
	}
	if content == nil || content.Execution == nil {
		return nil, fmt.Errorf("%w: no execution for content %s", workflow.ErrNotFound, contentID)
	}
	return content.Execution, nil
}

// Close stops all timers and waits for in-flight event handlers.
func (e *Engine) Close() {
	e.scheduler.Stop()
}

func mapActionType(t string) (string, error) {
	switch t {
	case ActionApprove:
		return entity.ActionApproved, nil
	case ActionReject:
		return entity.ActionRejected, nil
	case ActionRevisionRequest:
		return entity.ActionRevisionRequested, nil
	default:
		return "", fmt.Errorf("unknown action type %q", t)
	}
}

// loadContext loads the content record and definition for an active
// execution, re-attaching the in-memory execution to the content record.
func (e *Engine) loadContext(ctx context.Context, exec *entity.WorkflowExecution) (*entity.Content, *entity.WorkflowDefinition, error) {
	content, err := e.contents.FindByID(ctx, exec.ContentID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load content %s: %w", exec.ContentID, err)
	}
	if content == nil {
		return nil, nil, fmt.Errorf("%w: content %s", workflow.ErrNotFound, exec.ContentID)
	}
	content.Execution = exec

	def := e.registry.Get(exec.WorkflowID)
	if def == nil {
		return nil, nil, fmt.Errorf("workflow definition %s is no longer loaded", exec.WorkflowID)
	}
	return content, def, nil
}

func (e *Engine) getActive(contentID string) *entity.WorkflowExecution {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.active[contentID]
}

func (e *Engine) setActive(exec *entity.WorkflowExecution) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active[exec.ContentID] = exec
}

func (e *Engine) removeActive(contentID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.active, contentID)
}

// ActiveCount returns the number of in-flight executions.
func (e *Engine) ActiveCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.active)
}
