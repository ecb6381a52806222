package entity

import "time"

// Execution status constants
const (
	ExecutionStatusActive    = "active"
	ExecutionStatusCompleted = "completed"
	ExecutionStatusCancelled = "cancelled"
	ExecutionStatusError     = "error"
)

// Stage execution status constants
const (
	StageStatusPending    = "pending"
	StageStatusInProgress = "in_progress"
	StageStatusCompleted  = "completed"
	StageStatusSkipped    = "skipped"
	StageStatusEscalated  = "escalated"
)

// WorkflowExecution is the mutable per-content-item state of one workflow
// run. At most one active execution may exist per content item; terminated
// executions are retained for audit but never mutated again.
type WorkflowExecution struct {
	ID                string            `json:"id"`
	ContentID         string            `json:"content_id"`
	WorkflowID        string            `json:"workflow_id"`
	CurrentStageIndex int               `json:"current_stage_index"`
	StageHistory      []StageExecution  `json:"stage_history"`
	Status            string            `json:"status"`
	StartedAt         time.Time         `json:"started_at"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

// StageExecution is one append-only entry in the execution's stage history.
type StageExecution struct {
	StageID     string           `json:"stage_id"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	Assignees   []string         `json:"assignees"`
	Approvals   []ApprovalRecord `json:"approvals"`
	Status      string           `json:"status"`
}

// ApprovalRecord is one user's recorded decision on a stage. A user may
// appear at most once per stage execution.
type ApprovalRecord struct {
	UserID    string    `json:"user_id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	Comments  string    `json:"comments,omitempty"`
}

// IsActive reports whether the execution is still in flight.
func (e *WorkflowExecution) IsActive() bool {
	return e.Status == ExecutionStatusActive
}

// Clone returns a deep copy of the execution, detached from the
// original's slices and maps. Used to restore in-memory state when a
// mutation cannot be persisted.
func (e *WorkflowExecution) Clone() *WorkflowExecution {
	if e == nil {
		return nil
	}
	c := *e
	if e.CompletedAt != nil {
		done := *e.CompletedAt
		c.CompletedAt = &done
	}
	if e.Metadata != nil {
		c.Metadata = make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			c.Metadata[k] = v
		}
	}
	c.StageHistory = make([]StageExecution, len(e.StageHistory))
	for i := range e.StageHistory {
		c.StageHistory[i] = e.StageHistory[i].clone()
	}
	return &c
}

func (s StageExecution) clone() StageExecution {
	c := s
	if s.CompletedAt != nil {
		done := *s.CompletedAt
		c.CompletedAt = &done
	}
	c.Assignees = append([]string(nil), s.Assignees...)
	c.Approvals = append([]ApprovalRecord(nil), s.Approvals...)
	return c
}

// CurrentStage returns the live stage execution. The history is
// append-only and a revision restart appends a fresh entry for the same
// stage, so the live entry is always the last one.
func (e *WorkflowExecution) CurrentStage() *StageExecution {
	if len(e.StageHistory) == 0 {
		return nil
	}
	return &e.StageHistory[len(e.StageHistory)-1]
}

// LastActivity returns the most recent timestamp recorded anywhere on the
// execution: stage starts, completions and approvals. Used by the
// stalled-workflow monitor.
func (e *WorkflowExecution) LastActivity() time.Time {
	last := e.StartedAt
	for i := range e.StageHistory {
		se := &e.StageHistory[i]
		if se.StartedAt.After(last) {
			last = se.StartedAt
		}
		if se.CompletedAt != nil && se.CompletedAt.After(last) {
			last = *se.CompletedAt
		}
		for _, a := range se.Approvals {
			if a.Timestamp.After(last) {
				last = a.Timestamp
			}
		}
	}
	return last
}

// HasActed reports whether the user already has a recorded decision on
// this stage execution.
func (s *StageExecution) HasActed(userID string) bool {
	for _, a := range s.Approvals {
		if a.UserID == userID {
			return true
		}
	}
	return false
}

// HasAssignee reports whether the user is currently assigned to the stage.
func (s *StageExecution) HasAssignee(userID string) bool {
	for _, a := range s.Assignees {
		if a == userID {
			return true
		}
	}
	return false
}

// CountAction returns the number of recorded decisions with the given
// action type.
func (s *StageExecution) CountAction(action string) int {
	n := 0
	for _, a := range s.Approvals {
		if a.Action == action {
			n++
		}
	}
	return n
}
