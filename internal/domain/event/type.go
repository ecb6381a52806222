package event

// Type identifies the type of lifecycle event emitted by the engine.
type Type string

const (
	TypeWorkflowStarted      Type = "workflow.started"
	TypeStageStarted         Type = "stage.started"
	TypeStageActionProcessed Type = "stage.action_processed"
	TypeStageCompleted       Type = "stage.completed"
	TypeStageEscalated       Type = "stage.escalated"
	TypeStageReassigned      Type = "stage.reassigned"
	TypeWorkflowCompleted    Type = "workflow.completed"
	TypeWorkflowCancelled    Type = "workflow.cancelled"
	TypeWorkflowStalled      Type = "workflow.stalled"
)

// String returns the string representation of the event type.
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants.
func (t Type) IsValid() bool {
	switch t {
	case TypeWorkflowStarted,
		TypeStageStarted,
		TypeStageActionProcessed,
		TypeStageCompleted,
		TypeStageEscalated,
		TypeStageReassigned,
		TypeWorkflowCompleted,
		TypeWorkflowCancelled,
		TypeWorkflowStalled:
		return true
	default:
		return false
	}
}
