package workflow

// State represents a node in either the execution or the stage lifecycle.
type State string

// Execution lifecycle states.
const (
	ExecActive    State = "active"
	ExecCompleted State = "completed"
	ExecCancelled State = "cancelled"
	ExecError     State = "error"
)

// Stage lifecycle states.
const (
	StagePending    State = "pending"
	StageInProgress State = "in_progress"
	StageCompleted  State = "completed"
	StageSkipped    State = "skipped"
	StageEscalated  State = "escalated"
)

// ExecCompleted and StageCompleted share the value "completed", so a
// single entry covers the terminal completion of both lifecycles.
var terminalStates = map[State]bool{
	ExecCompleted: true,
	ExecCancelled: true,
	ExecError:     true,
	StageSkipped:  true,
}

// IsTerminal returns true if no further transitions may leave this state.
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}
