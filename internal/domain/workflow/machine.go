package workflow

import "fmt"

// Machine validates state transitions for one lifecycle (stage or
// execution). Configure transitions with Permit, then drive it with Fire.
type Machine struct {
	current     State
	transitions map[State]map[Trigger]State
}

// NewMachine creates a machine positioned at the given initial state.
func NewMachine(initial State) *Machine {
	return &Machine{
		current:     initial,
		transitions: make(map[State]map[Trigger]State),
	}
}

// Permit allows the trigger to move the machine from one state to another.
// Terminal states accept no outgoing transitions.
func (m *Machine) Permit(from State, trigger Trigger, to State) *Machine {
	if from.IsTerminal() {
		panic(fmt.Sprintf("terminal state %s cannot have outgoing transitions", from))
	}
	if m.transitions[from] == nil {
		m.transitions[from] = make(map[Trigger]State)
	}
	m.transitions[from][trigger] = to
	return m
}

// State returns the current state.
func (m *Machine) State() State {
	return m.current
}

// CanFire returns true if the trigger is permitted in the current state.
func (m *Machine) CanFire(trigger Trigger) bool {
	_, ok := m.transitions[m.current][trigger]
	return ok
}

// Fire executes the trigger, transitioning to the configured target state.
func (m *Machine) Fire(trigger Trigger) error {
	to, ok := m.transitions[m.current][trigger]
	if !ok {
		return fmt.Errorf("%w: trigger %s from state %s", ErrInvalidTransition, trigger, m.current)
	}
	m.current = to
	return nil
}

// NewExecutionMachine builds the execution lifecycle machine:
// active -> {completed, cancelled, error}, all terminal.
func NewExecutionMachine(initial State) *Machine {
	m := NewMachine(initial)
	m.Permit(ExecActive, TriggerFinish, ExecCompleted)
	m.Permit(ExecActive, TriggerCancel, ExecCancelled)
	m.Permit(ExecActive, TriggerFail, ExecError)
	return m
}

// NewStageMachine builds the stage lifecycle machine:
// pending -> in_progress -> {completed, skipped, escalated}; an escalated
// stage can still complete or be skipped.
func NewStageMachine(initial State) *Machine {
	m := NewMachine(initial)
	m.Permit(StagePending, TriggerStart, StageInProgress)
	m.Permit(StageInProgress, TriggerComplete, StageCompleted)
	m.Permit(StageInProgress, TriggerSkip, StageSkipped)
	m.Permit(StageInProgress, TriggerEscalate, StageEscalated)
	m.Permit(StageEscalated, TriggerComplete, StageCompleted)
	m.Permit(StageEscalated, TriggerSkip, StageSkipped)
	return m
}
