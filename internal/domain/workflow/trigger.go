package workflow

// Trigger represents an event that can cause a state transition.
type Trigger string

const (
	// Stage triggers
	TriggerStart    Trigger = "START"
	TriggerComplete Trigger = "COMPLETE"
	TriggerSkip     Trigger = "SKIP"
	TriggerEscalate Trigger = "ESCALATE"

	// Execution triggers
	TriggerFinish Trigger = "FINISH"
	TriggerCancel Trigger = "CANCEL"
	TriggerFail   Trigger = "FAIL"
)

// String returns the string representation of the trigger.
func (t Trigger) String() string {
	return string(t)
}
