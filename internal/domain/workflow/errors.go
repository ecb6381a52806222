package workflow

import "errors"

var (
	// ErrNotFound is returned when the content item or the requested
	// workflow definition does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoWorkflowFound is returned when no definition matches the
	// content item's criteria and no default definition exists.
	ErrNoWorkflowFound = errors.New("no workflow definition found")

	// ErrAlreadyActive is returned when starting a workflow for a content
	// item that already has an active execution.
	ErrAlreadyActive = errors.New("workflow already active for content")

	// ErrNoActiveExecution is returned when an operation targets a content
	// item with no active execution.
	ErrNoActiveExecution = errors.New("no active execution for content")

	// ErrStageMismatch is returned when the stage in the request does not
	// match the execution's current stage.
	ErrStageMismatch = errors.New("stage does not match current stage")

	// ErrUnauthorized is returned when the acting user is not among the
	// current stage's assignees.
	ErrUnauthorized = errors.New("user is not an assignee of the current stage")

	// ErrAlreadyActed is returned when the user already has a recorded
	// decision for the current stage.
	ErrAlreadyActed = errors.New("user already acted on this stage")

	// ErrInvalidTransition is returned when a state transition is not
	// permitted from the current state.
	ErrInvalidTransition = errors.New("invalid state transition")
)
