package research

import "errors"

var (
	// ErrNotFound is returned when a task id is not present in the registry.
	ErrNotFound = errors.New("research task not found")

	// ErrInvalidState is returned when an operation is not allowed in the task's current phase.
	ErrInvalidState = errors.New("research task is in an invalid state for this operation")

	// ErrConfiguration is returned when a capability (search or text generation) is not configured.
	ErrConfiguration = errors.New("research capabilities are not configured")

	// ErrValidation is returned for malformed start parameters.
	ErrValidation = errors.New("invalid research parameters")

	// ErrTooManyTasks is returned when the active task limit is reached.
	ErrTooManyTasks = errors.New("too many active research tasks")

	errEventLogClosed = errors.New("event log is closed")
)
