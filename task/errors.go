package task

import "errors"

var (
	// ErrNotFound is returned when a task does not exist.
	ErrNotFound = errors.New("task not found")

	// ErrForbidden is returned when the caller does not own the task it is
	// trying to read or change.
	ErrForbidden = errors.New("task belongs to another owner")

	// ErrInvalidTask is returned when a draft fails validation.
	ErrInvalidTask = errors.New("invalid task")

	// ErrUnauthenticated is returned when an operation that requires a caller
	// identity is invoked without one.
	ErrUnauthenticated = errors.New("caller identity is required")
)
