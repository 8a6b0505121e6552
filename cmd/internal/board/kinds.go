package board

import "errors"

// Error kinds raised by the board core. Callers branch on these with
// errors.Is; the HTTP boundary maps each kind to a status code.
var (
	// ErrInvalidInput marks malformed caller input (empty title, bad status
	// string, bad id).
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidTransition marks a (from, to) status pair that is not an edge
	// of the workflow graph, for any actor.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrForbidden marks an authenticated actor whose role or relationship to
	// the task does not permit the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound marks a missing task or a dangling user reference.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a write that lost to a concurrent mutation of the
	// same task.
	ErrConflict = errors.New("conflict")
)
