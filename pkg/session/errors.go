package session

import "errors"

var (
	// ErrSessionNotFound indicates the session ID is unknown to the manager.
	ErrSessionNotFound = errors.New("session not found")

	// ErrNotAwaitingConfirmation indicates a confirmation arrived while the
	// pipeline was not paused at a gate.
	ErrNotAwaitingConfirmation = errors.New("session is not awaiting confirmation")

	// ErrWrongConfirmationType indicates a confirmation arrived for a gate
	// other than the one the pipeline is paused at.
	ErrWrongConfirmationType = errors.New("confirmation type does not match pending gate")

	// ErrConfirmationPending indicates a confirmation is already queued and
	// has not been consumed yet.
	ErrConfirmationPending = errors.New("a confirmation is already pending")

	// ErrConfirmationTimeout indicates no confirmation arrived within the
	// configured window.
	ErrConfirmationTimeout = errors.New("timed out waiting for confirmation")

	// ErrSessionClosed indicates the session's confirmation channel was
	// closed while a waiter was blocked on it.
	ErrSessionClosed = errors.New("session closed")
)
