package session

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g. Ctrl+C).
	ErrAborted = errors.New("session: aborted")
	// ErrTooManyAttempts is returned when a field keeps failing validation.
	ErrTooManyAttempts = errors.New("session: too many invalid attempts")
	// ErrInvalid is returned when the form still has errors at submit time.
	ErrInvalid = errors.New("session: form has errors")
)
