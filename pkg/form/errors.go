package form

import "errors"

var (
	// ErrNoController reports that a field or form handle was requested
	// without an active controller.
	ErrNoController = errors.New("form: no active controller")
	// ErrClosed reports use of a controller after Close.
	ErrClosed = errors.New("form: controller is closed")
	// ErrEffectFailed wraps failures returned by effect functions.
	ErrEffectFailed = errors.New("form: effect failed")
	// ErrUnknownAction is raised when the reducer receives a transition it
	// does not handle.
	ErrUnknownAction = errors.New("form: unknown action")
)
