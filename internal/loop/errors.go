package loop

import "errors"

// Sentinel errors for the loop package.
var (
	// ErrAlreadyRunning is returned when Start is called on a running loop.
	ErrAlreadyRunning = errors.New("loop is already running")

	// ErrNotRunning is returned when Stop or Call is used on a stopped loop.
	ErrNotRunning = errors.New("loop is not running")

	// ErrRunning is returned when Drain is called while the worker runs.
	ErrRunning = errors.New("loop is running; drain is only available when stopped")
)
