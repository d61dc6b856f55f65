package app

import "errors"

// Engine errors.
var (
	// ErrAlreadyRunning indicates Start was called on a running engine.
	ErrAlreadyRunning = errors.New("engine already running")

	// ErrNotRunning indicates Stop was called on a stopped engine.
	ErrNotRunning = errors.New("engine not running")

	// ErrForeignRoot indicates a root created by another engine.
	ErrForeignRoot = errors.New("root belongs to another engine")
)
