package native

import "errors"

// Sentinel errors reported by the Recorder.
var (
	// ErrUnknownKind is returned when no native recognizer exists for a kind.
	ErrUnknownKind = errors.New("unknown native gesture handler")

	// ErrUnknownHandler is returned for commands naming a tag that was never
	// created or was already dropped.
	ErrUnknownHandler = errors.New("no native handler with tag")

	// ErrAlreadyExists is returned when creating a tag twice.
	ErrAlreadyExists = errors.New("native handler already exists")

	// ErrInjected is returned by commands configured to fail.
	ErrInjected = errors.New("injected native failure")
)
