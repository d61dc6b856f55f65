package scenario

import (
	"errors"
	"fmt"
)

// Sentinel errors for scenario files.
var (
	// ErrUnknownGesture indicates a reference to an undefined gesture name.
	ErrUnknownGesture = errors.New("unknown gesture")

	// ErrUnknownRoot indicates a reference to a root that was never updated.
	ErrUnknownRoot = errors.New("unknown root")

	// ErrInvalidStep indicates a step with no action or more than one.
	ErrInvalidStep = errors.New("invalid step")

	// ErrInvalidTree indicates a malformed gesture tree.
	ErrInvalidTree = errors.New("invalid gesture tree")
)

// StepError ties an error to the 1-based step that caused it.
type StepError struct {
	Step int
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
