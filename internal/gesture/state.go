package gesture

import (
	"fmt"
	"strings"
)

// State is the recognizer state reported by the native layer.
// Values match the platform numbering.
type State uint8

const (
	// StateUndetermined is the resting state of a recognizer.
	StateUndetermined State = iota
	// StateFailed means the recognizer gave up on the gesture.
	StateFailed
	// StateBegan means the recognizer started receiving touches.
	StateBegan
	// StateCancelled means the gesture was interrupted.
	StateCancelled
	// StateActive means the gesture was recognized.
	StateActive
	// StateEnd means a recognized gesture finished.
	StateEnd
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUndetermined:
		return "UNDETERMINED"
	case StateFailed:
		return "FAILED"
	case StateBegan:
		return "BEGAN"
	case StateCancelled:
		return "CANCELLED"
	case StateActive:
		return "ACTIVE"
	case StateEnd:
		return "END"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// IsTerminal reports whether s ends a gesture.
func (s State) IsTerminal() bool {
	return s == StateEnd || s == StateFailed || s == StateCancelled
}

// ParseState parses a state name, case-insensitively.
func ParseState(name string) (State, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "UNDETERMINED":
		return StateUndetermined, nil
	case "FAILED":
		return StateFailed, nil
	case "BEGAN":
		return StateBegan, nil
	case "CANCELLED":
		return StateCancelled, nil
	case "ACTIVE":
		return StateActive, nil
	case "END":
		return StateEnd, nil
	default:
		return StateUndetermined, fmt.Errorf("unknown state %q", name)
	}
}

// TouchPhase identifies the pointer phase of a Touch event.
type TouchPhase uint8

const (
	// TouchUndetermined events are never dispatched.
	TouchUndetermined TouchPhase = iota
	TouchDown
	TouchMove
	TouchUp
	TouchCancelled
)

// String returns the phase name.
func (p TouchPhase) String() string {
	switch p {
	case TouchUndetermined:
		return "undetermined"
	case TouchDown:
		return "down"
	case TouchMove:
		return "move"
	case TouchUp:
		return "up"
	case TouchCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ParseTouchPhase parses a phase name.
func ParseTouchPhase(name string) (TouchPhase, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "undetermined", "":
		return TouchUndetermined, nil
	case "down":
		return TouchDown, nil
	case "move":
		return TouchMove, nil
	case "up":
		return TouchUp, nil
	case "cancelled", "canceled":
		return TouchCancelled, nil
	default:
		return TouchUndetermined, fmt.Errorf("unknown touch phase %q", name)
	}
}

// ExecutionContext selects where callbacks of a descriptor run.
type ExecutionContext uint8

const (
	// Deferred callbacks run on the task queue shared with the UI layer.
	Deferred ExecutionContext = iota
	// Synchronous callbacks run inline on the real-time input context.
	Synchronous
)

// String returns the context name.
func (c ExecutionContext) String() string {
	switch c {
	case Deferred:
		return "deferred"
	case Synchronous:
		return "synchronous"
	default:
		return "unknown"
	}
}

// ParseExecutionContext parses "deferred" or "synchronous".
func ParseExecutionContext(name string) (ExecutionContext, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "deferred", "":
		return Deferred, nil
	case "synchronous", "sync":
		return Synchronous, nil
	default:
		return Deferred, fmt.Errorf("unknown execution context %q", name)
	}
}
