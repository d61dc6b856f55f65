package gesture

import (
	"maps"
	"sort"
	"strconv"
	"strings"
)

// Payload holds the kind-specific numeric fields of an event,
// e.g. translationX for pan or scale for pinch.
type Payload map[string]float64

// Clone returns a copy of p. A nil payload clones to nil.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	return maps.Clone(p)
}

// Merge returns a copy of p with the fields of other laid over it.
func (p Payload) Merge(other Payload) Payload {
	out := make(Payload, len(p)+len(other))
	maps.Copy(out, p)
	maps.Copy(out, other)
	return out
}

// String renders p with sorted keys.
func (p Payload) String() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(k)
		sb.WriteByte(':')
		sb.WriteString(strconv.FormatFloat(p[k], 'g', -1, 64))
	}
	sb.WriteByte('}')
	return sb.String()
}

// Event is a raw event reported by the native layer.
// It is implemented by StateChange, Update and Touch.
type Event interface {
	HandlerTag() Tag
	event()
}

// StateChange reports a discrete state transition of a recognizer.
type StateChange struct {
	Tag      Tag
	OldState State
	State    State
	Pointers int
	Payload  Payload
}

// HandlerTag implements Event.
func (e StateChange) HandlerTag() Tag { return e.Tag }
func (StateChange) event()            {}

// Update reports a continuous update. It carries no state transition.
type Update struct {
	Tag      Tag
	State    State
	Pointers int
	Payload  Payload
}

// HandlerTag implements Event.
func (e Update) HandlerTag() Tag { return e.Tag }
func (Update) event()            {}

// Pointer is one tracked touch point.
type Pointer struct {
	ID        int
	X         float64
	Y         float64
	AbsoluteX float64
	AbsoluteY float64
}

// Touch reports raw pointer activity. It may arrive in any state.
type Touch struct {
	Tag      Tag
	Phase    TouchPhase
	State    State
	Pointers int
	Changed  []Pointer
	All      []Pointer
}

// HandlerTag implements Event.
func (e Touch) HandlerTag() Tag { return e.Tag }
func (Touch) event()            {}
