package gesture

// CallbackKind identifies one callback slot.
type CallbackKind uint8

const (
	CallbackBegin CallbackKind = iota
	CallbackStart
	CallbackUpdate
	CallbackChange
	CallbackEnd
	CallbackFinalize
	CallbackTouchesDown
	CallbackTouchesMove
	CallbackTouchesUp
	CallbackTouchesCancelled

	numCallbackKinds
)

var callbackNames = [numCallbackKinds]string{
	CallbackBegin:            "begin",
	CallbackStart:            "start",
	CallbackUpdate:           "update",
	CallbackChange:           "change",
	CallbackEnd:              "end",
	CallbackFinalize:         "finalize",
	CallbackTouchesDown:      "touchesDown",
	CallbackTouchesMove:      "touchesMove",
	CallbackTouchesUp:        "touchesUp",
	CallbackTouchesCancelled: "touchesCancelled",
}

// String returns the callback name.
func (k CallbackKind) String() string {
	if k < numCallbackKinds {
		return callbackNames[k]
	}
	return "unknown"
}

// TouchCallback maps a touch phase to its callback slot.
// It returns false for TouchUndetermined.
func TouchCallback(p TouchPhase) (CallbackKind, bool) {
	switch p {
	case TouchDown:
		return CallbackTouchesDown, true
	case TouchMove:
		return CallbackTouchesMove, true
	case TouchUp:
		return CallbackTouchesUp, true
	case TouchCancelled:
		return CallbackTouchesCancelled, true
	}
	return 0, false
}

// StateController lets a touch callback force the state of its recognizer.
// Implementations live in package dispatch.
type StateController interface {
	Tag() Tag
	Begin() error
	Activate() error
	Fail() error
	End() error
}

// StateFunc receives begin and start transitions.
type StateFunc func(StateChange)

// TerminalFunc receives end and finalize transitions.
type TerminalFunc func(StateChange, bool)

// UpdateFunc receives update and change payloads.
type UpdateFunc func(Update)

// TouchFunc receives touch events together with a controller bound to the
// recognizer that reported them.
type TouchFunc func(Touch, StateController)

// Callbacks is the fixed set of callback slots of a descriptor.
// Each set slot remembers the execution context it was registered under.
type Callbacks struct {
	Begin            StateFunc
	Start            StateFunc
	End              TerminalFunc
	Finalize         TerminalFunc
	Update           UpdateFunc
	Change           UpdateFunc
	TouchesDown      TouchFunc
	TouchesMove      TouchFunc
	TouchesUp        TouchFunc
	TouchesCancelled TouchFunc

	set      uint16
	contexts [numCallbackKinds]ExecutionContext
}

// Has reports whether slot k holds a callback.
func (c Callbacks) Has(k CallbackKind) bool {
	return c.set&(1<<k) != 0
}

// Context returns the execution context slot k was registered under.
func (c Callbacks) Context(k CallbackKind) (ExecutionContext, bool) {
	if !c.Has(k) {
		return Deferred, false
	}
	return c.contexts[k], true
}

// Registered returns the kinds of every set slot in slot order.
func (c Callbacks) Registered() []CallbackKind {
	var out []CallbackKind
	for k := CallbackKind(0); k < numCallbackKinds; k++ {
		if c.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

// Touch returns the touch callback for slot k.
func (c Callbacks) Touch(k CallbackKind) TouchFunc {
	switch k {
	case CallbackTouchesDown:
		return c.TouchesDown
	case CallbackTouchesMove:
		return c.TouchesMove
	case CallbackTouchesUp:
		return c.TouchesUp
	case CallbackTouchesCancelled:
		return c.TouchesCancelled
	}
	return nil
}

// mark records that slot k was set under ctx.
func (c *Callbacks) mark(k CallbackKind, ctx ExecutionContext) {
	c.set |= 1 << k
	c.contexts[k] = ctx
}

// conflicts reports whether any set slot was registered under a context
// other than ctx.
func (c Callbacks) conflicts(ctx ExecutionContext) bool {
	for k := CallbackKind(0); k < numCallbackKinds; k++ {
		if c.Has(k) && c.contexts[k] != ctx {
			return true
		}
	}
	return false
}
