package dispatch

import "github.com/dshills/gesturekit/internal/gesture"

// Step is one callback invocation of a plan.
type Step struct {
	Callback gesture.CallbackKind
	// Success is passed to end and finalize.
	Success bool
}

// Plan is the ordered list of callbacks a state change triggers.
type Plan struct {
	Steps []Step
	// ResetCache clears the last-update cache of the tag before the steps run.
	ResetCache bool
}

// Empty reports whether the plan does nothing.
func (p Plan) Empty() bool {
	return len(p.Steps) == 0 && !p.ResetCache
}

// Plans are shared and must not be modified.
var (
	planNone  = Plan{}
	planBegin = Plan{Steps: []Step{{Callback: gesture.CallbackBegin}}}
	planStart = Plan{Steps: []Step{{Callback: gesture.CallbackStart}}, ResetCache: true}

	planEndSuccess = Plan{Steps: []Step{
		{Callback: gesture.CallbackEnd, Success: true},
		{Callback: gesture.CallbackFinalize, Success: true},
	}, ResetCache: true}
	planFinalizeSuccess = Plan{Steps: []Step{
		{Callback: gesture.CallbackFinalize, Success: true},
	}, ResetCache: true}

	planEndFailure = Plan{Steps: []Step{
		{Callback: gesture.CallbackEnd},
		{Callback: gesture.CallbackFinalize},
	}, ResetCache: true}
	planFinalizeFailure = Plan{Steps: []Step{
		{Callback: gesture.CallbackFinalize},
	}, ResetCache: true}
)

// PlanStateChange returns the callbacks to invoke for a transition from
// old to next. Transitions that do not change the state, and transitions
// that have no callback, yield an empty plan. It does not allocate.
func PlanStateChange(old, next gesture.State) Plan {
	if old == next {
		return planNone
	}
	switch next {
	case gesture.StateBegan:
		if old == gesture.StateUndetermined {
			return planBegin
		}
	case gesture.StateActive:
		if old == gesture.StateBegan || old == gesture.StateUndetermined {
			return planStart
		}
	case gesture.StateEnd:
		if old == gesture.StateActive {
			return planEndSuccess
		}
		return planFinalizeSuccess
	case gesture.StateFailed, gesture.StateCancelled:
		if old == gesture.StateActive {
			return planEndFailure
		}
		return planFinalizeFailure
	}
	return planNone
}
