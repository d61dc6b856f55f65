package gesture

import (
	"errors"
	"maps"
	"time"

	"github.com/google/uuid"
)

// Config is the native configuration of a recognizer.
// Values are bool, int, float64 or string.
type Config map[string]any

// Clone returns a copy of c.
func (c Config) Clone() Config {
	out := make(Config, len(c))
	maps.Copy(out, c)
	return out
}

// Descriptor describes one recognizer: configuration, callbacks and
// relations. Setters return the descriptor so calls can be chained.
// Setting a callback twice replaces it.
//
// A Descriptor is built and mutated on the deferred context only.
type Descriptor struct {
	tag         Tag
	kind        Kind
	fingerprint uuid.UUID
	name        string
	context     ExecutionContext
	config      Config
	callbacks   Callbacks
	calculator  Calculator
	continuous  bool

	declared Relations
	composed Relations

	errs []error
}

// Tag returns the handler tag.
func (d *Descriptor) Tag() Tag { return d.tag }

// Kind returns the recognizer kind.
func (d *Descriptor) Kind() Kind { return d.kind }

// Fingerprint identifies this descriptor instance. A rebuilt descriptor
// gets a new fingerprint even when it inherits the tag of its predecessor.
func (d *Descriptor) Fingerprint() uuid.UUID { return d.fingerprint }

// Name returns the lookup name set with WithName.
func (d *Descriptor) Name() string { return d.name }

// Context returns the execution context callbacks are dispatched on.
func (d *Descriptor) Context() ExecutionContext { return d.context }

// Config returns a copy of the native configuration.
func (d *Descriptor) Config() Config { return d.config.Clone() }

// Callbacks returns a copy of the callback set.
func (d *Descriptor) Callbacks() Callbacks { return d.callbacks }

// Calculator returns the change calculator used for the change callback.
func (d *Descriptor) Calculator() Calculator { return d.calculator }

// NeedsContinuousTracking reports whether updates must be cached between
// events for change computation.
func (d *Descriptor) NeedsContinuousTracking() bool { return d.continuous }

// Ref implements Referent.
func (d *Descriptor) Ref() Ref { return Ref{desc: d} }

// Leaves returns d itself; a descriptor is a composition of one.
func (d *Descriptor) Leaves() []*Descriptor { return []*Descriptor{d} }

// DeclaredRelations returns the relations set directly on d.
func (d *Descriptor) DeclaredRelations() Relations { return d.declared.Clone() }

// Relations returns the declared relations extended with the ones derived
// from composition.
func (d *Descriptor) Relations() Relations { return d.declared.union(d.composed) }

// ClearComposedRelations drops every relation derived from composition.
func (d *Descriptor) ClearComposedRelations() {
	d.composed = Relations{}
}

// ExtendComposedRelations adds composition-derived relations.
func (d *Descriptor) ExtendComposedRelations(simultaneous, requireToFail []*Descriptor) {
	for _, o := range simultaneous {
		if o != nil && o != d {
			d.composed.SimultaneousWith = appendUnique(d.composed.SimultaneousWith, o.Ref())
		}
	}
	for _, o := range requireToFail {
		if o != nil && o != d {
			d.composed.RequireToFail = appendUnique(d.composed.RequireToFail, o.Ref())
		}
	}
}

// AdoptTag gives d the tag of a live recognizer, so a rebuilt descriptor
// keeps addressing it.
func (d *Descriptor) AdoptTag(tag Tag) {
	d.tag = tag
}

// Validate returns a *ConfigError listing every problem recorded while
// building d, or nil.
func (d *Descriptor) Validate() error {
	errs := append([]error(nil), d.errs...)
	if d.callbacks.conflicts(d.context) {
		errs = append(errs, ErrMixedContexts)
	}
	for _, list := range [][]Ref{d.declared.SimultaneousWith, d.declared.RequireToFail, d.declared.Blocks} {
		for _, r := range list {
			if r.Target() == d {
				errs = append(errs, ErrSelfRelation)
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return &ConfigError{Tag: d.tag, Kind: d.kind, Err: errors.Join(errs...)}
}

// Set stores a raw native option. Unsupported options are recorded as
// configuration errors.
func (d *Descriptor) Set(option string, value any) *Descriptor {
	if !d.kind.Supports(option) {
		d.errs = append(d.errs, &optionError{option: option, kind: d.kind})
		return d
	}
	d.config[option] = value
	return d
}

// RunOn selects the execution context for callbacks registered after it.
func (d *Descriptor) RunOn(ctx ExecutionContext) *Descriptor {
	d.context = ctx
	return d
}

// WithName sets a name the registry indexes the descriptor under.
func (d *Descriptor) WithName(name string) *Descriptor {
	d.name = name
	if name == "" {
		delete(d.config, OptTestID)
		return d
	}
	d.config[OptTestID] = name
	return d
}

// Relations.

// SimultaneousWith lets d be active together with others.
func (d *Descriptor) SimultaneousWith(others ...Referent) *Descriptor {
	d.declared.SimultaneousWith = appendUnique(d.declared.SimultaneousWith, refsOf(others)...)
	return d
}

// RequireToFail keeps d from activating until every other has failed.
func (d *Descriptor) RequireToFail(others ...Referent) *Descriptor {
	d.declared.RequireToFail = appendUnique(d.declared.RequireToFail, refsOf(others)...)
	return d
}

// BlocksExternal makes others wait for d to fail before activating.
func (d *Descriptor) BlocksExternal(others ...Referent) *Descriptor {
	d.declared.Blocks = appendUnique(d.declared.Blocks, refsOf(others)...)
	return d
}

// Callbacks.

// OnBegin sets the callback run when the recognizer starts receiving
// touches.
func (d *Descriptor) OnBegin(fn StateFunc) *Descriptor {
	d.callbacks.Begin = fn
	d.callbacks.mark(CallbackBegin, d.context)
	return d
}

// OnStart sets the callback run when the gesture activates.
func (d *Descriptor) OnStart(fn StateFunc) *Descriptor {
	d.callbacks.Start = fn
	d.callbacks.mark(CallbackStart, d.context)
	return d
}

// OnEnd sets the callback run when an active gesture ends. success is false
// when it was cancelled or failed.
func (d *Descriptor) OnEnd(fn TerminalFunc) *Descriptor {
	d.callbacks.End = fn
	d.callbacks.mark(CallbackEnd, d.context)
	return d
}

// OnFinalize sets the callback run after every terminal transition, after
// OnEnd when both fire.
func (d *Descriptor) OnFinalize(fn TerminalFunc) *Descriptor {
	d.callbacks.Finalize = fn
	d.callbacks.mark(CallbackFinalize, d.context)
	return d
}

// OnUpdate is available on continuous gestures only.
func (d *Descriptor) OnUpdate(fn UpdateFunc) *Descriptor {
	if !d.kind.IsContinuous() {
		d.errs = append(d.errs, ErrNotContinuous)
		return d
	}
	d.callbacks.Update = fn
	d.callbacks.mark(CallbackUpdate, d.context)
	return d
}

// OnChange is available on continuous gestures only. It marks d as
// needing continuous tracking so the previous update can be diffed.
func (d *Descriptor) OnChange(fn UpdateFunc) *Descriptor {
	if !d.kind.IsContinuous() {
		d.errs = append(d.errs, ErrNotContinuous)
		return d
	}
	d.callbacks.Change = fn
	d.callbacks.mark(CallbackChange, d.context)
	d.continuous = true
	if d.calculator == nil {
		d.calculator = CalculatorFor(d.kind)
	}
	return d
}

// OnTouchesDown sets the callback for pointers going down. Touch callbacks
// turn on pointer data.
func (d *Descriptor) OnTouchesDown(fn TouchFunc) *Descriptor {
	return d.onTouch(CallbackTouchesDown, fn)
}

// OnTouchesMove sets the callback for pointer movement.
func (d *Descriptor) OnTouchesMove(fn TouchFunc) *Descriptor {
	return d.onTouch(CallbackTouchesMove, fn)
}

// OnTouchesUp sets the callback for pointers lifting.
func (d *Descriptor) OnTouchesUp(fn TouchFunc) *Descriptor {
	return d.onTouch(CallbackTouchesUp, fn)
}

// OnTouchesCancelled sets the callback for pointers the platform cancelled.
func (d *Descriptor) OnTouchesCancelled(fn TouchFunc) *Descriptor {
	return d.onTouch(CallbackTouchesCancelled, fn)
}

func (d *Descriptor) onTouch(k CallbackKind, fn TouchFunc) *Descriptor {
	switch k {
	case CallbackTouchesDown:
		d.callbacks.TouchesDown = fn
	case CallbackTouchesMove:
		d.callbacks.TouchesMove = fn
	case CallbackTouchesUp:
		d.callbacks.TouchesUp = fn
	case CallbackTouchesCancelled:
		d.callbacks.TouchesCancelled = fn
	}
	d.callbacks.mark(k, d.context)
	d.config[OptNeedsPointerData] = true
	return d
}

// Common options.

// Enabled turns the recognizer on or off without detaching it.
func (d *Descriptor) Enabled(v bool) *Descriptor { return d.Set(OptEnabled, v) }

// ShouldCancelWhenOutside cancels the gesture when the pointer leaves the
// view.
func (d *Descriptor) ShouldCancelWhenOutside(v bool) *Descriptor {
	return d.Set(OptShouldCancelWhenOutside, v)
}

// HitSlop extends the touch area of the view by v points.
func (d *Descriptor) HitSlop(v float64) *Descriptor { return d.Set(OptHitSlop, v) }

// CancelsTouchesInView cancels the view's own touches once the gesture
// activates.
func (d *Descriptor) CancelsTouchesInView(v bool) *Descriptor {
	return d.Set(OptCancelsTouchesInView, v)
}

// ManualActivation keeps a continuous gesture from activating on its own;
// it must be driven through a StateController.
func (d *Descriptor) ManualActivation(v bool) *Descriptor {
	if !d.kind.IsContinuous() {
		d.errs = append(d.errs, ErrNotContinuous)
		return d
	}
	return d.Set(OptManualActivation, v)
}

// Tap options.

// NumberOfTaps sets how many taps are needed.
func (d *Descriptor) NumberOfTaps(n int) *Descriptor { return d.Set(OptNumberOfTaps, n) }

// MaxDuration sets the longest a tap may be held.
func (d *Descriptor) MaxDuration(v time.Duration) *Descriptor {
	return d.Set(OptMaxDuration, int(v/time.Millisecond))
}

// MaxDelay sets the longest pause between taps.
func (d *Descriptor) MaxDelay(v time.Duration) *Descriptor {
	return d.Set(OptMaxDelay, int(v/time.Millisecond))
}

// MaxDistance sets how far the pointer may travel before the gesture fails.
func (d *Descriptor) MaxDistance(v float64) *Descriptor { return d.Set(OptMaxDist, v) }

// MinPointers sets the number of pointers needed to begin.
func (d *Descriptor) MinPointers(n int) *Descriptor { return d.Set(OptMinPointers, n) }

// Pan options.

// MinDistance sets the distance the pointer must travel to activate.
func (d *Descriptor) MinDistance(v float64) *Descriptor { return d.Set(OptMinDist, v) }

// MaxPointers sets the most pointers the gesture tracks.
func (d *Descriptor) MaxPointers(n int) *Descriptor { return d.Set(OptMaxPointers, n) }

// AverageTouches reports translation as the average of all pointers.
func (d *Descriptor) AverageTouches(v bool) *Descriptor { return d.Set(OptAverageTouches, v) }

// ActiveOffsetX sets the horizontal range the finger must leave to activate.
func (d *Descriptor) ActiveOffsetX(start, end float64) *Descriptor {
	return d.Set(OptActiveOffsetXStart, start).Set(OptActiveOffsetXEnd, end)
}

// ActiveOffsetY sets the vertical range the finger must leave to activate.
func (d *Descriptor) ActiveOffsetY(start, end float64) *Descriptor {
	return d.Set(OptActiveOffsetYStart, start).Set(OptActiveOffsetYEnd, end)
}

// FailOffsetX sets the horizontal range the finger must stay in.
func (d *Descriptor) FailOffsetX(start, end float64) *Descriptor {
	return d.Set(OptFailOffsetXStart, start).Set(OptFailOffsetXEnd, end)
}

// FailOffsetY sets the vertical range the finger must stay in.
func (d *Descriptor) FailOffsetY(start, end float64) *Descriptor {
	return d.Set(OptFailOffsetYStart, start).Set(OptFailOffsetYEnd, end)
}

// Long press options.

// MinDuration sets how long the press must be held.
func (d *Descriptor) MinDuration(v time.Duration) *Descriptor {
	return d.Set(OptMinDuration, int(v/time.Millisecond))
}

// Fling options.

// Direction sets the directions a fling is recognized in.
func (d *Descriptor) Direction(dir Direction) *Descriptor { return d.Set(OptDirection, int(dir)) }

// NumberOfPointers sets the exact number of pointers of a fling.
func (d *Descriptor) NumberOfPointers(n int) *Descriptor { return d.Set(OptNumberOfPointers, n) }

// Force touch options.

// MinForce sets the pressure needed to activate.
func (d *Descriptor) MinForce(v float64) *Descriptor { return d.Set(OptMinForce, v) }

// MaxForce sets the pressure above which the gesture fails.
func (d *Descriptor) MaxForce(v float64) *Descriptor { return d.Set(OptMaxForce, v) }

// FeedbackOnActivation plays haptic feedback when the gesture activates.
func (d *Descriptor) FeedbackOnActivation(v bool) *Descriptor {
	return d.Set(OptFeedbackOnActivation, v)
}

// Native view options.

// ShouldActivateOnStart activates the native view gesture as soon as it
// begins.
func (d *Descriptor) ShouldActivateOnStart(v bool) *Descriptor {
	return d.Set(OptShouldActivateOnStart, v)
}

// DisallowInterruption keeps other gestures from cancelling the active one.
func (d *Descriptor) DisallowInterruption(v bool) *Descriptor {
	return d.Set(OptDisallowInterruption, v)
}
