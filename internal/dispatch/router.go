package dispatch

import (
	"sync/atomic"

	"github.com/dshills/gesturekit/internal/gesture"
	"github.com/dshills/gesturekit/internal/logging"
)

// Handler consumes raw events from the native layer.
type Handler interface {
	Handle(ev gesture.Event)
}

// router applies events to a callback set. It is shared by the deferred
// and synchronous paths so both follow the same table.
type router struct {
	exec   *Executor
	logger *logging.Logger

	dispatched  atomic.Uint64
	stale       atomic.Uint64
	skipped     atomic.Uint64
	invocations atomic.Uint64
	panics      atomic.Uint64
}

// Option configures a Deferred or Synchronous dispatcher.
type Option func(*router)

// WithExecutor sets the executor user callbacks run on.
func WithExecutor(e *Executor) Option {
	return func(r *router) {
		if e != nil {
			r.exec = e
		}
	}
}

// WithLogger sets the logger. Panics in callbacks are logged at error level.
func WithLogger(l *logging.Logger) Option {
	return func(r *router) {
		if l != nil {
			r.logger = l
		}
	}
}

func (r *router) init(component string, opts []Option) {
	r.logger = logging.Nop()
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithComponent(component)
	if r.exec == nil {
		r.exec = NewExecutor(WithPanicHandler(r.logPanic))
	}
}

func (r *router) logPanic(tag gesture.Tag, cb gesture.CallbackKind, value any, stack []byte) {
	r.logger.WithFields(map[string]any{"tag": tag, "callback": cb}).
		Error("callback panicked: %v\n%s", value, stack)
}

// target is what an event is applied to.
type target struct {
	tag        gesture.Tag
	callbacks  *gesture.Callbacks
	calculator gesture.Calculator
	cache      *Cache
	controller func() gesture.StateController
}

func (r *router) call(tag gesture.Tag, cb gesture.CallbackKind, fn func()) {
	r.invocations.Add(1)
	if r.exec.Execute(tag, cb, fn) {
		r.panics.Add(1)
	}
}

// route dispatches ev to t following the state table.
func (r *router) route(ev gesture.Event, t target) {
	r.dispatched.Add(1)
	cbs := t.callbacks

	switch e := ev.(type) {
	case gesture.StateChange:
		plan := PlanStateChange(e.OldState, e.State)
		if plan.ResetCache {
			t.cache.Forget(t.tag)
		}
		for _, step := range plan.Steps {
			r.step(e, step, cbs, t.tag)
		}

	case gesture.Update:
		if cbs.Update != nil {
			r.call(t.tag, gesture.CallbackUpdate, func() { cbs.Update(e) })
		}
		if cbs.Change != nil && t.calculator != nil {
			delta := t.calculator(e.Payload, t.cache.Last(t.tag))
			change := e
			change.Payload = e.Payload.Merge(delta)
			r.call(t.tag, gesture.CallbackChange, func() { cbs.Change(change) })
			t.cache.Store(t.tag, e.Payload.Clone())
		}

	case gesture.Touch:
		k, ok := gesture.TouchCallback(e.Phase)
		if !ok {
			return
		}
		fn := cbs.Touch(k)
		if fn == nil {
			return
		}
		r.call(t.tag, k, func() { fn(e, t.controller()) })
	}
}

func (r *router) step(e gesture.StateChange, s Step, cbs *gesture.Callbacks, tag gesture.Tag) {
	switch s.Callback {
	case gesture.CallbackBegin:
		if cbs.Begin != nil {
			r.call(tag, s.Callback, func() { cbs.Begin(e) })
		}
	case gesture.CallbackStart:
		if cbs.Start != nil {
			r.call(tag, s.Callback, func() { cbs.Start(e) })
		}
	case gesture.CallbackEnd:
		if cbs.End != nil {
			r.call(tag, s.Callback, func() { cbs.End(e, s.Success) })
		}
	case gesture.CallbackFinalize:
		if cbs.Finalize != nil {
			r.call(tag, s.Callback, func() { cbs.Finalize(e, s.Success) })
		}
	}
}

// Stats contains dispatcher statistics.
type Stats struct {
	// Dispatched is the number of events routed to a live handler.
	Dispatched uint64

	// Stale is the number of events discarded because their tag was not live.
	Stale uint64

	// Skipped is the number of events left to the other delivery path.
	Skipped uint64

	// Invocations is the number of user callbacks run.
	Invocations uint64

	// Panics is the number of user callbacks that panicked.
	Panics uint64
}

func (r *router) stats() Stats {
	return Stats{
		Dispatched:  r.dispatched.Load(),
		Stale:       r.stale.Load(),
		Skipped:     r.skipped.Load(),
		Invocations: r.invocations.Load(),
		Panics:      r.panics.Load(),
	}
}
