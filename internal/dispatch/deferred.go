package dispatch

import (
	"fmt"

	"github.com/dshills/gesturekit/internal/gesture"
	"github.com/dshills/gesturekit/internal/loop"
	"github.com/dshills/gesturekit/internal/registry"
)

// Deferred delivers events on the deferred context. Each event is posted
// to the loop and looked up in the registry when it runs, so an event for
// a tag dropped in the meantime is discarded.
type Deferred struct {
	router
	loop     *loop.Loop
	registry *registry.Registry
	cache    *Cache
}

// NewDeferred creates a deferred dispatcher.
func NewDeferred(l *loop.Loop, reg *registry.Registry, opts ...Option) *Deferred {
	d := &Deferred{
		loop:     l,
		registry: reg,
		cache:    NewCache(),
	}
	d.init("dispatch.deferred", opts)
	return d
}

// Post schedules ev for dispatch. It never blocks.
func (d *Deferred) Post(ev gesture.Event) {
	d.loop.Post(func() { d.Handle(ev) })
}

// Handle dispatches ev immediately. It must run on the loop.
func (d *Deferred) Handle(ev gesture.Event) {
	tag := ev.HandlerTag()
	desc, ok := d.registry.Find(tag)
	if !ok {
		d.stale.Add(1)
		return
	}
	if desc.Context() == gesture.Synchronous {
		d.skipped.Add(1)
		return
	}

	cbs := desc.Callbacks()
	d.route(ev, target{
		tag:        tag,
		callbacks:  &cbs,
		calculator: desc.Calculator(),
		cache:      d.cache,
		controller: func() gesture.StateController { return rejecting(tag) },
	})
}

// Forget drops the cached update of tag. It must run on the loop.
func (d *Deferred) Forget(tag gesture.Tag) {
	d.cache.Forget(tag)
}

// CacheLen returns the number of cached updates.
func (d *Deferred) CacheLen() int {
	return d.cache.Len()
}

// Stats returns dispatcher statistics.
func (d *Deferred) Stats() Stats {
	return d.stats()
}

// rejecting is the state controller of the deferred path. Every method
// fails with ErrRequiresSynchronousContext.
type rejecting gesture.Tag

func (c rejecting) Tag() gesture.Tag { return gesture.Tag(c) }
func (c rejecting) Begin() error     { return c.reject("begin") }
func (c rejecting) Activate() error  { return c.reject("activate") }
func (c rejecting) Fail() error      { return c.reject("fail") }
func (c rejecting) End() error       { return c.reject("end") }

func (c rejecting) reject(op string) error {
	return fmt.Errorf("state controller %s on tag %d: %w", op, gesture.Tag(c), ErrRequiresSynchronousContext)
}
