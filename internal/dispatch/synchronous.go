package dispatch

import (
	"github.com/dshills/gesturekit/internal/gesture"
	"github.com/dshills/gesturekit/internal/native"
	"github.com/dshills/gesturekit/internal/registry"
)

// Synchronous delivers events inline on the synchronous context of one
// attachment root. It reads callbacks only from the root's published
// table and never waits on the deferred context.
//
// Handle must not be called concurrently with itself.
type Synchronous struct {
	router
	publication *registry.Publication
	cmds        native.Commands
	cache       *Cache

	table       *registry.Table
	controllers []*controller

	inDispatch bool
	dirty      bool
}

// NewSynchronous creates a synchronous dispatcher reading pub. State
// controllers send their commands to cmds.
func NewSynchronous(pub *registry.Publication, cmds native.Commands, opts ...Option) *Synchronous {
	s := &Synchronous{
		publication: pub,
		cmds:        cmds,
		cache:       NewCache(),
	}
	s.init("dispatch.synchronous", opts)
	return s
}

// Handle dispatches ev. State commands issued by callbacks during the
// dispatch are flushed once before Handle returns.
func (s *Synchronous) Handle(ev gesture.Event) {
	tbl := s.publication.Load()
	if tbl != s.table {
		s.rebind(tbl)
	}

	tag := ev.HandlerTag()
	i, entry, ok := tbl.Lookup(tag)
	if !ok {
		s.stale.Add(1)
		return
	}

	s.inDispatch = true
	defer func() {
		s.inDispatch = false
		s.flush()
	}()

	s.route(ev, target{
		tag:        tag,
		callbacks:  &entry.Callbacks,
		calculator: entry.Calculator,
		cache:      s.cache,
		controller: func() gesture.StateController { return s.controller(i, tag) },
	})
}

// rebind switches to a newly published table. Controllers whose slot now
// holds another tag are discarded, and so are cached updates of tags that
// left the table.
func (s *Synchronous) rebind(tbl *registry.Table) {
	s.table = tbl

	n := tbl.Len()
	if cap(s.controllers) < n {
		grown := make([]*controller, n)
		copy(grown, s.controllers)
		s.controllers = grown
	}
	s.controllers = s.controllers[:n]
	for i, c := range s.controllers {
		if c != nil && c.tag != tbl.At(i).Tag {
			s.controllers[i] = nil
		}
	}

	s.cache.Retain(func(tag gesture.Tag) bool {
		_, _, ok := tbl.Lookup(tag)
		return ok
	})
}

// controller returns the controller of slot i, creating it on first use
// or when the slot was reassigned to another tag.
func (s *Synchronous) controller(i int, tag gesture.Tag) gesture.StateController {
	c := s.controllers[i]
	if c == nil || c.tag != tag {
		c = &controller{owner: s, tag: tag}
		s.controllers[i] = c
	}
	return c
}

func (s *Synchronous) flush() {
	if !s.dirty {
		return
	}
	s.dirty = false
	if err := s.cmds.FlushPendingCommands(); err != nil {
		s.logger.Error("flush pending commands: %v", err)
	}
}

// Stats returns dispatcher statistics.
func (s *Synchronous) Stats() Stats {
	return s.stats()
}

// controller forces the state of one recognizer from the synchronous
// context. Commands are flushed at the end of the current dispatch, or
// immediately when used outside of one.
type controller struct {
	owner *Synchronous
	tag   gesture.Tag
}

func (c *controller) Tag() gesture.Tag { return c.tag }
func (c *controller) Begin() error     { return c.set(gesture.StateBegan) }
func (c *controller) Activate() error  { return c.set(gesture.StateActive) }
func (c *controller) Fail() error      { return c.set(gesture.StateFailed) }
func (c *controller) End() error       { return c.set(gesture.StateEnd) }

func (c *controller) set(state gesture.State) error {
	s := c.owner
	err := s.cmds.SetGestureHandlerState(c.tag, state)
	s.dirty = true
	if !s.inDispatch {
		s.flush()
	}
	return err
}
