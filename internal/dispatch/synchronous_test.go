package dispatch

import (
	"testing"

	"github.com/dshills/gesturekit/internal/gesture"
	"github.com/dshills/gesturekit/internal/native"
	"github.com/dshills/gesturekit/internal/registry"
)

type syncFixture struct {
	pub  *registry.Publication
	rec  *native.Recorder
	sync *Synchronous
	f    *gesture.Factory
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()
	pub := registry.NewPublication()
	rec := native.NewRecorder()
	return &syncFixture{
		pub:  pub,
		rec:  rec,
		sync: NewSynchronous(pub, rec),
		f:    gesture.NewFactory(gesture.WithDefaultContext(gesture.Synchronous)),
	}
}

// create makes the recorder know d, so state commands succeed.
func (fx *syncFixture) create(t *testing.T, d *gesture.Descriptor) {
	t.Helper()
	if err := fx.rec.CreateGestureHandler(d.Kind().NativeName(), d.Tag(), d.Config()); err != nil {
		t.Fatalf("CreateGestureHandler() error = %v", err)
	}
}

func TestSynchronous_SameTableAsDeferred(t *testing.T) {
	fx := newSyncFixture(t)
	tr := &trace{}
	pan := traced(fx.f.Pan(), tr)
	fx.pub.Publish([]*gesture.Descriptor{pan})

	tag := pan.Tag()
	fx.sync.Handle(stateChange(tag, gesture.StateUndetermined, gesture.StateBegan))
	fx.sync.Handle(stateChange(tag, gesture.StateBegan, gesture.StateBegan))
	fx.sync.Handle(stateChange(tag, gesture.StateBegan, gesture.StateActive))
	fx.sync.Handle(gesture.Update{Tag: tag, Payload: gesture.Payload{gesture.FieldTranslationX: 10}})
	fx.sync.Handle(gesture.Update{Tag: tag, Payload: gesture.Payload{gesture.FieldTranslationX: 15}})
	fx.sync.Handle(stateChange(tag, gesture.StateActive, gesture.StateCancelled))

	tr.equal(t,
		"begin",
		"start",
		"update", "change(10,0)",
		"update", "change(5,0)",
		"end(false)", "finalize(false)",
	)
}

func TestSynchronous_StaleTag(t *testing.T) {
	fx := newSyncFixture(t)
	tr := &trace{}
	tap := traced(fx.f.Tap(), tr)
	fx.pub.Publish([]*gesture.Descriptor{tap})
	fx.pub.Publish(nil)

	fx.sync.Handle(stateChange(tap.Tag(), gesture.StateUndetermined, gesture.StateBegan))
	tr.equal(t)
	if s := fx.sync.Stats(); s.Stale != 1 {
		t.Errorf("Stale = %d, want 1", s.Stale)
	}
}

func TestSynchronous_ControllerActivates(t *testing.T) {
	fx := newSyncFixture(t)
	m := fx.f.Manual()
	m.OnTouchesDown(func(e gesture.Touch, c gesture.StateController) {
		if err := c.Begin(); err != nil {
			t.Errorf("Begin() error = %v", err)
		}
		if err := c.Activate(); err != nil {
			t.Errorf("Activate() error = %v", err)
		}
	})
	fx.create(t, m)
	fx.pub.Publish([]*gesture.Descriptor{m})
	fx.rec.Reset()

	fx.sync.Handle(gesture.Touch{Tag: m.Tag(), Phase: gesture.TouchDown})

	cmds := fx.rec.Commands()
	want := []string{
		"setState tag=1 state=BEGAN",
		"setState tag=1 state=ACTIVE",
		"flush",
	}
	if len(cmds) != len(want) {
		t.Fatalf("commands = %v, want %v", cmds, want)
	}
	for i := range want {
		if cmds[i].String() != want[i] {
			t.Errorf("command[%d] = %q, want %q", i, cmds[i], want[i])
		}
	}
	if st, _ := fx.rec.State(m.Tag()); st != gesture.StateActive {
		t.Errorf("native state = %s, want ACTIVE", st)
	}
}

func TestSynchronous_NoFlushWithoutCommands(t *testing.T) {
	fx := newSyncFixture(t)
	m := fx.f.Manual().OnTouchesMove(func(gesture.Touch, gesture.StateController) {})
	fx.pub.Publish([]*gesture.Descriptor{m})

	fx.sync.Handle(gesture.Touch{Tag: m.Tag(), Phase: gesture.TouchMove})
	if n := fx.rec.Count(native.OpFlush); n != 0 {
		t.Errorf("flushes = %d, want 0", n)
	}
}

func TestSynchronous_ControllerReuse(t *testing.T) {
	fx := newSyncFixture(t)
	var seen []gesture.StateController
	record := func(_ gesture.Touch, c gesture.StateController) { seen = append(seen, c) }

	a := fx.f.Manual().OnTouchesDown(record)
	b := fx.f.Manual().OnTouchesDown(record)
	fx.pub.Publish([]*gesture.Descriptor{a, b})

	fx.sync.Handle(gesture.Touch{Tag: a.Tag(), Phase: gesture.TouchDown})
	fx.sync.Handle(gesture.Touch{Tag: a.Tag(), Phase: gesture.TouchDown})
	fx.sync.Handle(gesture.Touch{Tag: b.Tag(), Phase: gesture.TouchDown})

	if seen[0] != seen[1] {
		t.Error("controller not reused for the same slot and tag")
	}
	if seen[0] == seen[2] {
		t.Error("controller shared between slots")
	}

	// Same tag, new closures: the slot keeps its controller.
	a2 := fx.f.Manual().OnTouchesDown(record)
	a2.AdoptTag(a.Tag())
	fx.pub.Publish([]*gesture.Descriptor{a2, b})
	fx.sync.Handle(gesture.Touch{Tag: a.Tag(), Phase: gesture.TouchDown})
	if seen[3] != seen[0] {
		t.Error("controller recreated although the slot kept its tag")
	}

	// The slot now holds another tag: a new controller is bound to it.
	c := fx.f.Manual().OnTouchesDown(record)
	fx.pub.Publish([]*gesture.Descriptor{c, b})
	fx.sync.Handle(gesture.Touch{Tag: c.Tag(), Phase: gesture.TouchDown})
	if seen[4] == seen[0] {
		t.Error("stale controller reused for a reassigned slot")
	}
	if seen[4].Tag() != c.Tag() {
		t.Errorf("controller tag = %d, want %d", seen[4].Tag(), c.Tag())
	}
}

func TestSynchronous_RebindPrunesCache(t *testing.T) {
	fx := newSyncFixture(t)
	a := fx.f.Pan().OnChange(func(gesture.Update) {})
	b := fx.f.Pan().OnChange(func(gesture.Update) {})
	fx.pub.Publish([]*gesture.Descriptor{a, b})

	fx.sync.Handle(gesture.Update{Tag: a.Tag(), Payload: gesture.Payload{gesture.FieldTranslationX: 1}})
	fx.sync.Handle(gesture.Update{Tag: b.Tag(), Payload: gesture.Payload{gesture.FieldTranslationX: 1}})
	if fx.sync.cache.Len() != 2 {
		t.Fatalf("cache len = %d, want 2", fx.sync.cache.Len())
	}

	fx.pub.Publish([]*gesture.Descriptor{b})
	fx.sync.Handle(gesture.Update{Tag: b.Tag(), Payload: gesture.Payload{gesture.FieldTranslationX: 2}})
	if fx.sync.cache.Len() != 1 {
		t.Errorf("cache len = %d, want 1", fx.sync.cache.Len())
	}
}

func TestSynchronous_ControllerOutsideDispatchFlushes(t *testing.T) {
	fx := newSyncFixture(t)
	var kept gesture.StateController
	m := fx.f.Manual().OnTouchesDown(func(_ gesture.Touch, c gesture.StateController) { kept = c })
	fx.create(t, m)
	fx.pub.Publish([]*gesture.Descriptor{m})

	fx.sync.Handle(gesture.Touch{Tag: m.Tag(), Phase: gesture.TouchDown})
	if err := kept.Fail(); err != nil {
		t.Fatalf("Fail() error = %v", err)
	}
	if n := fx.rec.Count(native.OpFlush); n != 1 {
		t.Errorf("flushes = %d, want 1", n)
	}
}
