package dispatch

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dshills/gesturekit/internal/gesture"
	"github.com/dshills/gesturekit/internal/loop"
	"github.com/dshills/gesturekit/internal/registry"
)

// trace records callback invocations as strings.
type trace struct {
	calls []string
}

func (tr *trace) add(format string, args ...any) {
	tr.calls = append(tr.calls, fmt.Sprintf(format, args...))
}

func (tr *trace) equal(t *testing.T, want ...string) {
	t.Helper()
	if len(tr.calls) != len(want) {
		t.Fatalf("calls = %q, want %q", tr.calls, want)
	}
	for i := range want {
		if tr.calls[i] != want[i] {
			t.Fatalf("calls = %q, want %q", tr.calls, want)
		}
	}
}

func traced(d *gesture.Descriptor, tr *trace) *gesture.Descriptor {
	d.OnBegin(func(gesture.StateChange) { tr.add("begin") }).
		OnStart(func(gesture.StateChange) { tr.add("start") }).
		OnEnd(func(_ gesture.StateChange, ok bool) { tr.add("end(%v)", ok) }).
		OnFinalize(func(_ gesture.StateChange, ok bool) { tr.add("finalize(%v)", ok) })
	if d.Kind().IsContinuous() {
		d.OnUpdate(func(u gesture.Update) { tr.add("update") }).
			OnChange(func(u gesture.Update) {
				tr.add("change(%g,%g)", u.Payload[gesture.FieldChangeX], u.Payload[gesture.FieldChangeY])
			})
	}
	return d
}

func newDeferredFixture(t *testing.T) (*Deferred, *loop.Loop, *registry.Registry) {
	t.Helper()
	l := loop.New()
	reg := registry.New()
	return NewDeferred(l, reg), l, reg
}

func drain(t *testing.T, l *loop.Loop) {
	t.Helper()
	if _, err := l.Drain(); err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
}

func stateChange(tag gesture.Tag, old, next gesture.State) gesture.StateChange {
	return gesture.StateChange{Tag: tag, OldState: old, State: next}
}

func TestDeferred_Lifecycle(t *testing.T) {
	d, l, reg := newDeferredFixture(t)
	f := gesture.NewFactory()
	tr := &trace{}
	pan := traced(f.Pan(), tr)
	if err := reg.Register(pan); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	tag := pan.Tag()
	d.Post(stateChange(tag, gesture.StateUndetermined, gesture.StateBegan))
	d.Post(stateChange(tag, gesture.StateBegan, gesture.StateActive))
	d.Post(gesture.Update{Tag: tag, Payload: gesture.Payload{gesture.FieldTranslationX: 10, gesture.FieldTranslationY: 0}})
	d.Post(gesture.Update{Tag: tag, Payload: gesture.Payload{gesture.FieldTranslationX: 15}})
	d.Post(stateChange(tag, gesture.StateActive, gesture.StateActive))
	d.Post(stateChange(tag, gesture.StateActive, gesture.StateEnd))
	drain(t, l)

	tr.equal(t,
		"begin",
		"start",
		"update", "change(10,0)",
		"update", "change(5,0)",
		"end(true)", "finalize(true)",
	)
	if d.CacheLen() != 0 {
		t.Errorf("cache not cleared on terminal transition: %d entries", d.CacheLen())
	}
}

func TestDeferred_StartResetsCache(t *testing.T) {
	d, l, reg := newDeferredFixture(t)
	f := gesture.NewFactory()
	tr := &trace{}
	pan := traced(f.Pan(), tr)
	_ = reg.Register(pan)
	tag := pan.Tag()

	d.Post(gesture.Update{Tag: tag, Payload: gesture.Payload{gesture.FieldTranslationX: 40}})
	d.Post(stateChange(tag, gesture.StateBegan, gesture.StateActive))
	d.Post(gesture.Update{Tag: tag, Payload: gesture.Payload{gesture.FieldTranslationX: 10}})
	drain(t, l)

	tr.equal(t, "update", "change(40,0)", "start", "update", "change(10,0)")
}

func TestDeferred_FailWithoutActive(t *testing.T) {
	d, l, reg := newDeferredFixture(t)
	f := gesture.NewFactory()
	tr := &trace{}
	tap := traced(f.Tap(), tr)
	_ = reg.Register(tap)

	d.Post(stateChange(tap.Tag(), gesture.StateUndetermined, gesture.StateBegan))
	d.Post(stateChange(tap.Tag(), gesture.StateBegan, gesture.StateFailed))
	drain(t, l)

	tr.equal(t, "begin", "finalize(false)")
}

func TestDeferred_StaleTag(t *testing.T) {
	d, l, reg := newDeferredFixture(t)
	f := gesture.NewFactory()
	tr := &trace{}
	tap := traced(f.Tap(), tr)
	_ = reg.Register(tap)
	reg.Unregister(tap.Tag())

	d.Post(stateChange(tap.Tag(), gesture.StateUndetermined, gesture.StateBegan))
	d.Post(gesture.Touch{Tag: tap.Tag(), Phase: gesture.TouchDown})
	drain(t, l)

	tr.equal(t)
	if s := d.Stats(); s.Stale != 2 || s.Dispatched != 0 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestDeferred_TerminalQueuedBeforeDrop(t *testing.T) {
	d, l, reg := newDeferredFixture(t)
	f := gesture.NewFactory()
	tr := &trace{}
	pan := traced(f.Pan(), tr)
	if err := reg.Register(pan); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	tag := pan.Tag()

	d.Post(stateChange(tag, gesture.StateActive, gesture.StateEnd))
	l.Post(func() {
		reg.Unregister(tag)
		d.Forget(tag)
	})
	d.Post(stateChange(tag, gesture.StateUndetermined, gesture.StateBegan))
	drain(t, l)

	tr.equal(t, "end(true)", "finalize(true)")
	if _, ok := reg.Find(tag); ok {
		t.Error("tag still registered after drop")
	}
	if s := d.Stats(); s.Stale != 1 {
		t.Errorf("Stale = %d, want 1", s.Stale)
	}
}

func TestDeferred_SkipsSynchronousDescriptors(t *testing.T) {
	d, l, reg := newDeferredFixture(t)
	f := gesture.NewFactory()
	tr := &trace{}
	pan := traced(f.Pan().RunOn(gesture.Synchronous), tr)
	_ = reg.Register(pan)

	d.Post(stateChange(pan.Tag(), gesture.StateUndetermined, gesture.StateBegan))
	drain(t, l)

	tr.equal(t)
	if s := d.Stats(); s.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", s.Skipped)
	}
}

func TestDeferred_TouchControllerRejects(t *testing.T) {
	d, l, reg := newDeferredFixture(t)
	f := gesture.NewFactory()

	var errs []error
	var phases []gesture.TouchPhase
	m := f.Manual()
	touch := func(e gesture.Touch, c gesture.StateController) {
		phases = append(phases, e.Phase)
		if c.Tag() != m.Tag() {
			t.Errorf("controller tag = %d, want %d", c.Tag(), m.Tag())
		}
		errs = append(errs, c.Activate())
	}
	m.OnTouchesDown(touch).OnTouchesMove(touch).OnTouchesUp(touch).OnTouchesCancelled(touch)
	_ = reg.Register(m)

	for _, p := range []gesture.TouchPhase{gesture.TouchDown, gesture.TouchUndetermined, gesture.TouchMove, gesture.TouchUp, gesture.TouchCancelled} {
		d.Post(gesture.Touch{Tag: m.Tag(), Phase: p})
	}
	drain(t, l)

	want := []gesture.TouchPhase{gesture.TouchDown, gesture.TouchMove, gesture.TouchUp, gesture.TouchCancelled}
	if len(phases) != len(want) {
		t.Fatalf("phases = %v, want %v", phases, want)
	}
	for i, err := range errs {
		if phases[i] != want[i] {
			t.Errorf("phase[%d] = %s, want %s", i, phases[i], want[i])
		}
		if !errors.Is(err, ErrRequiresSynchronousContext) {
			t.Errorf("Activate() error = %v, want ErrRequiresSynchronousContext", err)
		}
	}
}

func TestDeferred_PanicRecovered(t *testing.T) {
	var panicked []gesture.CallbackKind
	exec := NewExecutor(WithPanicHandler(func(tag gesture.Tag, cb gesture.CallbackKind, v any, stack []byte) {
		panicked = append(panicked, cb)
	}))

	l := loop.New()
	reg := registry.New()
	d := NewDeferred(l, reg, WithExecutor(exec))

	f := gesture.NewFactory()
	finalized := false
	tap := f.Tap().
		OnEnd(func(gesture.StateChange, bool) { panic("end") }).
		OnFinalize(func(gesture.StateChange, bool) { finalized = true })
	_ = reg.Register(tap)

	d.Post(stateChange(tap.Tag(), gesture.StateActive, gesture.StateEnd))
	drain(t, l)

	if len(panicked) != 1 || panicked[0] != gesture.CallbackEnd {
		t.Errorf("panicked = %v", panicked)
	}
	if !finalized {
		t.Error("finalize did not run after end panicked")
	}
	if s := d.Stats(); s.Panics != 1 || s.Invocations != 2 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestDeferred_Forget(t *testing.T) {
	d, l, reg := newDeferredFixture(t)
	f := gesture.NewFactory()
	pan := f.Pan().OnChange(func(gesture.Update) {})
	_ = reg.Register(pan)

	d.Post(gesture.Update{Tag: pan.Tag(), Payload: gesture.Payload{gesture.FieldTranslationX: 1}})
	drain(t, l)
	if d.CacheLen() != 1 {
		t.Fatalf("CacheLen() = %d, want 1", d.CacheLen())
	}
	d.Forget(pan.Tag())
	if d.CacheLen() != 0 {
		t.Errorf("CacheLen() = %d after Forget", d.CacheLen())
	}
}
