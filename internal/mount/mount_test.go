package mount

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/gesturekit/internal/gesture"
)

func TestChangeType_String(t *testing.T) {
	tests := []struct {
		ct   ChangeType
		want string
	}{
		{Mounted, "mounted"},
		{Unmounted, "unmounted"},
		{ChangeType(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.ct.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.ct, got, tt.want)
		}
	}
}

func TestNotifier_Subscribe(t *testing.T) {
	n := New()

	var got []Change
	sub := n.Subscribe(func(c Change) { got = append(got, c) })

	root := uuid.New()
	n.Notify(Change{Type: Mounted, Tag: 3, Kind: gesture.KindPan, Root: root})
	if len(got) != 1 || got[0].Type != Mounted || got[0].Tag != 3 || got[0].Root != root {
		t.Fatalf("got %+v", got)
	}

	sub.Unsubscribe()
	sub.Unsubscribe()
	n.Notify(Change{Type: Unmounted, Tag: 3, Kind: gesture.KindPan, Root: root})
	if len(got) != 1 {
		t.Errorf("unsubscribed observer received %+v", got[1:])
	}
	if n.Observers() != 0 {
		t.Errorf("Observers() = %d, want 0", n.Observers())
	}
}

func TestNotifier_SubscribeTag(t *testing.T) {
	n := New()

	var five, all int
	sub := n.SubscribeTag(5, func(Change) { five++ })
	n.Subscribe(func(Change) { all++ })
	if n.Observers() != 2 {
		t.Fatalf("Observers() = %d, want 2", n.Observers())
	}

	root := uuid.New()
	n.Notify(Change{Type: Mounted, Tag: 5, Root: root})
	n.Notify(Change{Type: Mounted, Tag: 6, Root: root})

	if five != 1 {
		t.Errorf("tag observer called %d times, want 1", five)
	}
	if all != 2 {
		t.Errorf("global observer called %d times, want 2", all)
	}

	sub.Unsubscribe()
	n.Notify(Change{Type: Unmounted, Tag: 5, Root: root})
	if five != 1 {
		t.Errorf("tag observer called after Unsubscribe")
	}
	if n.Observers() != 1 {
		t.Errorf("Observers() = %d, want 1", n.Observers())
	}
}

func TestNotifier_DeliveryOrder(t *testing.T) {
	n := New()

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		if i%2 == 0 {
			n.Subscribe(func(Change) { order = append(order, i) })
		} else {
			n.SubscribeTag(1, func(Change) { order = append(order, i) })
		}
	}
	n.Notify(Change{Tag: 1})

	if len(order) != 5 {
		t.Fatalf("order = %v", order)
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("order = %v", order)
		}
	}
}

func TestBatch_Commit(t *testing.T) {
	n := New()

	var got []Change
	n.Subscribe(func(c Change) { got = append(got, c) })

	root := uuid.New()
	b := n.NewBatch()
	b.Unmounted(root, 1, gesture.KindTap)
	b.Mounted(root, 2, gesture.KindPan)
	if len(got) != 0 {
		t.Fatal("batch delivered before Commit")
	}
	if b.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", b.Len())
	}

	b.Commit()
	if len(got) != 2 || got[0].Type != Unmounted || got[1].Type != Mounted {
		t.Errorf("got %+v", got)
	}
	if b.Len() != 0 {
		t.Errorf("Len() after Commit = %d", b.Len())
	}

	b.Commit()
	if len(got) != 2 {
		t.Errorf("second Commit delivered %d more changes", len(got)-2)
	}
}

func TestNotifier_ObserverMaySubscribe(t *testing.T) {
	n := New()

	done := make(chan struct{})
	n.Subscribe(func(Change) {
		n.SubscribeTag(2, func(Change) {})
		close(done)
	})
	n.Notify(Change{Tag: 1})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("observer deadlocked")
	}
}
