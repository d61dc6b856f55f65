package dispatch

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dshills/gesturekit/internal/gesture"
)

var allStates = []gesture.State{
	gesture.StateUndetermined,
	gesture.StateFailed,
	gesture.StateBegan,
	gesture.StateCancelled,
	gesture.StateActive,
	gesture.StateEnd,
}

func TestPlanStateChange_Table(t *testing.T) {
	begin := gesture.CallbackBegin
	start := gesture.CallbackStart
	end := gesture.CallbackEnd
	fin := gesture.CallbackFinalize

	tests := []struct {
		name  string
		old   gesture.State
		next  gesture.State
		steps []Step
		reset bool
	}{
		{"begin", gesture.StateUndetermined, gesture.StateBegan, []Step{{Callback: begin}}, false},
		{"start from began", gesture.StateBegan, gesture.StateActive, []Step{{Callback: start}}, true},
		{"start from undetermined", gesture.StateUndetermined, gesture.StateActive, []Step{{Callback: start}}, true},
		{"end after active", gesture.StateActive, gesture.StateEnd, []Step{{Callback: end, Success: true}, {Callback: fin, Success: true}}, true},
		{"end without active", gesture.StateBegan, gesture.StateEnd, []Step{{Callback: fin, Success: true}}, true},
		{"fail after active", gesture.StateActive, gesture.StateFailed, []Step{{Callback: end}, {Callback: fin}}, true},
		{"cancel after active", gesture.StateActive, gesture.StateCancelled, []Step{{Callback: end}, {Callback: fin}}, true},
		{"fail from began", gesture.StateBegan, gesture.StateFailed, []Step{{Callback: fin}}, true},
		{"cancel from undetermined", gesture.StateUndetermined, gesture.StateCancelled, []Step{{Callback: fin}}, true},
		{"back to undetermined", gesture.StateEnd, gesture.StateUndetermined, nil, false},
		{"began after active", gesture.StateActive, gesture.StateBegan, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PlanStateChange(tt.old, tt.next)
			if diff := cmp.Diff(tt.steps, p.Steps); diff != "" {
				t.Errorf("steps mismatch (-want +got):\n%s", diff)
			}
			if p.ResetCache != tt.reset {
				t.Errorf("ResetCache = %v, want %v", p.ResetCache, tt.reset)
			}
		})
	}
}

func TestPlanStateChange_SameStateIsNoop(t *testing.T) {
	for _, s := range allStates {
		if p := PlanStateChange(s, s); !p.Empty() {
			t.Errorf("PlanStateChange(%s, %s) = %+v, want empty", s, s, p)
		}
	}
}

func TestPlanStateChange_TerminalExclusivity(t *testing.T) {
	for _, old := range allStates {
		for _, next := range allStates {
			p := PlanStateChange(old, next)

			ends, finals := 0, 0
			for i, s := range p.Steps {
				switch s.Callback {
				case gesture.CallbackEnd:
					ends++
				case gesture.CallbackFinalize:
					finals++
					if i != len(p.Steps)-1 {
						t.Errorf("%s->%s: finalize is not last", old, next)
					}
				}
			}

			if old == next || !next.IsTerminal() {
				if ends+finals != 0 {
					t.Errorf("%s->%s: unexpected terminal callbacks", old, next)
				}
				continue
			}
			if finals != 1 {
				t.Errorf("%s->%s: finalize fired %d times", old, next, finals)
			}
			wantEnds := 0
			if old == gesture.StateActive {
				wantEnds = 1
			}
			if ends != wantEnds {
				t.Errorf("%s->%s: end fired %d times, want %d", old, next, ends, wantEnds)
			}
			for _, s := range p.Steps {
				if s.Success != (next == gesture.StateEnd) {
					t.Errorf("%s->%s: success = %v", old, next, s.Success)
				}
			}
		}
	}
}

func TestPlanStateChange_NoAlloc(t *testing.T) {
	allocs := testing.AllocsPerRun(100, func() {
		for _, old := range allStates {
			for _, next := range allStates {
				_ = PlanStateChange(old, next)
			}
		}
	})
	if allocs != 0 {
		t.Errorf("PlanStateChange allocated %v times per run", allocs)
	}
}
