// Package scenario replays gesture scenarios against an engine wired to a
// recording native layer and renders a deterministic trace of the native
// commands and callback invocations they cause.
//
// A scenario is a YAML document:
//
//	name: double-tap-wins
//	gestures:
//	  - name: double
//	    kind: tap
//	    options: {numberOfTaps: 2}
//	    trace: [begin, end]
//	  - name: single
//	    kind: tap
//	    trace: [end]
//	steps:
//	  - update:
//	      root: main
//	      tree: {exclusive: [double, single]}
//	  - event: {gesture: double, type: state, from: undetermined, to: began}
//
// Callbacks may carry Lua snippets. A snippet sees an event table, a state
// table whose functions drive the recognizer's state controller (touch
// callbacks only), and a trace function that appends to the trace.
package scenario
