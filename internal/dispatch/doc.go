// Package dispatch turns raw native events into ordered gesture callbacks.
//
// # Delivery Paths
//
// Two dispatchers implement the same state table:
//
//   - Deferred: events are posted to the loop and dispatched from the
//     registry when they run. Used for descriptors on the deferred context.
//
//   - Synchronous: events are dispatched inline from the immutable table
//     published by one attachment root. Used for descriptors on the
//     synchronous context.
//
// Both share PlanStateChange, which maps a transition to the callbacks it
// triggers:
//
//	UNDETERMINED -> BEGAN            begin
//	BEGAN|UNDETERMINED -> ACTIVE     start
//	ACTIVE -> END                    end(true), finalize(true)
//	other -> END                     finalize(true)
//	ACTIVE -> FAILED|CANCELLED       end(false), finalize(false)
//	other -> FAILED|CANCELLED        finalize(false)
//
// A transition to the same state triggers nothing.
//
// # State Controllers
//
// Touch callbacks receive a gesture.StateController bound to their tag.
// On the synchronous path it sends state commands to the native layer,
// flushed once per dispatch. On the deferred path every method returns
// ErrRequiresSynchronousContext.
//
// # Panic Recovery
//
// User callbacks run on an Executor that recovers panics and reports them
// to a PanicHandler; by default they are logged with their stack.
package dispatch
