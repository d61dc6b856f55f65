// Package gesture provides the descriptor model for a single recognizer.
//
// A Descriptor carries everything the engine knows about one recognizer
// before and after it is attached: its handler tag, kind, native
// configuration, callback set and declared relations. Descriptors are cheap
// to build and are rebuilt on every UI update; the reconciler decides which
// of them become live.
//
// # Tags
//
// Handler tags are allocated by a Factory when the descriptor is built, not
// when it is attached, so relations captured before attachment stay valid:
//
//	f := gesture.NewFactory()
//	tap := f.Tap().NumberOfTaps(2)
//	pan := f.Pan().RequireToFail(tap)
//
// # Relations
//
// Relations are recorded as Refs. A Ref is either a resolved Tag or a
// pending reference to another Descriptor (directly or through a Slot that
// is filled in later). Refs are resolved by the reconciler after the host
// has committed, see package reconcile.
//
// # Events
//
// The native layer reports three kinds of events, all carrying a handler
// tag: StateChange, Update and Touch. Change calculators turn consecutive
// Update payloads of continuous gestures into delta payloads.
//
// # Execution contexts
//
// Every callback is tagged with the ExecutionContext it was registered
// under. The tag is fixed at registration. A descriptor whose callbacks were
// registered under different contexts fails validation.
package gesture
