// Package app wires the gesture engine together from a configuration.
//
// An Engine owns the descriptor factory, the handler registry, the deferred
// loop and its dispatcher, the reconciler, and one synchronous dispatcher per
// attachment root. The native layer feeds events in through Deliver (deferred
// path) and the handler returned by SyncHandler (synchronous path).
//
// Basic usage:
//
//	eng := app.New(cfg, cmds)
//	if err := eng.Start(); err != nil {
//		return err
//	}
//	defer eng.Stop(context.Background())
//
//	root := eng.NewRoot(view)
//	f := eng.Gestures()
//	err := eng.Update(ctx, root, compose.Exclusive(f.Tap().NumberOfTaps(2), f.Tap()))
package app
