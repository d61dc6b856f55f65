package app

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dshills/gesturekit/internal/compose"
	"github.com/dshills/gesturekit/internal/config"
	"github.com/dshills/gesturekit/internal/dispatch"
	"github.com/dshills/gesturekit/internal/gesture"
	"github.com/dshills/gesturekit/internal/logging"
	"github.com/dshills/gesturekit/internal/loop"
	"github.com/dshills/gesturekit/internal/mount"
	"github.com/dshills/gesturekit/internal/native"
	"github.com/dshills/gesturekit/internal/reconcile"
	"github.com/dshills/gesturekit/internal/registry"
)

// Engine is the gesture engine.
type Engine struct {
	mu sync.Mutex

	cfg    config.Config
	logger *logging.Logger

	cmds       native.Commands
	factory    *gesture.Factory
	registry   *registry.Registry
	loop       *loop.Loop
	mounts     *mount.Notifier
	exec       *dispatch.Executor
	deferred   *dispatch.Deferred
	reconciler *reconcile.Reconciler

	roots   map[uuid.UUID]*reconcile.Root
	gone    map[uuid.UUID]bool
	sync    map[uuid.UUID]*dispatch.Synchronous
	watcher *config.Watcher

	running atomic.Bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the root logger. Its level is still taken from the
// configuration.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMounts shares a mount notifier between engines.
func WithMounts(n *mount.Notifier) Option {
	return func(e *Engine) {
		e.mounts = n
	}
}

// New builds an engine that sends native commands to cmds.
func New(cfg config.Config, cmds native.Commands, opts ...Option) *Engine {
	e := &Engine{
		cfg:   cfg,
		cmds:  cmds,
		roots: make(map[uuid.UUID]*reconcile.Root),
		gone:  make(map[uuid.UUID]bool),
		sync:  make(map[uuid.UUID]*dispatch.Synchronous),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.New(logging.Config{
			Level:  cfg.LogLevel(),
			Output: os.Stderr,
			Prefix: cfg.Log.Prefix,
		})
	} else {
		e.logger.SetLevel(cfg.LogLevel())
	}
	if e.mounts == nil {
		e.mounts = mount.New()
	}

	e.factory = gesture.NewFactory(gesture.WithDefaultContext(cfg.ExecutionContext()))
	e.registry = registry.New()

	loopLog := e.logger.WithComponent("loop")
	e.loop = loop.New(
		loop.WithMaxMicrotasks(cfg.Loop.MaxMicrotasksPerTick),
		loop.WithPanicHandler(func(v any, stack []byte) {
			loopLog.Error("task panicked: %v\n%s", v, stack)
		}),
	)

	dispatchLog := e.logger.WithComponent("dispatch")
	e.exec = dispatch.NewExecutor(
		dispatch.WithRecover(cfg.Dispatch.RecoverPanics),
		dispatch.WithCaptureStack(cfg.Dispatch.CaptureStack),
		dispatch.WithPanicHandler(func(tag gesture.Tag, cb gesture.CallbackKind, v any, stack []byte) {
			dispatchLog.WithFields(map[string]any{"tag": tag, "callback": cb}).
				Error("callback panicked: %v\n%s", v, stack)
		}),
	)

	e.deferred = dispatch.NewDeferred(e.loop, e.registry,
		dispatch.WithExecutor(e.exec),
		dispatch.WithLogger(e.logger))

	e.reconciler = reconcile.New(e.registry, cmds, e.loop,
		reconcile.WithMounts(e.mounts),
		reconcile.WithCache(e.deferred),
		reconcile.WithLogger(e.logger),
		reconcile.WithRetryBudget(cfg.Engine.RelationRetryBudget))

	return e
}

// Gestures returns the descriptor factory.
func (e *Engine) Gestures() *gesture.Factory { return e.factory }

// Registry returns the handler registry.
func (e *Engine) Registry() *registry.Registry { return e.registry }

// Loop returns the deferred loop.
func (e *Engine) Loop() *loop.Loop { return e.loop }

// Mounts returns the mount notifier.
func (e *Engine) Mounts() *mount.Notifier { return e.mounts }

// Logger returns the root logger.
func (e *Engine) Logger() *logging.Logger { return e.logger }

// Config returns the configuration currently in effect.
func (e *Engine) Config() config.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// IsRunning reports whether the loop is running.
func (e *Engine) IsRunning() bool { return e.running.Load() }

// NewRoot creates an attachment root for view.
func (e *Engine) NewRoot(view native.ViewID) *reconcile.Root {
	root := e.reconciler.NewRoot(view)
	e.mu.Lock()
	e.roots[root.ID()] = root
	e.mu.Unlock()
	return root
}

// Roots returns the number of roots that have not been unmounted.
func (e *Engine) Roots() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.roots) - len(e.gone)
}

// Update runs a reconciliation pass of root against tree on the deferred
// context. When the engine is stopped the pass runs on the caller.
func (e *Engine) Update(ctx context.Context, root *reconcile.Root, tree compose.Gesture) error {
	if err := e.owns(root); err != nil {
		return err
	}
	var err error
	if cerr := e.onLoop(ctx, func() { err = root.Update(tree) }); cerr != nil {
		return cerr
	}
	return err
}

// Unmount detaches every handler of root and forgets its synchronous
// dispatcher. Later updates of root fail with reconcile.ErrUnmounted.
func (e *Engine) Unmount(ctx context.Context, root *reconcile.Root) error {
	if err := e.owns(root); err != nil {
		return err
	}
	if err := e.onLoop(ctx, root.Unmount); err != nil {
		return err
	}
	e.mu.Lock()
	e.gone[root.ID()] = true
	delete(e.sync, root.ID())
	e.mu.Unlock()
	return nil
}

func (e *Engine) owns(root *reconcile.Root) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if root == nil || e.roots[root.ID()] != root {
		return ErrForeignRoot
	}
	return nil
}

func (e *Engine) onLoop(ctx context.Context, fn func()) error {
	if e.running.Load() {
		return e.loop.Call(ctx, fn)
	}
	fn()
	return nil
}

// Deliver queues ev for the deferred path.
func (e *Engine) Deliver(ev gesture.Event) {
	e.deferred.Post(ev)
}

// SyncHandler returns the synchronous-path entry point for root. The
// returned function must not be called concurrently with itself.
func (e *Engine) SyncHandler(root *reconcile.Root) func(gesture.Event) {
	return e.synchronous(root).Handle
}

func (e *Engine) synchronous(root *reconcile.Root) *dispatch.Synchronous {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sync[root.ID()]
	if !ok {
		s = dispatch.NewSynchronous(root.Publication(), e.cmds,
			dispatch.WithExecutor(e.exec),
			dispatch.WithLogger(e.logger))
		e.sync[root.ID()] = s
	}
	return s
}

// SyncStats returns the counters of the synchronous dispatcher of root.
func (e *Engine) SyncStats(root *reconcile.Root) dispatch.Stats {
	return e.synchronous(root).Stats()
}

// Start starts the deferred loop.
func (e *Engine) Start() error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	if err := e.loop.Start(); err != nil {
		e.running.Store(false)
		return err
	}
	e.logger.Info("engine started")
	return nil
}

// Stop stops the config watcher and the loop. Tasks still queued when ctx
// expires are left in the queue.
func (e *Engine) Stop(ctx context.Context) error {
	if !e.running.CompareAndSwap(true, false) {
		return ErrNotRunning
	}

	e.mu.Lock()
	w := e.watcher
	e.watcher = nil
	e.mu.Unlock()
	if w != nil {
		if err := w.Close(); err != nil {
			e.logger.Warn("closing config watcher: %v", err)
		}
	}

	if err := e.loop.Stop(ctx); err != nil {
		return err
	}
	e.logger.Info("engine stopped")
	return nil
}

// ApplyConfig validates cfg and applies the settings that can change at
// run time: log level, relation retry budget and microtask limit. Other
// settings are stored but take effect only in a new Engine.
func (e *Engine) ApplyConfig(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.logger.SetLevel(cfg.LogLevel())
	e.reconciler.SetRetryBudget(cfg.Engine.RelationRetryBudget)
	e.loop.SetMaxMicrotasks(cfg.Loop.MaxMicrotasksPerTick)

	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()

	e.logger.WithFields(map[string]any{
		"level":  cfg.LogLevel(),
		"budget": cfg.Engine.RelationRetryBudget,
	}).Info("config applied")
	return nil
}

// WatchConfig reloads the configuration file at path whenever it changes
// and applies it. The watcher is closed by Stop.
func (e *Engine) WatchConfig(path string, opts ...config.WatchOption) error {
	log := e.logger.WithComponent("config")
	opts = append([]config.WatchOption{
		config.WithErrorHandler(func(err error) {
			log.Warn("reload failed: %v", err)
		}),
	}, opts...)

	w, err := config.Watch(path, func(cfg config.Config) {
		if err := e.ApplyConfig(cfg); err != nil {
			log.Warn("reloaded config rejected: %v", err)
		}
	}, opts...)
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}

	e.mu.Lock()
	prev := e.watcher
	e.watcher = w
	e.mu.Unlock()
	if prev != nil {
		_ = prev.Close()
	}
	return nil
}

// Stats is a snapshot of engine counters.
type Stats struct {
	Loop       loop.Stats
	Deferred   dispatch.Stats
	Registered int
	Roots      int
	// Watches is the number of mount subscriptions roots hold for
	// relations that cross roots.
	Watches int
}

// Stats returns current counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Loop:       e.loop.Stats(),
		Deferred:   e.deferred.Stats(),
		Registered: e.registry.Count(),
		Roots:      e.Roots(),
		Watches:    e.mounts.Observers(),
	}
}
