// Package reconcile keeps the native recognizers of an attachment root in
// sync with a gesture tree that is rebuilt on every UI update.
//
// Each pass either patches the live recognizers in place, carrying tags
// over to the rebuilt descriptors, or drops them all and attaches the new
// leaves when the tree changed shape. Relations are resolved one microtask
// after the pass, so references to descriptors that get their tag later in
// the same commit still resolve. Unresolved references are retried on
// later ticks and, once the retry budget is spent, degrade to no relation.
//
// All methods of Root run on the deferred context.
package reconcile

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dshills/gesturekit/internal/gesture"
	"github.com/dshills/gesturekit/internal/logging"
	"github.com/dshills/gesturekit/internal/loop"
	"github.com/dshills/gesturekit/internal/mount"
	"github.com/dshills/gesturekit/internal/native"
	"github.com/dshills/gesturekit/internal/registry"
)

// DefaultRetryBudget is the number of extra relation resolution passes
// before an unresolved reference degrades to no relation.
const DefaultRetryBudget = 3

// CacheForgetter drops the last-update cache entry of a tag.
type CacheForgetter interface {
	Forget(tag gesture.Tag)
}

// Reconciler creates attachment roots sharing one registry, command
// interface and loop.
type Reconciler struct {
	registry *registry.Registry
	cmds     native.Commands
	loop     *loop.Loop
	mounts   *mount.Notifier
	cache    CacheForgetter
	logger   *logging.Logger
	budget   atomic.Int32
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithMounts sets the notifier mount changes are published to.
func WithMounts(n *mount.Notifier) Option {
	return func(r *Reconciler) {
		r.mounts = n
	}
}

// WithCache sets the cache whose entries are dropped with their tag.
func WithCache(c CacheForgetter) Option {
	return func(r *Reconciler) {
		r.cache = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRetryBudget sets the relation retry budget.
func WithRetryBudget(n int) Option {
	return func(r *Reconciler) {
		r.SetRetryBudget(n)
	}
}

// New creates a Reconciler.
func New(reg *registry.Registry, cmds native.Commands, l *loop.Loop, opts ...Option) *Reconciler {
	r := &Reconciler{
		registry: reg,
		cmds:     cmds,
		loop:     l,
		logger:   logging.Nop(),
	}
	r.budget.Store(DefaultRetryBudget)
	for _, opt := range opts {
		opt(r)
	}
	if r.mounts == nil {
		r.mounts = mount.New()
	}
	r.logger = r.logger.WithComponent("reconcile")
	return r
}

// SetRetryBudget changes the relation retry budget. Negative values are
// ignored. It applies to resolution passes started afterwards.
func (r *Reconciler) SetRetryBudget(n int) {
	if n >= 0 {
		r.budget.Store(int32(n))
	}
}

// RetryBudget returns the relation retry budget.
func (r *Reconciler) RetryBudget() int {
	return int(r.budget.Load())
}

// Mounts returns the mount notifier.
func (r *Reconciler) Mounts() *mount.Notifier {
	return r.mounts
}

// NewRoot creates an attachment root for view.
func (r *Reconciler) NewRoot(view native.ViewID) *Root {
	rt := &Root{
		r:           r,
		id:          uuid.New(),
		view:        view,
		publication: registry.NewPublication(),
		watched:     make(map[gesture.Tag]*mount.Subscription),
	}
	rt.logger = r.logger.WithFields(map[string]any{"root": rt.id.String()[:8], "view": view})
	return rt
}
