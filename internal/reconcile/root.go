package reconcile

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"

	"github.com/dshills/gesturekit/internal/compose"
	"github.com/dshills/gesturekit/internal/gesture"
	"github.com/dshills/gesturekit/internal/logging"
	"github.com/dshills/gesturekit/internal/mount"
	"github.com/dshills/gesturekit/internal/native"
	"github.com/dshills/gesturekit/internal/registry"
)

// slot is one position of the flattened leaf list.
type slot struct {
	desc *gesture.Descriptor
	tag  gesture.Tag
	live bool

	// Last config and relations sent to the native layer.
	sentConfig    gesture.Config
	sentRelations native.RelationLists
}

// Root is the attached state of one view: its leaves, the callback table
// published for the synchronous path, and the pending relation resolution.
type Root struct {
	r      *Reconciler
	id     uuid.UUID
	view   native.ViewID
	logger *logging.Logger

	slots       []*slot
	publication *registry.Publication
	mounted     bool
	unmounted   bool
	broken      bool

	generation uint64
	scheduled  bool
	attempts   int
	degraded   bool

	recheck atomic.Bool
	// watched holds a subscription per external tag the leaves relate to.
	// pending observes every mount while some reference has no tag yet.
	watched map[gesture.Tag]*mount.Subscription
	pending *mount.Subscription
}

// ID returns the root identifier carried by its mount changes.
func (rt *Root) ID() uuid.UUID { return rt.id }

// View returns the view the root attaches to.
func (rt *Root) View() native.ViewID { return rt.view }

// Publication returns the callback table published for the synchronous
// path.
func (rt *Root) Publication() *registry.Publication { return rt.publication }

// Mounted reports whether the root has attached at least once and was not
// unmounted since.
func (rt *Root) Mounted() bool { return rt.mounted && !rt.unmounted }

// Broken reports whether a leaf failed to attach in the last full attach.
// The next Update reattaches every leaf.
func (rt *Root) Broken() bool { return rt.broken }

// Degraded reports whether some relation gave up resolving and is
// currently treated as absent.
func (rt *Root) Degraded() bool { return rt.degraded }

// Leaves returns the live descriptors in order.
func (rt *Root) Leaves() []*gesture.Descriptor {
	out := make([]*gesture.Descriptor, 0, len(rt.slots))
	for _, s := range rt.slots {
		if s.live {
			out = append(out, s.desc)
		}
	}
	return out
}

// Tags returns the tags of the live leaves in order.
func (rt *Root) Tags() []gesture.Tag {
	out := make([]gesture.Tag, 0, len(rt.slots))
	for _, s := range rt.slots {
		if s.live {
			out = append(out, s.tag)
		}
	}
	return out
}

// Update reconciles the root with tree. Errors of individual leaves are
// joined; the other leaves are still reconciled.
func (rt *Root) Update(tree compose.Gesture) error {
	if rt.unmounted {
		return ErrUnmounted
	}

	// Resolution scheduled by the previous pass runs before this one.
	if rt.scheduled {
		rt.resolve()
	}

	leaves := compose.Prepare(tree)
	if err := uniqueTags(leaves); err != nil {
		return err
	}

	rt.generation++
	rt.attempts = 0

	batch := rt.r.mounts.NewBatch()
	var errs []error
	if rt.needsReattach(leaves) {
		rt.logger.Debug("reattach: %d -> %d leaves", len(rt.slots), len(leaves))
		rt.dropAll(batch)
		errs = rt.attachAll(leaves, batch)
	} else {
		errs = rt.patch(leaves, batch)
	}
	rt.mounted = true

	// The synchronous path stops seeing dropped tags before the drop
	// reaches the platform.
	rt.publication.Publish(rt.Leaves())
	if err := rt.r.cmds.FlushPendingCommands(); err != nil {
		errs = append(errs, err)
	}
	rt.schedule()
	batch.Commit()

	return errors.Join(errs...)
}

// Unmount drops every leaf. Later Updates fail with ErrUnmounted.
func (rt *Root) Unmount() {
	if rt.unmounted {
		return
	}
	rt.unmounted = true
	rt.generation++
	rt.scheduled = false
	rt.unwatch()

	batch := rt.r.mounts.NewBatch()
	rt.dropAll(batch)
	rt.publication.Reset()
	if err := rt.r.cmds.FlushPendingCommands(); err != nil {
		rt.logger.Warn("flush after unmount: %v", err)
	}
	batch.Commit()
}

func uniqueTags(leaves []*gesture.Descriptor) error {
	seen := make(map[gesture.Tag]bool, len(leaves))
	for _, d := range leaves {
		if seen[d.Tag()] {
			return fmt.Errorf("%w: %d", ErrDuplicateTag, d.Tag())
		}
		seen[d.Tag()] = true
	}
	return nil
}

// needsReattach reports whether leaves differ in shape from the current
// slots: another length, or a kind or execution context change at some
// index.
func (rt *Root) needsReattach(leaves []*gesture.Descriptor) bool {
	if rt.broken || len(leaves) != len(rt.slots) {
		return true
	}
	for i, d := range leaves {
		old := rt.slots[i].desc
		if d.Kind() != old.Kind() || d.Context() != old.Context() {
			return true
		}
	}
	return false
}

func (rt *Root) dropAll(batch *mount.Batch) {
	for _, s := range rt.slots {
		if s.live {
			rt.drop(s, batch)
		}
	}
	rt.slots = nil
	rt.broken = false
}

// drop removes the leaf of s from the registry before dropping it
// natively, so events that arrive for its tag afterwards are discarded.
func (rt *Root) drop(s *slot, batch *mount.Batch) {
	tag, kind := s.tag, s.desc.Kind()
	s.live = false
	rt.r.registry.Unregister(tag)
	if err := rt.r.cmds.DropGestureHandler(tag); err != nil {
		rt.logger.WithField("tag", tag).Warn("drop: %v", err)
	}
	if rt.r.cache != nil {
		rt.r.cache.Forget(tag)
	}
	batch.Unmounted(rt.id, tag, kind)
	rt.logger.WithField("tag", tag).Debug("dropped %s", kind)
}

func (rt *Root) attachAll(leaves []*gesture.Descriptor, batch *mount.Batch) []error {
	var errs []error
	rt.slots = make([]*slot, len(leaves))
	for i, d := range leaves {
		s := &slot{desc: d, tag: d.Tag()}
		rt.slots[i] = s
		if err := rt.attach(s); err != nil {
			errs = append(errs, err)
			rt.broken = true
			continue
		}
		batch.Mounted(rt.id, d.Tag(), d.Kind())
	}
	return errs
}

// attach validates, creates, registers and attaches the leaf of s,
// undoing the completed steps when a later one fails.
func (rt *Root) attach(s *slot) error {
	d, tag := s.desc, s.tag
	fail := func(op Op, err error) error {
		rt.logger.WithField("tag", tag).Error("%s %s: %v", op, d.Kind(), err)
		return &AttachError{Tag: tag, Kind: d.Kind(), Op: op, Err: err}
	}

	if err := d.Validate(); err != nil {
		return fail(OpValidate, err)
	}

	cfg := d.Config()
	if err := rt.r.cmds.CreateGestureHandler(d.Kind().NativeName(), tag, cfg); err != nil {
		return fail(OpCreate, err)
	}
	if err := rt.r.registry.Register(d); err != nil {
		_ = rt.r.cmds.DropGestureHandler(tag)
		return fail(OpRegister, err)
	}
	if err := rt.r.cmds.AttachGestureHandler(tag, rt.view, d.Context()); err != nil {
		rt.r.registry.Unregister(tag)
		_ = rt.r.cmds.DropGestureHandler(tag)
		return fail(OpAttach, err)
	}

	s.live = true
	s.sentConfig = cfg
	s.sentRelations = native.RelationLists{}
	rt.logger.WithField("tag", tag).Debug("attached %s", d.Kind())
	return nil
}

// patch moves the live tags onto the rebuilt leaves by position. A leaf
// that fails validation or registration keeps its previous descriptor.
func (rt *Root) patch(leaves []*gesture.Descriptor, batch *mount.Batch) []error {
	// Tags come from the slots, not from the previous descriptors: the
	// rebuilt list may reuse those at other positions, and adopting a tag
	// rewrites the descriptor.
	prev := make([]*gesture.Descriptor, len(rt.slots))
	// moved marks previous descriptors the rebuilt list places elsewhere.
	moved := make(map[*gesture.Descriptor]bool, len(leaves))
	for i, s := range rt.slots {
		prev[i] = s.desc
		rt.r.registry.Unregister(s.tag)
	}
	for i, d := range leaves {
		d.AdoptTag(rt.slots[i].tag)
		if d != prev[i] {
			moved[d] = true
		}
	}

	var errs []error
	for i, d := range leaves {
		s := rt.slots[i]
		op := OpValidate
		err := d.Validate()
		if err == nil {
			if err = rt.r.registry.Register(d); err == nil {
				s.desc = d
				continue
			}
			op = OpRegister
		}
		errs = append(errs, &AttachError{Tag: s.tag, Kind: d.Kind(), Op: op, Err: err})
		rt.restore(s, prev[i], moved[prev[i]], batch)
	}
	rt.logger.Debug("patched %d leaves", len(leaves))
	return errs
}

// restore puts back the previous descriptor of s after its replacement was
// rejected. A previous descriptor that now sits at another position, or
// that cannot be registered again, is dropped, and the next pass reattaches.
func (rt *Root) restore(s *slot, old *gesture.Descriptor, moved bool, batch *mount.Batch) {
	s.desc = old
	if !moved {
		err := rt.r.registry.Register(old)
		if err == nil {
			return
		}
		rt.logger.WithField("tag", s.tag).Warn("restore previous descriptor: %v", err)
	}
	rt.drop(s, batch)
	rt.broken = true
}

// schedule queues a resolution pass as a microtask of the current task.
func (rt *Root) schedule() {
	rt.scheduled = true
	gen := rt.generation
	rt.r.loop.QueueMicrotask(func() {
		if rt.unmounted || gen != rt.generation || !rt.scheduled {
			return
		}
		rt.resolve()
	})
}

// resolve sends the resolved config and relations of every live leaf that
// changed since they were last sent. Unresolved references are retried on
// a later tick while the budget lasts.
func (rt *Root) resolve() {
	rt.scheduled = false

	rt.watch()

	sent := 0
	var unresolved []gesture.Ref
	for _, s := range rt.slots {
		if !s.live {
			continue
		}
		rel, missing := rt.resolveRelations(s.desc)
		unresolved = append(unresolved, missing...)
		if rt.send(s, rel) {
			sent++
		}
	}
	if sent > 0 {
		if err := rt.r.cmds.FlushPendingCommands(); err != nil {
			rt.logger.Warn("flush relations: %v", err)
		}
	}

	if len(unresolved) == 0 {
		if rt.degraded {
			rt.logger.Info("all relations resolved")
		}
		rt.degraded = false
		return
	}

	if rt.attempts < rt.r.RetryBudget() {
		rt.attempts++
		gen := rt.generation
		rt.r.loop.Post(func() {
			if rt.unmounted || gen != rt.generation {
				return
			}
			rt.resolve()
		})
		return
	}

	if !rt.degraded {
		rt.degraded = true
		rt.logger.WithField("refs", len(unresolved)).
			Warn("relations unresolved after %d retries; treating them as absent", rt.attempts)
	}
}

// send issues the commands needed to bring the native side of s to its
// current config and rel. It reports whether a command was sent.
func (rt *Root) send(s *slot, rel native.RelationLists) bool {
	tag := s.tag
	cfg := s.desc.Config()
	log := rt.logger.WithField("tag", tag)

	switch {
	case !cmp.Equal(cfg, s.sentConfig, cmpopts.EquateEmpty()):
		if err := rt.r.cmds.SetGestureHandlerConfig(tag, cfg, rel); err != nil {
			log.Warn("set config: %v", err)
		}
		s.sentConfig = cfg
		s.sentRelations = rel
		return true
	case !cmp.Equal(rel, s.sentRelations, cmpopts.EquateEmpty()):
		if err := rt.r.cmds.ConfigureRelations(tag, rel); err != nil {
			log.Warn("configure relations: %v", err)
		}
		s.sentRelations = rel
		return true
	}
	return false
}

// resolveRelations maps the relations of d to live tags. References that
// are not live yet are returned as missing.
func (rt *Root) resolveRelations(d *gesture.Descriptor) (native.RelationLists, []gesture.Ref) {
	rels := d.Relations()
	self := d.Tag()
	var missing []gesture.Ref

	resolve := func(refs []gesture.Ref) []gesture.Tag {
		var out []gesture.Tag
		for _, ref := range refs {
			tag, ok := ref.Resolve(rt.r.registry.Has)
			if !ok {
				missing = append(missing, ref)
				continue
			}
			if tag == self || containsTag(out, tag) {
				continue
			}
			out = append(out, tag)
		}
		return out
	}

	return native.RelationLists{
		WaitFor:              resolve(rels.RequireToFail),
		SimultaneousHandlers: resolve(rels.SimultaneousWith),
		BlocksHandlers:       resolve(rels.Blocks),
	}, missing
}

func containsTag(tags []gesture.Tag, tag gesture.Tag) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// watch subscribes to the mount changes of the recognizers outside this
// root that the live leaves relate to. While some reference has no tag yet,
// every mount is observed instead, since any of them may fill it.
func (rt *Root) watch() {
	own := make(map[gesture.Tag]bool, len(rt.slots))
	for _, s := range rt.slots {
		if s.live {
			own[s.tag] = true
		}
	}

	want := make(map[gesture.Tag]bool)
	pending := false
	for _, s := range rt.slots {
		if !s.live {
			continue
		}
		rels := s.desc.Relations()
		for _, refs := range [][]gesture.Ref{rels.RequireToFail, rels.SimultaneousWith, rels.Blocks} {
			for _, ref := range refs {
				tag, ok := ref.Tag()
				switch {
				case !ok:
					pending = true
				case !own[tag]:
					want[tag] = true
				}
			}
		}
	}

	for tag, sub := range rt.watched {
		if !want[tag] {
			sub.Unsubscribe()
			delete(rt.watched, tag)
		}
	}
	for tag := range want {
		if rt.watched[tag] == nil {
			rt.watched[tag] = rt.r.mounts.SubscribeTag(tag, rt.onMountChange)
		}
	}

	switch {
	case pending && rt.pending == nil:
		rt.pending = rt.r.mounts.Subscribe(func(c mount.Change) {
			if c.Type == mount.Mounted {
				rt.onMountChange(c)
			}
		})
	case !pending && rt.pending != nil:
		rt.pending.Unsubscribe()
		rt.pending = nil
	}
}

func (rt *Root) unwatch() {
	for tag, sub := range rt.watched {
		sub.Unsubscribe()
		delete(rt.watched, tag)
	}
	rt.pending.Unsubscribe()
	rt.pending = nil
}

// Watched returns the number of mount subscriptions the root holds.
func (rt *Root) Watched() int {
	n := len(rt.watched)
	if rt.pending != nil {
		n++
	}
	return n
}

// onMountChange runs on the notifying goroutine. It only queues a
// coalesced re-check on the loop.
func (rt *Root) onMountChange(c mount.Change) {
	if c.Root == rt.id {
		return
	}
	if !rt.recheck.CompareAndSwap(false, true) {
		return
	}
	rt.r.loop.Post(rt.recheckRelations)
}

// recheckRelations re-resolves relations after another root mounted or
// dropped a recognizer, without a full reconciliation pass.
func (rt *Root) recheckRelations() {
	rt.recheck.Store(false)
	if rt.unmounted || !rt.mounted || rt.scheduled {
		return
	}
	rt.resolve()
}
