// Package mount provides the mount and unmount notification stream.
//
// Attachment roots publish a Change when one of their recognizers becomes
// live or is dropped. Other roots that relate to it by external reference
// subscribe so they can re-check their relations without a full
// reconciliation pass.
package mount

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/gesturekit/internal/gesture"
)

// ChangeType is the kind of mount change.
type ChangeType int

const (
	// Mounted indicates a recognizer became live.
	Mounted ChangeType = iota

	// Unmounted indicates a recognizer was dropped.
	Unmounted
)

// String returns the change type name.
func (c ChangeType) String() string {
	switch c {
	case Mounted:
		return "mounted"
	case Unmounted:
		return "unmounted"
	default:
		return "unknown"
	}
}

// Change is one mount notification.
type Change struct {
	Type ChangeType
	Tag  gesture.Tag
	Kind gesture.Kind

	// Root identifies the attachment root that owns the recognizer.
	Root uuid.UUID
}

// Observer is called for mount changes.
type Observer func(change Change)

// Subscription is an active observer registration.
type Subscription struct {
	id       uint64
	notifier *Notifier
}

// Unsubscribe removes the observer. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s != nil && s.notifier != nil {
		s.notifier.unsubscribe(s.id)
	}
}

// Notifier delivers mount changes to observers in subscription order, on
// the notifying goroutine.
type Notifier struct {
	mu sync.RWMutex

	observers    map[uint64]Observer
	tagObservers map[gesture.Tag]map[uint64]Observer
	nextID       uint64
}

// New creates a Notifier.
func New() *Notifier {
	return &Notifier{
		observers:    make(map[uint64]Observer),
		tagObservers: make(map[gesture.Tag]map[uint64]Observer),
	}
}

// Subscribe registers an observer for every change.
func (n *Notifier) Subscribe(observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.observers[id] = observer
	return &Subscription{id: id, notifier: n}
}

// SubscribeTag registers an observer for changes of one tag.
func (n *Notifier) SubscribeTag(tag gesture.Tag, observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	if n.tagObservers[tag] == nil {
		n.tagObservers[tag] = make(map[uint64]Observer)
	}
	n.tagObservers[tag][id] = observer
	return &Subscription{id: id, notifier: n}
}

// Observers returns the number of registered observers.
func (n *Notifier) Observers() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	count := len(n.observers)
	for _, obs := range n.tagObservers {
		count += len(obs)
	}
	return count
}

func (n *Notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	delete(n.observers, id)
	for tag, obs := range n.tagObservers {
		delete(obs, id)
		if len(obs) == 0 {
			delete(n.tagObservers, tag)
		}
	}
}

type entry struct {
	id  uint64
	obs Observer
}

// Notify delivers change to the observers of every change and to those of
// its tag.
func (n *Notifier) Notify(change Change) {
	n.mu.RLock()
	entries := make([]entry, 0, len(n.observers))
	for id, obs := range n.observers {
		entries = append(entries, entry{id, obs})
	}
	for id, obs := range n.tagObservers[change.Tag] {
		entries = append(entries, entry{id, obs})
	}
	n.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].id < entries[j].id })

	// Observers run outside the lock so they may subscribe or unsubscribe.
	for _, e := range entries {
		e.obs(change)
	}
}

// Batch collects changes and delivers them together on Commit.
type Batch struct {
	notifier *Notifier
	mu       sync.Mutex
	changes  []Change
}

// NewBatch creates an empty batch.
func (n *Notifier) NewBatch() *Batch {
	return &Batch{notifier: n}
}

// Add queues a change.
func (b *Batch) Add(change Change) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.changes = append(b.changes, change)
}

// Mounted queues a Mounted change.
func (b *Batch) Mounted(root uuid.UUID, tag gesture.Tag, kind gesture.Kind) {
	b.Add(Change{Type: Mounted, Tag: tag, Kind: kind, Root: root})
}

// Unmounted queues an Unmounted change.
func (b *Batch) Unmounted(root uuid.UUID, tag gesture.Tag, kind gesture.Kind) {
	b.Add(Change{Type: Unmounted, Tag: tag, Kind: kind, Root: root})
}

// Commit delivers the queued changes in order and empties the batch.
func (b *Batch) Commit() {
	b.mu.Lock()
	changes := b.changes
	b.changes = nil
	b.mu.Unlock()

	for _, c := range changes {
		b.notifier.Notify(c)
	}
}

// Len returns the number of queued changes.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.changes)
}
