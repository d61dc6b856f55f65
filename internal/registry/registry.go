// Package registry maps handler tags to their live descriptors.
//
// The Registry is mutated from the deferred context only. The synchronous
// dispatch path never reads it; it reads the immutable Table published
// through a Publication instead.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dshills/gesturekit/internal/gesture"
)

// Registry is the single source of truth for which descriptor owns a tag.
type Registry struct {
	mu     sync.RWMutex
	byTag  map[gesture.Tag]*gesture.Descriptor
	byName map[string]gesture.Tag
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		byTag:  make(map[gesture.Tag]*gesture.Descriptor),
		byName: make(map[string]gesture.Tag),
	}
}

// Register stores d under its tag, replacing any previous descriptor for
// that tag. A named descriptor is also indexed by name; registering a name
// that belongs to another live tag fails with ErrDuplicateName and leaves
// the registry unchanged.
func (r *Registry) Register(d *gesture.Descriptor) error {
	tag := d.Tag()
	if !tag.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidTag, tag)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := d.Name()
	if name != "" {
		if owner, ok := r.byName[name]; ok && owner != tag {
			return fmt.Errorf("%w: %q (tag %d)", ErrDuplicateName, name, owner)
		}
	}

	if prev, ok := r.byTag[tag]; ok && prev.Name() != "" && prev.Name() != name {
		delete(r.byName, prev.Name())
	}
	r.byTag[tag] = d
	if name != "" {
		r.byName[name] = tag
	}
	return nil
}

// Unregister removes tag. It reports whether the tag was registered.
func (r *Registry) Unregister(tag gesture.Tag) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.byTag[tag]
	if !ok {
		return false
	}
	delete(r.byTag, tag)
	if name := d.Name(); name != "" && r.byName[name] == tag {
		delete(r.byName, name)
	}
	return true
}

// Find returns the descriptor that owns tag.
func (r *Registry) Find(tag gesture.Tag) (*gesture.Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byTag[tag]
	return d, ok
}

// FindByName returns the tag indexed under name.
func (r *Registry) FindByName(name string) (gesture.Tag, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tag, ok := r.byName[name]
	return tag, ok
}

// Has reports whether tag is live.
func (r *Registry) Has(tag gesture.Tag) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byTag[tag]
	return ok
}

// Count returns the number of live tags.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byTag)
}

// Tags returns the live tags in ascending order.
func (r *Registry) Tags() []gesture.Tag {
	r.mu.RLock()
	tags := make([]gesture.Tag, 0, len(r.byTag))
	for t := range r.byTag {
		tags = append(tags, t)
	}
	r.mu.RUnlock()

	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// Clear removes every entry.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byTag = make(map[gesture.Tag]*gesture.Descriptor)
	r.byName = make(map[string]gesture.Tag)
}
