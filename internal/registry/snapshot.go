package registry

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dshills/gesturekit/internal/gesture"
)

// Entry is the part of a descriptor the synchronous path needs.
type Entry struct {
	Tag         gesture.Tag
	Fingerprint uuid.UUID
	Kind        gesture.Kind
	Callbacks   gesture.Callbacks
	Calculator  gesture.Calculator
	Continuous  bool
}

// Table is an immutable callback table. It is never modified after
// publication; a change publishes a new Table.
type Table struct {
	entries []Entry
	index   map[gesture.Tag]int
	version uint64
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Version increases with every publication of the owning Publication.
func (t *Table) Version() uint64 {
	if t == nil {
		return 0
	}
	return t.version
}

// At returns the entry at index i.
func (t *Table) At(i int) *Entry {
	return &t.entries[i]
}

// Lookup returns the slot index and entry of tag.
func (t *Table) Lookup(tag gesture.Tag) (int, *Entry, bool) {
	if t == nil {
		return 0, nil, false
	}
	i, ok := t.index[tag]
	if !ok {
		return 0, nil, false
	}
	return i, &t.entries[i], true
}

// Publication holds the current Table of one attachment root.
// Readers load it without locking.
type Publication struct {
	current   atomic.Pointer[Table]
	published atomic.Uint64
}

// NewPublication creates a publication holding an empty table.
func NewPublication() *Publication {
	p := &Publication{}
	p.current.Store(&Table{index: map[gesture.Tag]int{}})
	return p
}

// Load returns the current table. It never blocks.
func (p *Publication) Load() *Table {
	return p.current.Load()
}

// Publications returns how many tables were published, the initial empty
// one excluded.
func (p *Publication) Publications() uint64 {
	return p.published.Load()
}

// Publish builds a table from the synchronous leaves and swaps it in when
// the leaf set changed shape or any fingerprint changed. It reports whether
// a new table was published.
func (p *Publication) Publish(leaves []*gesture.Descriptor) bool {
	entries := make([]Entry, 0, len(leaves))
	for _, d := range leaves {
		if d.Context() != gesture.Synchronous {
			continue
		}
		entries = append(entries, Entry{
			Tag:         d.Tag(),
			Fingerprint: d.Fingerprint(),
			Kind:        d.Kind(),
			Callbacks:   d.Callbacks(),
			Calculator:  d.Calculator(),
			Continuous:  d.NeedsContinuousTracking(),
		})
	}

	cur := p.current.Load()
	if !changed(cur, entries) {
		return false
	}

	next := &Table{
		entries: entries,
		index:   make(map[gesture.Tag]int, len(entries)),
		version: cur.Version() + 1,
	}
	for i, e := range entries {
		next.index[e.Tag] = i
	}
	p.current.Store(next)
	p.published.Add(1)
	return true
}

// Reset publishes an empty table.
func (p *Publication) Reset() {
	cur := p.current.Load()
	if cur.Len() == 0 {
		return
	}
	p.current.Store(&Table{index: map[gesture.Tag]int{}, version: cur.Version() + 1})
	p.published.Add(1)
}

func changed(cur *Table, entries []Entry) bool {
	if cur.Len() != len(entries) {
		return true
	}
	for i := range entries {
		old := cur.entries[i]
		if old.Tag != entries[i].Tag || old.Fingerprint != entries[i].Fingerprint {
			return true
		}
	}
	return false
}
