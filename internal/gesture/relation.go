package gesture

import "sync/atomic"

// Referent is anything a relation can point at: a Tag, a *Descriptor,
// a *Slot or a Ref.
type Referent interface {
	Ref() Ref
}

// Ref is one side of a relation. Exactly one of its targets is set.
type Ref struct {
	tag  Tag
	desc *Descriptor
	slot *Slot
}

// Ref implements Referent.
func (r Ref) Ref() Ref { return r }

// IsZero reports whether r points at nothing.
func (r Ref) IsZero() bool {
	return r.tag == 0 && r.desc == nil && r.slot == nil
}

// Target returns the descriptor r currently points at, if any.
func (r Ref) Target() *Descriptor {
	if r.desc != nil {
		return r.desc
	}
	if r.slot != nil {
		return r.slot.Get()
	}
	return nil
}

// Tag returns the tag r currently points at and whether one is known.
// A descriptor reference always knows its tag; a slot reference knows it
// once the slot is filled.
func (r Ref) Tag() (Tag, bool) {
	if r.tag > 0 {
		return r.tag, true
	}
	if d := r.Target(); d != nil {
		return d.Tag(), true
	}
	return 0, false
}

// Resolve returns the tag of r if it is known and live reports it attached.
// A nil live accepts every known tag.
func (r Ref) Resolve(live func(Tag) bool) (Tag, bool) {
	t, ok := r.Tag()
	if !ok {
		return 0, false
	}
	if live != nil && !live(t) {
		return t, false
	}
	return t, true
}

// same reports whether r and o point at the same target.
func (r Ref) same(o Ref) bool {
	switch {
	case r.tag > 0 || o.tag > 0:
		return r.tag == o.tag && r.desc == nil && o.desc == nil && r.slot == nil && o.slot == nil
	case r.slot != nil || o.slot != nil:
		return r.slot == o.slot
	default:
		return r.desc == o.desc
	}
}

// Slot is a holder that is filled once the owner of a descriptor commits,
// so relations may name a descriptor that does not exist yet.
type Slot struct {
	p atomic.Pointer[Descriptor]
}

// NewSlot returns an empty slot.
func NewSlot() *Slot {
	return &Slot{}
}

// Set fills the slot.
func (s *Slot) Set(d *Descriptor) { s.p.Store(d) }

// Get returns the descriptor in the slot or nil.
func (s *Slot) Get() *Descriptor { return s.p.Load() }

// Clear empties the slot.
func (s *Slot) Clear() { s.p.Store(nil) }

// Ref implements Referent.
func (s *Slot) Ref() Ref { return Ref{slot: s} }

// Relations holds the three relation lists of a descriptor.
type Relations struct {
	SimultaneousWith []Ref
	RequireToFail    []Ref
	Blocks           []Ref
}

// Clone returns a deep copy of r.
func (r Relations) Clone() Relations {
	return Relations{
		SimultaneousWith: append([]Ref(nil), r.SimultaneousWith...),
		RequireToFail:    append([]Ref(nil), r.RequireToFail...),
		Blocks:           append([]Ref(nil), r.Blocks...),
	}
}

// Len returns the total number of refs.
func (r Relations) Len() int {
	return len(r.SimultaneousWith) + len(r.RequireToFail) + len(r.Blocks)
}

// union returns r extended with the refs of o not already present.
func (r Relations) union(o Relations) Relations {
	return Relations{
		SimultaneousWith: appendUnique(append([]Ref(nil), r.SimultaneousWith...), o.SimultaneousWith...),
		RequireToFail:    appendUnique(append([]Ref(nil), r.RequireToFail...), o.RequireToFail...),
		Blocks:           appendUnique(append([]Ref(nil), r.Blocks...), o.Blocks...),
	}
}

func appendUnique(dst []Ref, refs ...Ref) []Ref {
next:
	for _, r := range refs {
		if r.IsZero() {
			continue
		}
		for _, have := range dst {
			if have.same(r) {
				continue next
			}
		}
		dst = append(dst, r)
	}
	return dst
}

func refsOf(targets []Referent) []Ref {
	out := make([]Ref, 0, len(targets))
	for _, t := range targets {
		if t == nil {
			continue
		}
		out = append(out, t.Ref())
	}
	return out
}
