// Package compose combines gesture descriptors into race, simultaneous and
// exclusive groups.
//
// A composition is never attached. Prepare writes the relations the
// composition implies onto its leaves, and Leaves flattens it into the
// ordered list the reconciler attaches.
package compose

import "github.com/dshills/gesturekit/internal/gesture"

// Gesture is a single descriptor or a composition of them.
type Gesture interface {
	// Leaves returns the descriptors of the gesture in child order.
	Leaves() []*gesture.Descriptor
}

// Mode selects how the children of a composition interact.
type Mode uint8

const (
	// ModeRace lets any child win. No relations are added.
	ModeRace Mode = iota
	// ModeSimultaneous lets every child be active at once.
	ModeSimultaneous
	// ModeExclusive gives children priority in order: a child may only
	// activate once every earlier child has failed.
	ModeExclusive
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeRace:
		return "race"
	case ModeSimultaneous:
		return "simultaneous"
	case ModeExclusive:
		return "exclusive"
	default:
		return "unknown"
	}
}

// Composition is an internal node of a gesture tree.
type Composition struct {
	mode     Mode
	children []Gesture
}

// Race composes children that compete; the first to activate wins.
func Race(children ...Gesture) *Composition {
	return newComposition(ModeRace, children)
}

// Simultaneous composes children that may all be active together.
func Simultaneous(children ...Gesture) *Composition {
	return newComposition(ModeSimultaneous, children)
}

// Exclusive composes children in priority order.
func Exclusive(children ...Gesture) *Composition {
	return newComposition(ModeExclusive, children)
}

func newComposition(mode Mode, children []Gesture) *Composition {
	kept := make([]Gesture, 0, len(children))
	for _, c := range children {
		if c != nil {
			kept = append(kept, c)
		}
	}
	return &Composition{mode: mode, children: kept}
}

// Mode returns the composition mode.
func (c *Composition) Mode() Mode { return c.mode }

// Children returns the direct children.
func (c *Composition) Children() []Gesture {
	return append([]Gesture(nil), c.children...)
}

// Leaves implements Gesture.
func (c *Composition) Leaves() []*gesture.Descriptor {
	var out []*gesture.Descriptor
	for _, child := range c.children {
		out = append(out, child.Leaves()...)
	}
	return out
}

// Prepare writes the relations implied by g onto its leaves and returns the
// leaves in order. Relations from an earlier Prepare are discarded first,
// so calling it again on the same tree gives the same result.
func Prepare(g Gesture) []*gesture.Descriptor {
	if g == nil {
		return nil
	}
	leaves := g.Leaves()
	for _, d := range leaves {
		d.ClearComposedRelations()
	}
	propagate(g, nil, nil)
	return leaves
}

// propagate passes the simultaneous and require-to-fail sets accumulated
// from ancestors down to every leaf of g.
func propagate(g Gesture, simultaneous, requireToFail []*gesture.Descriptor) {
	c, ok := g.(*Composition)
	if !ok {
		for _, d := range g.Leaves() {
			d.ExtendComposedRelations(simultaneous, requireToFail)
		}
		return
	}

	switch c.mode {
	case ModeSimultaneous:
		for i, child := range c.children {
			sim := append([]*gesture.Descriptor(nil), simultaneous...)
			for j, sibling := range c.children {
				if j != i {
					sim = append(sim, sibling.Leaves()...)
				}
			}
			propagate(child, sim, requireToFail)
		}
	case ModeExclusive:
		var earlier []*gesture.Descriptor
		for _, child := range c.children {
			req := append(append([]*gesture.Descriptor(nil), requireToFail...), earlier...)
			propagate(child, simultaneous, req)
			earlier = append(earlier, child.Leaves()...)
		}
	default:
		for _, child := range c.children {
			propagate(child, simultaneous, requireToFail)
		}
	}
}
