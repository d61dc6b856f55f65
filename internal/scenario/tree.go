package scenario

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/gesturekit/internal/compose"
)

// Node is a gesture tree: either a gesture name or a composition of child
// nodes written as a single-key mapping, e.g. {exclusive: [double, single]}.
type Node struct {
	Gesture  string
	Mode     string
	Children []Node
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		n.Gesture = value.Value
		return nil
	case yaml.MappingNode:
		if len(value.Content) != 2 {
			return fmt.Errorf("%w: line %d: composition needs exactly one mode key", ErrInvalidTree, value.Line)
		}
		mode := value.Content[0].Value
		if _, err := modeOf(mode); err != nil {
			return fmt.Errorf("%w: line %d: %v", ErrInvalidTree, value.Line, err)
		}
		n.Mode = mode
		return value.Content[1].Decode(&n.Children)
	default:
		return fmt.Errorf("%w: line %d: expected a name or a composition", ErrInvalidTree, value.Line)
	}
}

// MarshalJSON renders the tree in its compact string form.
func (n Node) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", n.String())), nil
}

// String renders the tree as e.g. exclusive(double, single).
func (n Node) String() string {
	if n.Mode == "" {
		return n.Gesture
	}
	parts := make([]string, len(n.Children))
	for i, c := range n.Children {
		parts[i] = c.String()
	}
	return n.Mode + "(" + strings.Join(parts, ", ") + ")"
}

// Names returns the gesture names of the tree in leaf order.
func (n Node) Names() []string {
	if n.Mode == "" {
		if n.Gesture == "" {
			return nil
		}
		return []string{n.Gesture}
	}
	var out []string
	for _, c := range n.Children {
		out = append(out, c.Names()...)
	}
	return out
}

func modeOf(name string) (compose.Mode, error) {
	switch name {
	case "race":
		return compose.ModeRace, nil
	case "simultaneous":
		return compose.ModeSimultaneous, nil
	case "exclusive":
		return compose.ModeExclusive, nil
	}
	return 0, fmt.Errorf("unknown composition %q", name)
}
