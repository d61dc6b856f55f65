package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario is one replayable scenario.
type Scenario struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Config holds engine settings laid over the base configuration,
	// in the layout of a configuration file.
	Config yaml.Node `yaml:"config,omitempty" json:"-"`

	Gestures []GestureSpec `yaml:"gestures" json:"gestures"`
	Steps    []Step        `yaml:"steps" json:"steps"`
}

// GestureSpec defines a named gesture. A descriptor is built from it every
// time a tree that names it is reconciled.
type GestureSpec struct {
	Name    string         `yaml:"name" json:"name"`
	Kind    string         `yaml:"kind" json:"kind"`
	Context string         `yaml:"context,omitempty" json:"context,omitempty"`
	Options map[string]any `yaml:"options,omitempty" json:"options,omitempty"`

	// Trace lists the callbacks whose invocations are written to the trace.
	// "all" selects every state and update callback of the kind.
	Trace []string `yaml:"trace,omitempty" json:"trace,omitempty"`

	// Scripts maps callback names to Lua snippets.
	Scripts map[string]string `yaml:"scripts,omitempty" json:"scripts,omitempty"`

	RequireToFail    []string `yaml:"require_to_fail,omitempty" json:"require_to_fail,omitempty"`
	SimultaneousWith []string `yaml:"simultaneous_with,omitempty" json:"simultaneous_with,omitempty"`
	Blocks           []string `yaml:"blocks,omitempty" json:"blocks,omitempty"`
}

// Step is one action. Exactly one field is set.
type Step struct {
	Define  []GestureSpec `yaml:"define,omitempty" json:"define,omitempty"`
	Update  *UpdateStep   `yaml:"update,omitempty" json:"update,omitempty"`
	Unmount string        `yaml:"unmount,omitempty" json:"unmount,omitempty"`
	Event   *EventStep    `yaml:"event,omitempty" json:"event,omitempty"`
}

// UpdateStep reconciles a root with a tree. The root is created on first
// use; View defaults to the root's position among the roots.
type UpdateStep struct {
	Root string `yaml:"root" json:"root"`
	View int64  `yaml:"view,omitempty" json:"view,omitempty"`
	Tree Node   `yaml:"tree" json:"tree"`
}

// EventStep delivers one native event for a gesture.
type EventStep struct {
	Gesture string `yaml:"gesture" json:"gesture"`

	// Type is state, update or touch.
	Type string `yaml:"type" json:"type"`

	From     string             `yaml:"from,omitempty" json:"from,omitempty"`
	To       string             `yaml:"to,omitempty" json:"to,omitempty"`
	State    string             `yaml:"state,omitempty" json:"state,omitempty"`
	Phase    string             `yaml:"phase,omitempty" json:"phase,omitempty"`
	Pointers int                `yaml:"pointers,omitempty" json:"pointers,omitempty"`
	Payload  map[string]float64 `yaml:"payload,omitempty" json:"payload,omitempty"`

	// Via forces the deferred or synchronous path. By default the path
	// follows the gesture's execution context.
	Via string `yaml:"via,omitempty" json:"via,omitempty"`
}

func (s Step) action() (string, error) {
	var set []string
	if s.Define != nil {
		set = append(set, "define")
	}
	if s.Update != nil {
		set = append(set, "update")
	}
	if s.Unmount != "" {
		set = append(set, "unmount")
	}
	if s.Event != nil {
		set = append(set, "event")
	}
	if len(set) != 1 {
		return "", fmt.Errorf("%w: want one action, have %d (%s)", ErrInvalidStep, len(set), strings.Join(set, ", "))
	}
	return set[0], nil
}

// Parse decodes a scenario. Unknown keys are rejected.
func Parse(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Scenario
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty scenario")
		}
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads and parses the scenario file at path. A scenario without a
// name is named after the file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = path
	}
	return s, nil
}

// Validate checks the static structure: gesture names are unique and
// every step has exactly one action. References are checked during replay.
func (s *Scenario) Validate() error {
	seen := make(map[string]bool, len(s.Gestures))
	for _, g := range s.Gestures {
		if g.Name == "" {
			return errors.New("gesture without a name")
		}
		if seen[g.Name] {
			return fmt.Errorf("gesture %q defined twice", g.Name)
		}
		seen[g.Name] = true
	}
	for i, st := range s.Steps {
		if _, err := st.action(); err != nil {
			return &StepError{Step: i + 1, Err: err}
		}
	}
	return nil
}
