package native

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dshills/gesturekit/internal/gesture"
)

// Op names a command.
type Op string

const (
	OpCreate    Op = "create"
	OpSetConfig Op = "setConfig"
	OpAttach    Op = "attach"
	OpDrop      Op = "drop"
	OpRelations Op = "relations"
	OpSetState  Op = "setState"
	OpFlush     Op = "flush"
)

// Command is one recorded call.
type Command struct {
	Op        Op
	Tag       gesture.Tag
	Kind      string
	View      ViewID
	Mode      gesture.ExecutionContext
	State     gesture.State
	Config    gesture.Config
	Relations RelationLists
}

// String renders c on one line.
func (c Command) String() string {
	var sb strings.Builder
	sb.WriteString(string(c.Op))
	if c.Op == OpFlush {
		return sb.String()
	}
	fmt.Fprintf(&sb, " tag=%d", c.Tag)
	switch c.Op {
	case OpCreate:
		fmt.Fprintf(&sb, " kind=%s", c.Kind)
	case OpAttach:
		fmt.Fprintf(&sb, " view=%d mode=%s", c.View, c.Mode)
	case OpSetState:
		fmt.Fprintf(&sb, " state=%s", c.State)
	case OpSetConfig, OpRelations:
		writeRelations(&sb, c.Relations)
	}
	return sb.String()
}

func writeRelations(sb *strings.Builder, r RelationLists) {
	fmt.Fprintf(sb, " waitFor=%v simultaneous=%v blocks=%v", r.WaitFor, r.SimultaneousHandlers, r.BlocksHandlers)
}

// handler is the native-side state of one tag.
type handler struct {
	kind      string
	config    gesture.Config
	relations RelationLists
	view      ViewID
	attached  bool
	state     gesture.State
}

// Recorder is an in-memory Commands implementation. It keeps the
// native-side state of each handler and the log of every command.
// A Recorder is safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	log      []Command
	handlers map[gesture.Tag]*handler
	kinds    map[string]bool

	failCreate map[string]bool
	failAttach map[gesture.Tag]bool
}

// NewRecorder creates a recorder that knows the native name of every
// gesture kind.
func NewRecorder() *Recorder {
	r := &Recorder{
		handlers:   make(map[gesture.Tag]*handler),
		kinds:      make(map[string]bool),
		failCreate: make(map[string]bool),
		failAttach: make(map[gesture.Tag]bool),
	}
	for _, k := range gesture.Kinds() {
		r.kinds[k.NativeName()] = true
	}
	return r
}

// FailCreate makes CreateGestureHandler fail for the native kind name.
func (r *Recorder) FailCreate(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failCreate[kind] = true
}

// FailAttach makes AttachGestureHandler fail for tag.
func (r *Recorder) FailAttach(tag gesture.Tag) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failAttach[tag] = true
}

func (r *Recorder) record(c Command) {
	r.log = append(r.log, c)
}

// CreateGestureHandler implements Commands.
func (r *Recorder) CreateGestureHandler(kind string, tag gesture.Tag, config gesture.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.record(Command{Op: OpCreate, Tag: tag, Kind: kind, Config: config.Clone()})
	switch {
	case r.failCreate[kind]:
		return fmt.Errorf("%w: create %s", ErrInjected, kind)
	case !r.kinds[kind]:
		return fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	if _, ok := r.handlers[tag]; ok {
		return fmt.Errorf("%w: %d", ErrAlreadyExists, tag)
	}
	r.handlers[tag] = &handler{kind: kind, config: config.Clone()}
	return nil
}

// SetGestureHandlerConfig implements Commands.
func (r *Recorder) SetGestureHandlerConfig(tag gesture.Tag, config gesture.Config, relations RelationLists) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.record(Command{Op: OpSetConfig, Tag: tag, Config: config.Clone(), Relations: relations})
	h, ok := r.handlers[tag]
	if !ok {
		return fmt.Errorf("%w %d", ErrUnknownHandler, tag)
	}
	h.config = config.Clone()
	h.relations = relations
	return nil
}

// AttachGestureHandler implements Commands.
func (r *Recorder) AttachGestureHandler(tag gesture.Tag, view ViewID, mode gesture.ExecutionContext) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.record(Command{Op: OpAttach, Tag: tag, View: view, Mode: mode})
	if r.failAttach[tag] {
		return fmt.Errorf("%w: attach %d", ErrInjected, tag)
	}
	h, ok := r.handlers[tag]
	if !ok {
		return fmt.Errorf("%w %d", ErrUnknownHandler, tag)
	}
	h.view = view
	h.attached = true
	return nil
}

// DropGestureHandler implements Commands. Dropping an unknown tag is not
// an error.
func (r *Recorder) DropGestureHandler(tag gesture.Tag) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.record(Command{Op: OpDrop, Tag: tag})
	delete(r.handlers, tag)
	return nil
}

// ConfigureRelations implements Commands.
func (r *Recorder) ConfigureRelations(tag gesture.Tag, relations RelationLists) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.record(Command{Op: OpRelations, Tag: tag, Relations: relations})
	h, ok := r.handlers[tag]
	if !ok {
		return fmt.Errorf("%w %d", ErrUnknownHandler, tag)
	}
	h.relations = relations
	return nil
}

// SetGestureHandlerState implements Commands.
func (r *Recorder) SetGestureHandlerState(tag gesture.Tag, state gesture.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.record(Command{Op: OpSetState, Tag: tag, State: state})
	h, ok := r.handlers[tag]
	if !ok {
		return fmt.Errorf("%w %d", ErrUnknownHandler, tag)
	}
	h.state = state
	return nil
}

// FlushPendingCommands implements Commands.
func (r *Recorder) FlushPendingCommands() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Command{Op: OpFlush})
	return nil
}

// Commands returns a copy of the command log.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Command(nil), r.log...)
}

// Count returns how many times op was recorded.
func (r *Recorder) Count(op Op) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.log {
		if c.Op == op {
			n++
		}
	}
	return n
}

// CountFor returns how many times op was recorded for tag.
func (r *Recorder) CountFor(op Op, tag gesture.Tag) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.log {
		if c.Op == op && c.Tag == tag {
			n++
		}
	}
	return n
}

// Reset clears the command log. Native handler state is kept.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = nil
}

// Live reports whether tag exists on the native side.
func (r *Recorder) Live(tag gesture.Tag) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.handlers[tag]
	return ok
}

// Relations returns the relations last sent for tag.
func (r *Recorder) Relations(tag gesture.Tag) (RelationLists, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handlers[tag]
	if !ok {
		return RelationLists{}, false
	}
	return h.relations, true
}

// Config returns the config last sent for tag.
func (r *Recorder) Config(tag gesture.Tag) (gesture.Config, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handlers[tag]
	if !ok {
		return nil, false
	}
	return h.config.Clone(), true
}

// State returns the state last forced on tag.
func (r *Recorder) State(tag gesture.Tag) (gesture.State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handlers[tag]
	if !ok {
		return gesture.StateUndetermined, false
	}
	return h.state, true
}
