package scenario

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/gesturekit/internal/app"
	"github.com/dshills/gesturekit/internal/compose"
	"github.com/dshills/gesturekit/internal/config"
	"github.com/dshills/gesturekit/internal/dispatch"
	"github.com/dshills/gesturekit/internal/gesture"
	"github.com/dshills/gesturekit/internal/logging"
	"github.com/dshills/gesturekit/internal/native"
	"github.com/dshills/gesturekit/internal/reconcile"
)

// Result is the outcome of one replay.
type Result struct {
	Name  string   `json:"name"`
	Trace []string `json:"trace"`
}

// Text renders the trace with a header line.
func (r *Result) Text() string {
	var sb strings.Builder
	sb.WriteString("# ")
	sb.WriteString(r.Name)
	sb.WriteByte('\n')
	for _, line := range r.Trace {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// JSON renders the result as indented JSON.
func (r *Result) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Option configures a replay.
type Option func(*replay)

// WithConfig sets the base configuration the scenario's own config block
// is laid over.
func WithConfig(cfg config.Config) Option {
	return func(r *replay) {
		r.cfg = cfg
	}
}

// WithLogger sets the engine logger. Replays are silent by default.
func WithLogger(l *logging.Logger) Option {
	return func(r *replay) {
		r.logger = l
	}
}

type replay struct {
	cfg    config.Config
	logger *logging.Logger

	eng     *app.Engine
	rec     *native.Recorder
	scripts *scripts

	specs map[string]GestureSpec
	slots map[string]*gesture.Slot
	owner map[string]string
	roots map[string]*reconcile.Root
	views map[string]native.ViewID

	lines []string
	seen  int
}

// Run replays s against a fresh engine and recording native layer. The
// engine loop is not started; queued work is drained after every step.
func Run(ctx context.Context, s *Scenario, opts ...Option) (*Result, error) {
	r := &replay{
		cfg:    config.Default(),
		logger: logging.Nop(),
		specs:  make(map[string]GestureSpec),
		slots:  make(map[string]*gesture.Slot),
		owner:  make(map[string]string),
		roots:  make(map[string]*reconcile.Root),
		views:  make(map[string]native.ViewID),
	}
	for _, opt := range opts {
		opt(r)
	}

	if !s.Config.IsZero() {
		if err := s.Config.Decode(&r.cfg); err != nil {
			return nil, fmt.Errorf("scenario config: %w", err)
		}
	}
	if err := r.cfg.Validate(); err != nil {
		return nil, err
	}

	r.rec = native.NewRecorder()
	r.eng = app.New(r.cfg, r.rec, app.WithLogger(r.logger))
	r.scripts = newScripts(func(line string) { r.line("  " + line) })
	defer r.scripts.close()

	for _, g := range s.Gestures {
		r.specs[g.Name] = g
	}

	for i, st := range s.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.step(ctx, i+1, st); err != nil {
			return nil, &StepError{Step: i + 1, Err: err}
		}
		if err := r.drain(); err != nil {
			return nil, &StepError{Step: i + 1, Err: err}
		}
		r.commands()
	}
	r.lines = append(r.lines, fmt.Sprintf("= registered=%d", r.eng.Registry().Count()))

	return &Result{Name: s.Name, Trace: r.lines}, nil
}

// line appends a trace line after the native commands issued so far.
func (r *replay) line(s string) {
	r.commands()
	r.lines = append(r.lines, s)
}

func (r *replay) commands() {
	cmds := r.rec.Commands()
	for _, c := range cmds[r.seen:] {
		r.lines = append(r.lines, "  > "+c.String())
	}
	r.seen = len(cmds)
}

func (r *replay) drain() error {
	_, err := r.eng.Loop().Drain()
	return err
}

func (r *replay) step(ctx context.Context, n int, st Step) error {
	action, err := st.action()
	if err != nil {
		return err
	}
	switch action {
	case "define":
		names := make([]string, len(st.Define))
		for i, g := range st.Define {
			r.specs[g.Name] = g
			names[i] = g.Name
		}
		r.line(fmt.Sprintf("[%d] define %s", n, strings.Join(names, ", ")))
		return nil
	case "update":
		return r.update(ctx, n, st.Update)
	case "unmount":
		return r.unmount(ctx, n, st.Unmount)
	default:
		return r.event(n, st.Event)
	}
}

func (r *replay) update(ctx context.Context, n int, u *UpdateStep) error {
	root, ok := r.roots[u.Root]
	if !ok {
		view := native.ViewID(u.View)
		if view == 0 {
			view = native.ViewID(len(r.roots) + 1)
		}
		root = r.eng.NewRoot(view)
		r.roots[u.Root] = root
		r.views[u.Root] = view
	}
	r.line(fmt.Sprintf("[%d] update root=%s view=%d tree=%s", n, u.Root, r.views[u.Root], u.Tree))

	tree, err := r.build(u.Tree, u.Root)
	if err != nil {
		return err
	}
	if err := r.eng.Update(ctx, root, tree); err != nil {
		for _, msg := range strings.Split(err.Error(), "\n") {
			r.line("  ! " + msg)
		}
	}
	return nil
}

func (r *replay) unmount(ctx context.Context, n int, name string) error {
	root, ok := r.roots[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRoot, name)
	}
	r.line(fmt.Sprintf("[%d] unmount root=%s", n, name))
	return r.eng.Unmount(ctx, root)
}

func (r *replay) build(n Node, root string) (compose.Gesture, error) {
	if n.Mode == "" {
		spec, ok := r.specs[n.Gesture]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownGesture, n.Gesture)
		}
		d, err := r.descriptor(spec)
		if err != nil {
			return nil, err
		}
		r.slot(spec.Name).Set(d)
		r.owner[spec.Name] = root
		return d, nil
	}

	children := make([]compose.Gesture, 0, len(n.Children))
	for _, c := range n.Children {
		g, err := r.build(c, root)
		if err != nil {
			return nil, err
		}
		children = append(children, g)
	}
	mode, err := modeOf(n.Mode)
	if err != nil {
		return nil, err
	}
	switch mode {
	case compose.ModeSimultaneous:
		return compose.Simultaneous(children...), nil
	case compose.ModeExclusive:
		return compose.Exclusive(children...), nil
	default:
		return compose.Race(children...), nil
	}
}

func (r *replay) slot(name string) *gesture.Slot {
	s, ok := r.slots[name]
	if !ok {
		s = gesture.NewSlot()
		r.slots[name] = s
	}
	return s
}

func (r *replay) refs(names []string) []gesture.Referent {
	out := make([]gesture.Referent, len(names))
	for i, name := range names {
		out[i] = r.slot(name)
	}
	return out
}

func (r *replay) descriptor(spec GestureSpec) (*gesture.Descriptor, error) {
	kind, err := gesture.ParseKind(spec.Kind)
	if err != nil {
		return nil, fmt.Errorf("gesture %q: %w", spec.Name, err)
	}
	d := r.eng.Gestures().New(kind).WithName(spec.Name)
	if spec.Context != "" {
		ctx, err := gesture.ParseExecutionContext(spec.Context)
		if err != nil {
			return nil, fmt.Errorf("gesture %q: %w", spec.Name, err)
		}
		d.RunOn(ctx)
	}

	keys := make([]string, 0, len(spec.Options))
	for k := range spec.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		d.Set(k, spec.Options[k])
	}

	d.RequireToFail(r.refs(spec.RequireToFail)...).
		SimultaneousWith(r.refs(spec.SimultaneousWith)...).
		BlocksExternal(r.refs(spec.Blocks)...)

	if err := r.bind(d, spec); err != nil {
		return nil, fmt.Errorf("gesture %q: %w", spec.Name, err)
	}
	return d, nil
}

var callbackKinds = []gesture.CallbackKind{
	gesture.CallbackBegin,
	gesture.CallbackStart,
	gesture.CallbackUpdate,
	gesture.CallbackChange,
	gesture.CallbackEnd,
	gesture.CallbackFinalize,
	gesture.CallbackTouchesDown,
	gesture.CallbackTouchesMove,
	gesture.CallbackTouchesUp,
	gesture.CallbackTouchesCancelled,
}

func parseCallback(name string) (gesture.CallbackKind, error) {
	for _, k := range callbackKinds {
		if k.String() == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown callback %q", name)
}

// bind registers the traced and scripted callbacks of spec on d.
func (r *replay) bind(d *gesture.Descriptor, spec GestureSpec) error {
	traced := make(map[gesture.CallbackKind]bool)
	for _, name := range spec.Trace {
		if name == "all" {
			for _, k := range callbackKinds[:gesture.CallbackTouchesDown] {
				if d.Kind().IsContinuous() || (k != gesture.CallbackUpdate && k != gesture.CallbackChange) {
					traced[k] = true
				}
			}
			continue
		}
		k, err := parseCallback(name)
		if err != nil {
			return err
		}
		traced[k] = true
	}

	scripted := make(map[gesture.CallbackKind]*lua.LFunction)
	for name, code := range spec.Scripts {
		k, err := parseCallback(name)
		if err != nil {
			return err
		}
		fn, err := r.scripts.compile(code)
		if err != nil {
			return fmt.Errorf("script %s: %w", name, err)
		}
		scripted[k] = fn
	}

	for _, k := range callbackKinds {
		if traced[k] || scripted[k] != nil {
			r.register(d, spec.Name, k, traced[k], scripted[k])
		}
	}
	return nil
}

func (r *replay) register(d *gesture.Descriptor, name string, k gesture.CallbackKind, traced bool, fn *lua.LFunction) {
	label := name + "." + k.String()
	run := func(event *lua.LTable, sc gesture.StateController) {
		if fn == nil {
			return
		}
		if err := r.scripts.call(fn, name, event, sc); err != nil {
			r.line(fmt.Sprintf("  %s error: %v", label, err))
		}
	}

	switch k {
	case gesture.CallbackBegin, gesture.CallbackStart:
		cb := func(e gesture.StateChange) {
			if traced {
				r.line(fmt.Sprintf("  %s state=%s", label, e.State))
			}
			if fn != nil {
				run(r.scripts.stateTable(e, nil), nil)
			}
		}
		if k == gesture.CallbackBegin {
			d.OnBegin(cb)
		} else {
			d.OnStart(cb)
		}

	case gesture.CallbackEnd, gesture.CallbackFinalize:
		cb := func(e gesture.StateChange, ok bool) {
			if traced {
				r.line(fmt.Sprintf("  %s success=%v", label, ok))
			}
			if fn != nil {
				run(r.scripts.stateTable(e, &ok), nil)
			}
		}
		if k == gesture.CallbackEnd {
			d.OnEnd(cb)
		} else {
			d.OnFinalize(cb)
		}

	case gesture.CallbackUpdate, gesture.CallbackChange:
		cb := func(e gesture.Update) {
			if traced {
				r.line(fmt.Sprintf("  %s %s", label, e.Payload))
			}
			if fn != nil {
				run(r.scripts.updateTable(e), nil)
			}
		}
		if k == gesture.CallbackUpdate {
			d.OnUpdate(cb)
		} else {
			d.OnChange(cb)
		}

	default:
		cb := func(e gesture.Touch, sc gesture.StateController) {
			if traced {
				r.line(fmt.Sprintf("  %s phase=%s state=%s", label, e.Phase, e.State))
			}
			if fn != nil {
				run(r.scripts.touchTable(e), sc)
			}
		}
		switch k {
		case gesture.CallbackTouchesDown:
			d.OnTouchesDown(cb)
		case gesture.CallbackTouchesMove:
			d.OnTouchesMove(cb)
		case gesture.CallbackTouchesUp:
			d.OnTouchesUp(cb)
		default:
			d.OnTouchesCancelled(cb)
		}
	}
}

func (r *replay) event(n int, e *EventStep) error {
	slot, ok := r.slots[e.Gesture]
	if !ok || slot.Get() == nil {
		return fmt.Errorf("%w: %q has never been built", ErrUnknownGesture, e.Gesture)
	}
	d := slot.Get()
	root := r.roots[r.owner[e.Gesture]]

	ev, desc, err := e.build(d.Tag())
	if err != nil {
		return err
	}

	path := d.Context()
	if e.Via != "" {
		if path, err = gesture.ParseExecutionContext(e.Via); err != nil {
			return err
		}
	}

	header := fmt.Sprintf("[%d] event %s %s", n, e.Gesture, desc)
	if path == gesture.Synchronous {
		header += " [sync]"
	}
	r.line(header)

	var before, after dispatch.Stats
	if path == gesture.Synchronous {
		before = r.eng.SyncStats(root)
		r.eng.SyncHandler(root)(ev)
		after = r.eng.SyncStats(root)
	} else {
		before = r.eng.Stats().Deferred
		r.eng.Deliver(ev)
		if err := r.drain(); err != nil {
			return err
		}
		after = r.eng.Stats().Deferred
	}

	if after.Stale > before.Stale {
		r.line("  ~ stale: no live handler")
	}
	if after.Skipped > before.Skipped {
		r.line("  ~ skipped: handled on the synchronous path")
	}
	return nil
}

// build converts e into an engine event for tag and a short description.
func (e *EventStep) build(tag gesture.Tag) (gesture.Event, string, error) {
	payload := gesture.Payload(e.Payload)

	switch e.Type {
	case "state":
		from, err := gesture.ParseState(e.From)
		if err != nil {
			return nil, "", err
		}
		to, err := gesture.ParseState(e.To)
		if err != nil {
			return nil, "", err
		}
		ev := gesture.StateChange{Tag: tag, OldState: from, State: to, Pointers: e.Pointers, Payload: payload}
		return ev, fmt.Sprintf("state %s->%s", from, to), nil

	case "update":
		state := gesture.StateActive
		if e.State != "" {
			var err error
			if state, err = gesture.ParseState(e.State); err != nil {
				return nil, "", err
			}
		}
		ev := gesture.Update{Tag: tag, State: state, Pointers: e.Pointers, Payload: payload}
		return ev, fmt.Sprintf("update %s", payload), nil

	case "touch":
		phase, err := gesture.ParseTouchPhase(e.Phase)
		if err != nil {
			return nil, "", err
		}
		state := gesture.StateBegan
		if e.State != "" {
			if state, err = gesture.ParseState(e.State); err != nil {
				return nil, "", err
			}
		}
		ev := gesture.Touch{Tag: tag, Phase: phase, State: state, Pointers: e.Pointers}
		return ev, fmt.Sprintf("touch %s state=%s", phase, state), nil

	default:
		return nil, "", fmt.Errorf("%w: unknown event type %q", ErrInvalidStep, e.Type)
	}
}
