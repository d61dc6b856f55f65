package scenario

import (
	"fmt"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/gesturekit/internal/gesture"
)

// scripts runs the Lua snippets of a scenario. The Lua state is not safe
// for concurrent use; a replay drives it from one goroutine.
type scripts struct {
	L      *lua.LState
	chunks map[string]*lua.LFunction
	emit   func(line string)
}

func newScripts(emit func(string)) *scripts {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(L)
	return &scripts{
		L:      L,
		chunks: make(map[string]*lua.LFunction),
		emit:   emit,
	}
}

// openSafeLibraries opens the libraries a snippet may use. io, os, debug
// and package stay closed.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
}

func (s *scripts) close() {
	s.L.Close()
}

// compile loads code once per distinct snippet.
func (s *scripts) compile(code string) (*lua.LFunction, error) {
	if fn, ok := s.chunks[code]; ok {
		return fn, nil
	}
	fn, err := s.L.LoadString(code)
	if err != nil {
		return nil, err
	}
	s.chunks[code] = fn
	return fn, nil
}

// call runs fn with the globals gesture, event, state and trace bound for
// one callback invocation. sc may be nil.
func (s *scripts) call(fn *lua.LFunction, name string, event *lua.LTable, sc gesture.StateController) error {
	L := s.L
	L.SetGlobal("gesture", lua.LString(name))
	L.SetGlobal("event", event)
	if sc != nil {
		L.SetGlobal("state", s.controllerTable(sc))
	} else {
		L.SetGlobal("state", lua.LNil)
	}
	L.SetGlobal("trace", L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		parts := make([]string, n)
		for i := 1; i <= n; i++ {
			parts[i-1] = L.Get(i).String()
		}
		s.emit(fmt.Sprintf("%s: %s", name, strings.Join(parts, " ")))
		return 0
	}))
	return L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true})
}

// controllerTable exposes sc as state.begin(), state.activate(),
// state.fail() and state.finish(). Each returns true, or false and the
// error message.
func (s *scripts) controllerTable(sc gesture.StateController) *lua.LTable {
	L := s.L
	t := L.NewTable()
	bind := func(key string, op func() error) {
		t.RawSetString(key, L.NewFunction(func(L *lua.LState) int {
			if err := op(); err != nil {
				L.Push(lua.LFalse)
				L.Push(lua.LString(err.Error()))
				return 2
			}
			L.Push(lua.LTrue)
			return 1
		}))
	}
	bind("begin", sc.Begin)
	bind("activate", sc.Activate)
	bind("fail", sc.Fail)
	bind("finish", sc.End)
	t.RawSetString("tag", lua.LNumber(sc.Tag()))
	return t
}

// stateTable builds the event table of a state change.
func (s *scripts) stateTable(e gesture.StateChange, success *bool) *lua.LTable {
	t := s.payloadTable(e.Tag, e.Payload)
	t.RawSetString("state", lua.LString(e.State.String()))
	t.RawSetString("oldState", lua.LString(e.OldState.String()))
	t.RawSetString("pointers", lua.LNumber(e.Pointers))
	if success != nil {
		t.RawSetString("success", lua.LBool(*success))
	}
	return t
}

// updateTable builds the event table of an update or change.
func (s *scripts) updateTable(e gesture.Update) *lua.LTable {
	t := s.payloadTable(e.Tag, e.Payload)
	t.RawSetString("state", lua.LString(e.State.String()))
	t.RawSetString("pointers", lua.LNumber(e.Pointers))
	return t
}

// touchTable builds the event table of a touch event.
func (s *scripts) touchTable(e gesture.Touch) *lua.LTable {
	t := s.payloadTable(e.Tag, nil)
	t.RawSetString("state", lua.LString(e.State.String()))
	t.RawSetString("phase", lua.LString(e.Phase.String()))
	t.RawSetString("pointers", lua.LNumber(e.Pointers))
	return t
}

func (s *scripts) payloadTable(tag gesture.Tag, p gesture.Payload) *lua.LTable {
	t := s.L.NewTable()
	t.RawSetString("tag", lua.LNumber(tag))
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		t.RawSetString(k, lua.LNumber(p[k]))
	}
	return t
}
