package dispatch

import (
	"runtime/debug"

	"github.com/dshills/gesturekit/internal/gesture"
)

// PanicHandler is called when a user callback panics.
type PanicHandler func(tag gesture.Tag, callback gesture.CallbackKind, value any, stack []byte)

// Executor runs user callbacks with panic recovery.
type Executor struct {
	panicHandler PanicHandler
	recover      bool
	captureStack bool
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithPanicHandler sets the handler for panicking callbacks.
func WithPanicHandler(h PanicHandler) ExecutorOption {
	return func(e *Executor) {
		e.panicHandler = h
	}
}

// WithRecover turns panic recovery on or off. With recovery off a
// panicking callback unwinds into the caller of Handle.
func WithRecover(on bool) ExecutorOption {
	return func(e *Executor) {
		e.recover = on
	}
}

// WithCaptureStack controls whether the stack is captured for the panic
// handler.
func WithCaptureStack(on bool) ExecutorOption {
	return func(e *Executor) {
		e.captureStack = on
	}
}

// NewExecutor creates an executor that recovers panics and captures stacks.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		recover:      true,
		captureStack: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs fn as callback cb of tag. It reports whether fn panicked.
func (e *Executor) Execute(tag gesture.Tag, cb gesture.CallbackKind, fn func()) (panicked bool) {
	if !e.recover {
		fn()
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			panicked = true

			var stack []byte
			if e.captureStack {
				stack = debug.Stack()
			}

			// A panicking panic handler must not take the dispatch down.
			if e.panicHandler != nil {
				func() {
					defer func() { _ = recover() }()
					e.panicHandler(tag, cb, r, stack)
				}()
			}
		}
	}()

	fn()
	return false
}
