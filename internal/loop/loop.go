// Package loop implements the deferred execution context: one logical task
// queue with a microtask queue that empties after every task.
//
// All registry mutation, reconciliation and deferred dispatch run as tasks
// on a Loop. Tasks run one at a time in the order they were posted, so code
// running inside a task never races with other tasks.
//
// A Loop is either started, in which case one worker goroutine runs tasks
// as they arrive, or stopped, in which case tasks accumulate until Drain
// runs them on the calling goroutine.
package loop

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// Task is a unit of deferred work.
type Task func()

// PanicHandler is called with the recovered value and stack when a task
// panics.
type PanicHandler func(value any, stack []byte)

// Loop is a single-worker task queue with microtasks.
type Loop struct {
	maxMicro     int
	panicHandler PanicHandler

	mu    sync.Mutex
	tasks []Task
	micro []Task

	wake    chan struct{}
	quit    chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool

	// Stats
	posted     atomic.Uint64
	executed   atomic.Uint64
	microRun   atomic.Uint64
	deferred   atomic.Uint64
	panicked   atomic.Uint64
	busyTimeNs atomic.Int64
}

// Option configures a Loop.
type Option func(*Loop)

// WithMaxMicrotasks bounds how many microtasks run after one task. The
// rest run after the next task.
func WithMaxMicrotasks(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.maxMicro = n
		}
	}
}

// WithPanicHandler sets the handler for panicking tasks.
func WithPanicHandler(h PanicHandler) Option {
	return func(l *Loop) {
		l.panicHandler = h
	}
}

// New creates a stopped loop.
func New(opts ...Option) *Loop {
	l := &Loop{
		maxMicro: 10000,
		wake:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SetMaxMicrotasks changes the microtask bound.
func (l *Loop) SetMaxMicrotasks(n int) {
	if n <= 0 {
		return
	}
	l.mu.Lock()
	l.maxMicro = n
	l.mu.Unlock()
}

// Post appends task to the task queue. It never blocks and never drops.
func (l *Loop) Post(task Task) {
	if task == nil {
		return
	}
	l.mu.Lock()
	l.tasks = append(l.tasks, task)
	l.mu.Unlock()
	l.posted.Add(1)
	l.signal()
}

// QueueMicrotask schedules task to run once the current task returns,
// before the next task starts.
func (l *Loop) QueueMicrotask(task Task) {
	if task == nil {
		return
	}
	l.mu.Lock()
	l.micro = append(l.micro, task)
	l.mu.Unlock()
	l.signal()
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Start starts the worker goroutine.
func (l *Loop) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running.Load() {
		return ErrAlreadyRunning
	}
	l.quit = make(chan struct{})
	l.running.Store(true)

	l.wg.Add(1)
	go l.worker(l.quit)
	l.signal()
	return nil
}

// Stop stops the worker after the queued work has run, or when ctx ends.
// Work posted after Stop stays queued until Drain or the next Start.
func (l *Loop) Stop(ctx context.Context) error {
	l.mu.Lock()
	if !l.running.Load() {
		l.mu.Unlock()
		return ErrNotRunning
	}
	l.running.Store(false)
	close(l.quit)
	l.mu.Unlock()

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning reports whether the worker is running.
func (l *Loop) IsRunning() bool {
	return l.running.Load()
}

// Call runs fn on the loop and waits for it to return.
// It must not be called from inside a task.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	if !l.running.Load() {
		return ErrNotRunning
	}
	done := make(chan struct{})
	l.Post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drain runs queued tasks and microtasks on the calling goroutine until
// both queues are empty. It returns the number of tasks run.
func (l *Loop) Drain() (int, error) {
	if l.running.Load() {
		return 0, ErrRunning
	}
	n := 0
	for {
		ran, more := l.tick()
		if ran {
			n++
		}
		if !more {
			return n, nil
		}
	}
}

// Pending returns the number of queued tasks and microtasks.
func (l *Loop) Pending() (tasks, microtasks int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks), len(l.micro)
}

func (l *Loop) worker(quit <-chan struct{}) {
	defer l.wg.Done()
	for {
		for {
			_, more := l.tick()
			if !more {
				break
			}
		}
		select {
		case <-l.wake:
		case <-quit:
			for {
				_, more := l.tick()
				if !more {
					return
				}
			}
		}
	}
}

// tick runs the oldest task, then the pending microtasks up to the bound.
// It reports whether a task ran and whether work remains.
func (l *Loop) tick() (ran, more bool) {
	l.mu.Lock()
	var task Task
	if len(l.tasks) > 0 {
		task = l.tasks[0]
		l.tasks[0] = nil
		l.tasks = l.tasks[1:]
	}
	l.mu.Unlock()

	if task != nil {
		l.run(task)
		l.executed.Add(1)
		ran = true
	}
	l.runMicrotasks()

	l.mu.Lock()
	more = len(l.tasks) > 0 || len(l.micro) > 0
	l.mu.Unlock()
	return ran, more
}

func (l *Loop) runMicrotasks() {
	for n := 0; ; n++ {
		l.mu.Lock()
		if len(l.micro) == 0 {
			l.mu.Unlock()
			return
		}
		if n >= l.maxMicro {
			l.mu.Unlock()
			l.deferred.Add(1)
			return
		}
		task := l.micro[0]
		l.micro[0] = nil
		l.micro = l.micro[1:]
		l.mu.Unlock()

		l.run(task)
		l.microRun.Add(1)
	}
}

// run executes task with panic recovery.
func (l *Loop) run(task Task) {
	start := time.Now()
	defer func() {
		l.busyTimeNs.Add(time.Since(start).Nanoseconds())
		if r := recover(); r != nil {
			l.panicked.Add(1)
			if l.panicHandler != nil {
				stack := debug.Stack()
				func() {
					defer func() { _ = recover() }()
					l.panicHandler(r, stack)
				}()
			}
		}
	}()
	task()
}

// Stats contains loop statistics.
type Stats struct {
	// Posted is the number of tasks posted.
	Posted uint64

	// Executed is the number of tasks run.
	Executed uint64

	// Microtasks is the number of microtasks run.
	Microtasks uint64

	// MicrotaskOverflows counts ticks that hit the microtask bound.
	MicrotaskOverflows uint64

	// Panicked is the number of tasks and microtasks that panicked.
	Panicked uint64

	// BusyTime is the cumulative time spent running work.
	BusyTime time.Duration
}

// Stats returns loop statistics.
func (l *Loop) Stats() Stats {
	return Stats{
		Posted:             l.posted.Load(),
		Executed:           l.executed.Load(),
		Microtasks:         l.microRun.Load(),
		MicrotaskOverflows: l.deferred.Load(),
		Panicked:           l.panicked.Load(),
		BusyTime:           time.Duration(l.busyTimeNs.Load()),
	}
}
