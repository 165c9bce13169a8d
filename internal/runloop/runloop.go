package runloop

import (
	"context"
	"sync/atomic"
	"time"

	"prompt-explorer/internal/logging"
)

// Loop is a task queue with a single consumer goroutine. Everything
// that touches UI-visible state (entries, selection, cache, grid) runs
// as a task on the loop, which is what makes the rest of the program
// safe without locks.
type Loop struct {
	tasks  chan func()
	closed atomic.Bool
}

// New returns a loop with a buffered queue. Run must be called for
// tasks to execute.
func New() *Loop {
	return &Loop{
		tasks: make(chan func(), 256),
	}
}

// Post enqueues fn for execution on the loop. Safe to call from any
// goroutine, including from a task already running on the loop (the
// queue is buffered, so re-posting never deadlocks under normal load).
// Posts after Stop are dropped.
func (l *Loop) Post(fn func()) {
	if l.closed.Load() {
		return
	}
	defer func() {
		// The loop may have been stopped between the check and the
		// send; dropping the task is the correct outcome then.
		if recover() != nil {
			logging.Debug("runloop: task posted after stop, dropped")
		}
	}()
	l.tasks <- fn
}

// PostDelayed schedules fn onto the loop after d has elapsed. Used for
// time-sliced work such as grid batch construction.
func (l *Loop) PostDelayed(d time.Duration, fn func()) {
	time.AfterFunc(d, func() {
		l.Post(fn)
	})
}

// Run consumes tasks until ctx is canceled. It is the "interactive
// thread": exactly one Run must be active per loop.
func (l *Loop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			l.closed.Store(true)
			close(l.tasks)
			// Drain whatever was already queued so posted cleanups run.
			for fn := range l.tasks {
				fn()
			}
			return
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Debouncer coalesces repeated triggers into at most one pending task
// on the loop. Scroll and resize storms schedule a single visibility
// recomputation instead of one per event.
//
// State that fn reads must be updated on the loop before Trigger is
// called. A trigger coalesced into an already-queued run is only safe
// when that run is guaranteed to observe the trigger's state.
type Debouncer struct {
	loop    *Loop
	fn      func()
	pending atomic.Bool
}

// NewDebouncer returns a debouncer that runs fn on loop when triggered.
func NewDebouncer(loop *Loop, fn func()) *Debouncer {
	return &Debouncer{loop: loop, fn: fn}
}

// Trigger schedules fn on the loop unless a run is already pending.
func (d *Debouncer) Trigger() {
	if !d.pending.CompareAndSwap(false, true) {
		return
	}
	d.loop.Post(func() {
		d.pending.Store(false)
		d.fn()
	})
}

// Requests hands out monotonically increasing request identifiers and
// answers whether a given identifier is still current. Asynchronous
// results tagged with a superseded identifier are dropped on arrival.
type Requests struct {
	current atomic.Uint64
}

// Next invalidates all outstanding requests and returns a fresh
// identifier.
func (r *Requests) Next() uint64 {
	return r.current.Add(1)
}

// Current reports whether id is still the latest request.
func (r *Requests) Current(id uint64) bool {
	return r.current.Load() == id
}
