package loop

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Scheduler is the subset of Loop that playback components depend on.
//
// All methods except Post must be called from the loop goroutine.
type Scheduler interface {
	// Now returns the loop's current time.
	Now() time.Time
	// After schedules fn to run d from now under scope.
	After(d time.Duration, scope Scope, fn func()) *Task
	// CancelScope cancels every pending task in scope and its descendants.
	CancelScope(scope Scope) int
	// Post enqueues fn to run on the loop goroutine. Safe from any goroutine.
	Post(fn func()) bool
}

// Loop is the cooperative event loop.
//
// Thread-safety model:
//   - Post(): safe from any goroutine
//   - Run() / Advance(): must be driven by exactly one goroutine
//   - everything else: loop goroutine only
type Loop struct {
	start  time.Time
	now    time.Time
	clock  *Clock
	timers taskHeap
	queue  *eventQueue
	wall   func() time.Time
	logger *slog.Logger

	// recoverPanics is set by Run so one faulty callback does not stop the
	// session. Advance lets panics propagate to the test.
	recoverPanics bool
}

// Option configures a Loop.
type Option func(*Loop)

// WithStart sets the loop's initial time.
func WithStart(t time.Time) Option {
	return func(l *Loop) {
		l.start = t
		l.now = t
	}
}

// WithWallClock replaces time.Now as the real-time source used by Run.
func WithWallClock(now func() time.Time) Option {
	return func(l *Loop) {
		l.wall = now
	}
}

// WithLogger sets the logger used for lifecycle and recovered panics.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		l.logger = logger
	}
}

// New creates a loop whose clock starts at the current wall time.
func New(opts ...Option) *Loop {
	l := &Loop{
		clock:  NewClock(),
		queue:  newEventQueue(),
		wall:   time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.start.IsZero() {
		l.start = l.wall()
		l.now = l.start
	}
	return l
}

var _ Scheduler = (*Loop)(nil)

// Now returns the loop's current time.
func (l *Loop) Now() time.Time {
	return l.now
}

// Elapsed returns the time since the loop started.
func (l *Loop) Elapsed() time.Duration {
	return l.now.Sub(l.start)
}

// After schedules fn to run once, d after the current loop time.
// Negative durations are treated as zero.
func (l *Loop) After(d time.Duration, scope Scope, fn func()) *Task {
	if d < 0 {
		d = 0
	}
	t := &Task{
		seq:   l.clock.Next(),
		at:    l.now.Add(d),
		scope: scope,
		fn:    fn,
		owner: l,
	}
	heap.Push(&l.timers, t)
	return t
}

// CancelScope cancels every pending task registered under scope or one of
// its descendants. Returns the number of cancelled tasks.
func (l *Loop) CancelScope(scope Scope) int {
	var victims []*Task
	for _, t := range l.timers {
		if scope.Contains(t.scope) {
			victims = append(victims, t)
		}
	}
	for _, t := range victims {
		t.Cancel()
	}
	if len(victims) > 0 {
		l.logger.Debug("scope cancelled", "scope", scope.String(), "tasks", len(victims))
	}
	return len(victims)
}

// Pending returns the number of scheduled tasks under scope.
func (l *Loop) Pending(scope Scope) int {
	n := 0
	for _, t := range l.timers {
		if scope.Contains(t.scope) {
			n++
		}
	}
	return n
}

// Post enqueues fn to run on the loop goroutine.
// Safe from any goroutine. Returns false once the loop is stopped.
func (l *Loop) Post(fn func()) bool {
	return l.queue.Enqueue(fn)
}

// Drain runs posted events until the queue is empty and returns how many
// ran. Timers are not fired.
func (l *Loop) Drain() int {
	n := 0
	for {
		fn, ok := l.queue.TryDequeue()
		if !ok {
			return n
		}
		l.invoke(fn)
		n++
	}
}

// Advance moves virtual time forward by d, running posted events and every
// timer due on the way in (deadline, seq) order. Timers scheduled by
// callbacks are honoured if they fall inside the window.
func (l *Loop) Advance(d time.Duration) {
	target := l.now.Add(d)
	l.Drain()
	for len(l.timers) > 0 && !l.timers[0].at.After(target) {
		t := heap.Pop(&l.timers).(*Task)
		if t.at.After(l.now) {
			l.now = t.at
		}
		l.fire(t)
		l.Drain()
	}
	l.now = target
	l.Drain()
}

// Flush runs posted events and any timer already due, without moving time.
func (l *Loop) Flush() {
	l.Advance(0)
}

// Run drives the loop in real time until ctx is cancelled or Stop is called.
//
// CRITICAL: Must be called from exactly ONE goroutine, and no other
// goroutine may call Advance concurrently.
func (l *Loop) Run(ctx context.Context) error {
	l.recoverPanics = true
	defer func() { l.recoverPanics = false }()

	l.logger.Info("loop starting")

	for {
		l.sync()
		l.Drain()
		for len(l.timers) > 0 && !l.timers[0].at.After(l.now) {
			t := heap.Pop(&l.timers).(*Task)
			l.fire(t)
			l.Drain()
			l.sync()
		}

		var timer *time.Timer
		var timerC <-chan time.Time
		if len(l.timers) > 0 {
			wait := l.timers[0].at.Sub(l.now)
			timer = time.NewTimer(wait)
			timerC = timer.C
		}

		select {
		case <-ctx.Done():
			stopTimer(timer)
			l.logger.Info("loop stopping: context cancelled")
			l.queue.Close()
			return ctx.Err()

		case <-l.queue.Wait():
			stopTimer(timer)
			if l.queue.Closed() && l.queue.Len() == 0 {
				l.logger.Info("loop stopping: queue closed")
				return nil
			}

		case <-timerC:
		}
	}
}

// Stop closes the event queue. Run returns once queued events are drained.
func (l *Loop) Stop() {
	l.queue.Close()
}

// sync moves loop time forward to the wall clock. Loop time never moves
// backwards.
func (l *Loop) sync() {
	if w := l.wall(); w.After(l.now) {
		l.now = w
	}
}

func (l *Loop) fire(t *Task) {
	if t.cancelled {
		return
	}
	t.fired = true
	l.invoke(t.fn)
}

func (l *Loop) invoke(fn func()) {
	if l.recoverPanics {
		defer func() {
			if r := recover(); r != nil {
				l.logger.Error("loop callback panicked", "panic", fmt.Sprint(r))
			}
		}()
	}
	fn()
}

func (l *Loop) remove(t *Task) {
	if t.index >= 0 && t.index < len(l.timers) && l.timers[t.index] == t {
		heap.Remove(&l.timers, t.index)
	}
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}
