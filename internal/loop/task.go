package loop

import (
	"container/heap"
	"time"
)

// Task is a scheduled continuation. Tasks are created by After and may be
// cancelled until they fire.
//
// Cancel must be called from the loop goroutine.
type Task struct {
	seq       int64
	at        time.Time
	scope     Scope
	fn        func()
	index     int // heap index, -1 once removed
	cancelled bool
	fired     bool
	owner     *Loop
}

// Cancel prevents the task from running. Cancelling a fired or already
// cancelled task is a no-op. A nil task may be cancelled.
func (t *Task) Cancel() {
	if t == nil || t.cancelled || t.fired {
		return
	}
	t.cancelled = true
	if t.owner != nil {
		t.owner.remove(t)
	}
}

// Pending reports whether the task is still waiting to fire.
func (t *Task) Pending() bool {
	return t != nil && !t.cancelled && !t.fired
}

// Deadline returns the time the task is due.
func (t *Task) Deadline() time.Time {
	return t.at
}

// Scope returns the scope the task was registered under.
func (t *Task) Scope() Scope {
	return t.scope
}

// taskHeap orders tasks by (deadline, seq).
type taskHeap []*Task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].seq < h[j].seq
	}
	return h[i].at.Before(h[j].at)
}

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap) Push(x any) {
	t := x.(*Task)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

var _ heap.Interface = (*taskHeap)(nil)
