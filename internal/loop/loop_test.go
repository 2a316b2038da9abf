package loop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestLoop() *Loop {
	return New(WithStart(epoch))
}

func TestAfterFiresInDeadlineOrder(t *testing.T) {
	l := newTestLoop()
	var got []string

	l.After(300*time.Millisecond, Root, func() { got = append(got, "c") })
	l.After(100*time.Millisecond, Root, func() { got = append(got, "a") })
	l.After(200*time.Millisecond, Root, func() { got = append(got, "b") })

	l.Advance(250 * time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, got)

	l.Advance(50 * time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestSameDeadlineFiresInCreationOrder(t *testing.T) {
	l := newTestLoop()
	var got []int
	for i := 0; i < 5; i++ {
		i := i
		l.After(time.Second, Root, func() { got = append(got, i) })
	}
	l.Advance(time.Second)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestNowTracksFiringDeadline(t *testing.T) {
	l := newTestLoop()
	var seen time.Duration
	l.After(400*time.Millisecond, Root, func() { seen = l.Elapsed() })
	l.Advance(time.Second)
	assert.Equal(t, 400*time.Millisecond, seen)
	assert.Equal(t, time.Second, l.Elapsed())
}

func TestNestedSchedulingWithinWindow(t *testing.T) {
	l := newTestLoop()
	var got []time.Duration
	l.After(100*time.Millisecond, Root, func() {
		got = append(got, l.Elapsed())
		l.After(100*time.Millisecond, Root, func() {
			got = append(got, l.Elapsed())
		})
	})

	l.Advance(250 * time.Millisecond)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, got)
}

func TestTaskCancel(t *testing.T) {
	l := newTestLoop()
	fired := false
	task := l.After(time.Second, Root, func() { fired = true })
	require.True(t, task.Pending())

	task.Cancel()
	task.Cancel()
	assert.False(t, task.Pending())

	l.Advance(2 * time.Second)
	assert.False(t, fired)
	assert.Equal(t, 0, l.Pending(Root))
}

func TestNilTaskCancel(t *testing.T) {
	var task *Task
	assert.NotPanics(t, func() { task.Cancel() })
	assert.False(t, task.Pending())
}

func TestCancelScopeIncludesDescendants(t *testing.T) {
	l := newTestLoop()
	session := Root.Child("session", "s1")
	chapterA := session.Child("chapter", "a")
	chapterB := session.Child("chapter", "b")

	var got []string
	l.After(time.Second, chapterA, func() { got = append(got, "a") })
	l.After(time.Second, chapterA.Child("step", "2"), func() { got = append(got, "a-step") })
	l.After(time.Second, chapterB, func() { got = append(got, "b") })
	l.After(time.Second, session, func() { got = append(got, "session") })

	n := l.CancelScope(chapterA)
	assert.Equal(t, 2, n)

	l.Advance(time.Second)
	assert.Equal(t, []string{"b", "session"}, got)
}

func TestCancelScopeFromInsideCallback(t *testing.T) {
	l := newTestLoop()
	scope := Root.Child("chapter", "x")
	fired := false

	l.After(100*time.Millisecond, Root, func() { l.CancelScope(scope) })
	l.After(100*time.Millisecond, scope, func() { fired = true })

	l.Advance(time.Second)
	assert.False(t, fired)
}

func TestScopeContains(t *testing.T) {
	s := Scope("session/1/chapter/2")
	assert.True(t, s.Contains("session/1/chapter/2"))
	assert.True(t, s.Contains("session/1/chapter/2/step/0"))
	assert.False(t, s.Contains("session/1/chapter/20"))
	assert.False(t, s.Contains("session/1"))
	assert.True(t, Root.Contains(s))
}

func TestScopeChild(t *testing.T) {
	assert.Equal(t, Scope("a"), Root.Child("a"))
	assert.Equal(t, Scope("a/b/c"), Scope("a").Child("b", "", "c"))
}

func TestPostRunsBeforeTimers(t *testing.T) {
	l := newTestLoop()
	var got []string
	l.After(0, Root, func() { got = append(got, "timer") })
	l.Post(func() { got = append(got, "posted") })

	l.Flush()
	assert.Equal(t, []string{"posted", "timer"}, got)
}

func TestPostFromGoroutines(t *testing.T) {
	l := newTestLoop()
	count := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Post(func() { count++ })
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, l.Drain())
	assert.Equal(t, 50, count)
}

func TestPostAfterStop(t *testing.T) {
	l := newTestLoop()
	l.Stop()
	assert.False(t, l.Post(func() {}))
}

func TestRunRealTime(t *testing.T) {
	l := New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})
	l.Post(func() {
		l.After(20*time.Millisecond, Root, func() { close(done) })
	})

	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("timer never fired")
	}

	l.Stop()
	require.NoError(t, <-errCh)
}

func TestRunContextCancel(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunRecoversCallbackPanic(t *testing.T) {
	l := New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	after := make(chan struct{})
	l.Post(func() { panic("boom") })
	l.Post(func() { close(after) })

	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()

	select {
	case <-after:
	case <-ctx.Done():
		t.Fatal("loop stopped after panic")
	}
	l.Stop()
	require.NoError(t, <-errCh)
}

func TestClockMonotonic(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())
}
