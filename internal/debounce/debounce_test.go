package debounce

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeNow struct{ t time.Time }

func (f *fakeNow) Now() time.Time { return f.t }

func (f *fakeNow) Add(d time.Duration) { f.t = f.t.Add(d) }

func newFakeNow() *fakeNow {
	return &fakeNow{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestGuard(t *testing.T) {
	tests := []struct {
		name  string
		gap   time.Duration
		calls int
	}{
		{"10ms apart collapses", 10 * time.Millisecond, 1},
		{"99ms apart collapses", 99 * time.Millisecond, 1},
		{"100ms apart passes", 100 * time.Millisecond, 2},
		{"500ms apart passes", 500 * time.Millisecond, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeNow()
			d := New(clock.Now, 0)
			calls := 0
			action := func() { calls++ }

			d.Guard("advance", action)
			clock.Add(tt.gap)
			d.Guard("advance", action)

			assert.Equal(t, tt.calls, calls)
		})
	}
}

func TestGuardControlsAreIndependent(t *testing.T) {
	clock := newFakeNow()
	d := New(clock.Now, 0)

	assert.True(t, d.Guard("advance", nil))
	assert.True(t, d.Guard("next-image", nil))
	assert.False(t, d.Guard("advance", nil))
}

func TestDiscardedTriggerDoesNotExtendWindow(t *testing.T) {
	clock := newFakeNow()
	d := New(clock.Now, 0)

	assert.True(t, d.Guard("tap", nil))
	clock.Add(60 * time.Millisecond)
	assert.False(t, d.Guard("tap", nil))
	clock.Add(60 * time.Millisecond)
	assert.True(t, d.Guard("tap", nil), "window is measured from the last accepted trigger")
}

func TestReset(t *testing.T) {
	clock := newFakeNow()
	d := New(clock.Now, 50*time.Millisecond)
	assert.Equal(t, 50*time.Millisecond, d.Window())

	d.Guard("tap", nil)
	d.Reset()
	assert.True(t, d.Guard("tap", nil))
}
