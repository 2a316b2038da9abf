// Package debounce collapses duplicate triggers of one logical control into a
// single action.
//
// Pointer and touch channels can both fire for one physical gesture. The input
// adapter drops most channel twins already; Debouncer is the second, action
// level safety net and guarantees one gesture yields exactly one action.
package debounce

import (
	"time"
)

// DefaultWindow is the minimum spacing between two accepted triggers of the
// same control.
const DefaultWindow = 100 * time.Millisecond

// Debouncer records the last accepted trigger time per control.
//
// Not safe for concurrent use; call it from the loop goroutine.
type Debouncer struct {
	now    func() time.Time
	window time.Duration
	last   map[string]time.Time
}

// New creates a debouncer reading time from now. A non-positive window uses
// DefaultWindow.
func New(now func() time.Time, window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Debouncer{
		now:    now,
		window: window,
		last:   make(map[string]time.Time),
	}
}

// Guard runs action unless control was triggered less than the window ago.
// Returns whether the action ran. Discarded triggers do not extend the window.
func (d *Debouncer) Guard(control string, action func()) bool {
	now := d.now()
	if last, ok := d.last[control]; ok && now.Sub(last) < d.window {
		return false
	}
	d.last[control] = now
	if action != nil {
		action()
	}
	return true
}

// Window returns the configured window.
func (d *Debouncer) Window() time.Duration {
	return d.window
}

// Reset forgets every control.
func (d *Debouncer) Reset() {
	clear(d.last)
}
