package minigame

import (
	"time"

	"github.com/roach88/keepsake/internal/chapter"
)

// GreetingAnimation is a fixed-length animation with no interaction. It is
// ready when the animation finishes.
type GreetingAnimation struct {
	instance
	duration  time.Duration
	startedAt time.Time
	started   bool
	finished  bool
}

// NewGreeting creates a greeting animation.
func NewGreeting(p Params) *GreetingAnimation {
	return &GreetingAnimation{
		instance: newInstance(chapter.VariantGreeting, p),
		duration: p.Timings.GreetingDuration,
	}
}

// Start begins the animation. Calling it twice is a no-op.
func (g *GreetingAnimation) Start() {
	if g.started || g.cancelled {
		return
	}
	g.started = true
	g.startedAt = g.sched.Now()
	g.emit(Event{Type: EventGreetingStarted})
	g.after(g.duration, func() {
		g.finished = true
		g.emit(Event{Type: EventGreetingDone})
		g.emitReady()
	})
}

// Elapsed returns the animation time played so far, capped at its duration.
func (g *GreetingAnimation) Elapsed() time.Duration {
	switch {
	case !g.started:
		return 0
	case g.finished:
		return g.duration
	}
	d := g.sched.Now().Sub(g.startedAt)
	if d > g.duration {
		return g.duration
	}
	return d
}

// Finished reports whether the animation ran to completion.
func (g *GreetingAnimation) Finished() bool {
	return g.finished
}
