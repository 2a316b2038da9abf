// Package gate decides when the current playback step may be left.
//
// Each step kind has a readiness Policy: a minimum dwell, optionally preceded
// or accompanied by an external Signal (quote reveal finished, mini-game won,
// answer shown, greeting done). RequestAdvance is rejected until the policy is
// satisfied. Rejections never queue and never change state.
//
// After an approved advance, a short transition window rejects every further
// request so that one gesture moves playback by at most one step.
package gate

import (
	"log/slog"

	"github.com/roach88/keepsake/internal/loop"
)

// Reason explains a rejected advance.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonNotArmed         Reason = "not_armed"
	ReasonDwell            Reason = "dwell"
	ReasonAwaitingReveal   Reason = "awaiting_reveal"
	ReasonAwaitingGame     Reason = "awaiting_game"
	ReasonAwaitingAnswer   Reason = "awaiting_answer"
	ReasonAwaitingGreeting Reason = "awaiting_greeting"
	ReasonInFlight         Reason = "in_flight"
)

// Decision is the result of RequestAdvance.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// Gate tracks readiness of the current step.
//
// Not safe for concurrent use; all calls and callbacks run on the loop.
type Gate struct {
	sched     loop.Scheduler
	timings   Timings
	lockScope loop.Scope
	onReady   func()
	onRelease func()
	logger    *slog.Logger

	armed      bool
	epoch      int
	scope      loop.Scope
	entry      Entry
	policy     Policy
	dwellDone  bool
	signaled   bool
	canAdvance bool

	inFlight bool
	lockTask *loop.Task
}

// Option configures a Gate.
type Option func(*Gate)

// WithOnReady registers fn to run each time the armed step becomes ready.
func WithOnReady(fn func()) Option {
	return func(g *Gate) { g.onReady = fn }
}

// WithOnRelease registers fn to run when the transition window closes.
func WithOnRelease(fn func()) Option {
	return func(g *Gate) { g.onRelease = fn }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) { g.logger = logger }
}

// New creates a gate. The transition-window timer is registered under
// lockScope, which should outlive individual steps and chapters.
func New(sched loop.Scheduler, lockScope loop.Scope, t Timings, opts ...Option) *Gate {
	g := &Gate{
		sched:     sched,
		timings:   t,
		lockScope: lockScope,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Timings returns the configured timings.
func (g *Gate) Timings() Timings {
	return g.timings
}

// OnStepEntered arms the readiness policy for a newly entered step. Timers
// are registered under scope; cancelling scope disarms nothing by itself but
// any stale callback is ignored once another step is entered.
func (g *Gate) OnStepEntered(scope loop.Scope, e Entry) {
	g.epoch++
	g.armed = true
	g.scope = scope
	g.entry = e
	g.policy = g.timings.PolicyFor(e)
	g.dwellDone = false
	g.signaled = false
	g.canAdvance = false

	g.logger.Debug("gate armed",
		"step", e.Kind.String(),
		"dwell", g.policy.Dwell,
		"await", g.policy.Await.String(),
	)

	if !g.policy.DwellAfterSignal {
		g.startDwell()
	}
}

// Disarm forgets the current step. Subsequent requests are rejected with
// ReasonNotArmed until the next OnStepEntered. The transition lock is kept.
func (g *Gate) Disarm() {
	g.epoch++
	g.armed = false
	g.canAdvance = false
}

// Signal reports an external readiness event. Signals that the current step
// does not await, or that arrive twice, are ignored. Returns whether the
// signal was accepted.
func (g *Gate) Signal(s Signal) bool {
	if !g.armed || s == SignalNone || s != g.policy.Await || g.signaled {
		return false
	}
	g.signaled = true
	g.logger.Debug("gate signal", "step", g.entry.Kind.String(), "signal", s.String())

	if g.policy.DwellAfterSignal {
		g.startDwell()
		return true
	}
	g.check()
	return true
}

// RequestAdvance approves or rejects leaving the current step. An approval
// opens the transition window immediately.
func (g *Gate) RequestAdvance() Decision {
	if g.inFlight {
		return Decision{Reason: ReasonInFlight}
	}
	if !g.armed {
		return Decision{Reason: ReasonNotArmed}
	}
	if !g.canAdvance {
		return Decision{Reason: g.pendingReason()}
	}

	g.beginTransition()
	return Decision{Allowed: true}
}

// CanAdvance reports whether the armed step is ready.
func (g *Gate) CanAdvance() bool {
	return g.armed && g.canAdvance
}

// InFlight reports whether the transition window is open.
func (g *Gate) InFlight() bool {
	return g.inFlight
}

// Entry returns the armed step entry.
func (g *Gate) Entry() Entry {
	return g.entry
}

// Policy returns the armed step policy.
func (g *Gate) Policy() Policy {
	return g.policy
}

// Reset disarms the gate and closes the transition window without running
// the release callback. Used when the whole session is discarded.
func (g *Gate) Reset() {
	g.Disarm()
	g.lockTask.Cancel()
	g.lockTask = nil
	g.inFlight = false
}

func (g *Gate) pendingReason() Reason {
	if g.policy.Await != SignalNone && !g.signaled {
		switch g.policy.Await {
		case SignalQuoteRevealed:
			return ReasonAwaitingReveal
		case SignalGameReady:
			return ReasonAwaitingGame
		case SignalAnswerShown:
			return ReasonAwaitingAnswer
		case SignalGreetingDone:
			return ReasonAwaitingGreeting
		}
	}
	return ReasonDwell
}

func (g *Gate) startDwell() {
	epoch := g.epoch
	g.sched.After(g.policy.Dwell, g.scope.Child("gate"), func() {
		if epoch != g.epoch {
			return
		}
		g.dwellDone = true
		g.check()
	})
}

func (g *Gate) check() {
	if !g.armed || g.canAdvance || !g.dwellDone {
		return
	}
	if g.policy.Await != SignalNone && !g.signaled {
		return
	}
	g.canAdvance = true
	g.logger.Debug("gate ready", "step", g.entry.Kind.String())
	if g.onReady != nil {
		g.onReady()
	}
}

func (g *Gate) beginTransition() {
	g.inFlight = true
	g.lockTask = g.sched.After(g.timings.TransitionWindow, g.lockScope, func() {
		g.inFlight = false
		g.lockTask = nil
		if g.onRelease != nil {
			g.onRelease()
		}
	})
}
