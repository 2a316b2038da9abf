// Package minigame implements the three mini-game state machines played
// during a chapter: CollectionGame, MemoryMatchGame and GreetingAnimation.
//
// Every variant is one Controller instance per chapter instance. A controller
// emits onReady at most once, when the player should be allowed to proceed,
// and reports presentation events through Params.OnEvent. Cancel discards the
// instance: all its timers are cancelled and any callback that was already
// dequeued becomes a no-op, so a stale instance can never signal readiness
// into a newer one.
package minigame

import (
	"math/rand/v2"
	"time"

	"github.com/roach88/keepsake/internal/chapter"
	"github.com/roach88/keepsake/internal/loop"
)

// Controller is the common surface of the three variants.
type Controller interface {
	Variant() chapter.GameVariant
	Start()
	Cancel()
	Ready() bool
}

// Timings holds mini-game delays and sizes.
type Timings struct {
	CollectTarget    int
	SpawnStagger     time.Duration
	CelebrateDelay   time.Duration
	MatchView        time.Duration
	MismatchFlipBack time.Duration
	MatchConfirm     time.Duration
	MaxPairs         int
	FallbackPairs    int
	GreetingDuration time.Duration
}

// DefaultTimings returns the stock mini-game configuration.
func DefaultTimings() Timings {
	return Timings{
		CollectTarget:    5,
		SpawnStagger:     400 * time.Millisecond,
		CelebrateDelay:   500 * time.Millisecond,
		MatchView:        800 * time.Millisecond,
		MismatchFlipBack: 400 * time.Millisecond,
		MatchConfirm:     600 * time.Millisecond,
		MaxPairs:         6,
		FallbackPairs:    4,
		GreetingDuration: 3 * time.Second,
	}
}

// Area is the collection play area in pixels.
type Area struct {
	Width     float64
	Height    float64
	TokenSize float64
}

// DefaultArea matches the stock game board.
func DefaultArea() Area {
	return Area{Width: 320, Height: 240, TokenSize: 50}
}

// Params wires a controller to the loop and the presenter.
type Params struct {
	Scheduler loop.Scheduler
	Scope     loop.Scope
	Rand      *rand.Rand
	Timings   Timings
	Area      Area
	OnReady   func()
	OnEvent   func(Event)
}

// New returns the controller selected by the chapter's mini-game kind.
// Unknown kinds get the fallback collection game.
func New(c chapter.Chapter, p Params) Controller {
	if p.Rand == nil {
		p.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	if p.Timings == (Timings{}) {
		p.Timings = DefaultTimings()
	}
	if p.Area == (Area{}) {
		p.Area = DefaultArea()
	}

	kind := chapter.ResolveKind(c.MinigameKind)
	switch kind.Variant() {
	case chapter.VariantMemoryMatch:
		return NewMemoryMatch(MatchFaces(c, p.Timings), p)
	case chapter.VariantGreeting:
		return NewGreeting(p)
	default:
		return NewCollection(kind, p)
	}
}

// MatchFaces picks the card faces for a memory match: the chapter's distinct
// supported images up to MaxPairs, or the kind's icon set capped at
// FallbackPairs when fewer than two images exist.
func MatchFaces(c chapter.Chapter, t Timings) []string {
	seen := make(map[string]bool)
	var faces []string
	for _, img := range chapter.SupportedImages(c.Images) {
		if seen[img] {
			continue
		}
		seen[img] = true
		faces = append(faces, img)
		if len(faces) == t.MaxPairs {
			break
		}
	}
	if len(faces) >= 2 {
		return faces
	}

	icons := chapter.KindMemory.Icons()
	if len(icons) > t.FallbackPairs {
		icons = icons[:t.FallbackPairs]
	}
	return icons
}

// instance carries the lifecycle shared by every variant.
type instance struct {
	variant   chapter.GameVariant
	sched     loop.Scheduler
	scope     loop.Scope
	onReady   func()
	onEvent   func(Event)
	cancelled bool
	ready     bool
}

func newInstance(v chapter.GameVariant, p Params) instance {
	return instance{
		variant: v,
		sched:   p.Scheduler,
		scope:   p.Scope,
		onReady: p.OnReady,
		onEvent: p.OnEvent,
	}
}

// Variant returns the game variant.
func (in *instance) Variant() chapter.GameVariant {
	return in.variant
}

// Ready reports whether onReady has been emitted.
func (in *instance) Ready() bool {
	return in.ready
}

// Cancelled reports whether Cancel was called.
func (in *instance) Cancelled() bool {
	return in.cancelled
}

// Cancel discards the instance and every pending continuation.
func (in *instance) Cancel() {
	if in.cancelled {
		return
	}
	in.cancelled = true
	in.sched.CancelScope(in.scope)
}

// after schedules fn under the instance scope; fn never runs once cancelled.
func (in *instance) after(d time.Duration, fn func()) *loop.Task {
	return in.sched.After(d, in.scope, func() {
		if in.cancelled {
			return
		}
		fn()
	})
}

func (in *instance) emit(e Event) {
	if in.cancelled || in.onEvent == nil {
		return
	}
	e.Variant = in.variant
	in.onEvent(e)
}

// emitReady fires onReady exactly once per instance.
func (in *instance) emitReady() {
	if in.cancelled || in.ready {
		return
	}
	in.ready = true
	in.emit(Event{Type: EventReady})
	if in.onReady != nil {
		in.onReady()
	}
}
