package minigame

import (
	"math/rand/v2"
	"time"

	"github.com/roach88/keepsake/internal/chapter"
)

// TokenState is the lifecycle of a collectable token.
type TokenState int

const (
	TokenPending TokenState = iota
	TokenVisible
	TokenCollected
)

// Token is one collectable glyph on the board.
type Token struct {
	ID    int
	Glyph string
	X, Y  float64
	State TokenState
}

// CollectionGame spawns Target tokens one stagger apart. Collecting the last
// one completes the game, and onReady follows after the celebrate delay.
type CollectionGame struct {
	instance
	kind      chapter.MinigameKind
	rng       *rand.Rand
	area      Area
	stagger   time.Duration
	celebrate time.Duration
	tokens    []Token
	collected int
	started   bool
	completed bool
}

// NewCollection creates a collection game for a collection kind.
func NewCollection(kind chapter.MinigameKind, p Params) *CollectionGame {
	kind = chapter.ResolveKind(kind)
	if kind.Variant() != chapter.VariantCollection {
		kind = chapter.KindFallback
	}
	target := p.Timings.CollectTarget
	if target < 1 {
		target = 1
	}
	return &CollectionGame{
		instance:  newInstance(chapter.VariantCollection, p),
		kind:      kind,
		rng:       p.Rand,
		area:      p.Area,
		stagger:   p.Timings.SpawnStagger,
		celebrate: p.Timings.CelebrateDelay,
		tokens:    make([]Token, target),
	}
}

// Kind returns the resolved collection kind.
func (g *CollectionGame) Kind() chapter.MinigameKind {
	return g.kind
}

// Start schedules the token spawns. Calling it twice is a no-op.
func (g *CollectionGame) Start() {
	if g.started || g.cancelled {
		return
	}
	g.started = true
	for i := range g.tokens {
		id := i
		g.after(time.Duration(i)*g.stagger, func() { g.spawn(id) })
	}
}

func (g *CollectionGame) spawn(id int) {
	icons := g.kind.Icons()
	maxX := g.area.Width - g.area.TokenSize
	maxY := g.area.Height - g.area.TokenSize
	if maxX < 0 {
		maxX = 0
	}
	if maxY < 0 {
		maxY = 0
	}

	t := &g.tokens[id]
	t.ID = id
	t.Glyph = icons[g.rng.IntN(len(icons))]
	t.X = g.rng.Float64() * maxX
	t.Y = g.rng.Float64() * maxY
	t.State = TokenVisible

	g.emit(Event{Type: EventSpawned, TokenID: id, Glyph: t.Glyph, X: t.X, Y: t.Y, Target: len(g.tokens)})
}

// Collect picks up a visible token. It returns false for unknown, pending or
// already collected tokens, and for a finished or cancelled game.
func (g *CollectionGame) Collect(id int) bool {
	if g.cancelled || g.completed || id < 0 || id >= len(g.tokens) {
		return false
	}
	t := &g.tokens[id]
	if t.State != TokenVisible {
		return false
	}
	t.State = TokenCollected
	g.collected++
	g.emit(Event{Type: EventCollected, TokenID: id, Collected: g.collected, Target: len(g.tokens)})

	if g.collected == len(g.tokens) {
		g.completed = true
		g.emit(Event{Type: EventCompleted, Collected: g.collected, Target: len(g.tokens)})
		g.after(g.celebrate, g.emitReady)
	}
	return true
}

// Tokens returns a copy of the board.
func (g *CollectionGame) Tokens() []Token {
	out := make([]Token, len(g.tokens))
	copy(out, g.tokens)
	return out
}

// Collected returns how many tokens were picked up.
func (g *CollectionGame) Collected() int {
	return g.collected
}

// Target returns the number of tokens to collect.
func (g *CollectionGame) Target() int {
	return len(g.tokens)
}

// Completed reports whether every token was collected.
func (g *CollectionGame) Completed() bool {
	return g.completed
}
