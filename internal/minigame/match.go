package minigame

import (
	"math/rand/v2"
	"time"

	"github.com/roach88/keepsake/internal/chapter"
)

// CardState is the visible state of a memory card.
type CardState int

const (
	CardFaceDown CardState = iota
	CardFaceUp
	CardMatched
)

func (s CardState) String() string {
	switch s {
	case CardFaceDown:
		return "face_down"
	case CardFaceUp:
		return "face_up"
	case CardMatched:
		return "matched"
	default:
		return "unknown"
	}
}

// Card is one memory card. Two cards share each Face.
type Card struct {
	ID    int
	Face  string
	State CardState
}

// MemoryMatchGame is a pairs game. At most two cards are face up outside the
// matched set; while a pair is being evaluated further flips are rejected.
type MemoryMatchGame struct {
	instance
	deck         []Card
	flipped      []int
	evaluating   bool
	matchedPairs int
	totalPairs   int
	evaluations  int
	started      bool

	view     time.Duration
	flipBack time.Duration
	confirm  time.Duration
}

// NewMemoryMatch deals a shuffled deck containing each face twice.
func NewMemoryMatch(faces []string, p Params) *MemoryMatchGame {
	deck := make([]Card, 0, len(faces)*2)
	for _, f := range faces {
		deck = append(deck, Card{Face: f}, Card{Face: f})
	}
	Shuffle(p.Rand, deck)
	for i := range deck {
		deck[i].ID = i
	}

	return &MemoryMatchGame{
		instance:   newInstance(chapter.VariantMemoryMatch, p),
		deck:       deck,
		totalPairs: len(faces),
		view:       p.Timings.MatchView,
		flipBack:   p.Timings.MismatchFlipBack,
		confirm:    p.Timings.MatchConfirm,
	}
}

// Shuffle permutes s uniformly (Fisher-Yates).
func Shuffle[T any](r *rand.Rand, s []T) {
	r.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
}

// Start reveals the dealt deck. A deck with no pairs is ready at once.
func (g *MemoryMatchGame) Start() {
	if g.started || g.cancelled {
		return
	}
	g.started = true
	g.emit(Event{Type: EventDealt, TotalPairs: g.totalPairs})
	if g.totalPairs == 0 {
		g.after(g.confirm, g.emitReady)
	}
}

// Flip turns a face-down card up. It returns false when the game is not
// running, a pair is being evaluated, or the card is not face down.
func (g *MemoryMatchGame) Flip(id int) bool {
	if !g.started || g.cancelled || g.evaluating {
		return false
	}
	if id < 0 || id >= len(g.deck) || g.deck[id].State != CardFaceDown {
		return false
	}

	g.deck[id].State = CardFaceUp
	g.flipped = append(g.flipped, id)
	g.emit(Event{Type: EventFlipped, CardID: id, Face: g.deck[id].Face})

	if len(g.flipped) == 2 {
		g.evaluating = true
		g.after(g.view, g.evaluate)
	}
	return true
}

func (g *MemoryMatchGame) evaluate() {
	a, b := g.flipped[0], g.flipped[1]
	g.evaluations++

	if g.deck[a].Face == g.deck[b].Face {
		g.deck[a].State = CardMatched
		g.deck[b].State = CardMatched
		g.matchedPairs++
		g.release()
		g.emit(Event{
			Type: EventMatched, CardID: a, OtherCardID: b, Face: g.deck[a].Face,
			MatchedPairs: g.matchedPairs, TotalPairs: g.totalPairs,
		})
		if g.matchedPairs == g.totalPairs {
			g.after(g.confirm, g.emitReady)
		}
		return
	}

	g.emit(Event{Type: EventMismatched, CardID: a, OtherCardID: b})
	g.after(g.flipBack, func() {
		g.deck[a].State = CardFaceDown
		g.deck[b].State = CardFaceDown
		g.release()
		g.emit(Event{Type: EventHidden, CardID: a, OtherCardID: b})
	})
}

func (g *MemoryMatchGame) release() {
	g.flipped = g.flipped[:0]
	g.evaluating = false
}

// Deck returns a copy of the cards in deal order.
func (g *MemoryMatchGame) Deck() []Card {
	out := make([]Card, len(g.deck))
	copy(out, g.deck)
	return out
}

// Evaluating reports whether a flipped pair is pending evaluation.
func (g *MemoryMatchGame) Evaluating() bool {
	return g.evaluating
}

// MatchedPairs returns the number of pairs found so far.
func (g *MemoryMatchGame) MatchedPairs() int {
	return g.matchedPairs
}

// TotalPairs returns the number of pairs in the deck.
func (g *MemoryMatchGame) TotalPairs() int {
	return g.totalPairs
}

// Evaluations returns how many pairs have been compared.
func (g *MemoryMatchGame) Evaluations() int {
	return g.evaluations
}

// FaceUp returns the ids of face-up, unmatched cards.
func (g *MemoryMatchGame) FaceUp() []int {
	var ids []int
	for _, c := range g.deck {
		if c.State == CardFaceUp {
			ids = append(ids, c.ID)
		}
	}
	return ids
}
