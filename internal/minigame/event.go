package minigame

import "github.com/roach88/keepsake/internal/chapter"

// EventType names a presentation event.
type EventType string

const (
	EventSpawned         EventType = "spawned"
	EventCollected       EventType = "collected"
	EventCompleted       EventType = "completed"
	EventDealt           EventType = "dealt"
	EventFlipped         EventType = "flipped"
	EventMatched         EventType = "matched"
	EventMismatched      EventType = "mismatched"
	EventHidden          EventType = "hidden"
	EventGreetingStarted EventType = "greeting_started"
	EventGreetingDone    EventType = "greeting_done"
	EventReady           EventType = "ready"
)

// Event is a mini-game state change for the presenter.
// Fields not relevant to Type are zero.
type Event struct {
	Variant chapter.GameVariant
	Type    EventType

	// Collection
	TokenID   int
	Glyph     string
	X, Y      float64
	Collected int
	Target    int

	// Memory match
	CardID       int
	OtherCardID  int
	Face         string
	MatchedPairs int
	TotalPairs   int
}
