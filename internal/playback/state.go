package playback

import (
	"time"

	"github.com/roach88/keepsake/internal/chapter"
	"github.com/roach88/keepsake/internal/gallery"
	"github.com/roach88/keepsake/internal/gate"
	"github.com/roach88/keepsake/internal/minigame"
)

// Phase is the top-level playback phase.
type Phase int

const (
	PhaseIntro Phase = iota
	PhaseChapter
	PhaseEnding
	PhaseFailed
)

// String returns the phase name used in logs and traces.
func (p Phase) String() string {
	switch p {
	case PhaseIntro:
		return "intro"
	case PhaseChapter:
		return "chapter"
	case PhaseEnding:
		return "ending"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is a snapshot of PlaybackState.
type State struct {
	Phase             Phase
	ChapterIndex      int
	StepIndex         int
	SelectedAnswerKey string
	IsAdvancing       bool
	CanAdvance        bool
}

// Frame is what the presenter needs to draw one step.
type Frame struct {
	ChapterIndex int
	ChapterCount int
	StepIndex    int
	StepCount    int
	Step         chapter.StepKind
	Instance     string

	MonthLabel string
	Title      string

	// Text is the quote, note or question depending on Step.
	Text string

	// Answers is set on Question.
	Answers chapter.Answers

	// Chosen and Correct are set on Reveal. Correct is nil when the
	// chapter's correct key names no answer.
	Chosen  *chapter.Answer
	Correct *chapter.Answer

	// Caption is set on Image.
	Caption string
}

// Ending is the final screen of a session.
type Ending struct {
	// Collage holds the first supported image of each chapter, in order.
	Collage    []string
	Message    string
	ButtonText string
	ButtonLink string
}

// Presenter renders engine output. The engine never waits on it; rendering
// completion that matters (the quote reveal) is reported back through
// Engine.QuoteRevealed.
type Presenter interface {
	ShowStep(Frame)
	ShowGame(minigame.Event)
	ShowGallery(gallery.View)
	AnswerRevealed(chosen, correct chapter.Answer)
	NotYet(reason gate.Reason)
	ShowEnding(Ending)
	ShowError(err error)
}

// NopPresenter discards all output.
type NopPresenter struct{}

func (NopPresenter) ShowStep(Frame) {}
func (NopPresenter) ShowGame(minigame.Event) {}
func (NopPresenter) ShowGallery(gallery.View) {}
func (NopPresenter) AnswerRevealed(chosen, correct chapter.Answer) {}
func (NopPresenter) NotYet(gate.Reason) {}
func (NopPresenter) ShowEnding(Ending) {}
func (NopPresenter) ShowError(error) {}

// EventType names a traced engine transition.
type EventType string

const (
	EventStarted        EventType = "started"
	EventStep           EventType = "step"
	EventNotYet         EventType = "not_yet"
	EventAnswer         EventType = "answer"
	EventAnswerRevealed EventType = "answer_revealed"
	EventGame           EventType = "game"
	EventGallery        EventType = "gallery"
	EventEnding         EventType = "ending"
	EventFailed         EventType = "failed"
)

// Event is one engine transition reported to observers.
//
// Detail values are limited to string, bool, int, int64 and []string so
// they serialize to canonical JSON.
type Event struct {
	Seq      int64
	At       time.Time
	Type     EventType
	Session  string
	Instance string
	Chapter  int
	Step     chapter.StepKind
	Detail   map[string]any
}

// Observer receives engine events. Called on the loop goroutine.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnEvent calls f(e).
func (f ObserverFunc) OnEvent(e Event) {
	f(e)
}
