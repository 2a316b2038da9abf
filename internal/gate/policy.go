package gate

import (
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/keepsake/internal/chapter"
)

// Signal is an external readiness report a step may wait for.
type Signal int

const (
	SignalNone Signal = iota
	// SignalQuoteRevealed: the presenter finished the character reveal.
	SignalQuoteRevealed
	// SignalGameReady: the mini-game emitted onReady.
	SignalGameReady
	// SignalAnswerShown: an answer was selected and the correct one displayed.
	SignalAnswerShown
	// SignalGreetingDone: the greeting animation ran to completion.
	SignalGreetingDone
)

// String returns the signal name used in logs.
func (s Signal) String() string {
	switch s {
	case SignalNone:
		return "none"
	case SignalQuoteRevealed:
		return "quote_revealed"
	case SignalGameReady:
		return "game_ready"
	case SignalAnswerShown:
		return "answer_shown"
	case SignalGreetingDone:
		return "greeting_done"
	default:
		return "unknown"
	}
}

// Timings holds the per-step dwell configuration.
type Timings struct {
	TitleDwell       time.Duration
	QuoteFloor       time.Duration
	QuotePerChar     time.Duration
	NoteDwell        time.Duration
	GameConfirm      time.Duration
	AnswerConfirm    time.Duration
	RevealDwell      time.Duration
	ImageDwell       time.Duration
	TransitionWindow time.Duration
}

// DefaultTimings returns the stock step timings.
func DefaultTimings() Timings {
	return Timings{
		TitleDwell:       1200 * time.Millisecond,
		QuoteFloor:       2500 * time.Millisecond,
		QuotePerChar:     60 * time.Millisecond,
		NoteDwell:        2 * time.Second,
		GameConfirm:      300 * time.Millisecond,
		AnswerConfirm:    1200 * time.Millisecond,
		RevealDwell:      3 * time.Second,
		ImageDwell:       800 * time.Millisecond,
		TransitionWindow: 400 * time.Millisecond,
	}
}

// Entry describes the step being entered.
type Entry struct {
	Kind chapter.StepKind

	// QuoteText sizes the Quote dwell.
	QuoteText string

	// AwaitGreeting makes a Title step also wait for SignalGreetingDone.
	AwaitGreeting bool
}

// Policy is the resolved readiness rule of one step.
//
// A step is ready once its dwell has elapsed and, if Await is set, the signal
// has arrived. With DwellAfterSignal the dwell only starts at the signal.
type Policy struct {
	Dwell            time.Duration
	Await            Signal
	DwellAfterSignal bool
}

// PolicyFor resolves the readiness rule for e.
func (t Timings) PolicyFor(e Entry) Policy {
	switch e.Kind {
	case chapter.StepTitle:
		p := Policy{Dwell: t.TitleDwell}
		if e.AwaitGreeting {
			p.Await = SignalGreetingDone
		}
		return p
	case chapter.StepQuote:
		return Policy{Dwell: t.QuoteDwell(e.QuoteText), Await: SignalQuoteRevealed, DwellAfterSignal: true}
	case chapter.StepNote:
		return Policy{Dwell: t.NoteDwell}
	case chapter.StepGame:
		return Policy{Dwell: t.GameConfirm, Await: SignalGameReady, DwellAfterSignal: true}
	case chapter.StepQuestion:
		return Policy{Dwell: t.AnswerConfirm, Await: SignalAnswerShown, DwellAfterSignal: true}
	case chapter.StepReveal:
		return Policy{Dwell: t.RevealDwell}
	case chapter.StepImage:
		return Policy{Dwell: t.ImageDwell}
	default:
		return Policy{}
	}
}

// QuoteDwell returns max(QuoteFloor, chars × QuotePerChar), counting runes of
// the NFC-normalized text.
func (t Timings) QuoteDwell(text string) time.Duration {
	chars := utf8.RuneCountInString(norm.NFC.String(text))
	reading := time.Duration(chars) * t.QuotePerChar
	if reading > t.QuoteFloor {
		return reading
	}
	return t.QuoteFloor
}
