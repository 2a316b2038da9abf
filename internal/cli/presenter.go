package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/keepsake/internal/chapter"
	"github.com/roach88/keepsake/internal/gallery"
	"github.com/roach88/keepsake/internal/gate"
	"github.com/roach88/keepsake/internal/minigame"
	"github.com/roach88/keepsake/internal/playback"
)

// textPresenter renders playback to a terminal, one line per change.
//
// A terminal shows a quote at once, so ShowStep reports the reveal back to
// the engine through revealed.
type textPresenter struct {
	w        io.Writer
	revealed func()
}

var _ playback.Presenter = (*textPresenter)(nil)

func newTextPresenter(w io.Writer, revealed func()) *textPresenter {
	return &textPresenter{w: w, revealed: revealed}
}

func (p *textPresenter) ShowStep(f playback.Frame) {
	switch f.Step {
	case chapter.StepTitle:
		fmt.Fprintf(p.w, "\n== Chapter %d/%d: %s ==\n", f.ChapterIndex+1, f.ChapterCount, heading(f))
	case chapter.StepQuote:
		fmt.Fprintf(p.w, "  \"%s\"\n", strings.TrimSpace(f.Text))
		if p.revealed != nil {
			p.revealed()
		}
	case chapter.StepNote:
		fmt.Fprintf(p.w, "  note: %s\n", strings.TrimSpace(f.Text))
	case chapter.StepGame:
		fmt.Fprintln(p.w, "  game: collect <id> picks up a token, flip <id> turns a card")
	case chapter.StepQuestion:
		fmt.Fprintf(p.w, "  %s\n", strings.TrimSpace(f.Text))
		for _, a := range f.Answers {
			fmt.Fprintf(p.w, "    %s) %s\n", a.Key, a.Text)
		}
	case chapter.StepReveal:
		if f.Chosen != nil {
			fmt.Fprintf(p.w, "  you chose: %s\n", f.Chosen.Text)
		}
	case chapter.StepImage:
		if f.Caption != "" {
			fmt.Fprintf(p.w, "  %s\n", f.Caption)
		}
	}
}

func heading(f playback.Frame) string {
	switch {
	case f.MonthLabel != "" && f.Title != "":
		return f.MonthLabel + " - " + f.Title
	case f.Title != "":
		return f.Title
	default:
		return f.MonthLabel
	}
}

func (p *textPresenter) ShowGame(ev minigame.Event) {
	switch ev.Type {
	case minigame.EventSpawned:
		fmt.Fprintf(p.w, "  token %d %s at (%.0f, %.0f)\n", ev.TokenID, ev.Glyph, ev.X, ev.Y)
	case minigame.EventCollected:
		fmt.Fprintf(p.w, "  collected %d/%d\n", ev.Collected, ev.Target)
	case minigame.EventCompleted:
		fmt.Fprintln(p.w, "  all collected!")
	case minigame.EventDealt:
		fmt.Fprintf(p.w, "  dealt %d pairs (cards 0-%d)\n", ev.TotalPairs, max(ev.TotalPairs*2-1, 0))
	case minigame.EventFlipped:
		fmt.Fprintf(p.w, "  card %d: %s\n", ev.CardID, ev.Face)
	case minigame.EventMatched:
		fmt.Fprintf(p.w, "  match! %d/%d\n", ev.MatchedPairs, ev.TotalPairs)
	case minigame.EventMismatched:
		fmt.Fprintln(p.w, "  no match")
	case minigame.EventHidden:
		fmt.Fprintf(p.w, "  cards %d and %d turned back\n", ev.CardID, ev.OtherCardID)
	case minigame.EventGreetingStarted:
		fmt.Fprintln(p.w, "  ...")
	case minigame.EventReady:
		fmt.Fprintln(p.w, "  (press enter to continue)")
	}
}

func (p *textPresenter) ShowGallery(v gallery.View) {
	if v.Hidden {
		fmt.Fprintln(p.w, "  (no images)")
		return
	}
	status := ""
	if !v.Loaded {
		status = " [loading]"
	}
	if !v.ShowControls {
		fmt.Fprintf(p.w, "  image %s%s\n", v.Image, status)
		return
	}
	fmt.Fprintf(p.w, "  image %d/%d %s%s\n", v.Position, v.Count, v.Image, status)
}

func (p *textPresenter) AnswerRevealed(chosen, correct chapter.Answer) {
	if chosen.Key == correct.Key {
		fmt.Fprintf(p.w, "  right! it was %s\n", correct.Text)
		return
	}
	fmt.Fprintf(p.w, "  it was %s\n", correct.Text)
}

func (p *textPresenter) NotYet(reason gate.Reason) {
	fmt.Fprintf(p.w, "  not yet (%s)\n", reason)
}

func (p *textPresenter) ShowEnding(e playback.Ending) {
	fmt.Fprintln(p.w, "\n== The End ==")
	for _, img := range e.Collage {
		fmt.Fprintf(p.w, "  %s\n", img)
	}
	if e.Message != "" {
		fmt.Fprintf(p.w, "  %s\n", e.Message)
	}
	if e.ButtonText != "" {
		fmt.Fprintf(p.w, "  [%s] %s\n", e.ButtonText, e.ButtonLink)
	}
	fmt.Fprintln(p.w, "  (restart to play again)")
}

func (p *textPresenter) ShowError(err error) {
	fmt.Fprintf(p.w, "  error: %v\n", err)
}

// eventLine is the JSON rendering of a playback event.
type eventLine struct {
	Seq      int64          `json:"seq"`
	At       string         `json:"at"`
	Type     string         `json:"type"`
	Session  string         `json:"session,omitempty"`
	Instance string         `json:"instance,omitempty"`
	Chapter  int            `json:"chapter"`
	Step     string         `json:"step,omitempty"`
	Detail   map[string]any `json:"detail,omitempty"`
}

// eventWriter streams engine events as JSON lines for `play --format json`.
type eventWriter struct {
	enc *json.Encoder
}

var _ playback.Observer = (*eventWriter)(nil)

func newEventWriter(w io.Writer) *eventWriter {
	return &eventWriter{enc: json.NewEncoder(w)}
}

func (w *eventWriter) OnEvent(e playback.Event) {
	line := eventLine{
		Seq:      e.Seq,
		At:       e.At.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Type:     string(e.Type),
		Session:  e.Session,
		Instance: e.Instance,
		Chapter:  e.Chapter,
		Detail:   e.Detail,
	}
	if e.Step != 0 {
		line.Step = e.Step.String()
	}
	_ = w.enc.Encode(line)
}

// writeError emits a command error as a JSON line.
func (w *eventWriter) writeError(command string, err error) {
	_ = w.enc.Encode(map[string]any{
		"type":   "error",
		"detail": map[string]any{"command": command, "error": err.Error()},
	})
}
