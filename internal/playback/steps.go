package playback

import (
	"github.com/roach88/keepsake/internal/chapter"
	"github.com/roach88/keepsake/internal/gallery"
	"github.com/roach88/keepsake/internal/gate"
	"github.com/roach88/keepsake/internal/minigame"
)

// Advance requests a move to the next step. A rejected request publishes
// NotYet and changes nothing. Past the last step the next chapter loads;
// past the last chapter the session ends.
func (e *Engine) Advance() gate.Decision {
	return e.advance(false)
}

func (e *Engine) advance(auto bool) gate.Decision {
	if e.state.Phase != PhaseChapter {
		return gate.Decision{Reason: gate.ReasonNotArmed}
	}

	d := e.gate.RequestAdvance()
	if !d.Allowed {
		if !auto {
			e.logger.Debug("advance rejected",
				"chapter", e.state.ChapterIndex,
				"step", e.CurrentStep().String(),
				"reason", string(d.Reason),
			)
			e.emit(EventNotYet, map[string]any{"reason": string(d.Reason)})
			e.presenter.NotYet(d.Reason)
		}
		return d
	}

	e.leaveStep()

	next := e.state.StepIndex + 1
	switch {
	case next < len(e.seq):
		e.enterStep(next)
	case e.state.ChapterIndex+1 < len(e.book.Chapters):
		if err := e.loadChapter(e.state.ChapterIndex + 1); err != nil {
			e.logger.Error("load next chapter", "error", err)
		}
	default:
		e.finish()
	}
	return d
}

func (e *Engine) current() chapter.Chapter {
	return e.book.Chapters[e.state.ChapterIndex]
}

func (e *Engine) enterStep(idx int) {
	e.state.StepIndex = idx
	e.stepScope = e.stepScopeFor(idx)

	c := e.current()
	kind := e.seq[idx].Kind
	animate := chapter.ResolveKind(c.MinigameKind).IsAnimate()

	entry := gate.Entry{Kind: kind}
	switch kind {
	case chapter.StepTitle:
		entry.AwaitGreeting = animate
	case chapter.StepQuote:
		entry.QuoteText = c.NarrativeText
	}
	e.gate.OnStepEntered(e.stepScope, entry)

	e.logger.Debug("step entered", "chapter", e.state.ChapterIndex, "step", kind.String(), "index", idx)
	e.emit(EventStep, map[string]any{
		"index": idx,
		"name":  kind.String(),
		"of":    len(e.seq),
	})
	e.presenter.ShowStep(e.frame())

	switch kind {
	case chapter.StepTitle:
		if animate {
			e.game.Start()
		}
	case chapter.StepGame:
		e.game.Start()
	case chapter.StepImage:
		e.carousel.Load(e.scope.Child("gallery"), c.Images)
	}
}

// leaveStep releases what the departing step owns.
func (e *Engine) leaveStep() {
	e.sched.CancelScope(e.stepScope)

	switch e.CurrentStep() {
	case chapter.StepTitle:
		if e.game.Variant() == chapter.VariantGreeting {
			e.game.Cancel()
		}
	case chapter.StepGame:
		e.game.Cancel()
	case chapter.StepImage:
		e.carousel.Discard()
	}
}

func (e *Engine) frame() Frame {
	c := e.current()
	f := Frame{
		ChapterIndex: e.state.ChapterIndex,
		ChapterCount: len(e.book.Chapters),
		StepIndex:    e.state.StepIndex,
		StepCount:    len(e.seq),
		Step:         e.CurrentStep(),
		Instance:     e.instance,
		MonthLabel:   c.MonthLabel,
		Title:        c.Title,
	}

	switch f.Step {
	case chapter.StepQuote:
		f.Text = c.NarrativeText
	case chapter.StepNote:
		f.Text = c.Note
	case chapter.StepQuestion:
		f.Text = c.Question
		f.Answers = c.Answers
	case chapter.StepReveal:
		f.Text = c.Question
		f.Chosen = e.chosen
		if correct, ok := c.Correct(); ok {
			f.Correct = &correct
		}
	case chapter.StepImage:
		f.Caption = c.Caption
	}
	return f
}

// SelectAnswer records the player's answer on the Question step. Only the
// first valid selection of a chapter instance counts; unknown keys and
// later calls return false. An empty key is a key like any other.
func (e *Engine) SelectAnswer(key string) bool {
	if e.CurrentStep() != chapter.StepQuestion || e.chosen != nil {
		return false
	}
	c := e.current()
	chosen, ok := c.Answers.Lookup(key)
	if !ok {
		return false
	}

	e.state.SelectedAnswerKey = key
	e.chosen = &chosen
	e.emit(EventAnswer, map[string]any{"key": key})

	instance := e.instance
	e.sched.After(e.timings.AnswerReveal, e.stepScope.Child("reveal"), func() {
		if instance != e.instance {
			return
		}
		correct, _ := c.Correct()
		e.revealed = true
		e.emit(EventAnswerRevealed, map[string]any{
			"chosen":     chosen.Key,
			"correct":    correct.Key,
			"is_correct": chosen.Key == correct.Key,
		})
		e.presenter.AnswerRevealed(chosen, correct)
		e.gate.Signal(gate.SignalAnswerShown)
	})
	return true
}

// QuoteRevealed reports that the presenter finished revealing the quote.
func (e *Engine) QuoteRevealed() bool {
	if e.CurrentStep() != chapter.StepQuote {
		return false
	}
	return e.gate.Signal(gate.SignalQuoteRevealed)
}

// Collect picks up a token in a collection game.
func (e *Engine) Collect(id int) bool {
	if e.CurrentStep() != chapter.StepGame {
		return false
	}
	g, ok := e.game.(*minigame.CollectionGame)
	return ok && g.Collect(id)
}

// Flip turns a card in a memory match game.
func (e *Engine) Flip(id int) bool {
	if e.CurrentStep() != chapter.StepGame {
		return false
	}
	g, ok := e.game.(*minigame.MemoryMatchGame)
	return ok && g.Flip(id)
}

// NextImage moves the gallery forward.
func (e *Engine) NextImage() bool {
	if e.CurrentStep() != chapter.StepImage {
		return false
	}
	return e.carousel.Next()
}

// PrevImage moves the gallery back.
func (e *Engine) PrevImage() bool {
	if e.CurrentStep() != chapter.StepImage {
		return false
	}
	return e.carousel.Prev()
}

// Swipe routes a horizontal drag to the gallery.
func (e *Engine) Swipe(dx float64) bool {
	if e.CurrentStep() != chapter.StepImage {
		return false
	}
	return e.carousel.Swipe(dx)
}

func (e *Engine) autoStep() bool {
	switch e.CurrentStep() {
	case chapter.StepGame, chapter.StepQuestion:
		return e.auto
	}
	return false
}

func (e *Engine) onGateReady() {
	if e.state.Phase != PhaseChapter {
		return
	}
	e.logger.Debug("step ready", "chapter", e.state.ChapterIndex, "step", e.CurrentStep().String())
	if e.autoStep() {
		e.advance(true)
	}
}

// onGateRelease retries an auto-advance that the transition window blocked.
func (e *Engine) onGateRelease() {
	if e.state.Phase == PhaseChapter && e.autoStep() && e.gate.CanAdvance() {
		e.advance(true)
	}
}

func (e *Engine) onGameReady(instance string) {
	if instance != e.instance {
		return
	}
	if e.game.Variant() == chapter.VariantGreeting {
		e.gate.Signal(gate.SignalGreetingDone)
		return
	}
	e.gate.Signal(gate.SignalGameReady)
}

func (e *Engine) onGameEvent(instance string, ev minigame.Event) {
	if instance != e.instance {
		return
	}
	e.presenter.ShowGame(ev)

	detail := map[string]any{
		"variant": ev.Variant.String(),
		"event":   string(ev.Type),
	}
	switch ev.Type {
	case minigame.EventSpawned:
		detail["token"] = ev.TokenID
		detail["glyph"] = ev.Glyph
	case minigame.EventCollected, minigame.EventCompleted:
		detail["token"] = ev.TokenID
		detail["collected"] = ev.Collected
		detail["target"] = ev.Target
	case minigame.EventDealt:
		detail["pairs"] = ev.TotalPairs
	case minigame.EventFlipped:
		detail["card"] = ev.CardID
		detail["face"] = ev.Face
	case minigame.EventMatched:
		detail["card"] = ev.CardID
		detail["other"] = ev.OtherCardID
		detail["matched_pairs"] = ev.MatchedPairs
	case minigame.EventMismatched, minigame.EventHidden:
		detail["card"] = ev.CardID
		detail["other"] = ev.OtherCardID
	}
	e.emit(EventGame, detail)
}

func (e *Engine) onGalleryView(instance string, v gallery.View) {
	if instance != e.instance {
		return
	}
	e.presenter.ShowGallery(v)
	e.emit(EventGallery, map[string]any{
		"index":         v.Index,
		"count":         v.Count,
		"position":      v.Position,
		"loaded":        v.Loaded,
		"hidden":        v.Hidden,
		"show_controls": v.ShowControls,
		"fully_viewed":  v.FullyViewed,
	})
}
