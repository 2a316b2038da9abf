package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/keepsake/internal/chapter"
	"github.com/roach88/keepsake/internal/content"
	"github.com/roach88/keepsake/internal/loop"
	"github.com/roach88/keepsake/internal/minigame"
	"github.com/roach88/keepsake/internal/playback"
	"github.com/roach88/keepsake/internal/store"
	"github.com/roach88/keepsake/internal/testutil"
)

// Epoch is the virtual start time of every scenario run.
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

const (
	// playTick is the virtual time between two play iterations.
	playTick = 100 * time.Millisecond
	// defaultPlayLimit bounds a play action to one virtual minute.
	defaultPlayLimit = 600
)

// Harness drives one scenario. It owns the loop, the engine and the trace
// store of a single run.
type Harness struct {
	loop     *loop.Loop
	engine   *playback.Engine
	store    *store.Store
	recorder *store.Recorder
	loader   *testutil.ManualLoader
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Open the in-memory trace store
// 2. Build the loop, the image loader and the engine
// 3. Execute the steps, checking each expectation
// 4. Read the trace back from the store
// 5. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context for store writes.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := newHarness(ctx, scenario, st, logger)

	result := NewResult()
	for i, action := range scenario.Steps {
		outcome := h.execute(ctx, action)
		h.loop.Flush()
		if action.Expect != "" && action.Expect != outcome {
			result.AddError(fmt.Sprintf("steps[%d] %s: expected %q, got %q", i, action.Do, action.Expect, outcome))
		}
		h.logger.Info("step executed", "index", i, "action", action.Do, "outcome", outcome)
	}

	if err := h.recorder.Err(); err != nil {
		return nil, fmt.Errorf("trace recording failed: %w", err)
	}

	trace, err := readTrace(ctx, st)
	if err != nil {
		return nil, err
	}
	result.Trace = trace
	result.State = finalState(h.engine)

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func newHarness(ctx context.Context, scenario *Scenario, st *store.Store, logger *slog.Logger) *Harness {
	l := loop.New(loop.WithStart(Epoch), loop.WithLogger(logger))

	loader := testutil.NewManualLoader()
	loader.AutoComplete = true
	loader.Failing = make(map[string]bool, len(scenario.FailImages))
	for _, p := range scenario.FailImages {
		loader.Failing[p] = true
	}

	repo := content.NewFileRepository(scenario.Book)
	repo.Logger = logger

	recorder := store.NewRecorder(ctx, st, store.WithRecorderLogger(logger))

	opts := []playback.Option{
		playback.WithObserver(recorder),
		playback.WithIDGenerator(testutil.NewSequenceGenerator("scenario")),
		playback.WithSeed(scenario.Seed),
		playback.WithImageLoader(loader),
		playback.WithLogger(logger),
	}
	if scenario.AutoAdvance != nil {
		opts = append(opts, playback.WithAutoAdvance(*scenario.AutoAdvance))
	}

	return &Harness{
		loop:     l,
		engine:   playback.New(l, repo, opts...),
		store:    st,
		recorder: recorder,
		loader:   loader,
		logger:   logger,
	}
}

// execute runs one action and returns its outcome string.
func (h *Harness) execute(ctx context.Context, a Action) string {
	e := h.engine
	switch a.Do {
	case ActStart:
		return errOutcome(e.Start(ctx))
	case ActRestart:
		return errOutcome(e.Restart(ctx))
	case ActWait:
		h.loop.Advance(a.Duration)
		return OutcomeOK
	case ActAdvance:
		d := e.Advance()
		if d.Allowed {
			return OutcomeAllowed
		}
		return string(d.Reason)
	case ActAnswer:
		return boolOutcome(e.SelectAnswer(a.Key))
	case ActCollect:
		return boolOutcome(e.Collect(a.ID))
	case ActFlip:
		return boolOutcome(e.Flip(a.ID))
	case ActNext:
		return boolOutcome(e.NextImage())
	case ActPrev:
		return boolOutcome(e.PrevImage())
	case ActSwipe:
		return boolOutcome(e.Swipe(a.DX))
	case ActGoto:
		return errOutcome(e.GoToChapter(a.Chapter))
	case ActRevealed:
		return boolOutcome(e.QuoteRevealed())
	case ActPlay:
		return h.play(a.Limit)
	default:
		return "unknown"
	}
}

// play acts like an attentive player until the session leaves the Chapter
// phase: it finishes quote reveals, answers with the first key, wins games
// and advances whenever the step is ready. Returns the final phase.
func (h *Harness) play(limit int) string {
	if limit == 0 {
		limit = defaultPlayLimit
	}
	e := h.engine
	for i := 0; i < limit && e.State().Phase == playback.PhaseChapter; i++ {
		h.assist()
		if e.State().CanAdvance {
			e.Advance()
		}
		h.loop.Advance(playTick)
	}
	return e.State().Phase.String()
}

func (h *Harness) assist() {
	e := h.engine
	st := e.State()
	switch e.CurrentStep() {
	case chapter.StepQuote:
		e.QuoteRevealed()
	case chapter.StepQuestion:
		if st.SelectedAnswerKey == "" {
			if keys := e.Chapters()[st.ChapterIndex].Answers.Keys(); len(keys) > 0 {
				e.SelectAnswer(keys[0])
			}
		}
	case chapter.StepGame:
		switch g := e.Game().(type) {
		case *minigame.CollectionGame:
			for _, tok := range g.Tokens() {
				if tok.State == minigame.TokenVisible {
					e.Collect(tok.ID)
				}
			}
		case *minigame.MemoryMatchGame:
			if !g.Evaluating() {
				if a, b, ok := hiddenPair(g.Deck()); ok {
					e.Flip(a)
					e.Flip(b)
				}
			}
		}
	}
}

// hiddenPair returns the ids of two face-down cards showing the same face.
func hiddenPair(deck []minigame.Card) (int, int, bool) {
	for i, a := range deck {
		if a.State != minigame.CardFaceDown {
			continue
		}
		for _, b := range deck[i+1:] {
			if b.State == minigame.CardFaceDown && b.Face == a.Face {
				return a.ID, b.ID, true
			}
		}
	}
	return 0, 0, false
}

func boolOutcome(ok bool) string {
	if ok {
		return OutcomeAccepted
	}
	return OutcomeRejected
}

func errOutcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	var re *playback.RuntimeError
	if errors.As(err, &re) {
		return string(re.Code)
	}
	return "error"
}

// readTrace loads every stored event, session by session.
func readTrace(ctx context.Context, st *store.Store) ([]TraceEvent, error) {
	sessions, err := st.Sessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read sessions: %w", err)
	}
	trace := []TraceEvent{}
	for _, sess := range sessions {
		records, err := st.ReadEvents(ctx, sess.ID)
		if err != nil {
			return nil, fmt.Errorf("read events: %w", err)
		}
		for _, rec := range records {
			trace = append(trace, TraceEvent{
				Seq:       rec.Seq,
				ElapsedMS: rec.At.Sub(Epoch).Milliseconds(),
				Session:   rec.SessionID,
				Type:      rec.Type,
				Chapter:   rec.Chapter,
				Step:      rec.Step,
				Detail:    rec.Detail,
			})
		}
	}
	return trace, nil
}
