package playback

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/roach88/keepsake/internal/chapter"
	"github.com/roach88/keepsake/internal/gallery"
	"github.com/roach88/keepsake/internal/gate"
	"github.com/roach88/keepsake/internal/loop"
	"github.com/roach88/keepsake/internal/minigame"
	"github.com/roach88/keepsake/internal/sequence"
)

// Repository supplies the chapters of a session.
type Repository interface {
	FetchAll(ctx context.Context) ([]chapter.Chapter, error)
}

// BookRepository is a Repository that also supplies the ending card.
type BookRepository interface {
	Repository
	FetchBook(ctx context.Context) (chapter.Book, error)
}

// Timings bundles the per-component timing configuration.
type Timings struct {
	Gate    gate.Timings
	Game    minigame.Timings
	Area    minigame.Area
	Gallery gallery.Timings

	// AnswerReveal is the delay between selecting an answer and showing
	// the correct one.
	AnswerReveal time.Duration
}

// DefaultTimings returns the stock configuration of every component.
func DefaultTimings() Timings {
	return Timings{
		Gate:         gate.DefaultTimings(),
		Game:         minigame.DefaultTimings(),
		Area:         minigame.DefaultArea(),
		Gallery:      gallery.DefaultTimings(),
		AnswerReveal: 500 * time.Millisecond,
	}
}

// Engine is the playback orchestrator.
//
// CRITICAL: All methods must be called from the loop goroutine that drives
// sched.
type Engine struct {
	sched     loop.Scheduler
	repo      Repository
	presenter Presenter
	observers []Observer
	ids       IDGenerator
	rng       *rand.Rand
	loader    gallery.ImageLoader
	timings   Timings
	auto      bool
	logger    *slog.Logger
	clock     *loop.Clock

	// Session, rebuilt by Start.
	session      string
	sessionScope loop.Scope
	book         chapter.Book
	contentHash  string
	gate         *gate.Gate

	// Chapter instance, rebuilt by loadChapter.
	state     State
	instance  string
	scope     loop.Scope
	seq       chapter.Sequence
	stepScope loop.Scope
	game      minigame.Controller
	carousel  *gallery.Carousel
	chosen    *chapter.Answer
	revealed  bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithPresenter sets the presenter. Defaults to NopPresenter.
func WithPresenter(p Presenter) Option {
	return func(e *Engine) { e.presenter = p }
}

// WithObserver adds an observer of engine events.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

// WithIDGenerator replaces the UUIDv7 id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// WithSeed makes mini-game randomness reproducible.
func WithSeed(seed uint64) Option {
	return func(e *Engine) { e.rng = rand.New(rand.NewPCG(seed, seed)) }
}

// WithImageLoader replaces the filesystem image loader.
func WithImageLoader(l gallery.ImageLoader) Option {
	return func(e *Engine) { e.loader = l }
}

// WithTimings replaces the default timings.
func WithTimings(t Timings) Option {
	return func(e *Engine) { e.timings = t }
}

// WithAutoAdvance controls whether Game and Question advance on their own
// once ready. Default: on.
func WithAutoAdvance(on bool) Option {
	return func(e *Engine) { e.auto = on }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New creates an engine in the Intro phase.
func New(sched loop.Scheduler, repo Repository, opts ...Option) *Engine {
	e := &Engine{
		sched:     sched,
		repo:      repo,
		presenter: NopPresenter{},
		ids:       UUIDv7Generator{},
		loader:    gallery.FileLoader{},
		timings:   DefaultTimings(),
		auto:      true,
		logger:    slog.Default(),
		clock:     loop.NewClock(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	return e
}

// Start fetches the chapters and loads the first one. Valid only in Intro.
//
// With zero chapters the engine enters Failed and returns a RuntimeError
// with ErrCodeNoChapters. Restart is the way out.
func (e *Engine) Start(ctx context.Context) error {
	if e.state.Phase != PhaseIntro {
		return NewInvalidPhaseError("start", e.state.Phase)
	}

	e.session = e.ids.Generate()
	e.sessionScope = loop.Root.Child("session", e.session)
	e.gate = gate.New(e.sched, e.sessionScope.Child("lock"), e.timings.Gate,
		gate.WithOnReady(e.onGateReady),
		gate.WithOnRelease(e.onGateRelease),
		gate.WithLogger(e.logger),
	)

	book, err := e.fetch(ctx)
	if err != nil || len(book.Chapters) == 0 {
		return e.fail(NewNoChaptersError(err))
	}
	e.book = book

	hash, err := chapter.ContentHash(book.Chapters)
	if err != nil {
		return e.fail(fmt.Errorf("hash chapters: %w", err))
	}
	e.contentHash = hash

	e.logger.Info("session started",
		"session", e.session,
		"chapters", len(book.Chapters),
		"content_hash", hash,
	)
	e.emit(EventStarted, map[string]any{
		"chapters":     len(book.Chapters),
		"content_hash": hash,
		"title":        book.Title,
	})

	return e.loadChapter(0)
}

func (e *Engine) fetch(ctx context.Context) (chapter.Book, error) {
	if br, ok := e.repo.(BookRepository); ok {
		book, err := br.FetchBook(ctx)
		if err != nil {
			return chapter.Book{}, fmt.Errorf("fetch book: %w", err)
		}
		return book, nil
	}
	chapters, err := e.repo.FetchAll(ctx)
	if err != nil {
		return chapter.Book{}, fmt.Errorf("fetch chapters: %w", err)
	}
	return chapter.Book{Chapters: chapters}, nil
}

func (e *Engine) fail(err error) error {
	e.state = State{Phase: PhaseFailed}
	e.logger.Warn("session failed", "session", e.session, "error", err)
	e.emit(EventFailed, map[string]any{"error": err.Error()})
	e.presenter.ShowError(err)
	return err
}

// Restart discards the session and starts a new one. Valid in any phase.
func (e *Engine) Restart(ctx context.Context) error {
	e.discardInstance()
	if e.gate != nil {
		e.gate.Reset()
	}
	if e.sessionScope != loop.Root {
		e.sched.CancelScope(e.sessionScope)
	}
	e.logger.Info("session restarting", "session", e.session)

	e.session = ""
	e.sessionScope = loop.Root
	e.book = chapter.Book{}
	e.contentHash = ""
	e.gate = nil
	e.state = State{Phase: PhaseIntro}

	return e.Start(ctx)
}

// GoToChapter jumps to chapter i. Valid only in the Chapter phase.
func (e *Engine) GoToChapter(i int) error {
	if e.state.Phase != PhaseChapter {
		return NewInvalidPhaseError("goto", e.state.Phase)
	}
	return e.loadChapter(i)
}

func (e *Engine) loadChapter(i int) error {
	if i < 0 || i >= len(e.book.Chapters) {
		return NewOutOfRangeError(i, len(e.book.Chapters))
	}

	e.discardInstance()

	e.state = State{Phase: PhaseChapter, ChapterIndex: i}
	e.instance = e.ids.Generate()
	e.scope = e.sessionScope.Child("chapter", e.instance)

	c := e.book.Chapters[i]
	e.seq = sequence.Build(c)

	instance := e.instance
	e.game = minigame.New(c, minigame.Params{
		Scheduler: e.sched,
		Scope:     e.scope.Child("game"),
		Rand:      e.rng,
		Timings:   e.timings.Game,
		Area:      e.timings.Area,
		OnReady:   func() { e.onGameReady(instance) },
		OnEvent:   func(ev minigame.Event) { e.onGameEvent(instance, ev) },
	})
	e.carousel = gallery.New(e.sched, e.loader, e.timings.Gallery,
		gallery.WithOnView(func(v gallery.View) { e.onGalleryView(instance, v) }),
		gallery.WithLogger(e.logger),
	)

	e.logger.Info("chapter loaded",
		"chapter", i,
		"instance", instance,
		"steps", e.seq.Names(),
		"game", e.game.Variant().String(),
	)

	e.enterStep(0)
	return nil
}

// discardInstance cancels every timer of the live chapter instance and drops
// its controllers.
func (e *Engine) discardInstance() {
	if e.instance == "" {
		return
	}
	e.sched.CancelScope(e.scope)
	if e.game != nil {
		e.game.Cancel()
	}
	if e.carousel != nil {
		e.carousel.Discard()
	}
	if e.gate != nil {
		e.gate.Disarm()
	}

	e.instance = ""
	e.scope = loop.Root
	e.stepScope = loop.Root
	e.seq = nil
	e.game = nil
	e.carousel = nil
	e.chosen = nil
	e.revealed = false
}

func (e *Engine) finish() {
	e.discardInstance()
	e.state = State{Phase: PhaseEnding, ChapterIndex: len(e.book.Chapters) - 1}

	ending := Ending{
		Collage:    Collage(e.book.Chapters),
		Message:    e.book.Ending.Message,
		ButtonText: e.book.Ending.ButtonText,
		ButtonLink: e.book.Ending.ButtonLink,
	}
	e.logger.Info("session ended", "session", e.session, "collage", len(ending.Collage))
	e.emit(EventEnding, map[string]any{"collage": ending.Collage})
	e.presenter.ShowEnding(ending)
}

// Collage returns the first supported image of each chapter, in order.
func Collage(chapters []chapter.Chapter) []string {
	var out []string
	for _, c := range chapters {
		if img, ok := c.CoverImage(); ok {
			out = append(out, img)
		}
	}
	return out
}

// State returns a snapshot of the playback state.
func (e *Engine) State() State {
	s := e.state
	if e.gate != nil {
		s.IsAdvancing = e.gate.InFlight()
		s.CanAdvance = e.state.Phase == PhaseChapter && e.gate.CanAdvance()
	}
	return s
}

// Session returns the current session id.
func (e *Engine) Session() string {
	return e.session
}

// Instance returns the live chapter-instance id, or "" outside a chapter.
func (e *Engine) Instance() string {
	return e.instance
}

// ContentHash returns the hash of the loaded chapters.
func (e *Engine) ContentHash() string {
	return e.contentHash
}

// Chapters returns the loaded chapters.
func (e *Engine) Chapters() []chapter.Chapter {
	return e.book.Chapters
}

// Sequence returns the step sequence of the live chapter.
func (e *Engine) Sequence() chapter.Sequence {
	return e.seq
}

// CurrentStep returns the kind of the current step, or 0 outside a chapter.
func (e *Engine) CurrentStep() chapter.StepKind {
	if e.state.Phase != PhaseChapter || e.state.StepIndex >= len(e.seq) {
		return 0
	}
	return e.seq[e.state.StepIndex].Kind
}

// Game returns the live mini-game controller.
func (e *Engine) Game() minigame.Controller {
	return e.game
}

// Carousel returns the live gallery carousel.
func (e *Engine) Carousel() *gallery.Carousel {
	return e.carousel
}

func (e *Engine) emit(t EventType, detail map[string]any) {
	if len(e.observers) == 0 {
		return
	}
	ev := Event{
		Seq:      e.clock.Next(),
		At:       e.sched.Now(),
		Type:     t,
		Session:  e.session,
		Instance: e.instance,
		Chapter:  e.state.ChapterIndex,
		Step:     e.CurrentStep(),
		Detail:   detail,
	}
	for _, o := range e.observers {
		o.OnEvent(ev)
	}
}

func (e *Engine) stepScopeFor(idx int) loop.Scope {
	return e.scope.Child("step", strconv.Itoa(idx))
}
