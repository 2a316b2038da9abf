package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/keepsake/internal/content"
	"github.com/roach88/keepsake/internal/gallery"
	"github.com/roach88/keepsake/internal/input"
	"github.com/roach88/keepsake/internal/loop"
	"github.com/roach88/keepsake/internal/playback"
	"github.com/roach88/keepsake/internal/store"
)

// PlayOptions holds flags for the play command.
type PlayOptions struct {
	*RootOptions
	// Linger keeps the session running after input ends so pending timers
	// can fire when commands are piped in.
	Linger time.Duration
}

// PlayResult summarizes a finished play session.
type PlayResult struct {
	Session  string `json:"session"`
	Phase    string `json:"phase"`
	Chapter  int    `json:"chapter"`
	Recorded int    `json:"recorded"`
}

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "play [book]",
		Short: "Play a book interactively",
		Long: `Play a book in the terminal. Commands are read from stdin, one per line:

  <enter>          advance
  answer <key>     select an answer
  collect <id>     pick up a token
  flip <id>        turn a card
  next, prev       browse the gallery
  swipe <dx>       swipe the gallery
  goto <n>         jump to chapter n (0-based)
  restart          start a new session
  wait <duration>  pause reading input (for scripts)
  quit             stop

The book defaults to KEEPSAKE_BOOK. With --db every engine event is recorded
for "keepsake trace".

Examples:
  keepsake play ./book.yaml
  keepsake play ./book --db ./keepsake.db --seed 7
  printf 'wait 2s\n\n' | keepsake play ./book.yaml --format json --linger 5s`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(opts, args, cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Linger, "linger", 0, "keep playing for this long after input ends")

	return cmd
}

func runPlay(opts *PlayOptions, args []string, cmd *cobra.Command) error {
	cfg := opts.config()
	logger := opts.logger()

	book, err := bookPath(cfg.Book, args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	repo := content.NewFileRepository(book)
	repo.Logger = logger

	l := loop.New(loop.WithLogger(logger))

	engOpts := []playback.Option{
		playback.WithTimings(cfg.Playback()),
		playback.WithAutoAdvance(cfg.AutoAdvance),
		playback.WithImageLoader(gallery.FileLoader{Root: imageRoot(book)}),
		playback.WithLogger(logger),
	}
	if cfg.Seed != 0 {
		engOpts = append(engOpts, playback.WithSeed(cfg.Seed))
	}

	var recorder *store.Recorder
	if cfg.DB != "" {
		st, err := store.Open(cfg.DB)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		recorder = store.NewRecorder(ctx, st, store.WithRecorderLogger(logger))
		engOpts = append(engOpts, playback.WithObserver(recorder))
	}

	var eng *playback.Engine
	revealed := func() {
		l.Post(func() { eng.QuoteRevealed() })
	}

	out := cmd.OutOrStdout()
	var events *eventWriter
	var presenter *textPresenter
	if opts.Format == "json" {
		events = newEventWriter(out)
		presenter = newTextPresenter(io.Discard, revealed)
		engOpts = append(engOpts, playback.WithObserver(events))
	} else {
		presenter = newTextPresenter(out, revealed)
	}
	engOpts = append(engOpts, playback.WithPresenter(presenter))
	eng = playback.New(l, repo, engOpts...)

	dispatch := func(c input.Command) {
		err := input.Apply(ctx, eng, c)
		if err == nil || playback.IsNoChapters(err) {
			// Failed sessions are already shown by the presenter.
			return
		}
		logger.Debug("command rejected", "command", c.String(), "error", err)
		if events != nil {
			events.writeError(c.String(), err)
			return
		}
		presenter.ShowError(err)
	}
	adapter := input.NewAdapter(l.Now, dispatch,
		input.WithChannelWindow(cfg.ChannelWindow),
		input.WithDebounceWindow(cfg.DebounceWindow),
		input.WithLogger(logger),
	)

	l.Post(func() { dispatch(input.Command{Name: input.CmdStart}) })
	go readCommands(ctx, cmd.InOrStdin(), l, adapter, presenter, events, opts.Linger)

	if err := l.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "playback loop failed", err)
	}

	state := eng.State()
	result := PlayResult{
		Session: eng.Session(),
		Phase:   state.Phase.String(),
		Chapter: state.ChapterIndex,
	}
	if recorder != nil {
		result.Recorded = recorder.Written()
		if err := recorder.Err(); err != nil {
			return WrapExitError(ExitFailure, "trace recording failed", err)
		}
	}
	logger.Info("play finished",
		"session", result.Session,
		"phase", result.Phase,
		"recorded", result.Recorded,
	)

	if events != nil {
		_ = events.enc.Encode(map[string]any{"type": "result", "detail": result})
	} else {
		fmt.Fprintf(out, "\nsession %s ended in %s (chapter %d)\n", result.Session, result.Phase, result.Chapter+1)
	}

	if state.Phase == playback.PhaseFailed {
		return NewExitError(ExitFailure, "session ended in the failed phase")
	}
	return nil
}

// readCommands feeds stdin lines into the loop until input ends, then stops
// the loop after linger.
//
// Every call into the adapter or a presenter happens on the loop goroutine.
func readCommands(ctx context.Context, in io.Reader, l *loop.Loop, adapter *input.Adapter, presenter *textPresenter, events *eventWriter, linger time.Duration) {
	defer l.Stop()

	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		word, arg, _ := strings.Cut(line, " ")

		switch strings.ToLower(word) {
		case "quit", "q", "exit":
			return
		case "wait":
			d, err := time.ParseDuration(strings.TrimSpace(arg))
			if err != nil {
				l.Post(func() { reportInputError(presenter, events, line, err) })
				continue
			}
			if !sleep(ctx, d) {
				return
			}
			continue
		}

		c, err := input.ParseCommand(line)
		if err != nil {
			l.Post(func() { reportInputError(presenter, events, line, err) })
			continue
		}
		raw := input.Raw{
			Channel: input.ChannelKeyboard,
			Kind:    input.KindCommand,
			Control: input.KeyControl(c),
			Command: c,
		}
		if !l.Post(func() { adapter.Handle(raw) }) {
			return
		}
	}

	sleep(ctx, linger)
}

func reportInputError(presenter *textPresenter, events *eventWriter, line string, err error) {
	if events != nil {
		events.writeError(line, err)
		return
	}
	presenter.ShowError(err)
}

// sleep waits for d or until ctx is done. Returns false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// imageRoot is the directory image paths of book are relative to.
func imageRoot(book string) string {
	if info, err := os.Stat(book); err == nil && info.IsDir() {
		return book
	}
	return filepath.Dir(book)
}

// bookPath picks the book from the first argument, falling back to the
// configured KEEPSAKE_BOOK, and checks that it exists.
func bookPath(configured string, args []string) (string, error) {
	book := configured
	if len(args) > 0 {
		book = args[0]
	}
	if book == "" {
		return "", NewExitError(ExitCommandError, "no book given: pass a path or set KEEPSAKE_BOOK")
	}
	if _, err := os.Stat(book); err != nil {
		return "", WrapExitError(ExitCommandError, fmt.Sprintf("book not found: %s", book), err)
	}
	return book, nil
}
