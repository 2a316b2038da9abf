// Package input turns raw pointer, touch and keyboard events into logical
// playback commands.
//
// Two filters run before a command reaches the engine. The channel filter
// drops the twin of a gesture when both pointer and touch report it; the
// debounce filter then enforces one action per control per window.
package input

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/keepsake/internal/gate"
)

// Name identifies a logical command.
type Name string

const (
	CmdStart         Name = "start"
	CmdAdvance       Name = "advance"
	CmdAnswer        Name = "answer"
	CmdCollect       Name = "collect"
	CmdFlip          Name = "flip"
	CmdNextImage     Name = "next-image"
	CmdPrevImage     Name = "prev-image"
	CmdSwipe         Name = "swipe"
	CmdGoTo          Name = "goto"
	CmdQuoteRevealed Name = "quote-revealed"
	CmdRestart       Name = "restart"
)

// Command is one logical user action.
type Command struct {
	Name Name
	// Key is the answer key of CmdAnswer.
	Key string
	// ID is the token, card or chapter index of CmdCollect, CmdFlip, CmdGoTo.
	ID int
	// DX is the horizontal drag of CmdSwipe.
	DX float64
}

// String renders the command in the form ParseCommand accepts.
func (c Command) String() string {
	switch c.Name {
	case CmdAnswer:
		return fmt.Sprintf("%s %s", c.Name, c.Key)
	case CmdCollect, CmdFlip, CmdGoTo:
		return fmt.Sprintf("%s %d", c.Name, c.ID)
	case CmdSwipe:
		return fmt.Sprintf("%s %s", c.Name, strconv.FormatFloat(c.DX, 'f', -1, 64))
	default:
		return string(c.Name)
	}
}

var aliases = map[string]Name{
	"":         CmdAdvance,
	"a":        CmdAdvance,
	"n":        CmdNextImage,
	"next":     CmdNextImage,
	"p":        CmdPrevImage,
	"prev":     CmdPrevImage,
	"revealed": CmdQuoteRevealed,
}

// ParseCommand parses a command line such as "answer b", "collect 3" or
// "swipe -80". A blank line means advance.
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(strings.TrimSpace(line))
	word := ""
	if len(fields) > 0 {
		word = strings.ToLower(fields[0])
	}
	name, ok := aliases[word]
	if !ok {
		name = Name(word)
	}

	cmd := Command{Name: name}
	arg := func() (string, error) {
		if len(fields) != 2 {
			return "", fmt.Errorf("%s takes exactly one argument", name)
		}
		return fields[1], nil
	}

	switch name {
	case CmdStart, CmdAdvance, CmdNextImage, CmdPrevImage, CmdQuoteRevealed, CmdRestart:
		if len(fields) > 1 {
			return Command{}, fmt.Errorf("%s takes no arguments", name)
		}
	case CmdAnswer:
		a, err := arg()
		if err != nil {
			return Command{}, err
		}
		cmd.Key = a
	case CmdCollect, CmdFlip, CmdGoTo:
		a, err := arg()
		if err != nil {
			return Command{}, err
		}
		n, err := strconv.Atoi(a)
		if err != nil {
			return Command{}, fmt.Errorf("%s: invalid index %q: %w", name, a, err)
		}
		cmd.ID = n
	case CmdSwipe:
		a, err := arg()
		if err != nil {
			return Command{}, err
		}
		dx, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return Command{}, fmt.Errorf("swipe: invalid dx %q: %w", a, err)
		}
		cmd.DX = dx
	default:
		return Command{}, fmt.Errorf("unknown command %q", word)
	}
	return cmd, nil
}

// Target is the command surface of the playback engine.
type Target interface {
	Start(ctx context.Context) error
	Restart(ctx context.Context) error
	Advance() gate.Decision
	SelectAnswer(key string) bool
	Collect(id int) bool
	Flip(id int) bool
	NextImage() bool
	PrevImage() bool
	Swipe(dx float64) bool
	GoToChapter(i int) error
	QuoteRevealed() bool
}

// Apply runs cmd against t. Rejected actions (an advance that is not yet
// allowed, a flip during evaluation) are not errors; only phase and range
// errors from the engine are returned.
func Apply(ctx context.Context, t Target, cmd Command) error {
	switch cmd.Name {
	case CmdStart:
		return t.Start(ctx)
	case CmdRestart:
		return t.Restart(ctx)
	case CmdAdvance:
		t.Advance()
	case CmdAnswer:
		t.SelectAnswer(cmd.Key)
	case CmdCollect:
		t.Collect(cmd.ID)
	case CmdFlip:
		t.Flip(cmd.ID)
	case CmdNextImage:
		t.NextImage()
	case CmdPrevImage:
		t.PrevImage()
	case CmdSwipe:
		t.Swipe(cmd.DX)
	case CmdGoTo:
		return t.GoToChapter(cmd.ID)
	case CmdQuoteRevealed:
		t.QuoteRevealed()
	default:
		return fmt.Errorf("unknown command %q", cmd.Name)
	}
	return nil
}
