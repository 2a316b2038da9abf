package input

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/keepsake/internal/gate"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) add(d time.Duration) { c.t = c.t.Add(d) }

func newAdapter() (*Adapter, *clock, *[]Command) {
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	var got []Command
	a := NewAdapter(c.now, func(cmd Command) { got = append(got, cmd) })
	return a, c, &got
}

func tap(ch Channel, control string, cmd Command) Raw {
	return Raw{Channel: ch, Kind: KindTap, Control: control, Command: cmd}
}

func TestPointerTouchTwinDropped(t *testing.T) {
	a, c, got := newAdapter()
	advance := Command{Name: CmdAdvance}

	assert.True(t, a.Handle(tap(ChannelTouch, "next", advance)))
	c.add(20 * time.Millisecond)
	assert.False(t, a.Handle(tap(ChannelPointer, "next", advance)))

	assert.Len(t, *got, 1)
	assert.Equal(t, 1, a.Stats().ChannelTwins)

	c.add(300 * time.Millisecond)
	assert.True(t, a.Handle(tap(ChannelPointer, "next", advance)))
	assert.Len(t, *got, 2)
}

func TestDebounceSameChannel(t *testing.T) {
	a, c, got := newAdapter()
	advance := Command{Name: CmdAdvance}

	assert.True(t, a.Handle(tap(ChannelPointer, "next", advance)))
	c.add(10 * time.Millisecond)
	assert.False(t, a.Handle(tap(ChannelPointer, "next", advance)))
	c.add(490 * time.Millisecond)
	assert.True(t, a.Handle(tap(ChannelPointer, "next", advance)))

	assert.Len(t, *got, 2)
	assert.Equal(t, 1, a.Stats().Debounced)
}

func TestDifferentControlsIndependent(t *testing.T) {
	a, _, got := newAdapter()
	assert.True(t, a.Handle(tap(ChannelPointer, "token-1", Command{Name: CmdCollect, ID: 1})))
	assert.True(t, a.Handle(tap(ChannelPointer, "token-2", Command{Name: CmdCollect, ID: 2})))
	assert.Len(t, *got, 2)
}

func TestTypedCommandsDebounceByArgument(t *testing.T) {
	a, c, got := newAdapter()
	typed := func(cmd Command) Raw {
		return Raw{Channel: ChannelKeyboard, Kind: KindCommand, Control: KeyControl(cmd), Command: cmd}
	}

	assert.True(t, a.Handle(typed(Command{Name: CmdCollect, ID: 0})))
	c.add(5 * time.Millisecond)
	assert.True(t, a.Handle(typed(Command{Name: CmdCollect, ID: 1})), "another token is another control")
	c.add(5 * time.Millisecond)
	assert.False(t, a.Handle(typed(Command{Name: CmdCollect, ID: 0})), "the same line twice is one action")

	assert.Equal(t, []Command{{Name: CmdCollect, ID: 0}, {Name: CmdCollect, ID: 1}}, *got)
	assert.Equal(t, "key:collect 1", KeyControl(Command{Name: CmdCollect, ID: 1}))
}

func TestEmptyControlKeyedByCommand(t *testing.T) {
	a, _, got := newAdapter()
	assert.True(t, a.Handle(Raw{Channel: ChannelKeyboard, Kind: KindCommand, Command: Command{Name: CmdFlip, ID: 2}}))
	assert.True(t, a.Handle(Raw{Channel: ChannelKeyboard, Kind: KindCommand, Command: Command{Name: CmdFlip, ID: 3}}))
	assert.False(t, a.Handle(Raw{Channel: ChannelKeyboard, Kind: KindCommand, Command: Command{Name: CmdFlip, ID: 3}}))
	assert.Len(t, *got, 2)
}

func TestKeyboardNotChannelFiltered(t *testing.T) {
	a, c, got := newAdapter()
	assert.True(t, a.Handle(tap(ChannelPointer, "next", Command{Name: CmdAdvance})))
	c.add(150 * time.Millisecond)
	assert.True(t, a.Handle(Raw{Channel: ChannelKeyboard, Kind: KindCommand, Control: "next", Command: Command{Name: CmdAdvance}}))
	assert.Len(t, *got, 2)
}

func TestDragBecomesSwipe(t *testing.T) {
	a, _, got := newAdapter()
	assert.False(t, a.Handle(Raw{Channel: ChannelTouch, Kind: KindDragStart, Control: "gallery", X: 200}))
	assert.True(t, a.Handle(Raw{Channel: ChannelTouch, Kind: KindDragEnd, Control: "gallery", X: 120}))

	require.Len(t, *got, 1)
	assert.Equal(t, Command{Name: CmdSwipe, DX: -80}, (*got)[0])
}

func TestDragEndWithoutStartIgnored(t *testing.T) {
	a, _, got := newAdapter()
	assert.False(t, a.Handle(Raw{Channel: ChannelPointer, Kind: KindDragEnd, Control: "gallery", X: 10}))
	assert.Empty(t, *got)
	assert.Equal(t, 1, a.Stats().Ignored)
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{"", Command{Name: CmdAdvance}},
		{"advance", Command{Name: CmdAdvance}},
		{"answer b", Command{Name: CmdAnswer, Key: "b"}},
		{"collect 3", Command{Name: CmdCollect, ID: 3}},
		{"FLIP 0", Command{Name: CmdFlip, ID: 0}},
		{"next", Command{Name: CmdNextImage}},
		{"prev-image", Command{Name: CmdPrevImage}},
		{"swipe -80.5", Command{Name: CmdSwipe, DX: -80.5}},
		{"goto 2", Command{Name: CmdGoTo, ID: 2}},
		{"revealed", Command{Name: CmdQuoteRevealed}},
		{"restart", Command{Name: CmdRestart}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := ParseCommand(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCommandErrors(t *testing.T) {
	for _, line := range []string{"dance", "answer", "collect x", "advance now", "swipe left", "goto"} {
		t.Run(line, func(t *testing.T) {
			_, err := ParseCommand(line)
			assert.Error(t, err)
		})
	}
}

func TestCommandStringRoundTrip(t *testing.T) {
	for _, cmd := range []Command{
		{Name: CmdAnswer, Key: "a"},
		{Name: CmdFlip, ID: 4},
		{Name: CmdSwipe, DX: 60},
		{Name: CmdRestart},
	} {
		got, err := ParseCommand(cmd.String())
		require.NoError(t, err)
		assert.Equal(t, cmd, got)
	}
}

type fakeTarget struct {
	calls []string
	err   error
}

func (f *fakeTarget) Start(context.Context) error { f.calls = append(f.calls, "start"); return f.err }
func (f *fakeTarget) Restart(context.Context) error { f.calls = append(f.calls, "restart"); return f.err }
func (f *fakeTarget) Advance() gate.Decision { f.calls = append(f.calls, "advance"); return gate.Decision{} }
func (f *fakeTarget) SelectAnswer(string) bool { f.calls = append(f.calls, "answer"); return true }
func (f *fakeTarget) Collect(int) bool { f.calls = append(f.calls, "collect"); return true }
func (f *fakeTarget) Flip(int) bool { f.calls = append(f.calls, "flip"); return true }
func (f *fakeTarget) NextImage() bool { f.calls = append(f.calls, "next"); return true }
func (f *fakeTarget) PrevImage() bool { f.calls = append(f.calls, "prev"); return true }
func (f *fakeTarget) Swipe(float64) bool { f.calls = append(f.calls, "swipe"); return true }
func (f *fakeTarget) GoToChapter(int) error { f.calls = append(f.calls, "goto"); return f.err }
func (f *fakeTarget) QuoteRevealed() bool { f.calls = append(f.calls, "revealed"); return true }

func TestApply(t *testing.T) {
	ctx := context.Background()
	ft := &fakeTarget{}
	for _, line := range []string{"start", "advance", "answer a", "collect 1", "flip 2", "next", "prev", "swipe 70", "goto 0", "revealed", "restart"} {
		cmd, err := ParseCommand(line)
		require.NoError(t, err)
		require.NoError(t, Apply(ctx, ft, cmd))
	}
	assert.Equal(t, []string{"start", "advance", "answer", "collect", "flip", "next", "prev", "swipe", "goto", "revealed", "restart"}, ft.calls)

	ft.err = errors.New("out of range")
	assert.Error(t, Apply(ctx, ft, Command{Name: CmdGoTo, ID: 9}))
	assert.Error(t, Apply(ctx, ft, Command{Name: "bogus"}))
}
