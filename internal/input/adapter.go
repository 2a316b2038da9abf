package input

import (
	"log/slog"
	"time"

	"github.com/roach88/keepsake/internal/debounce"
)

// Channel is the device family an event came from.
type Channel string

const (
	ChannelPointer  Channel = "pointer"
	ChannelTouch    Channel = "touch"
	ChannelKeyboard Channel = "keyboard"
)

// pointerLike reports whether c can produce a twin of the other pointer-like
// channel for the same gesture.
func (c Channel) pointerLike() bool {
	return c == ChannelPointer || c == ChannelTouch
}

// Kind is the raw event kind.
type Kind string

const (
	KindTap       Kind = "tap"
	KindDragStart Kind = "drag_start"
	KindDragEnd   Kind = "drag_end"
	KindCommand   Kind = "command"
)

// Raw is an input event as captured by the presentation layer.
type Raw struct {
	Channel Channel
	Kind    Kind
	// Control identifies the on-screen control or key; it keys both filters.
	Control string
	// X is the horizontal position of drag events.
	X float64
	// Command is the action of tap and command events.
	Command Command
}

// DefaultChannelWindow is how long a pointer-like event suppresses events
// from the other pointer-like channel on the same control.
const DefaultChannelWindow = 300 * time.Millisecond

type lastEvent struct {
	channel Channel
	at      time.Time
}

// Adapter filters raw events and hands the surviving commands to a handler.
//
// Not safe for concurrent use; call it from the loop goroutine.
type Adapter struct {
	now      func() time.Time
	window   time.Duration
	debounce *debounce.Debouncer
	handler  func(Command)
	logger   *slog.Logger

	last   map[string]lastEvent
	drags  map[string]float64
	counts Stats
}

// Stats counts what the adapter did with raw events.
type Stats struct {
	Accepted     int
	ChannelTwins int
	Debounced    int
	Ignored      int
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithChannelWindow overrides DefaultChannelWindow.
func WithChannelWindow(d time.Duration) Option {
	return func(a *Adapter) { a.window = d }
}

// WithDebounceWindow overrides debounce.DefaultWindow.
func WithDebounceWindow(d time.Duration) Option {
	return func(a *Adapter) { a.debounce = debounce.New(a.now, d) }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) { a.logger = logger }
}

// NewAdapter creates an adapter reading time from now (the loop clock) and
// delivering commands to handler.
func NewAdapter(now func() time.Time, handler func(Command), opts ...Option) *Adapter {
	a := &Adapter{
		now:     now,
		window:  DefaultChannelWindow,
		handler: handler,
		logger:  slog.Default(),
		last:    make(map[string]lastEvent),
		drags:   make(map[string]float64),
	}
	a.debounce = debounce.New(now, debounce.DefaultWindow)
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handle processes one raw event. Returns whether a command was dispatched.
func (a *Adapter) Handle(ev Raw) bool {
	if a.isTwin(ev) {
		a.counts.ChannelTwins++
		a.logger.Debug("input twin dropped", "channel", string(ev.Channel), "control", ev.Control)
		return false
	}

	var cmd Command
	switch ev.Kind {
	case KindTap, KindCommand:
		cmd = ev.Command
	case KindDragStart:
		a.drags[dragKey(ev)] = ev.X
		return false
	case KindDragEnd:
		start, ok := a.drags[dragKey(ev)]
		if !ok {
			a.counts.Ignored++
			return false
		}
		delete(a.drags, dragKey(ev))
		cmd = Command{Name: CmdSwipe, DX: ev.X - start}
	default:
		a.counts.Ignored++
		return false
	}
	if cmd.Name == "" {
		a.counts.Ignored++
		return false
	}

	key := ev.Control
	if key == "" {
		key = cmd.String()
	}
	ok := a.debounce.Guard(key, func() { a.handler(cmd) })
	if !ok {
		a.counts.Debounced++
		return false
	}
	a.counts.Accepted++
	return true
}

// isTwin reports whether ev repeats a recent gesture on the same control from
// the other pointer-like channel. Accepted pointer-like events are recorded.
func (a *Adapter) isTwin(ev Raw) bool {
	if !ev.Channel.pointerLike() || ev.Control == "" {
		return false
	}
	now := a.now()
	key := ev.Control + "\x00" + string(ev.Kind)
	if prev, ok := a.last[key]; ok && prev.channel != ev.Channel && now.Sub(prev.at) < a.window {
		return true
	}
	a.last[key] = lastEvent{channel: ev.Channel, at: now}
	return false
}

// KeyControl is the control name of a typed command. Commands that differ
// only in their argument, like "collect 0" and "collect 1", are separate
// controls and never debounce each other.
func KeyControl(c Command) string {
	return "key:" + c.String()
}

func dragKey(ev Raw) string {
	return string(ev.Channel) + "\x00" + ev.Control
}

// Stats returns the adapter counters.
func (a *Adapter) Stats() Stats {
	return a.counts
}

// Reset forgets all filter state.
func (a *Adapter) Reset() {
	clear(a.last)
	clear(a.drags)
	a.debounce.Reset()
}
