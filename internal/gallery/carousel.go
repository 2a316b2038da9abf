// Package gallery implements the per-chapter image carousel.
//
// A Carousel belongs to one chapter instance. Load starts asynchronous image
// loads through an ImageLoader; completions are posted back onto the loop and
// dropped if the carousel has since been reloaded or discarded. Navigation is
// serialized by a short cooldown and never leaves [0, len-1].
package gallery

import (
	"log/slog"
	"time"

	"github.com/roach88/keepsake/internal/chapter"
	"github.com/roach88/keepsake/internal/loop"
)

// ImageLoader loads an image asynchronously. done is called exactly once,
// from any goroutine.
type ImageLoader interface {
	Load(path string, done func(error))
}

// Timings configures loading and navigation.
type Timings struct {
	MaxInFlight    int
	RetryDelay     time.Duration
	MaxAttempts    int
	Cooldown       time.Duration
	PreloadAhead   int
	SwipeThreshold float64
}

// DefaultTimings returns the stock carousel configuration.
func DefaultTimings() Timings {
	return Timings{
		MaxInFlight:    2,
		RetryDelay:     150 * time.Millisecond,
		MaxAttempts:    20,
		Cooldown:       350 * time.Millisecond,
		PreloadAhead:   2,
		SwipeThreshold: 50,
	}
}

// View is the presenter-facing carousel state.
//
// Index addresses the filtered image list. Count and Position only consider
// images that have not failed, so a failed image is never shown or counted.
type View struct {
	Image        string
	Index        int
	Count        int
	Position     int
	Loaded       bool
	Hidden       bool
	ShowControls bool
	FullyViewed  bool
}

type slot struct {
	path    string
	loading bool
	loaded  bool
	failed  bool
	seen    bool
}

// Carousel is the image browsing state machine. Loop goroutine only.
type Carousel struct {
	sched  loop.Scheduler
	loader ImageLoader
	t      Timings
	onView func(View)
	logger *slog.Logger

	scope      loop.Scope
	generation uint64
	active     bool

	slots      []slot
	queue      []int
	inFlight   int
	current    int
	navigating bool
	retry      *loop.Task
	attempts   int
}

// Option configures a Carousel.
type Option func(*Carousel)

// WithOnView sets the presenter callback for view changes.
func WithOnView(fn func(View)) Option {
	return func(c *Carousel) {
		c.onView = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Carousel) {
		c.logger = logger
	}
}

// New creates an idle carousel.
func New(sched loop.Scheduler, loader ImageLoader, t Timings, opts ...Option) *Carousel {
	c := &Carousel{
		sched:  sched,
		loader: loader,
		t:      t,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load replaces the carousel contents with the supported images and starts
// loading them. Any earlier contents are discarded first.
func (c *Carousel) Load(scope loop.Scope, images []string) {
	c.Discard()

	c.scope = scope
	c.active = true
	c.current = 0

	supported := chapter.SupportedImages(images)
	c.slots = make([]slot, len(supported))
	c.queue = make([]int, len(supported))
	for i, p := range supported {
		c.slots[i] = slot{path: p}
		c.queue[i] = i
	}
	if len(c.slots) > 0 {
		c.slots[0].seen = true
	}

	c.logger.Debug("gallery loading", "scope", scope, "images", len(supported), "dropped", len(images)-len(supported))
	c.pump()
	c.publish()
}

// Discard abandons the current contents. Pending timers are cancelled and
// in-flight load completions will be ignored.
func (c *Carousel) Discard() {
	if !c.active {
		return
	}
	c.sched.CancelScope(c.scope)
	c.generation++
	c.active = false
	c.slots = nil
	c.queue = nil
	c.inFlight = 0
	c.current = 0
	c.navigating = false
	c.retry = nil
	c.attempts = 0
}

// Active reports whether the carousel holds a loaded chapter.
func (c *Carousel) Active() bool {
	return c.active
}

// Next moves to the following visible image.
func (c *Carousel) Next() bool {
	return c.navigate(1)
}

// Prev moves to the preceding visible image.
func (c *Carousel) Prev() bool {
	return c.navigate(-1)
}

// Swipe interprets a horizontal drag. A drag left (dx < 0) past the
// threshold is Next, a drag right is Prev; shorter drags are ignored.
func (c *Carousel) Swipe(dx float64) bool {
	switch {
	case dx < -c.t.SwipeThreshold:
		return c.Next()
	case dx > c.t.SwipeThreshold:
		return c.Prev()
	default:
		return false
	}
}

// View returns the current view.
func (c *Carousel) View() View {
	count := 0
	position := 0
	fully := true
	for i, s := range c.slots {
		if s.failed {
			continue
		}
		count++
		if i <= c.current {
			position = count
		}
		if !s.seen {
			fully = false
		}
	}

	v := View{
		Index:        c.current,
		Count:        count,
		Position:     position,
		ShowControls: count > 1,
		FullyViewed:  count <= 1 || fully,
	}
	if c.current < len(c.slots) {
		s := c.slots[c.current]
		v.Image = s.path
		v.Loaded = s.loaded
		v.Hidden = s.failed
	}
	return v
}

// target returns the nearest non-failed index in direction dir.
func (c *Carousel) target(dir int) (int, bool) {
	for i := c.current + dir; i >= 0 && i < len(c.slots); i += dir {
		if !c.slots[i].failed {
			return i, true
		}
	}
	return 0, false
}

func (c *Carousel) navigate(dir int) bool {
	if !c.active || c.navigating {
		return false
	}
	idx, ok := c.target(dir)
	if !ok {
		return false
	}

	if !c.slots[idx].loaded {
		c.scheduleRetry(dir)
		return false
	}

	c.clearRetry()
	c.current = idx
	c.slots[idx].seen = true
	c.navigating = true
	c.sched.After(c.t.Cooldown, c.scope.Child("cooldown"), func() {
		c.navigating = false
	})
	c.preload()
	c.publish()
	return true
}

func (c *Carousel) scheduleRetry(dir int) {
	if c.retry != nil && c.retry.Pending() {
		return
	}
	if c.attempts >= c.t.MaxAttempts {
		c.logger.Debug("gallery retry limit reached", "scope", c.scope, "index", c.current)
		return
	}
	c.attempts++
	c.retry = c.sched.After(c.t.RetryDelay, c.scope.Child("retry"), func() {
		c.retry = nil
		c.navigate(dir)
	})
}

func (c *Carousel) clearRetry() {
	c.retry.Cancel()
	c.retry = nil
	c.attempts = 0
}

// preload moves the next unseen images ahead of the current one to the front
// of the load queue.
func (c *Carousel) preload() {
	var ahead []int
	for i := c.current + 1; i < len(c.slots) && len(ahead) < c.t.PreloadAhead; i++ {
		s := c.slots[i]
		if s.seen || s.loaded || s.loading || s.failed {
			continue
		}
		ahead = append(ahead, i)
	}
	if len(ahead) == 0 {
		return
	}

	rest := make([]int, 0, len(c.queue))
	for _, i := range c.queue {
		if !contains(ahead, i) {
			rest = append(rest, i)
		}
	}
	c.queue = append(ahead, rest...)
	c.pump()
}

func (c *Carousel) pump() {
	for c.inFlight < c.t.MaxInFlight && len(c.queue) > 0 {
		idx := c.queue[0]
		c.queue = c.queue[1:]
		s := &c.slots[idx]
		if s.loading || s.loaded {
			continue
		}
		s.loading = true
		c.inFlight++

		gen := c.generation
		c.loader.Load(s.path, func(err error) {
			c.sched.Post(func() { c.complete(gen, idx, err) })
		})
	}
}

func (c *Carousel) complete(gen uint64, idx int, err error) {
	if !c.active || gen != c.generation {
		return
	}
	c.inFlight--
	s := &c.slots[idx]
	s.loading = false
	s.loaded = true
	if err != nil {
		s.failed = true
		c.logger.Warn("gallery image failed", "path", s.path, "error", err)
		if idx == c.current {
			c.relocate()
		}
	}
	c.pump()
	c.publish()
}

// relocate moves off a failed current image, preferring the next one.
func (c *Carousel) relocate() {
	for _, dir := range []int{1, -1} {
		if idx, ok := c.target(dir); ok {
			c.current = idx
			c.slots[idx].seen = true
			return
		}
	}
}

func (c *Carousel) publish() {
	if c.onView != nil {
		c.onView(c.View())
	}
}

func contains(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
