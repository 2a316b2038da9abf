package store

import (
	"context"
	"log/slog"

	"github.com/roach88/keepsake/internal/chapter"
	"github.com/roach88/keepsake/internal/playback"
)

// Recorder writes engine events to a Store. It implements playback.Observer.
//
// The engine cannot act on a failed trace write, so errors are logged and the
// first one is kept for Err. A session header is written on the first event
// seen for a session and completed by its started event.
//
// Thread-safety: NOT safe for concurrent use; the engine calls observers from
// the loop goroutine.
type Recorder struct {
	store  *Store
	ctx    context.Context
	logger *slog.Logger

	known   map[string]bool
	written int
	err     error
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithRecorderLogger sets the logger used for write failures.
func WithRecorderLogger(l *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		r.logger = l
	}
}

// NewRecorder creates a recorder that writes with ctx.
func NewRecorder(ctx context.Context, s *Store, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store:  s,
		ctx:    ctx,
		logger: slog.Default(),
		known:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ playback.Observer = (*Recorder)(nil)

// OnEvent persists e.
func (r *Recorder) OnEvent(e playback.Event) {
	if e.Session == "" {
		return
	}
	if err := r.record(e); err != nil {
		r.logger.Error("trace write failed",
			"session", e.Session,
			"seq", e.Seq,
			"type", string(e.Type),
			"error", err,
		)
		if r.err == nil {
			r.err = err
		}
	}
}

func (r *Recorder) record(e playback.Event) error {
	if !r.known[e.Session] || e.Type == playback.EventStarted {
		sess := Session{ID: e.Session, StartedAt: e.At}
		if e.Type == playback.EventStarted {
			sess.ContentHash, _ = e.Detail["content_hash"].(string)
			sess.Title, _ = e.Detail["title"].(string)
			sess.Chapters, _ = e.Detail["chapters"].(int)
		}
		if err := r.store.WriteSession(r.ctx, sess); err != nil {
			return err
		}
		r.known[e.Session] = true
	}

	detail, err := EncodeDetail(e.Detail)
	if err != nil {
		return err
	}
	err = r.store.WriteEvent(r.ctx, Record{
		SessionID: e.Session,
		Seq:       e.Seq,
		At:        e.At,
		Type:      string(e.Type),
		Instance:  e.Instance,
		Chapter:   e.Chapter,
		Step:      stepName(e.Step),
		Detail:    detail,
	})
	if err != nil {
		return err
	}
	r.written++
	return nil
}

// Written returns how many events were stored.
func (r *Recorder) Written() int {
	return r.written
}

// Err returns the first write error, if any.
func (r *Recorder) Err() error {
	return r.err
}

func stepName(k chapter.StepKind) string {
	if k == 0 {
		return ""
	}
	return k.String()
}
