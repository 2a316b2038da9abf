package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/keepsake/internal/chapter"
)

// Session is the header row of one playback session.
type Session struct {
	ID          string    `json:"id"`
	ContentHash string    `json:"content_hash"`
	Title       string    `json:"title"`
	Chapters    int       `json:"chapters"`
	StartedAt   time.Time `json:"started_at"`
}

// Record is one stored engine event.
type Record struct {
	SessionID string
	Seq       int64
	At        time.Time
	Type      string
	Instance  string
	Chapter   int
	Step      string

	// Detail holds canonical JSON; "{}" when the event carried none.
	Detail json.RawMessage
}

// WriteSession inserts a session header. A second write for the same id
// fills in the content fields, which lets a header created by an early
// event be completed once the session's content is known.
func (s *Store) WriteSession(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, content_hash, title, chapters, started_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content_hash = excluded.content_hash,
			title = excluded.title,
			chapters = excluded.chapters
		WHERE excluded.content_hash != ''
	`,
		sess.ID,
		sess.ContentHash,
		sess.Title,
		sess.Chapters,
		sess.StartedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// WriteEvent appends an event. Uses ON CONFLICT DO NOTHING so replaying the
// same (session, seq) is a no-op.
//
// The session row must exist (foreign key constraint).
func (s *Store) WriteEvent(ctx context.Context, rec Record) error {
	detailJSON := string(rec.Detail)
	if detailJSON == "" {
		detailJSON = "{}"
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events
		(session_id, seq, at, type, instance, chapter, step, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		rec.SessionID,
		rec.Seq,
		rec.At.UnixMilli(),
		rec.Type,
		rec.Instance,
		rec.Chapter,
		rec.Step,
		detailJSON,
	)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// EncodeDetail renders an event detail map as canonical JSON.
func EncodeDetail(detail map[string]any) (json.RawMessage, error) {
	if len(detail) == 0 {
		return json.RawMessage("{}"), nil
	}
	b, err := chapter.MarshalCanonical(detail)
	if err != nil {
		return nil, fmt.Errorf("encode detail: %w", err)
	}
	return b, nil
}
