package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/keepsake/internal/chapter"
	"github.com/roach88/keepsake/internal/playback"
)

func TestRecorder_WritesSessionAndEvents(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	rec := NewRecorder(ctx, s)
	at := time.Unix(1000, 0)

	rec.OnEvent(playback.Event{
		Seq: 1, At: at, Type: playback.EventStarted, Session: "s1",
		Detail: map[string]any{"chapters": 2, "content_hash": "sha256:ff", "title": "Us"},
	})
	rec.OnEvent(playback.Event{
		Seq: 2, At: at, Type: playback.EventStep, Session: "s1",
		Instance: "inst-1", Chapter: 0, Step: chapter.StepTitle,
		Detail: map[string]any{"step_index": 0, "auto": false},
	})
	rec.OnEvent(playback.Event{
		Seq: 3, At: at.Add(time.Second), Type: playback.EventNotYet, Session: "s1",
		Instance: "inst-1", Step: chapter.StepQuote,
		Detail: map[string]any{"reason": "dwell"},
	})

	require.NoError(t, rec.Err())
	assert.Equal(t, 3, rec.Written())

	sess, err := s.ReadSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "sha256:ff", sess.ContentHash)
	assert.Equal(t, 2, sess.Chapters)
	assert.Equal(t, "Us", sess.Title)

	events, err := s.ReadEvents(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "", events[0].Step)
	assert.Equal(t, "Title", events[1].Step)
	assert.Equal(t, "inst-1", events[1].Instance)
	assert.JSONEq(t, `{"auto":false,"step_index":0}`, string(events[1].Detail))
	assert.Equal(t, `{"reason":"dwell"}`, string(events[2].Detail))
}

func TestRecorder_FailedBeforeStart(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	rec := NewRecorder(ctx, s)

	rec.OnEvent(playback.Event{
		Seq: 1, At: time.Unix(1, 0), Type: playback.EventFailed, Session: "s9",
		Detail: map[string]any{"error": "NO_CHAPTERS: no chapters"},
	})

	require.NoError(t, rec.Err())
	sess, err := s.ReadSession(ctx, "s9")
	require.NoError(t, err)
	assert.Empty(t, sess.ContentHash)
	n, err := s.CountEvents(ctx, "s9")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRecorder_KeepsFirstError(t *testing.T) {
	s := createTestStore(t)
	rec := NewRecorder(context.Background(), s)

	rec.OnEvent(playback.Event{
		Seq: 1, At: time.Unix(1, 0), Type: playback.EventStep, Session: "s1",
		Detail: map[string]any{"bad": 1.5},
	})

	require.Error(t, rec.Err())
	assert.Zero(t, rec.Written())
}

func TestRecorder_IgnoresSessionlessEvents(t *testing.T) {
	s := createTestStore(t)
	rec := NewRecorder(context.Background(), s)

	rec.OnEvent(playback.Event{Seq: 1, Type: playback.EventFailed})

	assert.Zero(t, rec.Written())
	assert.NoError(t, rec.Err())
}
