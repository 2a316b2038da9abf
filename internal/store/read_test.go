package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSession(t *testing.T, s *Store, id string, started time.Time, types ...string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.WriteSession(ctx, Session{ID: id, StartedAt: started}))
	// Written out of order; reads must sort by seq.
	for i := len(types) - 1; i >= 0; i-- {
		require.NoError(t, s.WriteEvent(ctx, Record{
			SessionID: id,
			Seq:       int64(i + 1),
			At:        started.Add(time.Duration(i) * time.Second),
			Type:      types[i],
		}))
	}
}

func TestReadEvents_OrderedBySeq(t *testing.T) {
	s := createTestStore(t)
	seedSession(t, s, "s1", time.Unix(100, 0), "started", "step", "not_yet", "step")

	got, err := s.ReadEvents(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, got, 4)
	for i, rec := range got {
		assert.Equal(t, int64(i+1), rec.Seq)
	}
	assert.Equal(t, "started", got[0].Type)
	assert.Equal(t, time.Unix(101, 0).UTC(), got[1].At)
}

func TestReadEvents_FilterByType(t *testing.T) {
	s := createTestStore(t)
	seedSession(t, s, "s1", time.Unix(100, 0), "started", "step", "not_yet", "step")

	got, err := s.ReadEvents(context.Background(), "s1", "step", "not_yet")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{2, 3, 4}, []int64{got[0].Seq, got[1].Seq, got[2].Seq})
}

func TestReadEvents_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)

	got, err := s.ReadEvents(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSessions_OldestFirst(t *testing.T) {
	s := createTestStore(t)
	seedSession(t, s, "b", time.Unix(200, 0))
	seedSession(t, s, "a", time.Unix(100, 0))
	seedSession(t, s, "c", time.Unix(200, 0))

	got, err := s.Sessions(context.Background())
	require.NoError(t, err)
	ids := make([]string, len(got))
	for i, sess := range got {
		ids[i] = sess.ID
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	latest, err := s.LatestSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "c", latest.ID)
}

func TestReadSession_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadSession(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = s.LatestSession(context.Background())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestWriteSession_CompletesHeader(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteSession(ctx, Session{ID: "s1", StartedAt: time.Unix(5, 0)}))
	require.NoError(t, s.WriteSession(ctx, Session{
		ID:          "s1",
		ContentHash: "sha256:abc",
		Title:       "Our Year",
		Chapters:    12,
		StartedAt:   time.Unix(9, 0),
	}))

	got, err := s.ReadSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "sha256:abc", got.ContentHash)
	assert.Equal(t, "Our Year", got.Title)
	assert.Equal(t, 12, got.Chapters)
	assert.Equal(t, time.Unix(5, 0).UTC(), got.StartedAt, "start time is fixed by the first write")

	n, err := s.CountEvents(ctx, "s1")
	require.NoError(t, err)
	assert.Zero(t, n)
}
