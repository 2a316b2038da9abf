package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/keepsake/internal/store"
)

var traceEpoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// seedTraceDB records two sessions: s1 plays to the ending, s2 fails.
func seedTraceDB(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "trace.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	write := func(sessionID string, seq int64, offset time.Duration, typ, step string, detail map[string]any) {
		raw, err := store.EncodeDetail(detail)
		require.NoError(t, err)
		require.NoError(t, st.WriteEvent(ctx, store.Record{
			SessionID: sessionID,
			Seq:       seq,
			At:        traceEpoch.Add(offset),
			Type:      typ,
			Instance:  "chapter-instance-0001",
			Step:      step,
			Detail:    raw,
		}))
	}

	require.NoError(t, st.WriteSession(ctx, store.Session{
		ID: "s1", ContentHash: noteBookHash, Title: "Golden", Chapters: 1, StartedAt: traceEpoch,
	}))
	write("s1", 1, 0, "started", "", map[string]any{"chapters": 1, "title": "Golden"})
	write("s1", 2, 0, "step", "Title", map[string]any{"index": 0, "name": "Title", "of": 3})
	write("s1", 3, 0, "not_yet", "Title", map[string]any{"reason": "dwell"})
	write("s1", 4, 1200*time.Millisecond, "step", "Note", map[string]any{"index": 1, "name": "Note", "of": 3})
	write("s1", 5, 4*time.Second, "ending", "", map[string]any{"collage": []string{"a.jpg"}})

	require.NoError(t, st.WriteSession(ctx, store.Session{ID: "s2", StartedAt: traceEpoch.Add(time.Hour)}))
	write("s2", 1, time.Hour, "failed", "", map[string]any{"error": "NO_CHAPTERS: no chapters to play"})

	return dbPath
}

func runTraceCmd(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestTraceMissingDatabase(t *testing.T) {
	_, err := runTraceCmd(t, &RootOptions{Format: "text"})
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no database given")
}

func TestTraceNonExistentDatabase(t *testing.T) {
	_, err := runTraceCmd(t, &RootOptions{Format: "text", Database: "/nonexistent/path/test.db"})
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to open database")
}

func TestTraceEmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := runTraceCmd(t, &RootOptions{Format: "text", Database: dbPath})
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions recorded.")
}

func TestTraceLatestSession(t *testing.T) {
	dbPath := seedTraceDB(t)

	out, err := runTraceCmd(t, &RootOptions{Format: "text", Database: dbPath})
	require.NoError(t, err)
	assert.Contains(t, out, "Session: s2")
	assert.Contains(t, out, "Outcome: failed")
	assert.Contains(t, out, "error=NO_CHAPTERS: no chapters to play")
}

func TestTraceSessionTimeline(t *testing.T) {
	dbPath := seedTraceDB(t)

	out, err := runTraceCmd(t, &RootOptions{Format: "text", Database: dbPath}, "--session", "s1")
	require.NoError(t, err)
	assert.Contains(t, out, "Book: Golden (1 chapters)")
	assert.Contains(t, out, "Outcome: ending")
	assert.Contains(t, out, "[3] +0.000s not_yet")
	assert.Contains(t, out, "{reason=dwell}")
	assert.Contains(t, out, "[4] +1.200s step")
	assert.Contains(t, out, "{collage=[a.jpg]}")
	assert.Contains(t, out, "Total Events: 5")
}

func TestTraceTypeFilter(t *testing.T) {
	dbPath := seedTraceDB(t)

	out, err := runTraceCmd(t, &RootOptions{Format: "json", Database: dbPath}, "--session", "s1", "--type", "step")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Timeline, 2)
	assert.Equal(t, "Title", resp.Data.Timeline[0].Step)
	assert.Equal(t, int64(1200), resp.Data.Timeline[1].ElapsedMS)
	assert.Equal(t, 5, resp.Data.Stats.TotalEvents, "stats cover the whole session")
	assert.Equal(t, 2, resp.Data.Stats.ByType["step"])
	assert.Equal(t, "ending", resp.Data.Stats.Outcome)
	assert.Equal(t, noteBookHash, resp.Data.ContentHash)
}

func TestTraceUnknownSession(t *testing.T) {
	dbPath := seedTraceDB(t)

	out, err := runTraceCmd(t, &RootOptions{Format: "text", Database: dbPath}, "--session", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E_NOT_FOUND]")
}

func TestTraceListSessions(t *testing.T) {
	dbPath := seedTraceDB(t)

	out, err := runTraceCmd(t, &RootOptions{Format: "text", Database: dbPath}, "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "s1  Golden  1 chapter(s)")
	assert.Contains(t, out, "s2  (untitled)")

	out, err = runTraceCmd(t, &RootOptions{Format: "json", Database: dbPath}, "--list")
	require.NoError(t, err)
	var resp struct {
		Data []store.Session `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "s1", resp.Data[0].ID)
	assert.Equal(t, "s2", resp.Data[1].ID)
}

func TestFormatArgs(t *testing.T) {
	args := map[string]any{
		"z":      1,
		"a":      "x",
		"nested": map[string]any{"k": []any{"p", "q"}},
	}
	assert.Equal(t, "{a=x, nested={k=[p, q]}, z=1}", formatArgs(args))
	assert.Equal(t, "", formatArgs(nil))
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "short", truncateID("short"))
	assert.Equal(t, "01902f3a...9b7c1d2e", truncateID("01902f3a-0000-7000-8000-00009b7c1d2e"))
}
