package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/keepsake/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Session string
	Types   []string // optional - filter to these event types
	List    bool
}

// TraceEvent is one recorded engine event in the timeline.
type TraceEvent struct {
	Seq       int64          `json:"seq"`
	ElapsedMS int64          `json:"elapsed_ms"`
	Type      string         `json:"type"`
	Instance  string         `json:"instance,omitempty"`
	Chapter   int            `json:"chapter"`
	Step      string         `json:"step,omitempty"`
	Detail    map[string]any `json:"detail,omitempty"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Session     string       `json:"session"`
	Title       string       `json:"title,omitempty"`
	ContentHash string       `json:"content_hash,omitempty"`
	Chapters    int          `json:"chapters"`
	StartedAt   time.Time    `json:"started_at"`
	Timeline    []TraceEvent `json:"timeline"`
	Stats       TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEvents int            `json:"total_events"`
	ByType      map[string]int `json:"by_type"`
	Outcome     string         `json:"outcome"` // ending, failed, or in progress
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show a recorded play session",
		Long: `Show the engine events recorded by "keepsake play --db".

Without --session the most recent session is shown.

The output includes:
- Timeline: every recorded transition with its elapsed time
- Stats: event counts per type and how the session ended

Examples:
  keepsake trace --db ./keepsake.db
  keepsake trace --db ./keepsake.db --list
  keepsake trace --db ./keepsake.db --session 0190... --type step --type game
  keepsake trace --db ./keepsake.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Session, "session", "", "session id (default: latest)")
	cmd.Flags().StringSliceVar(&opts.Types, "type", nil, "filter to event types (repeatable)")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list recorded sessions")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	dbPath := opts.config().DB
	if dbPath == "" {
		return NewExitError(ExitCommandError, "no database given: pass --db or set KEEPSAKE_DB")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	if opts.List {
		sessions, err := st.Sessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
		if formatter.JSON() {
			return formatter.Success(sessions)
		}
		outputSessionsText(cmd.OutOrStdout(), sessions)
		return nil
	}

	var sess store.Session
	if opts.Session != "" {
		sess, err = st.ReadSession(ctx, opts.Session)
	} else {
		sess, err = st.LatestSession(ctx)
	}
	if errors.Is(err, store.ErrSessionNotFound) {
		if opts.Session == "" {
			if formatter.JSON() {
				return formatter.Success(TraceResult{Timeline: []TraceEvent{}, Stats: TraceStats{ByType: map[string]int{}}})
			}
			fmt.Fprintln(cmd.OutOrStdout(), "No sessions recorded.")
			return nil
		}
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("session not found: %s", opts.Session), nil)
		return WrapExitError(ExitCommandError, "session not found", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}

	records, err := st.ReadEvents(ctx, sess.ID, opts.Types...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}
	all := records
	if len(opts.Types) > 0 {
		if all, err = st.ReadEvents(ctx, sess.ID); err != nil {
			return WrapExitError(ExitCommandError, "failed to read events", err)
		}
	}

	result, err := buildTraceResult(sess, records, all)
	if err != nil {
		return WrapExitError(ExitFailure, "corrupt trace", err)
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	outputTraceText(cmd.OutOrStdout(), result, opts.Verbose)
	return nil
}

// buildTraceResult converts store records to the timeline. Stats always
// cover the whole session, even when the timeline is filtered.
func buildTraceResult(sess store.Session, records, all []store.Record) (TraceResult, error) {
	result := TraceResult{
		Session:     sess.ID,
		Title:       sess.Title,
		ContentHash: sess.ContentHash,
		Chapters:    sess.Chapters,
		StartedAt:   sess.StartedAt,
		Timeline:    make([]TraceEvent, 0, len(records)),
		Stats:       TraceStats{ByType: make(map[string]int), Outcome: "in progress"},
	}

	for _, rec := range records {
		ev := TraceEvent{
			Seq:       rec.Seq,
			ElapsedMS: rec.At.Sub(sess.StartedAt).Milliseconds(),
			Type:      rec.Type,
			Instance:  rec.Instance,
			Chapter:   rec.Chapter,
			Step:      rec.Step,
		}
		if len(rec.Detail) > 0 {
			if err := json.Unmarshal(rec.Detail, &ev.Detail); err != nil {
				return TraceResult{}, fmt.Errorf("event %d detail: %w", rec.Seq, err)
			}
			if len(ev.Detail) == 0 {
				ev.Detail = nil
			}
		}
		result.Timeline = append(result.Timeline, ev)
	}

	for _, rec := range all {
		result.Stats.TotalEvents++
		result.Stats.ByType[rec.Type]++
	}
	if n := len(all); n > 0 {
		switch last := all[n-1].Type; last {
		case "ending", "failed":
			result.Stats.Outcome = last
		}
	}
	return result, nil
}

func outputSessionsText(w io.Writer, sessions []store.Session) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions recorded.")
		return
	}
	for _, s := range sessions {
		title := s.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(w, "%s  %s  %s  %d chapter(s)\n",
			s.StartedAt.Local().Format(time.DateTime), s.ID, title, s.Chapters)
	}
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) {
	fmt.Fprintf(w, "Session: %s\n", result.Session)
	if result.Title != "" {
		fmt.Fprintf(w, "Book: %s (%d chapters)\n", result.Title, result.Chapters)
	}
	if verbose && result.ContentHash != "" {
		fmt.Fprintf(w, "Content: %s\n", result.ContentHash)
	}
	fmt.Fprintf(w, "Outcome: %s\n", result.Stats.Outcome)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no events)")
	}
	for _, ev := range result.Timeline {
		step := ev.Step
		if step == "" {
			step = "-"
		}
		fmt.Fprintf(w, "  [%d] +%s %-15s ch=%d %-8s %s\n",
			ev.Seq, formatElapsed(ev.ElapsedMS), ev.Type, ev.Chapter, step, formatArgs(ev.Detail))
		if verbose && ev.Instance != "" {
			fmt.Fprintf(w, "       instance: %s\n", truncateID(ev.Instance))
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Events: %d\n", result.Stats.TotalEvents)
	types := make([]string, 0, len(result.Stats.ByType))
	for t := range result.Stats.ByType {
		types = append(types, t)
	}
	slices.Sort(types)
	for _, t := range types {
		fmt.Fprintf(w, "  %-15s %d\n", t+":", result.Stats.ByType[t])
	}
}

func formatElapsed(ms int64) string {
	return fmt.Sprintf("%d.%03ds", ms/1000, ms%1000)
}

// formatArgs formats a map of args for display.
// Uses sorted keys to ensure deterministic output.
func formatArgs(args map[string]any) string {
	if len(args) == 0 {
		return ""
	}

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, formatValue(args[k])))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// formatValue formats a single value for display, handling nested structures deterministically.
func formatValue(v any) string {
	switch val := v.(type) {
	case map[string]any:
		return formatArgs(val)
	case []any:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = formatValue(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case string:
		return val
	default:
		return fmt.Sprintf("%v", v)
	}
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
