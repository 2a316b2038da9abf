// Package store persists playback traces in SQLite.
//
// The log is append-only:
//   - sessions: one row per engine session (content hash, title, size)
//   - events: every engine transition, keyed by (session_id, seq)
//
// Ordering always uses the engine's logical seq. Timestamps are recorded for
// display only, so two runs of the same scenario produce identical reads.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Event details are stored as canonical JSON produced by
// chapter.MarshalCanonical.
package store
