// Package chapter defines the read-only content model for keepsake playback.
//
// A Chapter is one narrative unit supplied by the content repository. Chapters
// are immutable once loaded: the playback engine, the step builder and the
// mini-games only ever read them.
//
// The package also owns the closed enumerations that drive playback:
//   - StepKind: the seven step kinds a chapter sequence is built from
//   - MinigameKind: the authored mini-game name, resolved through a static
//     table with a defined fallback (see ResolveKind)
//
// Canonical JSON (canonical.go) and content hashing (hash.go) give chapters a
// stable identity for trace logs and golden snapshots.
package chapter
