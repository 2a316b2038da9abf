// Package loop implements the single-goroutine cooperative event loop that all
// playback logic runs on.
//
// ARCHITECTURE:
//
// Single-Writer Loop:
// Every engine, gate, mini-game and carousel mutation happens inside a
// callback executed by the loop. Nothing blocks inside a callback; waiting is
// expressed as a scheduled continuation (After) or as an event posted back
// from another goroutine (Post).
//
// Two drivers share the same core:
//   - Run(ctx): real time. Sleeps until the next timer deadline or the next
//     posted event.
//   - Advance(d): virtual time. Deterministically runs every timer due within
//     d, in order. Used by tests and the scenario harness.
//
// Ordering:
// Timers fire in (deadline, seq) order, where seq comes from a monotonic
// logical Clock. Two timers with the same deadline fire in creation order.
// Posted events run before any timer at the same instant.
//
// Scopes:
// Every timer is registered under a Scope, a slash-separated path such as
// "session/3/chapter/9/step/2". CancelScope cancels the scope and all of its
// descendants, so discarding a chapter instance cancels every continuation
// that instance ever scheduled.
package loop
