// Package playback implements the chapter playback engine.
//
// The engine owns PlaybackState and composes the step sequence builder, the
// timing gate, the mini-game controllers and the gallery carousel. It runs
// entirely on a loop.Scheduler: every public method must be called from the
// loop goroutine (input sources Post to the loop).
//
// Lifecycle:
//
//	Intro --Start--> Chapter(i, step) --Advance...--> Ending
//	  |                                                  |
//	  +--(no chapters)--> Failed <------- Restart -------+
//
// Each chapter load mints a chapter-instance id that doubles as the timer
// scope for everything created for that chapter. Loading another chapter
// cancels the scope, and every callback compares the instance id it was
// created under with the live one, so late timers and load completions of a
// discarded chapter are ignored.
package playback
