// Package harness runs scripted playback scenarios against the real engine.
//
// A scenario names a book, drives the engine with a list of actions on
// virtual time, and checks the recorded trace and the final playback state.
// Every run uses a fresh in-memory trace store, a fixed loop start time, a
// fixed seed and sequential ids, so the same scenario always produces the
// same trace.
//
// # Scenario Format
//
//	name: quiz_reveal
//	description: "Wrong answer reveals both answers"
//	book: books/quiz.yaml        # relative to the scenario file
//	seed: 7
//	auto_advance: false
//	fail_images: [image/b.jpg]
//	steps:
//	  - do: start
//	  - do: wait
//	    duration: 1.2s
//	  - do: advance
//	    expect: allowed
//	  - do: answer
//	    key: a
//	assertions:
//	  - type: trace_contains
//	    event: answer_revealed
//	    detail: { chosen: a, correct: b }
//	  - type: final_state
//	    expect: { phase: chapter, step: Question }
//
// # Actions
//
//   - start, restart: begin a session; expect "ok" or an error code
//   - wait: advance virtual time by duration
//   - advance: request the next step; expect "allowed" or a gate reason
//   - answer, collect, flip, next, prev, swipe, revealed: expect "accepted" or "rejected"
//   - goto: jump to chapter; expect "ok" or an error code
//   - play: play to the ending, answering and winning games along the way
//
// # Assertion Types
//
//   - trace_contains: an event of the type with a matching detail subset
//   - trace_order: event types appear in the given order
//   - trace_count: an event type appears exactly N times
//   - final_state: subset match on phase, chapter, step, step_index,
//     selected_answer and can_advance
package harness
