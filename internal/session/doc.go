// Package session implements the quiz session state machine.
//
// A Machine owns one canonical game.Session and moves it through
//
//	setup -> playing -> debrief -> (reset) -> setup
//
// Transitions are synchronous with respect to in-memory state: when
// StartGame or SubmitRound returns, Session() already reflects the change.
// Every mutation builds a modified clone and swaps it in under the machine
// lock, so readers never observe a torn record.
//
// SIDE EFFECTS:
//
// Snapshot writes, queue enqueues and live progress pushes are dispatched
// to a single FIFO worker and never block the caller. Each effect captures
// a copy of the session at dispatch time and checks that the machine
// context is still alive before touching anything. Remote failures never
// stop local progress: durable writes go through the sync queue, live
// updates are best-effort.
//
// Thread-safety model:
//   - All exported methods are safe from any goroutine.
//   - Transitions serialize on the machine lock.
//   - Effects run one at a time on the worker goroutine.
package session
