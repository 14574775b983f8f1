// Package show implements the run-of-show cue execution engine: the data
// model, state machine, and persistence for shows, cues, and their
// dependencies.
//
// # Model
//
// A Show is one live event instance. It exclusively owns an ordered list of
// Cues; ordering is a total order over each cue's unique sort_order. The
// show itself moves not_started -> running -> (hold <-> running) ->
// completed. Cues move pending -> standby -> executed, or to skipped.
//
// # Sequencer
//
// The Sequencer applies control commands (Go, Standby, Skip, Hold, Resume,
// Reorder, ...) against an in-memory snapshot, writing every change through
// the Repository before the snapshot advances. State that has not been
// durably persisted is never visible to subsequent commands, so a crash
// between apply and write cannot produce an inconsistent next-cue
// computation.
//
// The Sequencer is single-threaded by contract: the session package wraps
// it in a serialised command queue (one in-flight command per show), which
// removes the need for any locking here.
//
// # Dependencies
//
// A cue may depend on other cues; all dependencies must be executed before
// the cue is eligible for Go. Unknown, self-referencing, and cyclic edges
// are rejected at cue creation time. A skipped cue does not satisfy a
// dependency: dependents must be explicitly skipped or edited.
package show
