// Package session serialises operator commands per show.
//
// Every mutation of a show's state flows through its Session: an actor-style
// worker that applies commands strictly in arrival order against the show
// package's Sequencer. Concurrent operators submitting against the same show
// are therefore linearised; the second of two simultaneous Go commands for
// the same cue observes the state the first one left behind.
//
// Submit blocks until a command has been applied and durably persisted, so a
// successful return means the change survives a crash. Each successful
// command produces exactly one Event, fanned out to registered Emitters
// (WebSocket hub, MQTT, telemetry) and to per-connection subscribers.
//
// The Registry owns the sessions. Sessions hydrate lazily from the
// repository on first access and are evicted a grace period after their show
// completes; a command against an evicted show just rehydrates it.
package session
