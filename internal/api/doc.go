// Package api implements the HTTP REST API and WebSocket server for ShowCall Core.
//
// This package provides:
//   - REST endpoints for shows, cues, and cue execution control
//   - WebSocket hub for real-time show event broadcasts
//   - JWT operator authentication with role-based command gating
//   - Middleware stack (request ID, logging, recovery, CORS)
//   - TLS support for production deployments
//
// # Architecture
//
// The API server sits between operator consoles (stage manager desk,
// department boards, crew monitors) and the session registry. Every mutating
// request is translated into a command and submitted to the owning show's
// session, which serialises it against the show state machine. The handler
// blocks until the command has been applied and persisted, so a 2xx response
// means the change is durable. Events flow back out through the WebSocket
// hub, which the session registry feeds as an emitter.
//
// Reads (cue sheet, live status, show log) bypass the command queue and
// query the repository directly; persisted state is always consistent with
// applied state.
//
// # Security
//
// Authentication uses signed JWT tokens carrying an operator role. Viewers
// get read access only, operators may fire cues, and stage managers control
// the show lifecycle and running order. WebSocket connections authenticate
// with the same token passed as a query parameter on upgrade.
package api
