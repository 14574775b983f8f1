// Package auth provides operator identity for ShowCall Core.
//
// It implements a 3-tier role model (viewer → operator → stage_manager)
// carried in signed JWT access tokens. Tokens are validated by signature
// only; there is no server-side session store, so identity survives a core
// restart mid-show. The token's call sign becomes the actor recorded on
// every show log entry.
package auth
