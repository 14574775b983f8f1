package auth

import "errors"

// ErrTokenInvalid indicates a token that failed signature, expiry, or
// claims validation.
var ErrTokenInvalid = errors.New("token invalid")
