package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these wrapped with context
// and services translate them into coded domain errors.
//
//   - ErrNotFound: no record under the given key
//   - ErrExpired: token is past its expiry instant
//   - ErrAlreadyUsed: token has already been consumed
//   - ErrMismatch: token is bound to a different action or request
//   - ErrInvalidState: record is in the wrong state for the operation
var (
	ErrNotFound     = errors.New("not found")
	ErrExpired      = errors.New("expired")
	ErrAlreadyUsed  = errors.New("already used")
	ErrMismatch     = errors.New("mismatch")
	ErrInvalidState = errors.New("invalid state")
)
