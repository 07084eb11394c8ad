package core

import "errors"

// Error taxonomy shared by the entity and the storage layer. Callers match
// with errors.Is; the wrapped message carries the detail (field name, path).
var (
	ErrInvalidAmount   = errors.New("amount must be greater than zero")
	ErrMissingField    = errors.New("missing required field")
	ErrMalformedRecord = errors.New("malformed record")
	ErrIO              = errors.New("storage i/o failure")
)
