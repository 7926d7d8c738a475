package domain

import "errors"

// Error taxonomy shared by the ledgers and the trim engine.
// Operations wrap these with context; callers match them with errors.Is.
var (
	// ErrInvalidInput - non-positive price or shares, shares above what remains, missing field
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidState - operation not allowed in the trade's current lifecycle state
	ErrInvalidState = errors.New("invalid state")
	// ErrNotFound - no record with the given id
	ErrNotFound = errors.New("not found")
)
