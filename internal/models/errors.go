package models

import "errors"

// Sentinel errors shared across the storage and engine layers. Callers
// classify with errors.Is and map to transport-level responses at the
// API boundary.
var (
	// ErrNotFound reports that a referenced record does not exist for
	// the requesting user.
	ErrNotFound = errors.New("not found")

	// ErrValidation reports malformed or missing caller input.
	ErrValidation = errors.New("validation failed")
)
