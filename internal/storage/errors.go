package storage

import "errors"

// Sentinel errors shared by every store implementation. Drivers wrap
// their native failures into these so callers can match with errors.Is
// regardless of backend.
var (
	// ErrNotFound reports that no record matches the requested key.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey reports an insert colliding with an existing key.
	// Run artifacts are written once and never updated in place.
	ErrDuplicateKey = errors.New("duplicate key: records are write-once")

	// ErrInvalidInput reports a request the store refused to execute.
	ErrInvalidInput = errors.New("invalid input")
)
