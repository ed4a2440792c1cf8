package store

import "errors"

var (
	ErrConflict = errors.New("conflict")
	ErrNotFound = errors.New("not found")
	// ErrStale means the row changed since the caller read it.
	ErrStale = errors.New("stale version")
)
