package store

import "errors"

// Domain errors for the store package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, store.ErrNotFound) {
//	    // seed the default value
//	}
var (
	// ErrNotFound is returned when a key has no persisted value.
	ErrNotFound = errors.New("store: key not found")

	// ErrBusy is returned when the store gate could not be acquired within
	// the configured wait. The operation did not run; callers should log
	// and continue with in-memory state.
	ErrBusy = errors.New("store: busy")

	// ErrClosed is returned when an operation is attempted after Close.
	ErrClosed = errors.New("store: closed")
)
