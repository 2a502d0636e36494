package store

import "errors"

// Sentinel errors for the store package.
var (
	// ErrStoreUnavailable indicates a transport, auth or storage failure.
	// Callers surface it for a user-visible retry.
	ErrStoreUnavailable = errors.New("store: unavailable")

	// ErrInvalidQuery indicates a malformed query, such as a missing participant.
	ErrInvalidQuery = errors.New("store: invalid query")

	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrInvalidMessage indicates a message without sender, receiver or content.
	ErrInvalidMessage = errors.New("store: invalid message")
)
