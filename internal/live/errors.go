package live

import "errors"

// Sentinel errors for the live package.
var (
	// ErrEmptyDraft indicates a send of empty or whitespace-only text.
	ErrEmptyDraft = errors.New("live: empty draft")

	// ErrNoThread indicates an operation that needs an open thread.
	ErrNoThread = errors.New("live: no open thread")

	// ErrSendFailed indicates the store rejected a send or it timed out.
	ErrSendFailed = errors.New("live: send failed")

	// ErrSessionClosed indicates the session was torn down.
	ErrSessionClosed = errors.New("live: session closed")

	// ErrNotFailed indicates a retry or discard of an entry that is not failed.
	ErrNotFailed = errors.New("live: entry is not failed")

	errIncompleteMessage = errors.New("live: store returned an incomplete message")
)
