package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/flemzord/coffee/internal/store"
)

// Client errors. Network failures and 5xx responses also match
// store.ErrStoreUnavailable.
var (
	ErrRequestFailed = errors.New("backend: request failed")
	ErrUnauthorized  = errors.New("backend: unauthorized")
)

// mapHTTPError maps a non-2xx response to a sentinel error. Returns nil
// for 2xx status codes.
func mapHTTPError(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var env Response
	msg := string(body)
	if json.Unmarshal(body, &env) == nil && env.Message != "" {
		msg = env.Message
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
	case statusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %w: %s", ErrRequestFailed, store.ErrNotFound, msg)
	case statusCode >= 500:
		return fmt.Errorf("%w: %w: HTTP %d: %s", ErrRequestFailed, store.ErrStoreUnavailable, statusCode, msg)
	default:
		return fmt.Errorf("%w: HTTP %d: %s", ErrRequestFailed, statusCode, msg)
	}
}

// mapConnectionError maps network-level errors. Context errors pass
// through unchanged.
func mapConnectionError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w: %w", ErrRequestFailed, store.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%w: %w", ErrRequestFailed, err)
}
