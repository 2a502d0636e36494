package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/flemzord/coffee/internal/backend"
	"github.com/flemzord/coffee/internal/matching"
	"github.com/flemzord/coffee/internal/security"
	"github.com/flemzord/coffee/internal/store"
)

var errBadRequest = errors.New("bad request")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the error envelope understood by backend.Client.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, backend.Response{Status: backend.StatusError, Message: msg})
}

// fail maps err to a status code and writes it. Internal details of 5xx
// errors are logged, not returned.
func (g *Gateway) fail(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	switch {
	case errors.Is(err, security.ErrPayloadTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, errBadRequest),
		errors.Is(err, security.ErrJSONTooDeep),
		errors.Is(err, security.ErrInvalidJSON),
		errors.Is(err, store.ErrInvalidQuery),
		errors.Is(err, store.ErrInvalidMessage),
		errors.Is(err, matching.ErrMissingUser):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound), errors.Is(err, matching.ErrProfileNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	default:
		status = http.StatusInternalServerError
	}

	if status >= 500 {
		g.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, status, http.StatusText(status))
		return
	}
	writeError(w, status, err.Error())
}

// decodeBody reads a bounded JSON body into dst after checking its size
// and nesting depth.
func (g *Gateway) decodeBody(r *http.Request, dst any) error {
	limit := g.config.MaxBodySize
	data, err := io.ReadAll(io.LimitReader(r.Body, int64(limit)+1))
	if err != nil {
		return fmt.Errorf("%w: read body: %w", errBadRequest, err)
	}
	if err := security.ValidatePayload(data, limit, g.config.MaxJSONDepth); err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return nil
}
