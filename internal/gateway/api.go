package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/flemzord/coffee/internal/backend"
	"github.com/flemzord/coffee/internal/store"
)

func (g *Gateway) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	var req backend.SendRequest
	if err := g.decodeBody(r, &req); err != nil {
		g.fail(w, r, err)
		return
	}

	m, err := g.store.CreateMessage(r.Context(), strings.TrimSpace(req.SenderID), strings.TrimSpace(req.ReceiverID), req.Content)
	if err != nil {
		g.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (g *Gateway) handleQueryMessages(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	q := store.MessageQuery{
		Involving: strings.TrimSpace(v.Get("involving")),
		Peer:      strings.TrimSpace(v.Get("peer")),
	}

	switch v.Get("order") {
	case "", "asc":
		q.Order = store.Asc
	case "desc":
		q.Order = store.Desc
	default:
		g.fail(w, r, fmt.Errorf("%w: order must be asc or desc", errBadRequest))
		return
	}

	limit, err := parseLimit(v.Get("limit"))
	if err != nil {
		g.fail(w, r, err)
		return
	}
	q.Limit = limit

	msgs, err := g.store.QueryMessages(r.Context(), q)
	if err != nil {
		g.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (g *Gateway) handleQueryProfiles(w http.ResponseWriter, r *http.Request) {
	ids := r.URL.Query()["id"]
	profiles, err := g.store.QueryProfiles(r.Context(), ids)
	if err != nil {
		g.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

// handleSyncUser reports "created" for a first sign-in and "exists" after.
func (g *Gateway) handleSyncUser(w http.ResponseWriter, r *http.Request) {
	var req backend.SyncRequest
	if err := g.decodeBody(r, &req); err != nil {
		g.fail(w, r, err)
		return
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		g.fail(w, r, fmt.Errorf("%w: user_id is required", errBadRequest))
		return
	}

	status := backend.StatusExists
	if _, err := g.store.GetProfile(r.Context(), userID); errors.Is(err, store.ErrNotFound) {
		status = backend.StatusCreated
	} else if err != nil {
		g.fail(w, r, err)
		return
	}

	p, err := g.store.SyncUser(r.Context(), userID, req.Email, req.Phone)
	if err != nil {
		g.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, backend.Response{Status: status, Profile: &p})
}

// parseLimit accepts an empty or non-negative integer limit.
func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: invalid limit %q", errBadRequest, raw)
	}
	return n, nil
}
