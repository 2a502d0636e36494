package gateway

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/flemzord/coffee/internal/backend"
	"github.com/flemzord/coffee/pkg/message"
)

// Agent tool endpoints. The user id always comes from the caller, which
// resolved it from the signed-in session.

func (g *Gateway) handleSaveProfileSection(w http.ResponseWriter, r *http.Request) {
	var req backend.SaveProfileRequest
	if err := g.decodeBody(r, &req); err != nil {
		g.fail(w, r, err)
		return
	}

	p, err := g.matcher.SaveProfileSection(r.Context(), req.UserID, req.Attributes)
	if err != nil {
		g.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, backend.Response{Status: backend.StatusSuccess, Profile: &p})
}

// handleGetUserProfile answers success with a null profile for users who
// have not finished onboarding.
func (g *Gateway) handleGetUserProfile(w http.ResponseWriter, r *http.Request) {
	p, err := g.matcher.GetUserProfile(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		g.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, backend.Response{Status: backend.StatusSuccess, Profile: p})
}

func (g *Gateway) handleTriggerMatching(w http.ResponseWriter, r *http.Request) {
	matches, err := g.matcher.TriggerMatching(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		g.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, backend.Response{Status: backend.StatusSuccess, Matches: matches})
}

// DefaultMatchLimit applies when get_matches is called without a limit.
const DefaultMatchLimit = 10

func (g *Gateway) handleGetMatches(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		g.fail(w, r, err)
		return
	}
	if !r.URL.Query().Has("limit") {
		limit = DefaultMatchLimit
	}

	matches, err := g.matcher.GetMatches(r.Context(), chi.URLParam(r, "user_id"), limit)
	if err != nil {
		g.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, backend.Response{Status: backend.StatusSuccess, Matches: matches})
}

func (g *Gateway) handleSaveThread(w http.ResponseWriter, r *http.Request) {
	var req backend.ThreadRequest
	if err := g.decodeBody(r, &req); err != nil {
		g.fail(w, r, err)
		return
	}

	err := g.store.SaveThread(r.Context(), message.AgentThread{
		ThreadID: strings.TrimSpace(req.ThreadID),
		UserID:   strings.TrimSpace(req.UserID),
		Title:    req.Title,
	})
	if err != nil {
		g.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, backend.Response{Status: backend.StatusSuccess})
}

func (g *Gateway) handleListThreads(w http.ResponseWriter, r *http.Request) {
	threads, err := g.store.ListThreads(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		g.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, threads)
}
