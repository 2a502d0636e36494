package gateway

import (
	"net/http"
	"time"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status      string        `json:"status"` // "ok" or "degraded"
	Subscribers int           `json:"subscribers"`
	Uptime      int64  `json:"uptime_seconds"`
}

// handleHealth returns 503 when the store does not answer a ping.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:      "ok",
			Subscribers: g.hub.Subscribers(),
			Uptime:      int64(time.Since(g.startedAt).Seconds()),
		}

		if p, ok := g.store.(pinger); ok {
			if err := p.Ping(r.Context()); err != nil {
				g.logger.Warn("store ping failed", "error", err)
				resp.Status = "degraded"
			}
		}

		status := http.StatusOK
		if resp.Status == "degraded" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	}
}
