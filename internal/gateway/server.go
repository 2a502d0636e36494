package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Public: no auth required.
	r.Get("/health", g.handleHealth())
	r.Handle("/metrics", g.metricsHandler())

	r.Group(func(r chi.Router) {
		if g.config.Auth.IsConfigured() {
			r.Use(authMiddleware(g.config.Auth, g.audit))
		}

		// Push channel. Long-lived, so kept out of the request metrics.
		r.Get("/ws/messages", g.handleSubscribe)

		r.With(metricsMiddleware(g.metrics)).Route("/api", func(r chi.Router) {
			r.Post("/messages", g.handleCreateMessage)
			r.Get("/messages", g.handleQueryMessages)
			r.Get("/profiles", g.handleQueryProfiles)
			r.Post("/users/sync", g.handleSyncUser)

			r.Route("/tools", func(r chi.Router) {
				r.Post("/save_profile_section", g.handleSaveProfileSection)
				r.Get("/get_user_profile/{user_id}", g.handleGetUserProfile)
				r.Post("/trigger_matching/{user_id}", g.handleTriggerMatching)
				r.Get("/get_matches/{user_id}", g.handleGetMatches)
			})

			r.Post("/threads", g.handleSaveThread)
			r.Get("/threads/{user_id}", g.handleListThreads)
		})
	})

	return r
}

func (g *Gateway) metricsHandler() http.Handler {
	gatherer := g.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
