// Package server wires HTTP handlers into a chi router for the GoChat
// application via routing helpers.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures and returns a router with all application routes.
// The metrics endpoint is only routed when gatherer is non-nil.
func SetupRoutes(h *Handlers, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)

	r.Get("/", HealthHandler)
	r.Get("/health", h.Health)
	r.Get("/ws", h.WebSocket)
	r.Get("/test", TestPageHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/presence", h.Presence)

		if h.messages != nil {
			r.Route("/messages", func(r chi.Router) {
				r.Get("/", h.ListMessages)
				r.Post("/", h.CreateMessage)
				r.Get("/{id}", h.GetMessage)
				r.Patch("/{id}", h.UpdateMessage)
				r.Delete("/{id}", h.DeleteMessage)
				r.Post("/{id}/like", h.LikeMessage)
				r.Delete("/{id}/like", h.UnlikeMessage)
			})
		}
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return r
}
