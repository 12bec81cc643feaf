package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agentstation/specimap/internal/server/middleware"
	"github.com/agentstation/specimap/internal/server/response"
)

// setupRouter creates the HTTP handler with routes and middleware.
func (s *Server) setupRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Recovery(s.logger))
	r.Use(middleware.Logger(s.logger))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "Not found", r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.MethodNotAllowed(w, r.Method)
	})

	r.Get("/health", s.handlers.HandleHealth)

	if s.config.MetricsEnabled && s.registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))
	}

	r.Route(s.config.PathPrefix, func(r chi.Router) {
		r.Get("/health", s.handlers.HandleHealth)
		r.Get("/ready", s.handlers.HandleReady)
		r.Post("/specimens", s.handlers.HandleSubmit)
		r.Get("/specimens/{id}", s.handlers.HandleGetSpecimen)
		r.Get("/specimens/{id}/history", s.handlers.HandleHistory)
	})

	return r
}
