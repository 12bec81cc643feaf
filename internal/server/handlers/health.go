package handlers

import (
	"net/http"

	"github.com/agentstation/specimap/internal/server/response"
)

// HandleHealth handles GET /health (liveness probe).
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, map[string]any{
		"status":  "healthy",
		"service": "specimap",
		"version": "v1",
	})
}

// HandleReady handles GET /api/v1/ready. The repository must answer.
func (h *Handlers) HandleReady(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		response.ServiceUnavailable(w, "Repository not configured")
		return
	}
	count, err := h.store.Count(r.Context())
	if err != nil {
		h.logger.Warn().Err(err).Msg("Readiness check failed")
		response.ServiceUnavailable(w, "Repository not available")
		return
	}

	response.OK(w, map[string]any{
		"status":    "ready",
		"specimens": count,
	})
}
