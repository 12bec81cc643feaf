package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agentstation/specimap/internal/archive"
	"github.com/agentstation/specimap/internal/server/response"
	"github.com/agentstation/specimap/pkg/errors"
	"github.com/agentstation/specimap/pkg/logging"
	"github.com/agentstation/specimap/pkg/reconcile"
)

// maxBody bounds a submitted record.
const maxBody = 1 << 20

// HandleSubmit handles POST /api/v1/specimens. The body is one record,
// either flat or as {"fields": ..., "raw": ...}. The response is the
// reconciliation outcome; rejections and skips are still 200 since the
// request itself succeeded.
func (h *Handlers) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	if h.processor == nil {
		response.ServiceUnavailable(w, "Record processing not configured")
		return
	}

	var obj map[string]any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&obj); err != nil {
		response.BadRequest(w, "Invalid record", err.Error())
		return
	}
	if len(obj) == 0 {
		response.BadRequest(w, "Invalid record", "record is empty")
		return
	}

	out, err := h.processor.Process(r.Context(), archive.RecordFrom(obj))
	if err != nil {
		logging.FromContext(r.Context()).Error().Err(err).Msg("Record failed")
		response.ErrorFromType(w, err)
		return
	}
	if out.Kind == reconcile.KindCreated {
		response.Created(w, out)
		return
	}
	response.OK(w, out)
}

// HandleGetSpecimen handles GET /api/v1/specimens/{id}.
func (h *Handlers) HandleGetSpecimen(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	content, found, err := h.store.Get(r.Context(), id)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	if !found {
		response.ErrorFromType(w, errors.NewNotFoundError("specimen", id))
		return
	}
	response.OK(w, content)
}

// HandleHistory handles GET /api/v1/specimens/{id}/history.
func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	versions, err := h.store.History(r.Context(), id)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	if len(versions) == 0 {
		response.ErrorFromType(w, errors.NewNotFoundError("specimen", id))
		return
	}
	response.OK(w, versions)
}
