package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"

	"github.com/agentstation/specimap/pkg/logging"
)

func TestLogger(t *testing.T) {
	tl := logging.NewTestLogger(t)

	var fromCtx bool
	h := chimw.RequestID(Logger(tl.Logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logging.FromContext(r.Context()).Info().Msg("inside handler")
		fromCtx = true
		w.WriteHeader(http.StatusTeapot)
	})))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/specimens/42", nil))

	assert.True(t, fromCtx)
	assert.Equal(t, http.StatusTeapot, w.Code)
	tl.AssertContains(t, `"status":418`)
	tl.AssertContains(t, `"path":"/api/v1/specimens/42"`)
	tl.AssertContains(t, `"request_id":`)
	assert.Equal(t, 2, tl.Count(), "handler log line and request log line")
}

func TestLoggerDefaultsStatusOK(t *testing.T) {
	tl := logging.NewTestLogger(t)
	h := Logger(tl.Logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	tl.AssertContains(t, `"status":200`)
}

func TestRecovery(t *testing.T) {
	tl := logging.NewTestLogger(t)
	h := Recovery(tl.Logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/specimens", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
	tl.AssertContains(t, "Panic recovered")
}
