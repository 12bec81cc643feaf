package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/specimap/pkg/errors"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestOK(t *testing.T) {
	w := httptest.NewRecorder()
	OK(w, map[string]string{"kind": "created"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	resp := decode(t, w)
	assert.Nil(t, resp.Error)
	assert.Equal(t, map[string]any{"kind": "created"}, resp.Data)
}

func TestErrorFromType(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", errors.NewNotFoundError("specimen", "42"), http.StatusNotFound, "NOT_FOUND"},
		{"validation", errors.NewValidationError("scientificName", "", "required"), http.StatusBadRequest, "BAD_REQUEST"},
		{"wrapped validation", fmt.Errorf("decode: %w", errors.NewValidationError("body", nil, "bad json")), http.StatusBadRequest, "BAD_REQUEST"},
		{"ambiguous", errors.NewAmbiguityError("natural key", 2, "duplicates"), http.StatusUnprocessableEntity, "UNPROCESSABLE_ENTITY"},
		{"soft repository", errors.NewRepositoryError("create", "", true, errors.New("busy")), http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ErrorFromType(w, tt.err)
			assert.Equal(t, tt.status, w.Code)
			resp := decode(t, w)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestInternalErrorHidesDetails(t *testing.T) {
	w := httptest.NewRecorder()
	InternalError(w, errors.New("db password is hunter2"))
	assert.NotContains(t, w.Body.String(), "hunter2")
}
