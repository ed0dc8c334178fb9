package errors

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradepulse/internal/dataset"
	"tradepulse/internal/fetch"
)

func testHandler() *ErrorHandler {
	return NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), false)
}

func TestErrorToProblem(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{
			name:       "parse error maps to 400",
			err:        &dataset.ParseError{Line: 7, Err: errors.New("wrong number of fields")},
			wantStatus: http.StatusBadRequest,
			wantType:   TypeParse,
		},
		{
			name:       "schema error maps to 422",
			err:        &dataset.SchemaError{Missing: []string{"Tons"}},
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeSchema,
		},
		{
			name:       "periodless schema error maps to 422",
			err:        &dataset.SchemaError{Periodless: true},
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeSchema,
		},
		{
			name:       "network error maps to 502",
			err:        &fetch.NetworkError{URL: "https://example.com/data.csv", Attempts: 2, Err: errors.New("connection refused")},
			wantStatus: http.StatusBadGateway,
			wantType:   TypeUpstreamFetch,
		},
		{
			name:       "dataset not loaded maps to 409",
			err:        ErrDatasetNotLoaded,
			wantStatus: http.StatusConflict,
			wantType:   TypeDatasetNotLoaded,
		},
		{
			name:       "unauthorized maps to 401",
			err:        ErrUnauthorized,
			wantStatus: http.StatusUnauthorized,
			wantType:   TypeUnauthorized,
		},
		{
			name:       "context cancellation maps to 504",
			err:        context.Canceled,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
		},
		{
			name:       "unknown error maps to 500",
			err:        errors.New("something broke"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
		},
	}

	h := testHandler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/pipeline", nil)
			problem := h.ErrorToProblem(tt.err, r)

			assert.Equal(t, tt.wantStatus, problem.Status)
			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, "/api/pipeline", problem.Instance)
		})
	}
}

func TestHandleError_RendersProblemJSON(t *testing.T) {
	h := testHandler()

	r := httptest.NewRequest(http.MethodPost, "/api/dataset", nil)
	w := httptest.NewRecorder()

	h.HandleError(w, r, &dataset.SchemaError{Missing: []string{"Year", "Month"}})

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, TypeSchema, body["type"])
	assert.Equal(t, "SCHEMA_ERROR", body["error_code"])
	assert.Contains(t, body, "missing_columns")
}

func TestHandleError_NilErrorWritesNothing(t *testing.T) {
	h := testHandler()

	r := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()

	h.HandleError(w, r, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestProblemDetails_MarshalIncludesExtensions(t *testing.T) {
	problem := NewProblemDetails(http.StatusBadRequest, TypeValidation, "Validation Failed", "bad window", "/api/pipeline").
		WithExtension("error_code", "VALIDATION_FAILED")

	raw, err := json.Marshal(problem)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "VALIDATION_FAILED", body["error_code"])
	assert.Equal(t, float64(http.StatusBadRequest), body["status"])
	assert.Equal(t, "bad window", body["detail"])
}

func TestNotFoundHandler(t *testing.T) {
	h := testHandler()

	r := httptest.NewRequest(http.MethodGet, "/api/missing", nil)
	w := httptest.NewRecorder()
	h.NotFound(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), TypeNotFound)
}
