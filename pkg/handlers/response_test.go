package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lumara-health/labelling-engine/pkg/apperrors"
	"github.com/lumara-health/labelling-engine/pkg/models"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteJSON(rec, http.StatusOK, ApiResponse{Success: true, Data: "x"}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp ApiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "x", resp.Data)
}

func TestServiceError_Mapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"forbidden", apperrors.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"validation", models.ValidationErrors{{Field: "text", Message: "too short"}}, http.StatusBadRequest, "validation_error"},
		{"already labelled", apperrors.ErrAlreadyLabelled, http.StatusConflict, "already_labelled"},
		{"already superseded", apperrors.ErrAlreadySuperseded, http.StatusConflict, "already_superseded"},
		{"conflict", apperrors.ErrConflict, http.StatusConflict, "conflict"},
		{"not found", apperrors.ErrNotFound, http.StatusNotFound, "not_found"},
		{"not configured", apperrors.ErrNotConfigured, http.StatusServiceUnavailable, "not_configured"},
		{"wrapped sentinel", fmt.Errorf("case lookup: %w", apperrors.ErrNotFound), http.StatusNotFound, "not_found"},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError, "case_fetch_failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			ServiceError(rec, zap.NewNop(), tt.err, "case_fetch_failed")

			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp ApiResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantCode, resp.Error)
		})
	}
}

func TestServiceError_InternalHidesDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	ServiceError(rec, zap.NewNop(), errors.New("pq: relation does not exist"), "list_failed")

	var resp ApiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	// The underlying error never reaches the client.
	assert.Equal(t, "Internal server error", resp.Message)
	assert.NotContains(t, rec.Body.String(), "relation")
}

func TestValidationErrorResponse_Fields(t *testing.T) {
	rec := httptest.NewRecorder()
	verrs := models.ValidationErrors{
		{Field: "text", Message: "too short"},
		{Field: "language", Message: "bad code"},
	}
	require.NoError(t, ValidationErrorResponse(rec, verrs))

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ApiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Fields, 2)
	assert.Equal(t, "text", resp.Fields[0].Field)
}
