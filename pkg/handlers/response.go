package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/lumara-health/labelling-engine/pkg/apperrors"
	"github.com/lumara-health/labelling-engine/pkg/models"
)

// ApiResponse is the uniform envelope for all JSON endpoints.
type ApiResponse struct {
	Success bool                     `json:"success"`
	Data    any                      `json:"data,omitempty"`
	Error   string                   `json:"error,omitempty"`
	Message string                   `json:"message,omitempty"`
	Fields  []models.ValidationError `json:"fields,omitempty"`
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(ApiResponse{
		Success: false,
		Error:   errorCode,
		Message: message,
	})
}

// ValidationErrorResponse writes a 400 with the field-level failures.
func ValidationErrorResponse(w http.ResponseWriter, verrs models.ValidationErrors) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	return json.NewEncoder(w).Encode(ApiResponse{
		Success: false,
		Error:   "validation_error",
		Message: verrs.Error(),
		Fields:  verrs,
	})
}

// ServiceError maps a service-layer error onto the HTTP surface. The checks
// run in a fixed order: forbidden, validation, state conflict, not found,
// capability missing, then everything else as an internal error with a
// generic message.
func ServiceError(w http.ResponseWriter, logger *zap.Logger, err error, errorCode string) {
	var verrs models.ValidationErrors

	var writeErr error
	switch {
	case errors.Is(err, apperrors.ErrForbidden):
		writeErr = ErrorResponse(w, http.StatusForbidden, "forbidden", "Not allowed to modify this resource")
	case errors.As(err, &verrs):
		writeErr = ValidationErrorResponse(w, verrs)
	case errors.Is(err, apperrors.ErrAlreadyLabelled):
		writeErr = ErrorResponse(w, http.StatusConflict, "already_labelled", "A current label by this rater already exists for this case")
	case errors.Is(err, apperrors.ErrAlreadySuperseded):
		writeErr = ErrorResponse(w, http.StatusConflict, "already_superseded", "This label has already been superseded")
	case errors.Is(err, apperrors.ErrConflict):
		writeErr = ErrorResponse(w, http.StatusConflict, "conflict", "The resource is in a conflicting state")
	case errors.Is(err, apperrors.ErrNotFound):
		writeErr = ErrorResponse(w, http.StatusNotFound, "not_found", "Resource not found")
	case errors.Is(err, apperrors.ErrNotConfigured):
		writeErr = ErrorResponse(w, http.StatusServiceUnavailable, "not_configured", "This capability is not configured")
	default:
		logger.Error("Unexpected service error",
			zap.String("code", errorCode),
			zap.Error(err))
		writeErr = ErrorResponse(w, http.StatusInternalServerError, errorCode, "Internal server error")
	}

	if writeErr != nil {
		logger.Error("Failed to write error response", zap.Error(writeErr))
	}
}
