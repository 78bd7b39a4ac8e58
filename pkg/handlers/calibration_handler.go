package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/lumara-health/labelling-engine/pkg/auth"
	"github.com/lumara-health/labelling-engine/pkg/services"
)

// CalibrationHandler handles calibration pool HTTP requests. Pool membership
// changes are admin-only; the comparison views are visible to every rater.
type CalibrationHandler struct {
	calibrationService *services.CalibrationService
	logger             *zap.Logger
}

// NewCalibrationHandler creates a new calibration handler.
func NewCalibrationHandler(calibrationService *services.CalibrationService, logger *zap.Logger) *CalibrationHandler {
	return &CalibrationHandler{
		calibrationService: calibrationService,
		logger:             logger,
	}
}

// RegisterRoutes registers the calibration handler's routes on the given mux.
func (h *CalibrationHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/calibration/cases/{id}", authMiddleware.RequireAdmin(h.Add))
	mux.HandleFunc("DELETE /api/calibration/cases/{id}", authMiddleware.RequireAdmin(h.Remove))
	mux.HandleFunc("GET /api/calibration/cases", authMiddleware.RequireRater(h.Cases))
	mux.HandleFunc("GET /api/calibration/cases/{id}/agreement", authMiddleware.RequireRater(h.Agreement))
	mux.HandleFunc("GET /api/calibration/stats", authMiddleware.RequireRater(h.Stats))
}

// Add handles POST /api/calibration/cases/{id}
func (h *CalibrationHandler) Add(w http.ResponseWriter, r *http.Request) {
	caseID, ok := ParseCaseID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.calibrationService.Add(r.Context(), caseID); err != nil {
		ServiceError(w, h.logger, err, "add_calibration_case_failed")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: map[string]string{"status": "added"}}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Remove handles DELETE /api/calibration/cases/{id}
func (h *CalibrationHandler) Remove(w http.ResponseWriter, r *http.Request) {
	caseID, ok := ParseCaseID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.calibrationService.Remove(r.Context(), caseID); err != nil {
		ServiceError(w, h.logger, err, "remove_calibration_case_failed")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: map[string]string{"status": "removed"}}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Cases handles GET /api/calibration/cases
func (h *CalibrationHandler) Cases(w http.ResponseWriter, r *http.Request) {
	views, err := h.calibrationService.Cases(r.Context())
	if err != nil {
		ServiceError(w, h.logger, err, "list_calibration_cases_failed")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: views}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Agreement handles GET /api/calibration/cases/{id}/agreement
func (h *CalibrationHandler) Agreement(w http.ResponseWriter, r *http.Request) {
	caseID, ok := ParseCaseID(w, r, h.logger)
	if !ok {
		return
	}

	metrics, err := h.calibrationService.Agreement(r.Context(), caseID)
	if err != nil {
		ServiceError(w, h.logger, err, "get_agreement_failed")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: metrics}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Stats handles GET /api/calibration/stats
func (h *CalibrationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.calibrationService.Stats(r.Context())
	if err != nil {
		ServiceError(w, h.logger, err, "get_calibration_stats_failed")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: stats}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
