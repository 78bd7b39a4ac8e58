package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/lumara-health/labelling-engine/pkg/auth"
	"github.com/lumara-health/labelling-engine/pkg/models"
	"github.com/lumara-health/labelling-engine/pkg/services"
)

// ModelRunHandler handles baseline-training run HTTP requests. Admin-only.
type ModelRunHandler struct {
	modelRunService *services.ModelRunService
	logger          *zap.Logger
}

// NewModelRunHandler creates a new model run handler.
func NewModelRunHandler(modelRunService *services.ModelRunService, logger *zap.Logger) *ModelRunHandler {
	return &ModelRunHandler{
		modelRunService: modelRunService,
		logger:          logger,
	}
}

// RegisterRoutes registers the model run handler's routes on the given mux.
func (h *ModelRunHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/model-runs", authMiddleware.RequireAdmin(h.Trigger))
	mux.HandleFunc("GET /api/model-runs", authMiddleware.RequireAdmin(h.List))
	mux.HandleFunc("GET /api/model-runs/{id}", authMiddleware.RequireAdmin(h.Get))
}

// Trigger handles POST /api/model-runs
func (h *ModelRunHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	adminID, err := auth.RequireRaterIDFromContext(r.Context())
	if err != nil {
		if err := ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	var in models.TriggerModelRunInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	run, err := h.modelRunService.Trigger(r.Context(), adminID, &in)
	if err != nil {
		ServiceError(w, h.logger, err, "trigger_model_run_failed")
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: run}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// List handles GET /api/model-runs
func (h *ModelRunHandler) List(w http.ResponseWriter, r *http.Request) {
	runs, err := h.modelRunService.List(r.Context())
	if err != nil {
		ServiceError(w, h.logger, err, "list_model_runs_failed")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: runs}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/model-runs/{id}
func (h *ModelRunHandler) Get(w http.ResponseWriter, r *http.Request) {
	runID, ok := ParseRunID(w, r, h.logger)
	if !ok {
		return
	}

	run, err := h.modelRunService.Get(r.Context(), runID)
	if err != nil {
		ServiceError(w, h.logger, err, "get_model_run_failed")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: run}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
