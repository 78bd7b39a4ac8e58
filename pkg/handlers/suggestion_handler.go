package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/lumara-health/labelling-engine/pkg/auth"
	"github.com/lumara-health/labelling-engine/pkg/services"
)

// GenerateCasesRequest for POST /api/cases/generate
type GenerateCasesRequest struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// SuggestionHandler handles AI suggestion HTTP requests. Returns 503 when no
// LLM provider is configured.
type SuggestionHandler struct {
	suggestionService *services.SuggestionService
	logger            *zap.Logger
}

// NewSuggestionHandler creates a new suggestion handler.
func NewSuggestionHandler(suggestionService *services.SuggestionService, logger *zap.Logger) *SuggestionHandler {
	return &SuggestionHandler{
		suggestionService: suggestionService,
		logger:            logger,
	}
}

// RegisterRoutes registers the suggestion handler's routes on the given mux.
func (h *SuggestionHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/cases/{id}/suggest", authMiddleware.RequireRater(h.Suggest))
	mux.HandleFunc("POST /api/cases/generate", authMiddleware.RequireAdmin(h.GenerateCases))
}

// Suggest handles POST /api/cases/{id}/suggest
func (h *SuggestionHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	caseID, ok := ParseCaseID(w, r, h.logger)
	if !ok {
		return
	}

	suggestion, err := h.suggestionService.Suggest(r.Context(), caseID)
	if err != nil {
		ServiceError(w, h.logger, err, "suggest_labels_failed")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: suggestion}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// GenerateCases handles POST /api/cases/generate
func (h *SuggestionHandler) GenerateCases(w http.ResponseWriter, r *http.Request) {
	adminID, err := auth.RequireRaterIDFromContext(r.Context())
	if err != nil {
		if err := ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	var req GenerateCasesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	result, err := h.suggestionService.GenerateCases(r.Context(), adminID, req.Topic, req.Count)
	if err != nil {
		ServiceError(w, h.logger, err, "generate_cases_failed")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
