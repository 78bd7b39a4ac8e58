package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/lumara-health/labelling-engine/pkg/auth"
	"github.com/lumara-health/labelling-engine/pkg/models"
	"github.com/lumara-health/labelling-engine/pkg/services"
)

// LabelHandler handles label HTTP requests.
type LabelHandler struct {
	labelService *services.LabelService
	logger       *zap.Logger
}

// NewLabelHandler creates a new label handler.
func NewLabelHandler(labelService *services.LabelService, logger *zap.Logger) *LabelHandler {
	return &LabelHandler{
		labelService: labelService,
		logger:       logger,
	}
}

// RegisterRoutes registers the label handler's routes on the given mux.
func (h *LabelHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/cases/{id}/labels", authMiddleware.RequireRater(h.Create))
	mux.HandleFunc("GET /api/cases/{id}/labels", authMiddleware.RequireRater(h.ForCase))
	mux.HandleFunc("GET /api/cases/{id}/labels/mine", authMiddleware.RequireRater(h.Mine))
	mux.HandleFunc("PUT /api/labels/{id}", authMiddleware.RequireRater(h.Update))
	mux.HandleFunc("GET /api/raters/me/stats", authMiddleware.RequireRater(h.MyStats))
}

// Create handles POST /api/cases/{id}/labels
func (h *LabelHandler) Create(w http.ResponseWriter, r *http.Request) {
	caseID, ok := ParseCaseID(w, r, h.logger)
	if !ok {
		return
	}

	raterID, err := auth.RequireRaterIDFromContext(r.Context())
	if err != nil {
		if err := ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	var in models.LabelInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	// The path wins over whatever case id the body carries.
	in.CaseID = caseID

	label, err := h.labelService.Create(r.Context(), raterID, &in)
	if err != nil {
		ServiceError(w, h.logger, err, "create_label_failed")
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: label}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PUT /api/labels/{id}
func (h *LabelHandler) Update(w http.ResponseWriter, r *http.Request) {
	labelID, ok := ParseLabelID(w, r, h.logger)
	if !ok {
		return
	}

	raterID, err := auth.RequireRaterIDFromContext(r.Context())
	if err != nil {
		if err := ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	var in models.LabelInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	label, err := h.labelService.Update(r.Context(), raterID, labelID, &in)
	if err != nil {
		ServiceError(w, h.logger, err, "update_label_failed")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: label}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ForCase handles GET /api/cases/{id}/labels
func (h *LabelHandler) ForCase(w http.ResponseWriter, r *http.Request) {
	caseID, ok := ParseCaseID(w, r, h.logger)
	if !ok {
		return
	}

	labels, err := h.labelService.ForCase(r.Context(), caseID)
	if err != nil {
		ServiceError(w, h.logger, err, "list_labels_failed")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: labels}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Mine handles GET /api/cases/{id}/labels/mine
func (h *LabelHandler) Mine(w http.ResponseWriter, r *http.Request) {
	caseID, ok := ParseCaseID(w, r, h.logger)
	if !ok {
		return
	}

	raterID, err := auth.RequireRaterIDFromContext(r.Context())
	if err != nil {
		if err := ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	label, err := h.labelService.MineForCase(r.Context(), raterID, caseID)
	if err != nil {
		ServiceError(w, h.logger, err, "get_my_label_failed")
		return
	}

	// A missing own label is a normal outcome; the form starts empty.
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: label}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// MyStats handles GET /api/raters/me/stats
func (h *LabelHandler) MyStats(w http.ResponseWriter, r *http.Request) {
	raterID, err := auth.RequireRaterIDFromContext(r.Context())
	if err != nil {
		if err := ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	stats, err := h.labelService.MyStats(r.Context(), raterID)
	if err != nil {
		ServiceError(w, h.logger, err, "get_rater_stats_failed")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: stats}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
