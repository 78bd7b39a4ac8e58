package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumara-health/labelling-engine/pkg/auth"
	"github.com/lumara-health/labelling-engine/pkg/models"
	"github.com/lumara-health/labelling-engine/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// ImportCasesRequest for POST /api/cases/import
type ImportCasesRequest struct {
	Cases []models.ImportCaseItem `json:"cases"`
}

// UpdateCaseStatusRequest for PUT /api/cases/{id}/status
type UpdateCaseStatusRequest struct {
	Status models.CaseStatus `json:"status"`
}

// ============================================================================
// Handler
// ============================================================================

// CaseHandler handles case HTTP requests.
type CaseHandler struct {
	caseService *services.CaseService
	logger      *zap.Logger
}

// NewCaseHandler creates a new case handler.
func NewCaseHandler(caseService *services.CaseService, logger *zap.Logger) *CaseHandler {
	return &CaseHandler{
		caseService: caseService,
		logger:      logger,
	}
}

// RegisterRoutes registers the case handler's routes on the given mux.
func (h *CaseHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/cases", authMiddleware.RequireRater(h.Create))
	mux.HandleFunc("POST /api/cases/import", authMiddleware.RequireAdmin(h.Import))
	mux.HandleFunc("GET /api/cases", authMiddleware.RequireRater(h.List))
	mux.HandleFunc("GET /api/cases/next", authMiddleware.RequireRater(h.NextUnlabeled))
	mux.HandleFunc("GET /api/cases/{id}", authMiddleware.RequireRater(h.Get))
	mux.HandleFunc("DELETE /api/cases/{id}", authMiddleware.RequireAdmin(h.Delete))
	mux.HandleFunc("PUT /api/cases/{id}/status", authMiddleware.RequireAdmin(h.UpdateStatus))
}

// Create handles POST /api/cases
func (h *CaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	creatorID, err := auth.RequireRaterIDFromContext(r.Context())
	if err != nil {
		if err := ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	var in models.CreateCaseInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	c, err := h.caseService.Create(r.Context(), creatorID, &in)
	if err != nil {
		ServiceError(w, h.logger, err, "create_case_failed")
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: c}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Import handles POST /api/cases/import
func (h *CaseHandler) Import(w http.ResponseWriter, r *http.Request) {
	creatorID, err := auth.RequireRaterIDFromContext(r.Context())
	if err != nil {
		if err := ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	var req ImportCasesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	result, err := h.caseService.Import(r.Context(), creatorID, req.Cases)
	if err != nil {
		ServiceError(w, h.logger, err, "import_cases_failed")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// List handles GET /api/cases
func (h *CaseHandler) List(w http.ResponseWriter, r *http.Request) {
	filters, ok := parseCaseFilters(w, r, h.logger)
	if !ok {
		return
	}

	list, err := h.caseService.List(r.Context(), filters)
	if err != nil {
		ServiceError(w, h.logger, err, "list_cases_failed")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: list}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// NextUnlabeled handles GET /api/cases/next
func (h *CaseHandler) NextUnlabeled(w http.ResponseWriter, r *http.Request) {
	raterID, err := auth.RequireRaterIDFromContext(r.Context())
	if err != nil {
		if err := ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	c, err := h.caseService.NextUnlabeled(r.Context(), raterID)
	if err != nil {
		ServiceError(w, h.logger, err, "next_case_failed")
		return
	}

	// An empty queue is a normal outcome, not an error.
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: c}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/cases/{id}
func (h *CaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	caseID, ok := ParseCaseID(w, r, h.logger)
	if !ok {
		return
	}

	c, err := h.caseService.Get(r.Context(), caseID)
	if err != nil {
		ServiceError(w, h.logger, err, "get_case_failed")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: c}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/cases/{id}
func (h *CaseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caseID, ok := ParseCaseID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.caseService.Delete(r.Context(), caseID); err != nil {
		ServiceError(w, h.logger, err, "delete_case_failed")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: map[string]string{"status": "deleted"}}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// UpdateStatus handles PUT /api/cases/{id}/status
func (h *CaseHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	caseID, ok := ParseCaseID(w, r, h.logger)
	if !ok {
		return
	}

	var req UpdateCaseStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.caseService.UpdateStatus(r.Context(), caseID, req.Status); err != nil {
		ServiceError(w, h.logger, err, "update_case_status_failed")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: map[string]string{"status": string(req.Status)}}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// parseCaseFilters reads the list filters from the query string. Enum and
// pagination validation happens in CaseFilters.Normalize inside the service.
func parseCaseFilters(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (*models.CaseFilters, bool) {
	q := r.URL.Query()

	filters := &models.CaseFilters{
		Status:          models.CaseStatus(q.Get("status")),
		Source:          models.CaseSource(q.Get("source")),
		Search:          q.Get("search"),
		Language:        q.Get("language"),
		CalibrationOnly: q.Get("calibration_only") == "true",
	}

	if v := q.Get("created_by"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_created_by", "Invalid created_by ID format"); err != nil {
				logger.Error("Failed to write error response", zap.Error(err))
			}
			return nil, false
		}
		filters.CreatedBy = &id
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer"); err != nil {
				logger.Error("Failed to write error response", zap.Error(err))
			}
			return nil, false
		}
		filters.Limit = n
	}

	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_offset", "offset must be an integer"); err != nil {
				logger.Error("Failed to write error response", zap.Error(err))
			}
			return nil, false
		}
		filters.Offset = n
	}

	return filters, true
}
