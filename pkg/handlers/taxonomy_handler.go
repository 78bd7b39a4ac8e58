package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/lumara-health/labelling-engine/pkg/auth"
	"github.com/lumara-health/labelling-engine/pkg/services"
)

// TaxonomyHandler handles taxonomy HTTP requests.
type TaxonomyHandler struct {
	taxonomyService *services.TaxonomyService
	logger          *zap.Logger
}

// NewTaxonomyHandler creates a new taxonomy handler.
func NewTaxonomyHandler(taxonomyService *services.TaxonomyService, logger *zap.Logger) *TaxonomyHandler {
	return &TaxonomyHandler{
		taxonomyService: taxonomyService,
		logger:          logger,
	}
}

// RegisterRoutes registers the taxonomy handler's routes on the given mux.
func (h *TaxonomyHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/taxonomy", authMiddleware.RequireRater(h.Active))
	mux.HandleFunc("GET /api/taxonomy/versions", authMiddleware.RequireRater(h.ListVersions))
	mux.HandleFunc("GET /api/taxonomy/versions/{id}", authMiddleware.RequireRater(h.GetVersion))
}

// Active handles GET /api/taxonomy
// Returns the active taxonomy version, bootstrapping the default tree on
// first use.
func (h *TaxonomyHandler) Active(w http.ResponseWriter, r *http.Request) {
	tv, err := h.taxonomyService.ActiveVersion(r.Context())
	if err != nil {
		ServiceError(w, h.logger, err, "get_taxonomy_failed")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: tv}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListVersions handles GET /api/taxonomy/versions
func (h *TaxonomyHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := h.taxonomyService.ListVersions(r.Context())
	if err != nil {
		ServiceError(w, h.logger, err, "list_taxonomy_versions_failed")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: versions}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// GetVersion handles GET /api/taxonomy/versions/{id}
func (h *TaxonomyHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	versionID, ok := ParseVersionID(w, r, h.logger)
	if !ok {
		return
	}

	tv, err := h.taxonomyService.GetVersion(r.Context(), versionID)
	if err != nil {
		ServiceError(w, h.logger, err, "get_taxonomy_version_failed")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: tv}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
