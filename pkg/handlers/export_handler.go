package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumara-health/labelling-engine/pkg/auth"
	"github.com/lumara-health/labelling-engine/pkg/models"
	"github.com/lumara-health/labelling-engine/pkg/services"
)

// ExportHandler handles training-data export HTTP requests. All endpoints are
// admin-only.
type ExportHandler struct {
	exportService *services.ExportService
	logger        *zap.Logger
}

// NewExportHandler creates a new export handler.
func NewExportHandler(exportService *services.ExportService, logger *zap.Logger) *ExportHandler {
	return &ExportHandler{
		exportService: exportService,
		logger:        logger,
	}
}

// RegisterRoutes registers the export handler's routes on the given mux.
func (h *ExportHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/export/preview", authMiddleware.RequireAdmin(h.Preview))
	mux.HandleFunc("POST /api/export", authMiddleware.RequireAdmin(h.Export))
}

// Preview handles GET /api/export/preview
func (h *ExportHandler) Preview(w http.ResponseWriter, r *http.Request) {
	opts, ok := parseExportOptions(w, r, h.logger)
	if !ok {
		return
	}

	preview, err := h.exportService.Preview(r.Context(), opts)
	if err != nil {
		ServiceError(w, h.logger, err, "export_preview_failed")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: preview}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Export handles POST /api/export
// The payload stays in memory end to end; Content JSON-marshals as base64.
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	var opts models.ExportOptions
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	result, err := h.exportService.Export(r.Context(), &opts)
	if err != nil {
		ServiceError(w, h.logger, err, "export_failed")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// parseExportOptions reads preview options from the query string. Dates are
// RFC3339 or plain YYYY-MM-DD.
func parseExportOptions(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (*models.ExportOptions, bool) {
	q := r.URL.Query()

	opts := &models.ExportOptions{
		Format:           models.ExportFormat(q.Get("format")),
		IncludeUncertain: q.Get("include_uncertain") == "true",
	}
	if opts.Format == "" {
		opts.Format = models.ExportFormatJSONL
	}

	if v := q.Get("taxonomy_version_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_version_id", "Invalid taxonomy version ID format"); err != nil {
				logger.Error("Failed to write error response", zap.Error(err))
			}
			return nil, false
		}
		opts.TaxonomyVersionID = &id
	}

	for param, target := range map[string]**time.Time{
		"from": &opts.FromDate,
		"to":   &opts.ToDate,
	} {
		v := q.Get(param)
		if v == "" {
			continue
		}
		t, err := parseDateParam(v)
		if err != nil {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_date", "Dates must be RFC3339 or YYYY-MM-DD"); err != nil {
				logger.Error("Failed to write error response", zap.Error(err))
			}
			return nil, false
		}
		*target = &t
	}

	return opts, true
}

func parseDateParam(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}
