package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/verdantiq/esg-engine/pkg/auth"
	"github.com/verdantiq/esg-engine/pkg/services"
)

// AdminHandler handles administrative reference-data operations.
type AdminHandler struct {
	reference services.ReferenceService
	logger    *zap.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(reference services.ReferenceService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		reference: reference,
		logger:    logger,
	}
}

// RegisterRoutes registers the admin handler's routes on the given mux.
// Reference data is process-wide, so these routes are authenticated but not
// company-scoped.
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/admin/reference/reload", authMiddleware.RequireAuth(h.Reload))
}

// Reload handles POST /api/admin/reference/reload
func (h *AdminHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.reference.Reload(r.Context()); err != nil {
		h.logger.Error("Reference reload failed", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "reload_failed", "Reference data reload failed"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "reference data reloaded"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
