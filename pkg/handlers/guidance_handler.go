package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/verdantiq/esg-engine/pkg/auth"
	"github.com/verdantiq/esg-engine/pkg/services"
)

// GuidanceHandler handles completeness and guidance HTTP requests.
type GuidanceHandler struct {
	completeness services.CompletenessService
	guidance     services.GuidanceService
	logger       *zap.Logger
}

// NewGuidanceHandler creates a new guidance handler.
func NewGuidanceHandler(completeness services.CompletenessService, guidance services.GuidanceService, logger *zap.Logger) *GuidanceHandler {
	return &GuidanceHandler{
		completeness: completeness,
		guidance:     guidance,
		logger:       logger,
	}
}

// RegisterRoutes registers the guidance handler's routes on the given mux.
func (h *GuidanceHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, companyMiddleware CompanyMiddleware) {
	base := "/api/companies/{cid}/guidance"

	mux.HandleFunc("GET "+base+"/completeness",
		authMiddleware.RequireAuthWithCompany("cid")(companyMiddleware(h.Completeness)))
	mux.HandleFunc("GET "+base+"/next-actions",
		authMiddleware.RequireAuthWithCompany("cid")(companyMiddleware(h.NextActions)))
	mux.HandleFunc("GET "+base+"/reminders",
		authMiddleware.RequireAuthWithCompany("cid")(companyMiddleware(h.Reminders)))
	mux.HandleFunc("GET "+base+"/onboarding",
		authMiddleware.RequireAuthWithCompany("cid")(companyMiddleware(h.Onboarding)))
}

// Completeness handles GET /api/companies/{cid}/guidance/completeness?period=...
func (h *GuidanceHandler) Completeness(w http.ResponseWriter, r *http.Request) {
	companyID, ok := ParseCompanyID(w, r, h.logger)
	if !ok {
		return
	}
	period, ok := requirePeriod(w, r, h.logger)
	if !ok {
		return
	}

	score, err := h.completeness.Score(r.Context(), companyID, period)
	if err != nil {
		WriteServiceError(w, h.logger, err, "completeness_failed")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: score}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// NextActions handles GET /api/companies/{cid}/guidance/next-actions?period=...
func (h *GuidanceHandler) NextActions(w http.ResponseWriter, r *http.Request) {
	companyID, ok := ParseCompanyID(w, r, h.logger)
	if !ok {
		return
	}
	period, ok := requirePeriod(w, r, h.logger)
	if !ok {
		return
	}

	actions, err := h.guidance.NextActions(r.Context(), companyID, period)
	if err != nil {
		WriteServiceError(w, h.logger, err, "next_actions_failed")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: actions}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Reminders handles GET /api/companies/{cid}/guidance/reminders
func (h *GuidanceHandler) Reminders(w http.ResponseWriter, r *http.Request) {
	reminders := h.guidance.SeasonalReminders(time.Now())
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: reminders}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Onboarding handles GET /api/companies/{cid}/guidance/onboarding
func (h *GuidanceHandler) Onboarding(w http.ResponseWriter, r *http.Request) {
	companyID, ok := ParseCompanyID(w, r, h.logger)
	if !ok {
		return
	}

	steps, err := h.guidance.OnboardingFlow(r.Context(), companyID)
	if err != nil {
		WriteServiceError(w, h.logger, err, "onboarding_failed")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: steps}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func requirePeriod(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (string, bool) {
	period := r.URL.Query().Get("period")
	if period == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_period", "period query parameter is required"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return "", false
	}
	return period, true
}
