package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/verdantiq/esg-engine/pkg/auth"
	"github.com/verdantiq/esg-engine/pkg/models"
	"github.com/verdantiq/esg-engine/pkg/services"
)

// AnalyticsHandler handles prediction and trend HTTP requests.
type AnalyticsHandler struct {
	predictions services.PredictionService
	logger      *zap.Logger
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(predictions services.PredictionService, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		predictions: predictions,
		logger:      logger,
	}
}

// RegisterRoutes registers the analytics handler's routes on the given mux.
func (h *AnalyticsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, companyMiddleware CompanyMiddleware) {
	base := "/api/companies/{cid}/analytics"

	mux.HandleFunc("GET "+base+"/predict",
		authMiddleware.RequireAuthWithCompany("cid")(companyMiddleware(h.Predict)))
	mux.HandleFunc("GET "+base+"/seasonal",
		authMiddleware.RequireAuthWithCompany("cid")(companyMiddleware(h.Seasonal)))
	mux.HandleFunc("GET "+base+"/trend",
		authMiddleware.RequireAuthWithCompany("cid")(companyMiddleware(h.Trend)))
}

// Predict handles GET /api/companies/{cid}/analytics/predict?activity_type=...&target_period=...
func (h *AnalyticsHandler) Predict(w http.ResponseWriter, r *http.Request) {
	companyID, ok := ParseCompanyID(w, r, h.logger)
	if !ok {
		return
	}
	activity, ok := parseActivity(w, r, h.logger)
	if !ok {
		return
	}

	result := h.predictions.PredictNextValue(r.Context(), companyID, activity, r.URL.Query().Get("target_period"))
	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Seasonal handles GET /api/companies/{cid}/analytics/seasonal?activity_type=...
func (h *AnalyticsHandler) Seasonal(w http.ResponseWriter, r *http.Request) {
	companyID, ok := ParseCompanyID(w, r, h.logger)
	if !ok {
		return
	}
	activity, ok := parseActivity(w, r, h.logger)
	if !ok {
		return
	}

	result := h.predictions.DetectSeasonalPatterns(r.Context(), companyID, activity)
	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Trend handles GET /api/companies/{cid}/analytics/trend?activity_type=...
func (h *AnalyticsHandler) Trend(w http.ResponseWriter, r *http.Request) {
	companyID, ok := ParseCompanyID(w, r, h.logger)
	if !ok {
		return
	}
	activity, ok := parseActivity(w, r, h.logger)
	if !ok {
		return
	}

	result := h.predictions.CalculateGrowthTrend(r.Context(), companyID, activity)
	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func parseActivity(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (models.ActivityKind, bool) {
	activity := models.ActivityKind(r.URL.Query().Get("activity_type"))
	if !models.IsValidActivityKind(activity) {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_activity_type", "Unknown or missing activity_type"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return "", false
	}
	return activity, true
}
