package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/verdantiq/esg-engine/pkg/auth"
	"github.com/verdantiq/esg-engine/pkg/services"
)

// BenchmarkHandler handles industry comparison HTTP requests.
type BenchmarkHandler struct {
	benchmarks services.BenchmarkService
	logger     *zap.Logger
}

// NewBenchmarkHandler creates a new benchmark handler.
func NewBenchmarkHandler(benchmarks services.BenchmarkService, logger *zap.Logger) *BenchmarkHandler {
	return &BenchmarkHandler{
		benchmarks: benchmarks,
		logger:     logger,
	}
}

// RegisterRoutes registers the benchmark handler's routes on the given mux.
func (h *BenchmarkHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, companyMiddleware CompanyMiddleware) {
	mux.HandleFunc("GET /api/companies/{cid}/benchmark",
		authMiddleware.RequireAuthWithCompany("cid")(companyMiddleware(h.Compare)))
}

// Compare handles GET /api/companies/{cid}/benchmark?period=...
func (h *BenchmarkHandler) Compare(w http.ResponseWriter, r *http.Request) {
	companyID, ok := ParseCompanyID(w, r, h.logger)
	if !ok {
		return
	}
	period, ok := requirePeriod(w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.benchmarks.Compare(r.Context(), companyID, period)
	if err != nil {
		WriteServiceError(w, h.logger, err, "benchmark_failed")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
