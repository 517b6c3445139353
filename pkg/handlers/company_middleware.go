package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/verdantiq/esg-engine/pkg/auth"
	"github.com/verdantiq/esg-engine/pkg/database"
)

// CompanyMiddleware is a function that wraps a handler with company-scoped
// database context.
type CompanyMiddleware func(http.HandlerFunc) http.HandlerFunc

// NewCompanyMiddleware returns middleware that acquires a company-scoped
// database connection for the authenticated company and releases it when the
// request finishes. It must run after auth so claims are present.
func NewCompanyMiddleware(provider *database.CompanyScopeProvider, logger *zap.Logger) CompanyMiddleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, ok := auth.GetClaims(r.Context())
			if !ok {
				if err := ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Missing authentication context"); err != nil {
					logger.Error("Failed to write error response", zap.Error(err))
				}
				return
			}

			ctx, cleanup, err := provider.WithCompanyScope(r.Context(), claims.CompanyID)
			if err != nil {
				logger.Error("Failed to acquire company scope",
					zap.String("company_id", claims.CompanyID.String()),
					zap.Error(err))
				if err := ErrorResponse(w, http.StatusInternalServerError, "scope_failed", "Internal error"); err != nil {
					logger.Error("Failed to write error response", zap.Error(err))
				}
				return
			}
			defer cleanup()

			next(w, r.WithContext(ctx))
		}
	}
}
