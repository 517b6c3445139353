package auth

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Middleware verifies bearer tokens on protected routes.
type Middleware struct {
	signingKey string
	verify     bool
	logger     *zap.Logger
}

// NewMiddleware creates an auth middleware.
func NewMiddleware(signingKey string, verify bool, logger *zap.Logger) *Middleware {
	return &Middleware{
		signingKey: signingKey,
		verify:     verify,
		logger:     logger.Named("auth"),
	}
}

// RequireAuth wraps a handler and rejects requests without a valid bearer token.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := m.authenticate(w, r)
		if !ok {
			return
		}
		next(w, r.WithContext(SetClaims(r.Context(), claims)))
	}
}

// RequireAuthWithCompany additionally checks that the {cid} path parameter
// matches the token's company. A user never reaches another company's data
// even with a valid token.
func (m *Middleware) RequireAuthWithCompany(pathParam string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, ok := m.authenticate(w, r)
			if !ok {
				return
			}

			pathCompany, err := uuid.Parse(r.PathValue(pathParam))
			if err != nil {
				writeAuthError(w, http.StatusBadRequest, "invalid_company_id", "Invalid company ID format")
				return
			}
			if pathCompany != claims.CompanyID {
				m.logger.Warn("company mismatch",
					zap.String("path_company", pathCompany.String()),
					zap.String("token_company", claims.CompanyID.String()))
				writeAuthError(w, http.StatusForbidden, "forbidden", "Token does not grant access to this company")
				return
			}

			next(w, r.WithContext(SetClaims(r.Context(), claims)))
		}
	}
}

func (m *Middleware) authenticate(w http.ResponseWriter, r *http.Request) (*Claims, bool) {
	header := r.Header.Get("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		writeAuthError(w, http.StatusUnauthorized, "missing_token", "Authorization header with bearer token is required")
		return nil, false
	}

	claims, err := ParseToken(strings.TrimPrefix(header, "Bearer "), m.signingKey, m.verify)
	if err != nil {
		m.logger.Debug("token rejected", zap.Error(err))
		writeAuthError(w, http.StatusUnauthorized, "invalid_token", "Bearer token could not be verified")
		return nil, false
	}

	return claims, true
}

func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + code + `","message":"` + message + `"}`))
}
