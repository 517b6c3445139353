package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/verdantiq/esg-engine/pkg/auth"
	"github.com/verdantiq/esg-engine/pkg/models"
	"github.com/verdantiq/esg-engine/pkg/services"
)

// SessionHandler handles conversation session HTTP requests.
type SessionHandler struct {
	sessions services.SessionService
	logger   *zap.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(sessions services.SessionService, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// RegisterRoutes registers the session handler's routes on the given mux.
func (h *SessionHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, companyMiddleware CompanyMiddleware) {
	base := "/api/companies/{cid}/sessions"

	mux.HandleFunc("GET "+base,
		authMiddleware.RequireAuthWithCompany("cid")(companyMiddleware(h.List)))
	mux.HandleFunc("GET "+base+"/{sid}",
		authMiddleware.RequireAuthWithCompany("cid")(companyMiddleware(h.Get)))
	mux.HandleFunc("PATCH "+base+"/{sid}/status",
		authMiddleware.RequireAuthWithCompany("cid")(companyMiddleware(h.UpdateStatus)))
}

// List handles GET /api/companies/{cid}/sessions
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	companyID, ok := ParseCompanyID(w, r, h.logger)
	if !ok {
		return
	}

	sessions, err := h.sessions.List(r.Context(), companyID)
	if err != nil {
		WriteServiceError(w, h.logger, err, "list_sessions_failed")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: sessions}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

type sessionDetailResponse struct {
	Session  *models.Session   `json:"session"`
	Messages []*models.Message `json:"messages"`
}

// Get handles GET /api/companies/{cid}/sessions/{sid}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := ParseCompanyID(w, r, h.logger); !ok {
		return
	}
	sessionID, ok := ParseSessionID(w, r, h.logger)
	if !ok {
		return
	}

	session, messages, err := h.sessions.Get(r.Context(), sessionID)
	if err != nil {
		WriteServiceError(w, h.logger, err, "get_session_failed")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: sessionDetailResponse{
		Session:  session,
		Messages: messages,
	}}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

type updateStatusRequest struct {
	Status models.SessionStatus `json:"status"`
}

// UpdateStatus handles PATCH /api/companies/{cid}/sessions/{sid}/status
func (h *SessionHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := ParseCompanyID(w, r, h.logger); !ok {
		return
	}
	sessionID, ok := ParseSessionID(w, r, h.logger)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if !models.IsValidSessionStatus(req.Status) {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_status", "Unknown session status"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	session, err := h.sessions.UpdateStatus(r.Context(), sessionID, req.Status)
	if err != nil {
		WriteServiceError(w, h.logger, err, "update_status_failed")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: session}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
