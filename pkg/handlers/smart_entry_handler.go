package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verdantiq/esg-engine/pkg/auth"
	"github.com/verdantiq/esg-engine/pkg/models"
	"github.com/verdantiq/esg-engine/pkg/services"
)

// SmartEntryHandler handles conversational extraction and footprint update
// HTTP requests.
type SmartEntryHandler struct {
	extraction services.ExtractionService
	updates    services.UpdateService
	logger     *zap.Logger
}

// NewSmartEntryHandler creates a new smart entry handler.
func NewSmartEntryHandler(extraction services.ExtractionService, updates services.UpdateService, logger *zap.Logger) *SmartEntryHandler {
	return &SmartEntryHandler{
		extraction: extraction,
		updates:    updates,
		logger:     logger,
	}
}

// RegisterRoutes registers the smart entry handler's routes on the given mux.
func (h *SmartEntryHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, companyMiddleware CompanyMiddleware) {
	base := "/api/companies/{cid}/smart-entry"

	mux.HandleFunc("POST "+base+"/extract",
		authMiddleware.RequireAuthWithCompany("cid")(companyMiddleware(h.Extract)))
	mux.HandleFunc("POST "+base+"/update",
		authMiddleware.RequireAuthWithCompany("cid")(companyMiddleware(h.Update)))
}

type extractRequest struct {
	Message         string     `json:"message"`
	SessionID       *uuid.UUID `json:"session_id,omitempty"`
	ReportingPeriod string     `json:"reporting_period,omitempty"`
}

// Extract handles POST /api/companies/{cid}/smart-entry/extract
func (h *SmartEntryHandler) Extract(w http.ResponseWriter, r *http.Request) {
	companyID, ok := ParseCompanyID(w, r, h.logger)
	if !ok {
		return
	}
	claims, _ := auth.GetClaims(r.Context())

	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if req.Message == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_message", "Message is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	result, err := h.extraction.ProcessMessage(r.Context(), companyID, claims.UserID, &services.ExtractRequest{
		SessionID:       req.SessionID,
		ReportingPeriod: req.ReportingPeriod,
		Message:         req.Message,
	})
	if err != nil {
		WriteServiceError(w, h.logger, err, "extract_failed")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

type updateRequest struct {
	FootprintID   uuid.UUID                                  `json:"footprint_id"`
	UpdateData    map[models.ScopeField]services.FieldUpdate `json:"update_data"`
	SessionID     *uuid.UUID                                 `json:"session_id,omitempty"`
	SourceMessage *uuid.UUID                                 `json:"conversation_message_id,omitempty"`
	UserConfirmed bool                                       `json:"user_confirmed"`
}

type updateResponse struct {
	Success     bool                                     `json:"success"`
	FootprintID uuid.UUID                                `json:"footprint_id"`
	Footprint   *models.Footprint                        `json:"updated_footprint"`
	Changes     map[models.ScopeField]models.FieldChange `json:"changes"`
	MessageID   *uuid.UUID                               `json:"message_id,omitempty"`
}

// Update handles POST /api/companies/{cid}/smart-entry/update
func (h *SmartEntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	companyID, ok := ParseCompanyID(w, r, h.logger)
	if !ok {
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if req.FootprintID == uuid.Nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_footprint_id", "footprint_id is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	result, err := h.updates.Apply(r.Context(), companyID, &services.UpdateRequest{
		FootprintID:     req.FootprintID,
		Updates:         req.UpdateData,
		Confirmed:       req.UserConfirmed,
		SessionID:       req.SessionID,
		SourceMessageID: req.SourceMessage,
	})
	if err != nil {
		WriteServiceError(w, h.logger, err, "update_failed")
		return
	}

	resp := updateResponse{
		Success:     true,
		FootprintID: result.Footprint.ID,
		Footprint:   result.Footprint,
		Changes:     result.Changes,
	}
	if result.Message != nil {
		resp.MessageID = &result.Message.ID
	}

	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
