// Package audit provides compliance audit logging for footprint data changes.
// ESG figures feed regulatory disclosures, so every mutation is logged as a
// structured JSON event that downstream log pipelines can parse and retain.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verdantiq/esg-engine/pkg/auth"
)

// EventType categorizes audit events for filtering and retention policies.
type EventType string

const (
	// EventFootprintUpdate is logged for every committed scope field mutation.
	EventFootprintUpdate EventType = "footprint_update"
	// EventSessionStatusChange is logged when a session transitions status.
	EventSessionStatusChange EventType = "session_status_change"
)

// Event is the envelope every audit record shares. It is serialized to JSON
// alongside the flat zap fields so both humans and pipelines can consume it.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	EventType EventType `json:"event_type"`
	CompanyID uuid.UUID `json:"company_id"`
	UserID    string    `json:"user_id,omitempty"`
	Details   any       `json:"details"`
	Severity  string    `json:"severity"` // info, warning
}

// FootprintUpdateDetails records one scope field mutation.
type FootprintUpdateDetails struct {
	FootprintID uuid.UUID  `json:"footprint_id"`
	SessionID   *uuid.UUID `json:"session_id,omitempty"`
	Field       string     `json:"field"`
	Operation   string     `json:"operation"`
	Previous    float64    `json:"previous"`
	New         float64    `json:"new"`
	Delta       float64    `json:"delta"`
	Version     int64      `json:"version"`
	Confirmed   bool       `json:"confirmed"`
}

// StatusChangeDetails records a session lifecycle transition.
type StatusChangeDetails struct {
	SessionID uuid.UUID `json:"session_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
}

// Trail logs audit events under a dedicated logger namespace so they can be
// routed separately from operational logs.
type Trail struct {
	logger *zap.Logger
}

// NewTrail creates an audit trail writing through the given logger.
func NewTrail(logger *zap.Logger) *Trail {
	return &Trail{logger: logger.Named("audit")}
}

// LogFootprintUpdate records a committed scope field mutation. The acting
// user is taken from the request claims when present.
func (t *Trail) LogFootprintUpdate(ctx context.Context, companyID uuid.UUID, details FootprintUpdateDetails) {
	event := Event{
		Timestamp: time.Now().UTC(),
		EventType: EventFootprintUpdate,
		CompanyID: companyID,
		UserID:    userIDFromContext(ctx),
		Details:   details,
		Severity:  "info",
	}

	eventJSON, _ := json.Marshal(event)

	t.logger.Info("Footprint updated",
		zap.String("event_json", string(eventJSON)),
		zap.String("company_id", companyID.String()),
		zap.String("footprint_id", details.FootprintID.String()),
		zap.String("field", details.Field),
		zap.String("operation", details.Operation),
		zap.Float64("previous", details.Previous),
		zap.Float64("new", details.New),
		zap.Int64("version", details.Version),
		zap.String("user_id", event.UserID),
	)
}

// LogSessionStatusChange records a session lifecycle transition.
func (t *Trail) LogSessionStatusChange(ctx context.Context, companyID uuid.UUID, details StatusChangeDetails) {
	event := Event{
		Timestamp: time.Now().UTC(),
		EventType: EventSessionStatusChange,
		CompanyID: companyID,
		UserID:    userIDFromContext(ctx),
		Details:   details,
		Severity:  "info",
	}

	eventJSON, _ := json.Marshal(event)

	t.logger.Info("Session status changed",
		zap.String("event_json", string(eventJSON)),
		zap.String("company_id", companyID.String()),
		zap.String("session_id", details.SessionID.String()),
		zap.String("from", details.From),
		zap.String("to", details.To),
		zap.String("user_id", event.UserID),
	)
}

func userIDFromContext(ctx context.Context) string {
	claims, ok := auth.GetClaims(ctx)
	if !ok {
		return ""
	}
	return claims.UserID.String()
}
