package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Conversation Sessions
// ============================================================================

// SessionStatus represents the lifecycle state of a conversation session.
type SessionStatus string

const (
	SessionStatusActive        SessionStatus = "active"
	SessionStatusDraft         SessionStatus = "draft"
	SessionStatusPendingReview SessionStatus = "pending_review"
	SessionStatusApproved      SessionStatus = "approved"
	SessionStatusCancelled     SessionStatus = "cancelled"
)

// ValidSessionStatuses contains all valid session status values.
var ValidSessionStatuses = []SessionStatus{
	SessionStatusActive,
	SessionStatusDraft,
	SessionStatusPendingReview,
	SessionStatusApproved,
	SessionStatusCancelled,
}

// IsValidSessionStatus checks if the given status is valid.
func IsValidSessionStatus(s SessionStatus) bool {
	for _, v := range ValidSessionStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
// Approved and cancelled sessions are immutable at the service layer.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusApproved || s == SessionStatusCancelled
}

// RunningTotals caches per-session aggregates derived from the message log.
// The message log is the source of truth; these exist so list views do not
// re-scan messages.
type RunningTotals struct {
	EmissionsAdded    float64 `json:"emissions_added"`
	EntriesCount      int     `json:"entries_count"`
	AverageConfidence float64 `json:"average_confidence"`
}

// Session is a per-(user, footprint) conversation.
type Session struct {
	ID           uuid.UUID      `json:"id"`
	CompanyID    uuid.UUID      `json:"company_id"`
	FootprintID  *uuid.UUID     `json:"footprint_id,omitempty"`
	CreatorID    uuid.UUID      `json:"creator_id"`
	Participants []uuid.UUID    `json:"participants,omitempty"`
	Status       SessionStatus  `json:"status"`
	Context      map[string]any `json:"context,omitempty"`
	Totals       RunningTotals  `json:"running_totals"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// ============================================================================
// Conversation Messages
// ============================================================================

// MessageRole represents the role of a message sender.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

// ValidMessageRoles contains all valid message role values.
var ValidMessageRoles = []MessageRole{
	MessageRoleUser,
	MessageRoleAssistant,
	MessageRoleSystem,
}

// IsValidMessageRole checks if the given role is valid.
func IsValidMessageRole(r MessageRole) bool {
	for _, v := range ValidMessageRoles {
		if v == r {
			return true
		}
	}
	return false
}

// ValidationStatus tracks review state of an extracted message.
type ValidationStatus string

const (
	ValidationPending     ValidationStatus = "pending"
	ValidationValidated   ValidationStatus = "validated"
	ValidationRejected    ValidationStatus = "rejected"
	ValidationNeedsReview ValidationStatus = "needs_review"
)

// Message is one entry in a session's append-only log, totally ordered by
// creation time.
type Message struct {
	ID               uuid.UUID                  `json:"id"`
	SessionID        uuid.UUID                  `json:"session_id"`
	Role             MessageRole                `json:"role"`
	Content          string                     `json:"content"`
	ExtractedData    *ExtractedData             `json:"extracted_data,omitempty"`
	Confidence       *float64                   `json:"confidence,omitempty"` // 0-100
	ValidationStatus ValidationStatus           `json:"validation_status"`
	FootprintUpdated bool                       `json:"footprint_updated"`
	FootprintChanges map[ScopeField]FieldChange `json:"footprint_changes,omitempty"`
	SourceMessageID  *uuid.UUID                 `json:"source_message_id,omitempty"`
	ProcessingMs     int64                      `json:"processing_ms,omitempty"`
	CreatedAt        time.Time                  `json:"created_at"`
}

// IsFromUser returns true if the message is from a user.
func (m *Message) IsFromUser() bool {
	return m.Role == MessageRoleUser
}

// IsFromAssistant returns true if the message is from the assistant.
func (m *Message) IsFromAssistant() bool {
	return m.Role == MessageRoleAssistant
}
