package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/verdantiq/esg-engine/pkg/apperrors"
	"github.com/verdantiq/esg-engine/pkg/database"
	"github.com/verdantiq/esg-engine/pkg/models"
)

// SessionRepository provides data access for conversation sessions and their
// append-only message logs.
type SessionRepository interface {
	CreateSession(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*models.Session, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.SessionStatus) error
	UpdateTotals(ctx context.Context, id uuid.UUID, totals models.RunningTotals) error

	AppendMessage(ctx context.Context, msg *models.Message) error
	// GetRecentMessages returns the newest messages in chronological order.
	GetRecentMessages(ctx context.Context, sessionID uuid.UUID, limit int) ([]*models.Message, error)
	CountMessages(ctx context.Context, sessionID uuid.UUID) (int, error)
}

type sessionRepository struct{}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository() SessionRepository {
	return &sessionRepository{}
}

var _ SessionRepository = (*sessionRepository)(nil)

func (r *sessionRepository) CreateSession(ctx context.Context, session *models.Session) error {
	scope, ok := database.GetCompanyScope(ctx)
	if !ok {
		return fmt.Errorf("no company scope in context")
	}

	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if session.Status == "" {
		session.Status = models.SessionStatusActive
	}
	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now

	contextJSON, err := json.Marshal(session.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal session context: %w", err)
	}
	totalsJSON, err := json.Marshal(session.Totals)
	if err != nil {
		return fmt.Errorf("failed to marshal running totals: %w", err)
	}

	query := `
		INSERT INTO esg_sessions (
			id, company_id, footprint_id, creator_id, participants, status,
			context, running_totals, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = scope.Conn.Exec(ctx, query,
		session.ID, session.CompanyID, session.FootprintID, session.CreatorID,
		session.Participants, session.Status, contextJSON, totalsJSON,
		session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

const sessionColumns = `id, company_id, footprint_id, creator_id, participants, status,
	context, running_totals, created_at, updated_at`

func (r *sessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	scope, ok := database.GetCompanyScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no company scope in context")
	}

	query := `SELECT ` + sessionColumns + ` FROM esg_sessions WHERE id = $1`

	session, err := scanSession(scope.Conn.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

func (r *sessionRepository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*models.Session, error) {
	scope, ok := database.GetCompanyScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no company scope in context")
	}

	query := `SELECT ` + sessionColumns + `
		FROM esg_sessions WHERE company_id = $1 ORDER BY updated_at DESC`

	rows, err := scope.Conn.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]*models.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}

func (r *sessionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.SessionStatus) error {
	scope, ok := database.GetCompanyScope(ctx)
	if !ok {
		return fmt.Errorf("no company scope in context")
	}

	query := `UPDATE esg_sessions SET status = $1, updated_at = NOW() WHERE id = $2`

	tag, err := scope.Conn.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *sessionRepository) UpdateTotals(ctx context.Context, id uuid.UUID, totals models.RunningTotals) error {
	scope, ok := database.GetCompanyScope(ctx)
	if !ok {
		return fmt.Errorf("no company scope in context")
	}

	totalsJSON, err := json.Marshal(totals)
	if err != nil {
		return fmt.Errorf("failed to marshal running totals: %w", err)
	}

	query := `UPDATE esg_sessions SET running_totals = $1, updated_at = NOW() WHERE id = $2`

	tag, err := scope.Conn.Exec(ctx, query, totalsJSON, id)
	if err != nil {
		return fmt.Errorf("failed to update running totals: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *sessionRepository) AppendMessage(ctx context.Context, msg *models.Message) error {
	scope, ok := database.GetCompanyScope(ctx)
	if !ok {
		return fmt.Errorf("no company scope in context")
	}

	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.ValidationStatus == "" {
		msg.ValidationStatus = models.ValidationPending
	}
	msg.CreatedAt = time.Now()

	var extractedJSON []byte
	if msg.ExtractedData != nil {
		var err error
		extractedJSON, err = json.Marshal(msg.ExtractedData)
		if err != nil {
			return fmt.Errorf("failed to marshal extracted data: %w", err)
		}
	}
	var changesJSON []byte
	if len(msg.FootprintChanges) > 0 {
		var err error
		changesJSON, err = json.Marshal(msg.FootprintChanges)
		if err != nil {
			return fmt.Errorf("failed to marshal footprint changes: %w", err)
		}
	}

	query := `
		INSERT INTO esg_session_messages (
			id, session_id, role, content, extracted_data, confidence,
			validation_status, footprint_updated, footprint_changes,
			source_message_id, processing_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := scope.Conn.Exec(ctx, query,
		msg.ID, msg.SessionID, msg.Role, msg.Content, extractedJSON, msg.Confidence,
		msg.ValidationStatus, msg.FootprintUpdated, changesJSON,
		msg.SourceMessageID, msg.ProcessingMs, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}

	return nil
}

func (r *sessionRepository) GetRecentMessages(ctx context.Context, sessionID uuid.UUID, limit int) ([]*models.Message, error) {
	scope, ok := database.GetCompanyScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no company scope in context")
	}

	query := `
		SELECT id, session_id, role, content, extracted_data, confidence,
			validation_status, footprint_updated, footprint_changes,
			source_message_id, processing_ms, created_at
		FROM esg_session_messages
		WHERE session_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	rows, err := scope.Conn.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*models.Message, 0, limit)
	for rows.Next() {
		var msg models.Message
		var extractedJSON, changesJSON []byte
		err := rows.Scan(
			&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &extractedJSON, &msg.Confidence,
			&msg.ValidationStatus, &msg.FootprintUpdated, &changesJSON,
			&msg.SourceMessageID, &msg.ProcessingMs, &msg.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if len(extractedJSON) > 0 {
			if err := json.Unmarshal(extractedJSON, &msg.ExtractedData); err != nil {
				return nil, fmt.Errorf("failed to unmarshal extracted data: %w", err)
			}
		}
		if len(changesJSON) > 0 {
			if err := json.Unmarshal(changesJSON, &msg.FootprintChanges); err != nil {
				return nil, fmt.Errorf("failed to unmarshal footprint changes: %w", err)
			}
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	// Reverse into chronological order for prompt assembly.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (r *sessionRepository) CountMessages(ctx context.Context, sessionID uuid.UUID) (int, error) {
	scope, ok := database.GetCompanyScope(ctx)
	if !ok {
		return 0, fmt.Errorf("no company scope in context")
	}

	var count int
	err := scope.Conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM esg_session_messages WHERE session_id = $1`, sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}

	return count, nil
}

func scanSession(row pgx.Row) (*models.Session, error) {
	var session models.Session
	var contextJSON, totalsJSON []byte
	err := row.Scan(
		&session.ID, &session.CompanyID, &session.FootprintID, &session.CreatorID,
		&session.Participants, &session.Status, &contextJSON, &totalsJSON,
		&session.CreatedAt, &session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(contextJSON) > 0 {
		if err := json.Unmarshal(contextJSON, &session.Context); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session context: %w", err)
		}
	}
	if len(totalsJSON) > 0 {
		if err := json.Unmarshal(totalsJSON, &session.Totals); err != nil {
			return nil, fmt.Errorf("failed to unmarshal running totals: %w", err)
		}
	}
	return &session, nil
}
