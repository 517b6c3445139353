package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verdantiq/esg-engine/pkg/apperrors"
	"github.com/verdantiq/esg-engine/pkg/audit"
	"github.com/verdantiq/esg-engine/pkg/models"
	"github.com/verdantiq/esg-engine/pkg/repositories"
)

// sessionHistoryLimit bounds how many messages a session detail read returns.
const sessionHistoryLimit = 200

// SessionService manages conversation session lifecycle.
type SessionService interface {
	Get(ctx context.Context, sessionID uuid.UUID) (*models.Session, []*models.Message, error)
	List(ctx context.Context, companyID uuid.UUID) ([]*models.Session, error)
	// UpdateStatus transitions the session. Terminal sessions (approved,
	// cancelled) reject all further transitions.
	UpdateStatus(ctx context.Context, sessionID uuid.UUID, status models.SessionStatus) (*models.Session, error)
}

type sessionService struct {
	sessions repositories.SessionRepository
	trail    *audit.Trail
	logger   *zap.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(sessions repositories.SessionRepository, logger *zap.Logger) SessionService {
	return &sessionService{
		sessions: sessions,
		trail:    audit.NewTrail(logger),
		logger:   logger.Named("session-service"),
	}
}

var _ SessionService = (*sessionService)(nil)

func (s *sessionService) Get(ctx context.Context, sessionID uuid.UUID) (*models.Session, []*models.Message, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	messages, err := s.sessions.GetRecentMessages(ctx, sessionID, sessionHistoryLimit)
	if err != nil {
		return nil, nil, err
	}
	return session, messages, nil
}

func (s *sessionService) List(ctx context.Context, companyID uuid.UUID) ([]*models.Session, error) {
	return s.sessions.ListByCompany(ctx, companyID)
}

func (s *sessionService) UpdateStatus(ctx context.Context, sessionID uuid.UUID, status models.SessionStatus) (*models.Session, error) {
	if !models.IsValidSessionStatus(status) {
		return nil, fmt.Errorf("invalid session status: %s", status)
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status.IsTerminal() {
		return nil, apperrors.ErrSessionTerminal
	}
	if session.Status == status {
		return session, nil
	}

	if err := s.sessions.UpdateStatus(ctx, sessionID, status); err != nil {
		return nil, err
	}

	s.trail.LogSessionStatusChange(ctx, session.CompanyID, audit.StatusChangeDetails{
		SessionID: sessionID,
		From:      string(session.Status),
		To:        string(status),
	})

	session.Status = status
	return session, nil
}
