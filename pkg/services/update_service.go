package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verdantiq/esg-engine/pkg/apperrors"
	"github.com/verdantiq/esg-engine/pkg/audit"
	"github.com/verdantiq/esg-engine/pkg/models"
	"github.com/verdantiq/esg-engine/pkg/repositories"
	"github.com/verdantiq/esg-engine/pkg/retry"
)

// FieldUpdate is one requested mutation of a scope column.
type FieldUpdate struct {
	Operation            models.UpdateOperation `json:"operation"`
	Value                float64                `json:"value"`
	Source               string                 `json:"source,omitempty"`
	Confidence           *float64               `json:"confidence,omitempty"` // 0-100
	RequiresConfirmation bool                   `json:"requires_confirmation"`
	ActivityType         models.ActivityKind    `json:"activity_type,omitempty"`
	Quantity             float64                `json:"quantity,omitempty"`
	Unit                 string                 `json:"unit,omitempty"`
}

// UpdateRequest carries all mutations of one update call. All field updates
// commit atomically or not at all.
type UpdateRequest struct {
	FootprintID     uuid.UUID
	Updates         map[models.ScopeField]FieldUpdate
	Confirmed       bool
	SessionID       *uuid.UUID
	SourceMessageID *uuid.UUID
}

// UpdateResult reports the committed state and the per-field audit trail.
type UpdateResult struct {
	Footprint *models.Footprint
	Changes   map[models.ScopeField]models.FieldChange
	Message   *models.Message // audit message, present when a session was linked
}

// UpdateService applies confirmed extraction results to the footprint
// aggregate under optimistic concurrency.
type UpdateService interface {
	Apply(ctx context.Context, companyID uuid.UUID, req *UpdateRequest) (*UpdateResult, error)
}

type updateService struct {
	footprints repositories.FootprintRepository
	sessions   repositories.SessionRepository
	series     repositories.SeriesRepository
	trail      *audit.Trail
	logger     *zap.Logger
}

// NewUpdateService creates a new UpdateService.
func NewUpdateService(
	footprints repositories.FootprintRepository,
	sessions repositories.SessionRepository,
	series repositories.SeriesRepository,
	logger *zap.Logger,
) UpdateService {
	return &updateService{
		footprints: footprints,
		sessions:   sessions,
		series:     series,
		trail:      audit.NewTrail(logger),
		logger:     logger.Named("update-service"),
	}
}

var _ UpdateService = (*updateService)(nil)

func (s *updateService) Apply(ctx context.Context, companyID uuid.UUID, req *UpdateRequest) (*UpdateResult, error) {
	if len(req.Updates) == 0 {
		return nil, fmt.Errorf("no updates provided")
	}
	for field, update := range req.Updates {
		if !models.IsValidScopeField(field) {
			return nil, fmt.Errorf("invalid scope field: %s", field)
		}
		if !models.IsValidUpdateOperation(update.Operation) {
			return nil, fmt.Errorf("invalid operation: %s", update.Operation)
		}
		if !req.Confirmed && update.RequiresConfirmation {
			return nil, apperrors.ErrNeedsConfirmation
		}
	}

	var session *models.Session
	if req.SessionID != nil {
		var err error
		session, err = s.sessions.GetByID(ctx, *req.SessionID)
		if err != nil {
			return nil, err
		}
		if session.Status.IsTerminal() {
			return nil, apperrors.ErrSessionTerminal
		}
	}

	footprint, changes, err := s.applyWithRetry(ctx, req)
	if err != nil {
		return nil, err
	}

	result := &UpdateResult{Footprint: footprint, Changes: changes}

	for field, change := range changes {
		s.trail.LogFootprintUpdate(ctx, companyID, audit.FootprintUpdateDetails{
			FootprintID: footprint.ID,
			SessionID:   req.SessionID,
			Field:       string(field),
			Operation:   string(req.Updates[field].Operation),
			Previous:    change.Previous,
			New:         change.New,
			Delta:       change.Delta,
			Version:     footprint.Version,
			Confirmed:   req.Confirmed,
		})
	}

	s.recordEntries(ctx, footprint, req, changes)

	if session != nil {
		result.Message = s.appendAuditMessage(ctx, session, req, changes)
		s.updateRunningTotals(ctx, session, req, changes)
	}

	return result, nil
}

// applyWithRetry runs the read-compute-CAS cycle. A conflicting writer
// triggers a fresh read and a reapplication of the requested deltas; any
// other failure aborts immediately.
func (s *updateService) applyWithRetry(ctx context.Context, req *UpdateRequest) (*models.Footprint, map[models.ScopeField]models.FieldChange, error) {
	var footprint *models.Footprint
	var changes map[models.ScopeField]models.FieldChange
	var fatal error

	err := retry.Do(ctx, retry.FastConfig(), func() error {
		fp, err := s.footprints.GetByID(ctx, req.FootprintID)
		if err != nil {
			fatal = err
			return nil
		}
		expectedVersion := fp.Version

		applied := make(map[models.ScopeField]models.FieldChange, len(req.Updates))
		for field, update := range req.Updates {
			applied[field] = applyOperation(fp, field, update)
		}
		fp.RecomputeTotal()

		if err := fp.CheckInvariant(); err != nil {
			s.logger.Error("Footprint invariant violated, rolling back",
				zap.String("footprint_id", fp.ID.String()),
				zap.Error(err))
			fatal = fmt.Errorf("%w: %s", apperrors.ErrInvariantViolation, err)
			return nil
		}

		if err := s.footprints.UpdateScopes(ctx, fp, expectedVersion); err != nil {
			if errors.Is(err, apperrors.ErrConflict) {
				return err // retry with fresh state
			}
			fatal = err
			return nil
		}

		footprint = fp
		changes = applied
		return nil
	})

	if fatal != nil {
		return nil, nil, fatal
	}
	if err != nil {
		// Retries exhausted on version conflicts.
		return nil, nil, apperrors.ErrConflict
	}
	return footprint, changes, nil
}

// applyOperation mutates one scope field and returns the audit record.
// Results below zero are clamped to the floor; the caller's requested value
// survives in the change record.
func applyOperation(fp *models.Footprint, field models.ScopeField, update FieldUpdate) models.FieldChange {
	previous := fp.ScopeValue(field)

	var requested float64
	switch update.Operation {
	case models.OperationAdd:
		requested = previous + update.Value
	case models.OperationSubtract:
		requested = previous - update.Value
	case models.OperationSet:
		requested = update.Value
	}

	newValue := requested
	var clamped bool
	if newValue < 0 {
		newValue = 0
		clamped = true
	}

	fp.SetScopeValue(field, newValue)
	newValue = fp.ScopeValue(field)

	change := models.FieldChange{
		Previous: previous,
		New:      newValue,
		Delta:    models.Round2(newValue - previous),
	}
	if clamped {
		r := models.Round2(requested)
		change.Requested = &r
	}
	return change
}

// recordEntries appends activity entries for updates that named an activity
// type. Entry failures are logged, not surfaced: the footprint mutation has
// already committed and the series is a derived projection.
func (s *updateService) recordEntries(ctx context.Context, fp *models.Footprint, req *UpdateRequest, changes map[models.ScopeField]models.FieldChange) {
	for field, update := range req.Updates {
		if !models.IsValidActivityKind(update.ActivityType) {
			continue
		}
		change := changes[field]
		if change.Delta == 0 {
			continue
		}

		entry := &models.ActivityEntry{
			CompanyID:       fp.CompanyID,
			FootprintID:     fp.ID,
			ActivityType:    update.ActivityType,
			ReportingPeriod: time.Now().Format("2006-01"),
			Quantity:        update.Quantity,
			Unit:            update.Unit,
			Emissions:       change.Delta,
			SourceMessageID: req.SourceMessageID,
		}
		if err := s.series.RecordEntry(ctx, entry); err != nil {
			s.logger.Warn("Failed to record activity entry",
				zap.String("footprint_id", fp.ID.String()),
				zap.String("activity", string(update.ActivityType)),
				zap.Error(err))
		}
	}
}

func (s *updateService) appendAuditMessage(ctx context.Context, session *models.Session, req *UpdateRequest, changes map[models.ScopeField]models.FieldChange) *models.Message {
	var parts []string
	for field, change := range changes {
		parts = append(parts, fmt.Sprintf("%s %.2f → %.2f tCO2e (%+.2f)", field, change.Previous, change.New, change.Delta))
	}

	msg := &models.Message{
		SessionID:        session.ID,
		Role:             models.MessageRoleAssistant,
		Content:          "Applied footprint update: " + strings.Join(parts, "; ") + ".",
		ValidationStatus: models.ValidationValidated,
		FootprintUpdated: true,
		FootprintChanges: changes,
		SourceMessageID:  req.SourceMessageID,
	}
	if err := s.sessions.AppendMessage(ctx, msg); err != nil {
		s.logger.Warn("Failed to append audit message",
			zap.String("session_id", session.ID.String()),
			zap.Error(err))
		return nil
	}
	return msg
}

func (s *updateService) updateRunningTotals(ctx context.Context, session *models.Session, req *UpdateRequest, changes map[models.ScopeField]models.FieldChange) {
	totals := session.Totals

	var deltaSum float64
	for _, change := range changes {
		deltaSum += change.Delta
	}
	totals.EmissionsAdded = models.Round2(totals.EmissionsAdded + deltaSum)

	// One call counts as one entry, so its confidences fold into a single
	// running-mean step.
	var confSum float64
	var confN int
	for _, update := range req.Updates {
		if update.Confidence != nil {
			confSum += *update.Confidence
			confN++
		}
	}
	if confN > 0 {
		callAvg := confSum / float64(confN)
		totals.AverageConfidence = (totals.AverageConfidence*float64(totals.EntriesCount) + callAvg) / float64(totals.EntriesCount+1)
	}
	totals.EntriesCount++

	if err := s.sessions.UpdateTotals(ctx, session.ID, totals); err != nil {
		s.logger.Warn("Failed to update running totals",
			zap.String("session_id", session.ID.String()),
			zap.Error(err))
	}
}
