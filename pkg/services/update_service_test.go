package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/verdantiq/esg-engine/pkg/apperrors"
	"github.com/verdantiq/esg-engine/pkg/models"
)

func testFootprint(scope1, scope2, scope3 float64) *models.Footprint {
	fp := &models.Footprint{
		ID:              uuid.New(),
		CompanyID:       uuid.New(),
		ReportingPeriod: "2025-Q3",
		Scope1:          scope1,
		Scope2:          scope2,
		Scope3:          scope3,
		Status:          models.FootprintStatusDraft,
		Version:         1,
	}
	fp.RecomputeTotal()
	return fp
}

func newTestUpdateService(fps *mockFootprintRepo, sessions *mockSessionRepo, series *mockSeriesRepo) UpdateService {
	return NewUpdateService(fps, sessions, series, zap.NewNop())
}

func TestUpdateService_Apply_Add(t *testing.T) {
	fp := testFootprint(10.00, 22.00, 0)
	repo := newMockFootprintRepo(fp)
	svc := newTestUpdateService(repo, newMockSessionRepo(), &mockSeriesRepo{})

	result, err := svc.Apply(context.Background(), fp.CompanyID, &UpdateRequest{
		FootprintID: fp.ID,
		Confirmed:   true,
		Updates: map[models.ScopeField]FieldUpdate{
			models.FieldScope2: {Operation: models.OperationAdd, Value: 2.27},
		},
	})
	require.NoError(t, err)

	assert.InDelta(t, 24.27, result.Footprint.Scope2, 0.001)
	assert.InDelta(t, 34.27, result.Footprint.Total, 0.001)
	assert.Equal(t, int64(2), result.Footprint.Version)

	change := result.Changes[models.FieldScope2]
	assert.InDelta(t, 22.00, change.Previous, 0.001)
	assert.InDelta(t, 24.27, change.New, 0.001)
	assert.InDelta(t, 2.27, change.Delta, 0.001)
	assert.Nil(t, change.Requested)
}

func TestUpdateService_Apply_SetIsIdempotent(t *testing.T) {
	fp := testFootprint(5, 10, 0)
	repo := newMockFootprintRepo(fp)
	svc := newTestUpdateService(repo, newMockSessionRepo(), &mockSeriesRepo{})

	req := &UpdateRequest{
		FootprintID: fp.ID,
		Confirmed:   true,
		Updates: map[models.ScopeField]FieldUpdate{
			models.FieldScope2: {Operation: models.OperationSet, Value: 18.5},
		},
	}

	first, err := svc.Apply(context.Background(), fp.CompanyID, req)
	require.NoError(t, err)
	assert.InDelta(t, 18.5, first.Footprint.Scope2, 0.001)
	assert.InDelta(t, 8.5, first.Changes[models.FieldScope2].Delta, 0.001)

	second, err := svc.Apply(context.Background(), fp.CompanyID, req)
	require.NoError(t, err)
	assert.InDelta(t, 18.5, second.Footprint.Scope2, 0.001)
	assert.InDelta(t, 0, second.Changes[models.FieldScope2].Delta, 0.001)
}

func TestUpdateService_Apply_SubtractClampsAtZero(t *testing.T) {
	fp := testFootprint(5.00, 0, 0)
	repo := newMockFootprintRepo(fp)
	svc := newTestUpdateService(repo, newMockSessionRepo(), &mockSeriesRepo{})

	result, err := svc.Apply(context.Background(), fp.CompanyID, &UpdateRequest{
		FootprintID: fp.ID,
		Confirmed:   true,
		Updates: map[models.ScopeField]FieldUpdate{
			models.FieldScope1: {Operation: models.OperationSubtract, Value: 8.00},
		},
	})
	require.NoError(t, err)

	change := result.Changes[models.FieldScope1]
	assert.Equal(t, float64(0), result.Footprint.Scope1)
	assert.InDelta(t, -5.00, change.Delta, 0.001)
	require.NotNil(t, change.Requested)
	assert.InDelta(t, -3.00, *change.Requested, 0.001)
}

func TestUpdateService_Apply_AddThenSubtractRestores(t *testing.T) {
	fp := testFootprint(0, 12.34, 0)
	repo := newMockFootprintRepo(fp)
	svc := newTestUpdateService(repo, newMockSessionRepo(), &mockSeriesRepo{})

	_, err := svc.Apply(context.Background(), fp.CompanyID, &UpdateRequest{
		FootprintID: fp.ID,
		Confirmed:   true,
		Updates: map[models.ScopeField]FieldUpdate{
			models.FieldScope2: {Operation: models.OperationAdd, Value: 4.5},
		},
	})
	require.NoError(t, err)

	result, err := svc.Apply(context.Background(), fp.CompanyID, &UpdateRequest{
		FootprintID: fp.ID,
		Confirmed:   true,
		Updates: map[models.ScopeField]FieldUpdate{
			models.FieldScope2: {Operation: models.OperationSubtract, Value: 4.5},
		},
	})
	require.NoError(t, err)
	assert.InDelta(t, 12.34, result.Footprint.Scope2, 0.001)
	require.NoError(t, result.Footprint.CheckInvariant())
}

func TestUpdateService_Apply_UnconfirmedRejected(t *testing.T) {
	fp := testFootprint(0, 10, 0)
	repo := newMockFootprintRepo(fp)
	svc := newTestUpdateService(repo, newMockSessionRepo(), &mockSeriesRepo{})

	_, err := svc.Apply(context.Background(), fp.CompanyID, &UpdateRequest{
		FootprintID: fp.ID,
		Confirmed:   false,
		Updates: map[models.ScopeField]FieldUpdate{
			models.FieldScope2: {Operation: models.OperationAdd, Value: 2, RequiresConfirmation: true},
		},
	})
	require.ErrorIs(t, err, apperrors.ErrNeedsConfirmation)

	// Nothing committed.
	stored, _ := repo.GetByID(context.Background(), fp.ID)
	assert.InDelta(t, 10, stored.Scope2, 0.001)
	assert.Equal(t, int64(1), stored.Version)
	assert.Equal(t, 0, repo.updateCalls)
}

func TestUpdateService_Apply_InvalidField(t *testing.T) {
	fp := testFootprint(0, 0, 0)
	svc := newTestUpdateService(newMockFootprintRepo(fp), newMockSessionRepo(), &mockSeriesRepo{})

	_, err := svc.Apply(context.Background(), fp.CompanyID, &UpdateRequest{
		FootprintID: fp.ID,
		Confirmed:   true,
		Updates: map[models.ScopeField]FieldUpdate{
			"total_emissions": {Operation: models.OperationSet, Value: 100},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid scope field")
}

func TestUpdateService_Apply_InvalidOperation(t *testing.T) {
	fp := testFootprint(0, 0, 0)
	svc := newTestUpdateService(newMockFootprintRepo(fp), newMockSessionRepo(), &mockSeriesRepo{})

	_, err := svc.Apply(context.Background(), fp.CompanyID, &UpdateRequest{
		FootprintID: fp.ID,
		Confirmed:   true,
		Updates: map[models.ScopeField]FieldUpdate{
			models.FieldScope1: {Operation: "multiply", Value: 2},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid operation")
}

func TestUpdateService_Apply_NoUpdates(t *testing.T) {
	svc := newTestUpdateService(newMockFootprintRepo(), newMockSessionRepo(), &mockSeriesRepo{})

	_, err := svc.Apply(context.Background(), uuid.New(), &UpdateRequest{FootprintID: uuid.New()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no updates")
}

func TestUpdateService_Apply_ConflictRetriesWithFreshState(t *testing.T) {
	fp := testFootprint(0, 20, 0)
	repo := newMockFootprintRepo(fp)
	repo.conflictsRemaining = 1
	svc := newTestUpdateService(repo, newMockSessionRepo(), &mockSeriesRepo{})

	result, err := svc.Apply(context.Background(), fp.CompanyID, &UpdateRequest{
		FootprintID: fp.ID,
		Confirmed:   true,
		Updates: map[models.ScopeField]FieldUpdate{
			models.FieldScope2: {Operation: models.OperationAdd, Value: 3},
		},
	})
	require.NoError(t, err)

	// First attempt conflicted, second re-read and committed.
	assert.Equal(t, 2, repo.updateCalls)
	assert.InDelta(t, 23, result.Footprint.Scope2, 0.001)
	assert.Equal(t, int64(3), result.Footprint.Version)
}

func TestUpdateService_Apply_ConflictExhaustsRetries(t *testing.T) {
	fp := testFootprint(0, 20, 0)
	repo := newMockFootprintRepo(fp)
	repo.conflictsRemaining = 100
	svc := newTestUpdateService(repo, newMockSessionRepo(), &mockSeriesRepo{})

	_, err := svc.Apply(context.Background(), fp.CompanyID, &UpdateRequest{
		FootprintID: fp.ID,
		Confirmed:   true,
		Updates: map[models.ScopeField]FieldUpdate{
			models.FieldScope2: {Operation: models.OperationAdd, Value: 3},
		},
	})
	require.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestUpdateService_Apply_FootprintNotFound(t *testing.T) {
	svc := newTestUpdateService(newMockFootprintRepo(), newMockSessionRepo(), &mockSeriesRepo{})

	_, err := svc.Apply(context.Background(), uuid.New(), &UpdateRequest{
		FootprintID: uuid.New(),
		Confirmed:   true,
		Updates: map[models.ScopeField]FieldUpdate{
			models.FieldScope1: {Operation: models.OperationSet, Value: 5},
		},
	})
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUpdateService_Apply_TerminalSessionRejected(t *testing.T) {
	fp := testFootprint(0, 10, 0)
	session := &models.Session{ID: uuid.New(), CompanyID: fp.CompanyID, Status: models.SessionStatusApproved}
	svc := newTestUpdateService(newMockFootprintRepo(fp), newMockSessionRepo(session), &mockSeriesRepo{})

	_, err := svc.Apply(context.Background(), fp.CompanyID, &UpdateRequest{
		FootprintID: fp.ID,
		Confirmed:   true,
		SessionID:   &session.ID,
		Updates: map[models.ScopeField]FieldUpdate{
			models.FieldScope2: {Operation: models.OperationAdd, Value: 1},
		},
	})
	require.ErrorIs(t, err, apperrors.ErrSessionTerminal)
}

func TestUpdateService_Apply_RecordsActivityEntry(t *testing.T) {
	fp := testFootprint(0, 22, 0)
	series := &mockSeriesRepo{}
	svc := newTestUpdateService(newMockFootprintRepo(fp), newMockSessionRepo(), series)

	msgID := uuid.New()
	_, err := svc.Apply(context.Background(), fp.CompanyID, &UpdateRequest{
		FootprintID:     fp.ID,
		Confirmed:       true,
		SourceMessageID: &msgID,
		Updates: map[models.ScopeField]FieldUpdate{
			models.FieldScope2: {
				Operation:    models.OperationAdd,
				Value:        2.27,
				ActivityType: models.ActivityElectricity,
				Quantity:     5000,
				Unit:         "kWh",
			},
		},
	})
	require.NoError(t, err)

	require.Len(t, series.entries, 1)
	entry := series.entries[0]
	assert.Equal(t, models.ActivityElectricity, entry.ActivityType)
	assert.Equal(t, float64(5000), entry.Quantity)
	assert.Equal(t, "kWh", entry.Unit)
	assert.InDelta(t, 2.27, entry.Emissions, 0.001)
	assert.Equal(t, &msgID, entry.SourceMessageID)
}

func TestUpdateService_Apply_NoEntryWithoutActivity(t *testing.T) {
	fp := testFootprint(0, 22, 0)
	series := &mockSeriesRepo{}
	svc := newTestUpdateService(newMockFootprintRepo(fp), newMockSessionRepo(), series)

	_, err := svc.Apply(context.Background(), fp.CompanyID, &UpdateRequest{
		FootprintID: fp.ID,
		Confirmed:   true,
		Updates: map[models.ScopeField]FieldUpdate{
			models.FieldScope2: {Operation: models.OperationAdd, Value: 2.27},
		},
	})
	require.NoError(t, err)
	assert.Empty(t, series.entries)
}

func TestUpdateService_Apply_EntryFailureDoesNotFail(t *testing.T) {
	fp := testFootprint(0, 22, 0)
	series := &mockSeriesRepo{recordErr: assert.AnError}
	svc := newTestUpdateService(newMockFootprintRepo(fp), newMockSessionRepo(), series)

	result, err := svc.Apply(context.Background(), fp.CompanyID, &UpdateRequest{
		FootprintID: fp.ID,
		Confirmed:   true,
		Updates: map[models.ScopeField]FieldUpdate{
			models.FieldScope2: {
				Operation:    models.OperationAdd,
				Value:        1.5,
				ActivityType: models.ActivityElectricity,
			},
		},
	})
	require.NoError(t, err)
	assert.InDelta(t, 23.5, result.Footprint.Scope2, 0.001)
}

func TestUpdateService_Apply_SessionAuditTrail(t *testing.T) {
	fp := testFootprint(0, 22.00, 0)
	session := &models.Session{ID: uuid.New(), CompanyID: fp.CompanyID, Status: models.SessionStatusActive}
	sessions := newMockSessionRepo(session)
	svc := newTestUpdateService(newMockFootprintRepo(fp), sessions, &mockSeriesRepo{})

	confidence := 95.0
	result, err := svc.Apply(context.Background(), fp.CompanyID, &UpdateRequest{
		FootprintID: fp.ID,
		Confirmed:   true,
		SessionID:   &session.ID,
		Updates: map[models.ScopeField]FieldUpdate{
			models.FieldScope2: {Operation: models.OperationAdd, Value: 2.27, Confidence: &confidence},
		},
	})
	require.NoError(t, err)

	require.NotNil(t, result.Message)
	assert.Equal(t, models.MessageRoleAssistant, result.Message.Role)
	assert.Contains(t, result.Message.Content, "Applied footprint update:")
	assert.Contains(t, result.Message.Content, "scope2_emissions 22.00 → 24.27 tCO2e (+2.27)")
	assert.True(t, result.Message.FootprintUpdated)
	assert.Equal(t, models.ValidationValidated, result.Message.ValidationStatus)

	assert.InDelta(t, 2.27, session.Totals.EmissionsAdded, 0.001)
	assert.Equal(t, 1, session.Totals.EntriesCount)
	assert.InDelta(t, 95.0, session.Totals.AverageConfidence, 0.001)
}

func TestUpdateService_Apply_MultiFieldConfidenceAverages(t *testing.T) {
	fp := testFootprint(5.00, 22.00, 0)
	session := &models.Session{ID: uuid.New(), CompanyID: fp.CompanyID, Status: models.SessionStatusActive}
	sessions := newMockSessionRepo(session)
	svc := newTestUpdateService(newMockFootprintRepo(fp), sessions, &mockSeriesRepo{})

	high := 90.0
	low := 70.0
	_, err := svc.Apply(context.Background(), fp.CompanyID, &UpdateRequest{
		FootprintID: fp.ID,
		Confirmed:   true,
		SessionID:   &session.ID,
		Updates: map[models.ScopeField]FieldUpdate{
			models.FieldScope1: {Operation: models.OperationAdd, Value: 1.0, Confidence: &high},
			models.FieldScope2: {Operation: models.OperationAdd, Value: 2.0, Confidence: &low},
		},
	})
	require.NoError(t, err)

	// Both confidences weigh into the single entry the call produced.
	assert.Equal(t, 1, session.Totals.EntriesCount)
	assert.InDelta(t, 80.0, session.Totals.AverageConfidence, 0.001)

	confidence := 60.0
	_, err = svc.Apply(context.Background(), fp.CompanyID, &UpdateRequest{
		FootprintID: fp.ID,
		Confirmed:   true,
		SessionID:   &session.ID,
		Updates: map[models.ScopeField]FieldUpdate{
			models.FieldScope2: {Operation: models.OperationAdd, Value: 1.0, Confidence: &confidence},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, session.Totals.EntriesCount)
	assert.InDelta(t, 70.0, session.Totals.AverageConfidence, 0.001)
}
