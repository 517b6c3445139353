package repositories

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantiq/esg-engine/pkg/models"
	"github.com/verdantiq/esg-engine/pkg/testhelpers"
)

func TestSessionRepository_Integration_MessageLog(t *testing.T) {
	engine := testhelpers.GetEngineDB(t)
	companyID := testhelpers.CreateCompany(t, engine.DB, "Chat Co", "technology", 30)
	ctx := testhelpers.ScopedContext(t, engine.DB, companyID)
	repo := NewSessionRepository()

	session := &models.Session{
		CompanyID: companyID,
		CreatorID: uuid.New(),
		Status:    models.SessionStatusActive,
		Context:   map[string]any{"reporting_period": "2025-08"},
	}
	require.NoError(t, repo.CreateSession(ctx, session))

	for i := 0; i < 5; i++ {
		role := models.MessageRoleUser
		if i%2 == 1 {
			role = models.MessageRoleAssistant
		}
		require.NoError(t, repo.AppendMessage(ctx, &models.Message{
			SessionID: session.ID,
			Role:      role,
			Content:   fmt.Sprintf("message %d", i),
		}))
	}

	// The newest messages come back in chronological order.
	messages, err := repo.GetRecentMessages(ctx, session.ID, 3)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "message 2", messages[0].Content)
	assert.Equal(t, "message 3", messages[1].Content)
	assert.Equal(t, "message 4", messages[2].Content)

	count, err := repo.CountMessages(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestSessionRepository_Integration_TotalsRoundTrip(t *testing.T) {
	engine := testhelpers.GetEngineDB(t)
	companyID := testhelpers.CreateCompany(t, engine.DB, "Totals Co", "services", 12)
	ctx := testhelpers.ScopedContext(t, engine.DB, companyID)
	repo := NewSessionRepository()

	session := &models.Session{CompanyID: companyID, CreatorID: uuid.New(), Status: models.SessionStatusActive}
	require.NoError(t, repo.CreateSession(ctx, session))

	totals := models.RunningTotals{EmissionsAdded: 7.37, EntriesCount: 3, AverageConfidence: 91.5}
	require.NoError(t, repo.UpdateTotals(ctx, session.ID, totals))

	got, err := repo.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.InDelta(t, 7.37, got.Totals.EmissionsAdded, 0.001)
	assert.Equal(t, 3, got.Totals.EntriesCount)
	assert.InDelta(t, 91.5, got.Totals.AverageConfidence, 0.001)
}
