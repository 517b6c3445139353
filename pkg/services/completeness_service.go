package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verdantiq/esg-engine/pkg/models"
	"github.com/verdantiq/esg-engine/pkg/repositories"
)

// CompletenessService scores a footprint's activity coverage against the
// fixed per-scope taxonomy.
type CompletenessService interface {
	Score(ctx context.Context, companyID uuid.UUID, period string) (*models.CompletenessScore, error)
}

type completenessService struct {
	footprints repositories.FootprintRepository
	series     repositories.SeriesRepository
	logger     *zap.Logger
}

// NewCompletenessService creates a new CompletenessService.
func NewCompletenessService(footprints repositories.FootprintRepository, series repositories.SeriesRepository, logger *zap.Logger) CompletenessService {
	return &completenessService{
		footprints: footprints,
		series:     series,
		logger:     logger.Named("completeness-service"),
	}
}

var _ CompletenessService = (*completenessService)(nil)

func (s *completenessService) Score(ctx context.Context, companyID uuid.UUID, period string) (*models.CompletenessScore, error) {
	if _, err := s.footprints.GetByCompanyPeriod(ctx, companyID, period); err != nil {
		return nil, err
	}

	reported, err := s.series.ReportedActivities(ctx, companyID, period)
	if err != nil {
		s.logger.Error("Failed to load reported activities",
			zap.String("company_id", companyID.String()),
			zap.String("period", period),
			zap.Error(err))
		return nil, err
	}

	return ScoreActivities(reported), nil
}

// ScoreActivities computes the completeness score for a reported activity
// set. Exposed so guidance can score without a second repository round trip.
func ScoreActivities(reported []models.ActivityKind) *models.CompletenessScore {
	reportedSet := make(map[models.ActivityKind]bool, len(reported))
	for _, a := range reported {
		reportedSet[a] = true
	}

	score := &models.CompletenessScore{
		MissingActivities: []models.ActivityKind{},
		MissingByScope:    make(map[int][]models.ActivityKind, 3),
	}

	scopeScores := make(map[int]float64, 3)
	for scope := 1; scope <= 3; scope++ {
		required := models.RequiredActivities[scope]
		covered := 0
		missing := []models.ActivityKind{}
		for _, kind := range required {
			if reportedSet[kind] {
				covered++
			} else {
				missing = append(missing, kind)
			}
		}
		scopeScores[scope] = float64(covered) / float64(len(required))
		score.MissingByScope[scope] = missing
		score.MissingActivities = append(score.MissingActivities, missing...)
	}

	score.Scope1Score = scopeScores[1]
	score.Scope2Score = scopeScores[2]
	score.Scope3Score = scopeScores[3]
	score.OverallScore = models.Scope1Weight*score.Scope1Score +
		models.Scope2Weight*score.Scope2Score +
		models.Scope3Weight*score.Scope3Score
	score.Grade = models.GradeForScore(score.OverallScore)
	score.MeetsMinimum = score.Scope1Score >= models.MinimumScope1Score &&
		score.Scope2Score >= models.MinimumScope2Score &&
		score.Scope3Score >= models.MinimumScope3Score

	return score
}
