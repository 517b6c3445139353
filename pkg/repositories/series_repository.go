package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/verdantiq/esg-engine/pkg/database"
	"github.com/verdantiq/esg-engine/pkg/models"
)

// SeriesRepository reads historical activity entries for prediction and
// completeness scoring. Entries are written as a side effect of confirmed
// footprint updates and form the company's monthly time series.
type SeriesRepository interface {
	// RecordEntry appends one activity entry derived from a confirmed update.
	RecordEntry(ctx context.Context, entry *models.ActivityEntry) error

	// GetActivitySeries returns monthly tCO2e buckets for one activity type,
	// oldest first, covering at most monthsBack months.
	GetActivitySeries(ctx context.Context, companyID uuid.UUID, activity models.ActivityKind, monthsBack int) ([]models.SeriesPoint, error)

	// CountMonthlyDataPoints counts distinct months with at least one entry.
	CountMonthlyDataPoints(ctx context.Context, companyID uuid.UUID) (int, error)

	CountDocuments(ctx context.Context, companyID uuid.UUID) (int, error)

	// ReportedActivities lists the distinct activity types a company has
	// recorded entries for in a reporting period.
	ReportedActivities(ctx context.Context, companyID uuid.UUID, period string) ([]models.ActivityKind, error)
}

type seriesRepository struct{}

// NewSeriesRepository creates a new SeriesRepository.
func NewSeriesRepository() SeriesRepository {
	return &seriesRepository{}
}

var _ SeriesRepository = (*seriesRepository)(nil)

func (r *seriesRepository) RecordEntry(ctx context.Context, entry *models.ActivityEntry) error {
	scope, ok := database.GetCompanyScope(ctx)
	if !ok {
		return fmt.Errorf("no company scope in context")
	}

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now()

	query := `
		INSERT INTO esg_activity_entries (
			id, company_id, footprint_id, activity_type, reporting_period,
			quantity, unit, emissions, source_message_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := scope.Conn.Exec(ctx, query,
		entry.ID, entry.CompanyID, entry.FootprintID, entry.ActivityType, entry.ReportingPeriod,
		entry.Quantity, entry.Unit, entry.Emissions, entry.SourceMessageID, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record activity entry: %w", err)
	}

	return nil
}

func (r *seriesRepository) GetActivitySeries(ctx context.Context, companyID uuid.UUID, activity models.ActivityKind, monthsBack int) ([]models.SeriesPoint, error) {
	scope, ok := database.GetCompanyScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no company scope in context")
	}

	query := `
		SELECT reporting_period,
			MIN(created_at) AS first_seen,
			SUM(emissions) AS total
		FROM esg_activity_entries
		WHERE company_id = $1 AND activity_type = $2
			AND created_at >= NOW() - ($3 * INTERVAL '1 month')
		GROUP BY reporting_period
		ORDER BY reporting_period`

	rows, err := scope.Conn.Query(ctx, query, companyID, activity, monthsBack)
	if err != nil {
		return nil, fmt.Errorf("failed to get activity series: %w", err)
	}
	defer rows.Close()

	points := make([]models.SeriesPoint, 0)
	for rows.Next() {
		var p models.SeriesPoint
		if err := rows.Scan(&p.Period, &p.Date, &p.Value); err != nil {
			return nil, fmt.Errorf("failed to scan series point: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating series points: %w", err)
	}

	return points, nil
}

func (r *seriesRepository) CountMonthlyDataPoints(ctx context.Context, companyID uuid.UUID) (int, error) {
	scope, ok := database.GetCompanyScope(ctx)
	if !ok {
		return 0, fmt.Errorf("no company scope in context")
	}

	var count int
	err := scope.Conn.QueryRow(ctx,
		`SELECT COUNT(DISTINCT reporting_period) FROM esg_activity_entries WHERE company_id = $1`,
		companyID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count monthly data points: %w", err)
	}

	return count, nil
}

func (r *seriesRepository) CountDocuments(ctx context.Context, companyID uuid.UUID) (int, error) {
	scope, ok := database.GetCompanyScope(ctx)
	if !ok {
		return 0, fmt.Errorf("no company scope in context")
	}

	var count int
	err := scope.Conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM esg_documents WHERE company_id = $1`, companyID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}

	return count, nil
}

func (r *seriesRepository) ReportedActivities(ctx context.Context, companyID uuid.UUID, period string) ([]models.ActivityKind, error) {
	scope, ok := database.GetCompanyScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no company scope in context")
	}

	query := `
		SELECT DISTINCT activity_type
		FROM esg_activity_entries
		WHERE company_id = $1 AND reporting_period = $2`

	rows, err := scope.Conn.Query(ctx, query, companyID, period)
	if err != nil {
		return nil, fmt.Errorf("failed to list reported activities: %w", err)
	}
	defer rows.Close()

	activities := make([]models.ActivityKind, 0)
	for rows.Next() {
		var a models.ActivityKind
		if err := rows.Scan(&a); err != nil {
			return nil, fmt.Errorf("failed to scan activity type: %w", err)
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activities: %w", err)
	}

	return activities, nil
}
