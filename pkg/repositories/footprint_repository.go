package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/verdantiq/esg-engine/pkg/apperrors"
	"github.com/verdantiq/esg-engine/pkg/database"
	"github.com/verdantiq/esg-engine/pkg/models"
)

// FootprintRepository provides data access for footprint aggregates.
type FootprintRepository interface {
	Create(ctx context.Context, fp *models.Footprint) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Footprint, error)
	GetByCompanyPeriod(ctx context.Context, companyID uuid.UUID, period string) (*models.Footprint, error)
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*models.Footprint, error)

	// UpdateScopes persists the scope columns with an optimistic version
	// check. Returns apperrors.ErrConflict when another writer committed
	// since expectedVersion was read; the footprint's Version is bumped on
	// success.
	UpdateScopes(ctx context.Context, fp *models.Footprint, expectedVersion int64) error
}

type footprintRepository struct{}

// NewFootprintRepository creates a new FootprintRepository.
func NewFootprintRepository() FootprintRepository {
	return &footprintRepository{}
}

var _ FootprintRepository = (*footprintRepository)(nil)

const footprintColumns = `id, company_id, reporting_period, scope1_emissions, scope2_emissions,
	scope3_emissions, total_emissions, status, version, created_at, updated_at, verified_at`

func (r *footprintRepository) Create(ctx context.Context, fp *models.Footprint) error {
	scope, ok := database.GetCompanyScope(ctx)
	if !ok {
		return fmt.Errorf("no company scope in context")
	}

	if fp.ID == uuid.Nil {
		fp.ID = uuid.New()
	}
	if fp.Status == "" {
		fp.Status = models.FootprintStatusDraft
	}
	fp.CreatedAt = time.Now()
	fp.UpdatedAt = fp.CreatedAt
	fp.Version = 1
	fp.RecomputeTotal()

	query := `
		INSERT INTO esg_footprints (
			id, company_id, reporting_period, scope1_emissions, scope2_emissions,
			scope3_emissions, total_emissions, status, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := scope.Conn.Exec(ctx, query,
		fp.ID, fp.CompanyID, fp.ReportingPeriod, fp.Scope1, fp.Scope2,
		fp.Scope3, fp.Total, fp.Status, fp.Version, fp.CreatedAt, fp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create footprint: %w", err)
	}

	return nil
}

func (r *footprintRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Footprint, error) {
	scope, ok := database.GetCompanyScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no company scope in context")
	}

	query := `SELECT ` + footprintColumns + ` FROM esg_footprints WHERE id = $1`

	fp, err := scanFootprint(scope.Conn.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get footprint: %w", err)
	}

	return fp, nil
}

func (r *footprintRepository) GetByCompanyPeriod(ctx context.Context, companyID uuid.UUID, period string) (*models.Footprint, error) {
	scope, ok := database.GetCompanyScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no company scope in context")
	}

	query := `SELECT ` + footprintColumns + `
		FROM esg_footprints WHERE company_id = $1 AND reporting_period = $2`

	fp, err := scanFootprint(scope.Conn.QueryRow(ctx, query, companyID, period))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get footprint: %w", err)
	}

	return fp, nil
}

func (r *footprintRepository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*models.Footprint, error) {
	scope, ok := database.GetCompanyScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no company scope in context")
	}

	query := `SELECT ` + footprintColumns + `
		FROM esg_footprints WHERE company_id = $1 ORDER BY reporting_period`

	rows, err := scope.Conn.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list footprints: %w", err)
	}
	defer rows.Close()

	footprints := make([]*models.Footprint, 0)
	for rows.Next() {
		fp, err := scanFootprint(rows)
		if err != nil {
			return nil, err
		}
		footprints = append(footprints, fp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating footprints: %w", err)
	}

	return footprints, nil
}

func (r *footprintRepository) UpdateScopes(ctx context.Context, fp *models.Footprint, expectedVersion int64) error {
	scope, ok := database.GetCompanyScope(ctx)
	if !ok {
		return fmt.Errorf("no company scope in context")
	}

	query := `
		UPDATE esg_footprints
		SET scope1_emissions = $1, scope2_emissions = $2, scope3_emissions = $3,
			total_emissions = $4, version = version + 1, updated_at = NOW()
		WHERE id = $5 AND version = $6`

	tag, err := scope.Conn.Exec(ctx, query,
		fp.Scope1, fp.Scope2, fp.Scope3, fp.Total, fp.ID, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update footprint: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the row is gone or another writer bumped the version.
		return apperrors.ErrConflict
	}

	fp.Version = expectedVersion + 1
	fp.UpdatedAt = time.Now()
	return nil
}

// scanFootprint reads one footprint from a row or rows cursor.
func scanFootprint(row pgx.Row) (*models.Footprint, error) {
	var fp models.Footprint
	err := row.Scan(
		&fp.ID, &fp.CompanyID, &fp.ReportingPeriod, &fp.Scope1, &fp.Scope2,
		&fp.Scope3, &fp.Total, &fp.Status, &fp.Version, &fp.CreatedAt, &fp.UpdatedAt,
		&fp.VerifiedAt,
	)
	if err != nil {
		return nil, err
	}
	return &fp, nil
}
