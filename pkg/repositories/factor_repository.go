package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/verdantiq/esg-engine/pkg/apperrors"
	"github.com/verdantiq/esg-engine/pkg/database"
	"github.com/verdantiq/esg-engine/pkg/models"
)

// FactorRepository provides access to the process-wide emission factor
// table. Factors are reference data, not company data, so this repository
// holds the pool directly instead of reading a company scope from context.
type FactorRepository interface {
	// Lookup resolves the best factor for an activity via the fallback
	// chain: exact (sub-category, region, year), then prior year, then the
	// global row for the year, then the newest global row, then the marked
	// default. Returns apperrors.ErrNotFound when the chain is exhausted.
	Lookup(ctx context.Context, activity models.ActivityKind, subCategory, regionCode string, year int) (*models.EmissionFactor, error)

	// IncrementUsage applies coalesced usage-counter deltas.
	IncrementUsage(ctx context.Context, deltas map[uuid.UUID]int64) error

	// UpsertSeed inserts or refreshes a seed row keyed on
	// (activity_type, sub_category, region_code, year).
	UpsertSeed(ctx context.Context, factor *models.EmissionFactor) error

	ListByActivity(ctx context.Context, activity models.ActivityKind) ([]*models.EmissionFactor, error)
}

type factorRepository struct {
	db *database.DB
}

// NewFactorRepository creates a new FactorRepository.
func NewFactorRepository(db *database.DB) FactorRepository {
	return &factorRepository{db: db}
}

var _ FactorRepository = (*factorRepository)(nil)

const factorColumns = `id, activity_type, sub_category, region_scope, region_code, year,
	factor_value, unit, confidence, co2_pct, ch4_pct, n2o_pct, is_default, usage_count, updated_at`

func (r *factorRepository) Lookup(ctx context.Context, activity models.ActivityKind, subCategory, regionCode string, year int) (*models.EmissionFactor, error) {
	type attempt struct {
		where string
		args  []any
	}

	attempts := []attempt{
		{
			where: `activity_type = $1 AND sub_category = $2 AND region_code = $3 AND year = $4`,
			args:  []any{activity, subCategory, regionCode, year},
		},
		{
			where: `activity_type = $1 AND sub_category = $2 AND region_code = $3 AND year = $4`,
			args:  []any{activity, subCategory, regionCode, year - 1},
		},
		{
			where: `activity_type = $1 AND region_scope = $2 AND year = $3`,
			args:  []any{activity, models.RegionGlobal, year},
		},
		{
			where: `activity_type = $1 AND region_scope = $2`,
			args:  []any{activity, models.RegionGlobal},
		},
		{
			where: `activity_type = $1 AND is_default = TRUE`,
			args:  []any{activity},
		},
	}

	for _, a := range attempts {
		query := `SELECT ` + factorColumns + ` FROM esg_emission_factors WHERE ` + a.where + `
			ORDER BY year DESC, usage_count DESC LIMIT 1`

		factor, err := scanFactor(r.db.Pool.QueryRow(ctx, query, a.args...))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			return nil, fmt.Errorf("failed to look up emission factor: %w", err)
		}
		return factor, nil
	}

	return nil, apperrors.ErrNotFound
}

func (r *factorRepository) IncrementUsage(ctx context.Context, deltas map[uuid.UUID]int64) error {
	if len(deltas) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for id, delta := range deltas {
		batch.Queue(`UPDATE esg_emission_factors SET usage_count = usage_count + $1 WHERE id = $2`, delta, id)
	}

	results := r.db.Pool.SendBatch(ctx, batch)
	defer results.Close()

	for range deltas {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to increment factor usage: %w", err)
		}
	}

	return nil
}

func (r *factorRepository) UpsertSeed(ctx context.Context, factor *models.EmissionFactor) error {
	if factor.ID == uuid.Nil {
		factor.ID = uuid.New()
	}

	query := `
		INSERT INTO esg_emission_factors (
			id, activity_type, sub_category, region_scope, region_code, year,
			factor_value, unit, confidence, co2_pct, ch4_pct, n2o_pct, is_default,
			usage_count, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 0, NOW())
		ON CONFLICT (activity_type, sub_category, region_code, year)
		DO UPDATE SET
			region_scope = EXCLUDED.region_scope,
			factor_value = EXCLUDED.factor_value,
			unit = EXCLUDED.unit,
			confidence = EXCLUDED.confidence,
			co2_pct = EXCLUDED.co2_pct,
			ch4_pct = EXCLUDED.ch4_pct,
			n2o_pct = EXCLUDED.n2o_pct,
			is_default = EXCLUDED.is_default,
			updated_at = NOW()`

	_, err := r.db.Pool.Exec(ctx, query,
		factor.ID, factor.ActivityType, factor.SubCategory, factor.RegionScope,
		factor.RegionCode, factor.Year, factor.Value, factor.Unit, factor.Confidence,
		factor.Gases.CO2, factor.Gases.CH4, factor.Gases.N2O, factor.IsDefault,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert emission factor: %w", err)
	}

	return nil
}

func (r *factorRepository) ListByActivity(ctx context.Context, activity models.ActivityKind) ([]*models.EmissionFactor, error) {
	query := `SELECT ` + factorColumns + `
		FROM esg_emission_factors WHERE activity_type = $1
		ORDER BY year DESC, region_code`

	rows, err := r.db.Pool.Query(ctx, query, activity)
	if err != nil {
		return nil, fmt.Errorf("failed to list emission factors: %w", err)
	}
	defer rows.Close()

	factors := make([]*models.EmissionFactor, 0)
	for rows.Next() {
		factor, err := scanFactor(rows)
		if err != nil {
			return nil, err
		}
		factors = append(factors, factor)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating emission factors: %w", err)
	}

	return factors, nil
}

func scanFactor(row pgx.Row) (*models.EmissionFactor, error) {
	var f models.EmissionFactor
	err := row.Scan(
		&f.ID, &f.ActivityType, &f.SubCategory, &f.RegionScope, &f.RegionCode, &f.Year,
		&f.Value, &f.Unit, &f.Confidence, &f.Gases.CO2, &f.Gases.CH4, &f.Gases.N2O,
		&f.IsDefault, &f.UsageCount, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
