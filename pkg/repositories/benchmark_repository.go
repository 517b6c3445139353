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

// BenchmarkRepository provides access to the static industry benchmark
// table. Like emission factors, benchmarks are process-wide reference data.
type BenchmarkRepository interface {
	// Find resolves the best benchmark row via the fallback chain: exact
	// (industry, employee range, region, year), then industry plus year
	// ignoring region and range, then industry at the prior year. Returns
	// apperrors.ErrNotFound when no row matches.
	Find(ctx context.Context, industry string, employeeCount int, region string, year int) (*models.Benchmark, error)

	// UpsertSeed inserts or refreshes a seed row keyed on
	// (industry, employee_min, employee_max, region, year).
	UpsertSeed(ctx context.Context, b *models.Benchmark) error
}

type benchmarkRepository struct {
	db *database.DB
}

// NewBenchmarkRepository creates a new BenchmarkRepository.
func NewBenchmarkRepository(db *database.DB) BenchmarkRepository {
	return &benchmarkRepository{db: db}
}

var _ BenchmarkRepository = (*benchmarkRepository)(nil)

const benchmarkColumns = `id, industry, employee_min, employee_max, region, year,
	avg_scope1, avg_scope2, avg_scope3, avg_total, p25_total, median_total, p75_total,
	sample_size, source`

func (r *benchmarkRepository) Find(ctx context.Context, industry string, employeeCount int, region string, year int) (*models.Benchmark, error) {
	type attempt struct {
		where string
		args  []any
	}

	attempts := []attempt{
		{
			where: `industry = $1 AND region = $2 AND year = $3
				AND employee_min <= $4 AND (employee_max = 0 OR employee_max >= $4)`,
			args: []any{industry, region, year, employeeCount},
		},
		{
			where: `industry = $1 AND year = $2`,
			args:  []any{industry, year},
		},
		{
			where: `industry = $1 AND year = $2`,
			args:  []any{industry, year - 1},
		},
	}

	for _, a := range attempts {
		query := `SELECT ` + benchmarkColumns + ` FROM esg_benchmarks WHERE ` + a.where + `
			ORDER BY sample_size DESC LIMIT 1`

		b, err := scanBenchmark(r.db.Pool.QueryRow(ctx, query, a.args...))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			return nil, fmt.Errorf("failed to find benchmark: %w", err)
		}
		return b, nil
	}

	return nil, apperrors.ErrNotFound
}

func (r *benchmarkRepository) UpsertSeed(ctx context.Context, b *models.Benchmark) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}

	query := `
		INSERT INTO esg_benchmarks (
			id, industry, employee_min, employee_max, region, year,
			avg_scope1, avg_scope2, avg_scope3, avg_total,
			p25_total, median_total, p75_total, sample_size, source
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (industry, employee_min, employee_max, region, year)
		DO UPDATE SET
			avg_scope1 = EXCLUDED.avg_scope1,
			avg_scope2 = EXCLUDED.avg_scope2,
			avg_scope3 = EXCLUDED.avg_scope3,
			avg_total = EXCLUDED.avg_total,
			p25_total = EXCLUDED.p25_total,
			median_total = EXCLUDED.median_total,
			p75_total = EXCLUDED.p75_total,
			sample_size = EXCLUDED.sample_size,
			source = EXCLUDED.source`

	_, err := r.db.Pool.Exec(ctx, query,
		b.ID, b.Industry, b.EmployeeMin, b.EmployeeMax, b.Region, b.Year,
		b.AvgScope1, b.AvgScope2, b.AvgScope3, b.AvgTotal,
		b.P25Total, b.MedianTotal, b.P75Total, b.SampleSize, b.Source,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert benchmark: %w", err)
	}

	return nil
}

func scanBenchmark(row pgx.Row) (*models.Benchmark, error) {
	var b models.Benchmark
	err := row.Scan(
		&b.ID, &b.Industry, &b.EmployeeMin, &b.EmployeeMax, &b.Region, &b.Year,
		&b.AvgScope1, &b.AvgScope2, &b.AvgScope3, &b.AvgTotal,
		&b.P25Total, &b.MedianTotal, &b.P75Total, &b.SampleSize, &b.Source,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
