package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/verdantiq/esg-engine/pkg/models"
	"github.com/verdantiq/esg-engine/pkg/repositories"
)

// benchmarkCacheTTL bounds staleness of cached comparisons. Benchmark rows
// only change on administrative reload, so an hour is conservative.
const benchmarkCacheTTL = time.Hour

// BenchmarkService compares a footprint against static industry benchmarks.
type BenchmarkService interface {
	Compare(ctx context.Context, companyID uuid.UUID, period string) (*models.BenchmarkResult, error)
}

type benchmarkService struct {
	companies  repositories.CompanyRepository
	footprints repositories.FootprintRepository
	benchmarks repositories.BenchmarkRepository
	cache      *redis.Client // nil when caching is disabled
	logger     *zap.Logger
}

// NewBenchmarkService creates a new BenchmarkService. Pass a nil cache to
// run without result caching.
func NewBenchmarkService(
	companies repositories.CompanyRepository,
	footprints repositories.FootprintRepository,
	benchmarks repositories.BenchmarkRepository,
	cache *redis.Client,
	logger *zap.Logger,
) BenchmarkService {
	return &benchmarkService{
		companies:  companies,
		footprints: footprints,
		benchmarks: benchmarks,
		cache:      cache,
		logger:     logger.Named("benchmark-service"),
	}
}

var _ BenchmarkService = (*benchmarkService)(nil)

func (s *benchmarkService) Compare(ctx context.Context, companyID uuid.UUID, period string) (*models.BenchmarkResult, error) {
	cacheKey := fmt.Sprintf("esg:benchmark:%s:%s", companyID, period)
	if cached := s.cacheGet(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	company, err := s.companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	footprint, err := s.footprints.GetByCompanyPeriod(ctx, companyID, period)
	if err != nil {
		return nil, err
	}

	year := yearFromPeriod(period)
	benchmark, err := s.benchmarks.Find(ctx, company.Industry, company.EmployeeCount, company.Region, year)
	if err != nil {
		return nil, fmt.Errorf("no benchmark available for industry %q: %w", company.Industry, err)
	}

	employees := company.EmployeeCount
	if employees < 1 {
		employees = 1
	}
	perEmployee := models.PerEmployeeMetrics{
		Scope1: footprint.Scope1 / float64(employees),
		Scope2: footprint.Scope2 / float64(employees),
		Scope3: footprint.Scope3 / float64(employees),
		Total:  footprint.Total / float64(employees),
	}
	industry := models.PerEmployeeMetrics{
		Scope1: benchmark.AvgScope1,
		Scope2: benchmark.AvgScope2,
		Scope3: benchmark.AvgScope3,
		Total:  benchmark.AvgTotal,
	}

	comparison := compareToBenchmark(perEmployee.Total, benchmark)

	result := &models.BenchmarkResult{
		CompanyMetrics:   perEmployee,
		IndustryAverages: industry,
		BenchmarkInfo: models.BenchmarkInfo{
			Industry:   benchmark.Industry,
			Region:     benchmark.Region,
			Year:       benchmark.Year,
			SampleSize: benchmark.SampleSize,
			Source:     benchmark.Source,
		},
		Comparison: comparison,
		Insights:   benchmarkInsights(perEmployee, industry, comparison),
	}

	s.cacheSet(ctx, cacheKey, result)
	return result, nil
}

// compareToBenchmark buckets the per-employee total against the benchmark's
// distribution when quartiles are present, otherwise by delta versus mean.
func compareToBenchmark(totalPerEmployee float64, b *models.Benchmark) models.Comparison {
	var deltaPct float64
	if b.AvgTotal > 0 {
		deltaPct = (totalPerEmployee - b.AvgTotal) / b.AvgTotal * 100
	}

	if b.HasDistribution() {
		switch {
		case totalPerEmployee <= b.P25Total:
			return models.Comparison{DeltaPct: deltaPct, Percentile: 25, Band: models.BandExcellent}
		case totalPerEmployee <= b.MedianTotal:
			return models.Comparison{DeltaPct: deltaPct, Percentile: 50, Band: models.BandGood}
		case totalPerEmployee <= b.P75Total:
			return models.Comparison{DeltaPct: deltaPct, Percentile: 75, Band: models.BandAverage}
		default:
			return models.Comparison{DeltaPct: deltaPct, Percentile: 90, Band: models.BandNeedsImprovement}
		}
	}

	switch {
	case deltaPct <= -20:
		return models.Comparison{DeltaPct: deltaPct, Percentile: 25, Band: models.BandExcellent}
	case deltaPct <= 0:
		return models.Comparison{DeltaPct: deltaPct, Percentile: 50, Band: models.BandGood}
	case deltaPct <= 20:
		return models.Comparison{DeltaPct: deltaPct, Percentile: 75, Band: models.BandAverage}
	default:
		return models.Comparison{DeltaPct: deltaPct, Percentile: 90, Band: models.BandNeedsImprovement}
	}
}

func benchmarkInsights(company, industry models.PerEmployeeMetrics, cmp models.Comparison) []string {
	insights := []string{}

	switch cmp.Band {
	case models.BandExcellent:
		insights = append(insights, fmt.Sprintf("Your emissions per employee are %.0f%% below the industry average.", math.Abs(cmp.DeltaPct)))
	case models.BandGood:
		insights = append(insights, "Your emissions per employee are below the industry average.")
	case models.BandAverage:
		insights = append(insights, "Your emissions per employee are close to the industry average.")
	case models.BandNeedsImprovement:
		insights = append(insights, fmt.Sprintf("Your emissions per employee are %.0f%% above the industry average.", cmp.DeltaPct))
	}

	if industry.Scope2 > 0 && company.Scope2 > industry.Scope2*1.2 {
		insights = append(insights, "Scope 2 stands out: electricity efficiency or renewable procurement would have the largest effect.")
	}
	if industry.Scope1 > 0 && company.Scope1 > industry.Scope1*1.2 {
		insights = append(insights, "Scope 1 is above peers: review fuel combustion and fleet usage.")
	}
	if company.Scope3 == 0 && industry.Scope3 > 0 {
		insights = append(insights, "No scope 3 data recorded yet; peers report meaningful value-chain emissions.")
	}

	return insights
}

// yearFromPeriod extracts the leading year from "2025-Q3" or "2025-08"
// style period strings, defaulting to the current year.
func yearFromPeriod(period string) int {
	if len(period) >= 4 {
		if y, err := strconv.Atoi(period[:4]); err == nil && y > 1900 {
			return y
		}
	}
	return time.Now().Year()
}

func (s *benchmarkService) cacheGet(ctx context.Context, key string) *models.BenchmarkResult {
	if s.cache == nil {
		return nil
	}
	data, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}
	var result models.BenchmarkResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return &result
}

func (s *benchmarkService) cacheSet(ctx context.Context, key string, result *models.BenchmarkResult) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, benchmarkCacheTTL).Err(); err != nil {
		s.logger.Debug("benchmark cache write failed", zap.Error(err))
	}
}
