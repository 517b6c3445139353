package services

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/verdantiq/esg-engine/pkg/config"
	"github.com/verdantiq/esg-engine/pkg/models"
	"github.com/verdantiq/esg-engine/pkg/repositories"
)

const (
	// factorCacheSize bounds the in-process lookup cache.
	factorCacheSize = 200

	// usageFlushInterval is how often coalesced usage counters are written.
	usageFlushInterval = 30 * time.Second
)

// ReferenceService owns process-wide reference data: emission factors and
// industry benchmarks. Lookups go through a small in-process cache; usage
// counters are coalesced and flushed in the background.
type ReferenceService interface {
	// LookupFactor resolves a factor via the repository fallback chain and
	// counts the hit. Results are cached until the next reload.
	LookupFactor(ctx context.Context, activity models.ActivityKind, subCategory, regionCode string, year int) (*models.EmissionFactor, error)

	// SeedFromFiles loads the YAML seed files into the factor and benchmark
	// tables. Missing files are skipped, not fatal.
	SeedFromFiles(ctx context.Context) error

	// Reload re-runs seeding and invalidates the lookup cache.
	Reload(ctx context.Context) error

	// Close flushes pending usage counters and stops the background flusher.
	Close()
}

type referenceService struct {
	factors    repositories.FactorRepository
	benchmarks repositories.BenchmarkRepository
	seeds      config.SeedConfig
	logger     *zap.Logger

	mu      sync.Mutex
	cache   map[string]*models.EmissionFactor
	pending map[uuid.UUID]int64

	stop chan struct{}
	done chan struct{}
}

// NewReferenceService creates a ReferenceService and starts its background
// usage flusher.
func NewReferenceService(
	factors repositories.FactorRepository,
	benchmarks repositories.BenchmarkRepository,
	seeds config.SeedConfig,
	logger *zap.Logger,
) ReferenceService {
	s := &referenceService{
		factors:    factors,
		benchmarks: benchmarks,
		seeds:      seeds,
		logger:     logger.Named("reference-service"),
		cache:      make(map[string]*models.EmissionFactor),
		pending:    make(map[uuid.UUID]int64),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	go s.flushLoop()
	return s
}

var _ ReferenceService = (*referenceService)(nil)

func (s *referenceService) LookupFactor(ctx context.Context, activity models.ActivityKind, subCategory, regionCode string, year int) (*models.EmissionFactor, error) {
	key := fmt.Sprintf("%s|%s|%s|%d", activity, subCategory, regionCode, year)

	s.mu.Lock()
	factor, hit := s.cache[key]
	s.mu.Unlock()

	if !hit {
		var err error
		factor, err = s.factors.Lookup(ctx, activity, subCategory, regionCode, year)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		if len(s.cache) < factorCacheSize {
			s.cache[key] = factor
		}
		s.mu.Unlock()
	}

	s.mu.Lock()
	s.pending[factor.ID]++
	s.mu.Unlock()

	return factor, nil
}

func (s *referenceService) SeedFromFiles(ctx context.Context) error {
	if err := s.seedFactors(ctx); err != nil {
		return err
	}
	return s.seedBenchmarks(ctx)
}

func (s *referenceService) Reload(ctx context.Context) error {
	if err := s.SeedFromFiles(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.cache = make(map[string]*models.EmissionFactor)
	s.mu.Unlock()

	s.logger.Info("reference data reloaded, lookup cache invalidated")
	return nil
}

func (s *referenceService) Close() {
	close(s.stop)
	<-s.done
}

func (s *referenceService) flushLoop() {
	defer close(s.done)

	ticker := time.NewTicker(usageFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.flushUsage()
		case <-s.stop:
			s.flushUsage()
			return
		}
	}
}

func (s *referenceService) flushUsage() {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return
	}
	deltas := s.pending
	s.pending = make(map[uuid.UUID]int64)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.factors.IncrementUsage(ctx, deltas); err != nil {
		s.logger.Warn("failed to flush factor usage counters",
			zap.Int("factors", len(deltas)),
			zap.Error(err))
	}
}

// factorSeedFile is the on-disk shape of the emission factor seed.
type factorSeedFile struct {
	Factors []struct {
		ActivityType models.ActivityKind     `yaml:"activity_type"`
		SubCategory  string                  `yaml:"sub_category"`
		RegionScope  models.RegionScope      `yaml:"region_scope"`
		RegionCode   string                  `yaml:"region_code"`
		Year         int                     `yaml:"year"`
		Value        float64                 `yaml:"value"`
		Unit         string                  `yaml:"unit"`
		Confidence   models.FactorConfidence `yaml:"confidence"`
		GasMix       models.GasMix           `yaml:"gas_mix"`
		IsDefault    bool                    `yaml:"is_default"`
	} `yaml:"factors"`
}

func (s *referenceService) seedFactors(ctx context.Context) error {
	data, err := os.ReadFile(s.seeds.EmissionFactorsPath)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Warn("emission factor seed file missing, skipping",
				zap.String("path", s.seeds.EmissionFactorsPath))
			return nil
		}
		return fmt.Errorf("read emission factor seeds: %w", err)
	}

	var file factorSeedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse emission factor seeds: %w", err)
	}

	for _, row := range file.Factors {
		if !models.IsValidActivityKind(row.ActivityType) {
			s.logger.Warn("skipping seed row with unknown activity",
				zap.String("activity", string(row.ActivityType)))
			continue
		}
		factor := &models.EmissionFactor{
			ActivityType: row.ActivityType,
			SubCategory:  row.SubCategory,
			RegionScope:  row.RegionScope,
			RegionCode:   row.RegionCode,
			Year:         row.Year,
			Value:        row.Value,
			Unit:         row.Unit,
			Confidence:   row.Confidence,
			Gases:        row.GasMix,
			IsDefault:    row.IsDefault,
		}
		if err := s.factors.UpsertSeed(ctx, factor); err != nil {
			return err
		}
	}

	s.logger.Info("emission factors seeded", zap.Int("rows", len(file.Factors)))
	return nil
}

// benchmarkSeedFile is the on-disk shape of the benchmark seed.
type benchmarkSeedFile struct {
	Benchmarks []struct {
		Industry    string  `yaml:"industry"`
		EmployeeMin int     `yaml:"employee_min"`
		EmployeeMax int     `yaml:"employee_max"`
		Region      string  `yaml:"region"`
		Year        int     `yaml:"year"`
		AvgScope1   float64 `yaml:"avg_scope1_per_employee"`
		AvgScope2   float64 `yaml:"avg_scope2_per_employee"`
		AvgScope3   float64 `yaml:"avg_scope3_per_employee"`
		AvgTotal    float64 `yaml:"avg_total_per_employee"`
		P25Total    float64 `yaml:"p25_total_per_employee"`
		MedianTotal float64 `yaml:"median_total_per_employee"`
		P75Total    float64 `yaml:"p75_total_per_employee"`
		SampleSize  int     `yaml:"sample_size"`
		Source      string  `yaml:"source"`
	} `yaml:"benchmarks"`
}

func (s *referenceService) seedBenchmarks(ctx context.Context) error {
	data, err := os.ReadFile(s.seeds.BenchmarksPath)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Warn("benchmark seed file missing, skipping",
				zap.String("path", s.seeds.BenchmarksPath))
			return nil
		}
		return fmt.Errorf("read benchmark seeds: %w", err)
	}

	var file benchmarkSeedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse benchmark seeds: %w", err)
	}

	for _, row := range file.Benchmarks {
		b := &models.Benchmark{
			Industry:    row.Industry,
			EmployeeMin: row.EmployeeMin,
			EmployeeMax: row.EmployeeMax,
			Region:      row.Region,
			Year:        row.Year,
			AvgScope1:   row.AvgScope1,
			AvgScope2:   row.AvgScope2,
			AvgScope3:   row.AvgScope3,
			AvgTotal:    row.AvgTotal,
			P25Total:    row.P25Total,
			MedianTotal: row.MedianTotal,
			P75Total:    row.P75Total,
			SampleSize:  row.SampleSize,
			Source:      row.Source,
		}
		if err := s.benchmarks.UpsertSeed(ctx, b); err != nil {
			return err
		}
	}

	s.logger.Info("benchmarks seeded", zap.Int("rows", len(file.Benchmarks)))
	return nil
}
