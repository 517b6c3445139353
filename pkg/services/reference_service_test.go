package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/verdantiq/esg-engine/pkg/apperrors"
	"github.com/verdantiq/esg-engine/pkg/config"
	"github.com/verdantiq/esg-engine/pkg/models"
)

const testFactorSeed = `factors:
  - activity_type: electricity
    sub_category: grid
    region_scope: country
    region_code: US
    year: 2025
    value: 0.453
    unit: kgCO2e/kWh
    confidence: high
    gas_mix: { co2: 95.0, ch4: 3.0, n2o: 2.0 }
    is_default: true
  - activity_type: diesel
    sub_category: vehicle
    region_scope: global
    region_code: ""
    year: 2025
    value: 10.21
    unit: kgCO2e/gallon
    confidence: high
  - activity_type: office_snacks
    sub_category: kitchen
    year: 2025
    value: 1.0
`

const testBenchmarkSeed = `benchmarks:
  - industry: manufacturing
    employee_min: 1
    employee_max: 100
    region: US
    year: 2025
    avg_total_per_employee: 12.5
    sample_size: 420
    source: "test aggregate"
`

func writeSeedFiles(t *testing.T, factorYAML, benchmarkYAML string) config.SeedConfig {
	t.Helper()
	dir := t.TempDir()

	seeds := config.SeedConfig{
		EmissionFactorsPath: filepath.Join(dir, "emission_factors.yaml"),
		BenchmarksPath:      filepath.Join(dir, "benchmarks.yaml"),
	}
	if factorYAML != "" {
		require.NoError(t, os.WriteFile(seeds.EmissionFactorsPath, []byte(factorYAML), 0o600))
	}
	if benchmarkYAML != "" {
		require.NoError(t, os.WriteFile(seeds.BenchmarksPath, []byte(benchmarkYAML), 0o600))
	}
	return seeds
}

func TestReferenceService_SeedFromFiles(t *testing.T) {
	factors := &mockFactorRepo{}
	benchmarks := &mockBenchmarkRepo{}
	seeds := writeSeedFiles(t, testFactorSeed, testBenchmarkSeed)

	svc := NewReferenceService(factors, benchmarks, seeds, zap.NewNop())
	defer svc.Close()

	require.NoError(t, svc.SeedFromFiles(context.Background()))

	// The unknown activity row is skipped, the rest land.
	require.Len(t, factors.upserted, 2)
	assert.Equal(t, models.ActivityElectricity, factors.upserted[0].ActivityType)
	assert.Equal(t, "US", factors.upserted[0].RegionCode)
	assert.InDelta(t, 0.453, factors.upserted[0].Value, 0.0001)
	assert.InDelta(t, 95.0, factors.upserted[0].Gases.CO2, 0.001)
	assert.True(t, factors.upserted[0].IsDefault)

	require.Len(t, benchmarks.upserted, 1)
	assert.Equal(t, "manufacturing", benchmarks.upserted[0].Industry)
	assert.InDelta(t, 12.5, benchmarks.upserted[0].AvgTotal, 0.001)
}

func TestReferenceService_SeedFromFiles_MissingFilesSkipped(t *testing.T) {
	factors := &mockFactorRepo{}
	seeds := writeSeedFiles(t, "", "")

	svc := NewReferenceService(factors, &mockBenchmarkRepo{}, seeds, zap.NewNop())
	defer svc.Close()

	require.NoError(t, svc.SeedFromFiles(context.Background()))
	assert.Empty(t, factors.upserted)
}

func TestReferenceService_SeedFromFiles_MalformedYAML(t *testing.T) {
	seeds := writeSeedFiles(t, "factors: [not: valid: yaml", "")

	svc := NewReferenceService(&mockFactorRepo{}, &mockBenchmarkRepo{}, seeds, zap.NewNop())
	defer svc.Close()

	err := svc.SeedFromFiles(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse emission factor seeds")
}

func TestReferenceService_LookupFactor_CachesResults(t *testing.T) {
	factor := &models.EmissionFactor{
		ActivityType: models.ActivityElectricity,
		SubCategory:  "grid",
		RegionCode:   "US",
		Year:         2025,
		Value:        0.453,
	}
	factors := &mockFactorRepo{}
	require.NoError(t, factors.UpsertSeed(context.Background(), factor))
	factors.lookupCalls = 0

	seeds := writeSeedFiles(t, "", "")
	svc := NewReferenceService(factors, &mockBenchmarkRepo{}, seeds, zap.NewNop())

	for i := 0; i < 3; i++ {
		got, err := svc.LookupFactor(context.Background(), models.ActivityElectricity, "grid", "US", 2025)
		require.NoError(t, err)
		assert.InDelta(t, 0.453, got.Value, 0.0001)
	}
	assert.Equal(t, 1, factors.lookupCalls)

	// Close flushes the coalesced usage counters in one batch.
	svc.Close()
	assert.Equal(t, 1, factors.incrementCalls)
	assert.Equal(t, int64(3), factors.usage[factor.ID])
}

func TestReferenceService_LookupFactor_NotFound(t *testing.T) {
	seeds := writeSeedFiles(t, "", "")
	svc := NewReferenceService(&mockFactorRepo{}, &mockBenchmarkRepo{}, seeds, zap.NewNop())
	defer svc.Close()

	_, err := svc.LookupFactor(context.Background(), models.ActivityElectricity, "grid", "US", 2025)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestReferenceService_Reload_InvalidatesCache(t *testing.T) {
	factor := &models.EmissionFactor{
		ActivityType: models.ActivityElectricity,
		SubCategory:  "grid",
		RegionCode:   "US",
		Year:         2025,
		Value:        0.453,
	}
	factors := &mockFactorRepo{}
	require.NoError(t, factors.UpsertSeed(context.Background(), factor))
	factors.lookupCalls = 0

	seeds := writeSeedFiles(t, testFactorSeed, testBenchmarkSeed)
	svc := NewReferenceService(factors, &mockBenchmarkRepo{}, seeds, zap.NewNop())
	defer svc.Close()

	_, err := svc.LookupFactor(context.Background(), models.ActivityElectricity, "grid", "US", 2025)
	require.NoError(t, err)
	require.NoError(t, svc.Reload(context.Background()))

	_, err = svc.LookupFactor(context.Background(), models.ActivityElectricity, "grid", "US", 2025)
	require.NoError(t, err)
	assert.Equal(t, 2, factors.lookupCalls)
}
