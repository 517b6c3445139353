package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"
	"go.uber.org/zap"

	"github.com/verdantiq/esg-engine/pkg/models"
	"github.com/verdantiq/esg-engine/pkg/repositories"
)

const (
	// seriesWindowMonths bounds how far back prediction reads.
	seriesWindowMonths = 24

	minPredictionPoints = 3
	minSeasonalPoints   = 6
	minTrendPoints      = 6

	seasonalCVThreshold = 0.2
)

// PredictionService forecasts per-activity emissions from the historical
// series. All operations return typed results and never propagate engine
// errors; a failed analysis comes back with Success=false.
type PredictionService interface {
	PredictNextValue(ctx context.Context, companyID uuid.UUID, activity models.ActivityKind, targetPeriod string) *models.Prediction
	DetectSeasonalPatterns(ctx context.Context, companyID uuid.UUID, activity models.ActivityKind) *models.SeasonalAnalysis
	CalculateGrowthTrend(ctx context.Context, companyID uuid.UUID, activity models.ActivityKind) *models.GrowthTrend
}

type predictionService struct {
	series repositories.SeriesRepository
	logger *zap.Logger
}

// NewPredictionService creates a new PredictionService.
func NewPredictionService(series repositories.SeriesRepository, logger *zap.Logger) PredictionService {
	return &predictionService{
		series: series,
		logger: logger.Named("prediction-service"),
	}
}

var _ PredictionService = (*predictionService)(nil)

func (s *predictionService) PredictNextValue(ctx context.Context, companyID uuid.UUID, activity models.ActivityKind, targetPeriod string) *models.Prediction {
	result := &models.Prediction{Activity: activity, TargetPeriod: targetPeriod}

	if !models.IsValidActivityKind(activity) {
		result.Error = fmt.Sprintf("unknown activity type: %s", activity)
		return result
	}

	points, err := s.series.GetActivitySeries(ctx, companyID, activity, seriesWindowMonths)
	if err != nil {
		s.logger.Error("Failed to load activity series",
			zap.String("company_id", companyID.String()),
			zap.String("activity", string(activity)),
			zap.Error(err))
		result.Error = "failed to load historical data"
		return result
	}

	result.Success = true
	result.DataPointsUsed = len(points)

	if len(points) < minPredictionPoints {
		result.Confidence = 0
		result.Message = fmt.Sprintf("insufficient data: %d points, need at least %d", len(points), minPredictionPoints)
		return result
	}

	targetMonth := resolveTargetMonth(targetPeriod)
	if result.TargetPeriod == "" {
		result.TargetPeriod = time.Now().AddDate(0, 1, 0).Format("2006-01")
	}

	values := make(stats.Float64Data, len(points))
	for i, p := range points {
		values[i] = p.Value
	}

	historicalAvg, _ := stats.Mean(values)

	seasonal := seasonalFactorFor(points, targetMonth, historicalAvg)
	growth := annualizedHalvesGrowth(points)

	predicted := historicalAvg * seasonal * (1 + growth)
	if predicted < 0 {
		// A steep enough decline annualizes below -100%; emissions
		// cannot go negative, so the forecast floors at zero.
		predicted = 0
	}
	confidence := predictionConfidence(values, historicalAvg)

	halfWidth := predicted * 0.15 / confidence

	result.Predicted = &predicted
	result.Lower = math.Max(0, predicted-halfWidth)
	result.Upper = predicted + halfWidth
	result.Confidence = confidence
	result.SeasonalFactor = seasonal
	result.GrowthFactor = growth
	result.Method = models.PredictionMethodSeasonalGrowth
	result.Reasoning = fmt.Sprintf(
		"Base average %.2f tCO2e over %d periods, seasonal factor %.2f for month %d, annualized growth %.1f%%.",
		historicalAvg, len(points), seasonal, int(targetMonth), growth*100)

	return result
}

func (s *predictionService) DetectSeasonalPatterns(ctx context.Context, companyID uuid.UUID, activity models.ActivityKind) *models.SeasonalAnalysis {
	result := &models.SeasonalAnalysis{Activity: activity}

	points, err := s.series.GetActivitySeries(ctx, companyID, activity, seriesWindowMonths)
	if err != nil {
		s.logger.Error("Failed to load activity series",
			zap.String("company_id", companyID.String()),
			zap.String("activity", string(activity)),
			zap.Error(err))
		result.Error = "failed to load historical data"
		return result
	}

	result.Success = true
	result.DataPointsUsed = len(points)

	if len(points) < minSeasonalPoints {
		result.Message = fmt.Sprintf("insufficient data: %d points, need at least %d", len(points), minSeasonalPoints)
		return result
	}

	monthlyMeans := perMonthMeans(points)

	means := make(stats.Float64Data, 0, len(monthlyMeans))
	for _, m := range monthlyMeans {
		means = append(means, m)
	}
	overall, _ := stats.Mean(means)
	stdev, _ := stats.StandardDeviation(means)

	if overall == 0 {
		result.Message = "all observed values are zero"
		return result
	}

	cv := stdev / overall
	result.HasPattern = cv > seasonalCVThreshold
	result.PatternStrength = math.Min(1.0, cv)

	result.MonthlyFactors = make(map[int]float64, len(monthlyMeans))
	for month, mean := range monthlyMeans {
		result.MonthlyFactors[month] = mean / overall
	}

	result.PeakMonths = topMonthsByMean(monthlyMeans, 3, true)
	result.LowMonths = topMonthsByMean(monthlyMeans, 3, false)

	return result
}

func (s *predictionService) CalculateGrowthTrend(ctx context.Context, companyID uuid.UUID, activity models.ActivityKind) *models.GrowthTrend {
	result := &models.GrowthTrend{Activity: activity}

	points, err := s.series.GetActivitySeries(ctx, companyID, activity, seriesWindowMonths)
	if err != nil {
		s.logger.Error("Failed to load activity series",
			zap.String("company_id", companyID.String()),
			zap.String("activity", string(activity)),
			zap.Error(err))
		result.Error = "failed to load historical data"
		return result
	}

	result.Success = true
	result.DataPointsUsed = len(points)

	if len(points) < minTrendPoints {
		result.Message = fmt.Sprintf("insufficient data: %d points, need at least %d", len(points), minTrendPoints)
		return result
	}

	rates := momGrowthRates(points)
	if len(rates) == 0 {
		result.Message = "series has no usable consecutive periods"
		return result
	}

	meanRate, _ := stats.Mean(stats.Float64Data(rates))
	annual := math.Pow(1+meanRate, 12) - 1

	result.MonthlyRate = meanRate
	result.AnnualRate = annual

	switch {
	case math.Abs(annual) < 0.05:
		result.Direction = models.TrendStable
	case annual > 0:
		result.Direction = models.TrendIncreasing
	default:
		result.Direction = models.TrendDecreasing
	}
	result.Significant = math.Abs(annual) > 0.10
	result.Confidence = trendConfidence(rates)

	return result
}

// resolveTargetMonth parses "YYYY-MM"; defaults to next calendar month.
func resolveTargetMonth(targetPeriod string) time.Month {
	if t, err := time.Parse("2006-01", targetPeriod); err == nil {
		return t.Month()
	}
	return time.Now().AddDate(0, 1, 0).Month()
}

// seasonalFactorFor is the mean of same-month observations over the overall
// mean, defaulting to 1.0 when the bucket is empty or the average is zero.
func seasonalFactorFor(points []models.SeriesPoint, month time.Month, historicalAvg float64) float64 {
	if historicalAvg == 0 {
		return 1.0
	}

	var sum float64
	var n int
	for _, p := range points {
		if p.Date.Month() == month {
			sum += p.Value
			n++
		}
	}
	if n == 0 {
		return 1.0
	}
	return (sum / float64(n)) / historicalAvg
}

// annualizedHalvesGrowth compares the means of the two date-ordered halves
// of the series and annualizes the relative change.
func annualizedHalvesGrowth(points []models.SeriesPoint) float64 {
	half := len(points) / 2
	if half == 0 {
		return 0
	}

	first := make(stats.Float64Data, 0, half)
	second := make(stats.Float64Data, 0, len(points)-half)
	for i, p := range points {
		if i < half {
			first = append(first, p.Value)
		} else {
			second = append(second, p.Value)
		}
	}

	firstMean, _ := stats.Mean(first)
	secondMean, _ := stats.Mean(second)
	if firstMean == 0 {
		return 0
	}

	g := (secondMean - firstMean) / firstMean
	return g * (12.0 / float64(half))
}

// predictionConfidence starts from 1-cv clamped to [0.3, 1.0] and adds a
// small sample-size bonus, clamped again so the invariant holds.
func predictionConfidence(values stats.Float64Data, mean float64) float64 {
	if mean == 0 {
		return 0.3
	}
	stdev, err := stats.StandardDeviation(values)
	if err != nil {
		return 0.3
	}

	confidence := 1 - stdev/mean
	if confidence < 0.3 {
		confidence = 0.3
	}
	confidence += math.Min(0.1, float64(len(values))/100.0)
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

func perMonthMeans(points []models.SeriesPoint) map[int]float64 {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, p := range points {
		m := int(p.Date.Month())
		sums[m] += p.Value
		counts[m]++
	}

	means := make(map[int]float64, len(sums))
	for m, sum := range sums {
		means[m] = sum / float64(counts[m])
	}
	return means
}

// topMonthsByMean returns up to n month numbers sorted by mean, descending
// when peak is true and ascending otherwise.
func topMonthsByMean(means map[int]float64, n int, peak bool) []int {
	months := make([]int, 0, len(means))
	for m := range means {
		months = append(months, m)
	}

	sort.Slice(months, func(i, j int) bool {
		if peak {
			return means[months[i]] > means[months[j]]
		}
		return means[months[i]] < means[months[j]]
	})

	if len(months) > n {
		months = months[:n]
	}
	return months
}

func momGrowthRates(points []models.SeriesPoint) []float64 {
	rates := make([]float64, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		prev := points[i-1].Value
		if prev == 0 {
			continue
		}
		rates = append(rates, (points[i].Value-prev)/prev)
	}
	return rates
}

// trendConfidence blends sign consistency (weight 0.6) with rate stability
// (weight 0.4).
func trendConfidence(rates []float64) float64 {
	var positive, negative int
	for _, r := range rates {
		if r >= 0 {
			positive++
		} else {
			negative++
		}
	}
	consistency := float64(max(positive, negative)) / float64(len(rates))

	stdev, err := stats.StandardDeviation(stats.Float64Data(rates))
	if err != nil {
		return 0.6 * consistency
	}
	stability := 1 - math.Min(1.0, stdev)

	return 0.6*consistency + 0.4*stability
}
