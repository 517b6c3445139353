package models

import (
	"github.com/google/uuid"
)

// Benchmark is one static industry comparison row, unique on
// (industry, employee_range, region, year). Per-employee values are tCO2e.
type Benchmark struct {
	ID          uuid.UUID `json:"id"`
	Industry    string    `json:"industry"`
	EmployeeMin int       `json:"employee_min"`
	EmployeeMax int       `json:"employee_max"` // 0 means unbounded
	Region      string    `json:"region"`
	Year        int       `json:"year"`
	AvgScope1   float64   `json:"avg_scope1_per_employee"`
	AvgScope2   float64   `json:"avg_scope2_per_employee"`
	AvgScope3   float64   `json:"avg_scope3_per_employee"`
	AvgTotal    float64   `json:"avg_total_per_employee"`
	P25Total    float64   `json:"p25_total_per_employee"`
	MedianTotal float64   `json:"median_total_per_employee"`
	P75Total    float64   `json:"p75_total_per_employee"`
	SampleSize  int       `json:"sample_size"`
	Source      string    `json:"source"`
}

// HasDistribution reports whether quartile columns are populated.
// Without them comparison falls back to delta-vs-mean banding.
func (b *Benchmark) HasDistribution() bool {
	return b.P25Total > 0 && b.MedianTotal > 0 && b.P75Total > 0
}

// CoversEmployeeCount reports whether the row's employee range includes n.
func (b *Benchmark) CoversEmployeeCount(n int) bool {
	if n < b.EmployeeMin {
		return false
	}
	return b.EmployeeMax == 0 || n <= b.EmployeeMax
}

// ComparisonBand is the qualitative benchmark outcome.
type ComparisonBand string

const (
	BandExcellent        ComparisonBand = "excellent"
	BandGood             ComparisonBand = "good"
	BandAverage          ComparisonBand = "average"
	BandNeedsImprovement ComparisonBand = "needs_improvement"
)
