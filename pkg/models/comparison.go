package models

// PerEmployeeMetrics are scope emissions divided by head count, in tCO2e.
type PerEmployeeMetrics struct {
	Scope1 float64 `json:"scope1"`
	Scope2 float64 `json:"scope2"`
	Scope3 float64 `json:"scope3"`
	Total  float64 `json:"total"`
}

// BenchmarkInfo describes the benchmark row a comparison was made against.
type BenchmarkInfo struct {
	Industry   string `json:"industry"`
	Region     string `json:"region"`
	Year       int    `json:"year"`
	SampleSize int    `json:"sample_size"`
	Source     string `json:"source"`
}

// Comparison is the quantitative outcome of a benchmark comparison.
type Comparison struct {
	DeltaPct   float64        `json:"delta_pct"` // vs industry mean, signed
	Percentile int            `json:"percentile"`
	Band       ComparisonBand `json:"band"`
}

// BenchmarkResult is the full benchmark comparison payload.
type BenchmarkResult struct {
	CompanyMetrics   PerEmployeeMetrics `json:"company_metrics"`
	IndustryAverages PerEmployeeMetrics `json:"industry_averages"`
	BenchmarkInfo    BenchmarkInfo      `json:"benchmark_info"`
	Comparison       Comparison         `json:"comparison"`
	Insights         []string           `json:"insights"`
}
