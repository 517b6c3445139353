package models

// PredictionMethod tags how a forecast was produced.
const PredictionMethodSeasonalGrowth = "seasonal_growth_adjusted"

// Prediction is the forward estimate for one activity and target period.
// Predicted is nil when the series is too short; Success stays true so
// callers distinguish "no data" from engine failure.
type Prediction struct {
	Success        bool         `json:"success"`
	Activity       ActivityKind `json:"activity_type"`
	TargetPeriod   string       `json:"target_period,omitempty"`
	Predicted      *float64     `json:"predicted"`
	Lower          float64      `json:"lower_bound"`
	Upper          float64      `json:"upper_bound"`
	Confidence     float64      `json:"confidence"`
	SeasonalFactor float64      `json:"seasonal_factor"`
	GrowthFactor   float64      `json:"growth_factor"`
	DataPointsUsed int          `json:"data_points_used"`
	Method         string       `json:"method,omitempty"`
	Reasoning      string       `json:"reasoning,omitempty"`
	Message        string       `json:"message,omitempty"`
	Error          string       `json:"error,omitempty"`
}

// SeasonalAnalysis describes per-month usage patterns for one activity.
type SeasonalAnalysis struct {
	Success         bool            `json:"success"`
	Activity        ActivityKind    `json:"activity_type"`
	HasPattern      bool            `json:"has_pattern"`
	MonthlyFactors  map[int]float64 `json:"monthly_factors,omitempty"` // month number → mean/overall
	PeakMonths      []int           `json:"peak_months,omitempty"`
	LowMonths       []int           `json:"low_months,omitempty"`
	PatternStrength float64         `json:"pattern_strength"`
	DataPointsUsed  int             `json:"data_points_used"`
	Message         string          `json:"message,omitempty"`
	Error           string          `json:"error,omitempty"`
}

// TrendDirection classifies an annualized growth rate.
type TrendDirection string

const (
	TrendStable     TrendDirection = "stable"
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
)

// GrowthTrend is the month-over-month growth analysis for one activity.
type GrowthTrend struct {
	Success        bool           `json:"success"`
	Activity       ActivityKind   `json:"activity_type"`
	MonthlyRate    float64        `json:"monthly_growth_rate"`
	AnnualRate     float64        `json:"annual_growth_rate"`
	Direction      TrendDirection `json:"direction"`
	Significant    bool           `json:"significant"`
	Confidence     float64        `json:"confidence"`
	DataPointsUsed int            `json:"data_points_used"`
	Message        string         `json:"message,omitempty"`
	Error          string         `json:"error,omitempty"`
}
