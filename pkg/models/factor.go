package models

import (
	"time"

	"github.com/google/uuid"
)

// RegionScope orders emission factor rows by geographic specificity.
// Higher Specificity wins during lookup.
type RegionScope string

const (
	RegionGlobal  RegionScope = "global"
	RegionCountry RegionScope = "country"
	RegionState   RegionScope = "state"
	RegionUtility RegionScope = "utility"
)

// Specificity returns the lookup precedence of a region scope.
func (r RegionScope) Specificity() int {
	switch r {
	case RegionUtility:
		return 3
	case RegionState:
		return 2
	case RegionCountry:
		return 1
	default:
		return 0
	}
}

// FactorConfidence grades the provenance quality of a factor row.
type FactorConfidence string

const (
	FactorConfidenceHigh      FactorConfidence = "high"
	FactorConfidenceMedium    FactorConfidence = "medium"
	FactorConfidenceLow       FactorConfidence = "low"
	FactorConfidenceEstimated FactorConfidence = "estimated"
)

// GasMix is the greenhouse gas composition of a factor, in percent.
type GasMix struct {
	CO2 float64 `json:"co2" yaml:"co2"`
	CH4 float64 `json:"ch4" yaml:"ch4"`
	N2O float64 `json:"n2o" yaml:"n2o"`
}

// EmissionFactor converts an activity quantity to tCO2e.
// Rows are process-wide reference data, unique on
// (activity_type, sub_category, region_code, year).
type EmissionFactor struct {
	ID           uuid.UUID        `json:"id"`
	ActivityType ActivityKind     `json:"activity_type"`
	SubCategory  string           `json:"sub_category"`
	RegionScope  RegionScope      `json:"region_scope"`
	RegionCode   string           `json:"region_code"`
	Year         int              `json:"year"`
	Value        float64          `json:"factor_value"`
	Unit         string           `json:"unit"` // e.g. "kgCO2e/kWh"
	Confidence   FactorConfidence `json:"confidence"`
	Gases        GasMix           `json:"gas_mix"`
	IsDefault    bool             `json:"is_default"`
	UsageCount   int64            `json:"usage_count"`
	UpdatedAt    time.Time        `json:"updated_at"`
}
