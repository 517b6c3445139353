package models

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// FootprintStatus represents the reporting lifecycle of a footprint.
type FootprintStatus string

const (
	FootprintStatusDraft     FootprintStatus = "draft"
	FootprintStatusSubmitted FootprintStatus = "submitted"
	FootprintStatusVerified  FootprintStatus = "verified"
)

// ValidFootprintStatuses contains all valid footprint status values.
var ValidFootprintStatuses = []FootprintStatus{
	FootprintStatusDraft,
	FootprintStatusSubmitted,
	FootprintStatusVerified,
}

// IsValidFootprintStatus checks if the given status is valid.
func IsValidFootprintStatus(s FootprintStatus) bool {
	for _, v := range ValidFootprintStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Footprint is the mutable aggregate of a company's emissions for one
// reporting period. All emission values are tCO2e at 2-decimal scale.
// At most one footprint exists per (company, period).
type Footprint struct {
	ID              uuid.UUID       `json:"id"`
	CompanyID       uuid.UUID       `json:"company_id"`
	ReportingPeriod string          `json:"reporting_period"` // e.g. "2025-Q3"
	Scope1          float64         `json:"scope1_emissions"`
	Scope2          float64         `json:"scope2_emissions"`
	Scope3          float64         `json:"scope3_emissions"`
	Total           float64         `json:"total_emissions"`
	Status          FootprintStatus `json:"status"`
	Version         int64           `json:"version"` // optimistic concurrency token
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	VerifiedAt      *time.Time      `json:"verified_at,omitempty"`
}

// ScopeField names the mutable scope columns as they appear on the wire.
type ScopeField string

const (
	FieldScope1 ScopeField = "scope1_emissions"
	FieldScope2 ScopeField = "scope2_emissions"
	FieldScope3 ScopeField = "scope3_emissions"
)

// ValidScopeFields contains all mutable scope field names.
var ValidScopeFields = []ScopeField{FieldScope1, FieldScope2, FieldScope3}

// IsValidScopeField checks if the given field is a mutable scope column.
func IsValidScopeField(f ScopeField) bool {
	for _, v := range ValidScopeFields {
		if v == f {
			return true
		}
	}
	return false
}

// Round2 rounds a tCO2e value to the 2-decimal storage scale.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ScopeValue returns the current value of the named scope field.
func (f *Footprint) ScopeValue(field ScopeField) float64 {
	switch field {
	case FieldScope1:
		return f.Scope1
	case FieldScope2:
		return f.Scope2
	case FieldScope3:
		return f.Scope3
	}
	return 0
}

// SetScopeValue sets the named scope field, rounded to storage scale.
func (f *Footprint) SetScopeValue(field ScopeField, value float64) {
	v := Round2(value)
	switch field {
	case FieldScope1:
		f.Scope1 = v
	case FieldScope2:
		f.Scope2 = v
	case FieldScope3:
		f.Scope3 = v
	}
}

// RecomputeTotal re-derives the total from the scope columns.
func (f *Footprint) RecomputeTotal() {
	f.Total = Round2(f.Scope1 + f.Scope2 + f.Scope3)
}

// CheckInvariant verifies total == scope1+scope2+scope3 and non-negativity.
// Every mutation path must pass this before commit.
func (f *Footprint) CheckInvariant() error {
	if f.Scope1 < 0 || f.Scope2 < 0 || f.Scope3 < 0 {
		return fmt.Errorf("negative scope emissions: scope1=%.2f scope2=%.2f scope3=%.2f",
			f.Scope1, f.Scope2, f.Scope3)
	}
	if Round2(f.Scope1+f.Scope2+f.Scope3) != f.Total {
		return fmt.Errorf("total %.2f does not equal scope sum %.2f",
			f.Total, Round2(f.Scope1+f.Scope2+f.Scope3))
	}
	return nil
}

// FieldChange records one applied scope mutation for the audit trail.
// Delta is the clamped (actually applied) change; Requested preserves the
// caller's value when the non-negative floor truncated it.
type FieldChange struct {
	Previous  float64  `json:"previous"`
	New       float64  `json:"new"`
	Delta     float64  `json:"delta"`
	Requested *float64 `json:"requested,omitempty"`
}
