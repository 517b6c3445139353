package models

import (
	"time"
)

// SeriesPoint is one observation in a company's historical activity series.
// Value is the tCO2e contribution recorded for the period bucket.
type SeriesPoint struct {
	Period string    `json:"period"` // e.g. "2025-03"
	Date   time.Time `json:"date"`
	Value  float64   `json:"value"`
}
