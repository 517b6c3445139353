package models

import (
	"time"

	"github.com/google/uuid"
)

// ActivityEntry is one recorded activity quantity with its computed
// emissions. Entries accumulate into the company's monthly series and are
// never mutated after insert.
type ActivityEntry struct {
	ID              uuid.UUID    `json:"id"`
	CompanyID       uuid.UUID    `json:"company_id"`
	FootprintID     uuid.UUID    `json:"footprint_id"`
	ActivityType    ActivityKind `json:"activity_type"`
	ReportingPeriod string       `json:"reporting_period"` // "YYYY-MM"
	Quantity        float64      `json:"quantity"`
	Unit            string       `json:"unit"`
	Emissions       float64      `json:"emissions"` // tCO2e
	SourceMessageID *uuid.UUID   `json:"source_message_id,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
}
