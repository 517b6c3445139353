package models

import (
	"encoding/json"

	"github.com/verdantiq/esg-engine/pkg/jsonutil"
)

// ExtractionEnvelope is the fixed-shape object the Extraction Engine returns
// for every conversational turn. Every key is present on every turn; any of
// them may be empty or null.
type ExtractionEnvelope struct {
	ExtractedData       *ExtractedData    `json:"extracted_data"`
	Validation          Validation        `json:"validation"`
	AIResponse          string            `json:"ai_response"`
	ClarifyingQuestions []string          `json:"clarifying_questions"`
	SuggestedActions    []SuggestedAction `json:"suggested_actions"`
}

// ExtractedData is the structured emission entry parsed from an utterance.
type ExtractedData struct {
	ActivityType         string  `json:"activity_type"`
	Scope                int     `json:"scope"`
	Quantity             float64 `json:"quantity"`
	Unit                 string  `json:"unit"`
	Period               string  `json:"period,omitempty"`
	EmissionFactor       float64 `json:"emission_factor"`
	EmissionFactorSource string  `json:"emission_factor_source,omitempty"`
	CalculatedEmissions  float64 `json:"calculated_emissions"` // tCO2e
	Confidence           float64 `json:"confidence"`           // 0-1
	Location             string  `json:"location,omitempty"`
}

// UnmarshalJSON tolerates the type drift LLM output shows in practice:
// quoted numbers ("5000"), values with units ("5000 kWh"), and numeric
// activity codes. Fields that cannot be read are left at their zero value.
func (d *ExtractedData) UnmarshalJSON(data []byte) error {
	var raw struct {
		ActivityType         json.RawMessage `json:"activity_type"`
		Scope                json.RawMessage `json:"scope"`
		Quantity             json.RawMessage `json:"quantity"`
		Unit                 json.RawMessage `json:"unit"`
		Period               json.RawMessage `json:"period"`
		EmissionFactor       json.RawMessage `json:"emission_factor"`
		EmissionFactorSource json.RawMessage `json:"emission_factor_source"`
		CalculatedEmissions  json.RawMessage `json:"calculated_emissions"`
		Confidence           json.RawMessage `json:"confidence"`
		Location             json.RawMessage `json:"location"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	d.ActivityType = jsonutil.FlexibleStringValue(raw.ActivityType)
	d.Unit = jsonutil.FlexibleStringValue(raw.Unit)
	d.Period = jsonutil.FlexibleStringValue(raw.Period)
	d.EmissionFactorSource = jsonutil.FlexibleStringValue(raw.EmissionFactorSource)
	d.Location = jsonutil.FlexibleStringValue(raw.Location)

	if f, ok := jsonutil.FlexibleFloatValue(raw.Scope); ok {
		d.Scope = int(f)
	}
	if f, ok := jsonutil.FlexibleFloatValue(raw.Quantity); ok {
		d.Quantity = f
	}
	if f, ok := jsonutil.FlexibleFloatValue(raw.EmissionFactor); ok {
		d.EmissionFactor = f
	}
	if f, ok := jsonutil.FlexibleFloatValue(raw.CalculatedEmissions); ok {
		d.CalculatedEmissions = f
	}
	if f, ok := jsonutil.FlexibleFloatValue(raw.Confidence); ok {
		d.Confidence = f
	}
	return nil
}

// ExtractionStatus classifies a turn's validation outcome.
type ExtractionStatus string

const (
	ExtractionOK                 ExtractionStatus = "ok"
	ExtractionWarning            ExtractionStatus = "warning"
	ExtractionNeedsClarification ExtractionStatus = "needs_clarification"
)

// Validation carries the post-parse checks applied to extracted data.
type Validation struct {
	Status              ExtractionStatus `json:"status"`
	Anomalies           []string         `json:"anomalies"`
	Warnings            []string         `json:"warnings"`
	ComparisonToCurrent string           `json:"comparison_to_current,omitempty"`
}

// UpdateOperation is the arithmetic applied to a scope field.
type UpdateOperation string

const (
	OperationAdd      UpdateOperation = "add"
	OperationSet      UpdateOperation = "set"
	OperationSubtract UpdateOperation = "subtract"
)

// IsValidUpdateOperation checks if the given operation is valid.
func IsValidUpdateOperation(op UpdateOperation) bool {
	return op == OperationAdd || op == OperationSet || op == OperationSubtract
}

// SuggestedAction is a footprint mutation proposed by the extraction engine.
// It is never applied without the user's confirmation when
// RequiresConfirmation is set.
type SuggestedAction struct {
	Type                 string          `json:"type"` // "update_footprint"
	Field                ScopeField      `json:"field"`
	Operation            UpdateOperation `json:"operation"`
	Value                float64         `json:"value"`
	RequiresConfirmation bool            `json:"requires_confirmation"`
}
