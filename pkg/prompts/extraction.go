package prompts

import (
	"fmt"
	"strings"
	"time"

	"github.com/verdantiq/esg-engine/pkg/models"
)

// ExtractionSystemMessage pins the assistant's role for every turn.
const ExtractionSystemMessage = `You are an ESG data entry assistant for corporate carbon accounting. ` +
	`You extract structured emission activity data from natural language and respond ONLY with valid JSON.`

// FactorAnchor is one canonical emission factor included in every prompt so
// the model's arithmetic stays anchored to known values.
type FactorAnchor struct {
	Activity models.ActivityKind
	Detail   string
	Value    string
}

// DefaultFactorAnchors are the canonical reference factors.
var DefaultFactorAnchors = []FactorAnchor{
	{models.ActivityElectricity, "US grid average", "0.453 kgCO2e/kWh"},
	{models.ActivityNaturalGas, "", "0.184 kgCO2e/kWh"},
	{models.ActivityGasoline, "", "8.89 kgCO2e/gallon"},
	{models.ActivityDiesel, "", "10.21 kgCO2e/gallon"},
	{models.ActivityBusinessTravel, "air, short haul", "0.255 kgCO2e/passenger-mile"},
	{models.ActivityBusinessTravel, "air, long haul", "0.195 kgCO2e/passenger-mile"},
}

// BuildExtractionPrompt assembles the full conversational extraction prompt:
// company profile, current footprint state, recent conversation history, the
// canonical factor table, the activity taxonomy and the strict response
// contract. history must be in chronological order.
func BuildExtractionPrompt(company *models.Company, footprint *models.Footprint, history []*models.Message, userMessage string) string {
	var prompt strings.Builder

	prompt.WriteString("# Emission Data Extraction\n\n")
	prompt.WriteString("Extract structured emission activity data from the user's latest message.\n\n")

	prompt.WriteString("## Company Profile\n\n")
	prompt.WriteString(fmt.Sprintf("- Name: %s\n", company.Name))
	prompt.WriteString(fmt.Sprintf("- Industry: %s\n", company.Industry))
	prompt.WriteString(fmt.Sprintf("- Employees: %d\n", company.EmployeeCount))
	prompt.WriteString(fmt.Sprintf("- Region: %s\n", company.Region))
	if company.HasFacilities {
		prompt.WriteString("- Operates its own facilities\n")
	}
	if company.HasVehicles {
		prompt.WriteString("- Operates a vehicle fleet\n")
	}
	prompt.WriteString("\n")

	prompt.WriteString("## Current Footprint\n\n")
	if footprint == nil {
		prompt.WriteString("No existing footprint for this reporting period. Extracted values will start a new one.\n\n")
	} else {
		prompt.WriteString(fmt.Sprintf("Reporting period: %s\n", footprint.ReportingPeriod))
		if !footprint.UpdatedAt.IsZero() {
			prompt.WriteString(fmt.Sprintf("Snapshot as of: %s\n", footprint.UpdatedAt.UTC().Format(time.RFC3339)))
		}
		prompt.WriteString(fmt.Sprintf("- Scope 1: %.2f tCO2e\n", footprint.Scope1))
		prompt.WriteString(fmt.Sprintf("- Scope 2: %.2f tCO2e\n", footprint.Scope2))
		prompt.WriteString(fmt.Sprintf("- Scope 3: %.2f tCO2e\n", footprint.Scope3))
		prompt.WriteString(fmt.Sprintf("- Total: %.2f tCO2e\n\n", footprint.Total))
	}

	if len(history) > 0 {
		prompt.WriteString("## Conversation So Far\n\n")
		for _, msg := range history {
			label := "User"
			if msg.IsFromAssistant() {
				label = "Assistant"
			}
			prompt.WriteString(fmt.Sprintf("%s: %s\n", label, msg.Content))
		}
		prompt.WriteString("\n")
	}

	prompt.WriteString("## Reference Emission Factors\n\n")
	prompt.WriteString("Use these canonical factors unless the user supplies their own:\n\n")
	for _, a := range DefaultFactorAnchors {
		if a.Detail != "" {
			prompt.WriteString(fmt.Sprintf("- %s (%s): %s\n", a.Activity, a.Detail, a.Value))
		} else {
			prompt.WriteString(fmt.Sprintf("- %s: %s\n", a.Activity, a.Value))
		}
	}
	prompt.WriteString("\n")

	prompt.WriteString("## Activity Taxonomy\n\n")
	prompt.WriteString("activity_type must be one of, with its fixed GHG scope:\n\n")
	for scope := 1; scope <= 3; scope++ {
		for _, kind := range models.RequiredActivities[scope] {
			prompt.WriteString(fmt.Sprintf("- %s (scope %d)\n", kind, scope))
		}
	}
	prompt.WriteString("\n")

	prompt.WriteString("## User Message\n\n")
	prompt.WriteString(userMessage)
	prompt.WriteString("\n\n")

	prompt.WriteString(responseContract)

	return prompt.String()
}

// responseContract is the strict JSON shape demanded of every completion.
const responseContract = `## Response Format

Respond with ONLY a JSON object in exactly this shape. Every key must be present; use null, empty strings or empty arrays when a field does not apply. No markdown fences, no commentary outside the JSON.

{
  "extracted_data": {
    "activity_type": "electricity",
    "scope": 2,
    "quantity": 5000,
    "unit": "kWh",
    "period": "2025-08",
    "emission_factor": 0.453,
    "emission_factor_source": "US grid average",
    "calculated_emissions": 2.27,
    "confidence": 0.95,
    "location": ""
  },
  "validation": {
    "status": "ok",
    "anomalies": [],
    "warnings": [],
    "comparison_to_current": ""
  },
  "ai_response": "Conversational reply to show the user.",
  "clarifying_questions": [],
  "suggested_actions": [
    {
      "type": "update_footprint",
      "field": "scope2_emissions",
      "operation": "add",
      "value": 2.27,
      "requires_confirmation": true
    }
  ]
}

Rules:
- calculated_emissions is in tCO2e (divide kgCO2e by 1000).
- validation.status is "ok", "warning" or "needs_clarification".
- If the message contains no emission data, set extracted_data to null and answer conversationally in ai_response.
- If quantity or unit is ambiguous, set status to "needs_clarification" and ask in clarifying_questions instead of guessing.
- Never propose a suggested action with confidence below 0.5.`
