package prompts

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/verdantiq/esg-engine/pkg/models"
)

func testCompany() *models.Company {
	return &models.Company{
		ID:            uuid.New(),
		Name:          "Acme Manufacturing",
		Industry:      "manufacturing",
		EmployeeCount: 250,
		Region:        "US",
		HasFacilities: true,
	}
}

func TestBuildExtractionPrompt_NoFootprint(t *testing.T) {
	prompt := BuildExtractionPrompt(testCompany(), nil, nil, "We used 5000 kWh last month")

	assert.Contains(t, prompt, "Acme Manufacturing")
	assert.Contains(t, prompt, "No existing footprint")
	assert.Contains(t, prompt, "We used 5000 kWh last month")
	assert.Contains(t, prompt, "0.453 kgCO2e/kWh")
	assert.Contains(t, prompt, `"requires_confirmation": true`)
	assert.NotContains(t, prompt, "Conversation So Far")
}

func TestBuildExtractionPrompt_WithFootprintAndHistory(t *testing.T) {
	fp := &models.Footprint{
		ReportingPeriod: "2025-Q3",
		Scope1:          10.50,
		Scope2:          22.00,
		Scope3:          5.25,
		Total:           37.75,
		UpdatedAt:       time.Date(2025, 8, 14, 9, 30, 0, 0, time.UTC),
	}
	history := []*models.Message{
		{Role: models.MessageRoleUser, Content: "How do I report fuel?"},
		{Role: models.MessageRoleAssistant, Content: "Tell me the fuel type and quantity."},
	}

	prompt := BuildExtractionPrompt(testCompany(), fp, history, "800 gallons of diesel")

	assert.Contains(t, prompt, "2025-Q3")
	assert.Contains(t, prompt, "Snapshot as of: 2025-08-14T09:30:00Z")
	assert.Contains(t, prompt, "Total: 37.75 tCO2e")
	assert.Contains(t, prompt, "User: How do I report fuel?")
	assert.Contains(t, prompt, "Assistant: Tell me the fuel type and quantity.")

	// History must appear before the latest message.
	assert.Less(t, strings.Index(prompt, "How do I report fuel?"), strings.Index(prompt, "800 gallons of diesel"))
}

func TestBuildExtractionPrompt_TaxonomyComplete(t *testing.T) {
	prompt := BuildExtractionPrompt(testCompany(), nil, nil, "hello")

	for kind := range models.ActivityScopes {
		assert.Contains(t, prompt, string(kind))
	}
}
