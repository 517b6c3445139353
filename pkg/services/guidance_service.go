package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verdantiq/esg-engine/pkg/models"
	"github.com/verdantiq/esg-engine/pkg/repositories"
)

// GuidanceService derives data-entry recommendations from completeness
// scoring, the historical series and the company profile.
type GuidanceService interface {
	NextActions(ctx context.Context, companyID uuid.UUID, period string) ([]models.NextAction, error)
	SeasonalReminders(now time.Time) []models.Reminder
	OnboardingFlow(ctx context.Context, companyID uuid.UUID) ([]models.OnboardingStep, error)
}

type guidanceService struct {
	companies repositories.CompanyRepository
	series    repositories.SeriesRepository
	scorer    CompletenessService
	logger    *zap.Logger
}

// NewGuidanceService creates a new GuidanceService.
func NewGuidanceService(companies repositories.CompanyRepository, series repositories.SeriesRepository, scorer CompletenessService, logger *zap.Logger) GuidanceService {
	return &guidanceService{
		companies: companies,
		series:    series,
		scorer:    scorer,
		logger:    logger.Named("guidance-service"),
	}
}

var _ GuidanceService = (*guidanceService)(nil)

func (s *guidanceService) NextActions(ctx context.Context, companyID uuid.UUID, period string) ([]models.NextAction, error) {
	score, err := s.scorer.Score(ctx, companyID, period)
	if err != nil {
		return nil, err
	}

	monthlyPoints, err := s.series.CountMonthlyDataPoints(ctx, companyID)
	if err != nil {
		return nil, err
	}
	documents, err := s.series.CountDocuments(ctx, companyID)
	if err != nil {
		return nil, err
	}

	actions := []models.NextAction{}

	electricityMissing := false
	for _, kind := range score.MissingActivities {
		if kind == models.ActivityElectricity {
			electricityMissing = true
			break
		}
	}
	if electricityMissing {
		actions = append(actions, models.NextAction{
			Priority:        models.PriorityHigh,
			Title:           "Add Electricity Usage",
			Reason:          "Electricity is the single largest emission source for most companies and is required for scope 2.",
			ActionTag:       "add_electricity",
			EstimatedImpact: "Typically 30-60% of total footprint",
		})
	}

	if monthlyPoints < 3 {
		actions = append(actions, models.NextAction{
			Priority:        models.PriorityHigh,
			Title:           "Add More Monthly Data",
			Reason:          fmt.Sprintf("Only %d months of data recorded; predictions need at least 3.", monthlyPoints),
			ActionTag:       "add_monthly_data",
			EstimatedImpact: "Enables trend analysis and forecasting",
		})
	}

	if documents == 0 {
		actions = append(actions, models.NextAction{
			Priority:        models.PriorityMedium,
			Title:           "Upload Utility Bills",
			Reason:          "Source documents raise data confidence and support verification.",
			ActionTag:       "upload_documents",
			EstimatedImpact: "Improves audit readiness",
		})
	}

	if score.Scope1Score >= 0.8 && score.Scope2Score >= 0.8 && score.Scope3Score < 0.3 {
		actions = append(actions, models.NextAction{
			Priority:        models.PriorityMedium,
			Title:           "Start Tracking Scope 3",
			Reason:          "Scopes 1 and 2 are well covered; value-chain emissions are the next gap.",
			ActionTag:       "start_scope3",
			EstimatedImpact: "Scope 3 often exceeds scopes 1 and 2 combined",
		})
	}

	if score.OverallScore >= 0.75 {
		actions = append(actions, models.NextAction{
			Priority:        models.PriorityLow,
			Title:           "Compare to Industry Peers",
			Reason:          "Coverage is strong enough for a meaningful benchmark comparison.",
			ActionTag:       "benchmark_compare",
			EstimatedImpact: "Contextualizes your performance",
		})
	}

	return sortByPriority(actions), nil
}

func (s *guidanceService) SeasonalReminders(now time.Time) []models.Reminder {
	reminders := []models.Reminder{}

	day := now.Day()
	month := now.Month()
	lastDay := time.Date(now.Year(), month+1, 0, 0, 0, 0, 0, now.Location()).Day()

	if day > lastDay-5 {
		reminders = append(reminders, models.Reminder{
			Type:      "monthly",
			Priority:  models.PriorityMedium,
			Title:     "Month-End Data Entry",
			Message:   fmt.Sprintf("Record your %s utility usage before the month closes.", month),
			ActionTag: "enter_monthly_data",
		})
	}

	if (month == time.March || month == time.June || month == time.September || month == time.December) && day >= 25 {
		reminders = append(reminders, models.Reminder{
			Type:      "quarterly",
			Priority:  models.PriorityHigh,
			Title:     "Quarterly Review",
			Message:   "The quarter is closing. Review scope totals and fill reporting gaps.",
			ActionTag: "quarterly_review",
		})
	}

	if month == time.December && day >= 20 {
		reminders = append(reminders, models.Reminder{
			Type:      "annual",
			Priority:  models.PriorityHigh,
			Title:     "Annual Reporting Deadline",
			Message:   "Finalize the year's footprint for annual disclosure.",
			ActionTag: "annual_close",
		})
	}

	if day >= 10 && day <= 20 {
		reminders = append(reminders, models.Reminder{
			Type:      "utility_cycle",
			Priority:  models.PriorityLow,
			Title:     "Utility Bills Due",
			Message:   "Most utility bills arrive mid-month. Enter them while they are fresh.",
			ActionTag: "enter_utility_bills",
		})
	}

	return reminders
}

func (s *guidanceService) OnboardingFlow(ctx context.Context, companyID uuid.UUID) ([]models.OnboardingStep, error) {
	company, err := s.companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, err
	}

	steps := []models.OnboardingStep{
		{
			ID:    "company_profile",
			Title: "Confirm Company Profile",
			Questions: []models.OnboardingQuestion{
				{ID: "industry", Type: "select", Label: "Industry", Options: []string{"manufacturing", "technology", "retail", "services", "logistics", "other"}, Required: true},
				{ID: "employee_count", Type: "number", Label: "Number of employees", Required: true},
				{ID: "region", Type: "text", Label: "Primary operating country", Required: true},
			},
		},
		{
			ID:    "electricity",
			Title: "Electricity Usage",
			Questions: []models.OnboardingQuestion{
				{ID: "electricity_kwh", Type: "number", Label: "Monthly electricity usage (kWh)", Required: true},
				{ID: "electricity_provider", Type: "text", Label: "Utility provider", Required: false},
			},
		},
	}

	if company.HasFacilities {
		steps = append(steps, models.OnboardingStep{
			ID:    "heating_fuels",
			Title: "Heating and Facility Fuels",
			Questions: []models.OnboardingQuestion{
				{ID: "heating_type", Type: "select", Label: "Primary heating fuel", Options: []string{"natural_gas", "fuel_oil", "electric", "none"}, Required: true},
				{ID: "heating_quantity", Type: "number", Label: "Monthly heating fuel usage", Required: false, ShowIf: "heating_type != none"},
			},
		})
	}

	if company.HasVehicles || company.EmployeeCount > 10 {
		steps = append(steps, models.OnboardingStep{
			ID:    "vehicles_travel",
			Title: "Vehicles and Business Travel",
			Questions: []models.OnboardingQuestion{
				{ID: "fleet_fuel", Type: "select", Label: "Fleet fuel type", Options: []string{"gasoline", "diesel", "electric", "none"}, Required: false},
				{ID: "fleet_gallons", Type: "number", Label: "Monthly fleet fuel (gallons)", Required: false, ShowIf: "fleet_fuel in (gasoline, diesel)"},
				{ID: "air_miles", Type: "number", Label: "Annual air travel (passenger-miles)", Required: false},
			},
		})
	}

	steps = append(steps,
		models.OnboardingStep{
			ID:       "scope3",
			Title:    "Value Chain (Scope 3)",
			Optional: true,
			Questions: []models.OnboardingQuestion{
				{ID: "commuting", Type: "boolean", Label: "Track employee commuting?", Required: false},
				{ID: "purchased_goods", Type: "boolean", Label: "Track purchased goods and services?", Required: false},
				{ID: "waste", Type: "boolean", Label: "Track waste disposal?", Required: false},
			},
		},
		models.OnboardingStep{
			ID:        "summary",
			Title:     "Review and Finish",
			Questions: []models.OnboardingQuestion{},
		},
	)

	return steps, nil
}

// sortByPriority orders actions high, medium, low while preserving the
// composition order within each band.
func sortByPriority(actions []models.NextAction) []models.NextAction {
	ordered := make([]models.NextAction, 0, len(actions))
	for _, p := range []models.Priority{models.PriorityHigh, models.PriorityMedium, models.PriorityLow} {
		for _, a := range actions {
			if a.Priority == p {
				ordered = append(ordered, a)
			}
		}
	}
	return ordered
}
