package models

// CompletenessScore grades a footprint's activity coverage against the
// fixed per-scope taxonomy.
type CompletenessScore struct {
	Scope1Score       float64                `json:"scope1_score"`
	Scope2Score       float64                `json:"scope2_score"`
	Scope3Score       float64                `json:"scope3_score"`
	OverallScore      float64                `json:"overall_score"`
	Grade             string                 `json:"grade"`
	MeetsMinimum      bool                   `json:"meets_minimum"`
	MissingActivities []ActivityKind         `json:"missing_activities"`
	MissingByScope    map[int][]ActivityKind `json:"missing_by_scope"`
}

// NextAction is one prioritized data-entry recommendation.
type NextAction struct {
	Priority        Priority `json:"priority"`
	Title           string   `json:"title"`
	Reason          string   `json:"reason"`
	ActionTag       string   `json:"action_tag"`
	EstimatedImpact string   `json:"estimated_impact,omitempty"`
}

// Reminder is one calendar-driven data-entry nudge.
type Reminder struct {
	Type      string   `json:"type"` // monthly, quarterly, annual, utility_cycle
	Priority  Priority `json:"priority"`
	Title     string   `json:"title"`
	Message   string   `json:"message"`
	ActionTag string   `json:"action_tag"`
}

// OnboardingQuestion is one form field in an onboarding step.
type OnboardingQuestion struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"` // text, number, select, boolean
	Label    string   `json:"label"`
	Options  []string `json:"options,omitempty"`
	Required bool     `json:"required"`
	ShowIf   string   `json:"show_if,omitempty"`
}

// OnboardingStep is one stage of the guided first-entry flow.
type OnboardingStep struct {
	ID        string               `json:"id"`
	Title     string               `json:"title"`
	Optional  bool                 `json:"optional"`
	Questions []OnboardingQuestion `json:"questions"`
}
