package models

// ActivityKind identifies a tracked emission activity.
type ActivityKind string

const (
	ActivityElectricity       ActivityKind = "electricity"
	ActivityNaturalGas        ActivityKind = "natural_gas"
	ActivityFuelOil           ActivityKind = "fuel_oil"
	ActivityDiesel            ActivityKind = "diesel"
	ActivityGasoline          ActivityKind = "gasoline"
	ActivityProcessEmissions  ActivityKind = "process_emissions"
	ActivityBusinessTravel    ActivityKind = "business_travel"
	ActivityEmployeeCommuting ActivityKind = "employee_commuting"
	ActivityPurchasedGoods    ActivityKind = "purchased_goods"
	ActivityWasteDisposal     ActivityKind = "waste_disposal"
	ActivityUpstreamTransport ActivityKind = "upstream_transport"
)

// ActivityScopes is the single source of truth for the activity → GHG scope
// mapping. Keep the rule here; nothing else encodes it.
var ActivityScopes = map[ActivityKind]int{
	ActivityElectricity:       2,
	ActivityNaturalGas:        1,
	ActivityFuelOil:           1,
	ActivityDiesel:            1,
	ActivityGasoline:          1,
	ActivityProcessEmissions:  1,
	ActivityBusinessTravel:    3,
	ActivityEmployeeCommuting: 3,
	ActivityPurchasedGoods:    3,
	ActivityWasteDisposal:     3,
	ActivityUpstreamTransport: 3,
}

// ScopeForActivity returns the GHG scope for an activity, or 0 if unknown.
func ScopeForActivity(kind ActivityKind) int {
	return ActivityScopes[kind]
}

// IsValidActivityKind checks if the given kind is part of the taxonomy.
func IsValidActivityKind(kind ActivityKind) bool {
	_, ok := ActivityScopes[kind]
	return ok
}

// RequiredActivities is the fixed completeness taxonomy per scope.
var RequiredActivities = map[int][]ActivityKind{
	1: {ActivityNaturalGas, ActivityFuelOil, ActivityDiesel, ActivityGasoline, ActivityProcessEmissions},
	2: {ActivityElectricity},
	3: {ActivityBusinessTravel, ActivityEmployeeCommuting, ActivityPurchasedGoods, ActivityWasteDisposal, ActivityUpstreamTransport},
}

// Completeness scoring constants. Tests reference these same values so
// threshold changes happen in exactly one place.
const (
	Scope1Weight = 0.35
	Scope2Weight = 0.35
	Scope3Weight = 0.30

	MinimumScope1Score = 0.60
	MinimumScope2Score = 1.00
	MinimumScope3Score = 0.40
)

// Grade bands for the overall completeness score.
const (
	GradeABand = 0.90
	GradeBBand = 0.75
	GradeCBand = 0.60
	GradeDBand = 0.40
)

// GradeForScore maps an overall completeness score to a letter grade.
func GradeForScore(score float64) string {
	switch {
	case score >= GradeABand:
		return "A"
	case score >= GradeBBand:
		return "B"
	case score >= GradeCBand:
		return "C"
	case score >= GradeDBand:
		return "D"
	default:
		return "F"
	}
}

// Priority levels for missing-data alerts and next actions.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// MissingActivityPriority returns the alert priority for an unreported activity.
// Electricity is always high; scope 1 fuels are high; scope 3 is low;
// everything else is medium.
func MissingActivityPriority(kind ActivityKind) Priority {
	if kind == ActivityElectricity {
		return PriorityHigh
	}
	switch kind {
	case ActivityNaturalGas, ActivityFuelOil, ActivityDiesel, ActivityGasoline:
		return PriorityHigh
	}
	if ScopeForActivity(kind) == 3 {
		return PriorityLow
	}
	return PriorityMedium
}
