package entitlements

import "strings"

type Plan string

const (
	PlanFree       Plan = "free"
	PlanPro        Plan = "pro"
	PlanTeam       Plan = "team"
	PlanEnterprise Plan = "enterprise"
)

// Unlimited marks a quota without a ceiling.
const Unlimited = -1

// Limits describes what a plan tier is allowed to use. Counts of -1 mean
// unlimited.
type Limits struct {
	Deadlines    int  `json:"deadlines"`
	TeamMembers  int  `json:"team_members"`
	SMS          int  `json:"sms"`
	Recurring    bool `json:"recurring"`
	Integrations bool `json:"integrations"`
}

// LimitsFor returns the quota set for a plan. Unknown plans fall back to free.
func LimitsFor(plan Plan) Limits {
	switch NormalizePlan(string(plan)) {
	case PlanEnterprise:
		return Limits{Deadlines: Unlimited, TeamMembers: Unlimited, SMS: 500, Recurring: true, Integrations: true}
	case PlanTeam:
		return Limits{Deadlines: Unlimited, TeamMembers: 10, SMS: 100, Recurring: true, Integrations: true}
	case PlanPro:
		return Limits{Deadlines: Unlimited, TeamMembers: 1, SMS: 25, Recurring: true, Integrations: false}
	default:
		return Limits{Deadlines: 5, TeamMembers: 1, SMS: 0, Recurring: false, Integrations: false}
	}
}

// NormalizePlan maps arbitrary input to a known plan, defaulting to free.
func NormalizePlan(plan string) Plan {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case string(PlanPro):
		return PlanPro
	case string(PlanTeam):
		return PlanTeam
	case string(PlanEnterprise):
		return PlanEnterprise
	default:
		return PlanFree
	}
}

// PlanRank orders plans from free (0) upwards so the best of several
// subscriptions can be picked.
func PlanRank(plan Plan) int {
	switch NormalizePlan(string(plan)) {
	case PlanEnterprise:
		return 3
	case PlanTeam:
		return 2
	case PlanPro:
		return 1
	default:
		return 0
	}
}

// IsEntitlingStatus reports whether a subscription status grants its plan.
// past_due keeps access while the provider retries payment.
func IsEntitlingStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active", "trialing", "past_due":
		return true
	default:
		return false
	}
}
