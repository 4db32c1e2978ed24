package entitlements

import "testing"

func TestLimitsFor(t *testing.T) {
	tests := []struct {
		plan Plan
		want Limits
	}{
		{plan: PlanFree, want: Limits{Deadlines: 5, TeamMembers: 1, SMS: 0, Recurring: false, Integrations: false}},
		{plan: PlanPro, want: Limits{Deadlines: Unlimited, TeamMembers: 1, SMS: 25, Recurring: true, Integrations: false}},
		{plan: PlanTeam, want: Limits{Deadlines: Unlimited, TeamMembers: 10, SMS: 100, Recurring: true, Integrations: true}},
		{plan: PlanEnterprise, want: Limits{Deadlines: Unlimited, TeamMembers: Unlimited, SMS: 500, Recurring: true, Integrations: true}},
		{plan: Plan("bogus"), want: Limits{Deadlines: 5, TeamMembers: 1, SMS: 0, Recurring: false, Integrations: false}},
	}

	for _, tt := range tests {
		if got := LimitsFor(tt.plan); got != tt.want {
			t.Fatalf("LimitsFor(%q) = %+v, want %+v", tt.plan, got, tt.want)
		}
	}
}

func TestNormalizePlan(t *testing.T) {
	tests := []struct {
		in   string
		want Plan
	}{
		{in: "free", want: PlanFree},
		{in: "pro", want: PlanPro},
		{in: "TEAM", want: PlanTeam},
		{in: " enterprise ", want: PlanEnterprise},
		{in: "gold", want: PlanFree},
		{in: "", want: PlanFree},
	}

	for _, tt := range tests {
		if got := NormalizePlan(tt.in); got != tt.want {
			t.Fatalf("NormalizePlan(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPlanRankOrdering(t *testing.T) {
	if PlanRank(PlanFree) >= PlanRank(PlanPro) {
		t.Fatalf("expected pro to outrank free")
	}
	if PlanRank(PlanPro) >= PlanRank(PlanTeam) {
		t.Fatalf("expected team to outrank pro")
	}
	if PlanRank(PlanTeam) >= PlanRank(PlanEnterprise) {
		t.Fatalf("expected enterprise to outrank team")
	}
}

func TestIsEntitlingStatus(t *testing.T) {
	for _, status := range []string{"active", "trialing", "past_due", "Active"} {
		if !IsEntitlingStatus(status) {
			t.Fatalf("expected status %q to be entitling", status)
		}
	}
	for _, status := range []string{"canceled", "unpaid", "incomplete", ""} {
		if IsEntitlingStatus(status) {
			t.Fatalf("expected status %q to be non-entitling", status)
		}
	}
}
