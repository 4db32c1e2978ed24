package billing

import (
	"errors"
	"strings"

	"github.com/duedesk/DueDesk/internal/pkg/entitlements"
	"github.com/duedesk/DueDesk/internal/pkg/env"
)

// Price is one purchasable plan variant offered at checkout.
type Price struct {
	Key      string
	EnvVar   string
	Interval string
	Plan     entitlements.Plan
}

// priceCatalog is the static priceKey table exposed to the frontend. Actual
// provider price ids come from the environment so test and live mode can use
// different ids without code changes.
var priceCatalog = []Price{
	{Key: "pro_monthly", EnvVar: "STRIPE_PRICE_PRO_MONTHLY", Interval: "month", Plan: entitlements.PlanPro},
	{Key: "pro_yearly", EnvVar: "STRIPE_PRICE_PRO_YEARLY", Interval: "year", Plan: entitlements.PlanPro},
	{Key: "team_monthly", EnvVar: "STRIPE_PRICE_TEAM_MONTHLY", Interval: "month", Plan: entitlements.PlanTeam},
	{Key: "team_yearly", EnvVar: "STRIPE_PRICE_TEAM_YEARLY", Interval: "year", Plan: entitlements.PlanTeam},
	{Key: "enterprise_monthly", EnvVar: "STRIPE_PRICE_ENTERPRISE_MONTHLY", Interval: "month", Plan: entitlements.PlanEnterprise},
	{Key: "enterprise_yearly", EnvVar: "STRIPE_PRICE_ENTERPRISE_YEARLY", Interval: "year", Plan: entitlements.PlanEnterprise},
}

var ErrUnknownPriceKey = errors.New("unknown price key")

// ResolvePriceKey maps a public price key to its provider price id and plan.
func ResolvePriceKey(priceKey string) (priceID string, price Price, err error) {
	key := strings.ToLower(strings.TrimSpace(priceKey))
	for _, p := range priceCatalog {
		if p.Key == key {
			id := strings.TrimSpace(env.GetEnv(p.EnvVar, ""))
			if id == "" {
				return "", Price{}, errors.New(p.EnvVar + " is not configured")
			}
			return id, p, nil
		}
	}
	return "", Price{}, ErrUnknownPriceKey
}

// PriceKeys lists the purchasable keys in catalog order.
func PriceKeys() []string {
	keys := make([]string, 0, len(priceCatalog))
	for _, p := range priceCatalog {
		keys = append(keys, p.Key)
	}
	return keys
}
