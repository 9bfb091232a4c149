package entitlements

import (
	"strings"

	"github.com/creemops/creemledger/app/models"
)

type Plan string

const (
	PlanFree       Plan = "free"
	PlanStarter    Plan = "starter"
	PlanBusiness   Plan = "business"
	PlanEnterprise Plan = "enterprise"
)

var tierPlans = map[string]Plan{
	"tier-hobby":      PlanStarter,
	"tier-pro":        PlanBusiness,
	"tier-enterprise": PlanEnterprise,
}

// PlanForTier maps a catalog tier id to a plan. Unknown tiers resolve to
// free.
func PlanForTier(tierID string) Plan {
	if p, ok := tierPlans[strings.ToLower(strings.TrimSpace(tierID))]; ok {
		return p
	}
	return PlanFree
}

// ForSubscription derives the effective plan from a projected subscription.
// A missing or non-entitling subscription is free regardless of the product
// it once paid for.
func ForSubscription(sub *models.Subscription, tierID string) Plan {
	if sub == nil || !sub.IsEntitling() {
		return PlanFree
	}
	return PlanForTier(tierID)
}

// Limits are the feature allowances attached to a plan.
type Limits struct {
	PrioritySupport   bool
	AdvancedAnalytics bool
	CustomBranding    bool
}

// LimitsFor returns the allowances for a plan.
func LimitsFor(plan Plan) Limits {
	switch plan {
	case PlanEnterprise:
		return Limits{PrioritySupport: true, AdvancedAnalytics: true, CustomBranding: true}
	case PlanBusiness:
		return Limits{PrioritySupport: true, AdvancedAnalytics: true}
	case PlanStarter:
		return Limits{}
	default:
		return Limits{}
	}
}
