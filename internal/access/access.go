// Package access decides whether a tier may run a lesson step.
// This is pure domain logic - no I/O, no side effects.
package access

import "promptschola/internal/entitlement"

// Lesson step bounds. Steps above MaxFreeStep are paid-gated.
const (
	MinStep     = 1
	MaxStep     = 6
	MaxFreeStep = 2
)

// Decision is the per-request access outcome. Allowed decisions carry no
// further context; denials carry everything a client needs to render a
// paywall without a second round trip.
type Decision struct {
	Allowed  bool
	Required entitlement.Tier
	Current  entitlement.Tier
	Step     int
}

// ValidStep reports whether step is within the product's lesson range.
// Handlers check this before consulting the validator or the paywall.
func ValidStep(step int) bool {
	return step >= MinStep && step <= MaxStep
}

// Decide applies the paywall rule: free (and anon) tiers run steps 1-2, paid
// runs the full range.
func Decide(tier entitlement.Tier, step int) Decision {
	if tier.IsPaid() || step <= MaxFreeStep {
		return Decision{Allowed: true, Current: tier, Step: step}
	}
	return Decision{
		Allowed:  false,
		Required: entitlement.TierPaid,
		Current:  tier,
		Step:     step,
	}
}
