package entitlement

import (
	"strings"
	"time"
)

// Tier is the coarse subscription level gating lesson access.
type Tier string

const (
	// TierAnon marks a request with no identity at all. Only callers that
	// distinguish anonymous visitors from signed-in free users see it; for
	// access decisions it behaves exactly like TierFree.
	TierAnon Tier = "anon"
	TierFree Tier = "free"
	TierPaid Tier = "paid"
)

// IsPaid reports whether the tier unlocks paid-gated steps.
func (t Tier) IsPaid() bool { return t == TierPaid }

// paidTiers are the raw tier values the billing history has produced that all
// mean "paid". Anything else normalizes to free.
var paidTiers = map[string]struct{}{
	"paid":    {},
	"pro":     {},
	"premium": {},
	"mastery": {},
}

// Record is the durable per-user entitlement row. Owned by the billing
// integration; read-only from the resolver's perspective.
type Record struct {
	UserID                string
	Tier                  string
	IsPaid                *bool
	BillingCustomerID     string
	BillingSubscriptionID string
	CurrentPeriodEnd      *time.Time
	UpdatedAt             time.Time
}

// Normalize collapses a raw entitlement record into free or paid. Pure and
// total: a nil record, an unknown tier string, or missing fields all yield
// free. is_paid=true is an alternate route to paid when tier is absent.
func Normalize(rec *Record) Tier {
	if rec == nil {
		return TierFree
	}
	raw := strings.ToLower(strings.TrimSpace(rec.Tier))
	if _, ok := paidTiers[raw]; ok {
		return TierPaid
	}
	if raw == "" && rec.IsPaid != nil && *rec.IsPaid {
		return TierPaid
	}
	return TierFree
}
