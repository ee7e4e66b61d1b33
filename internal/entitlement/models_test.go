package entitlement

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func boolPtr(b bool) *bool { return &b }

func TestNormalize_Totality(t *testing.T) {
	// Every combination of observed tier strings and is_paid values must
	// land on exactly free or paid, without panicking.
	tiers := []string{"", "free", "paid", "pro", "premium", "mastery", "Paid", " PRO ", "gold", "PREMIUM"}
	isPaids := []*bool{nil, boolPtr(true), boolPtr(false)}

	for _, tier := range tiers {
		for _, isPaid := range isPaids {
			rec := &Record{UserID: "u1", Tier: tier, IsPaid: isPaid}
			got := Normalize(rec)
			assert.Contains(t, []Tier{TierFree, TierPaid}, got,
				"tier=%q is_paid=%v", tier, isPaid)
		}
	}
}

func TestNormalize_PaidSet(t *testing.T) {
	tests := []struct {
		name   string
		rec    *Record
		expect Tier
	}{
		{"nil record", nil, TierFree},
		{"empty record", &Record{}, TierFree},
		{"explicit free", &Record{Tier: "free"}, TierFree},
		{"paid", &Record{Tier: "paid"}, TierPaid},
		{"pro", &Record{Tier: "pro"}, TierPaid},
		{"premium", &Record{Tier: "premium"}, TierPaid},
		{"mastery", &Record{Tier: "mastery"}, TierPaid},
		{"mixed case", &Record{Tier: "Paid"}, TierPaid},
		{"padded upper", &Record{Tier: " PRO "}, TierPaid},
		{"unknown tier", &Record{Tier: "gold"}, TierFree},
		{"is_paid fallback", &Record{IsPaid: boolPtr(true)}, TierPaid},
		{"is_paid false", &Record{IsPaid: boolPtr(false)}, TierFree},
		{"tier wins over is_paid", &Record{Tier: "free", IsPaid: boolPtr(true)}, TierFree},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, Normalize(tt.rec))
		})
	}
}

func TestTier_IsPaid(t *testing.T) {
	assert.True(t, TierPaid.IsPaid())
	assert.False(t, TierFree.IsPaid())
	assert.False(t, TierAnon.IsPaid())
}
