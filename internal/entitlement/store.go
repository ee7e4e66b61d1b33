package entitlement

import (
	"context"
	"time"
)

// UpsertParams are the fields the billing integration writes. Nil/empty
// fields keep their stored values.
type UpsertParams struct {
	Tier                  string
	IsPaid                *bool
	BillingCustomerID     string
	BillingSubscriptionID string
	CurrentPeriodEnd      *time.Time
}

// Store is the entitlement record port. Get returns sentinel.ErrNotFound for
// users with no record yet; that is a valid outcome, not a failure.
type Store interface {
	Get(ctx context.Context, userID string) (*Record, error)
	Upsert(ctx context.Context, userID string, params UpsertParams) error

	// FindByCustomer resolves the user mapped to a billing customer, for
	// webhook events that only carry the customer reference.
	FindByCustomer(ctx context.Context, customerID string) (*Record, error)
}
