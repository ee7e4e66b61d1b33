package entitlement

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"promptschola/pkg/clock"
	"promptschola/pkg/sentinel"
)

// PostgresStore persists entitlement records in PostgreSQL.
type PostgresStore struct {
	db    *sql.DB
	clock clock.Clock
}

// PostgresStoreOption configures a PostgresStore instance.
type PostgresStoreOption func(*PostgresStore)

// WithClock sets the clock function for testability.
func WithClock(c clock.Clock) PostgresStoreOption {
	return func(s *PostgresStore) {
		if c != nil {
			s.clock = c
		}
	}
}

// NewPostgres constructs a PostgreSQL-backed entitlement store.
func NewPostgres(db *sql.DB, opts ...PostgresStoreOption) *PostgresStore {
	s := &PostgresStore{
		db:    db,
		clock: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

const recordColumns = `user_id, tier, is_paid, billing_customer_id, billing_subscription_id, current_period_end, updated_at`

func (s *PostgresStore) Get(ctx context.Context, userID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM entitlements WHERE user_id = $1`, userID)
	rec, err := scanRecord(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get entitlement: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) FindByCustomer(ctx context.Context, customerID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM entitlements WHERE billing_customer_id = $1`, customerID)
	rec, err := scanRecord(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find entitlement by customer: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, userID string, params UpsertParams) error {
	query := `
		INSERT INTO entitlements (user_id, tier, is_paid, billing_customer_id, billing_subscription_id, current_period_end, updated_at)
		VALUES ($1, COALESCE(NULLIF($2, ''), 'free'), $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			tier = COALESCE(NULLIF(EXCLUDED.tier, ''), entitlements.tier),
			is_paid = COALESCE(EXCLUDED.is_paid, entitlements.is_paid),
			billing_customer_id = COALESCE(EXCLUDED.billing_customer_id, entitlements.billing_customer_id),
			billing_subscription_id = COALESCE(EXCLUDED.billing_subscription_id, entitlements.billing_subscription_id),
			current_period_end = COALESCE(EXCLUDED.current_period_end, entitlements.current_period_end),
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		userID,
		params.Tier,
		nullBool(params.IsPaid),
		params.BillingCustomerID,
		params.BillingSubscriptionID,
		nullTime(params.CurrentPeriodEnd),
		s.clock(),
	)
	if err != nil {
		return fmt.Errorf("upsert entitlement: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec            Record
		tier           sql.NullString
		isPaid         sql.NullBool
		customerID     sql.NullString
		subscriptionID sql.NullString
		periodEnd      sql.NullTime
	)
	err := row.Scan(&rec.UserID, &tier, &isPaid, &customerID, &subscriptionID, &periodEnd, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rec.Tier = tier.String
	if isPaid.Valid {
		v := isPaid.Bool
		rec.IsPaid = &v
	}
	rec.BillingCustomerID = customerID.String
	rec.BillingSubscriptionID = subscriptionID.String
	if periodEnd.Valid {
		t := periodEnd.Time
		rec.CurrentPeriodEnd = &t
	}
	return &rec, nil
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
