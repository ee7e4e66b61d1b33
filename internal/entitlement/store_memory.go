package entitlement

import (
	"context"
	"sync"
	"time"

	"promptschola/pkg/sentinel"
)

// InMemoryStore keeps entitlement records in a map. Used in tests and local
// development without Postgres.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemory constructs an empty in-memory entitlement store.
func NewMemory() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]*Record)}
}

func (s *InMemoryStore) Get(_ context.Context, userID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *rec
	return &copied, nil
}

func (s *InMemoryStore) FindByCustomer(_ context.Context, customerID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.records {
		if rec.BillingCustomerID == customerID {
			copied := *rec
			return &copied, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) Upsert(_ context.Context, userID string, params UpsertParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		rec = &Record{UserID: userID, Tier: "free"}
		s.records[userID] = rec
	}
	if params.Tier != "" {
		rec.Tier = params.Tier
	}
	if params.IsPaid != nil {
		v := *params.IsPaid
		rec.IsPaid = &v
	}
	if params.BillingCustomerID != "" {
		rec.BillingCustomerID = params.BillingCustomerID
	}
	if params.BillingSubscriptionID != "" {
		rec.BillingSubscriptionID = params.BillingSubscriptionID
	}
	if params.CurrentPeriodEnd != nil {
		t := *params.CurrentPeriodEnd
		rec.CurrentPeriodEnd = &t
	}
	rec.UpdatedAt = time.Now()
	return nil
}
