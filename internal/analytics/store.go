package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// Store is the analytics event sink.
type Store interface {
	Insert(ctx context.Context, event *Event) error
}

// PostgresStore writes analytics events to PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed analytics store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, event *Event) error {
	query := `
		INSERT INTO analytics_events
			(id, user_id, nano_slug, step, event_type, ip_address, country, region, user_agent, browser, os, occurred_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''), NULLIF($11, ''), $12)
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.UserID,
		event.NanoSlug,
		nullInt(event.Step),
		event.EventType,
		event.IPAddress,
		event.Country,
		event.Region,
		event.UserAgent,
		event.Browser,
		event.OS,
		event.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert analytics event: %w", err)
	}
	return nil
}

func nullInt(n *int) sql.NullInt32 {
	if n == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*n), Valid: true}
}

// InMemoryStore collects events in a slice. Used in tests.
type InMemoryStore struct {
	mu     sync.Mutex
	events []*Event
}

// NewMemory constructs an empty in-memory analytics store.
func NewMemory() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Insert(_ context.Context, event *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *event
	s.events = append(s.events, &copied)
	return nil
}

// Events returns a snapshot of everything recorded so far.
func (s *InMemoryStore) Events() []*Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Event, len(s.events))
	copy(out, s.events)
	return out
}
