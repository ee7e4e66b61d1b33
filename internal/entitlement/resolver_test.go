package entitlement

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptschola/pkg/clock"
)

// failingStore simulates a broken or unmigrated data layer.
type failingStore struct {
	err error
}

func (s *failingStore) Get(context.Context, string) (*Record, error)            { return nil, s.err }
func (s *failingStore) FindByCustomer(context.Context, string) (*Record, error) { return nil, s.err }
func (s *failingStore) Upsert(context.Context, string, UpsertParams) error      { return s.err }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestResolver_NoIdentity(t *testing.T) {
	r := NewResolver(NewMemory(), testLogger())

	assert.Equal(t, TierFree, r.Resolve(context.Background(), ""))
	assert.Equal(t, TierAnon, r.ResolveDistinct(context.Background(), ""))
}

func TestResolver_MissingRecordIsFree(t *testing.T) {
	r := NewResolver(NewMemory(), testLogger())

	assert.Equal(t, TierFree, r.Resolve(context.Background(), "user-1"))
}

func TestResolver_PaidRecord(t *testing.T) {
	store := NewMemory()
	require.NoError(t, store.Upsert(context.Background(), "user-1", UpsertParams{Tier: "mastery"}))

	r := NewResolver(store, testLogger())
	assert.Equal(t, TierPaid, r.Resolve(context.Background(), "user-1"))
}

func TestResolver_FailOpenOnLookupError(t *testing.T) {
	// Any store error resolves to free; nothing propagates to the caller.
	errs := []error{
		errors.New("dial tcp: connection refused"),
		errors.New(`pq: relation "entitlements" does not exist`),
		errors.New("could not find the table"),
	}
	for _, storeErr := range errs {
		r := NewResolver(&failingStore{err: storeErr}, testLogger())
		assert.Equal(t, TierFree, r.Resolve(context.Background(), "user-1"), "error: %v", storeErr)
	}
}

func TestResolver_CacheHitSkipsStore(t *testing.T) {
	fake := clock.NewFake(time.Now())
	cache := NewMemoryTierCache(2*time.Minute, WithCacheClock(fake.Now))

	store := NewMemory()
	require.NoError(t, store.Upsert(context.Background(), "user-1", UpsertParams{Tier: "paid"}))

	r := NewResolver(store, testLogger(), WithTierCache(cache))
	require.Equal(t, TierPaid, r.Resolve(context.Background(), "user-1"))

	// Flip the stored record; the cached tier must still win until it expires.
	require.NoError(t, store.Upsert(context.Background(), "user-1", UpsertParams{Tier: "free"}))
	assert.Equal(t, TierPaid, r.Resolve(context.Background(), "user-1"))

	fake.Advance(3 * time.Minute)
	assert.Equal(t, TierFree, r.Resolve(context.Background(), "user-1"))
}

func TestResolver_InvalidateCache(t *testing.T) {
	cache := NewMemoryTierCache(2 * time.Minute)
	store := NewMemory()
	require.NoError(t, store.Upsert(context.Background(), "user-1", UpsertParams{Tier: "paid"}))

	r := NewResolver(store, testLogger(), WithTierCache(cache))
	require.Equal(t, TierPaid, r.Resolve(context.Background(), "user-1"))

	require.NoError(t, store.Upsert(context.Background(), "user-1", UpsertParams{Tier: "free"}))
	r.InvalidateCache(context.Background(), "user-1")

	assert.Equal(t, TierFree, r.Resolve(context.Background(), "user-1"))
}

func TestIsMissingTable(t *testing.T) {
	assert.True(t, isMissingTable(errors.New(`pq: relation "entitlements" does not exist`)))
	assert.True(t, isMissingTable(errors.New("Could not find the table 'public.entitlements'")))
	assert.False(t, isMissingTable(errors.New("connection refused")))
}
