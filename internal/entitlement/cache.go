package entitlement

import (
	"context"
	"sync"
	"time"

	"promptschola/pkg/clock"
)

// TierCache is a short-lived cache of resolved tiers keyed by user ID.
// Entries older than the TTL are treated as absent. Callers must invalidate
// after any event that could change a tier (sign-out, checkout, webhook).
type TierCache interface {
	Get(ctx context.Context, userID string) (Tier, bool)
	Put(ctx context.Context, userID string, tier Tier)
	Invalidate(ctx context.Context, userID string)
}

type cacheEntry struct {
	tier     Tier
	storedAt time.Time
}

// MemoryTierCache is a mutex-guarded TTL cache with an injected clock so
// expiry is testable without real delays.
type MemoryTierCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   clock.Clock
	entries map[string]cacheEntry
}

// MemoryTierCacheOption configures a MemoryTierCache.
type MemoryTierCacheOption func(*MemoryTierCache)

// WithCacheClock sets the cache's time source.
func WithCacheClock(c clock.Clock) MemoryTierCacheOption {
	return func(m *MemoryTierCache) {
		if c != nil {
			m.clock = c
		}
	}
}

// NewMemoryTierCache constructs a TTL tier cache.
func NewMemoryTierCache(ttl time.Duration, opts ...MemoryTierCacheOption) *MemoryTierCache {
	c := &MemoryTierCache{
		ttl:     ttl,
		clock:   time.Now,
		entries: make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *MemoryTierCache) Get(_ context.Context, userID string) (Tier, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[userID]
	if !ok {
		return "", false
	}
	if c.clock().Sub(entry.storedAt) > c.ttl {
		delete(c.entries, userID)
		return "", false
	}
	return entry.tier, true
}

func (c *MemoryTierCache) Put(_ context.Context, userID string, tier Tier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = cacheEntry{tier: tier, storedAt: c.clock()}
}

func (c *MemoryTierCache) Invalidate(_ context.Context, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
}
