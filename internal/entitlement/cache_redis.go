package entitlement

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const tierCacheKeyPrefix = "tier:user:"

// RedisTierCache shares resolved tiers across instances. Expiry is handled by
// Redis itself via SET with TTL, so there is no clock to inject here. Cache
// errors are treated as misses; the resolver's fail-open policy already
// covers the store, and a flaky cache must not make things worse.
type RedisTierCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisTierCache constructs a Redis-backed tier cache.
func NewRedisTierCache(client *redis.Client, ttl time.Duration) *RedisTierCache {
	return &RedisTierCache{client: client, ttl: ttl}
}

func (c *RedisTierCache) Get(ctx context.Context, userID string) (Tier, bool) {
	val, err := c.client.Get(ctx, tierCacheKeyPrefix+userID).Result()
	if err != nil {
		// redis.Nil and transport errors alike; a flaky cache is a miss.
		return "", false
	}
	switch Tier(val) {
	case TierFree, TierPaid:
		return Tier(val), true
	}
	return "", false
}

func (c *RedisTierCache) Put(ctx context.Context, userID string, tier Tier) {
	_ = c.client.Set(ctx, tierCacheKeyPrefix+userID, string(tier), c.ttl).Err()
}

func (c *RedisTierCache) Invalidate(ctx context.Context, userID string) {
	_ = c.client.Del(ctx, tierCacheKeyPrefix+userID).Err()
}
