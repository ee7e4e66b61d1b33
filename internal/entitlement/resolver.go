package entitlement

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/lib/pq"

	"promptschola/internal/platform/metrics"
	"promptschola/pkg/sentinel"
)

// Resolver turns an identity into a normalized tier.
//
// Lookup failures fail open to free: a misconfigured or not-yet-migrated data
// layer degrades every user to the free tier instead of breaking the product.
// Resolve therefore never returns an error.
type Resolver struct {
	store   Store
	cache   TierCache
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithTierCache enables the short-lived tier cache.
func WithTierCache(cache TierCache) ResolverOption {
	return func(r *Resolver) { r.cache = cache }
}

// WithMetrics wires resolver counters.
func WithMetrics(m *metrics.Metrics) ResolverOption {
	return func(r *Resolver) { r.metrics = m }
}

// NewResolver constructs a tier resolver.
func NewResolver(store Store, logger *slog.Logger, opts ...ResolverOption) *Resolver {
	r := &Resolver{store: store, logger: logger}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Resolve returns the tier for a signed-in user. Pass an empty userID for
// anonymous callers; they resolve to free.
func (r *Resolver) Resolve(ctx context.Context, userID string) Tier {
	tier := r.ResolveDistinct(ctx, userID)
	if tier == TierAnon {
		return TierFree
	}
	return tier
}

// ResolveDistinct behaves like Resolve but reports anonymous callers as
// TierAnon, for clients that render signed-out state differently.
func (r *Resolver) ResolveDistinct(ctx context.Context, userID string) Tier {
	if userID == "" {
		return TierAnon
	}

	if r.cache != nil {
		if tier, ok := r.cache.Get(ctx, userID); ok {
			if r.metrics != nil {
				r.metrics.TierCacheHits.Inc()
			}
			return tier
		}
		if r.metrics != nil {
			r.metrics.TierCacheMisses.Inc()
		}
	}

	rec, err := r.store.Get(ctx, userID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		// Fail open. A lookup error must never surface to the caller.
		if r.metrics != nil {
			r.metrics.EntitlementFailOpen.Inc()
		}
		attrs := []any{slog.String("user_id", userID), slog.Any("error", err)}
		if isMissingTable(err) {
			attrs = append(attrs, slog.String("hint", "entitlements table may be missing; run migrations"))
		}
		r.logger.WarnContext(ctx, "entitlement lookup failed, defaulting to free", attrs...)
		return TierFree
	}

	tier := Normalize(rec)
	if r.cache != nil {
		r.cache.Put(ctx, userID, tier)
	}
	return tier
}

// InvalidateCache drops the cached tier for a user. Called after sign-out and
// after any billing event that could change the tier.
func (r *Resolver) InvalidateCache(ctx context.Context, userID string) {
	if r.cache != nil {
		r.cache.Invalidate(ctx, userID)
	}
}

// isMissingTable detects the "schema not migrated yet" failure mode. The
// driver reports it structurally (undefined_table, 42P01); the substring
// checks remain as a shim for stores that only expose message text.
func isMissingTable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "42P01" {
		return true
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist") {
		return true
	}
	return strings.Contains(msg, "could not find the table") ||
		strings.Contains(msg, "not found")
}
