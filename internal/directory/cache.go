package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/prophive/push-dispatcher/internal/domain"
)

// CachedResolver adds read-aside caching to a Resolver for the org-scoped
// hot path. A busy organization can receive bursts of events; the short TTL
// keeps directory load bounded without holding on to stale tokens for long.
// Single-user lookups bypass the cache entirely.
type CachedResolver struct {
	next   Resolver
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedResolver creates the decorator.
func NewCachedResolver(next Resolver, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedResolver {
	return &CachedResolver{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With("component", "recipient_cache"),
	}
}

func (r *CachedResolver) Resolve(ctx context.Context, sel Selector) ([]domain.Recipient, error) {
	if sel.UserID != "" || sel.OrganizationID == "" {
		return r.next.Resolve(ctx, sel)
	}

	key := cacheKey(sel.OrganizationID)

	if raw, err := r.cache.Get(ctx, key).Bytes(); err == nil {
		var cached []domain.Recipient
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		// Corrupt entry: fall through to the directory and overwrite it.
	}

	recipients, err := r.next.Resolve(ctx, sel)
	if err != nil {
		return nil, err
	}

	// Populate is fire-and-forget: caching is an optimization, and a down
	// cache must not fail a dispatch that the directory answered.
	if raw, err := json.Marshal(recipients); err == nil {
		if err := r.cache.Set(ctx, key, raw, r.ttl).Err(); err != nil {
			r.logger.Warn("failed to populate recipient cache", "error", err, "organization_id", sel.OrganizationID)
		}
	}

	return recipients, nil
}

func cacheKey(orgID string) string {
	return fmt.Sprintf("dispatch:recipients:org:%s", orgID)
}
