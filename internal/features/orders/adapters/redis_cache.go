package adapters

import (
	"context"
	"time"

	"smartcity-orders/internal/core/cache"
	"smartcity-orders/internal/features/orders/domain"
)

const orderKeyPrefix = "order:"

// RedisOrderCache implements ports.OrderCache using the cache adaptation.
type RedisOrderCache struct {
	cache cache.Cache
	ttl   time.Duration
}

// NewRedisOrderCache creates a new RedisOrderCache.
func NewRedisOrderCache(c cache.Cache, ttl time.Duration) *RedisOrderCache {
	return &RedisOrderCache{cache: c, ttl: ttl}
}

// Get returns the cached order or a wrapped cache.ErrCacheMiss.
func (r *RedisOrderCache) Get(ctx context.Context, id string) (*domain.Order, error) {
	return cache.GetJSON[domain.Order](ctx, r.cache, orderKeyPrefix+id)
}

// Set caches order for the configured TTL, versioned by UpdatedAt in
// microseconds (the store's precision). A copy older than the one already
// written is dropped, so a lookup that read the store before a status change
// cannot overwrite the newer status.
func (r *RedisOrderCache) Set(ctx context.Context, order *domain.Order) error {
	_, err := cache.SetVersionedJSON(ctx, r.cache, orderKeyPrefix+order.ID, order, order.UpdatedAt.UnixMicro(), r.ttl)
	return err
}

// Delete evicts the order. The recorded version is kept.
func (r *RedisOrderCache) Delete(ctx context.Context, id string) error {
	return r.cache.Delete(ctx, orderKeyPrefix+id)
}
