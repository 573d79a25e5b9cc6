package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smartcity-orders/internal/core/cache"
	"smartcity-orders/internal/features/cart/domain"
)

const (
	cartKeyPrefix     = "cart:"
	cartLockKeyPrefix = "cart-lock:"
	// cartLockTTL caps how long a crashed holder can block a user's cart.
	cartLockTTL = 10 * time.Second
)

// RedisCartRepository implements ports.CartRepository using the cache adaptation.
// Carts are stored as JSON under cart:<uid> and expire after ttl without writes.
type RedisCartRepository struct {
	cache cache.Cache
	ttl   time.Duration
}

// NewRedisCartRepository creates a new RedisCartRepository.
func NewRedisCartRepository(c cache.Cache, ttl time.Duration) *RedisCartRepository {
	return &RedisCartRepository{
		cache: c,
		ttl:   ttl,
	}
}

func cartKey(userID string) string {
	return cartKeyPrefix + userID
}

// Get retrieves the user's cart. A missing key yields an empty cart.
func (r *RedisCartRepository) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := cache.GetJSON[domain.Cart](ctx, r.cache, cartKey(userID))
	if err != nil {
		return r.empty(userID, err, "failed to get cart from cache")
	}
	return normalize(cart, userID), nil
}

// Take removes the user's cart and returns it with GETDEL. Of two concurrent
// callers only one receives the lines; the other gets an empty cart.
func (r *RedisCartRepository) Take(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := cache.TakeJSON[domain.Cart](ctx, r.cache, cartKey(userID))
	if err != nil {
		return r.empty(userID, err, "failed to take cart from cache")
	}
	return normalize(cart, userID), nil
}

// Lock holds the user's cart lease until the returned func is called. The
// lease lives in Redis so edits are serialized across every API replica.
func (r *RedisCartRepository) Lock(ctx context.Context, userID string) (func(), error) {
	return cache.Lock(ctx, r.cache, cartLockKeyPrefix+userID, cartLockTTL)
}

func (r *RedisCartRepository) empty(userID string, err error, msg string) (*domain.Cart, error) {
	if errors.Is(err, cache.ErrCacheMiss) {
		return domain.New(userID), nil
	}
	return nil, fmt.Errorf("%s: %w", msg, err)
}

func normalize(cart *domain.Cart, userID string) *domain.Cart {
	if cart.Lines == nil {
		cart.Lines = []domain.Line{}
	}
	cart.UserID = userID
	return cart
}

// Save stores the cart and refreshes its TTL.
func (r *RedisCartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	if err := cache.SetJSON(ctx, r.cache, cartKey(cart.UserID), cart, r.ttl); err != nil {
		return fmt.Errorf("failed to save cart to cache: %w", err)
	}
	return nil
}

// Delete removes the user's cart.
func (r *RedisCartRepository) Delete(ctx context.Context, userID string) error {
	if err := r.cache.Delete(ctx, cartKey(userID)); err != nil {
		return fmt.Errorf("failed to delete cart from cache: %w", err)
	}
	return nil
}
