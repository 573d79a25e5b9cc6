package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smartcity-orders/internal/core/cache"
	"smartcity-orders/internal/core/logger"
	"smartcity-orders/internal/core/retry"
	"smartcity-orders/internal/features/orders/domain"
	"smartcity-orders/internal/features/orders/ports"

	"go.uber.org/zap"
)

// LookupOptions configures LookupResolver.
type LookupOptions struct {
	// RetryBackoff is the wait before the single store retry.
	RetryBackoff time.Duration
	// AllowSynthetic enables the placeholder when the order is not stored.
	AllowSynthetic bool
}

// LookupResolver finds an order in the cache, then the store, then falls
// back to a flagged placeholder.
type LookupResolver struct {
	cache ports.OrderCache
	store ports.OrderRepository
	opts  LookupOptions
	now   func() time.Time
}

// NewLookupResolver creates a new LookupResolver.
func NewLookupResolver(c ports.OrderCache, store ports.OrderRepository, opts LookupOptions) *LookupResolver {
	return &LookupResolver{
		cache: c,
		store: store,
		opts:  opts,
		now:   time.Now,
	}
}

// Resolve returns the order with its source. A store that fails twice yields
// domain.ErrLookupUnavailable, never a placeholder.
func (r *LookupResolver) Resolve(ctx context.Context, id string) (*domain.Resolution, error) {
	log := logger.Get().With(zap.String("order_id", id))

	cached, err := r.cache.Get(ctx, id)
	switch {
	case err == nil:
		return &domain.Resolution{Order: cached, Source: domain.SourceCache}, nil
	case !errors.Is(err, cache.ErrCacheMiss):
		log.Warn("Order cache read failed, falling through to store", zap.Error(err))
	}

	var order *domain.Order
	policy := retry.Policy{Attempts: 2, Base: r.opts.RetryBackoff}
	err = retry.Do(ctx, policy, retryableStoreError, func(ctx context.Context) error {
		var getErr error
		order, getErr = r.store.Get(ctx, id)
		return getErr
	})

	switch {
	case err == nil:
		if setErr := r.cache.Set(ctx, order); setErr != nil {
			log.Warn("Failed to cache order", zap.Error(setErr))
		}
		return &domain.Resolution{Order: order, Source: domain.SourceStore}, nil

	case errors.Is(err, domain.ErrOrderNotFound):
		if !r.opts.AllowSynthetic {
			return nil, err
		}
		log.Warn("Order not stored, returning placeholder")
		return &domain.Resolution{
			Order:          domain.Synthetic(id, r.now().UTC()),
			Source:         domain.SourceSynthetic,
			Warning:        true,
			WarningMessage: domain.SyntheticWarning,
		}, nil

	default:
		log.Error("Order store unavailable", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrLookupUnavailable, err)
	}
}

func retryableStoreError(err error) bool {
	return !errors.Is(err, domain.ErrOrderNotFound) && !errors.Is(err, context.Canceled)
}
