package service

import (
	"context"
	"fmt"

	"smartcity-orders/internal/core/logger"
	"smartcity-orders/internal/features/orders/domain"
	"smartcity-orders/internal/features/orders/ports"

	"go.uber.org/zap"
)

// DefaultListLimit caps ListForUser when the caller passes no limit.
const DefaultListLimit = 20

// OrderServiceImpl implements ports.OrderManager.
type OrderServiceImpl struct {
	// repo is the durable order store.
	repo ports.OrderRepository
	// cache receives the new version of an order after every status change.
	cache ports.OrderCache
}

// NewOrderService creates a new instance of OrderServiceImpl.
func NewOrderService(repo ports.OrderRepository, cache ports.OrderCache) *OrderServiceImpl {
	return &OrderServiceImpl{
		repo:  repo,
		cache: cache,
	}
}

// UpdateStatus applies a lifecycle transition and writes the updated order
// through to the cache. The cache keeps the newest version, so a concurrent
// lookup holding the old row cannot put it back. If the write fails the
// cached copy is evicted instead.
func (s *OrderServiceImpl) UpdateStatus(ctx context.Context, id string, next domain.OrderStatus) (*domain.Order, error) {
	order, err := s.repo.UpdateStatus(ctx, id, next)
	if err != nil {
		return nil, fmt.Errorf("service: failed to update order status: %w", err)
	}

	if err := s.cache.Set(ctx, order); err != nil {
		logger.Get().Warn("Failed to refresh cached order",
			zap.String("order_id", id),
			zap.Error(err),
		)
		if err := s.cache.Delete(ctx, id); err != nil {
			logger.Get().Warn("Failed to invalidate cached order",
				zap.String("order_id", id),
				zap.Error(err),
			)
		}
	}

	logger.Get().Info("Order status changed",
		zap.String("order_id", id),
		zap.String("status", string(order.Status)),
	)
	return order, nil
}

// ListForUser returns the user's most recent orders.
func (s *OrderServiceImpl) ListForUser(ctx context.Context, userID string, limit int) ([]domain.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = DefaultListLimit
	}

	orders, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list orders: %w", err)
	}
	return orders, nil
}
