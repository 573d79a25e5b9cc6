package ports

import (
	"context"

	"smartcity-orders/internal/features/orders/domain"
)

// OrderRepository is the durable order store.
type OrderRepository interface {
	// Save inserts a new order and returns its id.
	Save(ctx context.Context, order *domain.Order) (string, error)
	// Get loads an order or returns domain.ErrOrderNotFound.
	Get(ctx context.Context, id string) (*domain.Order, error)
	// UpdateStatus applies a lifecycle transition and returns the updated order.
	UpdateStatus(ctx context.Context, id string, next domain.OrderStatus) (*domain.Order, error)
	// ListByUser returns the user's most recent orders, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.Order, error)
}

// OrderCache is the lookup cache in front of the store.
// Get reports a miss as cache.ErrCacheMiss.
type OrderCache interface {
	Get(ctx context.Context, id string) (*domain.Order, error)
	Set(ctx context.Context, order *domain.Order) error
	Delete(ctx context.Context, id string) error
}

// OrderLookup resolves an order through cache, store and placeholder.
type OrderLookup interface {
	Resolve(ctx context.Context, id string) (*domain.Resolution, error)
}

// OrderManager covers order queries and lifecycle changes.
type OrderManager interface {
	UpdateStatus(ctx context.Context, id string, next domain.OrderStatus) (*domain.Order, error)
	ListForUser(ctx context.Context, userID string, limit int) ([]domain.Order, error)
}
