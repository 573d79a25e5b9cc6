package ports

import (
	"context"

	"smartcity-orders/internal/features/catalog/domain"
)

// ProductRepository is the secondary port for catalog storage.
// DecrementStock must be a single atomic conditional write: it succeeds only
// while stock >= amount and never drives stock negative.
type ProductRepository interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	DecrementStock(ctx context.Context, id string, amount int64) error
	IncrementStock(ctx context.Context, id string, amount int64) error
	Upsert(ctx context.Context, product *domain.Product) error
}

// CatalogService is the primary port used by handlers and other features.
type CatalogService interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	SaveProduct(ctx context.Context, product *domain.Product) error
}
