package ports

import (
	"context"

	"smartcity-orders/internal/features/cart/domain"
	catalog "smartcity-orders/internal/features/catalog/domain"
)

// CartService defines the primary port for cart operations.
type CartService interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	AddItem(ctx context.Context, userID, productID string, quantity int64) (*domain.Cart, error)
	UpdateItem(ctx context.Context, userID, productID string, quantity int64) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userID, productID string) (*domain.Cart, error)
	Clear(ctx context.Context, userID string) error
	Totals(ctx context.Context, userID string) (domain.Totals, error)
	Quote(cart *domain.Cart) domain.Totals
}

// CartRepository defines the secondary port for cart storage.
// Get and Take return an empty cart when the user has none.
type CartRepository interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Save(ctx context.Context, cart *domain.Cart) error
	Delete(ctx context.Context, userID string) error
	// Take atomically reads and removes the cart.
	Take(ctx context.Context, userID string) (*domain.Cart, error)
	// Lock serializes writers of one user's cart; call the returned func to release.
	Lock(ctx context.Context, userID string) (func(), error)
}

// ProductReader is the part of the catalog the cart needs.
type ProductReader interface {
	GetProduct(ctx context.Context, id string) (*catalog.Product, error)
}
