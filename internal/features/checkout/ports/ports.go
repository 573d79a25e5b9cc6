package ports

import (
	"context"

	"smartcity-orders/internal/core/auth"
	cart "smartcity-orders/internal/features/cart/domain"
	"smartcity-orders/internal/features/checkout/domain"
	orders "smartcity-orders/internal/features/orders/domain"
	payment "smartcity-orders/internal/features/payment/domain"
)

// Checkout is the primary port: it turns the caller's cart into an order.
type Checkout interface {
	PlaceOrder(ctx context.Context, caller auth.Identity, req domain.Request) (*orders.Order, error)
}

// CartStore reads and claims the caller's cart.
type CartStore interface {
	Get(ctx context.Context, userID string) (*cart.Cart, error)
	// Take removes and returns the cart in one step; a concurrent Take of the
	// same cart returns an empty one.
	Take(ctx context.Context, userID string) (*cart.Cart, error)
	// Restore merges a taken cart back after a failed checkout.
	Restore(ctx context.Context, taken *cart.Cart) error
}

// StockKeeper takes and returns catalog stock. DecrementStock is atomic and
// conditional on enough stock remaining.
type StockKeeper interface {
	DecrementStock(ctx context.Context, productID string, amount int64) error
	IncrementStock(ctx context.Context, productID string, amount int64) error
}

// PaymentConfirmer confirms a charge within a bounded time.
type PaymentConfirmer interface {
	Confirm(ctx context.Context, charge payment.Charge) (payment.Confirmation, error)
}

// OrderSaver persists a new order.
type OrderSaver interface {
	Save(ctx context.Context, order *orders.Order) (string, error)
}
