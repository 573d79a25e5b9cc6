package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smartcity-orders/internal/core/auth"
	"smartcity-orders/internal/core/logger"
	cart "smartcity-orders/internal/features/cart/domain"
	"smartcity-orders/internal/features/checkout/domain"
	"smartcity-orders/internal/features/checkout/ports"
	orders "smartcity-orders/internal/features/orders/domain"
	payment "smartcity-orders/internal/features/payment/domain"

	"go.uber.org/zap"
)

// Assembler turns a cart into a confirmed order.
type Assembler struct {
	carts        ports.CartStore
	stock        ports.StockKeeper
	payments     ports.PaymentConfirmer
	orders       ports.OrderSaver
	pricing      cart.PricingPolicy
	deliveryDays int
	now          func() time.Time
}

// Option customizes an Assembler.
type Option func(*Assembler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) { a.now = now }
}

// WithDeliveryDays sets the business-day offset of the delivery estimate.
func WithDeliveryDays(n int) Option {
	return func(a *Assembler) { a.deliveryDays = n }
}

// NewAssembler creates an Assembler with a five business day delivery estimate.
func NewAssembler(
	carts ports.CartStore,
	stock ports.StockKeeper,
	payments ports.PaymentConfirmer,
	saver ports.OrderSaver,
	pricing cart.PricingPolicy,
	opts ...Option,
) *Assembler {
	a := &Assembler{
		carts:        carts,
		stock:        stock,
		payments:     payments,
		orders:       saver,
		pricing:      pricing,
		deliveryDays: 5,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type reservation struct {
	productID string
	quantity  int64
}

// PlaceOrder validates the request, claims the cart, takes stock, confirms
// payment and saves the order. Every input check runs before any write. The
// cart is claimed atomically, so concurrent checkouts of one cart produce a
// single order. On failure the stock is returned and the cart restored.
func (a *Assembler) PlaceOrder(ctx context.Context, caller auth.Identity, req domain.Request) (*orders.Order, error) {
	log := logger.Get().With(zap.String("user_id", caller.UID))

	current, err := a.carts.Get(ctx, caller.UID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to load cart: %w", err)
	}
	if current.IsEmpty() {
		return nil, cart.ErrEmptyCart
	}
	if err := req.Billing.Validate(); err != nil {
		return nil, err
	}
	method, err := payment.ParseMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}
	if err := req.Payment.Validate(method); err != nil {
		return nil, err
	}

	c, err := a.carts.Take(ctx, caller.UID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to claim cart: %w", err)
	}
	if c.IsEmpty() {
		// Another checkout claimed it first.
		return nil, cart.ErrEmptyCart
	}

	lines := c.Snapshot()
	totals := a.pricing.Price(lines)
	now := a.now().UTC()
	id := orders.NewID(now)

	taken, err := a.reserve(ctx, lines)
	if err != nil {
		a.rollback(ctx, id, c, taken)
		return nil, err
	}

	conf, err := a.payments.Confirm(ctx, payment.Charge{
		Reference: id,
		Method:    method,
		Amount:    totals.GrandTotal,
		Payload:   req.Payment,
	})
	if err != nil {
		a.rollback(ctx, id, c, taken)
		log.Warn("Payment not confirmed",
			zap.String("order_id", id),
			zap.String("method", string(method)),
			zap.Error(err),
		)
		return nil, err
	}

	order := &orders.Order{
		ID:                id,
		UserID:            caller.UID,
		UserEmail:         caller.Email,
		Status:            orders.OrderStatusPending,
		Lines:             make([]orders.Line, 0, len(lines)),
		Billing:           req.Billing,
		Payment:           orders.Payment{Method: string(method), TransactionID: conf.TransactionID},
		Totals:            orders.Totals(totals),
		EstimatedDelivery: domain.AddBusinessDays(now, a.deliveryDays),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	for _, l := range lines {
		order.Lines = append(order.Lines, orders.Line{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			LineTotal: l.Total(),
		})
	}
	if err := order.TransitionTo(orders.OrderStatusConfirmed, now); err != nil {
		a.rollback(ctx, id, c, taken)
		return nil, err
	}

	if _, err := a.orders.Save(ctx, order); err != nil {
		a.rollback(ctx, id, c, taken)
		return nil, fmt.Errorf("service: failed to save order: %w", err)
	}

	log.Info("Order placed",
		zap.String("order_id", id),
		zap.String("method", string(method)),
		zap.Int64("grand_total", int64(totals.GrandTotal)),
	)
	return order, nil
}

// reserve decrements stock line by line and stops at the first failure.
// It returns what was taken so far.
func (a *Assembler) reserve(ctx context.Context, lines []cart.Line) ([]reservation, error) {
	taken := make([]reservation, 0, len(lines))
	for _, l := range lines {
		if err := a.stock.DecrementStock(ctx, l.ProductID, l.Quantity); err != nil {
			return taken, err
		}
		taken = append(taken, reservation{productID: l.ProductID, quantity: l.Quantity})
	}
	return taken, nil
}

// rollback returns taken stock and the claimed cart, even after ctx is cancelled.
func (a *Assembler) rollback(ctx context.Context, orderID string, claimed *cart.Cart, taken []reservation) {
	ctx = context.WithoutCancel(ctx)
	a.release(ctx, orderID, taken)
	if err := a.carts.Restore(ctx, claimed); err != nil {
		logger.Get().Error("Failed to restore cart",
			zap.String("order_id", orderID),
			zap.String("user_id", claimed.UserID),
			zap.Error(err),
		)
	}
}

func (a *Assembler) release(ctx context.Context, orderID string, taken []reservation) {
	var errs []error
	for _, r := range taken {
		if err := a.stock.IncrementStock(ctx, r.productID, r.quantity); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.productID, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		logger.Get().Error("Failed to release reserved stock",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
	}
}
