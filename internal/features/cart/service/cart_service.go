package service

import (
	"context"
	"fmt"
	"time"

	"smartcity-orders/internal/features/cart/domain"
	"smartcity-orders/internal/features/cart/ports"
	catalog "smartcity-orders/internal/features/catalog/domain"
)

// CartServiceImpl implements ports.CartService.
// Writes to one user's cart hold the repository lock, so they apply in call
// order on every replica.
type CartServiceImpl struct {
	repo     ports.CartRepository
	products ports.ProductReader
	pricing  domain.PricingPolicy
	now      func() time.Time
}

// NewCartService creates a new CartServiceImpl.
func NewCartService(repo ports.CartRepository, products ports.ProductReader, pricing domain.PricingPolicy) *CartServiceImpl {
	return &CartServiceImpl{
		repo:     repo,
		products: products,
		pricing:  pricing,
		now:      time.Now,
	}
}

func (s *CartServiceImpl) lock(ctx context.Context, userID string) (func(), error) {
	unlock, err := s.repo.Lock(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to lock cart: %w", err)
	}
	return unlock, nil
}

// Get returns the user's cart, empty if none is stored.
func (s *CartServiceImpl) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get cart: %w", err)
	}
	return cart, nil
}

// AddItem adds quantity units of a product, priced at the current catalog price.
// The merged quantity must fit in the product's stock.
func (s *CartServiceImpl) AddItem(ctx context.Context, userID, productID string, quantity int64) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}

	unlock, err := s.lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	cart, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	product, err := s.sellable(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := catalog.Reserve(productID, cart.QuantityOf(productID)+quantity, product.Stock); err != nil {
		return nil, err
	}

	if err := cart.AddLine(product.ID, product.Name, quantity, product.Price); err != nil {
		return nil, err
	}
	return cart, s.save(ctx, cart)
}

// UpdateItem sets the quantity of a line. Increases are checked against stock;
// a quantity below one removes the line.
func (s *CartServiceImpl) UpdateItem(ctx context.Context, userID, productID string, quantity int64) (*domain.Cart, error) {
	unlock, err := s.lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	cart, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	line, ok := cart.Line(productID)
	if !ok {
		return nil, domain.ErrLineNotFound
	}

	if quantity > line.Quantity {
		product, err := s.sellable(ctx, productID)
		if err != nil {
			return nil, err
		}
		if err := catalog.Reserve(productID, quantity, product.Stock); err != nil {
			return nil, err
		}
	}

	if err := cart.UpdateQuantity(productID, quantity); err != nil {
		return nil, err
	}
	return cart, s.save(ctx, cart)
}

// RemoveItem drops a product from the cart.
func (s *CartServiceImpl) RemoveItem(ctx context.Context, userID, productID string) (*domain.Cart, error) {
	unlock, err := s.lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	cart, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	cart.RemoveLine(productID)
	return cart, s.save(ctx, cart)
}

// Clear empties the user's cart.
func (s *CartServiceImpl) Clear(ctx context.Context, userID string) error {
	unlock, err := s.lock(ctx, userID)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.repo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("service: failed to clear cart: %w", err)
	}
	return nil
}

// Take claims the user's cart for checkout: it is removed and returned in one
// step, after any in-flight edit has finished. Concurrent checkouts of one
// cart see it exactly once; the rest get an empty cart.
func (s *CartServiceImpl) Take(ctx context.Context, userID string) (*domain.Cart, error) {
	unlock, err := s.lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	cart, err := s.repo.Take(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to take cart: %w", err)
	}
	return cart, nil
}

// Restore puts the lines of a cart taken by a failed checkout back. Lines the
// user added in the meantime are kept; quantities of a product in both are summed.
func (s *CartServiceImpl) Restore(ctx context.Context, taken *domain.Cart) error {
	if taken == nil || taken.IsEmpty() {
		return nil
	}

	unlock, err := s.lock(ctx, taken.UserID)
	if err != nil {
		return err
	}
	defer unlock()

	cart, err := s.Get(ctx, taken.UserID)
	if err != nil {
		return err
	}
	for _, l := range taken.Lines {
		if err := cart.AddLine(l.ProductID, l.Name, l.Quantity, l.UnitPrice); err != nil {
			return err
		}
	}
	return s.save(ctx, cart)
}

// Totals prices the user's current cart.
func (s *CartServiceImpl) Totals(ctx context.Context, userID string) (domain.Totals, error) {
	cart, err := s.Get(ctx, userID)
	if err != nil {
		return domain.Totals{}, err
	}
	return s.Quote(cart), nil
}

// Quote prices a cart with the configured policy.
func (s *CartServiceImpl) Quote(cart *domain.Cart) domain.Totals {
	return cart.ComputeTotals(s.pricing)
}

func (s *CartServiceImpl) sellable(ctx context.Context, productID string) (*catalog.Product, error) {
	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to load product: %w", err)
	}
	if !product.Sellable() {
		return nil, fmt.Errorf("%s: %w", productID, catalog.ErrProductUnavailable)
	}
	return product, nil
}

func (s *CartServiceImpl) save(ctx context.Context, cart *domain.Cart) error {
	cart.UpdatedAt = s.now().UTC()
	if err := s.repo.Save(ctx, cart); err != nil {
		return fmt.Errorf("service: failed to save cart: %w", err)
	}
	return nil
}
