package adapters

import (
	"context"
	"fmt"
	"sync"
	"time"

	"smartcity-orders/internal/features/catalog/domain"
)

// MemoryProductRepository is a process-local catalog for development without MongoDB.
// The mutex makes the check and the decrement one step, matching the Mongo adapter's
// conditional update.
type MemoryProductRepository struct {
	mu       sync.Mutex
	products map[string]domain.Product
}

// NewMemoryProductRepository creates a catalog seeded with the given products.
func NewMemoryProductRepository(seed ...domain.Product) *MemoryProductRepository {
	r := &MemoryProductRepository{products: make(map[string]domain.Product, len(seed))}
	for _, p := range seed {
		r.products[p.ID] = p
	}
	return r
}

// GetProduct returns a copy of the stored product.
func (r *MemoryProductRepository) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, domain.ErrProductNotFound)
	}
	return &p, nil
}

// DecrementStock takes amount units if the product is for sale and at least
// that many remain.
func (r *MemoryProductRepository) DecrementStock(_ context.Context, id string, amount int64) error {
	if amount < 1 {
		return domain.ErrInvalidQuantity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, domain.ErrProductNotFound)
	}
	if err := domain.ReserveFrom(id, amount, p.Status, p.Stock); err != nil {
		return err
	}

	p.Stock -= amount
	if p.Stock == 0 && p.Status == domain.ProductStatusActive {
		p.Status = domain.ProductStatusOutOfStock
	}
	p.UpdatedAt = time.Now().UTC()
	r.products[id] = p
	return nil
}

// IncrementStock returns amount units.
func (r *MemoryProductRepository) IncrementStock(_ context.Context, id string, amount int64) error {
	if amount < 1 {
		return domain.ErrInvalidQuantity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, domain.ErrProductNotFound)
	}

	p.Stock += amount
	if p.Status == domain.ProductStatusOutOfStock {
		p.Status = domain.ProductStatusActive
	}
	p.UpdatedAt = time.Now().UTC()
	r.products[id] = p
	return nil
}

// Upsert stores a validated copy of product.
func (r *MemoryProductRepository) Upsert(_ context.Context, product *domain.Product) error {
	if err := product.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	product.UpdatedAt = time.Now().UTC()
	r.products[product.ID] = *product
	return nil
}
