package service

import (
	"context"
	"fmt"

	"smartcity-orders/internal/features/catalog/domain"
	"smartcity-orders/internal/features/catalog/ports"
)

// CatalogServiceImpl implements ports.CatalogService.
type CatalogServiceImpl struct {
	repo ports.ProductRepository
}

// NewCatalogService creates a new CatalogServiceImpl.
func NewCatalogService(repo ports.ProductRepository) *CatalogServiceImpl {
	return &CatalogServiceImpl{
		repo: repo,
	}
}

// GetProduct retrieves a product by id.
func (s *CatalogServiceImpl) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", domain.ErrInvalidProduct)
	}

	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get product: %w", err)
	}

	return product, nil
}

// SaveProduct validates and stores a product.
func (s *CatalogServiceImpl) SaveProduct(ctx context.Context, product *domain.Product) error {
	if product.Status == "" {
		product.Status = domain.ProductStatusActive
	}
	if product.Status == domain.ProductStatusActive && product.Stock == 0 {
		product.Status = domain.ProductStatusOutOfStock
	}
	if err := product.Validate(); err != nil {
		return err
	}

	if err := s.repo.Upsert(ctx, product); err != nil {
		return fmt.Errorf("service: failed to save product: %w", err)
	}

	return nil
}
