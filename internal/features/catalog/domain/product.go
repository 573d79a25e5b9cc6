package domain

import (
	"errors"
	"fmt"
	"time"

	"smartcity-orders/internal/core/money"
)

// ProductStatus is the sale status of a catalog product.
type ProductStatus string

const (
	ProductStatusActive       ProductStatus = "active"
	ProductStatusInactive     ProductStatus = "inactive"
	ProductStatusOutOfStock   ProductStatus = "out-of-stock"
	ProductStatusDiscontinued ProductStatus = "discontinued"
)

var (
	// ErrProductNotFound is returned when no product has the requested id.
	ErrProductNotFound = errors.New("product not found")
	// ErrInsufficientStock is returned when the requested quantity exceeds available stock.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidQuantity is returned for requested quantities below one.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	// ErrProductUnavailable is returned when a product exists but is not for sale.
	ErrProductUnavailable = errors.New("product is not available for sale")
	// ErrInvalidProduct is returned when a product fails validation on write.
	ErrInvalidProduct = errors.New("invalid product")
)

// GeoPoint is the installation site of a sensor product.
type GeoPoint struct {
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
	Address   string  `json:"address,omitempty" bson:"address,omitempty"`
	Zone      string  `json:"zone,omitempty" bson:"zone,omitempty"`
}

// Product is a sellable catalog item. Stock never drops below zero.
type Product struct {
	ID          string        `json:"id" bson:"_id"`
	Name        string        `json:"name" bson:"name"`
	Description string        `json:"description,omitempty" bson:"description,omitempty"`
	Category    string        `json:"category" bson:"category"`
	Price       money.Money   `json:"price" bson:"price"`
	Stock       int64         `json:"stock" bson:"stock"`
	Status      ProductStatus `json:"status" bson:"status"`
	IsSensor    bool          `json:"is_sensor" bson:"is_sensor"`
	SensorType  string        `json:"sensor_type,omitempty" bson:"sensor_type,omitempty"`
	Location    *GeoPoint     `json:"location,omitempty" bson:"location,omitempty"`
	UpdatedAt   time.Time     `json:"updated_at" bson:"updated_at"`
}

// Sellable reports whether the product can be added to a cart.
func (p *Product) Sellable() bool {
	return p.Status == ProductStatusActive
}

// Validate checks the rules enforced on every write.
func (p *Product) Validate() error {
	switch {
	case p.ID == "":
		return fmt.Errorf("%w: id is required", ErrInvalidProduct)
	case p.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	case p.Price < 0:
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	case p.Stock < 0:
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidProduct)
	}

	switch p.Status {
	case ProductStatusActive, ProductStatusInactive, ProductStatusOutOfStock, ProductStatusDiscontinued:
		return nil
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidProduct, p.Status)
	}
}

// Reserve decides whether requested units can be taken from available stock.
// Equality accepts. It never mutates stock; the catalog store performs the
// decrement as a separate conditional write.
func Reserve(productID string, requested, available int64) error {
	if requested < 1 {
		return ErrInvalidQuantity
	}
	if requested > available {
		return &StockError{ProductID: productID, Requested: requested, Available: available}
	}
	return nil
}

// ReserveFrom applies Reserve to a product in the given status. Only active
// products can be reserved: out-of-stock reports a shortfall, any other status
// ErrProductUnavailable.
func ReserveFrom(productID string, requested int64, status ProductStatus, available int64) error {
	if requested < 1 {
		return ErrInvalidQuantity
	}
	switch status {
	case ProductStatusActive:
		return Reserve(productID, requested, available)
	case ProductStatusOutOfStock:
		return &StockError{ProductID: productID, Requested: requested, Available: 0}
	default:
		return fmt.Errorf("%s: %w", productID, ErrProductUnavailable)
	}
}

// StockError describes a rejected reservation. It matches ErrInsufficientStock.
type StockError struct {
	ProductID string
	Requested int64
	// Available is -1 when the store could not report the current level.
	Available int64
}

func (e *StockError) Error() string {
	if e.Available < 0 {
		return fmt.Sprintf("insufficient stock for %s: requested %d", e.ProductID, e.Requested)
	}
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

// Is lets errors.Is(err, ErrInsufficientStock) match.
func (e *StockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
