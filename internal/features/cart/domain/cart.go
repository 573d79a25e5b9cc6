package domain

import (
	"errors"
	"time"

	"smartcity-orders/internal/core/money"
)

var (
	// ErrInvalidQuantity is returned when a line quantity is below one.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	// ErrLineNotFound is returned when the cart has no line for a product.
	ErrLineNotFound = errors.New("cart line not found")
	// ErrEmptyCart is returned when checking out a cart without lines.
	ErrEmptyCart = errors.New("cart is empty")
)

// Line is one product in a cart. UnitPrice is the catalog price when the
// product was first added.
type Line struct {
	ProductID string      `json:"product_id"`
	Name      string      `json:"name"`
	Quantity  int64       `json:"quantity"`
	UnitPrice money.Money `json:"unit_price"`
}

// Total is UnitPrice times Quantity.
func (l Line) Total() money.Money {
	return l.UnitPrice.Mul(l.Quantity)
}

// Cart holds at most one line per product, in insertion order.
type Cart struct {
	UserID    string    `json:"user_id"`
	Lines     []Line    `json:"lines"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New returns an empty cart for a user.
func New(userID string) *Cart {
	return &Cart{UserID: userID, Lines: []Line{}}
}

func (c *Cart) indexOf(productID string) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Line returns the line for productID.
func (c *Cart) Line(productID string) (Line, bool) {
	if i := c.indexOf(productID); i >= 0 {
		return c.Lines[i], true
	}
	return Line{}, false
}

// QuantityOf returns the quantity held for productID, or 0.
func (c *Cart) QuantityOf(productID string) int64 {
	l, _ := c.Line(productID)
	return l.Quantity
}

// AddLine merges quantity into the existing line for productID or appends a
// new one. A merged line keeps its original unit price.
func (c *Cart) AddLine(productID, name string, quantity int64, unitPrice money.Money) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	if i := c.indexOf(productID); i >= 0 {
		c.Lines[i].Quantity += quantity
		return nil
	}

	c.Lines = append(c.Lines, Line{
		ProductID: productID,
		Name:      name,
		Quantity:  quantity,
		UnitPrice: unitPrice,
	})
	return nil
}

// UpdateQuantity sets the quantity of an existing line. A quantity below one
// removes the line.
func (c *Cart) UpdateQuantity(productID string, quantity int64) error {
	i := c.indexOf(productID)
	if i < 0 {
		return ErrLineNotFound
	}
	if quantity < 1 {
		c.RemoveLine(productID)
		return nil
	}
	c.Lines[i].Quantity = quantity
	return nil
}

// RemoveLine drops the line for productID. Removing an absent line is a no-op.
func (c *Cart) RemoveLine(productID string) {
	if i := c.indexOf(productID); i >= 0 {
		c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	}
}

// Clear removes all lines.
func (c *Cart) Clear() {
	c.Lines = []Line{}
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Distinct returns the number of distinct products in the cart.
func (c *Cart) Distinct() int {
	return len(c.Lines)
}

// Snapshot returns a copy of the lines that later cart edits cannot alter.
func (c *Cart) Snapshot() []Line {
	out := make([]Line, len(c.Lines))
	copy(out, c.Lines)
	return out
}
