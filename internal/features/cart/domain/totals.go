package domain

import "smartcity-orders/internal/core/money"

// PricingPolicy holds the shipping, tax and discount rules applied to a cart.
// Rates are basis points.
type PricingPolicy struct {
	ShippingFee       money.Money
	FreeShippingAbove money.Money
	TaxBps            int64
	DiscountLowBps    int64
	DiscountHighBps   int64
	DiscountHighAbove money.Money
}

// DefaultPricing is the storefront's published pricing.
var DefaultPricing = PricingPolicy{
	ShippingFee:       50,
	FreeShippingAbove: 50000,
	TaxBps:            1200,
	DiscountLowBps:    1000,
	DiscountHighBps:   1500,
	DiscountHighAbove: 100000,
}

// Totals is the priced summary of a set of lines.
// GrandTotal always equals Subtotal + Shipping + Tax - Discount.
type Totals struct {
	Subtotal   money.Money `json:"subtotal"`
	Shipping   money.Money `json:"shipping"`
	Tax        money.Money `json:"tax"`
	Discount   money.Money `json:"discount"`
	GrandTotal money.Money `json:"grand_total"`
}

// Price computes totals for lines. No lines yields all zeros.
func (p PricingPolicy) Price(lines []Line) Totals {
	var subtotal money.Money
	for _, l := range lines {
		subtotal += l.Total()
	}
	if len(lines) == 0 {
		return Totals{}
	}

	shipping := p.ShippingFee
	if subtotal > p.FreeShippingAbove {
		shipping = 0
	}

	discountBps := p.DiscountLowBps
	if subtotal > p.DiscountHighAbove {
		discountBps = p.DiscountHighBps
	}

	t := Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      subtotal.Percent(p.TaxBps),
		Discount: subtotal.Percent(discountBps),
	}
	t.GrandTotal = t.Subtotal + t.Shipping + t.Tax - t.Discount
	return t
}

// ComputeTotals prices the cart's current lines.
func (c *Cart) ComputeTotals(p PricingPolicy) Totals {
	return p.Price(c.Lines)
}
