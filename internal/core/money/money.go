package money

import (
	"github.com/shopspring/decimal"
)

// Money is an amount in minor currency units (paise, cents).
type Money int64

// minorExponent is the number of decimal places between minor and major units.
const minorExponent = 2

// Mul multiplies the amount by an integer quantity.
func (m Money) Mul(quantity int64) Money {
	return m * Money(quantity)
}

// Percent applies a rate expressed in basis points (1200 = 12%).
// Results are rounded half-up, so 0.5 of a minor unit rounds away from zero.
func (m Money) Percent(bps int64) Money {
	product := int64(m) * bps
	if product >= 0 {
		return Money((product + 5000) / 10000)
	}
	return Money((product - 5000) / 10000)
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -minorExponent)
}

// String renders the amount in major units with two decimals, e.g. "10.70".
func (m Money) String() string {
	return m.Decimal().StringFixed(minorExponent)
}

// FromMajor converts a major-unit decimal string ("499.99") into Money.
func FromMajor(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return Money(d.Shift(minorExponent).Round(0).IntPart()), nil
}
