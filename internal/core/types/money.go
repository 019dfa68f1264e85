// Package types provides the money and quantity types used by every ledger amount.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// Quantity is a product quantity. Stored as NUMERIC(15,4).
type Quantity = decimal.Decimal

const (
	// MoneyPlaces is the number of fractional digits kept on posted amounts.
	MoneyPlaces int32 = 2
	// QuantityPlaces is the number of fractional digits kept on quantities.
	QuantityPlaces int32 = 4
)

// BalanceTolerance is the largest accepted gap between voucher debits and credits.
var BalanceTolerance = decimal.New(1, -2)

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// MoneyFromInt is a shorthand for whole currency units.
func MoneyFromInt(v int64) Money {
	return decimal.NewFromInt(v)
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// RoundMoney rounds half away from zero to 2 decimal places.
func RoundMoney(m Money) Money {
	return m.Round(MoneyPlaces)
}

// RoundQuantity rounds to 4 decimal places.
func RoundQuantity(q Quantity) Quantity {
	return q.Round(QuantityPlaces)
}

// HasMoneyPrecision reports whether m has no more than 2 fractional digits.
func HasMoneyPrecision(m Money) bool {
	return m.Equal(m.Round(MoneyPlaces))
}

// WithinTolerance reports |a-b| <= BalanceTolerance.
func WithinTolerance(a, b Money) bool {
	return a.Sub(b).Abs().LessThanOrEqual(BalanceTolerance)
}

// ClampZero returns m, or zero when m is negative.
func ClampZero(m Money) Money {
	if m.IsNegative() {
		return decimal.Zero
	}
	return m
}

// FormatMoney renders m with exactly 2 fractional digits.
func FormatMoney(m Money) string {
	return m.StringFixed(MoneyPlaces)
}
