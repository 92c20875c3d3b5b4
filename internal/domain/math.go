package domain

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// SafeParse parses a string into a decimal, returning zero for invalid or empty input.
func SafeParse(value string) decimal.Decimal {
	if value == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// SafeDivide divides a by b, returning zero when b is zero.
func SafeDivide(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.Div(b)
}

// Percent returns part / whole * 100, or zero when whole is zero.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Mul(hundred).Div(whole)
}

// WeightedShare returns total * owned / outstanding, multiplying before dividing.
// Returns zero when outstanding is zero.
func WeightedShare(total, owned, outstanding decimal.Decimal) decimal.Decimal {
	if outstanding.IsZero() {
		return decimal.Zero
	}
	return total.Mul(owned).Div(outstanding)
}
