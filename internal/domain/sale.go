package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// SaleState is a point-in-time read of a sale contract.
// Raw fields keep the ledger integers; decimal fields are derived from them.
type SaleState struct {
	PricePerShareRaw *big.Int `json:"-"`
	TotalSharesRaw   *big.Int `json:"-"`
	SharesSoldRaw    *big.Int `json:"-"`

	PricePerShare decimal.Decimal `json:"pricePerShare"`
	TotalShares   decimal.Decimal `json:"totalShares"`
	SharesSold    decimal.Decimal `json:"sharesSold"`
	SaleActive    bool            `json:"saleActive"`
}

// Consistent reports whether sharesSold <= totalShares.
func (s SaleState) Consistent() bool {
	if s.SharesSoldRaw == nil || s.TotalSharesRaw == nil {
		return true
	}
	return s.SharesSoldRaw.Cmp(s.TotalSharesRaw) <= 0
}

// Available returns the unsold share amount, floored at zero.
func (s SaleState) Available() decimal.Decimal {
	available := s.TotalShares.Sub(s.SharesSold)
	if available.IsNegative() {
		return decimal.Zero
	}
	return available
}
