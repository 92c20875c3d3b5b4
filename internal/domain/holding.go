package domain

import "github.com/shopspring/decimal"

// HoldingStatus reflects whether the asset's share sale is still open.
type HoldingStatus string

const (
	HoldingStatusActive HoldingStatus = "active"
	HoldingStatusSold   HoldingStatus = "sold"
)

// GainLoss describes the dividend return on a position.
type GainLoss struct {
	Amount     decimal.Decimal `json:"amount"`
	Percentage decimal.Decimal `json:"percentage"`
	IsGain     bool            `json:"isGain"`
}

// NewGainLoss computes the return of amount relative to invested.
func NewGainLoss(amount, invested decimal.Decimal) GainLoss {
	return GainLoss{
		Amount:     amount,
		Percentage: Percent(amount, invested),
		IsGain:     !amount.IsNegative(),
	}
}

// Holding is one holder's position in one asset. It is derived on every request and never persisted.
type Holding struct {
	AssetID                string          `json:"assetId"`
	AssetName              string          `json:"assetName"`
	Location               string          `json:"location,omitempty"`
	TokenAddress           string          `json:"tokenAddress"`
	SharesOwned            decimal.Decimal `json:"sharesOwned"`
	TotalShares            decimal.Decimal `json:"totalShares"`
	PricePerShare          decimal.Decimal `json:"pricePerShare"`
	InvestedAmount         decimal.Decimal `json:"investedAmount"`
	CurrentValue           decimal.Decimal `json:"currentValue"`
	ClaimableDividends     decimal.Decimal `json:"claimableDividends"`
	TotalDividendsReceived decimal.Decimal `json:"totalDividendsReceived"`
	OwnershipPercentage    decimal.Decimal `json:"ownershipPercentage"`
	ExpectedYield          decimal.Decimal `json:"expectedYield"`
	GainLoss               GainLoss        `json:"gainLoss"`
	Status                 HoldingStatus   `json:"status"`
}
