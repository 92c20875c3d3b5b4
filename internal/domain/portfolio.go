package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TotalReturn is the portfolio-level dividend return.
type TotalReturn struct {
	Amount     decimal.Decimal `json:"amount"`
	Percentage decimal.Decimal `json:"percentage"`
}

// MonthlyProfit is the holder's share-weighted distribution income for one calendar month.
type MonthlyProfit struct {
	Month  string          `json:"month"` // "2006-01"
	Label  string          `json:"label"` // "Jan"
	Amount decimal.Decimal `json:"amount"`
}

// HistoryPoint is one day of the investment history series.
type HistoryPoint struct {
	Date  time.Time       `json:"date"`
	Value decimal.Decimal `json:"value"`
}

// SkippedAsset records an asset left out of aggregation and why.
type SkippedAsset struct {
	AssetID string `json:"assetId"`
	Reason  string `json:"reason"`
}

// FiatValuation restates snapshot totals in a fiat currency using a stored quote.
type FiatValuation struct {
	Currency               string          `json:"currency"`
	Price                  decimal.Decimal `json:"price"`
	QuotedAt               time.Time       `json:"quotedAt"`
	TotalInvested          decimal.Decimal `json:"totalInvested"`
	CurrentValue           decimal.Decimal `json:"currentValue"`
	TotalProfit            decimal.Decimal `json:"totalProfit"`
	TotalDividendsReceived decimal.Decimal `json:"totalDividendsReceived"`
}

// PortfolioSnapshot aggregates all holdings of one holder.
type PortfolioSnapshot struct {
	Holder                 string          `json:"holder"`
	GeneratedAt            time.Time       `json:"generatedAt"`
	Holdings               []Holding       `json:"holdings"`
	TotalInvested          decimal.Decimal `json:"totalInvested"`
	CurrentValue           decimal.Decimal `json:"currentValue"`
	TotalProfit            decimal.Decimal `json:"totalProfit"`
	TotalDividendsReceived decimal.Decimal `json:"totalDividendsReceived"`
	ROI                    decimal.Decimal `json:"roi"`
	TotalReturn            TotalReturn     `json:"totalReturn"`
	TotalHoldings          int             `json:"totalHoldings"`
	ActiveProperties       int             `json:"activeProperties"`
	MonthlyProfit          []MonthlyProfit `json:"monthlyProfit"`
	MonthlyChange          decimal.Decimal `json:"monthlyChange"`
	InvestmentHistory      []HistoryPoint  `json:"investmentHistory"`
	// InvestmentHistory is interpolated, not read from an indexed event log.
	InvestmentHistoryApproximate bool           `json:"investmentHistoryApproximate"`
	Skipped                      []SkippedAsset `json:"skipped,omitempty"`
	Warnings                     []string       `json:"warnings,omitempty"`
	Fiat                         *FiatValuation `json:"fiat,omitempty"`
}
