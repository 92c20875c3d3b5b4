package domain

import "github.com/shopspring/decimal"

// Asset is a real-world asset backed by a share token.
type Asset struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	Location            string          `json:"location,omitempty"`
	TokenAddress        string          `json:"tokenAddress"`
	SaleContractAddress string          `json:"saleContractAddress"`
	DistributorAddress  string          `json:"distributorAddress"`
	ExpectedYield       decimal.Decimal `json:"expectedYield"`
}

// Tokenized reports whether all three contract addresses are present.
// Assets that are not tokenized yet are excluded from holdings computation.
func (a Asset) Tokenized() bool {
	return a.TokenAddress != "" && a.SaleContractAddress != "" && a.DistributorAddress != ""
}
