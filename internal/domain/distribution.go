package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DistributionRecord is a past payout event kept by the history store.
type DistributionRecord struct {
	ID          int64           `json:"id"`
	AssetID     string          `json:"assetId"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Description string          `json:"description,omitempty"`
	ExecutedAt  time.Time       `json:"executedAt"`
	TxHash      string          `json:"txHash,omitempty"`
}

// ClaimState is the claim status of one distribution for one holder.
// It is read from the ledger on demand and never cached.
type ClaimState struct {
	Index           uint64          `json:"index"`
	Claimed         bool            `json:"claimed"`
	ClaimableAmount decimal.Decimal `json:"claimableAmount"`
}
