// Package ledger defines typed read/write capabilities for the share token, sale
// and distributor contracts, and go-ethereum backed implementations of them.
//
// Readers never cache: every call reflects ledger state at the moment it runs.
package ledger

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TokenReader reads a share token contract.
type TokenReader interface {
	BalanceOf(ctx context.Context, token, holder common.Address) (*big.Int, error)
	Decimals(ctx context.Context, token common.Address) (uint8, error)
}

// SaleReader reads a share sale contract. Amounts are 18-decimal raw integers.
type SaleReader interface {
	PricePerShare(ctx context.Context, sale common.Address) (*big.Int, error)
	TotalShares(ctx context.Context, sale common.Address) (*big.Int, error)
	SharesSold(ctx context.Context, sale common.Address) (*big.Int, error)
	SaleActive(ctx context.Context, sale common.Address) (bool, error)
}

// DistributorReader reads a dividend distributor contract. Amounts are 8-decimal raw integers.
type DistributorReader interface {
	DistributionCount(ctx context.Context, distributor common.Address) (uint64, error)
	HasClaimed(ctx context.Context, distributor common.Address, index uint64, holder common.Address) (bool, error)
	ClaimableDividend(ctx context.Context, distributor common.Address, index uint64, holder common.Address) (*big.Int, error)
}

// SettlementReader reads native settlement-currency balances in the 8-decimal base.
type SettlementReader interface {
	SettlementBalance(ctx context.Context, account common.Address) (*big.Int, error)
}

// Reader is the full read surface.
type Reader interface {
	TokenReader
	SaleReader
	DistributorReader
	SettlementReader
}

// TokenWriter submits share token transfers.
type TokenWriter interface {
	Transfer(ctx context.Context, token, to common.Address, amountRaw *big.Int) (common.Hash, error)
}

// SaleWriter submits share purchases. valueRaw is in the 8-decimal settlement base.
type SaleWriter interface {
	BuyShares(ctx context.Context, sale common.Address, sharesRaw, valueRaw *big.Int) (common.Hash, error)
}

// DistributorWriter submits distribution creation and claims. amountRaw is in the 8-decimal settlement base.
type DistributorWriter interface {
	CreateDistribution(ctx context.Context, distributor common.Address, amountRaw *big.Int) (common.Hash, error)
	ClaimDividend(ctx context.Context, distributor common.Address, index uint64) (common.Hash, error)
}

// Confirmer waits for a submitted transaction to be mined successfully.
type Confirmer interface {
	WaitConfirmed(ctx context.Context, hash common.Hash) error
}

// Writer is the full write surface of one signing account.
type Writer interface {
	TokenWriter
	SaleWriter
	DistributorWriter
	Confirmer
	From() common.Address
}

// ParseAddress validates and parses a hex contract or account address.
func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}
