// Package holding assembles one holder's position in one asset from ledger reads.
package holding

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/mtlprog/holdings/internal/dividend"
	"github.com/mtlprog/holdings/internal/domain"
	"github.com/mtlprog/holdings/internal/fixedpoint"
	"github.com/mtlprog/holdings/internal/ledger"
	"github.com/mtlprog/holdings/internal/resolver"
)

// Assembler builds Holdings.
type Assembler struct {
	balances  *resolver.BalanceResolver
	sales     *resolver.SaleStateResolver
	dividends *dividend.Calculator
}

// NewAssembler creates an Assembler over reader. limit bounds per-distribution reads.
func NewAssembler(reader ledger.Reader, limit int) *Assembler {
	return &Assembler{
		balances:  resolver.NewBalanceResolver(reader),
		sales:     resolver.NewSaleStateResolver(reader),
		dividends: dividend.NewCalculator(reader, limit),
	}
}

type contracts struct {
	token, sale, distributor common.Address
}

func parseContracts(asset domain.Asset) (contracts, error) {
	if !asset.Tokenized() {
		return contracts{}, fmt.Errorf("%w: asset %s is missing contract addresses", domain.ErrAssetIneligible, asset.ID)
	}
	var (
		c   contracts
		err error
	)
	if c.token, err = ledger.ParseAddress(asset.TokenAddress); err != nil {
		return contracts{}, fmt.Errorf("%w: asset %s token: %w", domain.ErrAssetIneligible, asset.ID, err)
	}
	if c.sale, err = ledger.ParseAddress(asset.SaleContractAddress); err != nil {
		return contracts{}, fmt.Errorf("%w: asset %s sale: %w", domain.ErrAssetIneligible, asset.ID, err)
	}
	if c.distributor, err = ledger.ParseAddress(asset.DistributorAddress); err != nil {
		return contracts{}, fmt.Errorf("%w: asset %s distributor: %w", domain.ErrAssetIneligible, asset.ID, err)
	}
	return c, nil
}

// Assemble returns holder's position in asset, or (nil, nil) when the holder owns none of it.
// Errors wrap domain.ErrAssetIneligible for assets without valid contract addresses and
// domain.ErrReadFailure when the sale state cannot be read.
//
// TotalDividendsReceived is left at zero and GainLoss reflects claimable dividends only;
// the portfolio layer replaces both from the distribution history.
func (a *Assembler) Assemble(ctx context.Context, asset domain.Asset, holder common.Address) (*domain.Holding, error) {
	c, err := parseContracts(asset)
	if err != nil {
		return nil, err
	}

	balance := a.balances.Resolve(ctx, c.token, holder)
	if balance.IsZero() {
		return nil, nil
	}

	var (
		sale      *domain.SaleState
		claimable decimal.Decimal
		g         errgroup.Group
	)
	g.Go(func() error {
		sale = a.sales.Resolve(ctx, c.sale)
		return nil
	})
	g.Go(func() error {
		claimable = a.dividends.Claimable(ctx, c.distributor, holder)
		return nil
	})
	_ = g.Wait()

	if sale == nil {
		return nil, fmt.Errorf("%w: sale state of asset %s unavailable", domain.ErrReadFailure, asset.ID)
	}

	sharesRaw := fixedpoint.Rescale(balance.Raw, balance.Decimals, fixedpoint.ShareDecimals, false)
	invested := fixedpoint.ToDecimal(fixedpoint.Cost(sharesRaw, sale.PricePerShareRaw), fixedpoint.PriceDecimals)

	status := domain.HoldingStatusSold
	if sale.SaleActive {
		status = domain.HoldingStatusActive
	}

	return &domain.Holding{
		AssetID:                asset.ID,
		AssetName:              asset.Name,
		Location:               asset.Location,
		TokenAddress:           c.token.Hex(),
		SharesOwned:            balance.Amount,
		TotalShares:            sale.TotalShares,
		PricePerShare:          sale.PricePerShare,
		InvestedAmount:         invested,
		CurrentValue:           invested,
		ClaimableDividends:     claimable,
		TotalDividendsReceived: decimal.Zero,
		OwnershipPercentage:    domain.Percent(balance.Amount, sale.TotalShares),
		ExpectedYield:          asset.ExpectedYield,
		GainLoss:               domain.NewGainLoss(claimable, invested),
		Status:                 status,
	}, nil
}
