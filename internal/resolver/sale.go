package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/mtlprog/holdings/internal/domain"
	"github.com/mtlprog/holdings/internal/fixedpoint"
	"github.com/mtlprog/holdings/internal/ledger"
)

// SaleStateResolver reads the state of sale contracts.
type SaleStateResolver struct {
	sales ledger.SaleReader
}

func NewSaleStateResolver(sales ledger.SaleReader) *SaleStateResolver {
	return &SaleStateResolver{sales: sales}
}

// Resolve reads price, supply, sold amount and the active flag concurrently.
// It returns nil when any of the reads fails.
func (r *SaleStateResolver) Resolve(ctx context.Context, sale common.Address) *domain.SaleState {
	state, err := r.Read(ctx, sale)
	if err != nil {
		slog.Warn("sale state unavailable", "sale", sale.Hex(), "error", err)
		return nil
	}
	return state
}

// Read is Resolve with the failure reported to the caller.
func (r *SaleStateResolver) Read(ctx context.Context, sale common.Address) (*domain.SaleState, error) {
	var (
		price, total, sold *big.Int
		active             bool
		g                  errgroup.Group
	)
	g.Go(func() (err error) {
		price, err = r.sales.PricePerShare(ctx, sale)
		return err
	})
	g.Go(func() (err error) {
		total, err = r.sales.TotalShares(ctx, sale)
		return err
	})
	g.Go(func() (err error) {
		sold, err = r.sales.SharesSold(ctx, sale)
		return err
	})
	g.Go(func() (err error) {
		active, err = r.sales.SaleActive(ctx, sale)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if price == nil || total == nil || sold == nil {
		return nil, fmt.Errorf("%w: empty sale state from %s", domain.ErrReadFailure, sale.Hex())
	}

	state := &domain.SaleState{
		PricePerShareRaw: price,
		TotalSharesRaw:   total,
		SharesSoldRaw:    sold,
		PricePerShare:    fixedpoint.ToDecimal(price, fixedpoint.PriceDecimals),
		TotalShares:      fixedpoint.ToDecimal(total, fixedpoint.ShareDecimals),
		SharesSold:       fixedpoint.ToDecimal(sold, fixedpoint.ShareDecimals),
		SaleActive:       active,
	}
	if !state.Consistent() {
		slog.Warn("sale reports more shares sold than issued", "sale", sale.Hex(),
			"sharesSold", state.SharesSold, "totalShares", state.TotalShares)
	}
	return state, nil
}
