// Package dividend enumerates a distributor's payouts and computes what a holder can still claim.
package dividend

import (
	"context"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/mtlprog/holdings/internal/domain"
	"github.com/mtlprog/holdings/internal/fanout"
	"github.com/mtlprog/holdings/internal/fixedpoint"
	"github.com/mtlprog/holdings/internal/ledger"
)

// Calculator reads claim state from a distributor contract.
type Calculator struct {
	distributors ledger.DistributorReader
	limit        int
}

// NewCalculator creates a Calculator issuing at most limit per-index reads at once (limit <= 0 is unbounded).
func NewCalculator(distributors ledger.DistributorReader, limit int) *Calculator {
	return &Calculator{distributors: distributors, limit: limit}
}

type indexState struct {
	index   uint64
	claimed bool
	raw     *big.Int
	err     error
}

// Claimable returns the sum of currently claimable, not yet claimed amounts for holder.
// Indices whose reads fail are logged and left out of the sum.
func (c *Calculator) Claimable(ctx context.Context, distributor, holder common.Address) decimal.Decimal {
	return fixedpoint.ToDecimal(c.ClaimableRaw(ctx, distributor, holder), fixedpoint.SettlementDecimals)
}

// ClaimableRaw is Claimable in the 8-decimal settlement base.
func (c *Calculator) ClaimableRaw(ctx context.Context, distributor, holder common.Address) *big.Int {
	states, err := c.enumerate(ctx, distributor, holder)
	if err != nil {
		slog.Warn("distribution count unavailable, assuming nothing claimable",
			"distributor", distributor.Hex(), "holder", holder.Hex(), "error", err)
		return new(big.Int)
	}

	return lo.Reduce(states, func(sum *big.Int, s indexState, _ int) *big.Int {
		if s.err != nil || s.claimed || s.raw == nil || s.raw.Sign() <= 0 {
			return sum
		}
		return sum.Add(sum, s.raw)
	}, new(big.Int))
}

// ClaimStates returns the claim state of every readable distribution, ordered by index.
// Only a failure to read the distribution count is returned as an error.
func (c *Calculator) ClaimStates(ctx context.Context, distributor, holder common.Address) ([]domain.ClaimState, error) {
	states, err := c.enumerate(ctx, distributor, holder)
	if err != nil {
		return nil, err
	}

	return lo.FilterMap(states, func(s indexState, _ int) (domain.ClaimState, bool) {
		if s.err != nil {
			return domain.ClaimState{}, false
		}
		return domain.ClaimState{
			Index:           s.index,
			Claimed:         s.claimed,
			ClaimableAmount: fixedpoint.ToDecimal(s.raw, fixedpoint.SettlementDecimals),
		}, true
	}), nil
}

func (c *Calculator) enumerate(ctx context.Context, distributor, holder common.Address) ([]indexState, error) {
	count, err := c.distributors.DistributionCount(ctx, distributor)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	return fanout.Map(ctx, c.limit, fanout.Indices(count), func(ctx context.Context, index uint64) indexState {
		s := c.readIndex(ctx, distributor, holder, index)
		if s.err != nil {
			slog.Warn("distribution read failed, excluding from claimable total",
				"distributor", distributor.Hex(), "index", index, "holder", holder.Hex(), "error", s.err)
		}
		return s
	}), nil
}

// readIndex reads the claimed flag and the claimable amount of one distribution concurrently.
func (c *Calculator) readIndex(ctx context.Context, distributor, holder common.Address, index uint64) indexState {
	s := indexState{index: index}

	var g errgroup.Group
	g.Go(func() (err error) {
		s.claimed, err = c.distributors.HasClaimed(ctx, distributor, index, holder)
		return err
	})
	g.Go(func() (err error) {
		s.raw, err = c.distributors.ClaimableDividend(ctx, distributor, index, holder)
		return err
	})
	s.err = g.Wait()

	return s
}
