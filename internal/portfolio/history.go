package portfolio

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/holdings/internal/domain"
	"github.com/mtlprog/holdings/internal/fanout"
)

// payout is the holder's share-weighted part of one past distribution.
type payout struct {
	amount   decimal.Decimal
	recorded domain.DistributionRecord
}

type reconciled struct {
	payouts []payout
	err     error
}

// reconcile replaces each holding's TotalDividendsReceived and GainLoss with figures
// derived from the distribution history. A holding whose history cannot be loaded
// keeps its claimable-based values and produces a warning.
func (s *Service) reconcile(ctx context.Context, holdings []domain.Holding) ([]payout, []string) {
	results := fanout.Map(ctx, s.limit, holdings, func(ctx context.Context, h domain.Holding) reconciled {
		records, err := s.history.ListByAsset(ctx, h.AssetID)
		if err != nil {
			return reconciled{err: err}
		}
		return reconciled{payouts: lo.Map(records, func(r domain.DistributionRecord, _ int) payout {
			return payout{
				amount:   domain.WeightedShare(r.TotalAmount, h.SharesOwned, h.TotalShares),
				recorded: r,
			}
		})}
	})

	var (
		all      []payout
		warnings []string
	)
	for i, r := range results {
		h := &holdings[i]
		if r.err != nil {
			slog.Warn("distribution history unavailable", "asset", h.AssetID, "error", r.err)
			warnings = append(warnings, fmt.Sprintf("dividend history for asset %s unavailable: %v", h.AssetID, r.err))
			continue
		}

		received := lo.Reduce(r.payouts, func(acc decimal.Decimal, p payout, _ int) decimal.Decimal {
			return acc.Add(p.amount)
		}, decimal.Zero)
		h.TotalDividendsReceived = received
		h.GainLoss = domain.NewGainLoss(received, h.InvestedAmount)
		all = append(all, r.payouts...)
	}

	return all, warnings
}
