// Package portfolio folds a holder's per-asset holdings and the distribution
// history into a PortfolioSnapshot.
//
// Every asset is processed in isolation: a failed read for one asset removes
// that asset (or its history) from the result and never fails the whole snapshot.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/holdings/internal/domain"
	"github.com/mtlprog/holdings/internal/fanout"
	"github.com/mtlprog/holdings/internal/holding"
	"github.com/mtlprog/holdings/internal/ledger"
	"github.com/mtlprog/holdings/internal/observability"
)

const (
	monthlyBuckets        = 5
	historyPoints         = 30
	defaultFanoutLimit    = 8
	skipReasonIneligible  = "ineligible"
	skipReasonReadFailure = "read_failure"
)

// HistoryStore returns the past distributions of an asset.
type HistoryStore interface {
	ListByAsset(ctx context.Context, assetID string) ([]domain.DistributionRecord, error)
}

// Service aggregates portfolios.
type Service struct {
	reader    ledger.Reader
	assembler *holding.Assembler
	history   HistoryStore
	metrics   *observability.Metrics
	limit     int
	now       func() time.Time
}

// Option configures Service.
type Option func(*Service)

// WithHistory enables reconciliation of received dividends from the history store.
func WithHistory(h HistoryStore) Option {
	return func(s *Service) { s.history = h }
}

// WithMetrics records aggregation timings and skipped assets.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithFanoutLimit bounds concurrent per-asset and per-distribution reads.
func WithFanoutLimit(n int) Option {
	return func(s *Service) { s.limit = n }
}

// WithClock overrides the time source used for monthly buckets and the history series.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a portfolio aggregator reading from reader.
func NewService(reader ledger.Reader, opts ...Option) *Service {
	s := &Service{
		reader: reader,
		limit:  defaultFanoutLimit,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if reader != nil {
		s.assembler = holding.NewAssembler(reader, s.limit)
	}
	return s
}

type assembled struct {
	holding *domain.Holding
	skipped *domain.SkippedAsset
	warning string
}

// Holdings assembles holder's position in every asset. Assets the holder does not
// own are omitted; assets that could not be read are reported in the skipped list.
func (s *Service) Holdings(ctx context.Context, assets []domain.Asset, holder string) ([]domain.Holding, []domain.SkippedAsset, error) {
	addr, err := s.precheck(holder)
	if err != nil {
		return nil, nil, err
	}
	holdings, skipped, _ := s.assemble(ctx, assets, addr)
	return holdings, skipped, nil
}

// Aggregate builds holder's PortfolioSnapshot over assets.
func (s *Service) Aggregate(ctx context.Context, assets []domain.Asset, holder string) (domain.PortfolioSnapshot, error) {
	addr, err := s.precheck(holder)
	if err != nil {
		return domain.PortfolioSnapshot{}, err
	}

	start := time.Now()
	defer s.metrics.ObserveAggregation(start)

	now := s.now().UTC()
	holdings, skipped, warnings := s.assemble(ctx, assets, addr)

	var payouts []payout
	if s.history != nil {
		var historyWarnings []string
		payouts, historyWarnings = s.reconcile(ctx, holdings)
		warnings = append(warnings, historyWarnings...)
	}

	snap := summarize(holdings)
	snap.Holder = addr.Hex()
	snap.GeneratedAt = now
	snap.Skipped = skipped
	snap.Warnings = warnings
	snap.MonthlyProfit = monthlyProfit(payouts, now)
	snap.MonthlyChange = monthlyChange(snap.MonthlyProfit)
	snap.InvestmentHistory = investmentHistory(snap.TotalInvested, now)
	snap.InvestmentHistoryApproximate = true

	return snap, nil
}

func (s *Service) precheck(holder string) (common.Address, error) {
	if s.reader == nil || s.assembler == nil {
		return common.Address{}, domain.ErrNotConnected
	}
	addr, err := ledger.ParseAddress(holder)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %w", domain.ErrInvalidHolder, err)
	}
	return addr, nil
}

func (s *Service) assemble(ctx context.Context, assets []domain.Asset, holder common.Address) ([]domain.Holding, []domain.SkippedAsset, []string) {
	results := fanout.Map(ctx, s.limit, assets, func(ctx context.Context, asset domain.Asset) assembled {
		h, err := s.assembler.Assemble(ctx, asset, holder)
		switch {
		case err == nil:
			return assembled{holding: h}
		case errors.Is(err, domain.ErrAssetIneligible):
			s.metrics.ObserveSkipped(skipReasonIneligible)
			return assembled{skipped: &domain.SkippedAsset{AssetID: asset.ID, Reason: err.Error()}}
		default:
			slog.Warn("skipping asset", "asset", asset.ID, "holder", holder.Hex(), "error", err)
			s.metrics.ObserveSkipped(skipReasonReadFailure)
			return assembled{
				skipped: &domain.SkippedAsset{AssetID: asset.ID, Reason: err.Error()},
				warning: fmt.Sprintf("asset %s skipped: %v", asset.ID, err),
			}
		}
	})

	holdings := lo.FilterMap(results, func(r assembled, _ int) (domain.Holding, bool) {
		if r.holding == nil {
			return domain.Holding{}, false
		}
		return *r.holding, true
	})
	skipped := lo.FilterMap(results, func(r assembled, _ int) (domain.SkippedAsset, bool) {
		if r.skipped == nil {
			return domain.SkippedAsset{}, false
		}
		return *r.skipped, true
	})
	warnings := lo.FilterMap(results, func(r assembled, _ int) (string, bool) {
		return r.warning, r.warning != ""
	})

	return holdings, skipped, warnings
}

// summarize computes the portfolio totals. TotalInvested is the exact sum of InvestedAmount.
func summarize(holdings []domain.Holding) domain.PortfolioSnapshot {
	sum := func(field func(h domain.Holding) decimal.Decimal) decimal.Decimal {
		return lo.Reduce(holdings, func(acc decimal.Decimal, h domain.Holding, _ int) decimal.Decimal {
			return acc.Add(field(h))
		}, decimal.Zero)
	}

	totalInvested := sum(func(h domain.Holding) decimal.Decimal { return h.InvestedAmount })
	currentValue := sum(func(h domain.Holding) decimal.Decimal { return h.CurrentValue })
	totalProfit := sum(func(h domain.Holding) decimal.Decimal { return h.ClaimableDividends })
	received := sum(func(h domain.Holding) decimal.Decimal { return h.TotalDividendsReceived })
	returnAmount := currentValue.Sub(totalInvested).Add(received)

	if holdings == nil {
		holdings = []domain.Holding{}
	}

	return domain.PortfolioSnapshot{
		Holdings:               holdings,
		TotalInvested:          totalInvested,
		CurrentValue:           currentValue,
		TotalProfit:            totalProfit,
		TotalDividendsReceived: received,
		ROI:                    domain.Percent(received, totalInvested),
		TotalReturn: domain.TotalReturn{
			Amount:     returnAmount,
			Percentage: domain.Percent(returnAmount, totalInvested),
		},
		TotalHoldings: len(holdings),
		ActiveProperties: lo.CountBy(holdings, func(h domain.Holding) bool {
			return h.Status == domain.HoldingStatusActive
		}),
	}
}
