package external

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/holdings/internal/domain"
)

// PriceSource fetches a coin price in a fiat currency.
type PriceSource interface {
	FetchPrice(ctx context.Context, coinID, currency string) (decimal.Decimal, error)
}

// Service keeps the settlement currency's fiat quote and restates snapshots with it.
type Service struct {
	source   PriceSource
	repo     QuoteRepository
	coinID   string
	currency string
}

// NewService creates a quote service for one settlement coin and fiat currency.
func NewService(source PriceSource, repo QuoteRepository, coinID, currency string) *Service {
	return &Service{
		source:   source,
		repo:     repo,
		coinID:   coinID,
		currency: strings.ToLower(currency),
	}
}

// FetchAndStoreQuotes fetches the settlement currency price and stores it.
func (s *Service) FetchAndStoreQuotes(ctx context.Context) error {
	price, err := s.source.FetchPrice(ctx, s.coinID, s.currency)
	if err != nil {
		return fmt.Errorf("fetching %s price: %w", s.coinID, err)
	}
	if err := s.repo.SaveQuote(ctx, s.coinID, s.currency, price); err != nil {
		return fmt.Errorf("storing %s quote: %w", s.coinID, err)
	}
	return nil
}

// EnrichSnapshot fills snap.Fiat from the stored quote.
func (s *Service) EnrichSnapshot(ctx context.Context, snap *domain.PortfolioSnapshot) error {
	quote, err := s.repo.GetQuote(ctx, s.coinID, s.currency)
	if err != nil {
		return fmt.Errorf("getting %s/%s quote: %w", s.coinID, s.currency, err)
	}

	snap.Fiat = &domain.FiatValuation{
		Currency:               quote.Currency,
		Price:                  quote.Price,
		QuotedAt:               quote.UpdatedAt,
		TotalInvested:          snap.TotalInvested.Mul(quote.Price),
		CurrentValue:           snap.CurrentValue.Mul(quote.Price),
		TotalProfit:            snap.TotalProfit.Mul(quote.Price),
		TotalDividendsReceived: snap.TotalDividendsReceived.Mul(quote.Price),
	}
	return nil
}
