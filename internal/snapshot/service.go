package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mtlprog/holdings/internal/domain"
	"github.com/mtlprog/holdings/internal/ledger"
)

// AssetLister returns the asset registry.
type AssetLister interface {
	List(ctx context.Context) ([]domain.Asset, error)
}

// Aggregator builds a holder's portfolio over a set of assets.
type Aggregator interface {
	Aggregate(ctx context.Context, assets []domain.Asset, holder string) (domain.PortfolioSnapshot, error)
}

// Enricher adds data to a snapshot before it is stored, e.g. fiat valuations.
type Enricher interface {
	EnrichSnapshot(ctx context.Context, snap *domain.PortfolioSnapshot) error
}

// Service manages snapshot generation and retrieval.
type Service struct {
	assets     AssetLister
	aggregator Aggregator
	repo       Repository
	enricher   Enricher
}

// NewService creates a new snapshot service. An optional Enricher is applied to every
// generated snapshot; its failure is logged and does not prevent storing the snapshot.
func NewService(assets AssetLister, aggregator Aggregator, repo Repository, enrichers ...Enricher) *Service {
	var enricher Enricher
	if len(enrichers) > 0 {
		enricher = enrichers[0]
	}
	return &Service{assets: assets, aggregator: aggregator, repo: repo, enricher: enricher}
}

// Key normalizes a holder address to the form snapshots are stored under.
func Key(holder string) (string, error) {
	addr, err := ledger.ParseAddress(holder)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrInvalidHolder, err)
	}
	return addr.Hex(), nil
}

// Generate aggregates the holder's portfolio and stores it for date.
func (s *Service) Generate(ctx context.Context, holder string, date time.Time) (domain.PortfolioSnapshot, error) {
	key, err := Key(holder)
	if err != nil {
		return domain.PortfolioSnapshot{}, err
	}

	assets, err := s.assets.List(ctx)
	if err != nil {
		return domain.PortfolioSnapshot{}, fmt.Errorf("loading assets: %w", err)
	}

	snap, err := s.aggregator.Aggregate(ctx, assets, key)
	if err != nil {
		return domain.PortfolioSnapshot{}, fmt.Errorf("aggregating portfolio: %w", err)
	}

	if s.enricher != nil {
		if err := s.enricher.EnrichSnapshot(ctx, &snap); err != nil {
			slog.Warn("failed to enrich snapshot", "holder", key, "error", err)
		}
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return domain.PortfolioSnapshot{}, fmt.Errorf("marshaling snapshot: %w", err)
	}

	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	if err := s.repo.Save(ctx, key, day, data); err != nil {
		return domain.PortfolioSnapshot{}, fmt.Errorf("saving snapshot: %w", err)
	}

	return snap, nil
}

// GetLatest retrieves the most recent snapshot of the holder.
func (s *Service) GetLatest(ctx context.Context, holder string) (*Snapshot, error) {
	key, err := Key(holder)
	if err != nil {
		return nil, err
	}
	return s.repo.GetLatest(ctx, key)
}

// GetByDate retrieves the holder's snapshot for a specific date.
func (s *Service) GetByDate(ctx context.Context, holder string, date time.Time) (*Snapshot, error) {
	key, err := Key(holder)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByDate(ctx, key, date)
}

// List retrieves the holder's recent snapshots, newest first.
func (s *Service) List(ctx context.Context, holder string, limit int) ([]Snapshot, error) {
	key, err := Key(holder)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, key, limit)
}
