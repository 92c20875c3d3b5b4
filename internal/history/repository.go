// Package history stores executed distributions.
package history

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mtlprog/holdings/internal/domain"
)

// Repository defines persistent storage for distribution history.
type Repository interface {
	ListByAsset(ctx context.Context, assetID string) ([]domain.DistributionRecord, error)
	Record(ctx context.Context, rec domain.DistributionRecord) (domain.DistributionRecord, error)
}

// PgRepository implements Repository with PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL distribution history repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// ListByAsset returns the distributions of an asset, oldest first.
func (r *PgRepository) ListByAsset(ctx context.Context, assetID string) ([]domain.DistributionRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, asset_id, total_amount, description, executed_at, tx_hash
		 FROM distributions
		 WHERE asset_id = $1
		 ORDER BY executed_at, id`, assetID)
	if err != nil {
		return nil, fmt.Errorf("listing distributions for %s: %w", assetID, err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.DistributionRecord, error) {
		var d domain.DistributionRecord
		err := row.Scan(&d.ID, &d.AssetID, &d.TotalAmount, &d.Description, &d.ExecutedAt, &d.TxHash)
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning distributions for %s: %w", assetID, err)
	}
	return records, nil
}

// Record inserts a distribution and returns it with its assigned ID.
func (r *PgRepository) Record(ctx context.Context, rec domain.DistributionRecord) (domain.DistributionRecord, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO distributions (asset_id, total_amount, description, executed_at, tx_hash)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		rec.AssetID, rec.TotalAmount, rec.Description, rec.ExecutedAt, rec.TxHash).Scan(&rec.ID)
	if err != nil {
		return domain.DistributionRecord{}, fmt.Errorf("recording distribution for %s: %w", rec.AssetID, err)
	}
	return rec, nil
}
