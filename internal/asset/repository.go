// Package asset stores the registry of tokenized assets.
package asset

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mtlprog/holdings/internal/domain"
)

// ErrNotFound indicates that the requested asset does not exist.
var ErrNotFound = errors.New("asset not found")

// Repository defines persistent storage for assets.
type Repository interface {
	List(ctx context.Context) ([]domain.Asset, error)
	Get(ctx context.Context, id string) (domain.Asset, error)
	Upsert(ctx context.Context, a domain.Asset) error
}

// PgRepository implements Repository with PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL asset repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const selectAssets = `SELECT id, name, location, token_address, sale_contract_address, distributor_address, expected_yield FROM assets`

func scanAsset(row pgx.CollectableRow) (domain.Asset, error) {
	var a domain.Asset
	err := row.Scan(&a.ID, &a.Name, &a.Location, &a.TokenAddress, &a.SaleContractAddress, &a.DistributorAddress, &a.ExpectedYield)
	return a, err
}

func (r *PgRepository) List(ctx context.Context) ([]domain.Asset, error) {
	rows, err := r.pool.Query(ctx, selectAssets+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}
	assets, err := pgx.CollectRows(rows, scanAsset)
	if err != nil {
		return nil, fmt.Errorf("scanning assets: %w", err)
	}
	return assets, nil
}

func (r *PgRepository) Get(ctx context.Context, id string) (domain.Asset, error) {
	rows, err := r.pool.Query(ctx, selectAssets+` WHERE id = $1`, id)
	if err != nil {
		return domain.Asset{}, fmt.Errorf("getting asset %s: %w", id, err)
	}
	a, err := pgx.CollectExactlyOneRow(rows, scanAsset)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Asset{}, ErrNotFound
		}
		return domain.Asset{}, fmt.Errorf("getting asset %s: %w", id, err)
	}
	return a, nil
}

func (r *PgRepository) Upsert(ctx context.Context, a domain.Asset) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO assets (id, name, location, token_address, sale_contract_address, distributor_address, expected_yield)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
		   name = $2, location = $3, token_address = $4,
		   sale_contract_address = $5, distributor_address = $6, expected_yield = $7`,
		a.ID, a.Name, a.Location, a.TokenAddress, a.SaleContractAddress, a.DistributorAddress, a.ExpectedYield)
	if err != nil {
		return fmt.Errorf("saving asset %s: %w", a.ID, err)
	}
	return nil
}

// Eligible filters assets down to those with all three contract addresses.
func Eligible(assets []domain.Asset) []domain.Asset {
	out := make([]domain.Asset, 0, len(assets))
	for _, a := range assets {
		if a.Tokenized() {
			out = append(out, a)
		}
	}
	return out
}
