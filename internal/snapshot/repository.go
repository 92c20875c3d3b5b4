package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates that the requested snapshot was not found.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is a stored portfolio snapshot of one holder.
type Snapshot struct {
	ID           int64           `json:"id"`
	Holder       string          `json:"holder"`
	SnapshotDate time.Time       `json:"snapshotDate"`
	Data         json.RawMessage `json:"data"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Repository defines persistent storage for snapshots.
type Repository interface {
	Save(ctx context.Context, holder string, date time.Time, data json.RawMessage) error
	GetLatest(ctx context.Context, holder string) (*Snapshot, error)
	GetByDate(ctx context.Context, holder string, date time.Time) (*Snapshot, error)
	List(ctx context.Context, holder string, limit int) ([]Snapshot, error)
}

// PgRepository implements Repository with PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL snapshot repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const selectSnapshots = `SELECT id, holder, snapshot_date, data, created_at FROM portfolio_snapshots`

func scanSnapshot(row pgx.CollectableRow) (Snapshot, error) {
	var s Snapshot
	err := row.Scan(&s.ID, &s.Holder, &s.SnapshotDate, &s.Data, &s.CreatedAt)
	return s, err
}

func (r *PgRepository) Save(ctx context.Context, holder string, date time.Time, data json.RawMessage) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO portfolio_snapshots (holder, snapshot_date, data)
		 VALUES ($1, $2, $3::jsonb)
		 ON CONFLICT (holder, snapshot_date)
		 DO UPDATE SET data = $3::jsonb, created_at = NOW()`,
		holder, date, data)
	if err != nil {
		return fmt.Errorf("saving snapshot for %s: %w", holder, err)
	}
	return nil
}

func (r *PgRepository) one(ctx context.Context, query string, args ...any) (*Snapshot, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	s, err := pgx.CollectExactlyOneRow(rows, scanSnapshot)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *PgRepository) GetLatest(ctx context.Context, holder string) (*Snapshot, error) {
	s, err := r.one(ctx, selectSnapshots+` WHERE holder = $1 ORDER BY snapshot_date DESC LIMIT 1`, holder)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("getting latest snapshot: %w", err)
	}
	return s, err
}

func (r *PgRepository) GetByDate(ctx context.Context, holder string, date time.Time) (*Snapshot, error) {
	s, err := r.one(ctx, selectSnapshots+` WHERE holder = $1 AND snapshot_date = $2`, holder, date)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("getting snapshot by date: %w", err)
	}
	return s, err
}

func (r *PgRepository) List(ctx context.Context, holder string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 30
	}

	rows, err := r.pool.Query(ctx, selectSnapshots+` WHERE holder = $1 ORDER BY snapshot_date DESC LIMIT $2`, holder, limit)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	snapshots, err := pgx.CollectRows(rows, scanSnapshot)
	if err != nil {
		return nil, fmt.Errorf("scanning snapshots: %w", err)
	}
	return snapshots, nil
}
