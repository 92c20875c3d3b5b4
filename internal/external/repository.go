package external

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrQuoteNotFound indicates that no quote is stored for a symbol and currency.
var ErrQuoteNotFound = errors.New("quote not found")

// Quote is an external price quote stored in the database.
type Quote struct {
	Symbol    string          `json:"symbol"`
	Currency  string          `json:"currency"`
	Price     decimal.Decimal `json:"price"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// QuoteRepository defines persistent storage for external quotes.
type QuoteRepository interface {
	SaveQuote(ctx context.Context, symbol, currency string, price decimal.Decimal) error
	GetQuote(ctx context.Context, symbol, currency string) (Quote, error)
}

// PgQuoteRepository implements QuoteRepository with PostgreSQL.
type PgQuoteRepository struct {
	pool *pgxpool.Pool
}

// NewPgQuoteRepository creates a new PostgreSQL quote repository.
func NewPgQuoteRepository(pool *pgxpool.Pool) *PgQuoteRepository {
	return &PgQuoteRepository{pool: pool}
}

func (r *PgQuoteRepository) SaveQuote(ctx context.Context, symbol, currency string, price decimal.Decimal) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO external_quotes (symbol, currency, price, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (symbol, currency) DO UPDATE SET price = $3, updated_at = NOW()`,
		symbol, currency, price)
	if err != nil {
		return fmt.Errorf("saving quote for %s/%s: %w", symbol, currency, err)
	}
	return nil
}

func (r *PgQuoteRepository) GetQuote(ctx context.Context, symbol, currency string) (Quote, error) {
	var q Quote
	err := r.pool.QueryRow(ctx,
		`SELECT symbol, currency, price, updated_at FROM external_quotes WHERE symbol = $1 AND currency = $2`,
		symbol, currency).Scan(&q.Symbol, &q.Currency, &q.Price, &q.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Quote{}, ErrQuoteNotFound
		}
		return Quote{}, fmt.Errorf("getting quote for %s/%s: %w", symbol, currency, err)
	}
	return q, nil
}
