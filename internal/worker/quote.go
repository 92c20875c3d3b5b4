package worker

import (
	"context"
	"log/slog"
	"time"
)

// QuoteFetcher fetches the external settlement-currency quote and stores it.
type QuoteFetcher interface {
	FetchAndStoreQuotes(ctx context.Context) error
}

// QuoteWorker keeps the stored fiat quote fresh for snapshot enrichment.
type QuoteWorker struct {
	fetcher  QuoteFetcher
	interval time.Duration
}

// NewQuoteWorker creates a new QuoteWorker.
func NewQuoteWorker(fetcher QuoteFetcher, interval time.Duration) *QuoteWorker {
	return &QuoteWorker{
		fetcher:  fetcher,
		interval: interval,
	}
}

func (w *QuoteWorker) fetch(ctx context.Context) {
	if err := w.fetcher.FetchAndStoreQuotes(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error("quote worker: fetch failed", "error", err)
		return
	}
	slog.Debug("quote worker: quote stored")
}

// Run fetches once at startup and then on every tick. It blocks until the context is cancelled.
func (w *QuoteWorker) Run(ctx context.Context) {
	slog.Info("quote worker: starting", "interval", w.interval)

	w.fetch(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("quote worker: shutting down")
			return
		case <-ticker.C:
			w.fetch(ctx)
		}
	}
}
