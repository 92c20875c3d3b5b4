package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/mtlprog/holdings/internal/domain"
)

// SnapshotGenerator builds and stores a holder's daily portfolio snapshot.
type SnapshotGenerator interface {
	Generate(ctx context.Context, holder string, date time.Time) (domain.PortfolioSnapshot, error)
}

// AfterSnapshotHook is called after each successful snapshot generation.
type AfterSnapshotHook interface {
	Export(ctx context.Context, snap domain.PortfolioSnapshot) error
}

// SnapshotWorker periodically snapshots the portfolios of a fixed set of holders.
type SnapshotWorker struct {
	generator SnapshotGenerator
	holders   []string
	interval  time.Duration
	hook      AfterSnapshotHook // optional
	now       func() time.Time
}

// NewSnapshotWorker creates a new SnapshotWorker. hook may be nil.
func NewSnapshotWorker(generator SnapshotGenerator, holders []string, interval time.Duration, hook AfterSnapshotHook) *SnapshotWorker {
	return &SnapshotWorker{
		generator: generator,
		holders:   holders,
		interval:  interval,
		hook:      hook,
		now:       time.Now,
	}
}

// utcDate normalizes t to midnight UTC.
func utcDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// runOnce snapshots every holder in turn. A failure for one holder does not stop the others.
func (w *SnapshotWorker) runOnce(ctx context.Context) {
	date := utcDate(w.now())
	for _, holder := range w.holders {
		if ctx.Err() != nil {
			return
		}

		snap, err := w.generator.Generate(ctx, holder, date)
		if err != nil {
			slog.Error("snapshot worker: generation failed", "holder", holder, "error", err)
			continue
		}
		slog.Info("snapshot worker: snapshot stored",
			"holder", holder,
			"holdings", snap.TotalHoldings,
			"skipped", len(snap.Skipped),
		)

		if w.hook == nil {
			continue
		}
		if err := w.hook.Export(ctx, snap); err != nil {
			slog.Error("snapshot worker: export hook failed", "holder", holder, "error", err)
		}
	}
}

// Run snapshots once at startup and then on every tick. It blocks until the context is cancelled.
func (w *SnapshotWorker) Run(ctx context.Context) {
	if len(w.holders) == 0 {
		slog.Info("snapshot worker: no holders to watch")
		return
	}
	slog.Info("snapshot worker: starting", "holders", len(w.holders), "interval", w.interval)

	w.runOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("snapshot worker: shutting down")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}
