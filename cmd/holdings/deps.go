package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/mtlprog/holdings/internal/config"
	"github.com/mtlprog/holdings/internal/database"
	"github.com/mtlprog/holdings/internal/export"
	"github.com/mtlprog/holdings/internal/history"
	"github.com/mtlprog/holdings/internal/ledger"
	"github.com/mtlprog/holdings/internal/observability"
	"github.com/mtlprog/holdings/internal/portfolio"
	"github.com/mtlprog/holdings/internal/transact"
)

// deps holds the shared infrastructure of one command invocation.
type deps struct {
	cfg      config.Config
	registry *prometheus.Registry
	metrics  *observability.Metrics
	eth      *ethclient.Client
	reader   *ledger.Client
	pool     *pgxpool.Pool
}

// setup loads configuration, dials the ledger and opens the migrated database.
func setup(ctx context.Context) (*deps, error) {
	cfg := config.Load()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(cfg.MetricsNamespace, registry)

	eth, err := ethclient.DialContext(ctx, cfg.LedgerRPCURL)
	if err != nil {
		return nil, fmt.Errorf("dialing ledger rpc: %w", err)
	}
	reader := ledger.NewClient(eth,
		ledger.WithRetry(cfg.LedgerRetryMax, cfg.LedgerRetryBaseDelay),
		ledger.WithReadTimeout(cfg.LedgerReadTimeout),
		ledger.WithValueDecimals(int32(cfg.LedgerValueDecimals)),
		ledger.WithMetrics(metrics),
	)

	pool, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		eth.Close()
		return nil, err
	}

	return &deps{
		cfg:      cfg,
		registry: registry,
		metrics:  metrics,
		eth:      eth,
		reader:   reader,
		pool:     pool,
	}, nil
}

func (d *deps) Close() {
	d.pool.Close()
	d.eth.Close()
}

func openDatabase(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := database.Connect(ctx, url)
	if err != nil {
		return nil, err
	}

	migrations, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("opening migrations: %w", err)
	}
	if err := database.RunMigrations(ctx, pool, migrations); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func (d *deps) portfolio() *portfolio.Service {
	return portfolio.NewService(d.reader,
		portfolio.WithHistory(history.NewPgRepository(d.pool)),
		portfolio.WithMetrics(d.metrics),
		portfolio.WithFanoutLimit(d.cfg.FanoutLimit),
	)
}

// transactor builds the write service. It fails when no signer key is configured.
func (d *deps) transactor(ctx context.Context) (*transact.Service, error) {
	signer, err := ledger.NewSigner(ctx, d.eth, ledger.SignerConfig{
		PrivateKey:     d.cfg.SignerPrivateKey,
		ValueDecimals:  int32(d.cfg.LedgerValueDecimals),
		PollInterval:   d.cfg.LedgerPollInterval,
		ConfirmTimeout: d.cfg.LedgerConfirmTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("creating signer: %w", err)
	}
	slog.Info("signer ready", "address", signer.From().Hex())

	return transact.NewService(d.reader, signer,
		transact.WithRecorder(history.NewPgRepository(d.pool)),
		transact.WithMetrics(d.metrics),
	), nil
}

// sheetWriter returns the Google Sheets writer when configured, nil otherwise.
func (d *deps) sheetWriter(ctx context.Context) (export.SheetWriter, error) {
	if d.cfg.GoogleSheetsID == "" {
		return nil, nil
	}
	if d.cfg.GoogleCredentialsJSON == "" {
		return nil, errors.New("GOOGLE_SHEETS_ID is set but GOOGLE_CREDENTIALS_JSON is empty")
	}
	return export.NewSheetsWriter(ctx, d.cfg.GoogleSheetsID, d.cfg.GoogleCredentialsJSON)
}

func decimalFlag(c *cli.Context, name string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(c.String(name))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid --%s %q: %w", name, c.String(name), err)
	}
	return d, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
