package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mtlprog/holdings/internal/api"
	"github.com/mtlprog/holdings/internal/asset"
	"github.com/mtlprog/holdings/internal/dividend"
	"github.com/mtlprog/holdings/internal/domain"
	"github.com/mtlprog/holdings/internal/export"
	"github.com/mtlprog/holdings/internal/external"
	"github.com/mtlprog/holdings/internal/ledger"
	"github.com/mtlprog/holdings/internal/observability"
	"github.com/mtlprog/holdings/internal/snapshot"
	"github.com/mtlprog/holdings/internal/transact"
	"github.com/mtlprog/holdings/internal/worker"
)

var (
	holderFlag = &cli.StringFlag{Name: "holder", Usage: "holder account address", Required: true}
	assetFlag  = &cli.StringFlag{Name: "asset", Usage: "asset id in the registry", Required: true}
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "run the HTTP API and background workers",
		Action: serve,
	}
}

func serve(c *cli.Context) error {
	ctx, stop := context.WithCancel(c.Context)
	defer stop()

	d, err := setup(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	assets := asset.NewPgRepository(d.pool)
	portfolioSvc := d.portfolio()

	coingecko := external.NewCoinGeckoClient(d.cfg.CoinGeckoURL, d.cfg.CoinGeckoDelay, d.cfg.CoinGeckoRetryMax)
	externalSvc := external.NewService(coingecko, external.NewPgQuoteRepository(d.pool), d.cfg.CoinGeckoCoinID, d.cfg.FiatCurrency)

	snapshotSvc := snapshot.NewService(assets, portfolioSvc, snapshot.NewPgRepository(d.pool), externalSvc)

	var hook worker.AfterSnapshotHook
	writer, err := d.sheetWriter(ctx)
	if err != nil {
		slog.Warn("sheets export disabled", "error", err)
	} else if writer != nil {
		hook = export.NewService(writer)
	}

	go worker.NewQuoteWorker(externalSvc, d.cfg.QuoteWorkerInterval).Run(ctx)
	go worker.NewSnapshotWorker(snapshotSvc, d.cfg.WatchHolders, d.cfg.SnapshotWorkerInterval, hook).Run(ctx)

	if d.cfg.AdminAPIKey == "" {
		slog.Warn("ADMIN_API_KEY not set, generate endpoint is unprotected")
	}

	handler := api.NewHandler(assets, portfolioSvc, snapshotSvc)
	srv := api.NewServer(d.cfg.HTTPPort, handler, observability.Handler(d.registry), d.cfg.AdminAPIKey)

	go func() {
		slog.Info("HTTP server listening", "port", d.cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}

	slog.Info("shutdown complete")
	return nil
}

func portfolioCommand() *cli.Command {
	return &cli.Command{
		Name:  "portfolio",
		Usage: "print a holder's aggregated portfolio",
		Flags: []cli.Flag{holderFlag},
		Action: func(c *cli.Context) error {
			d, err := setup(c.Context)
			if err != nil {
				return err
			}
			defer d.Close()

			assets, err := asset.NewPgRepository(d.pool).List(c.Context)
			if err != nil {
				return err
			}
			snap, err := d.portfolio().Aggregate(c.Context, assets, c.String("holder"))
			if err != nil {
				return err
			}
			return printJSON(c.App.Writer, snap)
		},
	}
}

func claimsCommand() *cli.Command {
	return &cli.Command{
		Name:  "claims",
		Usage: "list a holder's claim state for every distribution of an asset",
		Flags: []cli.Flag{holderFlag, assetFlag},
		Action: func(c *cli.Context) error {
			d, err := setup(c.Context)
			if err != nil {
				return err
			}
			defer d.Close()

			a, err := asset.NewPgRepository(d.pool).Get(c.Context, c.String("asset"))
			if err != nil {
				return err
			}
			distributor, err := ledger.ParseAddress(a.DistributorAddress)
			if err != nil {
				return fmt.Errorf("asset %s distributor: %w", a.ID, err)
			}
			holder, err := ledger.ParseAddress(c.String("holder"))
			if err != nil {
				return fmt.Errorf("holder: %w", err)
			}

			states, err := dividend.NewCalculator(d.reader, d.cfg.FanoutLimit).ClaimStates(c.Context, distributor, holder)
			if err != nil {
				return err
			}
			return printJSON(c.App.Writer, states)
		},
	}
}

// writeCommand wraps a write flow with setup and receipt output.
func writeCommand(name, usage string, flags []cli.Flag, run func(c *cli.Context, d *deps, tx *transact.Service) (transact.Receipt, error)) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Flags: flags,
		Action: func(c *cli.Context) error {
			d, err := setup(c.Context)
			if err != nil {
				return err
			}
			defer d.Close()

			tx, err := d.transactor(c.Context)
			if err != nil {
				return err
			}

			receipt, err := run(c, d, tx)
			if err != nil {
				var txErr *domain.TxError
				if errors.As(err, &txErr) && txErr.Stage == domain.TxStageConfirm {
					slog.Error("transaction sent but not confirmed, check the ledger before retrying", "tx", txErr.Hash)
				}
				return err
			}
			for _, w := range receipt.Warnings {
				slog.Warn("transaction confirmed with warning", "tx", receipt.TxHash, "warning", w)
			}
			return printJSON(c.App.Writer, receipt)
		},
	}
}

func buyCommand() *cli.Command {
	return writeCommand("buy", "buy shares of an asset from its sale contract",
		[]cli.Flag{
			assetFlag,
			&cli.StringFlag{Name: "shares", Usage: "number of shares, fractional allowed", Required: true},
		},
		func(c *cli.Context, d *deps, tx *transact.Service) (transact.Receipt, error) {
			a, err := asset.NewPgRepository(d.pool).Get(c.Context, c.String("asset"))
			if err != nil {
				return transact.Receipt{}, err
			}
			shares, err := decimalFlag(c, "shares")
			if err != nil {
				return transact.Receipt{}, err
			}
			return tx.Purchase(c.Context, transact.PurchaseRequest{
				SaleAddress: a.SaleContractAddress,
				Shares:      shares,
			})
		})
}

func distributeCommand() *cli.Command {
	return writeCommand("distribute", "fund a new dividend distribution for an asset",
		[]cli.Flag{
			assetFlag,
			&cli.StringFlag{Name: "amount", Usage: "total amount in the settlement currency", Required: true},
			&cli.StringFlag{Name: "description", Usage: "free-form note stored with the distribution"},
		},
		func(c *cli.Context, d *deps, tx *transact.Service) (transact.Receipt, error) {
			a, err := asset.NewPgRepository(d.pool).Get(c.Context, c.String("asset"))
			if err != nil {
				return transact.Receipt{}, err
			}
			amount, err := decimalFlag(c, "amount")
			if err != nil {
				return transact.Receipt{}, err
			}
			return tx.CreateDistribution(c.Context, transact.DistributionRequest{
				AssetID:            a.ID,
				DistributorAddress: a.DistributorAddress,
				Amount:             amount,
				Description:        c.String("description"),
			})
		})
}

func claimCommand() *cli.Command {
	return writeCommand("claim", "claim the signer's dividend from one distribution",
		[]cli.Flag{
			assetFlag,
			&cli.Uint64Flag{Name: "index", Usage: "distribution index", Required: true},
		},
		func(c *cli.Context, d *deps, tx *transact.Service) (transact.Receipt, error) {
			a, err := asset.NewPgRepository(d.pool).Get(c.Context, c.String("asset"))
			if err != nil {
				return transact.Receipt{}, err
			}
			return tx.Claim(c.Context, transact.ClaimRequest{
				DistributorAddress: a.DistributorAddress,
				Index:              c.Uint64("index"),
			})
		})
}

func fundSaleCommand() *cli.Command {
	return writeCommand("fund-sale", "verify a deployed sale contract and transfer the share supply into it",
		[]cli.Flag{
			assetFlag,
			&cli.StringFlag{Name: "price", Usage: "expected price per whole share", Required: true},
			&cli.StringFlag{Name: "total-shares", Usage: "expected total share supply", Required: true},
		},
		func(c *cli.Context, d *deps, tx *transact.Service) (transact.Receipt, error) {
			a, err := asset.NewPgRepository(d.pool).Get(c.Context, c.String("asset"))
			if err != nil {
				return transact.Receipt{}, err
			}
			price, err := decimalFlag(c, "price")
			if err != nil {
				return transact.Receipt{}, err
			}
			total, err := decimalFlag(c, "total-shares")
			if err != nil {
				return transact.Receipt{}, err
			}
			return tx.FundSale(c.Context, transact.FundSaleRequest{
				TokenAddress: a.TokenAddress,
				SaleAddress:  a.SaleContractAddress,
				Params:       transact.NewSaleParams(price, total),
			})
		})
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "write a holder's portfolio to an XLSX workbook or Google Sheets",
		Flags: []cli.Flag{
			holderFlag,
			&cli.StringFlag{Name: "xlsx", Usage: "workbook path; Google Sheets is used when omitted"},
		},
		Action: func(c *cli.Context) error {
			d, err := setup(c.Context)
			if err != nil {
				return err
			}
			defer d.Close()

			var writer export.SheetWriter
			if path := c.String("xlsx"); path != "" {
				writer = export.NewXLSXWriter(path)
			} else {
				writer, err = d.sheetWriter(c.Context)
				if err != nil {
					return err
				}
				if writer == nil {
					return errors.New("no destination: pass --xlsx or set GOOGLE_SHEETS_ID")
				}
			}

			assets, err := asset.NewPgRepository(d.pool).List(c.Context)
			if err != nil {
				return err
			}
			snap, err := d.portfolio().Aggregate(c.Context, assets, c.String("holder"))
			if err != nil {
				return err
			}
			if err := export.NewService(writer).Export(c.Context, snap); err != nil {
				return err
			}
			slog.Info("portfolio exported", "holder", snap.Holder, "holdings", snap.TotalHoldings)
			return nil
		},
	}
}
