package main

import (
	"context"
	"embed"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "holdings",
		Usage: "holdings and dividend reconciliation for tokenized real-world assets",
		Commands: []*cli.Command{
			serveCommand(),
			portfolioCommand(),
			claimsCommand(),
			buyCommand(),
			distributeCommand(),
			claimCommand(),
			fundSaleCommand(),
			exportCommand(),
		},
	}
}
