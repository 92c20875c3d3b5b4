package main

import (
	"bytes"
	"io/fs"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/holdings/internal/database"
)

func TestAppCommands(t *testing.T) {
	app := newApp()

	want := []string{"serve", "portfolio", "claims", "buy", "distribute", "claim", "fund-sale", "export"}
	for _, name := range want {
		if app.Command(name) == nil {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestRequiredFlagsRejectedBeforeAction(t *testing.T) {
	tests := [][]string{
		{"holdings", "portfolio"},
		{"holdings", "buy", "--asset", "villa-1"},
		{"holdings", "claim", "--asset", "villa-1"},
		{"holdings", "fund-sale", "--asset", "villa-1", "--price", "100"},
	}
	for _, args := range tests {
		app := newApp()
		var out bytes.Buffer
		app.Writer = &out
		app.ErrWriter = &out

		err := app.Run(args)
		if err == nil || !strings.Contains(err.Error(), "Required flag") {
			t.Errorf("%v: err = %v, want required flag error", args, err)
		}
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		t.Fatalf("fs.Sub: %v", err)
	}

	pending, err := database.PendingMigrations(sub, map[string]bool{})
	if err != nil {
		t.Fatalf("PendingMigrations: %v", err)
	}
	if len(pending) != 4 {
		t.Fatalf("migrations = %v, want 4", pending)
	}
	if pending[0] != "001_assets.up.sql" {
		t.Errorf("first migration = %q", pending[0])
	}
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := printJSON(&buf, map[string]decimal.Decimal{"amount": decimal.RequireFromString("1.5")}); err != nil {
		t.Fatalf("printJSON: %v", err)
	}
	if got := buf.String(); got != "{\n  \"amount\": \"1.5\"\n}\n" {
		t.Errorf("output = %q", got)
	}
}
