package export

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/mtlprog/holdings/internal/domain"
)

const testHolder = "0xAbCdEf0123456789aBCdEf0123456789abCDef01"

func testSnapshot() domain.PortfolioSnapshot {
	return domain.PortfolioSnapshot{
		Holder:      testHolder,
		GeneratedAt: time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC),
		Holdings: []domain.Holding{
			{
				AssetID:            "villa-1",
				AssetName:          "Villa One",
				SharesOwned:        decimal.NewFromInt(10),
				TotalShares:        decimal.NewFromInt(100),
				PricePerShare:      decimal.NewFromInt(50),
				InvestedAmount:     decimal.NewFromInt(500),
				CurrentValue:       decimal.NewFromInt(500),
				ClaimableDividends: decimal.NewFromInt(7),
				Status:             domain.HoldingStatusActive,
			},
		},
		TotalInvested:          decimal.NewFromInt(500),
		CurrentValue:           decimal.NewFromInt(500),
		TotalProfit:            decimal.NewFromInt(7),
		TotalDividendsReceived: decimal.NewFromInt(3),
		ROI:                    decimal.NewFromInt(2),
		TotalHoldings:          1,
		ActiveProperties:       1,
		MonthlyProfit: []domain.MonthlyProfit{
			{Month: "2026-02", Label: "Feb", Amount: decimal.NewFromInt(1)},
			{Month: "2026-03", Label: "Mar", Amount: decimal.NewFromInt(2)},
		},
	}
}

type mockWriter struct {
	tables  []Table
	logs    [][]any
	header  []any
	sheet   string
	failErr error
}

func (m *mockWriter) Write(_ context.Context, tables []Table) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.tables = tables
	return nil
}

func (m *mockWriter) AppendLog(_ context.Context, sheet string, header, row []any) error {
	m.sheet = sheet
	m.header = header
	m.logs = append(m.logs, row)
	return nil
}

func TestHolderSuffix(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{testHolder, "_abcdef01"},
		{"0x12", "_12"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := holderSuffix(tt.in); got != tt.want {
			t.Errorf("holderSuffix(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildHoldings(t *testing.T) {
	rows := buildHoldings(testSnapshot())
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 1 holding + totals", len(rows))
	}
	if rows[1][0] != "villa-1" {
		t.Errorf("asset cell = %v, want villa-1", rows[1][0])
	}
	if rows[1][3] != 10.0 {
		t.Errorf("shares cell = %v, want 10", rows[1][3])
	}
	if rows[2][0] != "TOTAL" || rows[2][7] != 500.0 {
		t.Errorf("totals row = %v", rows[2])
	}
	for i, row := range rows {
		if len(row) != len(rows[0]) {
			t.Errorf("row %d has %d cells, header has %d", i, len(row), len(rows[0]))
		}
	}
}

func TestBuildMonthly(t *testing.T) {
	rows := buildMonthly(testSnapshot())
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[2][0] != "2026-03" || rows[2][1] != "Mar" || rows[2][2] != 2.0 {
		t.Errorf("row = %v", rows[2])
	}
}

func TestBuildSummaryFiat(t *testing.T) {
	snap := testSnapshot()
	without := buildSummary(snap)

	snap.Fiat = &domain.FiatValuation{Currency: "eur", Price: decimal.RequireFromString("0.9")}
	snap.Skipped = []domain.SkippedAsset{{AssetID: "a"}, {AssetID: "b"}}
	with := buildSummary(snap)

	if len(with) != len(without)+5 {
		t.Fatalf("summary rows = %d, want %d", len(with), len(without)+5)
	}
	if with[len(without)][0] != "Quote EUR" {
		t.Errorf("fiat row = %v", with[len(without)])
	}
	if last := with[len(with)-1]; last[1] != "a, b" {
		t.Errorf("skipped row = %v", last)
	}
}

func TestServiceExport(t *testing.T) {
	w := &mockWriter{}
	svc := NewService(w)

	if err := svc.Export(context.Background(), testSnapshot()); err != nil {
		t.Fatalf("Export: %v", err)
	}

	want := []string{"HOLDINGS_abcdef01", "MONTHLY_abcdef01", "SUMMARY_abcdef01"}
	if len(w.tables) != len(want) {
		t.Fatalf("tables = %d, want %d", len(w.tables), len(want))
	}
	for i, name := range want {
		if w.tables[i].Name != name {
			t.Errorf("table %d = %q, want %q", i, w.tables[i].Name, name)
		}
	}
	if w.sheet != SheetLog || len(w.logs) != 1 {
		t.Fatalf("log sheet = %q rows = %d", w.sheet, len(w.logs))
	}
	if w.logs[0][0] != "15.03.2026" {
		t.Errorf("log date = %v", w.logs[0][0])
	}
	if len(w.logs[0]) != len(w.header) {
		t.Errorf("log row has %d cells, header has %d", len(w.logs[0]), len(w.header))
	}
}

func TestServiceExportWriteError(t *testing.T) {
	boom := errors.New("boom")
	w := &mockWriter{failErr: boom}

	err := NewService(w).Export(context.Background(), testSnapshot())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}
	if len(w.logs) != 0 {
		t.Error("log row appended after failed write")
	}
}

func TestXLSXWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portfolio.xlsx")
	w := NewXLSXWriter(path)
	svc := NewService(w)
	ctx := context.Background()

	if err := svc.Export(ctx, testSnapshot()); err != nil {
		t.Fatalf("first Export: %v", err)
	}
	if err := svc.Export(ctx, testSnapshot()); err != nil {
		t.Fatalf("second Export: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()

	holdings, err := f.GetRows("HOLDINGS_abcdef01")
	if err != nil {
		t.Fatalf("GetRows holdings: %v", err)
	}
	if len(holdings) != 3 {
		t.Errorf("holdings rows = %d, want 3", len(holdings))
	}
	if holdings[1][0] != "villa-1" {
		t.Errorf("asset = %q", holdings[1][0])
	}

	log, err := f.GetRows(SheetLog)
	if err != nil {
		t.Fatalf("GetRows log: %v", err)
	}
	if len(log) != 3 {
		t.Errorf("log rows = %d, want header + 2", len(log))
	}
	if log[0][0] != "Date" {
		t.Errorf("log header = %v", log[0])
	}

	if idx, _ := f.GetSheetIndex("Sheet1"); idx >= 0 {
		t.Error("default sheet left in workbook")
	}
}
