// Package export writes portfolio snapshots to spreadsheets.
package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/holdings/internal/domain"
)

// Table is one sheet worth of rows; the first row is the header.
type Table struct {
	Name string
	Rows [][]any
}

// SheetWriter writes tables to a spreadsheet destination.
type SheetWriter interface {
	// Write replaces the content of every named sheet.
	Write(ctx context.Context, tables []Table) error
	// AppendLog adds one row to the log sheet, writing header first when the sheet is empty.
	AppendLog(ctx context.Context, sheet string, header, row []any) error
}

// Sheet base names.
const (
	SheetHoldings = "HOLDINGS"
	SheetMonthly  = "MONTHLY"
	SheetSummary  = "SUMMARY"
	SheetLog      = "PORTFOLIO_LOG"
)

var logHeader = []any{
	"Date", "Holder", "Holdings", "Total Invested", "Current Value",
	"Claimable", "Dividends Received", "ROI %",
}

// Service writes snapshots through a SheetWriter.
type Service struct {
	writer SheetWriter
}

// NewService creates a new export Service.
func NewService(writer SheetWriter) *Service {
	return &Service{writer: writer}
}

// Export rewrites the holder's HOLDINGS, MONTHLY and SUMMARY sheets and appends a
// row to the shared portfolio log. Implements worker.AfterSnapshotHook.
func (s *Service) Export(ctx context.Context, snap domain.PortfolioSnapshot) error {
	suffix := holderSuffix(snap.Holder)
	tables := []Table{
		{Name: SheetHoldings + suffix, Rows: buildHoldings(snap)},
		{Name: SheetMonthly + suffix, Rows: buildMonthly(snap)},
		{Name: SheetSummary + suffix, Rows: buildSummary(snap)},
	}
	if err := s.writer.Write(ctx, tables); err != nil {
		return fmt.Errorf("writing sheets for %s: %w", snap.Holder, err)
	}
	if err := s.writer.AppendLog(ctx, SheetLog, logHeader, buildLogRow(snap)); err != nil {
		return fmt.Errorf("appending portfolio log for %s: %w", snap.Holder, err)
	}
	return nil
}

// holderSuffix keeps sheet names short and unique per holder.
func holderSuffix(holder string) string {
	h := strings.TrimPrefix(strings.ToLower(holder), "0x")
	if len(h) > 8 {
		h = h[:8]
	}
	if h == "" {
		return ""
	}
	return "_" + h
}

// buildHoldings builds the HOLDINGS sheet: one row per holding and a totals row.
func buildHoldings(snap domain.PortfolioSnapshot) [][]any {
	data := make([][]any, 0, len(snap.Holdings)+2)
	data = append(data, []any{
		"Asset", "Name", "Location", "Shares", "Total Shares", "Ownership %",
		"Price", "Invested", "Current Value", "Claimable", "Received",
		"Gain %", "Expected Yield %", "Status",
	})

	for _, h := range snap.Holdings {
		data = append(data, []any{
			h.AssetID, h.AssetName, h.Location,
			toFloat(h.SharesOwned), toFloat(h.TotalShares), toFloat(h.OwnershipPercentage),
			toFloat(h.PricePerShare), toFloat(h.InvestedAmount), toFloat(h.CurrentValue),
			toFloat(h.ClaimableDividends), toFloat(h.TotalDividendsReceived),
			toFloat(h.GainLoss.Percentage), toFloat(h.ExpectedYield), string(h.Status),
		})
	}

	data = append(data, []any{
		"TOTAL", "", "", nil, nil, nil, nil,
		toFloat(snap.TotalInvested), toFloat(snap.CurrentValue),
		toFloat(snap.TotalProfit), toFloat(snap.TotalDividendsReceived),
		toFloat(snap.ROI), nil, "",
	})
	return data
}

// buildMonthly builds the MONTHLY sheet from the monthly profit buckets.
func buildMonthly(snap domain.PortfolioSnapshot) [][]any {
	data := [][]any{{"Month", "Label", "Amount"}}
	for _, m := range snap.MonthlyProfit {
		data = append(data, []any{m.Month, m.Label, toFloat(m.Amount)})
	}
	return data
}

// buildSummary builds the SUMMARY sheet as key/value rows.
func buildSummary(snap domain.PortfolioSnapshot) [][]any {
	data := [][]any{
		{"Metric", "Value"},
		{"Holder", snap.Holder},
		{"Generated", snap.GeneratedAt.UTC().Format(time.RFC3339)},
		{"Holdings", snap.TotalHoldings},
		{"Active Properties", snap.ActiveProperties},
		{"Total Invested", toFloat(snap.TotalInvested)},
		{"Current Value", toFloat(snap.CurrentValue)},
		{"Claimable Dividends", toFloat(snap.TotalProfit)},
		{"Dividends Received", toFloat(snap.TotalDividendsReceived)},
		{"ROI %", toFloat(snap.ROI)},
		{"Total Return", toFloat(snap.TotalReturn.Amount)},
		{"Monthly Change %", toFloat(snap.MonthlyChange)},
	}
	if snap.Fiat != nil {
		cur := strings.ToUpper(snap.Fiat.Currency)
		data = append(data,
			[]any{"Quote " + cur, toFloat(snap.Fiat.Price)},
			[]any{"Total Invested " + cur, toFloat(snap.Fiat.TotalInvested)},
			[]any{"Current Value " + cur, toFloat(snap.Fiat.CurrentValue)},
			[]any{"Dividends Received " + cur, toFloat(snap.Fiat.TotalDividendsReceived)},
		)
	}
	if len(snap.Skipped) > 0 {
		data = append(data, []any{"Skipped Assets", strings.Join(lo.Map(snap.Skipped, func(s domain.SkippedAsset, _ int) string {
			return s.AssetID
		}), ", ")})
	}
	return data
}

func buildLogRow(snap domain.PortfolioSnapshot) []any {
	return []any{
		snap.GeneratedAt.UTC().Format("02.01.2006"),
		snap.Holder,
		snap.TotalHoldings,
		toFloat(snap.TotalInvested),
		toFloat(snap.CurrentValue),
		toFloat(snap.TotalProfit),
		toFloat(snap.TotalDividendsReceived),
		toFloat(snap.ROI),
	}
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
