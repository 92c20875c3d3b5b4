package portfolio

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/holdings/internal/domain"
	"github.com/mtlprog/holdings/internal/ledger/ledgertest"
)

var holder = common.HexToAddress("0x0000000000000000000000000000000000000b01")

func addr(n int64) common.Address {
	return common.BigToAddress(big.NewInt(n))
}

func e18(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000_000))
}

func e8(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(100_000_000))
}

type fixture struct {
	ledger *ledgertest.Ledger
	assets []domain.Asset
}

// addAsset registers an asset at contract addresses base+1..base+3 with the given position.
func (f *fixture) addAsset(id string, base int64, owned, price, total int64, active bool) domain.Asset {
	a := domain.Asset{
		ID:                  id,
		Name:                "Asset " + id,
		TokenAddress:        addr(base + 1).Hex(),
		SaleContractAddress: addr(base + 2).Hex(),
		DistributorAddress:  addr(base + 3).Hex(),
	}
	f.ledger.SetBalance(addr(base+1), holder, e18(owned))
	f.ledger.SetSale(addr(base+2), ledgertest.Sale{
		PricePerShare: e18(price),
		TotalShares:   e18(total),
		SharesSold:    e18(owned),
		Active:        active,
	})
	f.assets = append(f.assets, a)
	return a
}

func newFixture() *fixture {
	return &fixture{ledger: ledgertest.New(holder)}
}

type mockHistory struct {
	records map[string][]domain.DistributionRecord
	fail    map[string]bool
}

func (m *mockHistory) ListByAsset(_ context.Context, assetID string) ([]domain.DistributionRecord, error) {
	if m.fail[assetID] {
		return nil, errors.New("history unavailable")
	}
	return m.records[assetID], nil
}

var fixedNow = time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func TestAggregateNotConnected(t *testing.T) {
	s := NewService(nil)
	_, err := s.Aggregate(context.Background(), nil, holder.Hex())
	if !errors.Is(err, domain.ErrNotConnected) {
		t.Errorf("error = %v, want ErrNotConnected", err)
	}
}

func TestAggregateInvalidHolder(t *testing.T) {
	f := newFixture()
	f.addAsset("a", 100, 10, 1, 100, true)

	_, err := NewService(f.ledger).Aggregate(context.Background(), f.assets, "nope")
	if !errors.Is(err, domain.ErrInvalidHolder) {
		t.Fatalf("error = %v, want ErrInvalidHolder", err)
	}
	if f.ledger.Calls("BalanceOf") != 0 {
		t.Error("ledger read before holder validation")
	}
}

func TestAggregatePartialAssetFailure(t *testing.T) {
	f := newFixture()
	f.addAsset("good", 100, 10, 2, 100, true)
	bad := f.addAsset("bad", 200, 5, 1, 100, true)
	f.ledger.Fail("TotalShares", common.HexToAddress(bad.SaleContractAddress))

	snap, err := NewService(f.ledger, WithClock(clock)).Aggregate(context.Background(), f.assets, holder.Hex())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if snap.TotalHoldings != 1 {
		t.Fatalf("TotalHoldings = %d, want 1", snap.TotalHoldings)
	}
	if snap.Holdings[0].AssetID != "good" {
		t.Errorf("holding = %s, want good", snap.Holdings[0].AssetID)
	}
	if len(snap.Skipped) != 1 || snap.Skipped[0].AssetID != "bad" {
		t.Errorf("Skipped = %+v, want bad", snap.Skipped)
	}
	if len(snap.Warnings) != 1 {
		t.Errorf("Warnings = %v, want one", snap.Warnings)
	}
}

func TestAggregateSkipsUntokenizedAndUnownedAssets(t *testing.T) {
	f := newFixture()
	f.addAsset("owned", 100, 3, 1, 100, true)
	f.addAsset("unowned", 200, 0, 1, 100, true)
	f.assets = append(f.assets, domain.Asset{ID: "draft", Name: "Draft"})

	snap, err := NewService(f.ledger, WithClock(clock)).Aggregate(context.Background(), f.assets, holder.Hex())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if snap.TotalHoldings != 1 {
		t.Errorf("TotalHoldings = %d, want 1", snap.TotalHoldings)
	}
	if len(snap.Skipped) != 1 || snap.Skipped[0].AssetID != "draft" {
		t.Errorf("Skipped = %+v, want draft", snap.Skipped)
	}
	if len(snap.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", snap.Warnings)
	}
}

func TestAggregateTotals(t *testing.T) {
	f := newFixture()
	a := f.addAsset("a", 100, 100, 2, 1000, true)
	f.addAsset("b", 200, 7, 3, 100, false)
	f.ledger.AddDistribution(common.HexToAddress(a.DistributorAddress), map[common.Address]*big.Int{holder: e8(4)})

	history := &mockHistory{records: map[string][]domain.DistributionRecord{
		"a": {
			{AssetID: "a", TotalAmount: decimal.NewFromInt(1000), ExecutedAt: time.Date(2024, time.May, 3, 0, 0, 0, 0, time.UTC)},
			{AssetID: "a", TotalAmount: decimal.NewFromInt(500), ExecutedAt: time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)},
			{AssetID: "a", TotalAmount: decimal.NewFromInt(9000), ExecutedAt: time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)},
		},
	}}

	snap, err := NewService(f.ledger, WithHistory(history), WithClock(clock)).
		Aggregate(context.Background(), f.assets, holder.Hex())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	sum := decimal.Zero
	for _, h := range snap.Holdings {
		sum = sum.Add(h.InvestedAmount)
	}
	if !snap.TotalInvested.Equal(sum) {
		t.Errorf("TotalInvested = %s, sum of holdings = %s", snap.TotalInvested, sum)
	}
	if !snap.TotalInvested.Equal(decimal.NewFromInt(221)) {
		t.Errorf("TotalInvested = %s, want 221", snap.TotalInvested)
	}
	if !snap.TotalProfit.Equal(decimal.NewFromInt(4)) {
		t.Errorf("TotalProfit = %s, want 4", snap.TotalProfit)
	}

	// Asset a: 10% of 1000 + 500 + 9000.
	if !snap.Holdings[0].TotalDividendsReceived.Equal(decimal.NewFromInt(1050)) {
		t.Errorf("a received = %s, want 1050", snap.Holdings[0].TotalDividendsReceived)
	}
	if !snap.Holdings[0].GainLoss.Percentage.Equal(decimal.NewFromInt(525)) {
		t.Errorf("a gain percentage = %s, want 525", snap.Holdings[0].GainLoss.Percentage)
	}
	if !snap.TotalDividendsReceived.Equal(decimal.NewFromInt(1050)) {
		t.Errorf("TotalDividendsReceived = %s, want 1050", snap.TotalDividendsReceived)
	}
	wantROI := decimal.NewFromInt(1050).Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(221))
	if !snap.ROI.Equal(wantROI) {
		t.Errorf("ROI = %s, want %s", snap.ROI, wantROI)
	}
	if snap.ActiveProperties != 1 {
		t.Errorf("ActiveProperties = %d, want 1", snap.ActiveProperties)
	}

	if len(snap.MonthlyProfit) != 5 {
		t.Fatalf("MonthlyProfit len = %d, want 5", len(snap.MonthlyProfit))
	}
	if snap.MonthlyProfit[0].Month != "2024-02" || snap.MonthlyProfit[4].Month != "2024-06" {
		t.Errorf("MonthlyProfit window = %s..%s, want 2024-02..2024-06",
			snap.MonthlyProfit[0].Month, snap.MonthlyProfit[4].Month)
	}
	if !snap.MonthlyProfit[3].Amount.Equal(decimal.NewFromInt(100)) || snap.MonthlyProfit[3].Label != "May" {
		t.Errorf("May bucket = %+v, want 100", snap.MonthlyProfit[3])
	}
	if !snap.MonthlyProfit[4].Amount.Equal(decimal.NewFromInt(50)) {
		t.Errorf("June bucket = %s, want 50", snap.MonthlyProfit[4].Amount)
	}
	if !snap.MonthlyChange.Equal(decimal.NewFromInt(-50)) {
		t.Errorf("MonthlyChange = %s, want -50", snap.MonthlyChange)
	}

	if len(snap.InvestmentHistory) != 30 || !snap.InvestmentHistoryApproximate {
		t.Fatalf("InvestmentHistory len = %d approximate = %v", len(snap.InvestmentHistory), snap.InvestmentHistoryApproximate)
	}
	if !snap.InvestmentHistory[29].Value.Equal(snap.TotalInvested) {
		t.Errorf("last history value = %s, want %s", snap.InvestmentHistory[29].Value, snap.TotalInvested)
	}
	if !snap.InvestmentHistory[0].Value.Equal(snap.TotalInvested.Mul(decimal.RequireFromString("0.7"))) {
		t.Errorf("first history value = %s", snap.InvestmentHistory[0].Value)
	}
}

func TestAggregateHistoryFailureIsIsolated(t *testing.T) {
	f := newFixture()
	f.addAsset("a", 100, 10, 1, 100, true)
	f.addAsset("b", 200, 10, 1, 100, true)
	history := &mockHistory{
		records: map[string][]domain.DistributionRecord{
			"b": {{AssetID: "b", TotalAmount: decimal.NewFromInt(50), ExecutedAt: fixedNow}},
		},
		fail: map[string]bool{"a": true},
	}

	snap, err := NewService(f.ledger, WithHistory(history), WithClock(clock)).
		Aggregate(context.Background(), f.assets, holder.Hex())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if snap.TotalHoldings != 2 {
		t.Fatalf("TotalHoldings = %d, want 2", snap.TotalHoldings)
	}
	if !snap.TotalDividendsReceived.Equal(decimal.NewFromInt(5)) {
		t.Errorf("TotalDividendsReceived = %s, want 5", snap.TotalDividendsReceived)
	}
	if len(snap.Warnings) != 1 {
		t.Errorf("Warnings = %v, want one", snap.Warnings)
	}
}

func TestAggregateEmptyPortfolio(t *testing.T) {
	f := newFixture()
	snap, err := NewService(f.ledger, WithClock(clock)).Aggregate(context.Background(), nil, holder.Hex())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if !snap.ROI.IsZero() {
		t.Errorf("ROI = %s, want 0", snap.ROI)
	}
	if snap.TotalHoldings != 0 || snap.Holdings == nil {
		t.Errorf("Holdings = %v, want empty non-nil", snap.Holdings)
	}
	if !snap.MonthlyChange.IsZero() {
		t.Errorf("MonthlyChange = %s, want 0", snap.MonthlyChange)
	}
}

func TestHoldings(t *testing.T) {
	f := newFixture()
	f.addAsset("a", 100, 10, 1, 100, true)

	holdings, skipped, err := NewService(f.ledger).Holdings(context.Background(), f.assets, holder.Hex())
	if err != nil {
		t.Fatalf("Holdings: %v", err)
	}
	if len(holdings) != 1 || len(skipped) != 0 {
		t.Errorf("holdings = %d skipped = %d, want 1 and 0", len(holdings), len(skipped))
	}
}

func TestMonthlyChange(t *testing.T) {
	tests := []struct {
		name           string
		previous, last int64
		want           int64
	}{
		{"both zero", 0, 0, 0},
		{"from zero", 0, 30, 100},
		{"doubled", 10, 20, 100},
		{"dropped to zero", 10, 0, -100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := monthlyChange([]domain.MonthlyProfit{
				{Amount: decimal.NewFromInt(tt.previous)},
				{Amount: decimal.NewFromInt(tt.last)},
			})
			if !got.Equal(decimal.NewFromInt(tt.want)) {
				t.Errorf("monthlyChange = %s, want %d", got, tt.want)
			}
		})
	}
}

func TestMonthlyProfitAcrossYearBoundary(t *testing.T) {
	now := time.Date(2025, time.February, 10, 0, 0, 0, 0, time.UTC)
	got := monthlyProfit([]payout{
		{amount: decimal.NewFromInt(7), recorded: domain.DistributionRecord{ExecutedAt: time.Date(2024, time.October, 31, 23, 0, 0, 0, time.UTC)}},
	}, now)

	want := []string{"2024-10", "2024-11", "2024-12", "2025-01", "2025-02"}
	for i, w := range want {
		if got[i].Month != w {
			t.Errorf("bucket %d = %s, want %s", i, got[i].Month, w)
		}
	}
	if !got[0].Amount.Equal(decimal.NewFromInt(7)) {
		t.Errorf("October = %s, want 7", got[0].Amount)
	}
}
