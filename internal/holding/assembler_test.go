package holding

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/holdings/internal/domain"
	"github.com/mtlprog/holdings/internal/ledger/ledgertest"
)

var (
	token       = common.HexToAddress("0x0000000000000000000000000000000000000a01")
	sale        = common.HexToAddress("0x0000000000000000000000000000000000000a02")
	distributor = common.HexToAddress("0x0000000000000000000000000000000000000a03")
	holder      = common.HexToAddress("0x0000000000000000000000000000000000000b01")
)

func e18(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000_000))
}

func e8(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(100_000_000))
}

func testAsset() domain.Asset {
	return domain.Asset{
		ID:                  "villa-1",
		Name:                "Villa One",
		TokenAddress:        token.Hex(),
		SaleContractAddress: sale.Hex(),
		DistributorAddress:  distributor.Hex(),
		ExpectedYield:       decimal.NewFromInt(8),
	}
}

func newLedger() *ledgertest.Ledger {
	l := ledgertest.New(holder)
	l.SetSale(sale, ledgertest.Sale{
		PricePerShare: e18(2),
		TotalShares:   e18(1000),
		SharesSold:    e18(300),
		Active:        true,
	})
	return l
}

func TestAssemble(t *testing.T) {
	l := newLedger()
	l.SetBalance(token, holder, e18(100))
	l.AddDistribution(distributor, map[common.Address]*big.Int{holder: e8(100)})

	h, err := NewAssembler(l, 4).Assemble(context.Background(), testAsset(), holder)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if h == nil {
		t.Fatal("holding is nil")
	}

	if !h.SharesOwned.Equal(decimal.NewFromInt(100)) {
		t.Errorf("SharesOwned = %s, want 100", h.SharesOwned)
	}
	if !h.InvestedAmount.Equal(decimal.NewFromInt(200)) {
		t.Errorf("InvestedAmount = %s, want 200", h.InvestedAmount)
	}
	if !h.CurrentValue.Equal(h.InvestedAmount) {
		t.Errorf("CurrentValue = %s, want %s", h.CurrentValue, h.InvestedAmount)
	}
	if !h.ClaimableDividends.Equal(decimal.NewFromInt(100)) {
		t.Errorf("ClaimableDividends = %s, want 100", h.ClaimableDividends)
	}
	if !h.TotalDividendsReceived.IsZero() {
		t.Errorf("TotalDividendsReceived = %s, want 0", h.TotalDividendsReceived)
	}
	if !h.OwnershipPercentage.Equal(decimal.NewFromInt(10)) {
		t.Errorf("OwnershipPercentage = %s, want 10", h.OwnershipPercentage)
	}
	if !h.GainLoss.Percentage.Equal(decimal.NewFromInt(50)) || !h.GainLoss.IsGain {
		t.Errorf("GainLoss = %+v, want 50%% gain", h.GainLoss)
	}
	if h.Status != domain.HoldingStatusActive {
		t.Errorf("Status = %s, want active", h.Status)
	}
}

func TestAssembleZeroBalanceSkipsOtherReads(t *testing.T) {
	l := newLedger()
	l.AddDistribution(distributor, map[common.Address]*big.Int{holder: e8(1)})

	h, err := NewAssembler(l, 4).Assemble(context.Background(), testAsset(), holder)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if h != nil {
		t.Fatalf("holding = %+v, want nil", h)
	}

	for _, method := range []string{
		"PricePerShare", "TotalShares", "SharesSold", "SaleActive",
		"DistributionCount", "HasClaimed", "ClaimableDividend",
	} {
		if n := l.Calls(method); n != 0 {
			t.Errorf("%s called %d times, want 0", method, n)
		}
	}
}

func TestAssembleIneligibleAsset(t *testing.T) {
	l := newLedger()
	asset := testAsset()
	asset.DistributorAddress = ""

	_, err := NewAssembler(l, 4).Assemble(context.Background(), asset, holder)
	if !errors.Is(err, domain.ErrAssetIneligible) {
		t.Fatalf("error = %v, want ErrAssetIneligible", err)
	}
	if l.Calls("BalanceOf") != 0 {
		t.Error("balance read for ineligible asset")
	}

	asset = testAsset()
	asset.TokenAddress = "0xnot-hex"
	if _, err := NewAssembler(l, 4).Assemble(context.Background(), asset, holder); !errors.Is(err, domain.ErrAssetIneligible) {
		t.Errorf("error = %v, want ErrAssetIneligible", err)
	}
}

func TestAssembleSaleFailure(t *testing.T) {
	l := newLedger()
	l.SetBalance(token, holder, e18(1))
	l.Fail("PricePerShare", sale)

	h, err := NewAssembler(l, 4).Assemble(context.Background(), testAsset(), holder)
	if !errors.Is(err, domain.ErrReadFailure) {
		t.Fatalf("error = %v, want ErrReadFailure", err)
	}
	if h != nil {
		t.Errorf("holding = %+v, want nil", h)
	}
}

func TestAssembleSoldOut(t *testing.T) {
	l := newLedger()
	l.SetSale(sale, ledgertest.Sale{
		PricePerShare: e18(2),
		TotalShares:   e18(1000),
		SharesSold:    e18(1000),
		Active:        false,
	})
	l.SetBalance(token, holder, e18(5))

	h, err := NewAssembler(l, 4).Assemble(context.Background(), testAsset(), holder)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if h.Status != domain.HoldingStatusSold {
		t.Errorf("Status = %s, want sold", h.Status)
	}
}
