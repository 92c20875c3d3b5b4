package transact

import (
	"context"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/mtlprog/holdings/internal/domain"
	"github.com/mtlprog/holdings/internal/fixedpoint"
)

// PurchaseRequest buys Shares shares (up to 18 decimal places) from a sale contract.
type PurchaseRequest struct {
	SaleAddress string
	Shares      decimal.Decimal
	Holder      string // optional, defaults to the signer
}

// Purchase validates a share purchase against the sale contract and the buyer's
// balance, then submits buyShares with the exact cost attached.
func (s *Service) Purchase(ctx context.Context, req PurchaseRequest) (Receipt, error) {
	if err := s.connected(); err != nil {
		return Receipt{}, err
	}
	if !req.Shares.IsPositive() {
		return Receipt{}, domain.Reject(domain.ErrInvalidAmount, "shares must be positive, got %s", req.Shares)
	}
	sharesRaw := fixedpoint.ToRaw(req.Shares, fixedpoint.ShareDecimals)
	if sharesRaw.Sign() <= 0 {
		return Receipt{}, domain.Reject(domain.ErrInvalidAmount, "%s shares is below one base unit", req.Shares)
	}
	if !fixedpoint.ToDecimal(sharesRaw, fixedpoint.ShareDecimals).Equal(req.Shares) {
		return Receipt{}, domain.Reject(domain.ErrInvalidAmount, "shares %s has more than %d decimal places", req.Shares, fixedpoint.ShareDecimals)
	}
	sale, err := contractAddress("sale", req.SaleAddress)
	if err != nil {
		return Receipt{}, err
	}
	buyer, err := s.account(req.Holder)
	if err != nil {
		return Receipt{}, err
	}

	var (
		state   *domain.SaleState
		balance *big.Int
		g       errgroup.Group
	)
	g.Go(func() (err error) {
		state, err = s.sales.Read(ctx, sale)
		return err
	})
	g.Go(func() (err error) {
		balance, err = s.reader.SettlementBalance(ctx, buyer)
		return err
	})
	if err := g.Wait(); err != nil {
		return Receipt{}, readErr("sale and buyer state", err)
	}

	if !state.Consistent() {
		return Receipt{}, &domain.IntegrityError{Field: "sharesSold", Want: state.TotalSharesRaw, Got: state.SharesSoldRaw}
	}
	if !state.SaleActive {
		return Receipt{}, domain.Reject(domain.ErrSaleInactive, "sale %s is closed", sale.Hex())
	}
	if available := state.Available(); req.Shares.GreaterThan(available) {
		return Receipt{}, domain.Reject(domain.ErrInsufficientBalance,
			"requested %s shares, only %s available", req.Shares, available)
	}

	cost := fixedpoint.PurchaseCost(sharesRaw, state.PricePerShareRaw)
	if balance.Cmp(cost) < 0 {
		return Receipt{}, domain.Reject(domain.ErrInsufficientBalance, "balance %s is below cost %s",
			fixedpoint.ToDecimal(balance, fixedpoint.SettlementDecimals),
			fixedpoint.ToDecimal(cost, fixedpoint.SettlementDecimals))
	}

	hash, err := s.execute(ctx, KindPurchase, func(ctx context.Context) (common.Hash, error) {
		return s.writer.BuyShares(ctx, sale, sharesRaw, cost)
	})
	if err != nil {
		return Receipt{}, err
	}

	amount := fixedpoint.ToDecimal(cost, fixedpoint.SettlementDecimals)
	slog.Info("shares purchased", "sale", sale.Hex(), "shares", req.Shares, "cost", amount, "tx", hash)
	return Receipt{TxHash: hash, Kind: KindPurchase, Amount: amount}, nil
}
