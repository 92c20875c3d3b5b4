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

// SaleParams are the intended constructor parameters of a sale contract.
type SaleParams struct {
	PricePerShareRaw *big.Int
	TotalSharesRaw   *big.Int
}

// NewSaleParams converts a decimal price per whole share and share supply into raw parameters.
func NewSaleParams(pricePerShare, totalShares decimal.Decimal) SaleParams {
	return SaleParams{
		PricePerShareRaw: fixedpoint.ToRaw(pricePerShare, fixedpoint.PriceDecimals),
		TotalSharesRaw:   fixedpoint.ToRaw(totalShares, fixedpoint.ShareDecimals),
	}
}

// VerifySale re-reads the deployed sale parameters and requires exact equality with
// the intended ones. A mismatch is returned as *domain.IntegrityError and must not be retried.
func (s *Service) VerifySale(ctx context.Context, sale common.Address, want SaleParams) error {
	if s.reader == nil {
		return domain.ErrNotConnected
	}

	var (
		price, total *big.Int
		g            errgroup.Group
	)
	g.Go(func() (err error) {
		price, err = s.reader.PricePerShare(ctx, sale)
		return err
	})
	g.Go(func() (err error) {
		total, err = s.reader.TotalShares(ctx, sale)
		return err
	})
	if err := g.Wait(); err != nil {
		return readErr("deployed sale parameters", err)
	}

	if want.PricePerShareRaw == nil || price.Cmp(want.PricePerShareRaw) != 0 {
		return &domain.IntegrityError{Field: "pricePerShare", Want: want.PricePerShareRaw, Got: price}
	}
	if want.TotalSharesRaw == nil || total.Cmp(want.TotalSharesRaw) != 0 {
		return &domain.IntegrityError{Field: "totalShares", Want: want.TotalSharesRaw, Got: total}
	}
	return nil
}

// FundSaleRequest moves the full share supply into a verified sale contract.
type FundSaleRequest struct {
	TokenAddress string
	SaleAddress  string
	Params       SaleParams
}

// FundSale verifies the sale contract and then transfers TotalSharesRaw tokens into it.
// Nothing is transferred when verification fails.
func (s *Service) FundSale(ctx context.Context, req FundSaleRequest) (Receipt, error) {
	if err := s.connected(); err != nil {
		return Receipt{}, err
	}
	token, err := contractAddress("token", req.TokenAddress)
	if err != nil {
		return Receipt{}, err
	}
	sale, err := contractAddress("sale", req.SaleAddress)
	if err != nil {
		return Receipt{}, err
	}
	if req.Params.TotalSharesRaw == nil || req.Params.TotalSharesRaw.Sign() <= 0 {
		return Receipt{}, domain.Reject(domain.ErrInvalidAmount, "total shares must be positive")
	}

	if err := s.VerifySale(ctx, sale, req.Params); err != nil {
		slog.Error("sale verification failed, not funding", "sale", sale.Hex(), "error", err)
		return Receipt{}, err
	}

	balance, err := s.reader.BalanceOf(ctx, token, s.writer.From())
	if err != nil {
		return Receipt{}, readErr("signer token balance", err)
	}
	if balance.Cmp(req.Params.TotalSharesRaw) < 0 {
		return Receipt{}, domain.Reject(domain.ErrInsufficientBalance, "signer holds %s shares, sale needs %s",
			fixedpoint.ToDecimal(balance, fixedpoint.ShareDecimals),
			fixedpoint.ToDecimal(req.Params.TotalSharesRaw, fixedpoint.ShareDecimals))
	}

	hash, err := s.execute(ctx, KindFundSale, func(ctx context.Context) (common.Hash, error) {
		return s.writer.Transfer(ctx, token, sale, req.Params.TotalSharesRaw)
	})
	if err != nil {
		return Receipt{}, err
	}

	amount := fixedpoint.ToDecimal(req.Params.TotalSharesRaw, fixedpoint.ShareDecimals)
	slog.Info("sale funded", "token", token.Hex(), "sale", sale.Hex(), "shares", amount, "tx", hash)
	return Receipt{TxHash: hash, Kind: KindFundSale, Amount: amount}, nil
}
