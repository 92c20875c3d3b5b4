// Package resolver reads token balances and sale state from the ledger and
// converts them into decimal amounts.
package resolver

import (
	"context"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/holdings/internal/fixedpoint"
	"github.com/mtlprog/holdings/internal/ledger"
)

// Balance is a holder's token balance.
type Balance struct {
	Raw      *big.Int
	Decimals int32
	Amount   decimal.Decimal
}

// IsZero reports whether the holder owns nothing.
func (b Balance) IsZero() bool {
	return b.Raw == nil || b.Raw.Sign() <= 0
}

// BalanceResolver reads token balances. Token decimals are cached once read.
type BalanceResolver struct {
	tokens   ledger.TokenReader
	decimals *decimalsCache
}

func NewBalanceResolver(tokens ledger.TokenReader) *BalanceResolver {
	return &BalanceResolver{tokens: tokens, decimals: newDecimalsCache()}
}

// Resolve returns holder's balance of token. A failed balance read yields a zero
// balance and an unreadable decimals value falls back to 18.
func (r *BalanceResolver) Resolve(ctx context.Context, token, holder common.Address) Balance {
	zero := Balance{Raw: new(big.Int), Decimals: fixedpoint.ShareDecimals, Amount: decimal.Zero}

	raw, err := r.tokens.BalanceOf(ctx, token, holder)
	if err != nil {
		slog.Warn("balance read failed, assuming zero", "token", token.Hex(), "holder", holder.Hex(), "error", err)
		return zero
	}
	if raw == nil || raw.Sign() <= 0 {
		return zero
	}

	decimals := r.tokenDecimals(ctx, token)
	return Balance{
		Raw:      raw,
		Decimals: decimals,
		Amount:   fixedpoint.ToDecimal(raw, decimals),
	}
}

func (r *BalanceResolver) tokenDecimals(ctx context.Context, token common.Address) int32 {
	if d, ok := r.decimals.get(token); ok {
		return d
	}
	d, err := r.tokens.Decimals(ctx, token)
	if err != nil {
		slog.Warn("decimals read failed, using default", "token", token.Hex(), "default", fixedpoint.ShareDecimals, "error", err)
		return fixedpoint.ShareDecimals
	}
	r.decimals.set(token, int32(d))
	return int32(d)
}
