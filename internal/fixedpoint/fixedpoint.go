// Package fixedpoint converts between raw ledger base units and decimal amounts.
//
// Raw amounts are always *big.Int. Share tokens use an 18-decimal base and the
// settlement currency an 8-decimal base; a price per share is an 18-decimal
// amount of currency per one whole share.
package fixedpoint

import (
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	// ShareDecimals is the base-unit scale of share tokens.
	ShareDecimals int32 = 18
	// SettlementDecimals is the base-unit scale of the settlement currency.
	SettlementDecimals int32 = 8
	// PriceDecimals is the scale of a price per whole share.
	PriceDecimals int32 = 18
)

var powersOfTen = map[int32]*big.Int{
	0:  big.NewInt(1),
	8:  big.NewInt(100_000_000),
	10: big.NewInt(10_000_000_000),
	18: big.NewInt(1_000_000_000_000_000_000),
}

// PowerOfTen returns 10^n. The result must not be mutated.
func PowerOfTen(n int32) *big.Int {
	if v, ok := powersOfTen[n]; ok {
		return v
	}
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// ToDecimal converts a raw base-unit integer into a decimal amount. A nil raw value is zero.
func ToDecimal(raw *big.Int, decimals int32) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -decimals)
}

// ToRaw converts a decimal amount into raw base units. Fractional digits beyond
// decimals are truncated toward zero.
func ToRaw(d decimal.Decimal, decimals int32) *big.Int {
	return d.Shift(decimals).BigInt()
}

// Cost returns sharesRaw * priceRaw / 10^18 in the integer domain (floor).
// The result is an 18-decimal currency amount.
func Cost(sharesRaw, priceRaw *big.Int) *big.Int {
	if sharesRaw == nil || priceRaw == nil {
		return new(big.Int)
	}
	product := new(big.Int).Mul(sharesRaw, priceRaw)
	return product.Quo(product, PowerOfTen(PriceDecimals))
}

// Rescale converts a raw amount from one base to another. When the target base is
// smaller, roundUp selects the ceiling instead of truncation.
func Rescale(raw *big.Int, from, to int32, roundUp bool) *big.Int {
	if raw == nil {
		return new(big.Int)
	}
	if to >= from {
		return new(big.Int).Mul(raw, PowerOfTen(to-from))
	}
	q, r := new(big.Int).QuoRem(raw, PowerOfTen(from-to), new(big.Int))
	if roundUp && r.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

// PurchaseCost returns the settlement-base amount payable for sharesRaw at priceRaw.
// The product is divided before the base change and rounded up so a buyer never underpays.
func PurchaseCost(sharesRaw, priceRaw *big.Int) *big.Int {
	return Rescale(Cost(sharesRaw, priceRaw), PriceDecimals, SettlementDecimals, true)
}
