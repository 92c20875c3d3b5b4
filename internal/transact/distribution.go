package transact

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/holdings/internal/domain"
	"github.com/mtlprog/holdings/internal/fixedpoint"
)

// DistributionRequest pays Amount of settlement currency into a distributor.
type DistributionRequest struct {
	AssetID            string
	DistributorAddress string
	Amount             decimal.Decimal
	Description        string
}

// CreateDistribution funds a new distribution from the signer's balance and, once
// confirmed, records it in the history store.
func (s *Service) CreateDistribution(ctx context.Context, req DistributionRequest) (Receipt, error) {
	if err := s.connected(); err != nil {
		return Receipt{}, err
	}
	if !req.Amount.IsPositive() {
		return Receipt{}, domain.Reject(domain.ErrInvalidAmount, "amount must be positive, got %s", req.Amount)
	}
	amountRaw := fixedpoint.ToRaw(req.Amount, fixedpoint.SettlementDecimals)
	if !fixedpoint.ToDecimal(amountRaw, fixedpoint.SettlementDecimals).Equal(req.Amount) {
		return Receipt{}, domain.Reject(domain.ErrInvalidAmount,
			"amount %s has more than %d decimal places", req.Amount, fixedpoint.SettlementDecimals)
	}
	distributor, err := contractAddress("distributor", req.DistributorAddress)
	if err != nil {
		return Receipt{}, err
	}

	balance, err := s.reader.SettlementBalance(ctx, s.writer.From())
	if err != nil {
		return Receipt{}, readErr("signer balance", err)
	}
	if balance.Cmp(amountRaw) < 0 {
		return Receipt{}, domain.Reject(domain.ErrInsufficientBalance, "balance %s is below distribution amount %s",
			fixedpoint.ToDecimal(balance, fixedpoint.SettlementDecimals), req.Amount)
	}

	hash, err := s.execute(ctx, KindDistribution, func(ctx context.Context) (common.Hash, error) {
		return s.writer.CreateDistribution(ctx, distributor, amountRaw)
	})
	if err != nil {
		return Receipt{}, err
	}
	slog.Info("distribution created", "asset", req.AssetID, "distributor", distributor.Hex(), "amount", req.Amount, "tx", hash)

	receipt := Receipt{TxHash: hash, Kind: KindDistribution, Amount: req.Amount}
	if s.recorder != nil && req.AssetID != "" {
		_, err := s.recorder.Record(ctx, domain.DistributionRecord{
			AssetID:     req.AssetID,
			TotalAmount: req.Amount,
			Description: req.Description,
			ExecutedAt:  s.now().UTC(),
			TxHash:      hash,
		})
		if err != nil {
			slog.Error("failed to record confirmed distribution", "asset", req.AssetID, "tx", hash, "error", err)
			receipt.Warnings = append(receipt.Warnings, fmt.Sprintf("distribution confirmed but not recorded: %v", err))
		}
	}
	return receipt, nil
}
