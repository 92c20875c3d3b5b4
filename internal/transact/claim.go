package transact

import (
	"context"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/mtlprog/holdings/internal/domain"
	"github.com/mtlprog/holdings/internal/fixedpoint"
)

// ClaimRequest claims one distribution.
type ClaimRequest struct {
	DistributorAddress string
	Index              uint64
	Holder             string // optional, defaults to the signer
}

// Claim claims the holder's share of one distribution after checking that it exists,
// is unclaimed and has a positive claimable amount.
func (s *Service) Claim(ctx context.Context, req ClaimRequest) (Receipt, error) {
	if err := s.connected(); err != nil {
		return Receipt{}, err
	}
	distributor, err := contractAddress("distributor", req.DistributorAddress)
	if err != nil {
		return Receipt{}, err
	}
	holder, err := s.account(req.Holder)
	if err != nil {
		return Receipt{}, err
	}

	count, err := s.reader.DistributionCount(ctx, distributor)
	if err != nil {
		return Receipt{}, readErr("distribution count", err)
	}
	if req.Index >= count {
		return Receipt{}, domain.Reject(domain.ErrInvalidAmount, "distribution index %d out of range, count is %d", req.Index, count)
	}

	var (
		claimed   bool
		claimable *big.Int
		g         errgroup.Group
	)
	g.Go(func() (err error) {
		claimed, err = s.reader.HasClaimed(ctx, distributor, req.Index, holder)
		return err
	})
	g.Go(func() (err error) {
		claimable, err = s.reader.ClaimableDividend(ctx, distributor, req.Index, holder)
		return err
	})
	if err := g.Wait(); err != nil {
		return Receipt{}, readErr("claim state", err)
	}

	if claimed {
		return Receipt{}, domain.Reject(domain.ErrAlreadyClaimed, "distribution %d already claimed by %s", req.Index, holder.Hex())
	}
	if claimable == nil || claimable.Sign() <= 0 {
		return Receipt{}, domain.Reject(domain.ErrNothingToClaim, "nothing claimable in distribution %d for %s", req.Index, holder.Hex())
	}

	hash, err := s.execute(ctx, KindClaim, func(ctx context.Context) (common.Hash, error) {
		return s.writer.ClaimDividend(ctx, distributor, req.Index)
	})
	if err != nil {
		return Receipt{}, err
	}

	amount := fixedpoint.ToDecimal(claimable, fixedpoint.SettlementDecimals)
	slog.Info("dividend claimed", "distributor", distributor.Hex(), "index", req.Index, "amount", amount, "tx", hash)
	return Receipt{TxHash: hash, Kind: KindClaim, Amount: amount}, nil
}
