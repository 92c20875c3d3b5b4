package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/mtlprog/holdings/internal/fixedpoint"
)

// SignerBackend is the subset of an Ethereum JSON-RPC client used for writes.
type SignerBackend interface {
	bind.ContractBackend
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// SignerConfig configures a Signer.
type SignerConfig struct {
	PrivateKey     string // hex, optional 0x prefix
	ValueDecimals  int32
	PollInterval   time.Duration
	ConfirmTimeout time.Duration
}

// Signer submits transactions from a single key. It implements Writer.
type Signer struct {
	backend        SignerBackend
	key            *ecdsa.PrivateKey
	chainID        *big.Int
	from           common.Address
	valueDecimals  int32
	pollInterval   time.Duration
	confirmTimeout time.Duration
}

// NewSigner loads the key and resolves the chain ID from the backend.
func NewSigner(ctx context.Context, backend SignerBackend, cfg SignerConfig) (*Signer, error) {
	if cfg.PrivateKey == "" {
		return nil, errors.New("signer private key is empty")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parsing signer key: %w", err)
	}

	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading chain ID: %w", err)
	}

	if cfg.ValueDecimals == 0 {
		cfg.ValueDecimals = DefaultValueDecimals
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = 2 * time.Minute
	}

	return &Signer{
		backend:        backend,
		key:            key,
		chainID:        chainID,
		from:           crypto.PubkeyToAddress(key.PublicKey),
		valueDecimals:  cfg.ValueDecimals,
		pollInterval:   cfg.PollInterval,
		confirmTimeout: cfg.ConfirmTimeout,
	}, nil
}

// From returns the signing account.
func (s *Signer) From() common.Address {
	return s.from
}

func (s *Signer) Transfer(ctx context.Context, token, to common.Address, amountRaw *big.Int) (common.Hash, error) {
	return s.transact(ctx, tokenABI, token, nil, "transfer", to, amountRaw)
}

func (s *Signer) BuyShares(ctx context.Context, sale common.Address, sharesRaw, valueRaw *big.Int) (common.Hash, error) {
	return s.transact(ctx, saleABI, sale, valueRaw, "buyShares", sharesRaw)
}

func (s *Signer) CreateDistribution(ctx context.Context, distributor common.Address, amountRaw *big.Int) (common.Hash, error) {
	return s.transact(ctx, distributorABI, distributor, amountRaw, "createDistribution")
}

func (s *Signer) ClaimDividend(ctx context.Context, distributor common.Address, index uint64) (common.Hash, error) {
	return s.transact(ctx, distributorABI, distributor, nil, "claimDividend", new(big.Int).SetUint64(index))
}

// WaitConfirmed polls for the receipt until the transaction is mined, reverts, or the confirm timeout passes.
func (s *Signer) WaitConfirmed(ctx context.Context, hash common.Hash) error {
	ctx, cancel := context.WithTimeout(ctx, s.confirmTimeout)
	defer cancel()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := s.backend.TransactionReceipt(ctx, hash)
		switch {
		case err == nil && receipt.Status == types.ReceiptStatusFailed:
			return fmt.Errorf("transaction %s reverted in block %s", hash.Hex(), receipt.BlockNumber)
		case err == nil:
			return nil
		case !errors.Is(err, ethereum.NotFound):
			slog.Warn("ledger: receipt lookup failed, retrying", "tx", hash.Hex(), "error", err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// transact submits a call; valueRaw is in the settlement base and converted to the endpoint's value base.
func (s *Signer) transact(ctx context.Context, contract abi.ABI, address common.Address, valueRaw *big.Int, method string, args ...any) (common.Hash, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(s.key, s.chainID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("creating transactor: %w", err)
	}
	opts.Context = ctx
	if valueRaw != nil {
		opts.Value = fixedpoint.Rescale(valueRaw, fixedpoint.SettlementDecimals, s.valueDecimals, true)
	}

	bound := bind.NewBoundContract(address, contract, s.backend, s.backend, s.backend)
	tx, err := bound.Transact(opts, method, args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("submitting %s to %s: %w", method, address.Hex(), err)
	}

	slog.Info("ledger: transaction submitted", "method", method, "to", address.Hex(), "tx", tx.Hash().Hex())
	return tx.Hash(), nil
}
