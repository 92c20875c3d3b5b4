package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/mtlprog/holdings/internal/domain"
	"github.com/mtlprog/holdings/internal/fixedpoint"
	"github.com/mtlprog/holdings/internal/observability"
)

// Default configuration values.
const (
	DefaultMaxRetries    = 3
	DefaultRetryDelay    = 1 * time.Second
	DefaultReadTimeout   = 10 * time.Second
	DefaultValueDecimals = 18
)

// Backend is the subset of an Ethereum JSON-RPC client used for reads.
type Backend interface {
	bind.ContractCaller
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// Client implements Reader over a JSON-RPC backend with per-call timeouts and retry on HTTP 429.
type Client struct {
	backend       Backend
	metrics       *observability.Metrics
	maxRetries    int
	retryDelay    time.Duration
	readTimeout   time.Duration
	valueDecimals int32
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithRetry sets the rate-limit retry budget and the initial backoff delay.
func WithRetry(maxRetries int, delay time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.retryDelay = delay
	}
}

// WithReadTimeout bounds every individual read.
func WithReadTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.readTimeout = d
	}
}

// WithValueDecimals sets the base the RPC endpoint uses for native balances.
func WithValueDecimals(n int32) ClientOption {
	return func(c *Client) {
		c.valueDecimals = n
	}
}

// WithMetrics records every read.
func WithMetrics(m *observability.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a ledger reader on top of backend (usually *ethclient.Client).
func NewClient(backend Backend, opts ...ClientOption) *Client {
	c := &Client{
		backend:       backend,
		maxRetries:    DefaultMaxRetries,
		retryDelay:    DefaultRetryDelay,
		readTimeout:   DefaultReadTimeout,
		valueDecimals: DefaultValueDecimals,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BalanceOf(ctx context.Context, token, holder common.Address) (*big.Int, error) {
	return c.callBig(ctx, tokenABI, token, "balanceOf", holder)
}

func (c *Client) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	out, err := c.call(ctx, tokenABI, token, "decimals")
	if err != nil {
		return 0, err
	}
	return *abi.ConvertType(out, new(uint8)).(*uint8), nil
}

func (c *Client) PricePerShare(ctx context.Context, sale common.Address) (*big.Int, error) {
	return c.callBig(ctx, saleABI, sale, "pricePerShare")
}

func (c *Client) TotalShares(ctx context.Context, sale common.Address) (*big.Int, error) {
	return c.callBig(ctx, saleABI, sale, "totalShares")
}

func (c *Client) SharesSold(ctx context.Context, sale common.Address) (*big.Int, error) {
	return c.callBig(ctx, saleABI, sale, "sharesSold")
}

func (c *Client) SaleActive(ctx context.Context, sale common.Address) (bool, error) {
	return c.callBool(ctx, saleABI, sale, "saleActive")
}

func (c *Client) DistributionCount(ctx context.Context, distributor common.Address) (uint64, error) {
	n, err := c.callBig(ctx, distributorABI, distributor, "getDistributionCount")
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("%w: distribution count %s out of range", domain.ErrReadFailure, n)
	}
	return n.Uint64(), nil
}

func (c *Client) HasClaimed(ctx context.Context, distributor common.Address, index uint64, holder common.Address) (bool, error) {
	return c.callBool(ctx, distributorABI, distributor, "hasClaimed", new(big.Int).SetUint64(index), holder)
}

func (c *Client) ClaimableDividend(ctx context.Context, distributor common.Address, index uint64, holder common.Address) (*big.Int, error) {
	return c.callBig(ctx, distributorABI, distributor, "getClaimableDividend", new(big.Int).SetUint64(index), holder)
}

// SettlementBalance returns the native balance of account rescaled to the settlement base (floor).
func (c *Client) SettlementBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	const method = "balanceAt"
	start := time.Now()

	var balance *big.Int
	err := c.withRetry(ctx, method, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, c.readTimeout)
		defer cancel()

		var err error
		balance, err = c.backend.BalanceAt(callCtx, account, nil)
		return err
	})
	c.metrics.ObserveRead(method, start, err)
	if err != nil {
		return nil, fmt.Errorf("%w: reading balance of %s: %w", domain.ErrReadFailure, account.Hex(), err)
	}
	return fixedpoint.Rescale(balance, c.valueDecimals, fixedpoint.SettlementDecimals, false), nil
}

func (c *Client) callBig(ctx context.Context, contract abi.ABI, address common.Address, method string, args ...any) (*big.Int, error) {
	out, err := c.call(ctx, contract, address, method, args...)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out, new(*big.Int)).(**big.Int), nil
}

func (c *Client) callBool(ctx context.Context, contract abi.ABI, address common.Address, method string, args ...any) (bool, error) {
	out, err := c.call(ctx, contract, address, method, args...)
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out, new(bool)).(*bool), nil
}

// call invokes a single-output view function and returns its decoded value.
func (c *Client) call(ctx context.Context, contract abi.ABI, address common.Address, method string, args ...any) (any, error) {
	start := time.Now()
	bound := bind.NewBoundContract(address, contract, c.backend, nil, nil)

	var out []any
	err := c.withRetry(ctx, method, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, c.readTimeout)
		defer cancel()

		out = nil
		return bound.Call(&bind.CallOpts{Context: callCtx}, &out, method, args...)
	})
	if err == nil && len(out) == 0 {
		err = errors.New("empty result")
	}
	c.metrics.ObserveRead(method, start, err)
	if err != nil {
		return nil, fmt.Errorf("%w: %s on %s: %w", domain.ErrReadFailure, method, address.Hex(), err)
	}
	return out[0], nil
}

// withRetry runs fn and retries it with exponential backoff while the endpoint answers HTTP 429.
func (c *Client) withRetry(ctx context.Context, method string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := range c.maxRetries + 1 {
		err = fn(ctx)
		if err == nil || !isRateLimited(err) {
			return err
		}
		if attempt < c.maxRetries {
			c.metrics.ObserveRetry(method)
			delay := c.retryDelay * time.Duration(1<<uint(attempt))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return fmt.Errorf("rate limited after %d attempts: %w", c.maxRetries+1, err)
}

func isRateLimited(err error) bool {
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}
