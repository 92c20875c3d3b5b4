// Package transact validates and submits ledger writes: share purchases,
// distribution creation, dividend claims and sale funding.
//
// Every flow checks ledger state before submitting. A *domain.ValidationError
// means nothing was sent; a *domain.TxError tells whether the failure happened
// at submission or while waiting for confirmation.
package transact

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/holdings/internal/domain"
	"github.com/mtlprog/holdings/internal/ledger"
	"github.com/mtlprog/holdings/internal/observability"
	"github.com/mtlprog/holdings/internal/resolver"
)

// Kind identifies a write flow.
type Kind string

const (
	KindPurchase     Kind = "purchase"
	KindDistribution Kind = "distribution"
	KindClaim        Kind = "claim"
	KindFundSale     Kind = "fund_sale"
)

// Receipt describes a confirmed transaction.
type Receipt struct {
	TxHash   string          `json:"txHash"`
	Kind     Kind            `json:"kind"`
	Amount   decimal.Decimal `json:"amount"`
	Warnings []string        `json:"warnings,omitempty"`
}

// Recorder persists executed distributions.
type Recorder interface {
	Record(ctx context.Context, rec domain.DistributionRecord) (domain.DistributionRecord, error)
}

// Service runs write flows for the signer's account.
type Service struct {
	reader   ledger.Reader
	writer   ledger.Writer
	sales    *resolver.SaleStateResolver
	recorder Recorder
	metrics  *observability.Metrics
	now      func() time.Time
}

// Option configures Service.
type Option func(*Service)

// WithRecorder stores every confirmed distribution.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithMetrics counts submitted transactions.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the execution timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service. Both reader and writer are required.
func NewService(reader ledger.Reader, writer ledger.Writer, opts ...Option) *Service {
	s := &Service{
		reader: reader,
		writer: writer,
		now:    time.Now,
	}
	if reader != nil {
		s.sales = resolver.NewSaleStateResolver(reader)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) connected() error {
	if s.reader == nil || s.writer == nil {
		return domain.ErrNotConnected
	}
	return nil
}

// account resolves the acting account. An empty holder means the signer; any other
// holder must be the signer since contracts act on the transaction sender.
func (s *Service) account(holder string) (common.Address, error) {
	from := s.writer.From()
	if holder == "" {
		return from, nil
	}
	addr, err := ledger.ParseAddress(holder)
	if err != nil {
		return common.Address{}, domain.Reject(domain.ErrInvalidHolder, "%v", err)
	}
	if addr != from {
		return common.Address{}, domain.Reject(domain.ErrInvalidHolder,
			"holder %s is not the signing account %s", addr.Hex(), from.Hex())
	}
	return addr, nil
}

func contractAddress(kind, s string) (common.Address, error) {
	addr, err := ledger.ParseAddress(s)
	if err != nil {
		return common.Address{}, domain.Reject(domain.ErrAssetIneligible, "%s contract: %v", kind, err)
	}
	return addr, nil
}

// execute submits a write and waits for it to be mined.
func (s *Service) execute(ctx context.Context, kind Kind, submit func(ctx context.Context) (common.Hash, error)) (hash string, err error) {
	defer func() { s.metrics.ObserveTransaction(string(kind), err) }()

	h, err := submit(ctx)
	if err != nil {
		return "", &domain.TxError{Stage: domain.TxStageSubmit, Err: err}
	}
	if err := s.writer.WaitConfirmed(ctx, h); err != nil {
		return h.Hex(), &domain.TxError{Stage: domain.TxStageConfirm, Hash: h.Hex(), Err: err}
	}
	return h.Hex(), nil
}

func readErr(what string, err error) error {
	return fmt.Errorf("reading %s: %w", what, err)
}
