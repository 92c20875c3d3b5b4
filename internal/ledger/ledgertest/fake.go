// Package ledgertest provides an in-memory ledger for tests.
package ledgertest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrInjected is returned by reads and writes configured to fail.
var ErrInjected = errors.New("injected ledger failure")

// Sale is the state of one sale contract.
type Sale struct {
	PricePerShare *big.Int
	TotalShares   *big.Int
	SharesSold    *big.Int
	Active        bool
}

// Distribution is one entry of a distributor, as seen by every holder.
type Distribution struct {
	Total     *big.Int
	Claimable map[common.Address]*big.Int
	Claimed   map[common.Address]bool
}

// Submission records a write accepted by the fake.
type Submission struct {
	Method string
	To     common.Address
	Amount *big.Int
	Hash   common.Hash
}

// Ledger is an in-memory implementation of ledger.Reader and ledger.Writer.
// Writes apply immediately; WaitConfirmed reports ConfirmErr.
type Ledger struct {
	mu sync.Mutex

	balances     map[common.Address]map[common.Address]*big.Int // token -> holder -> raw
	decimals     map[common.Address]uint8
	sales        map[common.Address]*Sale
	distributors map[common.Address][]*Distribution
	settlement   map[common.Address]*big.Int
	failures     map[string]error
	calls        map[string]int

	from      common.Address
	submitted []Submission

	SubmitErr  error
	ConfirmErr error
}

// New creates an empty ledger whose signing account is from.
func New(from common.Address) *Ledger {
	return &Ledger{
		balances:     make(map[common.Address]map[common.Address]*big.Int),
		decimals:     make(map[common.Address]uint8),
		sales:        make(map[common.Address]*Sale),
		distributors: make(map[common.Address][]*Distribution),
		settlement:   make(map[common.Address]*big.Int),
		failures:     make(map[string]error),
		calls:        make(map[string]int),
		from:         from,
	}
}

// SetBalance sets holder's raw balance of token.
func (l *Ledger) SetBalance(token, holder common.Address, raw *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[token] == nil {
		l.balances[token] = make(map[common.Address]*big.Int)
	}
	l.balances[token][holder] = new(big.Int).Set(raw)
}

// SetDecimals sets the decimals reported by token.
func (l *Ledger) SetDecimals(token common.Address, d uint8) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.decimals[token] = d
}

// SetSale sets the state of a sale contract.
func (l *Ledger) SetSale(sale common.Address, s Sale) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sales[sale] = &s
}

// AddDistribution appends a distribution with per-holder claimable amounts (8-decimal raw).
func (l *Ledger) AddDistribution(distributor common.Address, claimable map[common.Address]*big.Int) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	d := &Distribution{
		Total:     new(big.Int),
		Claimable: make(map[common.Address]*big.Int),
		Claimed:   make(map[common.Address]bool),
	}
	for holder, amount := range claimable {
		d.Claimable[holder] = new(big.Int).Set(amount)
		d.Total.Add(d.Total, amount)
	}
	l.distributors[distributor] = append(l.distributors[distributor], d)
	return uint64(len(l.distributors[distributor]) - 1)
}

// SetSettlementBalance sets an account's native balance in the 8-decimal base.
func (l *Ledger) SetSettlementBalance(account common.Address, raw *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.settlement[account] = new(big.Int).Set(raw)
}

// Fail makes method calls against address return ErrInjected.
func (l *Ledger) Fail(method string, address common.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[failureKey(method, address)] = ErrInjected
}

// FailIndex makes method calls against one distribution index return ErrInjected.
func (l *Ledger) FailIndex(method string, distributor common.Address, index uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[fmt.Sprintf("%s/%d", failureKey(method, distributor), index)] = ErrInjected
}

// Calls returns how many times method was invoked.
func (l *Ledger) Calls(method string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[method]
}

// Submitted returns the accepted writes in order.
func (l *Ledger) Submitted() []Submission {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Submission(nil), l.submitted...)
}

func failureKey(method string, address common.Address) string {
	return method + "@" + address.Hex()
}

// enter counts the call and returns the configured failure, if any. Caller holds mu.
func (l *Ledger) enter(method string, address common.Address) error {
	l.calls[method]++
	return l.failures[failureKey(method, address)]
}

func (l *Ledger) enterIndex(method string, address common.Address, index uint64) error {
	if err := l.enter(method, address); err != nil {
		return err
	}
	return l.failures[fmt.Sprintf("%s/%d", failureKey(method, address), index)]
}

func (l *Ledger) BalanceOf(_ context.Context, token, holder common.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enter("BalanceOf", token); err != nil {
		return nil, err
	}
	if b, ok := l.balances[token][holder]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

func (l *Ledger) Decimals(_ context.Context, token common.Address) (uint8, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enter("Decimals", token); err != nil {
		return 0, err
	}
	if d, ok := l.decimals[token]; ok {
		return d, nil
	}
	return 18, nil
}

func (l *Ledger) sale(method string, address common.Address) (*Sale, error) {
	if err := l.enter(method, address); err != nil {
		return nil, err
	}
	s, ok := l.sales[address]
	if !ok {
		return nil, fmt.Errorf("no sale contract at %s", address.Hex())
	}
	return s, nil
}

func (l *Ledger) PricePerShare(_ context.Context, sale common.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, err := l.sale("PricePerShare", sale)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(s.PricePerShare), nil
}

func (l *Ledger) TotalShares(_ context.Context, sale common.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, err := l.sale("TotalShares", sale)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(s.TotalShares), nil
}

func (l *Ledger) SharesSold(_ context.Context, sale common.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, err := l.sale("SharesSold", sale)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(s.SharesSold), nil
}

func (l *Ledger) SaleActive(_ context.Context, sale common.Address) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, err := l.sale("SaleActive", sale)
	if err != nil {
		return false, err
	}
	return s.Active, nil
}

func (l *Ledger) DistributionCount(_ context.Context, distributor common.Address) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enter("DistributionCount", distributor); err != nil {
		return 0, err
	}
	return uint64(len(l.distributors[distributor])), nil
}

func (l *Ledger) distribution(distributor common.Address, index uint64) (*Distribution, error) {
	list := l.distributors[distributor]
	if index >= uint64(len(list)) {
		return nil, fmt.Errorf("distribution %d out of range", index)
	}
	return list[index], nil
}

func (l *Ledger) HasClaimed(_ context.Context, distributor common.Address, index uint64, holder common.Address) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enterIndex("HasClaimed", distributor, index); err != nil {
		return false, err
	}
	d, err := l.distribution(distributor, index)
	if err != nil {
		return false, err
	}
	return d.Claimed[holder], nil
}

func (l *Ledger) ClaimableDividend(_ context.Context, distributor common.Address, index uint64, holder common.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enterIndex("ClaimableDividend", distributor, index); err != nil {
		return nil, err
	}
	d, err := l.distribution(distributor, index)
	if err != nil {
		return nil, err
	}
	if a, ok := d.Claimable[holder]; ok {
		return new(big.Int).Set(a), nil
	}
	return new(big.Int), nil
}

func (l *Ledger) SettlementBalance(_ context.Context, account common.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enter("SettlementBalance", account); err != nil {
		return nil, err
	}
	if b, ok := l.settlement[account]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

// From returns the signing account.
func (l *Ledger) From() common.Address {
	return l.from
}

// submit records a write and returns a deterministic hash. Caller holds mu.
func (l *Ledger) submit(method string, to common.Address, amount *big.Int) (common.Hash, error) {
	l.calls[method]++
	if l.SubmitErr != nil {
		return common.Hash{}, l.SubmitErr
	}
	if err := l.failures[failureKey(method, to)]; err != nil {
		return common.Hash{}, err
	}
	hash := crypto.Keccak256Hash([]byte(fmt.Sprintf("%s/%s/%d", method, to.Hex(), len(l.submitted))))
	var recorded *big.Int
	if amount != nil {
		recorded = new(big.Int).Set(amount)
	}
	l.submitted = append(l.submitted, Submission{Method: method, To: to, Amount: recorded, Hash: hash})
	return hash, nil
}

func (l *Ledger) Transfer(_ context.Context, token, to common.Address, amountRaw *big.Int) (common.Hash, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	hash, err := l.submit("Transfer", token, amountRaw)
	if err != nil {
		return hash, err
	}
	if l.balances[token] == nil {
		l.balances[token] = make(map[common.Address]*big.Int)
	}
	prev := l.balances[token][to]
	if prev == nil {
		prev = new(big.Int)
	}
	l.balances[token][to] = new(big.Int).Add(prev, amountRaw)
	return hash, nil
}

func (l *Ledger) BuyShares(_ context.Context, sale common.Address, sharesRaw, valueRaw *big.Int) (common.Hash, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	hash, err := l.submit("BuyShares", sale, valueRaw)
	if err != nil {
		return hash, err
	}
	if s, ok := l.sales[sale]; ok {
		s.SharesSold = new(big.Int).Add(s.SharesSold, sharesRaw)
	}
	return hash, nil
}

func (l *Ledger) CreateDistribution(_ context.Context, distributor common.Address, amountRaw *big.Int) (common.Hash, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	hash, err := l.submit("CreateDistribution", distributor, amountRaw)
	if err != nil {
		return hash, err
	}
	l.distributors[distributor] = append(l.distributors[distributor], &Distribution{
		Total:     new(big.Int).Set(amountRaw),
		Claimable: make(map[common.Address]*big.Int),
		Claimed:   make(map[common.Address]bool),
	})
	return hash, nil
}

func (l *Ledger) ClaimDividend(_ context.Context, distributor common.Address, index uint64) (common.Hash, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	d, err := l.distribution(distributor, index)
	if err != nil {
		l.calls["ClaimDividend"]++
		return common.Hash{}, err
	}
	hash, err := l.submit("ClaimDividend", distributor, d.Claimable[l.from])
	if err != nil {
		return hash, err
	}
	d.Claimed[l.from] = true
	d.Claimable[l.from] = new(big.Int)
	return hash, nil
}

func (l *Ledger) WaitConfirmed(_ context.Context, _ common.Hash) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls["WaitConfirmed"]++
	return l.ConfirmErr
}
