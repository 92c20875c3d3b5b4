package resolver

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const decimalsTTL = time.Hour

type decimalsEntry struct {
	decimals  int32
	expiresAt time.Time
}

// decimalsCache remembers successfully read token decimals.
type decimalsCache struct {
	mu      sync.RWMutex
	entries map[common.Address]decimalsEntry
	now     func() time.Time
}

func newDecimalsCache() *decimalsCache {
	return &decimalsCache{
		entries: make(map[common.Address]decimalsEntry),
		now:     time.Now,
	}
}

func (c *decimalsCache) get(token common.Address) (int32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[token]
	if !ok || c.now().After(entry.expiresAt) {
		return 0, false
	}
	return entry.decimals, true
}

func (c *decimalsCache) set(token common.Address, decimals int32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[token] = decimalsEntry{
		decimals:  decimals,
		expiresAt: c.now().Add(decimalsTTL),
	}
}
