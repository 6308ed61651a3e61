// Package tokenmeta holds the token symbol/decimals/fee-on-transfer
// metadata the graph needs but the pool-state store doesn't carry
// (spec.md §1 "token" entity; SPEC_FULL.md Part D). Grounded on the
// teacher's protocols/tokenregistry.Token, re-keyed by common.Address
// instead of a synthetic uint64 id since this repo has no token registry
// indexer of its own.
package tokenmeta

import (
	"sync"

	"github.com/dexquoter/dexquoter/dexcommon"
)

// Token is the subset of on-chain token metadata the graph and importer
// care about.
type Token struct {
	Address              dexcommon.Address
	Name                 string
	Symbol               string
	Decimals             uint8
	FeeOnTransferPercent float64
	GasForTransfer       uint64
}

// IsFeeOnTransfer reports whether routing through this token should be
// excluded (examples/graph/graph.go: "Fee-on-Transfer tokens break
// standard amount out calculations").
func (t Token) IsFeeOnTransfer() bool {
	return t.FeeOnTransferPercent > 0
}

// Cache is a concurrency-safe, address-keyed token metadata lookup. A
// missing entry is never an error -- callers treat an unknown token as
// "not fee-on-transfer" since most tokens never appear here at all.
type Cache struct {
	mu        sync.RWMutex
	byAddress map[dexcommon.Address]Token
}

// NewCache constructs an empty cache.
func NewCache() *Cache {
	return &Cache{byAddress: make(map[dexcommon.Address]Token)}
}

// Put inserts or overwrites a token's metadata.
func (c *Cache) Put(t Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byAddress[t.Address] = t
}

// Get returns the cached metadata for addr, if any.
func (c *Cache) Get(addr dexcommon.Address) (Token, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.byAddress[addr]
	return t, ok
}

// IsFeeOnTransfer reports whether addr is known and flagged fee-on-transfer.
// An unknown address is never excluded.
func (c *Cache) IsFeeOnTransfer(addr dexcommon.Address) bool {
	t, ok := c.Get(addr)
	return ok && t.IsFeeOnTransfer()
}
