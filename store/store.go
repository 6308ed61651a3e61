package store

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/dexquoter/dexquoter/dexcommon"
)

// PoolKey renders the pool namespace key: {chain}:{addr_hex}.
func PoolKey(chain dexcommon.ChainID, addr dexcommon.Address) string {
	return fmt.Sprintf("%d:%s", chain, dexcommon.AddrHex(addr))
}

// TickKey renders the tick namespace key: {chain}:{addr_hex}:ticks:{tick}.
func TickKey(chain dexcommon.ChainID, addr dexcommon.Address, tick int64) string {
	return fmt.Sprintf("%d:%s:ticks:%d", chain, dexcommon.AddrHex(addr), tick)
}

// BitmapKey renders the bitmap namespace key: {chain}:{addr_hex}:bitmap:{word_pos}.
func BitmapKey(chain dexcommon.ChainID, addr dexcommon.Address, wordPos int16) string {
	return fmt.Sprintf("%d:%s:bitmap:%d", chain, dexcommon.AddrHex(addr), wordPos)
}

// DexIndexKey renders the per-DEX pool index set key: {chain}:{dex}.
func DexIndexKey(chain dexcommon.ChainID, kind dexcommon.PoolKind) string {
	return fmt.Sprintf("%d:%s", chain, kind.String())
}

// Store is the pool-state store capability (spec §4.2). All operations are
// atomic at the single-key level; multi-key updates (e.g. flipping a
// bitmap bit and updating a tick record together) are the caller's
// responsibility to sequence -- they are not transactional (spec §5).
//
// A missing key is reported as (_, false, nil), never as an error; only
// backend I/O failure surfaces as a non-nil error (spec §4.2 Failure modes).
type Store interface {
	GetPool(ctx context.Context, chain dexcommon.ChainID, addr dexcommon.Address) (Pool, bool, error)
	PutPool(ctx context.Context, chain dexcommon.ChainID, pool Pool) error
	DeletePool(ctx context.Context, chain dexcommon.ChainID, addr dexcommon.Address) error

	GetTick(ctx context.Context, chain dexcommon.ChainID, addr dexcommon.Address, tick int64) (TickRecord, bool, error)
	PutTick(ctx context.Context, chain dexcommon.ChainID, addr dexcommon.Address, tick int64, rec TickRecord) error
	DeleteTick(ctx context.Context, chain dexcommon.ChainID, addr dexcommon.Address, tick int64) error

	GetBitmapWord(ctx context.Context, chain dexcommon.ChainID, addr dexcommon.Address, wordPos int16) (*big.Int, bool, error)
	PutBitmapWord(ctx context.Context, chain dexcommon.ChainID, addr dexcommon.Address, wordPos int16, word *big.Int) error

	// ListPools returns every pool address indexed under the given DEX kind.
	ListPools(ctx context.Context, chain dexcommon.ChainID, kind dexcommon.PoolKind) ([]dexcommon.Address, error)
}

// MemStore is an in-memory Store backed by plain maps guarded by a single
// RWMutex. It is the "in-memory map for tests" backend named in spec §9's
// design notes, and is also the only backend the CLI/HTTP surface uses.
type MemStore struct {
	mu      sync.RWMutex
	pools   map[string]Pool
	ticks   map[string]TickRecord
	bitmaps map[string]*big.Int
	index   map[string]map[dexcommon.Address]struct{}
}

// NewMemStore constructs an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		pools:   make(map[string]Pool),
		ticks:   make(map[string]TickRecord),
		bitmaps: make(map[string]*big.Int),
		index:   make(map[string]map[dexcommon.Address]struct{}),
	}
}

func (m *MemStore) GetPool(_ context.Context, chain dexcommon.ChainID, addr dexcommon.Address) (Pool, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pools[PoolKey(chain, addr)]
	if !ok {
		return Pool{}, false, nil
	}
	return p.Clone(), true, nil
}

func (m *MemStore) PutPool(_ context.Context, chain dexcommon.ChainID, pool Pool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pools[PoolKey(chain, pool.Address)] = pool.Clone()

	idxKey := DexIndexKey(chain, pool.Kind)
	set, ok := m.index[idxKey]
	if !ok {
		set = make(map[dexcommon.Address]struct{})
		m.index[idxKey] = set
	}
	set[pool.Address] = struct{}{}
	return nil
}

func (m *MemStore) DeletePool(_ context.Context, chain dexcommon.ChainID, addr dexcommon.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := PoolKey(chain, addr)
	if p, ok := m.pools[key]; ok {
		delete(m.index[DexIndexKey(chain, p.Kind)], addr)
	}
	delete(m.pools, key)
	return nil
}

func (m *MemStore) GetTick(_ context.Context, chain dexcommon.ChainID, addr dexcommon.Address, tick int64) (TickRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.ticks[TickKey(chain, addr, tick)]
	if !ok {
		return TickRecord{}, false, nil
	}
	return t.Clone(), true, nil
}

func (m *MemStore) PutTick(_ context.Context, chain dexcommon.ChainID, addr dexcommon.Address, tick int64, rec TickRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ticks[TickKey(chain, addr, tick)] = rec.Clone()
	return nil
}

func (m *MemStore) DeleteTick(_ context.Context, chain dexcommon.ChainID, addr dexcommon.Address, tick int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.ticks, TickKey(chain, addr, tick))
	return nil
}

func (m *MemStore) GetBitmapWord(_ context.Context, chain dexcommon.ChainID, addr dexcommon.Address, wordPos int16) (*big.Int, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.bitmaps[BitmapKey(chain, addr, wordPos)]
	if !ok {
		return nil, false, nil
	}
	return new(big.Int).Set(w), true, nil
}

func (m *MemStore) PutBitmapWord(_ context.Context, chain dexcommon.ChainID, addr dexcommon.Address, wordPos int16, word *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bitmaps[BitmapKey(chain, addr, wordPos)] = new(big.Int).Set(word)
	return nil
}

func (m *MemStore) ListPools(_ context.Context, chain dexcommon.ChainID, kind dexcommon.PoolKind) ([]dexcommon.Address, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set := m.index[DexIndexKey(chain, kind)]
	out := make([]dexcommon.Address, 0, len(set))
	for addr := range set {
		out = append(out, addr)
	}
	return out, nil
}
