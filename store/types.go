// Package store implements the pool-state store (C3): a key-value
// abstraction with three logical namespaces -- pool, tick, bitmap -- keyed
// by chain id and pool address (spec §4.2). Grounded on the teacher's
// pattern of a narrow capability interface plus a swappable backend
// (chains.Client, engine.State); per spec §9's design note, any backend
// satisfying the single-key atomicity contract suffices, so this package
// ships an in-memory implementation alongside the interface -- a real
// production deployment would supply a disk-backed or distributed backend
// implementing the same Store interface.
package store

import (
	"math/big"

	"github.com/dexquoter/dexquoter/dexcommon"
)

// Pool holds the fields of either a V2Pool or a V3Pool (spec §3); Kind
// selects which fields are meaningful. The two kinds share a record shape
// because the store's "pool" namespace holds both under the same key,
// discriminated only by a "dex" field -- the same layout original_source's
// db/univ2 and db/univ3 hashmaps use.
type Pool struct {
	Kind     dexcommon.PoolKind
	Address  dexcommon.Address
	Fee      uint32 // basis points for V2 (typically 9970/10000 of 10000); one of {100,500,3000,10000} for V3
	TokenA   dexcommon.Address
	TokenB   dexcommon.Address
	DecimalsA uint8
	DecimalsB uint8

	// V2 fields.
	ReserveA *big.Int // u112, fits u128
	ReserveB *big.Int

	// V3 fields.
	Liquidity    *big.Int // u128, active in-range liquidity
	SqrtPriceX96 *big.Int // u160 stored as 256-bit
	Tick         int64
	TickSpacing  int64
	// LiquidityNet is a legacy single-field value retained for ABI
	// compatibility with checkpoint import (spec §9 open question 2);
	// the simulator never reads it.
	LiquidityNet *big.Int
}

// Clone returns a deep copy so callers may mutate the result without
// racing a concurrent store reader.
func (p Pool) Clone() Pool {
	out := p
	if p.ReserveA != nil {
		out.ReserveA = new(big.Int).Set(p.ReserveA)
	}
	if p.ReserveB != nil {
		out.ReserveB = new(big.Int).Set(p.ReserveB)
	}
	if p.Liquidity != nil {
		out.Liquidity = new(big.Int).Set(p.Liquidity)
	}
	if p.SqrtPriceX96 != nil {
		out.SqrtPriceX96 = new(big.Int).Set(p.SqrtPriceX96)
	}
	if p.LiquidityNet != nil {
		out.LiquidityNet = new(big.Int).Set(p.LiquidityNet)
	}
	return out
}

// TickRecord is keyed by (pool, tick); an absent record is equivalent to
// gross=0, net=0 (spec §3).
type TickRecord struct {
	LiquidityGross *big.Int // u128
	LiquidityNet   *big.Int // i128
}

func (t TickRecord) Clone() TickRecord {
	out := TickRecord{}
	if t.LiquidityGross != nil {
		out.LiquidityGross = new(big.Int).Set(t.LiquidityGross)
	}
	if t.LiquidityNet != nil {
		out.LiquidityNet = new(big.Int).Set(t.LiquidityNet)
	}
	return out
}
