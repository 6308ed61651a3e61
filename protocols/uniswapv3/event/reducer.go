package event

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/dexquoter/dexquoter/chains/fetcher"
	"github.com/dexquoter/dexquoter/dexcommon"
	"github.com/dexquoter/dexquoter/dexerr"
	"github.com/dexquoter/dexquoter/protocols/uniswapv3/calculator/liquiditymath"
	"github.com/dexquoter/dexquoter/protocols/uniswapv3/calculator/tickbitmap"
	"github.com/dexquoter/dexquoter/store"
)

// ErrInvalidTickRange is returned by checkTicks when a Mint/Burn's range is
// malformed; the reducer's caller should log and drop the event rather than
// propagate the failure to sibling events (spec §7 policy).
var ErrInvalidTickRange = errors.New("event: invalid tick range")

// Reducer applies V3 Swap/Mint/Burn logs to the cached pool and tick state.
// Tick and bitmap-word lookups fall through to Fetcher on a cold cache,
// mirroring original_source's RPC recovery path; Fetcher may be nil, in
// which case a cold-cache lookup is a hard error instead of a silent drop.
type Reducer struct {
	Store   store.Store
	Fetcher fetcher.Fetcher
}

// ApplySwapEvent overwrites the pool's sqrt_price_x96, tick, and liquidity
// with an authoritative chain snapshot (spec §4.3 "V3 Swap").
func (r *Reducer) ApplySwapEvent(ctx context.Context, chain dexcommon.ChainID, poolAddr dexcommon.Address, ev SwapEvent) error {
	pool, ok, err := r.Store.GetPool(ctx, chain, poolAddr)
	if err != nil {
		return dexerr.Store(err)
	}
	if !ok {
		return dexerr.PoolNotFound(poolAddr)
	}
	if pool.Kind != dexcommon.PoolKindV3 {
		return fmt.Errorf("%w: pool %s is not a V3 pool", dexerr.ErrInvalidDex, dexcommon.AddrHex(poolAddr))
	}

	pool.SqrtPriceX96 = ev.SqrtPriceX96
	pool.Tick = ev.Tick
	pool.Liquidity = ev.Liquidity
	if err := r.Store.PutPool(ctx, chain, pool); err != nil {
		return dexerr.Store(err)
	}
	return nil
}

// LiquidityUpdate is one decoded Mint or Burn event ready for modify_position.
type LiquidityUpdate struct {
	Pool           dexcommon.Address
	TickLower      int64
	TickUpper      int64
	LiquidityDelta *big.Int // positive for Mint, negative for Burn
	IsMint         bool
}

// ModifyPosition applies a Mint/Burn liquidity delta to the pool's tick
// records, bitmap words, and (Mint-only, in-range) active liquidity -- the
// six-step algorithm of spec §4.3.
func (r *Reducer) ModifyPosition(ctx context.Context, chain dexcommon.ChainID, u LiquidityUpdate) error {
	if err := checkTicks(u.TickLower, u.TickUpper); err != nil {
		return err
	}

	pool, ok, err := r.Store.GetPool(ctx, chain, u.Pool)
	if err != nil {
		return dexerr.Store(err)
	}
	if !ok {
		return dexerr.PoolNotFound(u.Pool)
	}
	if pool.Kind != dexcommon.PoolKindV3 {
		return fmt.Errorf("%w: pool %s is not a V3 pool", dexerr.ErrInvalidDex, dexcommon.AddrHex(u.Pool))
	}

	if u.LiquidityDelta == nil || u.LiquidityDelta.Sign() == 0 {
		return nil
	}

	flippedLower, err := r.updateTick(ctx, chain, u.Pool, u.TickLower, u.LiquidityDelta, false)
	if err != nil {
		return err
	}
	flippedUpper, err := r.updateTick(ctx, chain, u.Pool, u.TickUpper, u.LiquidityDelta, true)
	if err != nil {
		return err
	}

	if flippedLower {
		if err := r.flipTick(ctx, chain, u.Pool, u.TickLower, pool.TickSpacing); err != nil {
			return err
		}
	}
	if flippedUpper {
		if err := r.flipTick(ctx, chain, u.Pool, u.TickUpper, pool.TickSpacing); err != nil {
			return err
		}
	}

	// Active-liquidity is incremented on Mint only when the current tick
	// lies inside the range; Burn's decrement is deliberately withheld,
	// relying on the chain's next Swap snapshot to correct it (spec §4.3
	// step 5, §9 open question).
	if u.IsMint && pool.Tick >= u.TickLower && pool.Tick < u.TickUpper {
		newLiquidity := new(big.Int)
		if err := liquiditymath.AddDelta(newLiquidity, pool.Liquidity, u.LiquidityDelta); err != nil {
			return dexerr.Math(dexerr.MathLiquidityAdd, err)
		}
		pool.Liquidity = newLiquidity
		if err := r.Store.PutPool(ctx, chain, pool); err != nil {
			return dexerr.Store(err)
		}
	}

	if u.LiquidityDelta.Sign() < 0 {
		if flippedLower {
			if err := r.Store.DeleteTick(ctx, chain, u.Pool, u.TickLower); err != nil {
				return dexerr.Store(err)
			}
		}
		if flippedUpper {
			if err := r.Store.DeleteTick(ctx, chain, u.Pool, u.TickUpper); err != nil {
				return dexerr.Store(err)
			}
		}
	}

	return nil
}

func checkTicks(lower, upper int64) error {
	if lower >= upper {
		return fmt.Errorf("%w: tick_lower %d >= tick_upper %d", ErrInvalidTickRange, lower, upper)
	}
	if lower < dexcommon.MinTick {
		return fmt.Errorf("%w: tick_lower %d below MIN_TICK", ErrInvalidTickRange, lower)
	}
	if upper > dexcommon.MaxTick {
		return fmt.Errorf("%w: tick_upper %d above MAX_TICK", ErrInvalidTickRange, upper)
	}
	return nil
}

// updateTick folds delta into the tick record at tick, reading from the
// store (or the fetcher on a cold cache / an AddDelta failure against a
// stale cached value) and reports whether the tick's initialized state
// flipped. upper selects the sign of the net-liquidity contribution: false
// for tick_lower, true for tick_upper (spec §4.3 step 3).
func (r *Reducer) updateTick(ctx context.Context, chain dexcommon.ChainID, pool dexcommon.Address, tick int64, delta *big.Int, upper bool) (bool, error) {
	rec, ok, err := r.Store.GetTick(ctx, chain, pool, tick)
	if err != nil {
		return false, dexerr.Store(err)
	}

	var gross, net *big.Int
	var flipped bool

	switch {
	case ok:
		gross = new(big.Int)
		if addErr := liquiditymath.AddDelta(gross, rec.LiquidityGross, delta); addErr == nil {
			flipped = isFlipped(rec.LiquidityGross, gross)
			net = new(big.Int)
			if upper {
				net.Sub(rec.LiquidityNet, delta)
			} else {
				net.Add(rec.LiquidityNet, delta)
			}
			break
		}
		// The cached gross liquidity disagrees with what delta can produce;
		// fall back to the chain node's live post-delta view, mirroring
		// original_source's ticks::update recovery branch.
		gross, net, flipped, err = r.fetchTickUpdate(ctx, pool, tick, delta)
		if err != nil {
			return false, err
		}
	default:
		gross, net, flipped, err = r.fetchTickUpdate(ctx, pool, tick, delta)
		if err != nil {
			return false, err
		}
	}

	if err := r.Store.PutTick(ctx, chain, pool, tick, store.TickRecord{LiquidityGross: gross, LiquidityNet: net}); err != nil {
		return false, dexerr.Store(err)
	}
	return flipped, nil
}

// fetchTickUpdate reads the tick's current post-delta state from the chain
// node and reconstructs the pre-delta gross liquidity via BeforeAddDelta,
// the same derivation get_liquidity_net_gross_flipped_from_provider performs.
func (r *Reducer) fetchTickUpdate(ctx context.Context, pool dexcommon.Address, tick int64, delta *big.Int) (gross, net *big.Int, flipped bool, err error) {
	if r.Fetcher == nil {
		return nil, nil, false, fmt.Errorf("%w: tick %d not cached and no fetcher configured", dexerr.ErrStore, tick)
	}
	grossAfter, netAfter, err := r.Fetcher.FetchTick(ctx, pool, tick)
	if err != nil {
		return nil, nil, false, dexerr.Store(err)
	}
	grossBefore := new(big.Int)
	if err := liquiditymath.BeforeAddDelta(grossBefore, grossAfter, delta); err != nil {
		return nil, nil, false, dexerr.Math(dexerr.MathLiquiditySub, err)
	}
	return grossAfter, netAfter, isFlipped(grossBefore, grossAfter), nil
}

func isFlipped(grossBefore, grossAfter *big.Int) bool {
	return (grossAfter.Sign() == 0) != (grossBefore.Sign() == 0)
}

// flipTick XORs the bitmap bit for tick into the cached word, fetching the
// word fresh from the chain node (which already reflects this flip, since
// the event has already been mined) when it is not yet cached -- spec §4.3
// step 4 / original_source's tick_bitmap.flip_tick.
func (r *Reducer) flipTick(ctx context.Context, chain dexcommon.ChainID, pool dexcommon.Address, tick, tickSpacing int64) error {
	compressed := tick / tickSpacing
	wordPos, bitPos := tickbitmap.Position(compressed)
	mask := new(big.Int).Lsh(big.NewInt(1), uint(bitPos))

	word, ok, err := r.Store.GetBitmapWord(ctx, chain, pool, wordPos)
	if err != nil {
		return dexerr.Store(err)
	}
	if ok {
		newWord := new(big.Int).Xor(word, mask)
		if err := r.Store.PutBitmapWord(ctx, chain, pool, wordPos, newWord); err != nil {
			return dexerr.Store(err)
		}
		return nil
	}

	if r.Fetcher == nil {
		return fmt.Errorf("%w: bitmap word %d not cached and no fetcher configured", dexerr.ErrStore, wordPos)
	}
	fresh, err := r.Fetcher.FetchBitmapWord(ctx, pool, wordPos)
	if err != nil {
		return dexerr.Store(err)
	}
	if err := r.Store.PutBitmapWord(ctx, chain, pool, wordPos, fresh); err != nil {
		return dexerr.Store(err)
	}
	return nil
}
