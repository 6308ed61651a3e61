// Package calculator implements the V3 swap simulator (C5, spec §4.4): a
// direct port of the Uniswap V3 swap function against cached pool state,
// grounded on the teacher's protocols/uniswapv3/calculator package (same
// allocation-free swapState/sync.Pool structure) and rewritten against the
// Address-keyed store.Store plus an injectable chains/fetcher.Fetcher for
// the cold-cache RPC fallback named in spec §9.
package calculator

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/dexquoter/dexquoter/chains/fetcher"
	"github.com/dexquoter/dexquoter/dexcommon"
	"github.com/dexquoter/dexquoter/dexerr"
	"github.com/dexquoter/dexquoter/protocols/uniswapv3/calculator/liquiditymath"
	"github.com/dexquoter/dexquoter/protocols/uniswapv3/calculator/swapmath"
	"github.com/dexquoter/dexquoter/protocols/uniswapv3/calculator/tickbitmap"
	"github.com/dexquoter/dexquoter/protocols/uniswapv3/calculator/tickmath"
	"github.com/dexquoter/dexquoter/store"
)

// Result is the outcome of simulating a swap against cached pool state
// (spec §4.4): the output amount, the state the pool would end up in, and
// whether tick/liquidity actually moved -- used by the update_state wrapper
// to decide whether a write-back is worthwhile.
type Result struct {
	AmountOut        *big.Int
	EndingState      store.Pool
	TickChanged      bool
	LiquidityChanged bool
}

// Simulator runs V3 swaps against a Store, falling back to an optional
// Fetcher when a tick record or bitmap word is not yet cached. Fetcher may
// be nil, in which case missing ticks/words are treated as uninitialized
// (zero liquidity, empty bitmap word) -- the behavior a pure in-memory test
// fixture wants (spec §9's "injectable missing-data fetcher").
type Simulator struct {
	Store   store.Store
	Fetcher fetcher.Fetcher
}

// swapState mirrors the teacher's allocation-free simulation scratch space.
type swapState struct {
	amountSpecifiedRemaining *big.Int
	amountCalculated         *big.Int
	sqrtPriceX96             *big.Int
	tick                     int64
	liquidity                *big.Int

	sqrtPriceStartX96 *big.Int
	sqrtPriceNextX96  *big.Int
	targetPrice       *big.Int
	stepAmountIn      *big.Int
	stepAmountOut     *big.Int
	stepFeeAmount     *big.Int
	tempAmount        *big.Int
	liquidityNet      *big.Int
}

var swapStatePool = sync.Pool{
	New: func() any {
		return &swapState{
			amountSpecifiedRemaining: new(big.Int),
			amountCalculated:         new(big.Int),
			sqrtPriceX96:             new(big.Int),
			liquidity:                new(big.Int),
			sqrtPriceStartX96:        new(big.Int),
			sqrtPriceNextX96:         new(big.Int),
			targetPrice:              new(big.Int),
			stepAmountIn:             new(big.Int),
			stepAmountOut:            new(big.Int),
			stepFeeAmount:            new(big.Int),
			tempAmount:               new(big.Int),
			liquidityNet:             new(big.Int),
		}
	},
}

// poolWordSource adapts a Simulator, bound to one pool, into
// tickbitmap.WordSource: it checks the store first and falls back to the
// fetcher on a miss, caching the fetched word back into the store.
type poolWordSource struct {
	sim   *Simulator
	chain dexcommon.ChainID
	pool  dexcommon.Address
}

func (s poolWordSource) Word(ctx context.Context, wordPos int16) (*big.Int, error) {
	word, ok, err := s.sim.Store.GetBitmapWord(ctx, s.chain, s.pool, wordPos)
	if err != nil {
		return nil, dexerr.Store(err)
	}
	if ok {
		return word, nil
	}
	if s.sim.Fetcher == nil {
		return new(big.Int), nil
	}
	word, err = s.sim.Fetcher.FetchBitmapWord(ctx, s.pool, wordPos)
	if err != nil {
		return nil, err
	}
	_ = s.sim.Store.PutBitmapWord(ctx, s.chain, s.pool, wordPos, word)
	return word, nil
}

// liquidityNetForTick loads the liquidity_net for tickNext, consulting the
// store first and falling back to the fetcher on a miss (spec §4.4 step 8).
func (sim *Simulator) liquidityNetForTick(ctx context.Context, chain dexcommon.ChainID, pool dexcommon.Address, tick int64) (*big.Int, error) {
	rec, ok, err := sim.Store.GetTick(ctx, chain, pool, tick)
	if err != nil {
		return nil, dexerr.Store(err)
	}
	if ok {
		return rec.LiquidityNet, nil
	}
	if sim.Fetcher == nil {
		return new(big.Int), nil
	}
	gross, net, err := sim.Fetcher.FetchTick(ctx, pool, tick)
	if err != nil {
		return nil, err
	}
	_ = sim.Store.PutTick(ctx, chain, pool, tick, store.TickRecord{LiquidityGross: gross, LiquidityNet: net})
	return net, nil
}

// SimulateExactInSwap runs the swap loop for an exact-input swap: amountIn
// of tokenIn is consumed in full (subject to available liquidity), and the
// corresponding output amount is computed. This is the only simulation mode
// the path quoter (C8) calls; SimulateExactOutSwap is offered as a parity
// primitive but has no public caller in this repository.
func (sim *Simulator) SimulateExactInSwap(ctx context.Context, chain dexcommon.ChainID, poolAddr dexcommon.Address, amountIn *big.Int, tokenIn dexcommon.Address) (*Result, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amountIn must be positive", dexerr.ErrMath)
	}
	pool, ok, err := sim.Store.GetPool(ctx, chain, poolAddr)
	if err != nil {
		return nil, dexerr.Store(err)
	}
	if !ok || pool.Kind != dexcommon.PoolKindV3 {
		return nil, dexerr.PoolNotFound(poolAddr)
	}

	var zeroForOne bool
	switch tokenIn {
	case pool.TokenA:
		zeroForOne = true
	case pool.TokenB:
		zeroForOne = false
	default:
		return nil, fmt.Errorf("%w: token %s not in pool %s", dexerr.ErrInvalidDex, dexcommon.AddrHex(tokenIn), dexcommon.AddrHex(poolAddr))
	}

	return sim.run(ctx, chain, pool, amountIn, zeroForOne)
}

// SimulateExactOutSwap runs the swap loop for an exact-output swap:
// amountOut of the non-input token is demanded, and the required input
// amount is computed. Kept for parity with the reference algorithm (spec
// §4.4 is symmetric in amount_specified's sign) though the public quoter
// restricts itself to exact-input (spec §9 open question).
func (sim *Simulator) SimulateExactOutSwap(ctx context.Context, chain dexcommon.ChainID, poolAddr dexcommon.Address, amountOut *big.Int, tokenIn dexcommon.Address) (*Result, error) {
	if amountOut == nil || amountOut.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amountOut must be positive", dexerr.ErrMath)
	}
	pool, ok, err := sim.Store.GetPool(ctx, chain, poolAddr)
	if err != nil {
		return nil, dexerr.Store(err)
	}
	if !ok || pool.Kind != dexcommon.PoolKindV3 {
		return nil, dexerr.PoolNotFound(poolAddr)
	}

	var zeroForOne bool
	switch tokenIn {
	case pool.TokenA:
		zeroForOne = true
	case pool.TokenB:
		zeroForOne = false
	default:
		return nil, fmt.Errorf("%w: token %s not in pool %s", dexerr.ErrInvalidDex, dexcommon.AddrHex(tokenIn), dexcommon.AddrHex(poolAddr))
	}

	negated := new(big.Int).Neg(amountOut)
	return sim.run(ctx, chain, pool, negated, zeroForOne)
}

// run executes spec §4.4's loop. amountSpecified is positive for exact-in,
// negative for exact-out (the reference algorithm's sign convention).
func (sim *Simulator) run(ctx context.Context, chain dexcommon.ChainID, pool store.Pool, amountSpecified *big.Int, zeroForOne bool) (*Result, error) {
	sqrtPriceLimit := new(big.Int)
	if zeroForOne {
		sqrtPriceLimit.Add(dexcommon.MinSqrtRatio, big.NewInt(1))
	} else {
		sqrtPriceLimit.Sub(dexcommon.MaxSqrtRatio, big.NewInt(1))
	}

	state := swapStatePool.Get().(*swapState)
	defer swapStatePool.Put(state)

	state.amountSpecifiedRemaining.Set(amountSpecified)
	state.amountCalculated.SetInt64(0)
	state.sqrtPriceX96.Set(pool.SqrtPriceX96)
	state.tick = pool.Tick
	state.liquidity.Set(pool.Liquidity)

	exactInput := state.amountSpecifiedRemaining.Sign() > 0
	src := poolWordSource{sim: sim, chain: chain, pool: pool.Address}

	for state.amountSpecifiedRemaining.Sign() != 0 && state.sqrtPriceX96.Cmp(sqrtPriceLimit) != 0 {
		state.sqrtPriceStartX96.Set(state.sqrtPriceX96)

		tickNext, initialized, err := tickbitmap.NextInitializedTickWithinOneWord(ctx, src, state.tick, pool.TickSpacing, zeroForOne)
		if err != nil {
			return nil, dexerr.Math(dexerr.MathZeroBitScan, err)
		}
		if tickNext < dexcommon.MinTick {
			tickNext = dexcommon.MinTick
		} else if tickNext > dexcommon.MaxTick {
			tickNext = dexcommon.MaxTick
		}

		if err := tickmath.GetSqrtRatioAtTick(state.sqrtPriceNextX96, tickNext); err != nil {
			return nil, dexerr.Math(dexerr.MathTickOutOfRange, err)
		}

		if (zeroForOne && state.sqrtPriceNextX96.Cmp(sqrtPriceLimit) < 0) ||
			(!zeroForOne && state.sqrtPriceNextX96.Cmp(sqrtPriceLimit) > 0) {
			state.targetPrice.Set(sqrtPriceLimit)
		} else {
			state.targetPrice.Set(state.sqrtPriceNextX96)
		}

		if err := swapmath.ComputeSwapStep(
			state.sqrtPriceX96, state.stepAmountIn, state.stepAmountOut, state.stepFeeAmount,
			state.sqrtPriceStartX96,
			state.targetPrice,
			state.liquidity,
			state.amountSpecifiedRemaining,
			state.tempAmount.SetUint64(uint64(pool.Fee)),
		); err != nil {
			break
		}

		if exactInput {
			state.amountSpecifiedRemaining.Sub(state.amountSpecifiedRemaining, state.tempAmount.Add(state.stepAmountIn, state.stepFeeAmount))
			state.amountCalculated.Sub(state.amountCalculated, state.stepAmountOut)
		} else {
			state.amountSpecifiedRemaining.Add(state.amountSpecifiedRemaining, state.stepAmountOut)
			state.amountCalculated.Add(state.amountCalculated, state.tempAmount.Add(state.stepAmountIn, state.stepFeeAmount))
		}
		if state.amountSpecifiedRemaining.Sign() == 0 {
			break
		}

		if state.sqrtPriceX96.Cmp(state.sqrtPriceNextX96) == 0 {
			if initialized {
				net, err := sim.liquidityNetForTick(ctx, chain, pool.Address, tickNext)
				if err != nil {
					return nil, err
				}
				state.liquidityNet.Set(net)
				if zeroForOne {
					state.liquidityNet.Neg(state.liquidityNet)
				}
				if err := liquiditymath.AddDelta(state.liquidity, state.liquidity, state.liquidityNet); err != nil {
					return nil, dexerr.Math(dexerr.MathLiquidityAdd, err)
				}
			}
			if zeroForOne {
				state.tick = tickNext - 1
			} else {
				state.tick = tickNext
			}
		} else if state.sqrtPriceX96.Cmp(state.sqrtPriceStartX96) != 0 {
			newTick, err := tickmath.GetTickAtSqrtRatio(state.sqrtPriceX96)
			if err != nil {
				return nil, dexerr.Math(dexerr.MathSqrtOutOfRange, err)
			}
			state.tick = newTick
		}
	}

	amount0 := new(big.Int)
	amount1 := new(big.Int)
	if zeroForOne {
		amount0.Sub(amountSpecified, state.amountSpecifiedRemaining)
		amount1.Set(state.amountCalculated)
	} else {
		amount1.Sub(amountSpecified, state.amountSpecifiedRemaining)
		amount0.Set(state.amountCalculated)
	}
	var amountOut *big.Int
	if amount0.Sign() < 0 {
		amountOut = new(big.Int).Neg(amount0)
	} else {
		amountOut = new(big.Int).Neg(amount1)
	}

	ending := pool.Clone()
	ending.SqrtPriceX96 = new(big.Int).Set(state.sqrtPriceX96)
	ending.Tick = state.tick
	ending.Liquidity = new(big.Int).Set(state.liquidity)

	return &Result{
		AmountOut:        amountOut,
		EndingState:      ending,
		TickChanged:      ending.Tick != pool.Tick || ending.SqrtPriceX96.Cmp(pool.SqrtPriceX96) != 0,
		LiquidityChanged: ending.Liquidity.Cmp(pool.Liquidity) != 0,
	}, nil
}

// UpdateState writes {sqrt_price, tick, liquidity} from a Result back into
// the store, committing the simulation as the predicted post-trade state
// (spec §4.4: "a separate update_state wrapper applies ... used when the
// caller wants the simulation to be committed"). The simulator itself never
// does this implicitly.
func (sim *Simulator) UpdateState(ctx context.Context, chain dexcommon.ChainID, r *Result) error {
	if !r.TickChanged && !r.LiquidityChanged {
		return nil
	}
	if err := sim.Store.PutPool(ctx, chain, r.EndingState); err != nil {
		return dexerr.Store(err)
	}
	return nil
}
