// Package calculator implements the constant-product swap formula for
// UniswapV2-style pools (spec §5 "V2 swap math"), adapted from the
// teacher's protocols/uniswapv2/calculator package: same sync.Pool-backed
// Calculator and basis-point fee formula, rewritten against the
// Address-keyed store.Pool instead of the teacher's uint64 token-ID
// registry lookup.
package calculator

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/dexquoter/dexquoter/dexcommon"
	"github.com/dexquoter/dexquoter/dexerr"
	"github.com/dexquoter/dexquoter/store"
)

var errZeroDenominator = errors.New("v2 denominator is zero")

// basisPointDivisor represents 100% in basis points (10000), per spec §5.
var basisPointDivisor = big.NewInt(10000)

// defaultFee is the fee factor (0.30%) used for a pool whose Fee is unset.
const defaultFee = 9970

func feeOf(pool store.Pool) int64 {
	if pool.Fee == 0 {
		return defaultFee
	}
	return int64(pool.Fee)
}

// Calculator holds reusable big.Int objects to avoid allocations during
// repeated swap calculations. Not safe for concurrent use by itself --
// instances are rented from calculatorPool.
type Calculator struct {
	feeMultiplier   *big.Int
	amountInWithFee *big.Int
	numerator       *big.Int
	denominator     *big.Int

	numeratorIn   *big.Int
	denominatorIn *big.Int

	newReserveA *big.Int
	newReserveB *big.Int
}

var calculatorPool = sync.Pool{
	New: func() any {
		return &Calculator{
			feeMultiplier:   new(big.Int),
			amountInWithFee: new(big.Int),
			numerator:       new(big.Int),
			denominator:     new(big.Int),
			numeratorIn:     new(big.Int),
			denominatorIn:   new(big.Int),
			newReserveA:     new(big.Int),
			newReserveB:     new(big.Int),
		}
	},
}

// GetAmountOut computes the output amount for amountIn swapped tokenIn -> the
// pool's other token, per spec §5's constant-product formula.
func GetAmountOut(amountIn *big.Int, tokenIn dexcommon.Address, pool store.Pool) (*big.Int, error) {
	c := calculatorPool.Get().(*Calculator)
	defer calculatorPool.Put(c)
	return c.getAmountOut(amountIn, tokenIn, pool)
}

// GetAmountIn computes the input amount required to receive amountOut of the
// other token, the inverse of GetAmountOut.
func GetAmountIn(amountOut *big.Int, tokenIn dexcommon.Address, pool store.Pool) (*big.Int, error) {
	c := calculatorPool.Get().(*Calculator)
	defer calculatorPool.Put(c)
	return c.getAmountIn(amountOut, tokenIn, pool)
}

// SimulateSwap computes the output amount and the pool's post-swap reserve
// state, without mutating the caller's pool.
func SimulateSwap(amountIn *big.Int, tokenIn dexcommon.Address, pool store.Pool) (*big.Int, store.Pool, error) {
	c := calculatorPool.Get().(*Calculator)
	defer calculatorPool.Put(c)
	return c.simulateSwap(amountIn, tokenIn, pool)
}

func (c *Calculator) getAmountOut(amountIn *big.Int, tokenIn dexcommon.Address, pool store.Pool) (*big.Int, error) {
	if amountIn == nil {
		return nil, fmt.Errorf("%w: nil amountIn", dexerr.ErrMath)
	}
	if amountIn.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative amountIn", dexerr.ErrMath)
	}

	reserveIn, reserveOut, err := Reserves(tokenIn, pool)
	if err != nil {
		return nil, err
	}
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return new(big.Int), nil
	}

	c.feeMultiplier.SetInt64(feeOf(pool))
	c.amountInWithFee.Mul(amountIn, c.feeMultiplier)
	c.numerator.Mul(reserveOut, c.amountInWithFee)
	c.denominator.Mul(reserveIn, basisPointDivisor)
	c.denominator.Add(c.denominator, c.amountInWithFee)

	if c.denominator.Sign() == 0 {
		return nil, dexerr.Math(dexerr.MathZeroBitScan, errZeroDenominator)
	}
	return new(big.Int).Div(c.numerator, c.denominator), nil
}

func (c *Calculator) getAmountIn(amountOut *big.Int, tokenIn dexcommon.Address, pool store.Pool) (*big.Int, error) {
	if amountOut == nil {
		return nil, fmt.Errorf("%w: nil amountOut", dexerr.ErrMath)
	}
	if amountOut.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative amountOut", dexerr.ErrMath)
	}

	reserveIn, reserveOut, err := Reserves(tokenIn, pool)
	if err != nil {
		return nil, err
	}
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 || amountOut.Cmp(reserveOut) >= 0 {
		return nil, fmt.Errorf("%w: requested amountOut %s >= reserveOut %s", dexerr.ErrMath, amountOut, reserveOut)
	}

	c.numeratorIn.Mul(reserveIn, amountOut)
	c.numeratorIn.Mul(c.numeratorIn, basisPointDivisor)

	c.feeMultiplier.SetInt64(feeOf(pool))
	c.denominatorIn.Sub(reserveOut, amountOut)
	c.denominatorIn.Mul(c.denominatorIn, c.feeMultiplier)

	if c.denominatorIn.Sign() == 0 {
		return nil, dexerr.Math(dexerr.MathZeroBitScan, errZeroDenominator)
	}

	amountIn := new(big.Int).Div(c.numeratorIn, c.denominatorIn)
	return amountIn.Add(amountIn, big.NewInt(1)), nil
}

func (c *Calculator) simulateSwap(amountIn *big.Int, tokenIn dexcommon.Address, pool store.Pool) (*big.Int, store.Pool, error) {
	amountOut, err := c.getAmountOut(amountIn, tokenIn, pool)
	if err != nil {
		return nil, store.Pool{}, err
	}

	next := pool.Clone()
	if tokenIn == pool.TokenA {
		c.newReserveA.Add(pool.ReserveA, amountIn)
		c.newReserveB.Sub(pool.ReserveB, amountOut)
	} else {
		c.newReserveB.Add(pool.ReserveB, amountIn)
		c.newReserveA.Sub(pool.ReserveA, amountOut)
	}
	next.ReserveA = new(big.Int).Set(c.newReserveA)
	next.ReserveB = new(big.Int).Set(c.newReserveB)

	return amountOut, next, nil
}

// Reserves returns (reserveIn, reserveOut) for a swap starting at tokenIn,
// selected by comparing tokenIn against the pool's token_a (spec §5).
func Reserves(tokenIn dexcommon.Address, pool store.Pool) (reserveIn, reserveOut *big.Int, err error) {
	switch tokenIn {
	case pool.TokenA:
		return pool.ReserveA, pool.ReserveB, nil
	case pool.TokenB:
		return pool.ReserveB, pool.ReserveA, nil
	default:
		return nil, nil, fmt.Errorf("%w: pool %s does not contain token %s",
			dexerr.ErrInvalidDex, dexcommon.AddrHex(pool.Address), dexcommon.AddrHex(tokenIn))
	}
}
