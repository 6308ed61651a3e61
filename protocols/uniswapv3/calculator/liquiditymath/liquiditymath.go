// Package liquiditymath implements AddDelta and its inverse BeforeAddDelta,
// the checked signed-delta-over-unsigned-liquidity arithmetic used by the
// V3 simulator's cross-tick liquidity update and by the reducer's
// cold-cache recovery path (spec §4.1, §4.3 step 3).
package liquiditymath

import (
	"errors"
	"math/big"
)

var (
	maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

	ErrLiquidityOverflow  = errors.New("liquidity overflow")
	ErrLiquidityUnderflow = errors.New("liquidity underflow")
)

// AddDelta writes x+y into dest, erroring on underflow (negative result) or
// overflow (result exceeding the uint128 range).
func AddDelta(dest *big.Int, x *big.Int, y *big.Int) error {
	dest.Add(x, y)

	if dest.Sign() < 0 {
		return ErrLiquidityUnderflow
	}
	if dest.Cmp(maxUint128) > 0 {
		return ErrLiquidityOverflow
	}
	return nil
}

// BeforeAddDelta writes into dest the liquidity value that must have
// preceded a delta y to reach the observed value after, i.e. the value
// `before` such that AddDelta(_, before, y) == after. Used when a tick
// record is fetched fresh from the chain node as a post-delta snapshot and
// the pre-delta gross liquidity needs to be reconstructed (spec §4.3 step 3).
func BeforeAddDelta(dest *big.Int, after *big.Int, y *big.Int) error {
	dest.Sub(after, y)

	if dest.Sign() < 0 {
		return ErrLiquidityUnderflow
	}
	if dest.Cmp(maxUint128) > 0 {
		return ErrLiquidityOverflow
	}
	return nil
}
