// Package tickbitmap implements the V3 bitmap cursor: given a starting tick
// and a direction, find the next initialized tick within the current 256-bit
// bitmap word (spec §4.5). Unlike the teacher's tickbitmap package -- which
// operates on a pre-sorted slice of ticks via sort.Search, a simplification
// that does not match a real on-chain bitmap -- this implementation reads
// genuine 256-bit words through an injected WordSource, grounded on the
// teacher's own bitset package (adapted here to a single 256-bit big.Int
// per word rather than an arbitrary-length []uint64) and on
// original_source's price/uni_v3/tick_bitmap.rs, which this transcribes
// step for step.
package tickbitmap

import (
	"context"
	"math/big"

	"github.com/dexquoter/dexquoter/protocols/uniswapv3/calculator/bitmath"
)

// WordSource loads the 256-bit bitmap word at wordPos, fetching from a
// chain node and caching into the store if the word is not yet cached --
// the "missing-data fetcher" capability named in spec §9. Absent words are
// represented as zero, never as an error.
type WordSource interface {
	Word(ctx context.Context, wordPos int16) (*big.Int, error)
}

var one = big.NewInt(1)

// Position splits a compressed tick into its word position and bit position:
// word_pos = compressed >> 8, bit_pos = compressed & 0xFF.
func Position(compressed int64) (wordPos int16, bitPos uint8) {
	return int16(compressed >> 8), uint8(compressed & 0xFF)
}

// NextInitializedTickWithinOneWord finds the next initialized tick within
// the bitmap word containing `tick`, in the direction given by lte
// (true: search at-or-below for zeroForOne swaps; false: search above).
func NextInitializedTickWithinOneWord(
	ctx context.Context,
	src WordSource,
	tick int64,
	tickSpacing int64,
	lte bool,
) (next int64, initialized bool, err error) {
	compressed := tick / tickSpacing
	if tick < 0 && tick%tickSpacing != 0 {
		compressed--
	}

	if lte {
		wordPos, bitPos := Position(compressed)
		mask := new(big.Int).Sub(new(big.Int).Lsh(one, uint(bitPos)), one)
		mask.Add(mask, new(big.Int).Lsh(one, uint(bitPos)))

		word, ferr := src.Word(ctx, wordPos)
		if ferr != nil {
			return 0, false, ferr
		}

		masked := new(big.Int).And(word, mask)
		initialized = masked.Sign() != 0

		if initialized {
			msb, berr := bitmath.MostSignificantBit(masked)
			if berr != nil {
				return 0, false, berr
			}
			next = (compressed - int64(bitPos-msb)) * tickSpacing
		} else {
			next = (compressed - int64(bitPos)) * tickSpacing
		}
		return next, initialized, nil
	}

	wordPos, bitPos := Position(compressed + 1)
	mask := new(big.Int).Sub(new(big.Int).Lsh(one, uint(bitPos)), one)
	mask.Not(mask)
	// Keep the complement within 256 bits, matching U256's wrapping `!`.
	mask.And(mask, maxUint256)

	word, ferr := src.Word(ctx, wordPos)
	if ferr != nil {
		return 0, false, ferr
	}

	masked := new(big.Int).And(word, mask)
	initialized = masked.Sign() != 0

	if initialized {
		lsb, berr := bitmath.LeastSignificantBit(masked)
		if berr != nil {
			return 0, false, berr
		}
		// Overflow in this subtraction is intentional (wrapping unsigned
		// subtraction in the reference implementation) when lsb < bitPos;
		// it cannot occur here because lsb is, by construction, >= bitPos
		// within the masked-above-bitPos word.
		next = (compressed + 1 + int64(lsb-bitPos)) * tickSpacing
	} else {
		next = (compressed + 1 + int64(255-bitPos)) * tickSpacing
	}
	return next, initialized, nil
}

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
