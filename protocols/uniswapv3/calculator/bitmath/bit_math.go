// Package bitmath implements MostSignificantBit/LeastSignificantBit over
// arbitrary-width integers, used by the tick-bitmap cursor (spec §4.5).
package bitmath

import (
	"errors"
	"math/big"
	"math/bits"
)

var (
	ErrInputIsZero = errors.New("input must be greater than zero")
	ErrInputIsNil  = errors.New("input cannot be nil")
)

// MostSignificantBit returns the index of the highest set bit (LSB at index 0).
func MostSignificantBit(x *big.Int) (uint8, error) {
	if x == nil {
		return 0, ErrInputIsNil
	}
	if x.Sign() <= 0 {
		return 0, ErrInputIsZero
	}
	return uint8(x.BitLen() - 1), nil
}

// LeastSignificantBit returns the index of the lowest set bit (LSB at index 0).
func LeastSignificantBit(x *big.Int) (uint8, error) {
	if x == nil {
		return 0, ErrInputIsNil
	}
	if x.Sign() <= 0 {
		return 0, ErrInputIsZero
	}

	words := x.Bits()
	for i, word := range words {
		if word > 0 {
			return uint8(i*64 + bits.TrailingZeros64(uint64(word))), nil
		}
	}
	return 0, ErrInputIsZero
}
