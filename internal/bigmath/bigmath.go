// Package bigmath provides the fixed-width integer primitives (C1) the V3
// math and the store's encoding contract share: hex codecs for u128/i128/u256
// store fields, and bounds shared with holiman/uint256-backed V3 math.
// Grounded on the teacher's protocols/uniswapv3/calculator packages, which
// already hold big.Int destination-pointer math (tickmath, sqrtpricemath);
// this package holds the codec half that the teacher never needed because it
// never persisted pool state to a hex-encoded key-value store.
package bigmath

import (
	"encoding/hex"
	"fmt"
	"math/big"
)

var (
	MaxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	two128 = new(big.Int).Lsh(big.NewInt(1), 128)
	two256 = new(big.Int).Lsh(big.NewInt(1), 256)
)

// EncodeHexU encodes a non-negative integer as lowercase unprefixed hex,
// matching the store's u128/u256/sqrt_price_x96 encoding contract.
func EncodeHexU(x *big.Int) string {
	if x.Sign() == 0 {
		return "0"
	}
	return x.Text(16)
}

// DecodeHexU decodes a store-encoded unsigned hex field.
func DecodeHexU(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return nil, fmt.Errorf("bigmath: invalid hex uint %q", s)
	}
	if n.Sign() < 0 {
		return nil, fmt.Errorf("bigmath: negative value in unsigned field %q", s)
	}
	return n, nil
}

// EncodeHexI128 encodes a signed 128-bit integer as two's-complement hex,
// matching the store's liquidity_net encoding contract.
func EncodeHexI128(x *big.Int) string {
	if x.Sign() >= 0 {
		return EncodeHexU(x)
	}
	twos := new(big.Int).Add(two128, x)
	return twos.Text(16)
}

// DecodeHexI128 decodes a two's-complement signed 128-bit hex field.
func DecodeHexI128(s string) (*big.Int, error) {
	u, err := DecodeHexU(s)
	if err != nil {
		return nil, err
	}
	if u.Cmp(MaxUint128) > 0 {
		return nil, fmt.Errorf("bigmath: i128 field %q exceeds 128 bits", s)
	}
	half := new(big.Int).Rsh(two128, 1)
	if u.Cmp(half) >= 0 {
		return new(big.Int).Sub(u, two128), nil
	}
	return u, nil
}

// DecodeHexI256 decodes a two's-complement signed 256-bit hex field. The
// event decoders do not call it; they read int256 fields through
// go-ethereum's abi package.
func DecodeHexI256(s string) (*big.Int, error) {
	u, err := DecodeHexU(s)
	if err != nil {
		return nil, err
	}
	if u.Cmp(MaxUint256) > 0 {
		return nil, fmt.Errorf("bigmath: i256 field %q exceeds 256 bits", s)
	}
	half := new(big.Int).Rsh(two256, 1)
	if u.Cmp(half) >= 0 {
		return new(big.Int).Sub(u, two256), nil
	}
	return u, nil
}

// BytesToSignedI256 interprets a 32-byte big-endian word as a two's-complement
// signed 256-bit integer, the shape go-ethereum's abi decoder hands back for
// a plain (non-tuple) int256 parameter read as *big.Int with the sign already
// applied -- used when decoding raw log words directly.
func BytesToSignedI256(b []byte) *big.Int {
	u := new(big.Int).SetBytes(b)
	if u.Cmp(new(big.Int).Rsh(two256, 1)) >= 0 {
		u.Sub(u, two256)
	}
	return u
}

// HexBytes decodes a 0x-prefixed or bare hex string into bytes.
func HexBytes(s string) ([]byte, error) {
	if len(s) >= 2 && s[0:2] == "0x" {
		s = s[2:]
	}
	return hex.DecodeString(s)
}
