// Package dexcommon holds the core entity types shared across the store,
// the event reducer, the simulators, and the graph: Address, ChainID,
// PoolKind, and the constants that bound V3 tick/price math.
package dexcommon

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Address is a 20-byte identifier, ordered by byte-lexicographic comparison.
// It doubles as token id, pool id, and user id per the data model.
type Address = common.Address

// ChainID namespaces every store key.
type ChainID uint64

// PoolKind distinguishes the two supported AMM shapes.
type PoolKind uint8

const (
	PoolKindUnknown PoolKind = iota
	PoolKindV2
	PoolKindV3
)

func (k PoolKind) String() string {
	switch k {
	case PoolKindV2:
		return "UNIV2"
	case PoolKindV3:
		return "UNIV3"
	default:
		return "UNKNOWN"
	}
}

// ParsePoolKind maps the store's "dex" field back to a PoolKind.
func ParsePoolKind(s string) (PoolKind, bool) {
	switch s {
	case "UNIV2":
		return PoolKindV2, true
	case "UNIV3":
		return PoolKindV3, true
	default:
		return PoolKindUnknown, false
	}
}

// V3 tick and sqrt-price bounds, per the Uniswap V3 reference implementation.
var (
	MinTick = int64(-887272)
	MaxTick = int64(887272)

	MinSqrtRatio, _ = new(big.Int).SetString("4295128739", 10)
	MaxSqrtRatio, _ = new(big.Int).SetString("1461446703485210103287273052203988822378723970342", 10)
)

// TickSpacing returns the tick spacing for a V3 fee tier, and false if the
// fee is not one of the four supported tiers.
func TickSpacing(fee uint32) (int64, bool) {
	switch fee {
	case 100:
		return 1, true
	case 500:
		return 10, true
	case 3000:
		return 60, true
	case 10000:
		return 200, true
	default:
		return 0, false
	}
}

// AddrHex renders an address the way the store keys it: lowercase, 40 hex
// characters, no "0x" prefix. common.Address.Hex() applies an EIP-55
// checksum (mixed case); the store wants the original_source address_str
// convention (hex.encode, no checksum), so this encodes the raw bytes.
func AddrHex(addr Address) string {
	return hex.EncodeToString(addr.Bytes())
}

// HexAddr is the inverse of AddrHex: it parses a lowercase 40-hex address
// (no "0x" prefix) back into an Address.
func HexAddr(s string) (Address, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, fmt.Errorf("dexcommon: invalid address hex %q: %w", s, err)
	}
	if len(b) != 20 {
		return Address{}, fmt.Errorf("dexcommon: address %q is not 20 bytes", s)
	}
	var addr Address
	copy(addr[:], b)
	return addr, nil
}
