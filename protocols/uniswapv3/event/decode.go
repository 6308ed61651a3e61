// Package event implements the V3 event decoder and reducer (spec §4.3):
// Swap is an authoritative chain snapshot applied straight to the cached
// pool; Mint/Burn carry an incremental liquidity delta that modify_position
// folds into the cached tick records and bitmap words. Grounded on
// original_source/dexquote/src/event/univ3/{decode,mod,ticks,tick_bitmap}.rs.
package event

import (
	"fmt"
	"math/big"

	"github.com/dexquoter/dexquoter/internal/bigmath"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Canonical event signatures (spec §6 "Wire/event signatures").
const (
	SwapEventSignature = "Swap(address,address,int256,int256,uint160,uint128,int24)"
	MintEventSignature = "Mint(address,address,int24,int24,uint128,uint256,uint256)"
	BurnEventSignature = "Burn(address,int24,int24,uint128,uint256,uint256)"
)

var (
	swapArgs = mustArgs("int256", "int256", "uint160", "uint128", "int24")
	// Mint's non-indexed data carries a leading `sender` address ahead of
	// the (amount, amount0, amount1) tuple that Burn's data lacks --
	// decode_mint_event and decode_burn_event in original_source use two
	// distinct argument shapes even though both logs end up as the same
	// UniV3MintEvent/LiquidityEvent struct.
	mintArgs = mustArgs("address", "uint128", "uint256", "uint256")
	burnArgs = mustArgs("uint128", "uint256", "uint256")
)

func mustArgs(types ...string) abi.Arguments {
	args := make(abi.Arguments, len(types))
	for i, t := range types {
		typ, err := abi.NewType(t, "", nil)
		if err != nil {
			panic("event: invalid abi type " + t + ": " + err.Error())
		}
		args[i] = abi.Argument{Type: typ}
	}
	return args
}

// SwapEvent is the decoded non-indexed payload of a V3 Swap log.
type SwapEvent struct {
	Amount0      *big.Int
	Amount1      *big.Int
	SqrtPriceX96 *big.Int
	Liquidity    *big.Int
	Tick         int64
}

// DecodeSwapEvent parses a V3 Swap log's data field:
// (amount0: i256, amount1: i256, sqrt_price: u160, liquidity: u128, tick: i24).
func DecodeSwapEvent(data []byte) (SwapEvent, error) {
	vals, err := swapArgs.Unpack(data)
	if err != nil {
		return SwapEvent{}, fmt.Errorf("event: decode v3 swap: %w", err)
	}
	return SwapEvent{
		Amount0:      vals[0].(*big.Int),
		Amount1:      vals[1].(*big.Int),
		SqrtPriceX96: vals[2].(*big.Int),
		Liquidity:    vals[3].(*big.Int),
		Tick:         vals[4].(*big.Int).Int64(),
	}, nil
}

// LiquidityEvent is the decoded (amount, amount0, amount1) payload shared by
// Mint and Burn logs.
type LiquidityEvent struct {
	Amount  *big.Int // u128
	Amount0 *big.Int
	Amount1 *big.Int
}

// DecodeMintEvent parses a V3 Mint log's data field, discarding the leading
// sender address original_source's decode_mint_event also discards.
func DecodeMintEvent(data []byte) (LiquidityEvent, error) {
	vals, err := mintArgs.Unpack(data)
	if err != nil {
		return LiquidityEvent{}, fmt.Errorf("event: decode v3 mint: %w", err)
	}
	return LiquidityEvent{
		Amount:  vals[1].(*big.Int),
		Amount0: vals[2].(*big.Int),
		Amount1: vals[3].(*big.Int),
	}, nil
}

// DecodeBurnEvent parses a V3 Burn log's data field: (amount, amount0, amount1),
// with no leading address -- unlike Mint, Burn carries no `sender` parameter.
func DecodeBurnEvent(data []byte) (LiquidityEvent, error) {
	vals, err := burnArgs.Unpack(data)
	if err != nil {
		return LiquidityEvent{}, fmt.Errorf("event: decode v3 burn: %w", err)
	}
	return LiquidityEvent{
		Amount:  vals[0].(*big.Int),
		Amount0: vals[1].(*big.Int),
		Amount1: vals[2].(*big.Int),
	}, nil
}

// DecodeTickTopic reads an indexed int24 tick out of a log topic word
// (topics[2] for tick_lower, topics[3] for tick_upper on Mint/Burn), the way
// original_source's `i32::decode(log.topics[n])` treats the whole 32-byte
// word as a sign-extended integer.
func DecodeTickTopic(topic common.Hash) int64 {
	return bigmath.BytesToSignedI256(topic.Bytes()).Int64()
}
