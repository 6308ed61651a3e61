// Package event implements the V2 Sync/Swap log decoder (spec §4.3 "V2
// Sync"/"V2 Swap (informational)"). Grounded on
// original_source/dexquote/src/event/univ2/mod.rs, transcribed argument
// shape for argument shape including the Velodrome-compatible 256-bit Sync
// variant.
package event

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Canonical event signatures (spec §6 "Wire/event signatures").
const (
	SyncEventSignature = "Sync(uint112,uint112)"
	SwapEventSignature = "Swap(address,uint256,uint256,uint256,uint256,address)"
)

var (
	syncArgs          = mustArgs("uint112", "uint112")
	velodromeSyncArgs = mustArgs("uint256", "uint256")
	swapArgs          = mustArgs("uint256", "uint256", "uint256", "uint256")
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

// SyncEvent is the decoded (reserve0, reserve1) payload of a V2 Sync log.
type SyncEvent struct {
	Reserve0 *big.Int
	Reserve1 *big.Int
}

// DecodeSyncEvent parses a standard V2 Sync log's data field: (uint112, uint112).
func DecodeSyncEvent(data []byte) (SyncEvent, error) {
	vals, err := syncArgs.Unpack(data)
	if err != nil {
		return SyncEvent{}, fmt.Errorf("event: decode v2 sync: %w", err)
	}
	return SyncEvent{Reserve0: vals[0].(*big.Int), Reserve1: vals[1].(*big.Int)}, nil
}

// DecodeVelodromeSyncEvent parses the Velodrome-compatible variant, whose
// reserves are encoded as full uint256 words but carry the same magnitude.
func DecodeVelodromeSyncEvent(data []byte) (SyncEvent, error) {
	vals, err := velodromeSyncArgs.Unpack(data)
	if err != nil {
		return SyncEvent{}, fmt.Errorf("event: decode velodrome sync: %w", err)
	}
	return SyncEvent{Reserve0: vals[0].(*big.Int), Reserve1: vals[1].(*big.Int)}, nil
}

// DecodeSwapEvent parses a V2 Swap log's data field --
// (amount0In, amount1In, amount0Out, amount1Out), all uint256 -- and
// collapses it to (amountIn, amountOut, zeroForOne), selected by whether
// amount0In is nonzero (spec §4.3 "V2 Swap (informational)").
func DecodeSwapEvent(data []byte) (amountIn, amountOut *big.Int, zeroForOne bool, err error) {
	vals, err := swapArgs.Unpack(data)
	if err != nil {
		return nil, nil, false, fmt.Errorf("event: decode v2 swap: %w", err)
	}
	amount0In := vals[0].(*big.Int)
	amount1In := vals[1].(*big.Int)
	amount0Out := vals[2].(*big.Int)
	amount1Out := vals[3].(*big.Int)

	if amount0In.Sign() != 0 {
		return amount0In, amount1Out, true, nil
	}
	return amount1In, amount0Out, false, nil
}
