// Package sync implements the live sync coordinator (C10, spec.md §4.9):
// one log subscription feeding a buffered channel, drained by N worker
// goroutines that each invoke the event reducer (§4.3) concurrently.
// Grounded on original_source/dexquote/src/sync/mod.rs's
// update_pool_state dispatch (by topic0 signature hash) and its
// one-subscriber/N-workers-over-an-unbounded-channel shape, adapted to
// Go idioms the way streams/jsonrpc/client.StreamProcessor separates
// pure dispatch logic from the networking layer.
package sync

import (
	"context"
	"math/big"

	"github.com/dexquoter/dexquoter/dexcommon"
	v2event "github.com/dexquoter/dexquoter/protocols/uniswapv2/event"
	v3event "github.com/dexquoter/dexquoter/protocols/uniswapv3/event"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/dexquoter/dexquoter/logging"
)

// Log is the subset of an RPC log entry the dispatcher needs: the
// emitting pool address, the indexed topic words, and the ABI-encoded
// data field (spec §6 "Wire/event signatures").
type Log struct {
	Address dexcommon.Address
	Topics  []common.Hash
	Data    []byte
	TxHash  common.Hash
}

var (
	v3SwapTopic = crypto.Keccak256Hash([]byte(v3event.SwapEventSignature))
	v3MintTopic = crypto.Keccak256Hash([]byte(v3event.MintEventSignature))
	v3BurnTopic = crypto.Keccak256Hash([]byte(v3event.BurnEventSignature))
	v2SyncTopic = crypto.Keccak256Hash([]byte(v2event.SyncEventSignature))
)

// Dispatcher routes a decoded log to the right decoder and reducer by its
// topic0 signature hash. Per spec §7's best-effort reducer policy, every
// failure -- a decode error, a missing pool, a math error -- is logged at
// Warn and dropped; Dispatch never returns an error, and one bad event
// never blocks or poisons the ones after it.
type Dispatcher struct {
	V3      *v3event.Reducer
	V2      *v2event.Reducer
	Logger  logging.Logger
	Metrics *Metrics
}

func (d *Dispatcher) logger() logging.Logger {
	if d.Logger == nil {
		return logging.Nop{}
	}
	return d.Logger
}

// Dispatch applies one log to the cached pool state. V2 Swap logs carry
// no signature this dispatcher recognizes by design -- spec §4.3 marks
// them "informational" with no corresponding apply path -- so they, and
// any other unrecognized topic0, are silently ignored.
func (d *Dispatcher) Dispatch(ctx context.Context, chain dexcommon.ChainID, log Log) {
	if len(log.Topics) == 0 {
		return
	}

	switch log.Topics[0] {
	case v3SwapTopic:
		d.dispatchV3Swap(ctx, chain, log)
	case v3MintTopic:
		d.dispatchV3Liquidity(ctx, chain, log, true)
	case v3BurnTopic:
		d.dispatchV3Liquidity(ctx, chain, log, false)
	case v2SyncTopic:
		d.dispatchV2Sync(ctx, chain, log)
	}
}

func (d *Dispatcher) dispatchV3Swap(ctx context.Context, chain dexcommon.ChainID, log Log) {
	ev, err := v3event.DecodeSwapEvent(log.Data)
	if err != nil {
		d.logger().Warn("sync: decode v3 swap event failed", "pool", dexcommon.AddrHex(log.Address), "error", err)
		d.Metrics.dropped("v3_swap")
		return
	}
	if err := d.V3.ApplySwapEvent(ctx, chain, log.Address, ev); err != nil {
		d.logger().Warn("sync: apply v3 swap event failed", "pool", dexcommon.AddrHex(log.Address), "error", err)
		d.Metrics.dropped("v3_swap")
		return
	}
	d.Metrics.applied("v3_swap")
}

func (d *Dispatcher) dispatchV3Liquidity(ctx context.Context, chain dexcommon.ChainID, log Log, isMint bool) {
	eventName := "v3_burn"
	if isMint {
		eventName = "v3_mint"
	}

	if len(log.Topics) < 4 {
		d.logger().Warn("sync: liquidity event missing indexed tick topics", "pool", dexcommon.AddrHex(log.Address))
		d.Metrics.dropped(eventName)
		return
	}
	tickLower := v3event.DecodeTickTopic(log.Topics[2])
	tickUpper := v3event.DecodeTickTopic(log.Topics[3])

	var (
		amount *big.Int
		err    error
	)
	if isMint {
		var ev v3event.LiquidityEvent
		ev, err = v3event.DecodeMintEvent(log.Data)
		amount = ev.Amount
	} else {
		var ev v3event.LiquidityEvent
		ev, err = v3event.DecodeBurnEvent(log.Data)
		amount = ev.Amount
	}
	if err != nil {
		d.logger().Warn("sync: decode v3 liquidity event failed", "pool", dexcommon.AddrHex(log.Address), "mint", isMint, "error", err)
		d.Metrics.dropped(eventName)
		return
	}

	delta := new(big.Int).Set(amount)
	if !isMint {
		delta.Neg(delta)
	}

	err = d.V3.ModifyPosition(ctx, chain, v3event.LiquidityUpdate{
		Pool: log.Address, TickLower: tickLower, TickUpper: tickUpper,
		LiquidityDelta: delta, IsMint: isMint,
	})
	if err != nil {
		d.logger().Warn("sync: modify position failed", "pool", dexcommon.AddrHex(log.Address), "error", err)
		d.Metrics.dropped(eventName)
		return
	}
	d.Metrics.applied(eventName)
}

func (d *Dispatcher) dispatchV2Sync(ctx context.Context, chain dexcommon.ChainID, log Log) {
	ev, err := v2event.DecodeSyncEvent(log.Data)
	if err != nil {
		d.logger().Warn("sync: decode v2 sync event failed", "pool", dexcommon.AddrHex(log.Address), "error", err)
		d.Metrics.dropped("v2_sync")
		return
	}
	if err := d.V2.ApplySyncEvent(ctx, chain, log.Address, ev); err != nil {
		d.logger().Warn("sync: apply v2 sync event failed", "pool", dexcommon.AddrHex(log.Address), "error", err)
		d.Metrics.dropped("v2_sync")
		return
	}
	d.Metrics.applied("v2_sync")
}
