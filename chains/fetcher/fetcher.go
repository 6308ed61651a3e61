// Package fetcher implements the injectable "missing-data fetcher"
// capability named in spec §9: on a cold cache, the V3 simulator and the
// event reducer need to pull a tick record or a bitmap word straight from
// the chain node rather than drop the update. Grounded on
// original_source/dexquote/src/db/univ3/mod.rs's abigen! block (the
// on-chain `ticks(int24)` / `tickBitmap(int16)` view functions) and on the
// teacher's chains/ethereum.Client Dial constructor, reduced to a plain
// context-and-URL Dial with no options.
package fetcher

import (
	"context"
	"math/big"
	"strings"

	"github.com/dexquoter/dexquoter/dexcommon"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
)

// poolABI mirrors the abigen! fragment from original_source/db/univ3/mod.rs:
// the two read-only views the reducer and simulator fall back to.
var poolABI = mustParseABI(`[
	{"name":"ticks","type":"function","stateMutability":"view",
	 "inputs":[{"name":"tick","type":"int24"}],
	 "outputs":[
		{"name":"liquidityGross","type":"uint128"},
		{"name":"liquidityNet","type":"int128"},
		{"name":"feeGrowthOutside0X128","type":"uint256"},
		{"name":"feeGrowthOutside1X128","type":"uint256"},
		{"name":"tickCumulativeOutside","type":"int56"},
		{"name":"secondsPerLiquidityOutsideX128","type":"uint160"},
		{"name":"secondsOutside","type":"uint32"},
		{"name":"initialized","type":"bool"}
	 ]},
	{"name":"tickBitmap","type":"function","stateMutability":"view",
	 "inputs":[{"name":"wordPos","type":"int16"}],
	 "outputs":[{"name":"","type":"uint256"}]}
]`)

func mustParseABI(j string) abi.ABI {
	a, err := abi.JSON(strings.NewReader(j))
	if err != nil {
		panic("fetcher: invalid embedded ABI: " + err.Error())
	}
	return a
}

// Fetcher is the chain-node read path the reducer (C4) and the V3
// simulator (C5) use when a tick or bitmap word is absent from the store.
type Fetcher interface {
	// FetchTick returns the post-state (liquidityGross, liquidityNet) for a
	// tick, read live from the pool contract.
	FetchTick(ctx context.Context, pool dexcommon.Address, tick int64) (liquidityGross, liquidityNet *big.Int, err error)
	// FetchBitmapWord returns the 256-bit tick-bitmap word at wordPos.
	FetchBitmapWord(ctx context.Context, pool dexcommon.Address, wordPos int16) (*big.Int, error)
}

// RPCFetcher implements Fetcher over a raw JSON-RPC client via eth_call,
// the same read path original_source uses through ethers' abigen bindings.
type RPCFetcher struct {
	client *rpc.Client
}

// Dial connects an RPCFetcher to a JSON-RPC endpoint.
func Dial(ctx context.Context, url string) (*RPCFetcher, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return &RPCFetcher{client: c}, nil
}

func (f *RPCFetcher) FetchTick(ctx context.Context, pool dexcommon.Address, tick int64) (*big.Int, *big.Int, error) {
	data, err := poolABI.Pack("ticks", big.NewInt(tick))
	if err != nil {
		return nil, nil, err
	}
	out, err := f.ethCall(ctx, pool, data)
	if err != nil {
		return nil, nil, err
	}
	vals, err := poolABI.Unpack("ticks", out)
	if err != nil {
		return nil, nil, err
	}
	return vals[0].(*big.Int), vals[1].(*big.Int), nil
}

func (f *RPCFetcher) FetchBitmapWord(ctx context.Context, pool dexcommon.Address, wordPos int16) (*big.Int, error) {
	data, err := poolABI.Pack("tickBitmap", wordPos)
	if err != nil {
		return nil, err
	}
	out, err := f.ethCall(ctx, pool, data)
	if err != nil {
		return nil, err
	}
	vals, err := poolABI.Unpack("tickBitmap", out)
	if err != nil {
		return nil, err
	}
	return vals[0].(*big.Int), nil
}

type callMsg struct {
	To   common.Address `json:"to"`
	Data string         `json:"data"`
}

func (f *RPCFetcher) ethCall(ctx context.Context, pool dexcommon.Address, data []byte) ([]byte, error) {
	var result string
	msg := callMsg{To: pool, Data: "0x" + common.Bytes2Hex(data)}
	if err := f.client.CallContext(ctx, &result, "eth_call", msg, "latest"); err != nil {
		return nil, err
	}
	return common.FromHex(result), nil
}
