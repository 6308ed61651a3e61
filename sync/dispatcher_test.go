package sync

import (
	"context"
	"math/big"
	"testing"

	"github.com/dexquoter/dexquoter/dexcommon"
	v2event "github.com/dexquoter/dexquoter/protocols/uniswapv2/event"
	"github.com/dexquoter/dexquoter/protocols/uniswapv3/calculator/tickbitmap"
	v3event "github.com/dexquoter/dexquoter/protocols/uniswapv3/event"
	"github.com/dexquoter/dexquoter/store"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedZeroTick and seedZeroBitmapWord pre-populate the warm-cache
// precondition ModifyPosition assumes when no fetcher is configured: a
// known-but-uninitialized tick/bitmap word, so a cold-cache lookup never
// triggers the (here absent) chain-fetcher fallback.
func seedZeroTick(t *testing.T, s store.Store, tick int64) {
	t.Helper()
	require.NoError(t, s.PutTick(context.Background(), testChain, testPoolAddr, tick, store.TickRecord{
		LiquidityGross: big.NewInt(0), LiquidityNet: big.NewInt(0),
	}))
}

func seedZeroBitmapWord(t *testing.T, s store.Store, tick, tickSpacing int64) {
	t.Helper()
	wordPos, _ := tickbitmap.Position(tick / tickSpacing)
	require.NoError(t, s.PutBitmapWord(context.Background(), testChain, testPoolAddr, wordPos, new(big.Int)))
}

// flipBitForTest sets the bitmap bit for an already-initialized tick, the
// precondition a Burn that flips a tick back to uninitialized assumes.
func flipBitForTest(s store.Store, tickSpacing, tick int64) error {
	wordPos, bitPos := tickbitmap.Position(tick / tickSpacing)
	word, _, err := s.GetBitmapWord(context.Background(), testChain, testPoolAddr, wordPos)
	if err != nil {
		return err
	}
	if word == nil {
		word = new(big.Int)
	}
	word = new(big.Int).Or(word, new(big.Int).Lsh(big.NewInt(1), uint(bitPos)))
	return s.PutBitmapWord(context.Background(), testChain, testPoolAddr, wordPos, word)
}

const testChain = dexcommon.ChainID(42161)

var testPoolAddr = common.HexToAddress("0xFF970A61A04b1cA14834A43f5dE4533eBDDB5CC8")

func abiType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

func packArgs(types []string, values ...any) []byte {
	args := make(abi.Arguments, len(types))
	for i, t := range types {
		args[i] = abi.Argument{Type: abiType(t)}
	}
	data, err := args.Pack(values...)
	if err != nil {
		panic(err)
	}
	return data
}

func newV3Pool() store.Pool {
	return store.Pool{
		Kind: dexcommon.PoolKindV3, Address: testPoolAddr, Fee: 3000,
		TokenA: common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"), TokenB: testPoolAddr,
		Liquidity: big.NewInt(1000), SqrtPriceX96: big.NewInt(1), Tick: 0, TickSpacing: 60,
	}
}

func newV2Pool() store.Pool {
	return store.Pool{
		Kind: dexcommon.PoolKindV2, Address: testPoolAddr,
		TokenA: common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"), TokenB: testPoolAddr,
		ReserveA: big.NewInt(100), ReserveB: big.NewInt(200),
	}
}

func TestDispatchV3SwapAppliesSnapshot(t *testing.T) {
	s := store.NewMemStore()
	require.NoError(t, s.PutPool(context.Background(), testChain, newV3Pool()))
	d := &Dispatcher{V3: &v3event.Reducer{Store: s}, V2: &v2event.Reducer{Store: s}}

	data := packArgs([]string{"int256", "int256", "uint160", "uint128", "int24"},
		big.NewInt(100), big.NewInt(-200), big.NewInt(79228162514264337593543950336), big.NewInt(5000), big.NewInt(120))

	d.Dispatch(context.Background(), testChain, Log{
		Address: testPoolAddr,
		Topics:  []common.Hash{crypto.Keccak256Hash([]byte(v3event.SwapEventSignature))},
		Data:    data,
	})

	got, ok, err := s.GetPool(context.Background(), testChain, testPoolAddr)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(120), got.Tick)
	assert.Equal(t, 0, got.Liquidity.Cmp(big.NewInt(5000)))
}

func TestDispatchV3MintIncreasesLiquidityInRange(t *testing.T) {
	s := store.NewMemStore()
	pool := newV3Pool()
	pool.Tick = 90
	require.NoError(t, s.PutPool(context.Background(), testChain, pool))
	seedZeroTick(t, s, 60)
	seedZeroTick(t, s, 120)
	seedZeroBitmapWord(t, s, 60, pool.TickSpacing)
	seedZeroBitmapWord(t, s, 120, pool.TickSpacing)
	d := &Dispatcher{V3: &v3event.Reducer{Store: s}, V2: &v2event.Reducer{Store: s}}

	data := packArgs([]string{"address", "uint128", "uint256", "uint256"},
		common.Address{}, big.NewInt(500), big.NewInt(1), big.NewInt(1))

	d.Dispatch(context.Background(), testChain, Log{
		Address: testPoolAddr,
		Topics: []common.Hash{
			crypto.Keccak256Hash([]byte(v3event.MintEventSignature)),
			common.Hash{},
			common.BigToHash(big.NewInt(60)),
			common.BigToHash(big.NewInt(120)),
		},
		Data: data,
	})

	got, ok, err := s.GetPool(context.Background(), testChain, testPoolAddr)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, got.Liquidity.Cmp(big.NewInt(1500)))
}

func TestDispatchV3BurnDecreasesLiquidityInRange(t *testing.T) {
	s := store.NewMemStore()
	pool := newV3Pool()
	pool.Tick = 90
	require.NoError(t, s.PutPool(context.Background(), testChain, pool))
	// Seed ticks as if a prior Mint of the same size had already run, so the
	// Burn's negative delta nets back to zero rather than underflowing.
	require.NoError(t, s.PutTick(context.Background(), testChain, testPoolAddr, 60, store.TickRecord{
		LiquidityGross: big.NewInt(400), LiquidityNet: big.NewInt(400),
	}))
	require.NoError(t, s.PutTick(context.Background(), testChain, testPoolAddr, 120, store.TickRecord{
		LiquidityGross: big.NewInt(400), LiquidityNet: big.NewInt(-400),
	}))
	seedZeroBitmapWord(t, s, 60, pool.TickSpacing)
	seedZeroBitmapWord(t, s, 120, pool.TickSpacing)
	require.NoError(t, flipBitForTest(s, pool.TickSpacing, 60))
	require.NoError(t, flipBitForTest(s, pool.TickSpacing, 120))
	d := &Dispatcher{V3: &v3event.Reducer{Store: s}, V2: &v2event.Reducer{Store: s}}

	data := packArgs([]string{"uint128", "uint256", "uint256"}, big.NewInt(400), big.NewInt(1), big.NewInt(1))

	d.Dispatch(context.Background(), testChain, Log{
		Address: testPoolAddr,
		Topics: []common.Hash{
			crypto.Keccak256Hash([]byte(v3event.BurnEventSignature)),
			common.Hash{},
			common.BigToHash(big.NewInt(60)),
			common.BigToHash(big.NewInt(120)),
		},
		Data: data,
	})

	got, ok, err := s.GetPool(context.Background(), testChain, testPoolAddr)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, got.Liquidity.Cmp(big.NewInt(600)))
}

func TestDispatchV2SyncOverwritesReserves(t *testing.T) {
	s := store.NewMemStore()
	require.NoError(t, s.PutPool(context.Background(), testChain, newV2Pool()))
	d := &Dispatcher{V3: &v3event.Reducer{Store: s}, V2: &v2event.Reducer{Store: s}}

	data := packArgs([]string{"uint112", "uint112"}, big.NewInt(999), big.NewInt(1001))

	d.Dispatch(context.Background(), testChain, Log{
		Address: testPoolAddr,
		Topics:  []common.Hash{crypto.Keccak256Hash([]byte(v2event.SyncEventSignature))},
		Data:    data,
	})

	got, ok, err := s.GetPool(context.Background(), testChain, testPoolAddr)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, got.ReserveA.Cmp(big.NewInt(999)))
	assert.Equal(t, 0, got.ReserveB.Cmp(big.NewInt(1001)))
}

func TestDispatchIgnoresV2SwapAndUnknownSignature(t *testing.T) {
	s := store.NewMemStore()
	require.NoError(t, s.PutPool(context.Background(), testChain, newV2Pool()))
	d := &Dispatcher{V3: &v3event.Reducer{Store: s}, V2: &v2event.Reducer{Store: s}}

	d.Dispatch(context.Background(), testChain, Log{
		Address: testPoolAddr,
		Topics:  []common.Hash{crypto.Keccak256Hash([]byte(v2event.SwapEventSignature))},
		Data:    packArgs([]string{"uint256", "uint256", "uint256", "uint256"}, big.NewInt(1), big.NewInt(0), big.NewInt(0), big.NewInt(1)),
	})

	got, ok, err := s.GetPool(context.Background(), testChain, testPoolAddr)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, got.ReserveA.Cmp(big.NewInt(100)))
}

func TestDispatchDropsEventForMissingPoolWithoutPanicking(t *testing.T) {
	s := store.NewMemStore()
	d := &Dispatcher{V3: &v3event.Reducer{Store: s}, V2: &v2event.Reducer{Store: s}}

	data := packArgs([]string{"uint112", "uint112"}, big.NewInt(1), big.NewInt(2))
	d.Dispatch(context.Background(), testChain, Log{
		Address: testPoolAddr,
		Topics:  []common.Hash{crypto.Keccak256Hash([]byte(v2event.SyncEventSignature))},
		Data:    data,
	})
}
