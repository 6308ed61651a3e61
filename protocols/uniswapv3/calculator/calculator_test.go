package calculator

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/dexquoter/dexquoter/dexcommon"
	"github.com/dexquoter/dexquoter/dexerr"
	"github.com/dexquoter/dexquoter/protocols/uniswapv3/calculator/tickmath"
	"github.com/dexquoter/dexquoter/store"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSim() (*Simulator, store.Store) {
	s := store.NewMemStore()
	return &Simulator{Store: s}, s
}

func samplePool() store.Pool {
	return store.Pool{
		Kind:         dexcommon.PoolKindV3,
		Address:      common.HexToAddress("0xFF970A61A04b1cA14834A43f5dE4533eBDDB5CC8"),
		Fee:          3000,
		TokenA:       common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"),
		TokenB:       common.HexToAddress("0xFF970A61A04b1cA14834A43f5dE4533eBDDB5CC8"),
		Liquidity: new(big.Int).SetInt64(1_000_000_000_000_000_000),
		// Tick 120 keeps the test away from a bitmap word boundary (compressed
		// tick a multiple of 256*tickSpacing), which would otherwise force the
		// scan to march across many empty words before finding a target.
		SqrtPriceX96: sqrtPriceAtTick120(),
		Tick:         120,
		TickSpacing:  60,
	}
}

func sqrtPriceAtTick120() *big.Int {
	dest := new(big.Int)
	if err := tickmath.GetSqrtRatioAtTick(dest, 120); err != nil {
		panic(err)
	}
	return dest
}

func TestSimulateExactInSwapSmallAmountStaysWithinCurrentTick(t *testing.T) {
	sim, s := newSim()
	pool := samplePool()
	require.NoError(t, s.PutPool(context.Background(), 42161, pool))

	result, err := sim.SimulateExactInSwap(context.Background(), 42161, pool.Address, big.NewInt(1_000), pool.TokenA)
	require.NoError(t, err)

	assert.True(t, result.AmountOut.Sign() > 0)
	// Spot price at tick 120 is 1.0001^120 ~= 1.01207, so the fee-free output
	// would be ~1012.07; the 0.3% fee and price impact leave 1009.
	assert.True(t, result.AmountOut.Cmp(big.NewInt(1_012)) < 0, "fee and price impact must reduce output below the fee-free spot value")
	// a swap this tiny against this much liquidity should not cross even the
	// nearest tick boundary.
	assert.LessOrEqual(t, result.EndingState.Tick, pool.Tick)
	assert.Greater(t, result.EndingState.Tick, pool.Tick-pool.TickSpacing)
	assert.False(t, result.LiquidityChanged)
}

func TestSimulateExactInSwapRejectsNonPositiveAmount(t *testing.T) {
	sim, s := newSim()
	pool := samplePool()
	require.NoError(t, s.PutPool(context.Background(), 42161, pool))

	_, err := sim.SimulateExactInSwap(context.Background(), 42161, pool.Address, big.NewInt(0), pool.TokenA)
	require.Error(t, err)
	assert.True(t, errors.Is(err, dexerr.ErrMath))
}

func TestSimulateExactInSwapRejectsUnrelatedToken(t *testing.T) {
	sim, s := newSim()
	pool := samplePool()
	require.NoError(t, s.PutPool(context.Background(), 42161, pool))

	other := common.HexToAddress("0x000000000000000000000000000000000000AA")
	_, err := sim.SimulateExactInSwap(context.Background(), 42161, pool.Address, big.NewInt(1000), other)
	require.Error(t, err)
	assert.True(t, errors.Is(err, dexerr.ErrInvalidDex))
}

func TestSimulateExactInSwapRejectsMissingPool(t *testing.T) {
	sim, _ := newSim()
	_, err := sim.SimulateExactInSwap(context.Background(), 42161, common.HexToAddress("0x00000000000000000000000000000000000001"), big.NewInt(1000), common.HexToAddress("0x00000000000000000000000000000000000002"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, dexerr.ErrPoolNotFound))
}

func TestUpdateStateIsNoopWhenNothingMoved(t *testing.T) {
	sim, s := newSim()
	pool := samplePool()
	require.NoError(t, s.PutPool(context.Background(), 42161, pool))

	result := &Result{EndingState: pool, TickChanged: false, LiquidityChanged: false}
	require.NoError(t, sim.UpdateState(context.Background(), 42161, result))

	got, ok, err := s.GetPool(context.Background(), 42161, pool.Address)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, pool.Tick, got.Tick)
}

func TestUpdateStateWritesBackWhenTickMoved(t *testing.T) {
	sim, s := newSim()
	pool := samplePool()
	require.NoError(t, s.PutPool(context.Background(), 42161, pool))

	moved := pool.Clone()
	moved.Tick = 60
	result := &Result{EndingState: moved, TickChanged: true}
	require.NoError(t, sim.UpdateState(context.Background(), 42161, result))

	got, ok, err := s.GetPool(context.Background(), 42161, pool.Address)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(60), got.Tick)
}
