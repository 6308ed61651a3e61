package importer

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/dexquoter/dexquoter/dexcommon"
	"github.com/dexquoter/dexquoter/logging"
	"github.com/dexquoter/dexquoter/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSubgraphJSON = `[
  {
    "id": "0xff970a61a04b1ca14834a43f5de4533ebddb5cc8",
    "feeTier": "500",
    "liquidity": "123456789",
    "token0": {"id": "0x82af49447d8a07e3bd95bd0d56f35241523fbab1"},
    "token1": {"id": "0xff970a61a04b1ca14834a43f5de4533ebddb5cc8"},
    "tvlETH": 10.5,
    "tvlUSD": 25000.0
  },
  {
    "id": "0x0000000000000000000000000000000000000a",
    "feeTier": "3000",
    "liquidity": "1",
    "token0": {"id": "0x0000000000000000000000000000000000000b"},
    "token1": {"id": "0x0000000000000000000000000000000000000c"},
    "tvlETH": 0.0,
    "tvlUSD": 0.0
  }
]`

func TestParseSubgraphPools(t *testing.T) {
	pools, err := ParseSubgraphPools(strings.NewReader(sampleSubgraphJSON))
	require.NoError(t, err)
	require.Len(t, pools, 2)
	assert.Equal(t, uint32(500), pools[0].Fee)
	assert.Equal(t, 0, pools[0].Liquidity.Cmp(bigFromString("123456789")))
	assert.True(t, pools[0].InvolvesToken(pools[0].Token0))
}

func TestImportSubgraphPoolsSkipsExistingAndAppliesTickSpacing(t *testing.T) {
	pools, err := ParseSubgraphPools(strings.NewReader(sampleSubgraphJSON))
	require.NoError(t, err)

	s := store.NewMemStore()
	// Pre-seed the first pool so it should be skipped.
	require.NoError(t, s.PutPool(context.Background(), testChain, store.Pool{
		Kind: dexcommon.PoolKindV3, Address: pools[0].Address,
		TokenA: pools[0].Token0, TokenB: pools[0].Token1,
	}))

	stats, err := ImportSubgraphPools(context.Background(), testChain, s, pools, logging.Nop{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Imported)

	got, ok, err := s.GetPool(context.Background(), testChain, pools[1].Address)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(60), got.TickSpacing)
}

func TestImportSubgraphPoolsRejectsUnsupportedFee(t *testing.T) {
	pools := []SubgraphPool{{
		Address: pools0Addr(), Token0: pools0Addr(), Token1: pools0Addr(),
		Fee: 42, Liquidity: bigFromString("1"),
	}}
	s := store.NewMemStore()
	stats, err := ImportSubgraphPools(context.Background(), testChain, s, pools, logging.Nop{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Errored)
	assert.Equal(t, 0, stats.Imported)
}

func bigFromString(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad decimal: " + s)
	}
	return n
}

func pools0Addr() dexcommon.Address {
	addr, err := dexcommon.HexAddr("0000000000000000000000000000000000000a")
	if err != nil {
		panic(err)
	}
	return addr
}
