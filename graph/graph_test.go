package graph

import (
	"context"
	"math/big"
	"testing"

	"github.com/dexquoter/dexquoter/dexcommon"
	"github.com/dexquoter/dexquoter/store"
	"github.com/dexquoter/dexquoter/tokenmeta"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

const testChain = dexcommon.ChainID(42161)

var (
	weth  = common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1")
	usdc  = common.HexToAddress("0xFF970A61A04b1cA14834A43f5dE4533eBDDB5CC8")
	usdt  = common.HexToAddress("0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9")
	dai   = common.HexToAddress("0xDA10009cBd5D07dd0CeCc66161FC93D7c9000da1")
	poolA = common.HexToAddress("0x0000000000000000000000000000000000000A")
	poolB = common.HexToAddress("0x0000000000000000000000000000000000000B")
	poolC = common.HexToAddress("0x0000000000000000000000000000000000000C")
)

func v2Pool(addr common.Address, a, b common.Address) store.Pool {
	return store.Pool{
		Kind: dexcommon.PoolKindV2, Address: addr, Fee: 9970,
		TokenA: a, TokenB: b,
		ReserveA: big.NewInt(1_000_000), ReserveB: big.NewInt(1_000_000),
	}
}

func seedStore(t *testing.T, pools ...store.Pool) store.Store {
	s := store.NewMemStore()
	for _, p := range pools {
		require.NoError(t, s.PutPool(context.Background(), testChain, p))
	}
	return s
}

func TestFindRoutesSingleHop(t *testing.T) {
	s := seedStore(t, v2Pool(poolA, weth, usdc))
	g, err := NewGraph(context.Background(), testChain, s, nil)
	require.NoError(t, err)

	routes := g.FindRoutes(weth, usdc, 2, 5)
	require.Len(t, routes, 1)
	require.Len(t, routes[0].Hops, 1)
	require.Equal(t, weth, routes[0].Hops[0].TokenIn)
	require.Equal(t, usdc, routes[0].Hops[0].TokenOut)
}

func TestFindRoutesTwoHopThroughIntermediate(t *testing.T) {
	s := seedStore(t, v2Pool(poolA, weth, dai), v2Pool(poolB, dai, usdc))
	g, err := NewGraph(context.Background(), testChain, s, nil)
	require.NoError(t, err)

	routes := g.FindRoutes(weth, usdc, 2, 5)
	require.Len(t, routes, 1)
	require.Len(t, routes[0].Hops, 2)
	require.Equal(t, weth, routes[0].Hops[0].TokenIn)
	require.Equal(t, dai, routes[0].Hops[0].TokenOut)
	require.Equal(t, dai, routes[0].Hops[1].TokenIn)
	require.Equal(t, usdc, routes[0].Hops[1].TokenOut)
}

// S7 -- route shape invariants (spec §8 invariant 4): consecutive hops
// share exactly one token, the first/last hop bound the query, and no
// pool address repeats within a route.
func TestFindRoutesRouteShapeInvariants(t *testing.T) {
	s := seedStore(t,
		v2Pool(poolA, weth, dai),
		v2Pool(poolB, dai, usdc),
		v2Pool(poolC, weth, usdc),
	)
	g, err := NewGraph(context.Background(), testChain, s, nil)
	require.NoError(t, err)

	routes := g.FindRoutes(weth, usdc, 2, 5)
	require.NotEmpty(t, routes)
	for _, r := range routes {
		require.Contains(t, []int{1, 2}, len(r.Hops))
		require.Equal(t, weth, r.Hops[0].TokenIn)
		require.Equal(t, usdc, r.Hops[len(r.Hops)-1].TokenOut)

		seenPools := map[dexcommon.Address]bool{}
		for i, hop := range r.Hops {
			require.False(t, seenPools[hop.Pool.Address], "pool reused within a route")
			seenPools[hop.Pool.Address] = true
			if i > 0 {
				require.Equal(t, r.Hops[i-1].TokenOut, hop.TokenIn)
			}
		}
	}
}

func TestFindRoutesDoesNotExceedMaxHops(t *testing.T) {
	s := seedStore(t,
		v2Pool(poolA, weth, dai),
		v2Pool(poolB, dai, usdt),
		v2Pool(poolC, usdt, usdc),
	)
	g, err := NewGraph(context.Background(), testChain, s, nil)
	require.NoError(t, err)

	// weth -> usdc needs 3 hops; bounding to 2 must yield nothing.
	routes := g.FindRoutes(weth, usdc, 2, 5)
	require.Empty(t, routes)
}

func TestFindRoutesRespectsLimit(t *testing.T) {
	s := seedStore(t,
		v2Pool(poolA, weth, usdc),
		v2Pool(poolB, weth, usdc),
		v2Pool(poolC, weth, usdc),
	)
	g, err := NewGraph(context.Background(), testChain, s, nil)
	require.NoError(t, err)

	routes := g.FindRoutes(weth, usdc, 1, 2)
	require.Len(t, routes, 2)
}

func TestNewGraphExcludesFeeOnTransferPools(t *testing.T) {
	s := seedStore(t, v2Pool(poolA, weth, dai))
	meta := tokenmeta.NewCache()
	meta.Put(tokenmeta.Token{Address: dai, FeeOnTransferPercent: 5})

	g, err := NewGraph(context.Background(), testChain, s, meta)
	require.NoError(t, err)

	routes := g.FindRoutes(weth, dai, 1, 5)
	require.Empty(t, routes)
}
