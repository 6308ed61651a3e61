// Package graph builds the token graph and enumerates swap routes between
// two tokens (C7, spec.md §4.7). Grounded on the teacher's
// examples/graph/graph.go, but re-keyed from the teacher's synthetic
// uint64 token/pool ids to dexcommon.Address (this repo has no
// tokenregistry/poolregistry indexer) and rewritten against store.Store
// instead of tokenpoolregistry.TokenPoolRegistryView.
//
// spec.md §4.7 names two enumeration strategies that produce the same
// Vec<Route> shape: a backend-driven graph-database query, and an
// in-memory bounded DFS over the pool list. This repo has no graph
// database client in its dependency set (see DESIGN.md), so only the
// in-memory DFS strategy is implemented; the config package still carries
// neo4j_uri/neo4j_pass (spec §6) for parity with a deployment that swaps
// in the backend-driven strategy later.
package graph

import (
	"context"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dexquoter/dexquoter/dexcommon"
	"github.com/dexquoter/dexquoter/dexerr"
	"github.com/dexquoter/dexquoter/store"
	"github.com/dexquoter/dexquoter/tokenmeta"
)

// Edge is one directed hop out of a token: Pool connects the token to
// Counterpart.
type Edge struct {
	Pool        dexcommon.Address
	Counterpart dexcommon.Address
}

// Graph is a snapshot of the pool set, adjacency-indexed by token for
// route enumeration. It holds no reference to the store after
// construction -- callers rebuild it when the pool set changes materially
// (spec §4.7 gives no staleness contract beyond "the implementation
// transcribes node/edge order").
type Graph struct {
	pools     map[dexcommon.Address]store.Pool
	adjacency map[dexcommon.Address][]Edge
}

// NewGraph loads every V2 and V3 pool from the store and builds the
// token adjacency list. Pools touching a fee-on-transfer token (per meta)
// are excluded from the graph entirely, mirroring examples/graph/graph.go's
// "leave the calculator as nil" treatment of such pools. meta may be nil,
// in which case no pool is excluded.
func NewGraph(ctx context.Context, chain dexcommon.ChainID, st store.Store, meta *tokenmeta.Cache) (*Graph, error) {
	g := &Graph{
		pools:     make(map[dexcommon.Address]store.Pool),
		adjacency: make(map[dexcommon.Address][]Edge),
	}

	for _, kind := range []dexcommon.PoolKind{dexcommon.PoolKindV2, dexcommon.PoolKindV3} {
		addrs, err := st.ListPools(ctx, chain, kind)
		if err != nil {
			return nil, dexerr.Store(err)
		}
		for _, addr := range addrs {
			pool, ok, err := st.GetPool(ctx, chain, addr)
			if err != nil {
				return nil, dexerr.Store(err)
			}
			if !ok {
				continue
			}
			if meta != nil && (meta.IsFeeOnTransfer(pool.TokenA) || meta.IsFeeOnTransfer(pool.TokenB)) {
				continue
			}
			g.addPool(pool)
		}
	}
	return g, nil
}

func (g *Graph) addPool(pool store.Pool) {
	g.pools[pool.Address] = pool
	g.adjacency[pool.TokenA] = append(g.adjacency[pool.TokenA], Edge{Pool: pool.Address, Counterpart: pool.TokenB})
	g.adjacency[pool.TokenB] = append(g.adjacency[pool.TokenB], Edge{Pool: pool.Address, Counterpart: pool.TokenA})
}

// Hop is one leg of an enumerated route: swap TokenIn for TokenOut through Pool.
type Hop struct {
	Pool     store.Pool
	TokenIn  dexcommon.Address
	TokenOut dexcommon.Address
}

// Route is an ordered sequence of hops from the query's token_in to its
// token_out (spec §8 invariant 4).
type Route struct {
	Hops []Hop
}

// FindRoutes performs the bounded in-memory DFS named in spec §4.7: depth
// bounded by maxHops, no pool reused within a route (tracked via a
// pools_used set -- deckarep/golang-set/v2 per the dependency-wiring
// decision, replacing the teacher's bitset-of-indices since pools are now
// Address-keyed rather than densely indexed), committing a route whenever
// the current token equals tokenOut. Enumeration stops once limit routes
// have been committed; tie-break among equally-short routes is
// unspecified (spec §4.7), so the result order simply reflects adjacency
// list order.
func (g *Graph) FindRoutes(tokenIn, tokenOut dexcommon.Address, maxHops, limit int) []Route {
	if maxHops <= 0 || limit <= 0 {
		return nil
	}

	var routes []Route
	used := mapset.NewThreadUnsafeSet[dexcommon.Address]()
	path := make([]Hop, 0, maxHops)

	var dfs func(current dexcommon.Address, depth int)
	dfs = func(current dexcommon.Address, depth int) {
		if len(routes) >= limit {
			return
		}
		if depth > 0 && current == tokenOut {
			committed := make([]Hop, len(path))
			copy(committed, path)
			routes = append(routes, Route{Hops: committed})
			return
		}
		if depth >= maxHops {
			return
		}
		for _, e := range g.adjacency[current] {
			if used.Contains(e.Pool) {
				continue
			}
			used.Add(e.Pool)
			path = append(path, Hop{Pool: g.pools[e.Pool], TokenIn: current, TokenOut: e.Counterpart})

			dfs(e.Counterpart, depth+1)

			path = path[:len(path)-1]
			used.Remove(e.Pool)

			if len(routes) >= limit {
				return
			}
		}
	}

	dfs(tokenIn, 0)
	return routes
}
