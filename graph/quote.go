package graph

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"github.com/dexquoter/dexquoter/dexcommon"
	"github.com/dexquoter/dexquoter/dexerr"
	v2calculator "github.com/dexquoter/dexquoter/protocols/uniswapv2/calculator"
	v3calculator "github.com/dexquoter/dexquoter/protocols/uniswapv3/calculator"
)

// QuotedRoute pairs an enumerated Route with its simulated output (C8,
// spec §4.8).
type QuotedRoute struct {
	Route              Route
	EstimatedAmountOut *big.Int
}

// QuoteRoute folds price(hop, carry) left to right across a route's hops
// (spec §4.8): V3 hops price via the exact-input simulator with
// zero_for_one = token_in < token_out, V2 hops via the constant-product
// formula. The fold aborts on the first per-hop error -- the quoter's
// "strict" policy (spec §7); the multi-route caller in QuoteRoutes is the
// one that keeps trying other routes.
func QuoteRoute(ctx context.Context, chain dexcommon.ChainID, v3 *v3calculator.Simulator, route Route, amountIn *big.Int) (*big.Int, error) {
	carry := amountIn
	for _, hop := range route.Hops {
		var err error
		switch hop.Pool.Kind {
		case dexcommon.PoolKindV2:
			carry, err = v2calculator.GetAmountOut(carry, hop.TokenIn, hop.Pool)
		case dexcommon.PoolKindV3:
			var res *v3calculator.Result
			res, err = v3.SimulateExactInSwap(ctx, chain, hop.Pool.Address, carry, hop.TokenIn)
			if err == nil {
				carry = res.AmountOut
			}
		default:
			err = fmt.Errorf("%w: pool %s", dexerr.ErrInvalidDex, dexcommon.AddrHex(hop.Pool.Address))
		}
		if err != nil {
			return nil, dexerr.GetPrice(err)
		}
	}
	return carry, nil
}

// QuoteRoutes quotes every route independently, drops routes whose fold
// errored (spec §7: "the multi-route caller still tries the remaining
// routes and returns whatever succeeded"), and sorts the survivors by
// estimated_amount_out descending (spec §4.8).
func QuoteRoutes(ctx context.Context, chain dexcommon.ChainID, v3 *v3calculator.Simulator, routes []Route, amountIn *big.Int) []QuotedRoute {
	out := make([]QuotedRoute, 0, len(routes))
	for _, r := range routes {
		amountOut, err := QuoteRoute(ctx, chain, v3, r, amountIn)
		if err != nil {
			continue
		}
		out = append(out, QuotedRoute{Route: r, EstimatedAmountOut: amountOut})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EstimatedAmountOut.Cmp(out[j].EstimatedAmountOut) > 0
	})
	return out
}
