// Package httpapi exposes the quoter's read-only HTTP surface (spec.md
// §6): GET /healthcheck, GET /path/:token_in/:token_out, and
// GET /quote/:token_in/:token_out/:amount_in. Grounded on
// original_source/server/src/{main,path,quote}.rs's Rocket routes and
// CORS fairing, wired to gin-gonic/gin the way
// leanlp-BTC-coinjoin/internal/api/routes.go builds its router.
package httpapi

import (
	"math/big"
	"net/http"
	"strconv"

	"github.com/dexquoter/dexquoter/dexcommon"
	"github.com/dexquoter/dexquoter/graph"
	v3calculator "github.com/dexquoter/dexquoter/protocols/uniswapv3/calculator"
	"github.com/dexquoter/dexquoter/store"
	"github.com/dexquoter/dexquoter/tokenmeta"
	"github.com/gin-gonic/gin"
)

// defaultPathHops/defaultQuoteHops/defaultLimit mirror original_source's
// get_possible_paths(&graph, token_in, token_out, hop, limit, "Arb") calls:
// /path uses hop=1, /quote uses hop=2, both default limit=5.
const (
	defaultPathHops  = 1
	defaultQuoteHops = 2
	defaultLimit     = 5
)

// pathHop and quotedRoute mirror the JSON shapes spec §6 names for the
// /path and /quote responses.
type pathHop struct {
	Address  string `json:"address"`
	TokenIn  string `json:"token_in"`
	TokenOut string `json:"token_out"`
}

type quotedRoute struct {
	Path               []pathHop `json:"path"`
	EstimatedAmountOut string    `json:"estimated_amount_out"`
}

// Server holds the dependencies the route handlers close over: the chain
// a given process serves, the pool store it queries, and the V3 simulator
// used to price quote routes.
type Server struct {
	Chain     dexcommon.ChainID
	Store     store.Store
	Simulator *v3calculator.Simulator
	TokenMeta *tokenmeta.Cache
}

// Router builds the gin.Engine exposing spec §6's HTTP surface, with the
// permissive CORS headers original_source's Rocket fairing sends on every
// response.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()
	r.Use(corsMiddleware())

	r.GET("/healthcheck", s.handleHealthcheck)
	r.GET("/path/:token_in/:token_out", s.handlePath)
	r.GET("/quote/:token_in/:token_out/:amount_in", s.handleQuote)
	return r
}

// corsMiddleware mirrors original_source/server/src/main.rs's CORS fairing:
// allow any origin, with GET/POST/OPTIONS permitted and no credentials.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) handleHealthcheck(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// handlePath implements GET /path/:token_in/:token_out (spec §6): enumerate
// routes without pricing them, hop=1/limit=5 by default.
func (s *Server) handlePath(c *gin.Context) {
	in, out, ok := s.parseTokenPair(c, c.Param("token_in"), c.Param("token_out"))
	if !ok {
		return
	}
	hop := intQuery(c, "hop", defaultPathHops)
	limit := intQuery(c, "limit", defaultLimit)

	g, err := graph.NewGraph(c.Request.Context(), s.Chain, s.Store, s.tokenMeta())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	routes := g.FindRoutes(in, out, hop, limit)
	c.JSON(http.StatusOK, routesToJSON(routes))
}

// handleQuote implements GET /quote/:token_in/:token_out/:amount_in (spec
// §6): enumerate and price routes, hop=2/limit=5 by default, sorted
// descending by estimated_amount_out. Unlike original_source's naive
// string-comparison sort, graph.QuoteRoutes compares numerically.
func (s *Server) handleQuote(c *gin.Context) {
	in, out, ok := s.parseTokenPair(c, c.Param("token_in"), c.Param("token_out"))
	if !ok {
		return
	}
	amountIn, ok := new(big.Int).SetString(c.Param("amount_in"), 10)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount_in"})
		return
	}
	hop := intQuery(c, "hop", defaultQuoteHops)
	limit := intQuery(c, "limit", defaultLimit)

	ctx := c.Request.Context()
	g, err := graph.NewGraph(ctx, s.Chain, s.Store, s.tokenMeta())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	routes := g.FindRoutes(in, out, hop, limit)
	quoted := graph.QuoteRoutes(ctx, s.Chain, s.Simulator, routes, amountIn)
	c.JSON(http.StatusOK, quotedRoutesToJSON(quoted))
}

func (s *Server) tokenMeta() *tokenmeta.Cache {
	if s.TokenMeta == nil {
		return tokenmeta.NewCache()
	}
	return s.TokenMeta
}

func (s *Server) parseTokenPair(c *gin.Context, tokenIn, tokenOut string) (dexcommon.Address, dexcommon.Address, bool) {
	in, err := dexcommon.HexAddr(trimHexPrefix(tokenIn))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid token_in"})
		return dexcommon.Address{}, dexcommon.Address{}, false
	}
	out, err := dexcommon.HexAddr(trimHexPrefix(tokenOut))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid token_out"})
		return dexcommon.Address{}, dexcommon.Address{}, false
	}
	return in, out, true
}

// trimHexPrefix strips an optional "0x"/"0X" prefix so callers can pass
// addresses the ordinary Ethereum way; dexcommon.HexAddr itself expects
// bare hex, matching the store's internal address_str convention.
func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

func intQuery(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func routesToJSON(routes []graph.Route) [][]pathHop {
	out := make([][]pathHop, len(routes))
	for i, r := range routes {
		hops := make([]pathHop, len(r.Hops))
		for j, h := range r.Hops {
			hops[j] = pathHop{
				Address:  dexcommon.AddrHex(h.Pool.Address),
				TokenIn:  dexcommon.AddrHex(h.TokenIn),
				TokenOut: dexcommon.AddrHex(h.TokenOut),
			}
		}
		out[i] = hops
	}
	return out
}

func quotedRoutesToJSON(routes []graph.QuotedRoute) []quotedRoute {
	out := make([]quotedRoute, len(routes))
	for i, qr := range routes {
		hops := make([]pathHop, len(qr.Route.Hops))
		for j, h := range qr.Route.Hops {
			hops[j] = pathHop{
				Address:  dexcommon.AddrHex(h.Pool.Address),
				TokenIn:  dexcommon.AddrHex(h.TokenIn),
				TokenOut: dexcommon.AddrHex(h.TokenOut),
			}
		}
		out[i] = quotedRoute{Path: hops, EstimatedAmountOut: qr.EstimatedAmountOut.String()}
	}
	return out
}
