package httpapi

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dexquoter/dexquoter/dexcommon"
	v3calculator "github.com/dexquoter/dexquoter/protocols/uniswapv3/calculator"
	"github.com/dexquoter/dexquoter/store"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChain = dexcommon.ChainID(42161)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	tokenA = common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1")
	tokenB = common.HexToAddress("0xFF970A61A04b1cA14834A43f5dE4533eBDDB5CC8")
)

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	st := store.NewMemStore()
	require.NoError(t, st.PutPool(context.Background(), testChain, store.Pool{
		Kind: dexcommon.PoolKindV2, Address: common.HexToAddress("0x1111111111111111111111111111111111111111"),
		TokenA: tokenA, TokenB: tokenB, ReserveA: big.NewInt(1_000_000), ReserveB: big.NewInt(2_000_000),
	}))
	return &Server{Chain: testChain, Store: st, Simulator: &v3calculator.Simulator{Store: st}}, st
}

func TestHealthcheckReturnsOK(t *testing.T) {
	srv, _ := newTestServer(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthcheck", nil)
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestHealthcheckSetsCORSHeader(t *testing.T) {
	srv, _ := newTestServer(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthcheck", nil)
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestPathReturnsEnumeratedRoute(t *testing.T) {
	srv, _ := newTestServer(t)
	w := httptest.NewRecorder()
	url := "/path/" + dexcommon.AddrHex(tokenA) + "/" + dexcommon.AddrHex(tokenB)
	req := httptest.NewRequest(http.MethodGet, url, nil)
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var routes [][]pathHop
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &routes))
	require.Len(t, routes, 1)
	require.Len(t, routes[0], 1)
	assert.Equal(t, dexcommon.AddrHex(tokenA), routes[0][0].TokenIn)
	assert.Equal(t, dexcommon.AddrHex(tokenB), routes[0][0].TokenOut)
}

func TestPathRejectsInvalidTokenAddress(t *testing.T) {
	srv, _ := newTestServer(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/path/not-an-address/"+dexcommon.AddrHex(tokenB), nil)
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQuoteReturnsEstimatedAmountOut(t *testing.T) {
	srv, _ := newTestServer(t)
	w := httptest.NewRecorder()
	url := "/quote/" + dexcommon.AddrHex(tokenA) + "/" + dexcommon.AddrHex(tokenB) + "/1000"
	req := httptest.NewRequest(http.MethodGet, url, nil)
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var quoted []quotedRoute
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &quoted))
	require.Len(t, quoted, 1)
	out, ok := new(big.Int).SetString(quoted[0].EstimatedAmountOut, 10)
	require.True(t, ok)
	assert.True(t, out.Sign() > 0)
}

func TestQuoteRejectsInvalidAmount(t *testing.T) {
	srv, _ := newTestServer(t)
	w := httptest.NewRecorder()
	url := "/quote/" + dexcommon.AddrHex(tokenA) + "/" + dexcommon.AddrHex(tokenB) + "/not-a-number"
	req := httptest.NewRequest(http.MethodGet, url, nil)
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
