package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"

	"github.com/dexquoter/dexquoter/dexcommon"
	"github.com/dexquoter/dexquoter/logging"
	"github.com/dexquoter/dexquoter/store"
)

// idToNetworkName mirrors original_source's subgraph::id_to_network_name,
// used to build the Uniswap-hosted subgraph snapshot URL per chain.
func idToNetworkName(chainID uint64) string {
	switch chainID {
	case 1:
		return "mainnet"
	case 10:
		return "optimism-mainnet"
	case 56:
		return "bnb-mainnet"
	case 137:
		return "polygon-mainnet"
	case 42161:
		return "arbitrum-mainnet"
	case 42220:
		return "celo-mainnet"
	case 43114:
		return "avalanche-mainnet"
	default:
		return "unknown"
	}
}

// SubgraphURL returns the Uniswap-hosted V3 pool snapshot URL for a chain,
// grounded on original_source/dexquote/src/subgraph/mod.rs's
// get_v3_subgraph_pools.
func SubgraphURL(chainID uint64) string {
	return fmt.Sprintf("https://cloudflare-ipfs.com/ipns/api.uniswap.org/v1/pools/v3/%s.json", idToNetworkName(chainID))
}

// subgraphToken mirrors the subgraph JSON's nested {id} token reference.
type subgraphToken struct {
	ID string `json:"id"`
}

// v3SubgraphPool is the raw V3 subgraph JSON shape (original_source's
// V3SubgraphPool): fee/liquidity are decimal strings, token ids are hex
// addresses.
type v3SubgraphPool struct {
	ID        string        `json:"id"`
	FeeTier   string        `json:"feeTier"`
	Liquidity string        `json:"liquidity"`
	Token0    subgraphToken `json:"token0"`
	Token1    subgraphToken `json:"token1"`
	TVLETH    float64       `json:"tvlETH"`
	TVLUSD    float64       `json:"tvlUSD"`
}

// SubgraphPool is the decoded, typed form of a V3 subgraph pool record
// (original_source's SubgraphPool).
type SubgraphPool struct {
	Address        dexcommon.Address
	Token0, Token1 dexcommon.Address
	Fee            uint32
	Liquidity      *big.Int
	TVLETH, TVLUSD float64
}

// InvolvesToken reports whether token is one of the pool's two tokens
// (original_source's SubgraphPool::involves_token).
func (p SubgraphPool) InvolvesToken(token dexcommon.Address) bool {
	return p.Token0 == token || p.Token1 == token
}

// ParseSubgraphPools decodes a JSON array of V3 subgraph pool records
// (spec.md §4.9 "subgraph JSON (V3 only)").
func ParseSubgraphPools(r io.Reader) ([]SubgraphPool, error) {
	var raw []v3SubgraphPool
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("importer: decode subgraph pools: %w", err)
	}

	out := make([]SubgraphPool, 0, len(raw))
	for _, p := range raw {
		addr, err := parseSubgraphAddress(p.ID)
		if err != nil {
			return nil, fmt.Errorf("importer: subgraph pool %s: %w", p.ID, err)
		}
		token0, err := parseSubgraphAddress(p.Token0.ID)
		if err != nil {
			return nil, fmt.Errorf("importer: subgraph pool %s token0: %w", p.ID, err)
		}
		token1, err := parseSubgraphAddress(p.Token1.ID)
		if err != nil {
			return nil, fmt.Errorf("importer: subgraph pool %s token1: %w", p.ID, err)
		}
		fee, ok := new(big.Int).SetString(p.FeeTier, 10)
		if !ok {
			return nil, fmt.Errorf("importer: subgraph pool %s has invalid feeTier %q", p.ID, p.FeeTier)
		}
		liquidity, ok := new(big.Int).SetString(p.Liquidity, 10)
		if !ok {
			liquidity = new(big.Int)
		}
		out = append(out, SubgraphPool{
			Address: addr, Token0: token0, Token1: token1,
			Fee: uint32(fee.Uint64()), Liquidity: liquidity,
			TVLETH: p.TVLETH, TVLUSD: p.TVLUSD,
		})
	}
	return out, nil
}

func parseSubgraphAddress(s string) (dexcommon.Address, error) {
	s = trimHexPrefix(s)
	return dexcommon.HexAddr(s)
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// FetchSubgraphPools downloads and parses the subgraph snapshot for chainID.
func FetchSubgraphPools(ctx context.Context, chainID uint64) ([]SubgraphPool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, SubgraphURL(chainID), nil)
	if err != nil {
		return nil, fmt.Errorf("importer: build subgraph request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("importer: fetch subgraph pools: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("importer: subgraph request returned status %d", resp.StatusCode)
	}
	return ParseSubgraphPools(resp.Body)
}

// ImportSubgraphPools writes each subgraph pool into the store as a V3
// pool, skipping pools already present and counting-and-continuing on a
// per-pool failure (spec §4.9), grounded on
// original_source/dexquote/src/import/univ3.rs's import_pool loop.
// Active liquidity starts at the subgraph's reported total liquidity and
// tick/sqrt_price start at zero -- the next authoritative Swap event
// overwrites both, matching the reducer's snapshot-overwrite semantics.
func ImportSubgraphPools(ctx context.Context, chain dexcommon.ChainID, st store.Store, pools []SubgraphPool, log logging.Logger, metrics *Metrics) (Stats, error) {
	if log == nil {
		log = logging.Nop{}
	}
	const source = "subgraph"
	var stats Stats
	for _, sp := range pools {
		stats.Total++

		if _, ok, err := st.GetPool(ctx, chain, sp.Address); err != nil {
			stats.Errored++
			metrics.record(source, "errored")
			log.Warn("importer: store read failed", "address", dexcommon.AddrHex(sp.Address), "error", err)
			continue
		} else if ok {
			stats.Skipped++
			metrics.record(source, "skipped")
			continue
		}

		spacing, ok := dexcommon.TickSpacing(sp.Fee)
		if !ok {
			stats.Errored++
			metrics.record(source, "errored")
			log.Warn("importer: subgraph pool has unsupported fee tier", "address", dexcommon.AddrHex(sp.Address), "fee", sp.Fee)
			continue
		}

		pool := store.Pool{
			Kind: dexcommon.PoolKindV3, Address: sp.Address,
			Fee: sp.Fee, TokenA: sp.Token0, TokenB: sp.Token1,
			Liquidity: new(big.Int).Set(sp.Liquidity), TickSpacing: spacing,
			SqrtPriceX96: new(big.Int), Tick: 0,
		}
		if err := st.PutPool(ctx, chain, pool); err != nil {
			stats.Errored++
			metrics.record(source, "errored")
			log.Warn("importer: store write failed", "address", dexcommon.AddrHex(sp.Address), "error", err)
			continue
		}
		stats.Imported++
		metrics.record(source, "imported")
	}
	log.Info("importer: subgraph import complete",
		"total", stats.Total, "imported", stats.Imported, "skipped", stats.Skipped, "errored", stats.Errored)
	return stats, nil
}
