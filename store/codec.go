package store

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/dexquoter/dexquoter/dexcommon"
	"github.com/dexquoter/dexquoter/internal/bigmath"
)

// PoolFields renders a Pool into the hash-field encoding a real remote
// backend (e.g. a Redis HSET) would persist under PoolKey: u128/i128/u160
// fields hex-encoded, reserves/liquidity as decimal strings, tick as a
// signed decimal integer (spec §4.2 "Encoding contracts"). MemStore does
// not use this -- it holds typed big.Int fields directly -- but any
// networked Store implementation plugged in per spec §9 would marshal
// through this contract, and it is exercised directly by codec_test.go.
func PoolFields(p Pool) map[string]string {
	fields := map[string]string{
		"dex":        p.Kind.String(),
		"fee":        strconv.FormatUint(uint64(p.Fee), 10),
		"token0":     dexcommon.AddrHex(p.TokenA),
		"token1":     dexcommon.AddrHex(p.TokenB),
		"decimals0":  strconv.FormatUint(uint64(p.DecimalsA), 10),
		"decimals1":  strconv.FormatUint(uint64(p.DecimalsB), 10),
	}
	switch p.Kind {
	case dexcommon.PoolKindV2:
		fields["reserve0"] = decOrZero(p.ReserveA)
		fields["reserve1"] = decOrZero(p.ReserveB)
	case dexcommon.PoolKindV3:
		fields["liquidity"] = decOrZero(p.Liquidity)
		fields["sqrt_price"] = bigmath.EncodeHexU(nonNil(p.SqrtPriceX96))
		fields["tick"] = strconv.FormatInt(p.Tick, 10)
		fields["tick_spacing"] = strconv.FormatInt(p.TickSpacing, 10)
		if p.LiquidityNet != nil {
			fields["liquidity_net"] = bigmath.EncodeHexI128(p.LiquidityNet)
		}
	}
	return fields
}

// PoolFromFields is the inverse of PoolFields.
func PoolFromFields(addr dexcommon.Address, fields map[string]string) (Pool, error) {
	kind, ok := dexcommon.ParsePoolKind(fields["dex"])
	if !ok {
		return Pool{}, fmt.Errorf("store: invalid dex field %q", fields["dex"])
	}
	fee, err := strconv.ParseUint(fields["fee"], 10, 32)
	if err != nil {
		return Pool{}, fmt.Errorf("store: invalid fee field: %w", err)
	}
	decA, _ := strconv.ParseUint(fields["decimals0"], 10, 8)
	decB, _ := strconv.ParseUint(fields["decimals1"], 10, 8)

	p := Pool{
		Kind:      kind,
		Address:   addr,
		Fee:       uint32(fee),
		DecimalsA: uint8(decA),
		DecimalsB: uint8(decB),
	}
	if tok, ok := new(big.Int).SetString(fields["token0"], 16); ok {
		p.TokenA = dexcommon.Address(tok.FillBytes(make([]byte, 20)))
	}
	if tok, ok := new(big.Int).SetString(fields["token1"], 16); ok {
		p.TokenB = dexcommon.Address(tok.FillBytes(make([]byte, 20)))
	}

	switch kind {
	case dexcommon.PoolKindV2:
		p.ReserveA, err = parseDec(fields["reserve0"])
		if err != nil {
			return Pool{}, err
		}
		p.ReserveB, err = parseDec(fields["reserve1"])
		if err != nil {
			return Pool{}, err
		}
	case dexcommon.PoolKindV3:
		p.Liquidity, err = parseDec(fields["liquidity"])
		if err != nil {
			return Pool{}, err
		}
		p.SqrtPriceX96, err = bigmath.DecodeHexU(fields["sqrt_price"])
		if err != nil {
			return Pool{}, err
		}
		p.Tick, err = strconv.ParseInt(fields["tick"], 10, 64)
		if err != nil {
			return Pool{}, err
		}
		p.TickSpacing, err = strconv.ParseInt(fields["tick_spacing"], 10, 64)
		if err != nil {
			return Pool{}, err
		}
		if s, ok := fields["liquidity_net"]; ok && s != "" {
			p.LiquidityNet, err = bigmath.DecodeHexI128(s)
			if err != nil {
				return Pool{}, err
			}
		}
	}
	return p, nil
}

// TickFields renders a TickRecord into hash fields: u128/i128 hex-encoded.
func TickFields(t TickRecord) map[string]string {
	return map[string]string{
		"liquidity_gross": bigmath.EncodeHexU(nonNil(t.LiquidityGross)),
		"liquidity_net":   bigmath.EncodeHexI128(nonNil(t.LiquidityNet)),
	}
}

// TickFromFields is the inverse of TickFields.
func TickFromFields(fields map[string]string) (TickRecord, error) {
	gross, err := bigmath.DecodeHexU(fields["liquidity_gross"])
	if err != nil {
		return TickRecord{}, err
	}
	net, err := bigmath.DecodeHexI128(fields["liquidity_net"])
	if err != nil {
		return TickRecord{}, err
	}
	return TickRecord{LiquidityGross: gross, LiquidityNet: net}, nil
}

func decOrZero(x *big.Int) string {
	if x == nil {
		return "0"
	}
	return x.String()
}

func parseDec(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("store: invalid decimal field %q", s)
	}
	return n, nil
}

func nonNil(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return x
}
