package store

import (
	"math/big"
	"testing"

	"github.com/dexquoter/dexquoter/dexcommon"
	"github.com/ethereum/go-ethereum/common"
)

func TestPoolFieldsRoundTripV3(t *testing.T) {
	addr := common.HexToAddress("0xFF970A61A04b1cA14834A43f5dE4533eBDDB5CC8")
	pool := Pool{
		Kind:         dexcommon.PoolKindV3,
		Address:      addr,
		Fee:          500,
		TokenA:       common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"),
		TokenB:       common.HexToAddress("0xFF970A61A04b1cA14834A43f5dE4533eBDDB5CC8"),
		DecimalsA:    18,
		DecimalsB:    6,
		Liquidity:    big.NewInt(123456789),
		SqrtPriceX96: new(big.Int).SetUint64(3153850309552619302081708813739 % (1 << 63)),
		Tick:         73684,
		TickSpacing:  10,
		LiquidityNet: big.NewInt(-500),
	}

	fields := PoolFields(pool)
	got, err := PoolFromFields(addr, fields)
	if err != nil {
		t.Fatalf("PoolFromFields: %v", err)
	}

	if got.Kind != pool.Kind || got.Fee != pool.Fee || got.Tick != pool.Tick {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, pool)
	}
	if got.Liquidity.Cmp(pool.Liquidity) != 0 {
		t.Errorf("Liquidity round trip: got %s, want %s", got.Liquidity, pool.Liquidity)
	}
	if got.LiquidityNet.Cmp(pool.LiquidityNet) != 0 {
		t.Errorf("LiquidityNet round trip: got %s, want %s", got.LiquidityNet, pool.LiquidityNet)
	}
}

func TestTickFieldsRoundTrip(t *testing.T) {
	rec := TickRecord{
		LiquidityGross: big.NewInt(1000),
		LiquidityNet:   big.NewInt(-1000),
	}
	fields := TickFields(rec)
	got, err := TickFromFields(fields)
	if err != nil {
		t.Fatalf("TickFromFields: %v", err)
	}
	if got.LiquidityGross.Cmp(rec.LiquidityGross) != 0 || got.LiquidityNet.Cmp(rec.LiquidityNet) != 0 {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, rec)
	}
}
