package store

import (
	"context"
	"math/big"
	"testing"

	"github.com/dexquoter/dexquoter/dexcommon"
	"github.com/ethereum/go-ethereum/common"
)

// Deliberately plain testing.T, no testify: this package's lowest-level
// key-encoding tests follow the teacher's bitset_test.go texture rather
// than the testify convention used everywhere else in this repo.

func TestPoolKey(t *testing.T) {
	addr := common.HexToAddress("0xFF970A61A04b1cA14834A43f5dE4533eBDDB5CC8")
	got := PoolKey(42161, addr)
	want := "42161:ff970a61a04b1ca14834a43f5de4533ebddb5cc8"
	if got != want {
		t.Errorf("PoolKey() = %q, want %q", got, want)
	}
}

func TestTickKey(t *testing.T) {
	addr := common.HexToAddress("0x0000000000000000000000000000000000dEaD")
	got := TickKey(1, addr, -887272)
	want := "1:000000000000000000000000000000000000dead:ticks:-887272"
	if got != want {
		t.Errorf("TickKey() = %q, want %q", got, want)
	}
}

func TestBitmapKey(t *testing.T) {
	addr := common.HexToAddress("0x0000000000000000000000000000000000dEaD")
	got := BitmapKey(1, addr, -3)
	want := "1:000000000000000000000000000000000000dead:bitmap:-3"
	if got != want {
		t.Errorf("BitmapKey() = %q, want %q", got, want)
	}
}

func TestMemStorePoolRoundTrip(t *testing.T) {
	s := NewMemStore()
	addr := common.HexToAddress("0x1111111111111111111111111111111111111D")
	pool := Pool{
		Kind:         dexcommon.PoolKindV3,
		Address:      addr,
		Fee:          500,
		Liquidity:    big.NewInt(1000),
		SqrtPriceX96: big.NewInt(12345),
		Tick:         100,
		TickSpacing:  10,
	}

	if err := s.PutPool(context.Background(), 42161, pool); err != nil {
		t.Fatalf("PutPool: %v", err)
	}

	got, ok, err := s.GetPool(context.Background(), 42161, addr)
	if err != nil || !ok {
		t.Fatalf("GetPool: ok=%v err=%v", ok, err)
	}
	if got.Tick != 100 || got.Liquidity.Cmp(big.NewInt(1000)) != 0 {
		t.Errorf("GetPool() = %+v, want tick=100 liquidity=1000", got)
	}

	pools, err := s.ListPools(context.Background(), 42161, dexcommon.PoolKindV3)
	if err != nil || len(pools) != 1 || pools[0] != addr {
		t.Errorf("ListPools() = %v, err=%v, want [%v]", pools, err, addr)
	}

	if err := s.DeletePool(context.Background(), 42161, addr); err != nil {
		t.Fatalf("DeletePool: %v", err)
	}
	if _, ok, _ := s.GetPool(context.Background(), 42161, addr); ok {
		t.Errorf("GetPool() after delete still found the pool")
	}
}

func TestMemStoreMissingKeyIsNotAnError(t *testing.T) {
	s := NewMemStore()
	addr := common.HexToAddress("0x2222222222222222222222222222222222222D")

	_, ok, err := s.GetPool(context.Background(), 1, addr)
	if err != nil {
		t.Errorf("GetPool() on missing key returned error %v, want nil", err)
	}
	if ok {
		t.Errorf("GetPool() on missing key returned ok=true")
	}

	_, ok, err = s.GetTick(context.Background(), 1, addr, 0)
	if err != nil || ok {
		t.Errorf("GetTick() on missing key = (ok=%v, err=%v), want (false, nil)", ok, err)
	}

	_, ok, err = s.GetBitmapWord(context.Background(), 1, addr, 0)
	if err != nil || ok {
		t.Errorf("GetBitmapWord() on missing key = (ok=%v, err=%v), want (false, nil)", ok, err)
	}
}
