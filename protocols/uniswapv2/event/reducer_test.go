package event

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/dexquoter/dexquoter/dexcommon"
	"github.com/dexquoter/dexquoter/dexerr"
	"github.com/dexquoter/dexquoter/store"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChain = dexcommon.ChainID(42161)

var testPoolAddr = common.HexToAddress("0xFF970A61A04b1cA14834A43f5dE4533eBDDB5CC8")

func TestApplySyncEventOverwritesReserves(t *testing.T) {
	s := store.NewMemStore()
	r := &Reducer{Store: s}
	pool := store.Pool{
		Kind:     dexcommon.PoolKindV2,
		Address:  testPoolAddr,
		Fee:      9970,
		TokenA:   common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"),
		TokenB:   testPoolAddr,
		ReserveA: big.NewInt(1),
		ReserveB: big.NewInt(1),
	}
	require.NoError(t, s.PutPool(context.Background(), testChain, pool))

	err := r.ApplySyncEvent(context.Background(), testChain, testPoolAddr, SyncEvent{
		Reserve0: big.NewInt(100), Reserve1: big.NewInt(200),
	})
	require.NoError(t, err)

	got, ok, err := s.GetPool(context.Background(), testChain, testPoolAddr)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, got.ReserveA.Cmp(big.NewInt(100)))
	assert.Equal(t, 0, got.ReserveB.Cmp(big.NewInt(200)))
}

func TestApplySyncEventRejectsMissingPool(t *testing.T) {
	s := store.NewMemStore()
	r := &Reducer{Store: s}

	err := r.ApplySyncEvent(context.Background(), testChain, testPoolAddr, SyncEvent{Reserve0: big.NewInt(1), Reserve1: big.NewInt(1)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, dexerr.ErrPoolNotFound))
}
