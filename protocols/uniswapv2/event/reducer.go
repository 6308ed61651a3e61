package event

import (
	"context"
	"fmt"

	"github.com/dexquoter/dexquoter/dexcommon"
	"github.com/dexquoter/dexquoter/dexerr"
	"github.com/dexquoter/dexquoter/store"
)

// Reducer applies V2 Sync logs to the cached pool reserves. V2 Swap logs
// carry no state the Sync snapshot doesn't already supersede (spec §4.3
// marks it "informational"), so there is no corresponding apply method.
type Reducer struct {
	Store store.Store
}

// ApplySyncEvent overwrites the pool's reserve_a/reserve_b with the Sync
// log's (reserve0, reserve1) snapshot.
func (r *Reducer) ApplySyncEvent(ctx context.Context, chain dexcommon.ChainID, poolAddr dexcommon.Address, ev SyncEvent) error {
	pool, ok, err := r.Store.GetPool(ctx, chain, poolAddr)
	if err != nil {
		return dexerr.Store(err)
	}
	if !ok {
		return dexerr.PoolNotFound(poolAddr)
	}
	if pool.Kind != dexcommon.PoolKindV2 {
		return fmt.Errorf("%w: pool %s is not a V2 pool", dexerr.ErrInvalidDex, dexcommon.AddrHex(poolAddr))
	}

	pool.ReserveA = ev.Reserve0
	pool.ReserveB = ev.Reserve1
	if err := r.Store.PutPool(ctx, chain, pool); err != nil {
		return dexerr.Store(err)
	}
	return nil
}
