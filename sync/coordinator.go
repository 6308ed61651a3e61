package sync

import (
	"context"
	"sync"

	"github.com/dexquoter/dexquoter/dexcommon"
	"github.com/dexquoter/dexquoter/logging"
	"github.com/dexquoter/dexquoter/store"
)

// Subscriber is the live log feed the coordinator drains: one call opens a
// subscription scoped to a set of addresses and streams matching logs until
// ctx is cancelled or the feed ends. Grounded on
// original_source/dexquote/src/sync/mod.rs's client.subscribe_logs; the
// gorilla/websocket implementation is WSSubscriber in this package.
type Subscriber interface {
	SubscribeLogs(ctx context.Context, addresses []dexcommon.Address) (<-chan Log, error)
}

// Coordinator runs the one-subscriber/N-workers log pipeline (spec §4.9,
// §5): a single subscriber goroutine feeds a buffered channel that Threads
// worker goroutines drain concurrently, each calling Dispatcher.Dispatch.
// Go has no literal unbounded channel, so BufferSize stands in for
// original_source's crossbeam unbounded() MPMC queue -- a large buffer
// absorbs bursts without the subscriber blocking on a slow worker pool,
// mirroring streams/jsonrpc/client.Config.BufferSize.
type Coordinator struct {
	Subscriber Subscriber
	Dispatcher *Dispatcher
	Store      store.Store
	Threads    int
	BufferSize int
	Logger     logging.Logger
}

func (c *Coordinator) logger() logging.Logger {
	if c.Logger == nil {
		return logging.Nop{}
	}
	return c.Logger
}

// Run subscribes to every known V2/V3 pool address and fans incoming logs
// out across Threads workers until ctx is cancelled. It blocks until the
// subscription ends or ctx.Err() is non-nil.
func (c *Coordinator) Run(ctx context.Context, chain dexcommon.ChainID) error {
	addresses, err := c.filterAddresses(ctx, chain)
	if err != nil {
		return err
	}

	logs, err := c.Subscriber.SubscribeLogs(ctx, addresses)
	if err != nil {
		return err
	}
	if c.BufferSize > 0 {
		buffered := make(chan Log, c.BufferSize)
		go func(in <-chan Log) {
			defer close(buffered)
			for l := range in {
				select {
				case buffered <- l:
				case <-ctx.Done():
					return
				}
			}
		}(logs)
		logs = buffered
	}

	threads := c.Threads
	if threads < 1 {
		threads = 1
	}

	var wg sync.WaitGroup
	wg.Add(threads)
	for i := 0; i < threads; i++ {
		go func() {
			defer wg.Done()
			c.worker(ctx, chain, logs)
		}()
	}
	wg.Wait()
	return ctx.Err()
}

func (c *Coordinator) worker(ctx context.Context, chain dexcommon.ChainID, logs <-chan Log) {
	for {
		select {
		case <-ctx.Done():
			return
		case log, ok := <-logs:
			if !ok {
				return
			}
			if c.Dispatcher.Metrics != nil {
				c.Dispatcher.Metrics.setQueueDepth(len(logs))
			}
			c.Dispatcher.Dispatch(ctx, chain, log)
		}
	}
}

// filterAddresses returns every pool address currently cached for chain,
// the union get_filter builds from its UNIV2 and UNIV3 pool lists.
func (c *Coordinator) filterAddresses(ctx context.Context, chain dexcommon.ChainID) ([]dexcommon.Address, error) {
	var addresses []dexcommon.Address
	for _, kind := range []dexcommon.PoolKind{dexcommon.PoolKindV2, dexcommon.PoolKindV3} {
		addrs, err := c.Store.ListPools(ctx, chain, kind)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, addrs...)
	}
	c.logger().Info("sync: subscribing to pool logs", "chain", chain, "pools", len(addresses))
	return addresses, nil
}
