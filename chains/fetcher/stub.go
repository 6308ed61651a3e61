package fetcher

import (
	"context"
	"math/big"

	"github.com/dexquoter/dexquoter/dexcommon"
)

// StubFetcher is a canned Fetcher for deterministic unit tests, per spec
// §9's instruction that the missing-data fetcher be injectable so the
// reducer and simulator can be tested without a live chain node.
type StubFetcher struct {
	Ticks   map[int64][2]*big.Int // tick -> (liquidityGross, liquidityNet)
	Words   map[int16]*big.Int
	CallLog []string
}

// NewStubFetcher constructs an empty StubFetcher; zero values are returned
// for any tick or word not explicitly populated, mirroring an uninitialized
// on-chain slot.
func NewStubFetcher() *StubFetcher {
	return &StubFetcher{
		Ticks: make(map[int64][2]*big.Int),
		Words: make(map[int16]*big.Int),
	}
}

func (s *StubFetcher) FetchTick(_ context.Context, _ dexcommon.Address, tick int64) (*big.Int, *big.Int, error) {
	s.CallLog = append(s.CallLog, "FetchTick")
	if v, ok := s.Ticks[tick]; ok {
		return v[0], v[1], nil
	}
	return new(big.Int), new(big.Int), nil
}

func (s *StubFetcher) FetchBitmapWord(_ context.Context, _ dexcommon.Address, wordPos int16) (*big.Int, error) {
	s.CallLog = append(s.CallLog, "FetchBitmapWord")
	if w, ok := s.Words[wordPos]; ok {
		return w, nil
	}
	return new(big.Int), nil
}

// PoolWordSource adapts a Fetcher, bound to one pool address, into the
// tickbitmap.WordSource interface the V3 calculator and reducer consume.
type PoolWordSource struct {
	Fetcher Fetcher
	Pool    dexcommon.Address
}

func (p PoolWordSource) Word(ctx context.Context, wordPos int16) (*big.Int, error) {
	return p.Fetcher.FetchBitmapWord(ctx, p.Pool, wordPos)
}
