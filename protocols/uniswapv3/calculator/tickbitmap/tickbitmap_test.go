package tickbitmap

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memWordSource is a map-backed WordSource stub: tests build 256-bit words
// by hand keyed by wordPos, and any wordPos not in the map reads as an
// all-zero word.
type memWordSource struct {
	words map[int16]*big.Int
}

func (m memWordSource) Word(_ context.Context, wordPos int16) (*big.Int, error) {
	if w, ok := m.words[wordPos]; ok {
		return w, nil
	}
	return new(big.Int), nil
}

// wordWithBits sets the given bit positions (0-255) within a single word.
func wordWithBits(bits ...uint) *big.Int {
	w := new(big.Int)
	for _, b := range bits {
		w.SetBit(w, int(b), 1)
	}
	return w
}

func TestNextInitializedTickWithinOneWordSearchesLTE(t *testing.T) {
	const tickSpacing = 1
	// compressed ticks 50 and 100 both live in word 0 (compressed >> 8 == 0).
	src := memWordSource{words: map[int16]*big.Int{0: wordWithBits(50, 100)}}

	next, initialized, err := NextInitializedTickWithinOneWord(context.Background(), src, 60, tickSpacing, true)
	require.NoError(t, err)
	assert.True(t, initialized)
	assert.Equal(t, int64(50), next)
}

func TestNextInitializedTickWithinOneWordSearchesGT(t *testing.T) {
	const tickSpacing = 1
	src := memWordSource{words: map[int16]*big.Int{0: wordWithBits(50, 100)}}

	next, initialized, err := NextInitializedTickWithinOneWord(context.Background(), src, 60, tickSpacing, false)
	require.NoError(t, err)
	assert.True(t, initialized)
	assert.Equal(t, int64(100), next)
}

func TestNextInitializedTickWithinOneWordReportsUninitializedWhenWordEmpty(t *testing.T) {
	const tickSpacing = 1
	src := memWordSource{words: map[int16]*big.Int{}}

	_, initialized, err := NextInitializedTickWithinOneWord(context.Background(), src, 60, tickSpacing, true)
	require.NoError(t, err)
	assert.False(t, initialized)
}

func TestNextInitializedTickWithinOneWordAppliesTickSpacing(t *testing.T) {
	const tickSpacing = 60
	// Tick 3600 compresses to 60; bit 60 set within word 0.
	src := memWordSource{words: map[int16]*big.Int{0: wordWithBits(60)}}

	next, initialized, err := NextInitializedTickWithinOneWord(context.Background(), src, 3600, tickSpacing, true)
	require.NoError(t, err)
	assert.True(t, initialized)
	assert.Equal(t, int64(3600), next)
}

func TestPositionSplitsCompressedTick(t *testing.T) {
	wordPos, bitPos := Position(300)
	assert.Equal(t, int16(1), wordPos)
	assert.Equal(t, uint8(44), bitPos)
}
