package tokenmeta

import (
	"testing"

	"github.com/dexquoter/dexquoter/dexcommon"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestCachePutGet(t *testing.T) {
	c := NewCache()
	weth := dexcommon.Address(common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"))
	c.Put(Token{Address: weth, Symbol: "WETH", Decimals: 18})

	got, ok := c.Get(weth)
	assert.True(t, ok)
	assert.Equal(t, "WETH", got.Symbol)

	_, ok = c.Get(common.HexToAddress("0x0000000000000000000000000000000000000001"))
	assert.False(t, ok)
}

func TestIsFeeOnTransfer(t *testing.T) {
	c := NewCache()
	plain := common.HexToAddress("0x1111111111111111111111111111111111111111")
	fot := common.HexToAddress("0x2222222222222222222222222222222222222222")
	c.Put(Token{Address: plain, FeeOnTransferPercent: 0})
	c.Put(Token{Address: fot, FeeOnTransferPercent: 2.5})

	assert.False(t, c.IsFeeOnTransfer(plain))
	assert.True(t, c.IsFeeOnTransfer(fot))
	// Unknown address: never excluded.
	assert.False(t, c.IsFeeOnTransfer(common.HexToAddress("0x3333333333333333333333333333333333333333")))
}
