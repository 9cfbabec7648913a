package stm

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegionAllocBlockOrdering(t *testing.T) {
	r := newRegion(1024)

	addrs := make([]VirtualAddr, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	for i := range addrs {
		go func(i int) {
			defer wg.Done()
			addr, err := r.AllocBlock()
			require.NoError(t, err)
			addrs[i] = addr
		}(i)
	}
	wg.Wait()

	assert.NotEqual(t, addrs[0], addrs[1], "concurrent allocators must receive distinct block addresses")
	b0, _ := addrToBlockOffset(addrs[0])
	b1, _ := addrToBlockOffset(addrs[1])
	assert.ElementsMatch(t, []uint64{1, 2}, []uint64{b0, b1})
	assert.Equal(t, uint64(3), r.nextBlock, "next_block must be exactly 3 after two allocations")
}

func TestRegionAllocExhaustion(t *testing.T) {
	r := newRegion(0)
	r.nextBlock = BlockCount // force immediate exhaustion

	_, err := r.AllocBlock()
	assert.ErrorIs(t, err, ErrAllocExhausted)
}

func TestRegionWordAtResolvesBlockAndOffset(t *testing.T) {
	r := newRegion(0)
	addr := StartVirtualAddr + VirtualAddr(7*Alignment)
	w := r.wordAt(addr)
	assert.Same(t, &r.words[0][7], w)
}
