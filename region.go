package stm

import "sync/atomic"

// word is the unit of storage: a payload guarded by its own versioned
// lock. data is accessed through sync/atomic even though only the lock
// holder ever writes it, so that the lock-free reader path (which samples
// data outside of any lock) never races with a concurrent writer under the
// race detector.
type word struct {
	lock versionedLock
	data uint64
}

// Region is the shared, word-addressable memory region every transaction
// reads and writes. It owns all word storage for the process lifetime: a
// two-level table of blocks, a global commit clock, and a bump allocator
// for growth. Blocks are never freed.
type Region struct {
	words     [BlockCount][BlockSize]word
	clock     uint64 // atomic: global commit clock
	nextBlock uint64 // atomic: next block index to hand out
	size      uint64 // logical size in bytes, as given to Create
}

// newRegion constructs a region of the given logical size. Block 0 is the
// initial segment and is live immediately; nextBlock starts at 1 so the
// first AllocBlock call hands out block 1.
func newRegion(size uint64) *Region {
	return &Region{
		size:      size,
		nextBlock: 1,
	}
}

// wordAt resolves a virtual address to its backing word. Bounds are
// trusted: callers pass addresses this package previously returned.
func (r *Region) wordAt(addr VirtualAddr) *word {
	block, offset := addrToBlockOffset(addr)
	return &r.words[block][offset]
}

// clockLoad samples the global commit clock with relaxed ordering: a
// relaxed sample suffices because every subsequent lock read uses acquire
// ordering, which is what actually orders a transaction's view of memory.
func (r *Region) clockLoad() uint64 {
	return atomic.LoadUint64(&r.clock)
}

// clockAdvance bumps the global commit clock and returns the new value,
// i.e. the commit timestamp assigned to the caller's transaction.
func (r *Region) clockAdvance() uint64 {
	return atomic.AddUint64(&r.clock, 1)
}

// AllocBlock bumps the region's next-block counter and returns the base
// virtual address of the freshly allocated block, or ErrAllocExhausted if
// the region's block table is full. The granularity is always one block,
// regardless of how many bytes the caller asked for.
func (r *Region) AllocBlock() (VirtualAddr, error) {
	idx := atomic.AddUint64(&r.nextBlock, 1) - 1
	if idx > BlockCount-1 {
		return 0, ErrAllocExhausted
	}
	return blockToAddr(idx), nil
}
