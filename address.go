package stm

// addrToBlockOffset splits a virtual address into its block index and
// word offset. Bounds are trusted: callers pass addresses previously
// returned by this package.
func addrToBlockOffset(addr VirtualAddr) (block, offset uint64) {
	offset = (uint64(addr) >> AlignmentBits) & (BlockSize - 1)
	block = (uint64(addr) >> addrBlockShift) & (BlockCount - 1)
	return
}

// blockToAddr builds the base virtual address of a block: the STM-space
// marker bit set, with the block index shifted into the block field.
func blockToAddr(block uint64) VirtualAddr {
	return StartVirtualAddr | VirtualAddr((block&(BlockCount-1))<<addrBlockShift)
}
