package stm

// Word size and memory region geometry. Table dimensions must be Go array
// constants, so these stay compile-time values; Create validates any
// caller-supplied alignment against them instead of trusting it blindly.
const (
	// AlignmentBits is log2(Alignment): the number of low zero bits every
	// legal virtual address carries.
	AlignmentBits = 3
	// Alignment is the word size in bytes.
	Alignment = 1 << AlignmentBits

	// BlockSizeBits is log2 of the number of words per block.
	BlockSizeBits = 10
	// BlockSize is the number of words in one block.
	BlockSize = 1 << BlockSizeBits

	// BlockCountBits is log2 of the number of blocks per region.
	BlockCountBits = 9
	// BlockCount is the number of blocks a Region holds.
	BlockCount = 1 << BlockCountBits

	addrBlockShift = AlignmentBits + BlockSizeBits
	addrSTMShift   = addrBlockShift + BlockCountBits
)

// VirtualAddr is an address into a Region: a fixed high "STM space" marker
// bit, a block-index field, a word-offset field, and AlignmentBits low zero
// bits.
type VirtualAddr uint64

// StartVirtualAddr is the stable address of block 0, the initial segment
// live from Region construction.
const StartVirtualAddr VirtualAddr = 1 << addrSTMShift

// Config describes the geometry Manager.Create validates a caller's size
// and alignment against. Its fields mirror the compile-time array
// dimensions above; it is a separate type (rather than checking the
// constants inline) so the validation logic reads the same regardless of
// where the limits come from.
type Config struct {
	blockSizeBits  uint
	blockCountBits uint
	alignment      uint64
}

// defaultConfig is the Config every Manager validates against. It must
// agree with BlockSizeBits/BlockCountBits/Alignment above: Go array bounds
// are fixed at compile time, so this is descriptive of the table geometry,
// not an independent knob.
var defaultConfig = Config{
	blockSizeBits:  BlockSizeBits,
	blockCountBits: BlockCountBits,
	alignment:      Alignment,
}

// maxSize returns the largest byte size a Region built under c can address.
func (c Config) maxSize() uint64 {
	return (uint64(1) << (c.blockSizeBits + c.blockCountBits)) * c.alignment
}
