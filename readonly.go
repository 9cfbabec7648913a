package stm

import "sync/atomic"

// ReadOnlyTxn is a validated-read-only view of a Region as of a sampled
// start timestamp. It never mutates shared state and has no commit phase:
// it either completes having observed a consistent snapshot of every word
// it read, or it aborts.
type ReadOnlyTxn struct {
	region  *Region
	startTS uint64
}

// begin binds the transaction to region and samples its clock as this
// transaction's start timestamp.
func (t *ReadOnlyTxn) begin(region *Region) {
	t.region = region
	t.startTS = region.clockLoad()
}

// Read copies len(out) words starting at addr into out, validating each
// word against startTS. A word is rejected if it is locked or carries a
// version newer than startTS either before or after the copy; either
// failure means the snapshot this transaction is building is no longer
// consistent, and the whole read aborts.
func (t *ReadOnlyTxn) Read(addr VirtualAddr, out []uint64) error {
	for i := range out {
		w := t.region.wordAt(addr + VirtualAddr(i*Alignment))

		locked, version := w.lock.status()
		if locked || version > t.startTS {
			return ErrAborted
		}

		out[i] = atomic.LoadUint64(&w.data)

		locked, version = w.lock.status()
		if locked || version > t.startTS {
			return ErrAborted
		}
	}
	return nil
}
