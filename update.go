package stm

import (
	"sort"
	"sync/atomic"
)

// writeSetEntry buffers one pending write: the payload and the lock
// guarding the word it will eventually be published to.
type writeSetEntry struct {
	value uint64
	lock  *versionedLock
}

// abortReason classifies why a commit failed, so a caller (Manager.End)
// can report it without re-deriving the protocol state.
type abortReason int

const (
	abortNone abortReason = iota
	abortLockAcquire
	abortValidate
)

// commitOutcome is the result of running UpdateTxn.commit.
type commitOutcome struct {
	committed    bool
	fastPath     bool
	reason       abortReason
	writeSetSize int
}

// UpdateTxn is a transaction that may both read and write. It buffers
// every write in a write-set keyed by address (last write wins) and
// records every address it validated a read against in a read-set, then
// commits via the two-phase TL2 protocol: acquire write-set locks in
// ascending address order, obtain a commit timestamp, validate the
// read-set unless the fast path applies, then publish.
type UpdateTxn struct {
	region   *Region
	startTS  uint64
	readSet  map[VirtualAddr]*versionedLock
	writeSet map[VirtualAddr]writeSetEntry

	// locked accumulates locks acquired so far during commit's phase 1,
	// so a failed acquisition can roll back exactly what it took.
	locked []*versionedLock
}

// begin binds the transaction to region, samples its clock, and clears
// both sets, ready for reuse.
func (t *UpdateTxn) begin(region *Region) {
	t.region = region
	t.startTS = region.clockLoad()
	t.reset()
}

func (t *UpdateTxn) reset() {
	t.readSet = nil
	t.writeSet = nil
	t.locked = t.locked[:0]
}

// Read copies len(out) words starting at addr into out. An address
// already present in the write-set returns the buffered value without
// touching shared memory or the read-set (the transaction is reading its
// own prior write). Otherwise it applies the same pre/post double-check
// as a read-only transaction and, on success, records the word's lock in
// the read-set for validation at commit time.
func (t *UpdateTxn) Read(addr VirtualAddr, out []uint64) error {
	for i := range out {
		a := addr + VirtualAddr(i*Alignment)

		if entry, ok := t.writeSet[a]; ok {
			out[i] = entry.value
			continue
		}

		w := t.region.wordAt(a)

		locked, version1 := w.lock.status()
		if locked || version1 > t.startTS {
			t.reset()
			return ErrAborted
		}

		out[i] = atomic.LoadUint64(&w.data)

		locked, version2 := w.lock.status()
		if locked || version1 != version2 {
			t.reset()
			return ErrAborted
		}

		if t.readSet == nil {
			t.readSet = make(map[VirtualAddr]*versionedLock, 4)
		}
		t.readSet[a] = &w.lock
	}
	return nil
}

// Write buffers len(src) words starting at addr; it never touches shared
// memory and never fails. Overlapping writes within the same transaction
// overwrite the buffered value (last write wins).
func (t *UpdateTxn) Write(addr VirtualAddr, src []uint64) {
	if t.writeSet == nil {
		t.writeSet = make(map[VirtualAddr]writeSetEntry, len(src))
	}
	for i, v := range src {
		a := addr + VirtualAddr(i*Alignment)
		w := t.region.wordAt(a)
		t.writeSet[a] = writeSetEntry{value: v, lock: &w.lock}
	}
}

// commit runs the two-phase protocol: acquire write-set locks in ascending
// address order, obtain a commit timestamp, validate the read-set unless
// the fast path applies, then publish.
func (t *UpdateTxn) commit() commitOutcome {
	region := t.region
	if len(t.writeSet) == 0 {
		// Read-only within an update transaction: nothing to publish,
		// nothing to validate, no commit timestamp to assign.
		t.reset()
		return commitOutcome{committed: true}
	}

	addrs := make([]VirtualAddr, 0, len(t.writeSet))
	for a := range t.writeSet {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	writeSetSize := len(addrs)

	// Phase 1: acquire write-set locks in ascending address order.
	t.locked = t.locked[:0]
	for _, a := range addrs {
		lk := t.writeSet[a].lock
		if !lk.tryAcquire() {
			for _, held := range t.locked {
				held.releaseSame()
			}
			t.reset()
			return commitOutcome{reason: abortLockAcquire, writeSetSize: writeSetSize}
		}
		t.locked = append(t.locked, lk)
	}

	// Phase 2: obtain a commit timestamp, validate, publish.
	commitTS := region.clockAdvance()
	fastPath := commitTS == t.startTS+1

	if !fastPath {
		for a, lk := range t.readSet {
			locked, version := lk.status()
			_, ownWrite := t.writeSet[a]
			if version > t.startTS || (locked && !ownWrite) {
				for _, held := range t.locked {
					held.releaseSame()
				}
				t.reset()
				return commitOutcome{reason: abortValidate, writeSetSize: writeSetSize}
			}
		}
	}

	for _, a := range addrs {
		entry := t.writeSet[a]
		w := region.wordAt(a)
		atomic.StoreUint64(&w.data, entry.value)
		entry.lock.release(commitTS)
	}

	t.reset()
	return commitOutcome{committed: true, fastPath: fastPath, writeSetSize: writeSetSize}
}
