package stm

import "errors"

// The error taxonomy is deliberately small: a transaction either aborts on
// a detected conflict (the client may retry), or a request is malformed
// enough that we refuse to guess (the client has a bug). Plain sentinel
// errors keep that distinction cheap to check with errors.Is at every call
// site, without pulling in a stack-trace or multi-error library for a hot
// path that never needs one.
var (
	// ErrAborted is returned by Read when a transaction observed a
	// conflicting write and must be discarded (End reports a failed commit
	// by returning false instead). The caller decides whether to retry.
	ErrAborted = errors.New("stm: transaction aborted on conflict")

	// ErrAllocExhausted is returned by Alloc once a region's next-block
	// counter has outrun its block count.
	ErrAllocExhausted = errors.New("stm: region has no free blocks")

	// ErrInvalidArgument marks a programming error we choose to reject
	// explicitly: a Create alignment other than Alignment or a size beyond
	// the region's capacity, or a Read/Write size that is not a positive
	// multiple of Alignment matching the buffer. Addresses are not checked.
	ErrInvalidArgument = errors.New("stm: invalid argument")

	// ErrReadOnly is returned when Write is attempted against a handle
	// opened with Begin(true).
	ErrReadOnly = errors.New("stm: write attempted on a read-only transaction")
)
