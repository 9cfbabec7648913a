package stm

import (
	"fmt"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// TxHandle is the opaque transaction handle returned by Manager.Begin, an
// explicit stand-in for a tagged thread-local transaction record: the
// readonly flag lives as a plain field on a small struct rather than a bit
// stolen from a pointer or a value stashed in per-thread storage, since Go
// has neither. A handle must only be used by the goroutine that obtained
// it, for the lifetime of exactly one transaction; the runtime does not
// and cannot enforce this, so it is a documented caller obligation.
type TxHandle struct {
	readOnly bool
	ro       *ReadOnlyTxn
	up       *UpdateTxn
}

// Manager owns one Region and dispatches the transaction lifecycle
// (Create, Destroy, Start, Size, Align, Begin, End, Read, Write, Alloc,
// Free) onto the handles Begin hands back to callers.
type Manager struct {
	region  *Region
	logger  zerolog.Logger
	metrics *txMetrics

	commits   uint64 // atomic, for Stats()
	aborts    uint64 // atomic, for Stats()
	fastPaths uint64 // atomic, for Stats()
}

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithLogger attaches a zerolog.Logger used for commit/abort/allocation
// events. The default is a disabled logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithRegisterer attaches a prometheus.Registerer that Manager's counters
// are registered against. The default registers against a private,
// unexposed registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(m *Manager) { m.metrics = newTxMetrics(reg) }
}

// NewManager constructs a Manager with no region yet; call Create before
// beginning any transaction.
func NewManager(opts ...Option) *Manager {
	m := &Manager{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(m)
	}
	if m.metrics == nil {
		m.metrics = newTxMetrics(nil)
	}
	return m
}

// Create initializes the region backing m. align must equal the runtime's
// fixed word alignment; size is recorded and returned verbatim by Size, and
// must fit within the region's fixed block/word table capacity.
func (m *Manager) Create(size, align uint64) error {
	if align != Alignment {
		return fmt.Errorf("%w: align must be %d, got %d", ErrInvalidArgument, Alignment, align)
	}
	if size > defaultConfig.maxSize() {
		return fmt.Errorf("%w: size %d exceeds region capacity %d", ErrInvalidArgument, size, defaultConfig.maxSize())
	}
	m.region = newRegion(size)
	return nil
}

// Destroy releases m's region. Safe to call even if Create was never
// called.
func (m *Manager) Destroy() {
	m.region = nil
}

// Start returns the stable virtual address of the initial segment.
func (m *Manager) Start() VirtualAddr {
	return StartVirtualAddr
}

// Size returns the byte size given to Create.
func (m *Manager) Size() uint64 {
	return m.region.size
}

// Align returns the runtime's fixed word alignment.
func (m *Manager) Align() uint64 {
	return Alignment
}

// Begin starts a transaction and returns its handle. The readonly flag is
// fixed for the handle's lifetime: a read-only handle may never Write.
func (m *Manager) Begin(readOnly bool) *TxHandle {
	h := &TxHandle{readOnly: readOnly}
	if readOnly {
		h.ro = &ReadOnlyTxn{}
		h.ro.begin(m.region)
		m.metrics.started.WithLabelValues("readonly").Inc()
	} else {
		h.up = &UpdateTxn{}
		h.up.begin(m.region)
		m.metrics.started.WithLabelValues("update").Inc()
	}
	return h
}

// End commits an update transaction, or trivially succeeds for a
// read-only one (it never mutates shared state and has no commit phase).
func (m *Manager) End(h *TxHandle) bool {
	if h.readOnly {
		return true
	}
	outcome := h.up.commit()
	m.observeCommit(outcome)
	return outcome.committed
}

// Read copies nBytes (a positive multiple of Alignment) starting at src
// into dst, dispatching to the handle's read-only or update transaction.
// On failure the transaction has already been rolled back and must be
// discarded.
func (m *Manager) Read(h *TxHandle, src VirtualAddr, nBytes uint64, dst []uint64) error {
	if err := checkSize(nBytes, dst); err != nil {
		return err
	}
	var err error
	if h.readOnly {
		err = h.ro.Read(src, dst)
	} else {
		err = h.up.Read(src, dst)
	}
	if err != nil {
		m.metrics.abortedRead.Inc()
	}
	return err
}

// Write buffers nBytes (a positive multiple of Alignment) from src into
// the destination address. It never fails on a conflict (conflicts are
// detected at commit); it returns ErrReadOnly for a read-only handle and
// ErrInvalidArgument for a bad size.
func (m *Manager) Write(h *TxHandle, src []uint64, nBytes uint64, dst VirtualAddr) error {
	if h.readOnly {
		return ErrReadOnly
	}
	if err := checkSize(nBytes, src); err != nil {
		return err
	}
	h.up.Write(dst, src)
	return nil
}

// Alloc returns the starting virtual address of a freshly allocated block.
// The granularity is one block regardless of nBytes requested; Alloc does
// not touch the handle's read- or write-set (allocation is not part of
// the transactional protocol).
func (m *Manager) Alloc(h *TxHandle, nBytes uint64) (VirtualAddr, error) {
	addr, err := m.region.AllocBlock()
	if err != nil {
		m.logAllocExhausted()
	}
	return addr, err
}

// Free is a no-op: blocks are never reclaimed in this design.
func (m *Manager) Free(h *TxHandle, addr VirtualAddr) error {
	return nil
}

// Stats is a snapshot of commit outcomes, for tests and the benchmark
// harness that want numbers without scraping /metrics.
type Stats struct {
	Commits   uint64
	Aborts    uint64
	FastPaths uint64
}

// Stats returns a point-in-time snapshot of commit/abort counts.
func (m *Manager) Stats() Stats {
	return Stats{
		Commits:   atomic.LoadUint64(&m.commits),
		Aborts:    atomic.LoadUint64(&m.aborts),
		FastPaths: atomic.LoadUint64(&m.fastPaths),
	}
}

func (m *Manager) observeCommit(outcome commitOutcome) {
	if outcome.committed {
		atomic.AddUint64(&m.commits, 1)
		m.metrics.committed.Inc()
		m.metrics.writeSetSize.Observe(float64(outcome.writeSetSize))
		if outcome.fastPath {
			atomic.AddUint64(&m.fastPaths, 1)
			m.metrics.fastPathCommits.Inc()
		}
	} else {
		atomic.AddUint64(&m.aborts, 1)
		switch outcome.reason {
		case abortLockAcquire:
			m.metrics.abortedLock.Inc()
		case abortValidate:
			m.metrics.abortedValidate.Inc()
		}
	}
	m.logCommit(outcome)
}

func checkSize(nBytes uint64, words []uint64) error {
	if nBytes == 0 || nBytes%Alignment != 0 {
		return fmt.Errorf("%w: size must be a positive multiple of %d, got %d", ErrInvalidArgument, Alignment, nBytes)
	}
	if uint64(len(words))*Alignment != nBytes {
		return fmt.Errorf("%w: buffer holds %d words, size implies %d", ErrInvalidArgument, len(words), nBytes/Alignment)
	}
	return nil
}
