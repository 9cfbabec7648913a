package stm

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, size uint64) *Manager {
	t.Helper()
	m := NewManager()
	require.NoError(t, m.Create(size, Alignment))
	return m
}

func TestManagerCreateRejectsWrongAlignment(t *testing.T) {
	m := NewManager()
	err := m.Create(1024, Alignment*2)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestManagerCreateRejectsOversizedRegion(t *testing.T) {
	m := NewManager()
	err := m.Create(defaultConfig.maxSize()+Alignment, Alignment)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestManagerSizeAlignStart(t *testing.T) {
	m := newTestManager(t, 4096)
	assert.Equal(t, uint64(4096), m.Size())
	assert.Equal(t, uint64(Alignment), m.Align())
	assert.Equal(t, StartVirtualAddr, m.Start())
}

func TestManagerReadWriteRoundTrip(t *testing.T) {
	m := newTestManager(t, 1024)

	h := m.Begin(false)
	require.NoError(t, m.Write(h, []uint64{11, 22}, 2*Alignment, m.Start()))
	out := make([]uint64, 2)
	require.NoError(t, m.Read(h, m.Start(), 2*Alignment, out))
	assert.Equal(t, []uint64{11, 22}, out)
	require.True(t, m.End(h))

	h2 := m.Begin(true)
	out2 := make([]uint64, 2)
	require.NoError(t, m.Read(h2, m.Start(), 2*Alignment, out2))
	assert.Equal(t, []uint64{11, 22}, out2)
	assert.True(t, m.End(h2))
}

func TestManagerReadRejectsMisalignedSize(t *testing.T) {
	m := newTestManager(t, 1024)
	h := m.Begin(true)
	err := m.Read(h, m.Start(), Alignment+1, make([]uint64, 1))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestManagerWriteOnReadOnlyHandleFails(t *testing.T) {
	m := newTestManager(t, 1024)
	h := m.Begin(true)
	err := m.Write(h, []uint64{1}, Alignment, m.Start())
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestManagerAllocationOrderingDistinctAddresses(t *testing.T) {
	m := newTestManager(t, 0)

	var wg sync.WaitGroup
	addrs := make([]VirtualAddr, 2)
	wg.Add(2)
	for i := range addrs {
		go func(i int) {
			defer wg.Done()
			h := m.Begin(false)
			addr, err := m.Alloc(h, Alignment)
			require.NoError(t, err)
			m.End(h)
			addrs[i] = addr
		}(i)
	}
	wg.Wait()

	assert.NotEqual(t, addrs[0], addrs[1])
	assert.Equal(t, uint64(3), m.region.nextBlock)
}

func TestManagerFreeIsNoOp(t *testing.T) {
	m := newTestManager(t, 0)
	h := m.Begin(false)
	addr, err := m.Alloc(h, Alignment)
	require.NoError(t, err)
	assert.NoError(t, m.Free(h, addr))
	m.End(h)
}

func TestManagerStatsTrackCommitsAndAborts(t *testing.T) {
	m := newTestManager(t, 1024)

	h := m.Begin(false)
	require.NoError(t, m.Write(h, []uint64{1}, Alignment, m.Start()))
	require.True(t, m.End(h))

	locked := &m.region.wordAt(m.Start()).lock
	require.True(t, locked.tryAcquire())

	h2 := m.Begin(false)
	require.NoError(t, m.Write(h2, []uint64{2}, Alignment, m.Start()))
	require.False(t, m.End(h2))

	locked.releaseSame()

	stats := m.Stats()
	assert.Equal(t, uint64(1), stats.Commits)
	assert.Equal(t, uint64(1), stats.Aborts)
}

func TestBankTransferPreservesTotal(t *testing.T) {
	const accounts = 10
	const initial = 100
	m := newTestManager(t, accounts*Alignment)

	addrOf := func(i int) VirtualAddr { return m.Start() + VirtualAddr(i*Alignment) }

	require.NoError(t, Atomically(m, func(tx *UpdateTxn) error {
		for i := 0; i < accounts; i++ {
			tx.Write(addrOf(i), []uint64{initial})
		}
		return nil
	}))

	const workers = 16
	const rounds = 2000
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < rounds; i++ {
				from, to := rng.Intn(accounts), rng.Intn(accounts)
				if from == to {
					continue
				}
				_ = Atomically(m, func(tx *UpdateTxn) error {
					fv := make([]uint64, 1)
					if err := tx.Read(addrOf(from), fv); err != nil {
						return err
					}
					if fv[0] == 0 {
						return nil
					}
					amount := uint64(rng.Int63n(int64(fv[0])))
					if amount == 0 {
						return nil
					}
					tv := make([]uint64, 1)
					if err := tx.Read(addrOf(to), tv); err != nil {
						return err
					}
					tx.Write(addrOf(from), []uint64{fv[0] - amount})
					tx.Write(addrOf(to), []uint64{tv[0] + amount})
					return nil
				})
			}
		}(int64(w))
	}
	wg.Wait()

	h := m.Begin(true)
	total := uint64(0)
	for i := 0; i < accounts; i++ {
		out := make([]uint64, 1)
		require.NoError(t, m.Read(h, addrOf(i), Alignment, out))
		total += out[0]
	}
	require.True(t, m.End(h))

	assert.Equal(t, uint64(accounts*initial), total, "transfers must preserve the total across all accounts")
}
