package stm

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionedLockStatus(t *testing.T) {
	var l versionedLock
	locked, version := l.status()
	assert.False(t, locked)
	assert.Equal(t, uint64(0), version)
}

func TestVersionedLockTryAcquire(t *testing.T) {
	var l versionedLock
	require.True(t, l.tryAcquire())

	locked, _ := l.status()
	assert.True(t, locked)

	assert.False(t, l.tryAcquire(), "a held lock must refuse a second acquire")
}

func TestVersionedLockReleasePublishesVersion(t *testing.T) {
	var l versionedLock
	require.True(t, l.tryAcquire())
	l.release(42)

	locked, version := l.status()
	assert.False(t, locked)
	assert.Equal(t, uint64(42), version)
}

func TestVersionedLockReleaseSameKeepsVersion(t *testing.T) {
	var l versionedLock
	l.release(7)
	require.True(t, l.tryAcquire())
	l.releaseSame()

	locked, version := l.status()
	assert.False(t, locked)
	assert.Equal(t, uint64(7), version, "releaseSame must not change the version")
}

func TestVersionedLockOnlyOneAcquirerUnderContention(t *testing.T) {
	var l versionedLock
	const n = 64
	var wins int32
	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if l.tryAcquire() {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins, "exactly one goroutine should win the race to acquire")
}
