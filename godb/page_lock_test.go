package godb

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPageLockSharedHoldersDoNotBlockEachOther(t *testing.T) {
	pl := newPageLock()
	t1, t2 := NewTransactionID(), NewTransactionID()

	require.NoError(t, pl.acquire(t1, LockShared, time.Second))
	require.NoError(t, pl.acquire(t2, LockShared, time.Second))

	mode, ok := pl.holds(t1)
	require.True(t, ok)
	require.Equal(t, LockShared, mode)
}

func TestPageLockExclusiveExcludesShared(t *testing.T) {
	pl := newPageLock()
	t1, t2 := NewTransactionID(), NewTransactionID()

	require.NoError(t, pl.acquire(t1, LockShared, time.Second))

	err := pl.acquire(t2, LockExclusive, 50*time.Millisecond)
	require.Error(t, err)
	require.True(t, IsAborted(err))
}

func TestPageLockReentrant(t *testing.T) {
	pl := newPageLock()
	t1 := NewTransactionID()

	require.NoError(t, pl.acquire(t1, LockShared, time.Second))
	require.NoError(t, pl.acquire(t1, LockShared, time.Second))
	require.NoError(t, pl.acquire(t1, LockExclusive, time.Second))

	mode, ok := pl.holds(t1)
	require.True(t, ok)
	require.Equal(t, LockExclusive, mode)
}

func TestPageLockSoleSharedHolderUpgrades(t *testing.T) {
	pl := newPageLock()
	t1 := NewTransactionID()

	require.NoError(t, pl.acquire(t1, LockShared, time.Second))
	require.NoError(t, pl.acquire(t1, LockExclusive, 50*time.Millisecond))
}

func TestPageLockReleaseWakesWaiter(t *testing.T) {
	pl := newPageLock()
	t1, t2 := NewTransactionID(), NewTransactionID()
	require.NoError(t, pl.acquire(t1, LockExclusive, time.Second))

	done := make(chan error, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		done <- pl.acquire(t2, LockExclusive, time.Second)
	}()

	time.Sleep(20 * time.Millisecond)
	pl.release(t1)
	wg.Wait()
	require.NoError(t, <-done)
}

func TestPageLockTimeoutAborts(t *testing.T) {
	pl := newPageLock()
	t1, t2 := NewTransactionID(), NewTransactionID()
	require.NoError(t, pl.acquire(t1, LockExclusive, time.Second))

	start := time.Now()
	err := pl.acquire(t2, LockShared, 80*time.Millisecond)
	elapsed := time.Since(start)

	require.Error(t, err)
	require.True(t, IsAborted(err))
	require.GreaterOrEqual(t, elapsed, 80*time.Millisecond)
}
