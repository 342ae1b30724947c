package godb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLockManagerAcquireAndReleaseAll(t *testing.T) {
	lm := NewLockManager(time.Second)
	tid := NewTransactionID()
	p1 := PageID{TableID: 1, PageNumber: 0}
	p2 := PageID{TableID: 1, PageNumber: 1}

	require.NoError(t, lm.acquire(tid, p1, LockShared))
	require.NoError(t, lm.acquire(tid, p2, LockExclusive))

	mode, ok := lm.holds(tid, p1)
	require.True(t, ok)
	require.Equal(t, LockShared, mode)

	lm.releaseAll(tid)

	_, ok = lm.holds(tid, p1)
	require.False(t, ok)
	_, ok = lm.holds(tid, p2)
	require.False(t, ok)
}

func TestLockManagerReleaseSinglePage(t *testing.T) {
	lm := NewLockManager(time.Second)
	tid := NewTransactionID()
	pid := PageID{TableID: 1, PageNumber: 0}

	require.NoError(t, lm.acquire(tid, pid, LockShared))
	lm.release(tid, pid)

	_, ok := lm.holds(tid, pid)
	require.False(t, ok)
}

func TestLockManagerConflictAborts(t *testing.T) {
	lm := NewLockManager(60 * time.Millisecond)
	t1, t2 := NewTransactionID(), NewTransactionID()
	pid := PageID{TableID: 1, PageNumber: 0}

	require.NoError(t, lm.acquire(t1, pid, LockExclusive))
	err := lm.acquire(t2, pid, LockShared)
	require.Error(t, err)
	require.True(t, IsAborted(err))
}

func TestLockManagerPagesHeldBy(t *testing.T) {
	lm := NewLockManager(time.Second)
	tid := NewTransactionID()
	p1 := PageID{TableID: 1, PageNumber: 0}
	p2 := PageID{TableID: 1, PageNumber: 1}

	require.NoError(t, lm.acquire(tid, p1, LockShared))
	require.NoError(t, lm.acquire(tid, p2, LockShared))

	pages := lm.pagesHeldBy(tid)
	require.ElementsMatch(t, []PageID{p1, p2}, pages)
}
