package godb

import (
	"sync"
	"time"
)

// LockMode distinguishes a page lock's two strengths: readers hold
// LockShared, a writer holds LockExclusive. A transaction already holding
// LockExclusive is always considered to also hold LockShared.
type LockMode int

const (
	LockShared LockMode = iota
	LockExclusive
)

// PageLock is a single page's lock record: any number of transactions may
// hold it in shared mode simultaneously, or exactly one transaction may
// hold it exclusively. It is its own wait/notify primitive (a mutex paired
// with a condition variable) rather than a participant in any process-wide
// wait-for graph: a blocked acquire simply waits on this page's condition
// variable until woken by a release or by its own timeout, and gives up
// with an Aborted error if the timeout elapses first. Because there is no
// cycle detection, a deadlock between two transactions is broken by
// whichever one's timeout fires first, not by detecting the cycle.
type PageLock struct {
	mu   sync.Mutex
	cond *sync.Cond

	sharedHolders   map[TransactionID]struct{}
	exclusiveHolder *TransactionID
}

func newPageLock() *PageLock {
	pl := &PageLock{sharedHolders: make(map[TransactionID]struct{})}
	pl.cond = sync.NewCond(&pl.mu)
	return pl
}

// acquire blocks until tid holds the lock in at least mode, or until
// timeout elapses, in which case it returns an Aborted GoDBError. A
// transaction that already holds the lock in a sufficient mode returns
// immediately (reentrant). A transaction that is the sole shared holder
// and requests LockExclusive is upgraded in place without releasing and
// reacquiring.
func (pl *PageLock) acquire(tid TransactionID, mode LockMode, timeout time.Duration) error {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	deadline := time.Now().Add(timeout)
	for {
		if pl.canGrant(tid, mode) {
			pl.grant(tid, mode)
			return nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return NewAbortedError("timed out waiting for page lock")
		}
		pl.waitWithTimeout(remaining)
	}
}

// canGrant reports whether tid can be granted mode right now, given the
// lock's current holders. Must be called with mu held.
func (pl *PageLock) canGrant(tid TransactionID, mode LockMode) bool {
	if mode == LockShared {
		return pl.exclusiveHolder == nil || *pl.exclusiveHolder == tid
	}
	if pl.exclusiveHolder != nil {
		return *pl.exclusiveHolder == tid
	}
	for holder := range pl.sharedHolders {
		if holder != tid {
			return false
		}
	}
	return true
}

// grant records tid as a holder in mode. Must be called with mu held and
// after canGrant(tid, mode) returned true.
func (pl *PageLock) grant(tid TransactionID, mode LockMode) {
	if mode == LockShared {
		pl.sharedHolders[tid] = struct{}{}
		return
	}
	delete(pl.sharedHolders, tid)
	t := tid
	pl.exclusiveHolder = &t
}

// waitWithTimeout waits on the condition variable for at most d, waking
// itself via a timer if no release happens first. Must be called with mu
// held; reacquires mu before returning, per sync.Cond.Wait's contract.
func (pl *PageLock) waitWithTimeout(d time.Duration) {
	timer := time.AfterFunc(d, func() {
		pl.mu.Lock()
		pl.cond.Broadcast()
		pl.mu.Unlock()
	})
	defer timer.Stop()
	pl.cond.Wait()
}

// release drops tid's hold on the lock, in whichever mode it holds it, and
// wakes any waiters. Releasing a lock tid does not hold is a silent no-op,
// since transactionComplete releases indiscriminately over every page a
// transaction may have touched.
func (pl *PageLock) release(tid TransactionID) {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	delete(pl.sharedHolders, tid)
	if pl.exclusiveHolder != nil && *pl.exclusiveHolder == tid {
		pl.exclusiveHolder = nil
	}
	pl.cond.Broadcast()
}

// holds reports the strongest mode tid currently holds, or ok=false if it
// holds the lock in no mode at all. Non-blocking.
func (pl *PageLock) holds(tid TransactionID) (mode LockMode, ok bool) {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	if pl.exclusiveHolder != nil && *pl.exclusiveHolder == tid {
		return LockExclusive, true
	}
	if _, ok := pl.sharedHolders[tid]; ok {
		return LockShared, true
	}
	return LockShared, false
}

// idle reports whether the lock currently has no holders at all. The
// LockManager does not remove idle entries; they stay in its map.
func (pl *PageLock) idle() bool {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.exclusiveHolder == nil && len(pl.sharedHolders) == 0
}
