package godb

import (
	"sync"
	"time"
)

// DefaultLockTimeout is the wait bound a LockManager applies when no other
// value is configured (see config.Config.LockTimeout). It is deliberately
// short: this engine favors aborting and retrying a blocked transaction
// over letting readers and writers queue up indefinitely.
const DefaultLockTimeout = 500 * time.Millisecond

// LockManager owns one PageLock per page that has ever been touched, plus
// a reverse index of which pages each transaction currently holds a lock
// on so that transactionComplete can release them all without a scan of
// every page in the pool. It holds no opinion about page contents or
// dirtiness; BufferPool composes it with page I/O.
type LockManager struct {
	timeout time.Duration

	mu    sync.Mutex
	locks map[PageID]*PageLock
	held  map[TransactionID]map[PageID]struct{}
}

func NewLockManager(timeout time.Duration) *LockManager {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	return &LockManager{
		timeout: timeout,
		locks:   make(map[PageID]*PageLock),
		held:    make(map[TransactionID]map[PageID]struct{}),
	}
}

// lockFor returns the PageLock for pid, creating it if this is the page's
// first acquisition. Locks are never removed from the map once created
// (a page can always be revisited later), only left idle.
func (lm *LockManager) lockFor(pid PageID) *PageLock {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	pl, ok := lm.locks[pid]
	if !ok {
		pl = newPageLock()
		lm.locks[pid] = pl
	}
	return pl
}

// acquire blocks tid until it holds pid in at least mode, or returns an
// Aborted GoDBError if the manager's configured timeout elapses first.
func (lm *LockManager) acquire(tid TransactionID, pid PageID, mode LockMode) error {
	pl := lm.lockFor(pid)
	if err := pl.acquire(tid, mode, lm.timeout); err != nil {
		return err
	}

	lm.mu.Lock()
	pages, ok := lm.held[tid]
	if !ok {
		pages = make(map[PageID]struct{})
		lm.held[tid] = pages
	}
	pages[pid] = struct{}{}
	lm.mu.Unlock()
	return nil
}

// release drops tid's lock on pid alone, used by unsafeReleasePage for a
// read-only scan that no longer needs a page it has already moved past.
func (lm *LockManager) release(tid TransactionID, pid PageID) {
	lm.mu.Lock()
	pl, ok := lm.locks[pid]
	if ok {
		delete(lm.held[tid], pid)
	}
	lm.mu.Unlock()
	if ok {
		pl.release(tid)
	}
}

// releaseAll drops every lock tid holds, as required at the end of a
// transaction (commit or abort alike).
func (lm *LockManager) releaseAll(tid TransactionID) {
	lm.mu.Lock()
	pages := lm.held[tid]
	delete(lm.held, tid)
	pls := make([]*PageLock, 0, len(pages))
	for pid := range pages {
		pls = append(pls, lm.locks[pid])
	}
	lm.mu.Unlock()

	for _, pl := range pls {
		pl.release(tid)
	}
}

// holds reports the strongest mode tid currently holds on pid, if any.
// Non-blocking; backs BufferPool.HoldsLock, which HeapFile's scan consults
// before releasing a page's lock early.
func (lm *LockManager) holds(tid TransactionID, pid PageID) (LockMode, bool) {
	lm.mu.Lock()
	pl, ok := lm.locks[pid]
	lm.mu.Unlock()
	if !ok {
		return LockShared, false
	}
	return pl.holds(tid)
}

// pagesHeldBy returns the set of pages tid currently holds any lock on.
// Used by BufferPool.transactionComplete to know which dirtied pages
// belong to the transaction being committed or aborted.
func (lm *LockManager) pagesHeldBy(tid TransactionID) []PageID {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	pages := make([]PageID, 0, len(lm.held[tid]))
	for pid := range lm.held[tid] {
		pages = append(pages, pid)
	}
	return pages
}
