package godb

import (
	"log/slog"
	"sync"
	"time"
)

// BufferPool is the fixed-capacity cache of pages sitting between the
// operator tree and the on-disk PageStores. It is the sole point through
// which every page read or write flows, which makes it the natural place
// to enforce two-phase locking (via its LockManager) and the engine's
// NO STEAL / FORCE recovery discipline: a dirty page is never written to
// disk or evicted while its transaction is still open (NO STEAL, see
// evictLocked), and every dirty page a transaction touches is flushed
// before that transaction's commit is considered complete (FORCE), so a
// crash never needs to redo anything a committed transaction wrote.
type BufferPool struct {
	capacity int
	locks    *LockManager

	mu     sync.Mutex
	pages  map[PageID]Page
	tables map[int]PageStore
}

// NewBufferPool constructs a BufferPool holding at most numPages pages at
// once, with lockTimeout as the wait bound before a blocked lock acquire
// aborts its transaction. A lockTimeout of 0 selects DefaultLockTimeout.
func NewBufferPool(numPages int, lockTimeout time.Duration) *BufferPool {
	return &BufferPool{
		capacity: numPages,
		locks:    NewLockManager(lockTimeout),
		pages:    make(map[PageID]Page),
		tables:   make(map[int]PageStore),
	}
}

// NumPages returns the buffer pool's page capacity. cmd/txdbd passes it to
// NewJoin as the join's buffer bound.
func (bp *BufferPool) NumPages() int {
	return bp.capacity
}

// RegisterTable associates tableID with the PageStore that owns its pages.
// GetPage and friends return NoSuchTableError for any tableID that hasn't
// been registered.
func (bp *BufferPool) RegisterTable(tableID int, store PageStore) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	bp.tables[tableID] = store
}

// GetPage returns the page identified by pid, locked for tid in at least
// mode, reading it from its PageStore and admitting it to the cache if it
// isn't already resident. Blocks on lock contention up to the pool's
// configured timeout, returning an Aborted GoDBError if it expires.
func (bp *BufferPool) GetPage(tid TransactionID, pid PageID, mode LockMode) (Page, error) {
	if err := bp.locks.acquire(tid, pid, mode); err != nil {
		return nil, err
	}

	bp.mu.Lock()
	if page, ok := bp.pages[pid]; ok {
		bp.mu.Unlock()
		return page, nil
	}
	store, ok := bp.tables[pid.TableID]
	if !ok {
		bp.mu.Unlock()
		return nil, NewDbError(NoSuchTableError, "no page store registered for table")
	}
	if len(bp.pages) >= bp.capacity {
		if err := bp.evictLocked(); err != nil {
			bp.mu.Unlock()
			return nil, err
		}
	}
	bp.mu.Unlock()

	page, err := store.readPage(pid.PageNumber)
	if err != nil {
		return nil, err
	}

	bp.mu.Lock()
	defer bp.mu.Unlock()
	if existing, ok := bp.pages[pid]; ok {
		// Lost a race with another reader of the same page; keep the
		// resident copy so that in-place mutations aren't orphaned.
		return existing, nil
	}
	bp.pages[pid] = page
	slog.Debug("buffer pool loaded page", "page", pid.String())
	return page, nil
}

// evictLocked removes one clean page from the cache to make room for a
// new one. Must be called with mu held. A dirty page is never a silent
// eviction candidate: evicting it would write uncommitted data to disk,
// which NO STEAL forbids. If every cached page is dirty, the pool is
// full and the caller's transaction must wait or abort rather than force
// an eviction.
func (bp *BufferPool) evictLocked() error {
	for pid, page := range bp.pages {
		if dirty, _ := page.isDirty(); !dirty {
			delete(bp.pages, pid)
			slog.Debug("buffer pool evicted page", "page", pid.String())
			return nil
		}
	}
	return NewDbError(BufferPoolFullError, "buffer pool is full of dirty pages")
}

// InsertTuple adds t to tableID's store and admits whatever pages the
// store dirtied into the cache.
func (bp *BufferPool) InsertTuple(tid TransactionID, tableID int, t *Tuple) ([]Page, error) {
	bp.mu.Lock()
	store, ok := bp.tables[tableID]
	bp.mu.Unlock()
	if !ok {
		return nil, NewDbError(NoSuchTableError, "no page store registered for table")
	}

	dirtied, err := store.insertTuple(tid, t)
	if err != nil {
		return nil, err
	}
	bp.admit(dirtied)
	return dirtied, nil
}

// DeleteTuple removes t from the store that owns the page t.Rid names.
func (bp *BufferPool) DeleteTuple(tid TransactionID, t *Tuple) ([]Page, error) {
	rid, ok := t.Rid.(heapRecordID)
	if !ok {
		return nil, NewDbError(TupleNotFoundError, "tuple has no valid record id")
	}

	bp.mu.Lock()
	store, ok := bp.tables[rid.pid.TableID]
	bp.mu.Unlock()
	if !ok {
		return nil, NewDbError(NoSuchTableError, "no page store registered for table")
	}

	dirtied, err := store.deleteTuple(tid, t)
	if err != nil {
		return nil, err
	}
	bp.admit(dirtied)
	return dirtied, nil
}

func (bp *BufferPool) admit(pages []Page) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	for _, p := range pages {
		bp.pages[p.getID()] = p
	}
}

// TransactionComplete ends tid, one way or the other. On commit, every
// page tid dirtied is flushed to disk (FORCE) and its before-image
// advanced, so a later transaction that aborts after reading this one's
// committed state rolls back no further than here. On abort, every page
// tid dirtied is replaced in the cache with its before-image; since NO
// STEAL kept all of tid's changes in memory, discarding the cached page
// is enough to undo them, disk never saw them. Either way, every lock tid
// holds is released last.
func (bp *BufferPool) TransactionComplete(tid TransactionID, commit bool) error {
	pids := bp.locks.pagesHeldBy(tid)

	type owned struct {
		pid   PageID
		page  Page
		store PageStore
	}
	var dirtied []owned

	bp.mu.Lock()
	for _, pid := range pids {
		page, ok := bp.pages[pid]
		if !ok {
			continue
		}
		dirty, dirtiedBy := page.isDirty()
		if !dirty || dirtiedBy == nil || *dirtiedBy != tid {
			continue
		}
		dirtied = append(dirtied, owned{pid: pid, page: page, store: bp.tables[pid.TableID]})
	}
	bp.mu.Unlock()

	var updates map[PageID]Page
	for _, d := range dirtied {
		if commit {
			if err := d.store.flushPage(d.page); err != nil {
				bp.locks.releaseAll(tid)
				return err
			}
			d.page.setBeforeImage()
			continue
		}
		if updates == nil {
			updates = make(map[PageID]Page, len(dirtied))
		}
		updates[d.pid] = d.page.getBeforeImage()
	}

	if len(updates) > 0 {
		bp.mu.Lock()
		for pid, page := range updates {
			bp.pages[pid] = page
		}
		bp.mu.Unlock()
	}

	bp.locks.releaseAll(tid)
	return nil
}

// FlushAllPages writes every dirty cached page back to its store. Testing
// hook; not required for correctness since TransactionComplete(commit)
// already forces a transaction's own pages before releasing its locks.
func (bp *BufferPool) FlushAllPages() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	for pid, page := range bp.pages {
		if dirty, _ := page.isDirty(); !dirty {
			continue
		}
		store, ok := bp.tables[pid.TableID]
		if !ok {
			continue
		}
		if err := store.flushPage(page); err != nil {
			return err
		}
		page.setBeforeImage()
	}
	return nil
}

// DiscardPage drops pid from the cache without flushing it, forgetting
// any in-memory changes. Used by tests that want to force a fresh read.
func (bp *BufferPool) DiscardPage(pid PageID) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	delete(bp.pages, pid)
}

// HoldsLock reports the strongest mode tid currently holds on pid.
func (bp *BufferPool) HoldsLock(tid TransactionID, pid PageID) (LockMode, bool) {
	return bp.locks.holds(tid, pid)
}

// UnsafeReleasePage releases tid's lock on pid alone, ahead of
// transaction end. Intended for a read-only scan that has moved past a
// page and will never revisit it; releasing early shortens other
// transactions' wait time but weakens strict two-phase locking, so
// callers must be certain the page won't be read again this transaction.
func (bp *BufferPool) UnsafeReleasePage(tid TransactionID, pid PageID) {
	bp.locks.release(tid, pid)
}
