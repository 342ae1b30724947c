package godb

// Page is a single in-memory page of a PageStore. The BufferPool tracks
// each page's dirtiness and the transaction that dirtied it, and never
// lets a dirty page reach disk while its transaction is still open (NO
// STEAL). getBeforeImage/setBeforeImage exist for the other half of the
// recovery story: once a transaction commits and its pages are
// force-flushed, setBeforeImage snapshots their new contents, so a later
// transaction that dirties the page again can still be rolled back to
// the last committed state on abort.
type Page interface {
	// getID returns the page's identity within its PageStore.
	getID() PageID

	// isDirty reports whether the page has been modified since it was last
	// flushed, and if so, by which transaction.
	isDirty() (bool, *TransactionID)

	// setDirty marks the page dirty (or clean) on behalf of tid.
	setDirty(tid TransactionID, dirty bool)

	// getBeforeImage returns a snapshot of the page's contents as of the
	// last time setBeforeImage was called (if it was never called, the
	// page's current contents). The returned Page is a standalone copy.
	getBeforeImage() Page

	// setBeforeImage snapshots the page's current contents as its new
	// before-image. Called once a dirty page is committed, so that any
	// later-aborted transaction's changes roll back to this state rather
	// than further still.
	setBeforeImage()

	// toBuffer serializes the page to exactly PageSize bytes.
	toBuffer() ([]byte, error)
}

// PageStore is the on-disk counterpart of a table: it knows how to read
// and write its own pages, and how to apply tuple-level insert/delete
// operations by mutating one or more of those pages. BufferPool never
// touches a PageStore's backing storage directly; it always goes through
// these methods so that every page it caches passes through its own
// dirty/lock bookkeeping first.
type PageStore interface {
	// readPage loads page number pageNo fresh from storage.
	readPage(pageNo int) (Page, error)

	// flushPage writes page back to storage. The page must already be
	// clean by the time this returns.
	flushPage(page Page) error

	// insertTuple adds t to the store, choosing or allocating whatever
	// page has room, and returns every page it dirtied (usually one).
	insertTuple(tid TransactionID, t *Tuple) ([]Page, error)

	// deleteTuple removes the tuple identified by t.Rid and returns the
	// page it dirtied.
	deleteTuple(tid TransactionID, t *Tuple) ([]Page, error)

	// NumPages reports how many pages the store currently has allocated.
	NumPages() int

	// Descriptor returns the TupleDesc of tuples stored here.
	Descriptor() *TupleDesc
}
