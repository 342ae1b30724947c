package godb

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

// HeapFile is an unordered collection of tuples, backed by a single disk
// file of fixed-size pages. It implements PageStore: apart from
// allocateAndInsert writing out a fresh empty page itself, the BufferPool
// is the only thing that calls readPage/flushPage/insertTuple/deleteTuple,
// and routes every page it hands back through its own cache and lock
// manager before returning it to a caller.
type HeapFile struct {
	tableID     int
	backingFile string
	tupleDesc   *TupleDesc
	bufPool     *BufferPool

	mu       sync.Mutex
	pagesNum int
}

// NewHeapFile constructs a HeapFile over fromFile (which may be empty or a
// previously created heap file), using tableID as its identity within bp's
// page cache. It does not register itself with bp; the caller does that
// with bp.RegisterTable.
func NewHeapFile(tableID int, fromFile string, td *TupleDesc, bp *BufferPool) (*HeapFile, error) {
	f := &HeapFile{
		tableID:     tableID,
		backingFile: fromFile,
		tupleDesc:   td,
		bufPool:     bp,
	}
	f.pagesNum = f.NumPages()
	return f, nil
}

func (f *HeapFile) BackingFile() string {
	return f.backingFile
}

// NumPages reports how many pages the backing file currently holds, based
// on its size on disk.
func (f *HeapFile) NumPages() int {
	fileInfo, err := os.Stat(f.backingFile)
	if err != nil {
		return 0
	}
	size := fileInfo.Size()
	numPages := int(size / int64(PageSize))
	if size%int64(PageSize) != 0 {
		numPages++
	}
	return numPages
}

// LoadFromCSV populates the heap file from a CSV file, one insert
// transaction per row.
func (f *HeapFile) LoadFromCSV(file *os.File, hasHeader bool, sep string, skipLastField bool) error {
	scanner := bufio.NewScanner(file)
	cnt := 0
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Split(line, sep)
		if skipLastField {
			fields = fields[0 : len(fields)-1]
		}
		cnt++
		desc := f.Descriptor()
		if desc == nil || desc.Fields == nil {
			return NewDbError(MalformedDataError, "descriptor was nil")
		}
		if len(fields) != len(desc.Fields) {
			return NewDbError(MalformedDataError, fmt.Sprintf("LoadFromCSV: line %d (%s) does not have expected number of fields (expected %d, got %d)", cnt, line, len(desc.Fields), len(fields)))
		}
		if cnt == 1 && hasHeader {
			continue
		}
		var newFields []DBValue
		for fno, field := range fields {
			switch desc.Fields[fno].Ftype {
			case IntType:
				field = strings.TrimSpace(field)
				floatVal, err := strconv.ParseFloat(field, 64)
				if err != nil {
					return NewDbError(TypeMismatchError, fmt.Sprintf("LoadFromCSV: couldn't convert value %s to int, tuple %d", field, cnt))
				}
				newFields = append(newFields, IntField{int64(floatVal)})
			case StringType:
				if len(field) > StringLength {
					field = field[0:StringLength]
				}
				newFields = append(newFields, StringField{field})
			}
		}
		newT := Tuple{Desc: *desc, Fields: newFields}
		tid := NewTransactionID()
		if _, err := f.bufPool.InsertTuple(tid, f.tableID, &newT); err != nil {
			return err
		}
		if err := f.bufPool.TransactionComplete(tid, true); err != nil {
			return err
		}
	}
	return nil
}

// readPage loads page number pageNo fresh from the backing file.
func (f *HeapFile) readPage(pageNo int) (Page, error) {
	file, err := os.OpenFile(f.backingFile, os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	data := make([]byte, PageSize)
	if _, err := file.Seek(int64(pageNo)*int64(PageSize), io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek to page: %w", err)
	}
	if _, err := io.ReadFull(file, data); err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}

	page := &heapPage{
		pid:  PageID{TableID: f.tableID, PageNumber: pageNo},
		desc: f.tupleDesc,
		file: f,
	}
	if err := page.initFromBuffer(bytes.NewBuffer(data)); err != nil {
		return nil, fmt.Errorf("failed to initialize heap page: %w", err)
	}
	page.setBeforeImage()
	return page, nil
}

// insertTuple finds a page with a free slot (via the BufferPool, so the
// chosen page is properly locked and cached), or allocates a new one, and
// returns the page it dirtied.
func (f *HeapFile) insertTuple(tid TransactionID, t *Tuple) ([]Page, error) {
	if len(t.Fields) != len(t.Desc.Fields) {
		return nil, NewDbError(TypeMismatchError, "tuple field count does not match descriptor")
	}

	f.mu.Lock()
	numPages := f.pagesNum
	f.mu.Unlock()

	for pageNo := 0; pageNo < numPages; pageNo++ {
		pid := PageID{TableID: f.tableID, PageNumber: pageNo}
		p, err := f.bufPool.GetPage(tid, pid, LockExclusive)
		if err != nil {
			return nil, err
		}
		hp := p.(*heapPage)
		if hp.numUsedSlots >= hp.numSlots {
			continue
		}
		if _, err := hp.insertTuple(t); err != nil {
			return nil, err
		}
		hp.setDirty(tid, true)
		return []Page{hp}, nil
	}

	return f.allocateAndInsert(tid, t)
}

// allocateAndInsert grows the file by one empty page, then loads that page
// through the BufferPool and inserts t into the cached copy, so the new
// tuple exists only in memory (dirtied by tid, before-image empty) until
// tid commits. NO STEAL requires this: flushing t to disk here, as part of
// allocation, would leave disk state tid never committed, and an abort
// would have nothing to undo it with.
func (f *HeapFile) allocateAndInsert(tid TransactionID, t *Tuple) ([]Page, error) {
	f.mu.Lock()
	pageNo := f.pagesNum
	emptyPage, err := newHeapPage(f.tupleDesc, pageNo, f)
	if err != nil {
		f.mu.Unlock()
		return nil, err
	}
	if err := f.flushPage(emptyPage); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	f.pagesNum++
	f.mu.Unlock()

	pid := PageID{TableID: f.tableID, PageNumber: pageNo}
	p, err := f.bufPool.GetPage(tid, pid, LockExclusive)
	if err != nil {
		f.mu.Lock()
		f.pagesNum--
		f.mu.Unlock()
		return nil, err
	}
	hp := p.(*heapPage)
	if _, err := hp.insertTuple(t); err != nil {
		return nil, err
	}
	hp.setDirty(tid, true)
	return []Page{hp}, nil
}

// deleteTuple removes the tuple identified by t.Rid, fetching its page
// through the BufferPool so the delete is properly locked.
func (f *HeapFile) deleteTuple(tid TransactionID, t *Tuple) ([]Page, error) {
	rid, ok := t.Rid.(heapRecordID)
	if !ok {
		return nil, NewDbError(TupleNotFoundError, "tuple has no valid record id")
	}

	p, err := f.bufPool.GetPage(tid, rid.pid, LockExclusive)
	if err != nil {
		return nil, err
	}
	hp := p.(*heapPage)
	if err := hp.deleteTuple(rid); err != nil {
		return nil, err
	}
	hp.setDirty(tid, true)
	return []Page{hp}, nil
}

// flushPage writes page back to its offset in the backing file.
func (f *HeapFile) flushPage(p Page) error {
	page, ok := p.(*heapPage)
	if !ok {
		return NewDbError(IOError, "invalid page type for heap file")
	}

	file, err := os.OpenFile(f.backingFile, os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := file.Seek(int64(page.pid.PageNumber)*int64(PageSize), io.SeekStart); err != nil {
		return err
	}
	buf, err := page.toBuffer()
	if err != nil {
		return err
	}
	if _, err := file.Write(buf); err != nil {
		return err
	}
	page.setDirty(TransactionID{}, false)
	return nil
}

func (f *HeapFile) Descriptor() *TupleDesc {
	return f.tupleDesc
}

// Iterator returns a function iterating over every tuple in the file, one
// page at a time, fetched through the BufferPool. Once a page is fully
// consumed the iterator releases its read lock on it immediately (rather
// than holding it until transaction end), since a plain scan never needs
// to revisit a page it has already moved past. A page tid holds
// exclusively (for instance one it has written) stays locked until
// transaction end.
func (f *HeapFile) Iterator(tid TransactionID) (func() (*Tuple, error), error) {
	pageNo := 0
	var pageIter func() (*Tuple, error)
	var curPid PageID

	return func() (*Tuple, error) {
		for {
			if pageIter == nil {
				f.mu.Lock()
				total := f.pagesNum
				f.mu.Unlock()
				if pageNo >= total {
					return nil, nil
				}
				curPid = PageID{TableID: f.tableID, PageNumber: pageNo}
				p, err := f.bufPool.GetPage(tid, curPid, LockShared)
				if err != nil {
					return nil, err
				}
				pageIter = p.(*heapPage).tupleIter()
			}
			tuple, err := pageIter()
			if err != nil {
				return nil, err
			}
			if tuple != nil {
				tuple.Desc = *f.tupleDesc
				return tuple, nil
			}
			if mode, held := f.bufPool.HoldsLock(tid, curPid); held && mode == LockShared {
				f.bufPool.UnsafeReleasePage(tid, curPid)
			}
			pageIter = nil
			pageNo++
		}
	}, nil
}
