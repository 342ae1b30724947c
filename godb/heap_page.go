package godb

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// heapRecordID is the concrete recordID heapPage hands back from
// insertTuple: the page a tuple lives on plus its slot within that page.
type heapRecordID struct {
	pid  PageID
	slot int
}

// heapPage is the Page implementation backing HeapFile. All tuples are
// fixed length, so given a TupleDesc it's possible to compute how many
// fixed-size slots fit in a PageSize page up front. Pages begin with an
// 8-byte header: a 32-bit slot count followed by a 32-bit used-slot count,
// then the tuples themselves.
type heapPage struct {
	pid          PageID
	numSlots     int32
	numUsedSlots int32
	desc         *TupleDesc
	file         *HeapFile
	tuples       []*Tuple

	dirty      bool
	dirtiedBy  *TransactionID
	beforeImg  []byte // serialized snapshot; lazily materialized into a page on demand
}

func newHeapPage(desc *TupleDesc, pageNo int, f *HeapFile) (*heapPage, error) {
	perTupleSize := int32(0)
	for _, field := range desc.Fields {
		switch field.Ftype {
		case IntType:
			perTupleSize += 8
		case StringType:
			perTupleSize += int32(StringLength)
		default:
			return nil, errors.New("invalid field type in tuple descriptor")
		}
	}
	page := &heapPage{
		pid:          PageID{TableID: f.tableID, PageNumber: pageNo},
		numSlots:     int32(PageSize-8) / perTupleSize,
		numUsedSlots: 0,
		desc:         desc,
		file:         f,
	}
	page.tuples = make([]*Tuple, page.numSlots)
	return page, nil
}

func (h *heapPage) getNumSlots() int {
	return int(h.numSlots)
}

func (h *heapPage) getID() PageID {
	return h.pid
}

// insertTuple stores a new tuple holding t's fields in a free slot on the
// page and returns its record id. t itself is left unchanged, and the page
// is not marked dirty here; callers do that. Returns an error if the page
// has no free slots.
func (h *heapPage) insertTuple(t *Tuple) (recordID, error) {
	for slot, tup := range h.tuples {
		if tup != nil {
			continue
		}
		h.numUsedSlots++
		rid := heapRecordID{pid: h.pid, slot: slot}
		h.tuples[slot] = &Tuple{
			Desc:   *h.desc,
			Fields: t.Fields,
			Rid:    rid,
		}
		return rid, nil
	}
	return nil, NewDbError(PageFullError, "no free slot on page")
}

// deleteTuple removes the tuple at rid's slot, or returns an error if rid
// does not name a tuple that is actually present.
func (h *heapPage) deleteTuple(rid recordID) error {
	hrid, ok := rid.(heapRecordID)
	if !ok || hrid.pid != h.pid {
		return NewDbError(TupleNotFoundError, "record id does not belong to this page")
	}
	if hrid.slot < 0 || hrid.slot >= len(h.tuples) || h.tuples[hrid.slot] == nil {
		return NewDbError(TupleNotFoundError, "slot is empty")
	}
	h.tuples[hrid.slot] = nil
	h.numUsedSlots--
	return nil
}

func (h *heapPage) isDirty() (bool, *TransactionID) {
	return h.dirty, h.dirtiedBy
}

func (h *heapPage) setDirty(tid TransactionID, dirty bool) {
	h.dirty = dirty
	if dirty {
		t := tid
		h.dirtiedBy = &t
	} else {
		h.dirtiedBy = nil
	}
}

func (p *heapPage) getFile() *HeapFile {
	return p.file
}

// getBeforeImage returns a standalone heapPage holding this page's
// contents as of the last setBeforeImage call. If setBeforeImage was never
// called, the page's current contents are snapshotted on this first call.
func (h *heapPage) getBeforeImage() Page {
	if h.beforeImg == nil {
		buf, err := h.toBuffer()
		if err != nil {
			return nil
		}
		h.beforeImg = buf
	}
	before, err := newHeapPage(h.desc, h.pid.PageNumber, h.file)
	if err != nil {
		return nil
	}
	if err := before.initFromBuffer(bytes.NewBuffer(append([]byte(nil), h.beforeImg...))); err != nil {
		return nil
	}
	return before
}

// setBeforeImage snapshots the page's current on-disk representation as
// its new before-image, called once its dirtying transaction commits.
func (h *heapPage) setBeforeImage() {
	buf, err := h.toBuffer()
	if err != nil {
		return
	}
	h.beforeImg = buf
}

// toBuffer serializes the page: header (slot count, used-slot count) then
// each occupied tuple in slot order, padded out to PageSize.
func (h *heapPage) toBuffer() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := writeBinary(buf, h.numSlots); err != nil {
		return nil, err
	}
	if err := writeBinary(buf, h.numUsedSlots); err != nil {
		return nil, err
	}
	for _, tuple := range h.tuples {
		if tuple == nil {
			continue
		}
		if err := tuple.writeTo(buf); err != nil {
			return nil, err
		}
	}
	if err := padBuffer(buf, PageSize); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeBinary(buf *bytes.Buffer, data interface{}) error {
	return binary.Write(buf, binary.LittleEndian, data)
}

func padBuffer(buf *bytes.Buffer, targetSize int) error {
	if buf.Len() < targetSize {
		padding := make([]byte, targetSize-buf.Len())
		_, err := buf.Write(padding)
		return err
	}
	return nil
}

// initFromBuffer reads the page's header and tuples from buf. Slots are
// renumbered densely starting at 0; a page is never evicted while dirty,
// so it's fine for on-disk slot numbers to shift across a flush.
func (h *heapPage) initFromBuffer(buf *bytes.Buffer) error {
	if err := binary.Read(buf, binary.LittleEndian, &h.numSlots); err != nil {
		return err
	}
	if err := binary.Read(buf, binary.LittleEndian, &h.numUsedSlots); err != nil {
		return err
	}
	h.tuples = make([]*Tuple, h.numSlots)
	for i := 0; i < int(h.numUsedSlots); i++ {
		tuple, err := readTupleFrom(buf, h.desc)
		if err != nil {
			break
		}
		tuple.Rid = heapRecordID{pid: h.pid, slot: i}
		tuple.Desc = *h.desc
		h.tuples[i] = tuple
	}
	return nil
}

// tupleIter returns a function yielding the page's occupied tuples in
// slot order, then (nil, nil).
func (p *heapPage) tupleIter() func() (*Tuple, error) {
	i := 0
	return func() (res *Tuple, err error) {
		for {
			if i >= len(p.tuples) {
				return nil, nil
			}
			res = p.tuples[i]
			i++
			if res == nil {
				continue
			}
			return res, nil
		}
	}
}
