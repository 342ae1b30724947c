package godb

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestTable(t *testing.T, capacity int) (*BufferPool, *HeapFile) {
	t.Helper()
	dir := t.TempDir()
	desc := &TupleDesc{Fields: []FieldType{
		{Fname: "a", Ftype: IntType},
		{Fname: "b", Ftype: StringType},
	}}
	bp := NewBufferPool(capacity, time.Second)
	hf, err := NewHeapFile(0, filepath.Join(dir, "t.dat"), desc, bp)
	require.NoError(t, err)
	bp.RegisterTable(0, hf)
	return bp, hf
}

func insertRow(t *testing.T, bp *BufferPool, tid TransactionID, hf *HeapFile, a int64, b string) {
	t.Helper()
	desc := hf.Descriptor()
	tup := &Tuple{Desc: *desc, Fields: []DBValue{IntField{Value: a}, StringField{Value: b}}}
	_, err := bp.InsertTuple(tid, 0, tup)
	require.NoError(t, err)
}

func countRows(t *testing.T, bp *BufferPool, hf *HeapFile, tid TransactionID) int {
	t.Helper()
	iter, err := hf.Iterator(tid)
	require.NoError(t, err)
	n := 0
	for {
		tup, err := iter()
		require.NoError(t, err)
		if tup == nil {
			return n
		}
		n++
	}
}

func TestBufferPoolCommitPersistsAcrossEviction(t *testing.T) {
	bp, hf := newTestTable(t, 8)
	tid := NewTransactionID()
	insertRow(t, bp, tid, hf, 1, "x")
	require.NoError(t, bp.TransactionComplete(tid, true))

	pid := PageID{TableID: 0, PageNumber: 0}
	bp.DiscardPage(pid)

	tid2 := NewTransactionID()
	require.Equal(t, 1, countRows(t, bp, hf, tid2))
	require.NoError(t, bp.TransactionComplete(tid2, true))
}

func TestBufferPoolAbortRollsBackInsert(t *testing.T) {
	bp, hf := newTestTable(t, 8)

	tid := NewTransactionID()
	insertRow(t, bp, tid, hf, 1, "x")
	require.Equal(t, 1, countRows(t, bp, hf, tid))
	require.NoError(t, bp.TransactionComplete(tid, false))

	tid2 := NewTransactionID()
	require.Equal(t, 0, countRows(t, bp, hf, tid2))
	require.NoError(t, bp.TransactionComplete(tid2, true))
}

func TestBufferPoolEvictionRejectsWhenAllDirty(t *testing.T) {
	bp, hf := newTestTable(t, 1)
	tid := NewTransactionID()
	desc := hf.Descriptor()

	// perTupleSize is 8 (int) + 32 (string) = 40 bytes, so a page holds
	// (PageSize-8)/40 = 102 tuples; the 103rd forces a second page, which
	// a one-page buffer pool can't make room for while the first is dirty.
	var lastErr error
	for i := 0; i < 103; i++ {
		tup := &Tuple{Desc: *desc, Fields: []DBValue{IntField{Value: int64(i)}, StringField{Value: "x"}}}
		_, lastErr = bp.InsertTuple(tid, 0, tup)
		if lastErr != nil {
			break
		}
	}
	require.Error(t, lastErr)
	require.True(t, IsDbError(lastErr))
}

func TestBufferPoolWriterBlocksUntilReaderReleases(t *testing.T) {
	bp, hf := newTestTable(t, 8)
	setupTid := NewTransactionID()
	insertRow(t, bp, setupTid, hf, 1, "x")
	require.NoError(t, bp.TransactionComplete(setupTid, true))

	pid := PageID{TableID: 0, PageNumber: 0}
	reader := NewTransactionID()
	_, err := bp.GetPage(reader, pid, LockShared)
	require.NoError(t, err)

	writer := NewTransactionID()
	unblocked := make(chan error, 1)
	go func() {
		_, err := bp.GetPage(writer, pid, LockExclusive)
		unblocked <- err
	}()

	select {
	case <-unblocked:
		t.Fatal("writer should not have acquired the lock yet")
	case <-time.After(50 * time.Millisecond):
	}

	bp.UnsafeReleasePage(reader, pid)
	require.NoError(t, <-unblocked)
	require.NoError(t, bp.TransactionComplete(writer, true))
}

func TestBufferPoolDeleteTuple(t *testing.T) {
	bp, hf := newTestTable(t, 8)
	tid := NewTransactionID()
	insertRow(t, bp, tid, hf, 1, "x")
	insertRow(t, bp, tid, hf, 2, "y")
	require.NoError(t, bp.TransactionComplete(tid, true))

	tid2 := NewTransactionID()
	iter, err := hf.Iterator(tid2)
	require.NoError(t, err)
	first, err := iter()
	require.NoError(t, err)
	require.NotNil(t, first)

	_, err = bp.DeleteTuple(tid2, first)
	require.NoError(t, err)
	require.NoError(t, bp.TransactionComplete(tid2, true))

	tid3 := NewTransactionID()
	require.Equal(t, 1, countRows(t, bp, hf, tid3))
	require.NoError(t, bp.TransactionComplete(tid3, true))
}

func TestBufferPoolLoadFromCSV(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "rows.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("a,b\n1,x\n2,y\n3,z\n"), 0644))

	desc := TupleDesc{Fields: []FieldType{
		{Fname: "a", Ftype: IntType},
		{Fname: "b", Ftype: StringType},
	}}
	sum, err := computeFieldSum(NewBufferPool(8, time.Second), csvPath, desc, "a")
	require.NoError(t, err)
	require.Equal(t, 6, sum)
}
