package godb

import (
	"os"
)

// computeFieldSum loads fileName (a comma-delimited CSV file with a
// header) into a scratch heap file and sums the integer field named
// sumField across every row. It exists mainly as an end-to-end smoke
// test of CSV loading, scanning, and transaction completion wired
// together.
func computeFieldSum(bp *BufferPool, fileName string, td TupleDesc, sumField string) (int, error) {
	sum := 0
	os.Remove("test.dat")
	heapFile, err := NewHeapFile(0, "test.dat", &td, bp)
	if err != nil {
		return 0, err
	}
	bp.RegisterTable(0, heapFile)

	index, err := findFieldInTd(FieldType{Fname: sumField}, &td)
	if err != nil {
		return 0, err
	}
	file, err := os.Open(fileName)
	if err != nil {
		return 0, err
	}
	defer file.Close()
	if err := heapFile.LoadFromCSV(file, true, ",", false); err != nil {
		return 0, err
	}

	tid := NewTransactionID()
	iterator, err := heapFile.Iterator(tid)
	if err != nil {
		bp.TransactionComplete(tid, false)
		return 0, err
	}
	for {
		t, err := iterator()
		if err != nil {
			bp.TransactionComplete(tid, false)
			return sum, err
		}
		if t == nil {
			bp.TransactionComplete(tid, true)
			return sum, nil
		}
		valToAdd, ok := t.Fields[index].(IntField)
		if !ok {
			bp.TransactionComplete(tid, true)
			return sum, nil
		}
		sum += int(valToAdd.Value)
	}
}
