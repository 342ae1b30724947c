package godb

// InsertOp inserts every tuple produced by its child operator into a
// table via the BufferPool, and reports how many were inserted.
type InsertOp struct {
	bp      *BufferPool
	tableID int
	child   Operator
	res     *TupleDesc
}

// NewInsertOp constructs an insert operator that inserts the records in
// the child Operator into tableID, through bp.
func NewInsertOp(bp *BufferPool, tableID int, child Operator) *InsertOp {
	return &InsertOp{
		bp:      bp,
		tableID: tableID,
		child:   child,
		res: &TupleDesc{Fields: []FieldType{{
			Fname: "count",
			Ftype: IntType,
		}}},
	}
}

// Descriptor returns the insert operator's one-column "count" output.
func (iop *InsertOp) Descriptor() *TupleDesc {
	return iop.res
}

// Iterator inserts every tuple from the child iterator into the target
// table and then returns a single tuple with the count of inserted rows.
func (iop *InsertOp) Iterator(tid TransactionID) (func() (*Tuple, error), error) {
	childIter, err := iop.child.Iterator(tid)
	if err != nil {
		return nil, err
	}
	counter := int64(0)
	done := false

	return func() (*Tuple, error) {
		if done {
			return nil, nil
		}
		for {
			t, err := childIter()
			if err != nil {
				return nil, err
			}
			if t == nil {
				break
			}
			if _, err := iop.bp.InsertTuple(tid, iop.tableID, t); err != nil {
				return nil, err
			}
			counter++
		}
		done = true
		return &Tuple{
			Desc:   *iop.Descriptor(),
			Fields: []DBValue{IntField{Value: counter}},
		}, nil
	}, nil
}
