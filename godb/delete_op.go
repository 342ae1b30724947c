package godb

// DeleteOp deletes every tuple produced by its child operator via the
// BufferPool, and reports how many were deleted.
type DeleteOp struct {
	bp    *BufferPool
	child Operator
	res   *TupleDesc
}

// NewDeleteOp constructs a delete operator that deletes the records
// produced by child.
func NewDeleteOp(bp *BufferPool, child Operator) *DeleteOp {
	return &DeleteOp{
		bp:    bp,
		child: child,
		res: &TupleDesc{Fields: []FieldType{{
			Fname: "count",
			Ftype: IntType,
		}}},
	}
}

// Descriptor returns the delete operator's one-column "count" output.
func (dop *DeleteOp) Descriptor() *TupleDesc {
	return dop.res
}

// Iterator deletes every tuple from the child iterator and then returns a
// single tuple with the count of deleted rows.
func (dop *DeleteOp) Iterator(tid TransactionID) (func() (*Tuple, error), error) {
	childIter, err := dop.child.Iterator(tid)
	if err != nil {
		return nil, err
	}
	count := int64(0)
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
			if _, err := dop.bp.DeleteTuple(tid, t); err != nil {
				return nil, err
			}
			count++
		}
		done = true
		return &Tuple{
			Desc:   *dop.Descriptor(),
			Fields: []DBValue{IntField{Value: count}},
		}, nil
	}, nil
}
