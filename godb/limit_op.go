package godb

// LimitOp caps its child's output at the first n tuples, where n is a
// ConstExpr evaluated once when the iterator is built (a plain integer
// bound, not a per-tuple expression).
type LimitOp struct {
	child Operator
	count Expr
}

// NewLimitOp builds a LimitOp that yields at most count tuples from child.
func NewLimitOp(count Expr, child Operator) *LimitOp {
	return &LimitOp{child: child, count: count}
}

// Descriptor passes through the child's schema unchanged.
func (l *LimitOp) Descriptor() *TupleDesc {
	return l.child.Descriptor()
}

// Iterator yields child's tuples until count have been returned or child
// is exhausted, whichever comes first.
func (l *LimitOp) Iterator(tid TransactionID) (func() (*Tuple, error), error) {
	bound, err := l.count.EvalExpr(nil)
	if err != nil {
		return nil, err
	}
	max := int(bound.(IntField).Value)

	childIter, err := l.child.Iterator(tid)
	if err != nil {
		return nil, err
	}

	seen := 0
	return func() (*Tuple, error) {
		if seen >= max {
			return nil, nil
		}
		tuple, err := childIter()
		if err != nil {
			return nil, err
		}
		if tuple == nil {
			return nil, nil
		}
		seen++
		return tuple, nil
	}, nil
}
