package godb

// Filter passes through only the tuples of its child that satisfy
// `field op against`, e.g. age > 30.
type Filter struct {
	op      BoolOp
	field   Expr
	against Expr
	child   Operator
}

// NewFilter builds a Filter over child that keeps tuples where field
// relates to against (typically a ConstExpr) by op. Both are evaluated
// against each tuple.
func NewFilter(against Expr, op BoolOp, field Expr, child Operator) (*Filter, error) {
	return &Filter{op: op, field: field, against: against, child: child}, nil
}

// Descriptor passes through the child's schema unchanged: filtering drops
// rows, not columns.
func (f *Filter) Descriptor() *TupleDesc {
	return f.child.Descriptor()
}

// Iterator yields child's tuples one at a time, skipping any that fail
// the predicate.
func (f *Filter) Iterator(tid TransactionID) (func() (*Tuple, error), error) {
	childIter, err := f.child.Iterator(tid)
	if err != nil {
		return nil, err
	}

	return func() (*Tuple, error) {
		for {
			tuple, err := childIter()
			if err != nil {
				return nil, err
			}
			if tuple == nil {
				return nil, nil
			}

			fieldVal, err := f.field.EvalExpr(tuple)
			if err != nil {
				return nil, err
			}
			againstVal, err := f.against.EvalExpr(tuple)
			if err != nil {
				return nil, err
			}
			if fieldVal.EvalPred(againstVal, f.op) {
				return tuple, nil
			}
		}
	}, nil
}
