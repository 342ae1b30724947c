package godb

import "sort"

// OrderBy sorts its child's entire output by one or more expressions
// before yielding any of it, each ascending or descending independently.
type OrderBy struct {
	keys      []Expr
	child     Operator
	ascending []bool
}

// NewOrderBy builds an OrderBy over child that sorts by keys in order
// (keys[0] is the primary sort key, keys[1] breaks ties, and so on), each
// ascending iff the matching entry of ascending is true.
func NewOrderBy(keys []Expr, child Operator, ascending []bool) (*OrderBy, error) {
	return &OrderBy{keys: keys, child: child, ascending: ascending}, nil
}

// Descriptor passes through the child's schema unchanged: ordering
// reorders rows, it doesn't rename or drop columns.
func (o *OrderBy) Descriptor() *TupleDesc {
	return o.child.Descriptor()
}

// Iterator is a blocking sort: it drains child fully into memory, sorts
// the result with sort.Sort, and serves the sorted slice one tuple per
// call thereafter.
func (o *OrderBy) Iterator(tid TransactionID) (func() (*Tuple, error), error) {
	childIter, err := o.child.Iterator(tid)
	if err != nil {
		return nil, err
	}

	var all []*Tuple
	for {
		tuple, err := childIter()
		if err != nil {
			return nil, err
		}
		if tuple == nil {
			break
		}
		all = append(all, tuple)
	}
	sort.Sort(sortTuples{keys: o.keys, ascending: o.ascending, all: all})

	i := 0
	return func() (*Tuple, error) {
		if i >= len(all) {
			return nil, nil
		}
		tuple := all[i]
		i++
		return tuple, nil
	}, nil
}

// sortTuples adapts a slice of tuples and a multi-key ordering to
// sort.Interface.
type sortTuples struct {
	keys      []Expr
	ascending []bool
	all       []*Tuple
}

func (s sortTuples) Less(i, j int) bool {
	a, b := s.all[i], s.all[j]
	for k, expr := range s.keys {
		valA, err := expr.EvalExpr(a)
		if err != nil {
			return false
		}
		valB, err := expr.EvalExpr(b)
		if err != nil {
			return false
		}
		if valA.EvalPred(valB, OpEq) {
			continue
		}
		if s.ascending[k] {
			return valA.EvalPred(valB, OpLt)
		}
		return !valA.EvalPred(valB, OpLt)
	}
	return false
}

func (s sortTuples) Swap(i, j int) {
	s.all[i], s.all[j] = s.all[j], s.all[i]
}

func (s sortTuples) Len() int {
	return len(s.all)
}
