package godb

import (
	"errors"
	"sort"
)

// EqualityJoin computes the equi-join of left and right: every pair of
// tuples (l, r) where leftField(l) == rightField(r). It is implemented as
// a sort-merge join, since both sides must be fully materialized anyway
// to sort them, and a sorted merge avoids the left*right comparisons a
// nested-loop join would need.
type EqualityJoin struct {
	leftField, rightField Expr
	left, right           Operator
	maxBufferSize         int
}

// NewJoin builds an EqualityJoin of left and right on leftField/rightField,
// which must evaluate to the same DBType. maxBufferSize is recorded on the
// join but not consulted: Iterator materializes both children in full
// whatever its value.
func NewJoin(left Operator, leftField Expr, right Operator, rightField Expr, maxBufferSize int) (*EqualityJoin, error) {
	if leftField.GetExprType().Ftype != rightField.GetExprType().Ftype {
		return nil, errors.New("join fields must have the same type")
	}
	return &EqualityJoin{
		leftField:     leftField,
		rightField:    rightField,
		left:          left,
		right:         right,
		maxBufferSize: maxBufferSize,
	}, nil
}

// Descriptor is the concatenation of the left and right children's
// schemas.
func (j *EqualityJoin) Descriptor() *TupleDesc {
	return j.left.Descriptor().merge(j.right.Descriptor())
}

// Iterator drains both children, sorts each by its join field, then walks
// the two sorted lists in lockstep, emitting the cross product of every
// run of matching keys.
func (j *EqualityJoin) Iterator(tid TransactionID) (func() (*Tuple, error), error) {
	leftIter, err := j.left.Iterator(tid)
	if err != nil {
		return nil, err
	}
	leftTuples, err := drain(leftIter)
	if err != nil {
		return nil, err
	}

	rightIter, err := j.right.Iterator(tid)
	if err != nil {
		return nil, err
	}
	rightTuples, err := drain(rightIter)
	if err != nil {
		return nil, err
	}

	if err := sortTupleList(leftTuples, j.leftField); err != nil {
		return nil, err
	}
	if err := sortTupleList(rightTuples, j.rightField); err != nil {
		return nil, err
	}

	joined, err := mergeJoin(leftTuples, rightTuples, j.leftField, j.rightField)
	if err != nil {
		return nil, err
	}

	i := 0
	return func() (*Tuple, error) {
		if i >= len(joined) {
			return nil, nil
		}
		t := joined[i]
		i++
		return t, nil
	}, nil
}

// drain collects every tuple an iterator yields into a slice.
func drain(iter func() (*Tuple, error)) ([]*Tuple, error) {
	var tuples []*Tuple
	for {
		t, err := iter()
		if err != nil {
			return nil, err
		}
		if t == nil {
			return tuples, nil
		}
		tuples = append(tuples, t)
	}
}

func sortTupleList(tuples []*Tuple, field Expr) error {
	var sortErr error
	sort.Slice(tuples, func(i, j int) bool {
		order, err := tuples[i].compareField(tuples[j], field)
		if err != nil {
			sortErr = err
		}
		return order == OrderedLessThan
	})
	return sortErr
}

// mergeJoin walks leftTuples and rightTuples, both already sorted by
// leftField/rightField respectively, emitting joinTuples(l, r) for every
// pair in a matching run of equal keys on both sides.
func mergeJoin(leftTuples, rightTuples []*Tuple, leftField, rightField Expr) ([]*Tuple, error) {
	var joined []*Tuple
	li, ri := 0, 0

	for li < len(leftTuples) && ri < len(rightTuples) {
		order, err := compareAcross(leftTuples[li], rightTuples[ri], leftField, rightField)
		if err != nil {
			return nil, err
		}

		switch order {
		case OrderedEqual:
			leftEnd, err := equalRunEnd(leftTuples, li, leftField)
			if err != nil {
				return nil, err
			}
			rightEnd, err := equalRunEnd(rightTuples, ri, rightField)
			if err != nil {
				return nil, err
			}
			for i := li; i < leftEnd; i++ {
				for j := ri; j < rightEnd; j++ {
					joined = append(joined, joinTuples(leftTuples[i], rightTuples[j]))
				}
			}
			li, ri = leftEnd, rightEnd
		case OrderedLessThan:
			li++
		case OrderedGreaterThan:
			ri++
		}
	}

	return joined, nil
}

// compareAcross compares leftField(l) to rightField(r), the cross-side
// analogue of Tuple.compareField (which compares one expression across
// two tuples of the same schema).
func compareAcross(l, r *Tuple, leftField, rightField Expr) (orderByState, error) {
	lv, err := leftField.EvalExpr(l)
	if err != nil {
		return OrderedEqual, err
	}
	rv, err := rightField.EvalExpr(r)
	if err != nil {
		return OrderedEqual, err
	}
	return compareFields(lv, rv)
}

// equalRunEnd returns the index one past the end of the run of tuples
// starting at start whose field value equals tuples[start]'s.
func equalRunEnd(tuples []*Tuple, start int, field Expr) (int, error) {
	end := start + 1
	for end < len(tuples) {
		order, err := tuples[end].compareField(tuples[start], field)
		if err != nil {
			return 0, err
		}
		if order != OrderedEqual {
			break
		}
		end++
	}
	return end, nil
}
