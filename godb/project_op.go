package godb

import "errors"

// Project computes a new output schema by evaluating selectFields against
// each of its child's tuples, optionally suppressing duplicate output
// rows.
type Project struct {
	selectFields []Expr
	outputNames  []string
	child        Operator
	distinct     bool
}

// NewProjectOp builds a Project over child that emits, for every input
// tuple, one output field per entry of selectFields, renamed to the
// matching entry of outputNames (the two slices must be the same length).
func NewProjectOp(selectFields []Expr, outputNames []string, distinct bool, child Operator) (Operator, error) {
	if len(selectFields) != len(outputNames) {
		return nil, errors.New("selectFields and outputNames must be the same length")
	}
	return &Project{
		selectFields: selectFields,
		outputNames:  outputNames,
		distinct:     distinct,
		child:        child,
	}, nil
}

// Descriptor returns one field per selectFields entry, in order, with its
// name overridden by the matching outputNames entry.
func (p *Project) Descriptor() *TupleDesc {
	fields := make([]FieldType, len(p.selectFields))
	for i, expr := range p.selectFields {
		ft := expr.GetExprType()
		ft.Fname = p.outputNames[i]
		fields[i] = ft
	}
	return &TupleDesc{Fields: fields}
}

// Iterator evaluates selectFields against each of child's tuples in turn.
// When distinct is set, a tuple whose projected fields match one already
// emitted is skipped; duplicates are tracked by tupleKey rather than a
// full tuple comparison.
func (p *Project) Iterator(tid TransactionID) (func() (*Tuple, error), error) {
	childIter, err := p.child.Iterator(tid)
	if err != nil {
		return nil, err
	}
	desc := *p.Descriptor()

	var seen map[any]struct{}
	if p.distinct {
		seen = make(map[any]struct{})
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

			out := &Tuple{Desc: desc, Fields: make([]DBValue, len(p.selectFields))}
			for i, expr := range p.selectFields {
				v, err := expr.EvalExpr(tuple)
				if err != nil {
					return nil, err
				}
				out.Fields[i] = v
			}

			if p.distinct {
				key := out.tupleKey()
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
			}

			return out, nil
		}
	}, nil
}
