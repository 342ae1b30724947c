package godb

// AggregateOp computes one or more running aggregates over its child's
// tuples, optionally grouped by a list of expressions. With no group-by
// expressions it emits a single summary tuple; otherwise it emits one tuple
// per distinct group-by key.
type AggregateOp struct {
	child      Operator
	aggs       []AggState
	groupByExp []Expr
}

// NewAggregator returns an AggregateOp that applies aggState (one template
// per output aggregate column, already Init'd by the caller) to child's
// tuples, grouped by groupByExp (nil or empty for no grouping).
func NewAggregator(aggState []AggState, groupByExp []Expr, child Operator) *AggregateOp {
	return &AggregateOp{
		child:      child,
		aggs:       aggState,
		groupByExp: groupByExp,
	}
}

func (a *AggregateOp) Descriptor() *TupleDesc {
	var fields []FieldType
	for _, ge := range a.groupByExp {
		fields = append(fields, ge.GetExprType())
	}
	for _, agg := range a.aggs {
		fields = append(fields, agg.GetTupleDesc().Fields...)
	}
	return &TupleDesc{Fields: fields}
}

func (a *AggregateOp) groupKey(t *Tuple) (any, []DBValue, error) {
	if len(a.groupByExp) == 0 {
		return nil, nil, nil
	}
	keyVals := make([]DBValue, len(a.groupByExp))
	for i, ge := range a.groupByExp {
		v, err := ge.EvalExpr(t)
		if err != nil {
			return nil, nil, err
		}
		keyVals[i] = v
	}
	key := &Tuple{Desc: TupleDesc{}, Fields: keyVals}
	return key.tupleKey(), keyVals, nil
}

// Iterator runs the whole child to completion, folding each tuple into the
// per-group aggregate states, then hands back the accumulated results one
// tuple at a time.
func (a *AggregateOp) Iterator(tid TransactionID) (func() (*Tuple, error), error) {
	childIter, err := a.child.Iterator(tid)
	if err != nil {
		return nil, err
	}

	type group struct {
		keyVals []DBValue
		states  []AggState
	}
	order := make([]any, 0)
	groups := make(map[any]*group)

	newStates := func() []AggState {
		states := make([]AggState, len(a.aggs))
		for i, tmpl := range a.aggs {
			states[i] = tmpl.Copy()
		}
		return states
	}

	for {
		t, err := childIter()
		if err != nil {
			return nil, err
		}
		if t == nil {
			break
		}
		key, keyVals, err := a.groupKey(t)
		if err != nil {
			return nil, err
		}
		g, ok := groups[key]
		if !ok {
			g = &group{keyVals: keyVals, states: newStates()}
			groups[key] = g
			order = append(order, key)
		}
		for _, st := range g.states {
			st.AddTuple(t)
		}
	}
	if len(order) == 0 && len(a.groupByExp) == 0 {
		groups[nil] = &group{states: newStates()}
		order = append(order, nil)
	}

	desc := *a.Descriptor()
	idx := 0
	return func() (*Tuple, error) {
		if idx >= len(order) {
			return nil, nil
		}
		g := groups[order[idx]]
		idx++

		fields := append([]DBValue{}, g.keyVals...)
		for _, st := range g.states {
			res := st.Finalize()
			fields = append(fields, res.Fields...)
		}
		return &Tuple{Desc: desc, Fields: fields}, nil
	}, nil
}
