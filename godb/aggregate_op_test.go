package godb

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func aggTestTable(t *testing.T) (*BufferPool, *HeapFile, TransactionID) {
	t.Helper()
	bp, hf := newTestTable(t, 8)
	tid := NewTransactionID()
	insertRow(t, bp, tid, hf, 1, "a")
	insertRow(t, bp, tid, hf, 2, "a")
	insertRow(t, bp, tid, hf, 3, "b")
	require.NoError(t, bp.TransactionComplete(tid, true))
	return bp, hf, NewTransactionID()
}

func aField(t *testing.T, hf *HeapFile) Expr {
	return &FieldExpr{hf.Descriptor().Fields[0]}
}

func bField(t *testing.T, hf *HeapFile) Expr {
	return &FieldExpr{hf.Descriptor().Fields[1]}
}

func TestAggregateOpSumNoGroupBy(t *testing.T) {
	_, hf, tid := aggTestTable(t)
	sum := &SumAggState{}
	require.NoError(t, sum.Init("sum_a", aField(t, hf)))

	agg := NewAggregator([]AggState{sum}, nil, hf)
	iter, err := agg.Iterator(tid)
	require.NoError(t, err)

	out, err := iter()
	require.NoError(t, err)
	require.NotNil(t, out)
	require.Equal(t, int64(6), out.Fields[0].(IntField).Value)

	out, err = iter()
	require.NoError(t, err)
	require.Nil(t, out)
}

func TestAggregateOpCountGroupBy(t *testing.T) {
	_, hf, tid := aggTestTable(t)
	count := &CountAggState{}
	require.NoError(t, count.Init("n", aField(t, hf)))

	agg := NewAggregator([]AggState{count}, []Expr{bField(t, hf)}, hf)
	iter, err := agg.Iterator(tid)
	require.NoError(t, err)

	counts := map[string]int64{}
	for {
		out, err := iter()
		require.NoError(t, err)
		if out == nil {
			break
		}
		key := out.Fields[0].(StringField).Value
		counts[key] = out.Fields[1].(IntField).Value
	}
	require.Equal(t, map[string]int64{"a": 2, "b": 1}, counts)
}

func TestAggregateOpMaxMin(t *testing.T) {
	_, hf, tid := aggTestTable(t)
	max := &MaxAggState{}
	require.NoError(t, max.Init("max_a", aField(t, hf)))
	min := &MinAggState{}
	require.NoError(t, min.Init("min_a", aField(t, hf)))

	agg := NewAggregator([]AggState{max, min}, nil, hf)
	iter, err := agg.Iterator(tid)
	require.NoError(t, err)

	out, err := iter()
	require.NoError(t, err)
	require.Equal(t, int64(3), out.Fields[0].(IntField).Value)
	require.Equal(t, int64(1), out.Fields[1].(IntField).Value)
}
