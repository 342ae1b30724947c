package stats

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/otterdb/txdb/godb"
)

// CostPerPage is the assumed cost of reading one page from disk.
const CostPerPage = 1000

// NumHistBins is the number of buckets used for each integer histogram.
const NumHistBins = 100

// Table is the view of a base table TableStats needs: enough to scan it
// (godb.Operator) plus its page count.
type Table interface {
	godb.Operator
	NumPages() int
}

// TableStats holds cardinality and per-column histograms for a base
// table, used to estimate the cost and selectivity of query plans over
// it without re-scanning the table for every estimate.
type TableStats struct {
	basePages  int
	baseTups   int
	intHists   map[string]*IntHistogram
	stringHist map[string]*StringHistogram
}

// ComputeTableStats scans table twice under one fresh transaction to build
// TableStats: a first pass finds each integer column's min/max, a second
// pass populates the histograms.
func ComputeTableStats(bp *godb.BufferPool, table Table) (*TableStats, error) {
	tid := godb.NewTransactionID()
	defer bp.TransactionComplete(tid, true)

	td := table.Descriptor()
	mins, maxs, err := tableMinMax(table, td, tid)
	if err != nil {
		return nil, err
	}

	ts := &TableStats{
		basePages:  table.NumPages(),
		intHists:   make(map[string]*IntHistogram),
		stringHist: make(map[string]*StringHistogram),
	}
	for i, f := range td.Fields {
		switch f.Ftype {
		case godb.IntType:
			ts.intHists[f.Fname] = NewIntHistogram(NumHistBins, mins[i], maxs[i])
		case godb.StringType:
			ts.stringHist[f.Fname] = NewStringHistogram()
		case godb.UnknownType:
			return nil, fmt.Errorf("unexpected unknown field type for %s", f.Fname)
		}
	}

	iter, err := table.Iterator(tid)
	if err != nil {
		return nil, err
	}
	for tup, err := iter(); tup != nil; tup, err = iter() {
		if err != nil {
			return nil, err
		}
		for i, f := range td.Fields {
			switch f.Ftype {
			case godb.IntType:
				ts.intHists[f.Fname].AddValue(tup.Fields[i].(godb.IntField).Value)
			case godb.StringType:
				ts.stringHist[f.Fname].AddValue(tup.Fields[i].(godb.StringField).Value)
			}
		}
		ts.baseTups++
	}

	slog.Debug("computed table stats", "pages", ts.basePages, "tuples", ts.baseTups)
	return ts, nil
}

func tableMinMax(table Table, td *godb.TupleDesc, tid godb.TransactionID) ([]int64, []int64, error) {
	mins := make([]int64, len(td.Fields))
	maxs := make([]int64, len(td.Fields))
	for i := range mins {
		mins[i] = math.MaxInt64
		maxs[i] = math.MinInt64
	}

	iter, err := table.Iterator(tid)
	if err != nil {
		return nil, nil, err
	}
	for tup, err := iter(); tup != nil; tup, err = iter() {
		if err != nil {
			return nil, nil, err
		}
		for i, f := range td.Fields {
			if f.Ftype != godb.IntType {
				continue
			}
			v := tup.Fields[i].(godb.IntField).Value
			if v < mins[i] {
				mins[i] = v
			}
			if v > maxs[i] {
				maxs[i] = v
			}
		}
	}
	for i := range mins {
		if mins[i] > maxs[i] {
			mins[i], maxs[i] = 0, 0
		}
	}
	return mins, maxs, nil
}

// EstimateScanCost estimates the I/O cost of a full sequential scan.
func (t *TableStats) EstimateScanCost() float64 {
	return float64(t.basePages * CostPerPage)
}

// EstimateCardinality estimates the number of tuples that satisfy a
// predicate with the given selectivity.
func (t *TableStats) EstimateCardinality(selectivity float64) int {
	return int(float64(t.baseTups) * selectivity)
}

// EstimateSelectivity estimates the selectivity of `field op value` using
// whichever histogram is registered for field.
func (t *TableStats) EstimateSelectivity(field string, op godb.BoolOp, value godb.DBValue) (float64, error) {
	if h, ok := t.intHists[field]; ok {
		iv, ok := value.(godb.IntField)
		if !ok {
			return 1.0, fmt.Errorf("field %q is int, but value is not an IntField", field)
		}
		return h.EstimateSelectivity(op, iv.Value), nil
	}
	if h, ok := t.stringHist[field]; ok {
		sv, ok := value.(godb.StringField)
		if !ok {
			return 1.0, fmt.Errorf("field %q is string, but value is not a StringField", field)
		}
		return h.EstimateSelectivity(op, sv.Value), nil
	}
	slog.Warn("no histogram for field, assuming no selectivity", "field", field)
	return 1.0, nil
}
