// Package stats estimates scan cost and predicate selectivity for tables
// managed by the godb buffer pool, supporting query planning decisions
// made outside the core page-cache package.
package stats

import (
	"math"

	"github.com/otterdb/txdb/godb"
)

// IntHistogram is a fixed-width equi-width histogram over the values of a
// single integer field, used to estimate selectivity of a comparison
// predicate without scanning the table.
type IntHistogram struct {
	buckets []int64
	min     int64
	max     int64
	width   float64
	ntuples int64
}

// NewIntHistogram creates a histogram with nBins buckets spanning the
// inclusive range [vMin, vMax].
func NewIntHistogram(nBins int, vMin, vMax int64) *IntHistogram {
	if nBins < 1 {
		nBins = 1
	}
	span := float64(vMax-vMin) + 1
	width := span / float64(nBins)
	if width < 1 {
		width = 1
	}
	return &IntHistogram{
		buckets: make([]int64, nBins),
		min:     vMin,
		max:     vMax,
		width:   width,
	}
}

func (h *IntHistogram) bucketIndex(v int64) int {
	idx := int(float64(v-h.min) / h.width)
	if idx < 0 {
		idx = 0
	}
	if idx >= len(h.buckets) {
		idx = len(h.buckets) - 1
	}
	return idx
}

// AddValue records v in the histogram.
func (h *IntHistogram) AddValue(v int64) {
	h.buckets[h.bucketIndex(v)]++
	h.ntuples++
}

// EstimateSelectivity estimates the fraction of tuples satisfying `field op v`.
func (h *IntHistogram) EstimateSelectivity(op godb.BoolOp, v int64) float64 {
	if h.ntuples == 0 {
		return 0
	}
	switch op {
	case godb.OpEq:
		if v < h.min || v > h.max {
			return 0
		}
		idx := h.bucketIndex(v)
		return (float64(h.buckets[idx]) / h.width) / float64(h.ntuples)
	case godb.OpNeq:
		return 1 - h.EstimateSelectivity(godb.OpEq, v)
	case godb.OpGt:
		return h.selectivityGt(v)
	case godb.OpGe:
		return h.selectivityGt(v - 1)
	case godb.OpLt:
		return 1 - h.selectivityGe(v)
	case godb.OpLe:
		return 1 - h.selectivityGt(v)
	default:
		return 1.0
	}
}

func (h *IntHistogram) selectivityGt(v int64) float64 {
	if v < h.min {
		return 1
	}
	if v >= h.max {
		return 0
	}
	idx := h.bucketIndex(v)
	bucketLeft := h.min + int64(math.Floor(float64(idx)*h.width))
	fracInBucket := (float64(bucketLeft) + h.width - float64(v) - 1) / h.width
	if fracInBucket < 0 {
		fracInBucket = 0
	}
	sel := fracInBucket * float64(h.buckets[idx]) / float64(h.ntuples)
	for i := idx + 1; i < len(h.buckets); i++ {
		sel += float64(h.buckets[i]) / float64(h.ntuples)
	}
	return sel
}

func (h *IntHistogram) selectivityGe(v int64) float64 {
	return h.selectivityGt(v - 1)
}
