package stats

import (
	boom "github.com/tylertreat/BoomFilters"

	"github.com/otterdb/txdb/godb"
)

// StringHistogram estimates selectivity for a string field using a
// count-min sketch rather than a bucketed histogram, since string value
// ranges have no natural ordering to bucket over.
type StringHistogram struct {
	cms *boom.CountMinSketch
}

// NewStringHistogram creates a StringHistogram with a 0.1% error rate at
// 99.9% confidence.
func NewStringHistogram() *StringHistogram {
	return &StringHistogram{cms: boom.NewCountMinSketch(0.001, 0.999)}
}

// AddValue records s in the sketch.
func (h *StringHistogram) AddValue(s string) {
	h.cms.Add([]byte(s))
}

// EstimateSelectivity estimates the fraction of tuples satisfying
// `field op s`. Only equality is meaningfully estimated from a count-min
// sketch; other operators fall back to a neutral estimate.
func (h *StringHistogram) EstimateSelectivity(op godb.BoolOp, s string) float64 {
	total := h.cms.TotalCount()
	if total == 0 {
		return 0
	}
	switch op {
	case godb.OpEq:
		return float64(h.cms.Count([]byte(s))) / float64(total)
	case godb.OpNeq:
		return 1 - float64(h.cms.Count([]byte(s)))/float64(total)
	default:
		return 1.0
	}
}
