package engine

import (
	"math"
	"sync"
)

// DriftAggregator keeps running distributional statistics over the top
// similarity scores of served queries. A falling mean over time signals that
// the knowledge base no longer matches incoming questions. It holds its own
// lock and shares no state with the vector index, so observing a score never
// contends with the search hot path.
type DriftAggregator struct {
	mu    sync.Mutex
	count int64
	sum   float64
	sumSq float64
	min   float64
	max   float64
}

// DriftSummary is the aggregate over all observations since creation or the
// last Reset. StdDev uses the population formula.
type DriftSummary struct {
	Count  int64   `json:"count"`
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"std_dev"`
}

func NewDriftAggregator() *DriftAggregator {
	return &DriftAggregator{}
}

// Observe appends one similarity score to the running series.
func (d *DriftAggregator) Observe(score float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.count == 0 || score < d.min {
		d.min = score
	}
	if d.count == 0 || score > d.max {
		d.max = score
	}
	d.count++
	d.sum += score
	d.sumSq += score * score
}

// Summary returns the aggregate statistics. The boolean is false when
// nothing has been observed; callers must surface an explicit no-data
// result instead of dividing by zero.
func (d *DriftAggregator) Summary() (DriftSummary, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.count == 0 {
		return DriftSummary{}, false
	}
	mean := d.sum / float64(d.count)
	variance := d.sumSq/float64(d.count) - mean*mean
	if variance < 0 {
		variance = 0 // floating-point cancellation
	}
	return DriftSummary{
		Count:  d.count,
		Mean:   mean,
		Min:    d.min,
		Max:    d.max,
		StdDev: math.Sqrt(variance),
	}, true
}

// Reset discards all observations.
func (d *DriftAggregator) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.count, d.sum, d.sumSq, d.min, d.max = 0, 0, 0, 0, 0
}
