package model

import "math"

// MetricRecord is one row of a sweep dataset.
type MetricRecord struct {
	Family        string        `json:"family,omitempty"`
	GroupKey      int64         `json:"group"`
	Configuration Configuration `json:"configuration"`
	// Mean measured time over all samples
	MeasuredTimeMs float64 `json:"measured_time_ms"`
	// Standard deviation of the samples, zero for a single sample
	StdDevMs float64 `json:"stddev_ms"`
	Samples  int     `json:"samples"`
	// Absent until a baseline for the group is known
	Speedup    *float64 `json:"speedup,omitempty"`
	Efficiency *float64 `json:"efficiency,omitempty"`
	// Per-worker values ordered by worker id
	PerWorkerBreakdown []float64 `json:"per_worker_ms,omitempty"`
	// Auxiliary times reported by the benchmark, averaged over samples
	AuxTimes map[string]float64 `json:"aux_times,omitempty"`
}

// RecordKey identifies a record inside a dataset.
type RecordKey struct {
	GroupKey int64
	Config   ConfigKey
}

// Key returns the deduplication key of the record.
func (r MetricRecord) Key() RecordKey {
	return RecordKey{GroupKey: r.GroupKey, Config: r.Configuration.Key()}
}

// Finite reports whether every numeric field of the record is finite.
func (r MetricRecord) Finite() bool {
	if !finite(r.MeasuredTimeMs) || !finite(r.StdDevMs) {
		return false
	}
	if r.Speedup != nil && !finite(*r.Speedup) {
		return false
	}
	if r.Efficiency != nil && !finite(*r.Efficiency) {
		return false
	}
	for _, v := range r.PerWorkerBreakdown {
		if !finite(v) {
			return false
		}
	}
	return true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Dataset is the output of one family sweep.
type Dataset struct {
	Family   string         `json:"family"`
	Records  []MetricRecord `json:"records"`
	Failures []Failure      `json:"failures,omitempty"`
}
