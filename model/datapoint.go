package model

// DataPoint is a record extracted from one tagged output line. The set of
// implementations is closed: TimingPoint and PerWorkerPoint.
type DataPoint interface {
	// SchemaName is the name of the schema that produced the point.
	SchemaName() string
	// SourceLine is the 1-based line number in the run output.
	SourceLine() int

	isDataPoint()
}

// TimingPoint carries the measured time of a whole run.
type TimingPoint struct {
	Schema         string             `json:"schema"`
	Line           int                `json:"line"`
	Size           int64              `json:"size"`
	Parallelism    int                `json:"parallelism"`
	MeasuredTimeMs float64            `json:"measured_time_ms"`
	AuxTimes       map[string]float64 `json:"aux_times,omitempty"`
}

func (p TimingPoint) SchemaName() string { return p.Schema }
func (p TimingPoint) SourceLine() int    { return p.Line }
func (TimingPoint) isDataPoint()         {}

// PerWorkerPoint carries one metric of a single worker (thread or rank).
type PerWorkerPoint struct {
	Schema      string  `json:"schema"`
	Line        int     `json:"line"`
	WorkerID    int     `json:"worker_id"`
	MetricValue float64 `json:"metric_value"`
}

func (p PerWorkerPoint) SchemaName() string { return p.Schema }
func (p PerWorkerPoint) SourceLine() int    { return p.Line }
func (PerWorkerPoint) isDataPoint()         {}
