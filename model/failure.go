package model

// FailureKind is the classification of a per-configuration failure.
type FailureKind string

const (
	FailureLaunchFailed    FailureKind = "launch-failed"
	FailureTimedOut        FailureKind = "timed-out"
	FailureNonZeroExit     FailureKind = "non-zero-exit"
	FailureParseSkipped    FailureKind = "parse-skipped"
	FailureMissingBaseline FailureKind = "missing-baseline"
	FailureNonFiniteMetric FailureKind = "non-finite-metric"
	FailureNoData          FailureKind = "no-data"
)

// Failure reports a problem with one configuration (or with a whole group,
// for FailureMissingBaseline). Failures never abort a sweep.
type Failure struct {
	Kind          FailureKind    `json:"kind"`
	Family        string         `json:"family,omitempty"`
	GroupKey      int64          `json:"group"`
	Configuration *Configuration `json:"configuration,omitempty"`
	Detail        string         `json:"detail,omitempty"`
	// Output line numbers that were dropped (FailureParseSkipped)
	Lines []int `json:"lines,omitempty"`
}
