package report

import (
	"errors"

	"github.com/montanaflynn/stats"
)

// Balance summarizes how evenly work was spread over the workers of a run.
type Balance struct {
	Workers int     `json:"workers"`
	Min     float64 `json:"min_ms"`
	Max     float64 `json:"max_ms"`
	Mean    float64 `json:"mean_ms"`
	StdDev  float64 `json:"stddev_ms"`
	// Max divided by mean, 1 is perfect balance
	Imbalance float64 `json:"imbalance"`
}

// NewBalance computes the balance of per-worker times.
func NewBalance(values []float64) (Balance, error) {
	if len(values) == 0 {
		return Balance{}, errors.New("no per-worker values")
	}

	data := stats.Float64Data(values)
	b := Balance{Workers: len(values)}
	var err error
	if b.Min, err = stats.Min(data); err != nil {
		return Balance{}, err
	}
	if b.Max, err = stats.Max(data); err != nil {
		return Balance{}, err
	}
	if b.Mean, err = stats.Mean(data); err != nil {
		return Balance{}, err
	}
	if b.StdDev, err = stats.StandardDeviationPopulation(data); err != nil {
		return Balance{}, err
	}
	if b.Mean > 0 {
		b.Imbalance = b.Max / b.Mean
	} else {
		b.Imbalance = 1
	}
	return b, nil
}
