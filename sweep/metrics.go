package sweep

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/perfgo/perfsweep/model"
)

// Metrics counts benchmark runs of a sweep.
type Metrics struct {
	runs     *prometheus.CounterVec
	skipped  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	records  *prometheus.GaugeVec
}

// NewMetrics registers the sweep metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		// Labels: family, status (success, non-zero-exit, timed-out, launch-failed)
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "perfsweep",
			Name:      "runs_total",
			Help:      "Benchmark runs by exit classification",
		}, []string{"family", "status"}),
		skipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "perfsweep",
			Name:      "skipped_lines_total",
			Help:      "Tagged output lines dropped by the parser",
		}, []string{"family"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "perfsweep",
			Name:      "run_duration_seconds",
			Help:      "Wall clock time of benchmark runs",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"family"}),
		records: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "perfsweep",
			Name:      "records",
			Help:      "Records in the finalized dataset",
		}, []string{"family"}),
	}
}

func (m *Metrics) observeRun(family string, outcome model.RunOutcome) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(family, outcome.Status.Kind.String()).Inc()
	m.duration.WithLabelValues(family).Observe(outcome.WallClock.Seconds())
}

func (m *Metrics) observeSkipped(family string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.skipped.WithLabelValues(family).Add(float64(n))
}

func (m *Metrics) setRecords(family string, n int) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(family).Set(float64(n))
}
