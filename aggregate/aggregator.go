// Package aggregate turns parsed data points into metric records and derives
// speedup and efficiency against the baseline of each group.
package aggregate

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"github.com/rs/zerolog"

	"github.com/perfgo/perfsweep/model"
)

// ErrNoTiming is returned by Ingest when the data points contain no timing
// point, so no record can be built.
var ErrNoTiming = errors.New("no timing data")

// Aggregator accumulates the records of a single sweep. It is not safe for
// concurrent use.
type Aggregator struct {
	logger    zerolog.Logger
	family    string
	selector  BaselineSelector
	baselines *BaselineIndex
	records   map[model.RecordKey]*model.MetricRecord
	// groups of the sweep, including groups that never produced a record
	groups map[int64]bool
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithFamily sets the family name stamped on records and failures.
func WithFamily(name string) Option {
	return func(a *Aggregator) {
		a.family = name
	}
}

// WithBaselineSelector replaces the default parallelism == 1 selector.
func WithBaselineSelector(selector BaselineSelector) Option {
	return func(a *Aggregator) {
		if selector != nil {
			a.selector = selector
		}
	}
}

// WithGroups declares the groups of the sweep up front, so Finalize reports a
// missing baseline even for groups in which no run produced a record.
func WithGroups(groups ...int64) Option {
	return func(a *Aggregator) {
		for _, g := range groups {
			a.groups[g] = true
		}
	}
}

// New creates an empty Aggregator.
func New(logger zerolog.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		logger:    logger,
		selector:  SingleWorkerBaseline,
		baselines: NewBaselineIndex(),
		records:   make(map[model.RecordKey]*model.MetricRecord),
		groups:    make(map[int64]bool),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Baselines exposes the baseline index of the sweep.
func (a *Aggregator) Baselines() *BaselineIndex {
	return a.baselines
}

// Ingest builds the record of cfg in group from all data points of the
// configuration (every repeat in one call). A record ingested again for the
// same key replaces the previous one. The returned records are copies of
// every record that changed, including records of the group whose speedup
// was resolved by a newly accepted baseline.
func (a *Aggregator) Ingest(group int64, cfg model.Configuration, points []model.DataPoint) ([]model.MetricRecord, error) {
	return a.ingest(group, cfg, points, true)
}

// IngestWithoutBaseline is Ingest for configurations with a failed run. The
// record keeps its raw timing but is never offered as baseline, even when
// the selector matches.
func (a *Aggregator) IngestWithoutBaseline(group int64, cfg model.Configuration, points []model.DataPoint) ([]model.MetricRecord, error) {
	return a.ingest(group, cfg, points, false)
}

func (a *Aggregator) ingest(group int64, cfg model.Configuration, points []model.DataPoint, baselineEligible bool) ([]model.MetricRecord, error) {
	var times []float64
	aux := make(map[string][]float64)
	workers := make(map[int][]float64)

	for _, p := range points {
		switch p := p.(type) {
		case model.TimingPoint:
			times = append(times, p.MeasuredTimeMs)
			for k, v := range p.AuxTimes {
				aux[k] = append(aux[k], v)
			}
		case model.PerWorkerPoint:
			workers[p.WorkerID] = append(workers[p.WorkerID], p.MetricValue)
		}
	}

	if len(times) == 0 {
		return nil, fmt.Errorf("%s: %w", cfg, ErrNoTiming)
	}

	measured, stddev, err := sampleStats(times)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize samples of %s: %w", cfg, err)
	}

	record := &model.MetricRecord{
		Family:             a.family,
		GroupKey:           group,
		Configuration:      cfg,
		MeasuredTimeMs:     measured,
		StdDevMs:           stddev,
		Samples:            len(times),
		PerWorkerBreakdown: breakdown(workers),
	}
	if len(aux) > 0 {
		record.AuxTimes = make(map[string]float64, len(aux))
		for k, vs := range aux {
			record.AuxTimes[k], _ = stats.Mean(vs)
		}
	}

	key := record.Key()
	if _, ok := a.records[key]; ok {
		a.logger.Debug().
			Int64("group", group).
			Int("parallelism", cfg.Parallelism).
			Msg("Replacing existing record")
	}
	a.records[key] = record

	changed := []*model.MetricRecord{record}
	switch {
	case !a.selector(cfg):
	case !baselineEligible:
		a.logger.Warn().
			Int64("group", group).
			Int("parallelism", cfg.Parallelism).
			Msg("Baseline run failed, not using it as baseline")
	default:
		if resolved := a.offerBaseline(group, record); resolved != nil {
			changed = resolved
		}
	}
	a.resolve(record)

	out := make([]model.MetricRecord, 0, len(changed))
	for _, r := range changed {
		out = append(out, copyRecord(*r))
	}
	return out, nil
}

// offerBaseline offers the record as baseline of its group. It returns the
// records of the group resolved by the new baseline, or nil when the offer
// was rejected.
func (a *Aggregator) offerBaseline(group int64, record *model.MetricRecord) []*model.MetricRecord {
	t := record.MeasuredTimeMs
	if t <= 0 || math.IsInf(t, 0) || math.IsNaN(t) {
		a.logger.Warn().
			Int64("group", group).
			Float64("measured_time_ms", t).
			Msg("Baseline time is not positive, group stays without baseline")
		return nil
	}

	accepted, existing := a.baselines.Offer(group, t)
	if !accepted {
		a.logger.Warn().
			Int64("group", group).
			Float64("baseline_ms", existing).
			Float64("ignored_ms", t).
			Msg("Group already has a baseline, keeping the first one")
		return nil
	}

	a.logger.Debug().
		Int64("group", group).
		Float64("baseline_ms", t).
		Msg("Baseline resolved")

	var resolved []*model.MetricRecord
	for _, r := range a.records {
		if r.GroupKey != group {
			continue
		}
		a.resolve(r)
		resolved = append(resolved, r)
	}
	sortRecordPtrs(resolved)
	return resolved
}

// resolve fills speedup and efficiency of r from the baseline index. A zero
// measured time produces +Inf, which Finalize drops.
func (a *Aggregator) resolve(r *model.MetricRecord) {
	if r.MeasuredTimeMs == 0 {
		inf := math.Inf(1)
		r.Speedup = &inf
		r.Efficiency = &inf
		return
	}

	baseline, ok := a.baselines.Get(r.GroupKey)
	if !ok {
		return
	}

	speedup, efficiency := Speedup(baseline, r.MeasuredTimeMs, r.Configuration.Parallelism)
	r.Speedup = &speedup
	r.Efficiency = &efficiency
}

// Finalize returns the finite records sorted by group, parallelism and
// problem size, along with the failures found while finalizing: one
// FailureNonFiniteMetric per dropped record and one FailureMissingBaseline
// per group that never got a baseline.
func (a *Aggregator) Finalize() ([]model.MetricRecord, []model.Failure) {
	var records []model.MetricRecord
	var failures []model.Failure
	groups := make(map[int64]bool, len(a.groups))
	for g := range a.groups {
		groups[g] = true
	}

	for _, r := range a.records {
		groups[r.GroupKey] = true
		if !r.Finite() {
			cfg := r.Configuration
			failures = append(failures, model.Failure{
				Kind:          model.FailureNonFiniteMetric,
				Family:        a.family,
				GroupKey:      r.GroupKey,
				Configuration: &cfg,
				Detail:        fmt.Sprintf("measured time %v ms gives a non-finite ratio", r.MeasuredTimeMs),
			})
			continue
		}
		records = append(records, copyRecord(*r))
	}

	for group := range groups {
		if _, ok := a.baselines.Get(group); ok {
			continue
		}
		failures = append(failures, model.Failure{
			Kind:     model.FailureMissingBaseline,
			Family:   a.family,
			GroupKey: group,
			Detail:   "no successful baseline run, speedup and efficiency omitted",
		})
	}

	SortRecords(records)
	sort.SliceStable(failures, func(i, j int) bool {
		if failures[i].GroupKey != failures[j].GroupKey {
			return failures[i].GroupKey < failures[j].GroupKey
		}
		return failureParallelism(failures[i]) < failureParallelism(failures[j])
	})

	return records, failures
}

// Speedup returns baseline/measured and the speedup divided by parallelism.
func Speedup(baselineMs, measuredMs float64, parallelism int) (float64, float64) {
	speedup := baselineMs / measuredMs
	return speedup, speedup / float64(parallelism)
}

// SortRecords orders records by group, parallelism and problem size.
func SortRecords(records []model.MetricRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return lessRecord(&records[i], &records[j])
	})
}

func sortRecordPtrs(records []*model.MetricRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return lessRecord(records[i], records[j])
	})
}

func lessRecord(a, b *model.MetricRecord) bool {
	if a.GroupKey != b.GroupKey {
		return a.GroupKey < b.GroupKey
	}
	if a.Configuration.Parallelism != b.Configuration.Parallelism {
		return a.Configuration.Parallelism < b.Configuration.Parallelism
	}
	return a.Configuration.ProblemSize < b.Configuration.ProblemSize
}

func failureParallelism(f model.Failure) int {
	if f.Configuration == nil {
		return 0
	}
	return f.Configuration.Parallelism
}

// sampleStats returns the mean and sample standard deviation of the times.
func sampleStats(times []float64) (float64, float64, error) {
	mean, err := stats.Mean(times)
	if err != nil {
		return 0, 0, err
	}
	if len(times) < 2 {
		return mean, 0, nil
	}
	stddev, err := stats.StandardDeviationSample(times)
	if err != nil {
		return 0, 0, err
	}
	return mean, stddev, nil
}

// breakdown averages the values of each worker and orders them by worker id.
func breakdown(workers map[int][]float64) []float64 {
	if len(workers) == 0 {
		return nil
	}

	ids := make([]int, 0, len(workers))
	for id := range workers {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]float64, 0, len(ids))
	for _, id := range ids {
		v, _ := stats.Mean(workers[id])
		out = append(out, v)
	}
	return out
}

func copyRecord(r model.MetricRecord) model.MetricRecord {
	if r.Speedup != nil {
		v := *r.Speedup
		r.Speedup = &v
	}
	if r.Efficiency != nil {
		v := *r.Efficiency
		r.Efficiency = &v
	}
	if r.PerWorkerBreakdown != nil {
		r.PerWorkerBreakdown = append([]float64(nil), r.PerWorkerBreakdown...)
	}
	if r.AuxTimes != nil {
		aux := make(map[string]float64, len(r.AuxTimes))
		for k, v := range r.AuxTimes {
			aux[k] = v
		}
		r.AuxTimes = aux
	}
	return r
}
