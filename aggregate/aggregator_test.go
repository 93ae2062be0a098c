package aggregate

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfgo/perfsweep/model"
)

func timing(ms float64) model.DataPoint {
	return model.TimingPoint{Schema: "time-ms", MeasuredTimeMs: ms}
}

func cfg(parallelism int, size int64) model.Configuration {
	return model.Configuration{Parallelism: parallelism, ProblemSize: size}
}

func TestAggregator_EndToEnd(t *testing.T) {
	a := New(zerolog.Nop(), WithFamily("sort"))

	for _, run := range []struct {
		parallelism int
		ms          float64
	}{
		{1, 100},
		{2, 55},
		{4, 30},
	} {
		_, err := a.Ingest(0, cfg(run.parallelism, 0), []model.DataPoint{timing(run.ms)})
		require.NoError(t, err)
	}

	records, failures := a.Finalize()
	require.Empty(t, failures)
	require.Len(t, records, 3)

	expected := []struct {
		parallelism int
		speedup     float64
		efficiency  float64
	}{
		{1, 1.0, 1.0},
		{2, 100.0 / 55.0, 100.0 / 55.0 / 2},
		{4, 100.0 / 30.0, 100.0 / 30.0 / 4},
	}
	for i, e := range expected {
		r := records[i]
		assert.Equal(t, "sort", r.Family)
		assert.Equal(t, e.parallelism, r.Configuration.Parallelism)
		require.NotNil(t, r.Speedup)
		require.NotNil(t, r.Efficiency)
		assert.InDelta(t, e.speedup, *r.Speedup, 1e-9)
		assert.InDelta(t, e.efficiency, *r.Efficiency, 1e-9)
	}
	assert.InDelta(t, 1.818, *records[1].Speedup, 1e-3)
	assert.InDelta(t, 0.909, *records[1].Efficiency, 1e-3)
	assert.InDelta(t, 3.333, *records[2].Speedup, 1e-3)
	assert.InDelta(t, 0.833, *records[2].Efficiency, 1e-3)
}

func TestAggregator_MissingBaseline(t *testing.T) {
	a := New(zerolog.Nop())

	_, err := a.Ingest(1000, cfg(2, 1000), []model.DataPoint{timing(50)})
	require.NoError(t, err)
	_, err = a.Ingest(1000, cfg(4, 1000), []model.DataPoint{timing(25)})
	require.NoError(t, err)

	records, failures := a.Finalize()
	require.Len(t, records, 2)
	for _, r := range records {
		assert.Nil(t, r.Speedup)
		assert.Nil(t, r.Efficiency)
		assert.NotZero(t, r.MeasuredTimeMs)
	}

	require.Len(t, failures, 1)
	assert.Equal(t, model.FailureMissingBaseline, failures[0].Kind)
	assert.Equal(t, int64(1000), failures[0].GroupKey)
}

func TestAggregator_IngestWithoutBaseline(t *testing.T) {
	a := New(zerolog.Nop())

	_, err := a.IngestWithoutBaseline(0, cfg(1, 0), []model.DataPoint{timing(100)})
	require.NoError(t, err)
	_, err = a.Ingest(0, cfg(2, 0), []model.DataPoint{timing(50)})
	require.NoError(t, err)

	_, ok := a.baselines.Get(0)
	assert.False(t, ok)

	records, failures := a.Finalize()
	require.Len(t, records, 2)
	assert.Equal(t, 100.0, records[0].MeasuredTimeMs)
	for _, r := range records {
		assert.Nil(t, r.Speedup)
	}
	require.Len(t, failures, 1)
	assert.Equal(t, model.FailureMissingBaseline, failures[0].Kind)
}

func TestAggregator_WithGroupsReportsEmptyGroups(t *testing.T) {
	a := New(zerolog.Nop(), WithFamily("sort"), WithGroups(10, 20, 30))

	_, err := a.Ingest(10, cfg(1, 10), []model.DataPoint{timing(100)})
	require.NoError(t, err)

	records, failures := a.Finalize()
	require.Len(t, records, 1)
	require.Len(t, failures, 2)
	assert.Equal(t, int64(20), failures[0].GroupKey)
	assert.Equal(t, int64(30), failures[1].GroupKey)
	for _, f := range failures {
		assert.Equal(t, model.FailureMissingBaseline, f.Kind)
		assert.Equal(t, "sort", f.Family)
	}
}

func TestAggregator_LateBaselineResolvesGroup(t *testing.T) {
	a := New(zerolog.Nop())

	_, err := a.Ingest(10, cfg(2, 10), []model.DataPoint{timing(50)})
	require.NoError(t, err)
	_, err = a.Ingest(20, cfg(2, 20), []model.DataPoint{timing(40)})
	require.NoError(t, err)

	changed, err := a.Ingest(10, cfg(1, 10), []model.DataPoint{timing(100)})
	require.NoError(t, err)
	require.Len(t, changed, 2)
	assert.Equal(t, 1, changed[0].Configuration.Parallelism)
	assert.Equal(t, 2, changed[1].Configuration.Parallelism)
	assert.InDelta(t, 2.0, *changed[1].Speedup, 1e-9)
	assert.InDelta(t, 1.0, *changed[1].Efficiency, 1e-9)

	records, failures := a.Finalize()
	require.Len(t, records, 3)
	assert.Equal(t, int64(10), records[0].GroupKey)
	assert.Equal(t, int64(10), records[1].GroupKey)
	assert.Equal(t, int64(20), records[2].GroupKey)
	assert.Nil(t, records[2].Speedup)

	require.Len(t, failures, 1)
	assert.Equal(t, model.FailureMissingBaseline, failures[0].Kind)
	assert.Equal(t, int64(20), failures[0].GroupKey)
}

func TestAggregator_FirstBaselineWins(t *testing.T) {
	a := New(zerolog.Nop())

	_, err := a.Ingest(0, cfg(1, 0), []model.DataPoint{timing(100)})
	require.NoError(t, err)
	_, err = a.Ingest(0, cfg(2, 0), []model.DataPoint{timing(50)})
	require.NoError(t, err)

	// a second baseline measurement replaces the record but not the index
	_, err = a.Ingest(0, cfg(1, 0), []model.DataPoint{timing(80)})
	require.NoError(t, err)

	baseline, ok := a.Baselines().Get(0)
	require.True(t, ok)
	assert.Equal(t, 100.0, baseline)

	records, _ := a.Finalize()
	require.Len(t, records, 2)
	assert.Equal(t, 80.0, records[0].MeasuredTimeMs)
	assert.InDelta(t, 1.25, *records[0].Speedup, 1e-9)
	assert.InDelta(t, 2.0, *records[1].Speedup, 1e-9)
}

func TestAggregator_ZeroTimeIsDropped(t *testing.T) {
	a := New(zerolog.Nop(), WithFamily("integral"))

	_, err := a.Ingest(0, cfg(1, 0), []model.DataPoint{timing(100)})
	require.NoError(t, err)
	changed, err := a.Ingest(0, cfg(8, 0), []model.DataPoint{timing(0)})
	require.NoError(t, err)
	require.Len(t, changed, 1)
	require.NotNil(t, changed[0].Speedup)
	assert.True(t, math.IsInf(*changed[0].Speedup, 1))

	records, failures := a.Finalize()
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].Configuration.Parallelism)

	require.Len(t, failures, 1)
	assert.Equal(t, model.FailureNonFiniteMetric, failures[0].Kind)
	assert.Equal(t, "integral", failures[0].Family)
	require.NotNil(t, failures[0].Configuration)
	assert.Equal(t, 8, failures[0].Configuration.Parallelism)
}

func TestAggregator_ZeroBaselineNotAccepted(t *testing.T) {
	a := New(zerolog.Nop())

	_, err := a.Ingest(0, cfg(1, 0), []model.DataPoint{timing(0)})
	require.NoError(t, err)
	_, ok := a.Baselines().Get(0)
	assert.False(t, ok)

	_, err = a.Ingest(0, cfg(2, 0), []model.DataPoint{timing(10)})
	require.NoError(t, err)

	records, failures := a.Finalize()
	require.Len(t, records, 1)
	assert.Nil(t, records[0].Speedup)

	kinds := []model.FailureKind{failures[0].Kind, failures[1].Kind}
	assert.ElementsMatch(t, []model.FailureKind{model.FailureMissingBaseline, model.FailureNonFiniteMetric}, kinds)
}

func TestAggregator_NoTiming(t *testing.T) {
	a := New(zerolog.Nop())

	_, err := a.Ingest(0, cfg(2, 0), []model.DataPoint{
		model.PerWorkerPoint{WorkerID: 0, MetricValue: 3},
	})
	require.ErrorIs(t, err, ErrNoTiming)

	records, failures := a.Finalize()
	assert.Empty(t, records)
	assert.Empty(t, failures)
}

func TestAggregator_RepeatsAndBreakdown(t *testing.T) {
	a := New(zerolog.Nop())

	points := []model.DataPoint{
		model.TimingPoint{MeasuredTimeMs: 10, AuxTimes: map[string]float64{"qsort_ms": 30}},
		model.PerWorkerPoint{WorkerID: 1, MetricValue: 9},
		model.PerWorkerPoint{WorkerID: 0, MetricValue: 8},
		model.TimingPoint{MeasuredTimeMs: 14, AuxTimes: map[string]float64{"qsort_ms": 34}},
		model.PerWorkerPoint{WorkerID: 0, MetricValue: 12},
		model.PerWorkerPoint{WorkerID: 1, MetricValue: 13},
	}
	changed, err := a.Ingest(0, cfg(2, 0), points)
	require.NoError(t, err)
	require.Len(t, changed, 1)

	r := changed[0]
	assert.Equal(t, 12.0, r.MeasuredTimeMs)
	assert.Equal(t, 2, r.Samples)
	assert.InDelta(t, math.Sqrt(8), r.StdDevMs, 1e-9)
	assert.Equal(t, []float64{10, 11}, r.PerWorkerBreakdown)
	assert.Equal(t, map[string]float64{"qsort_ms": 32}, r.AuxTimes)
}

func TestAggregator_CustomSelector(t *testing.T) {
	a := New(zerolog.Nop(), WithBaselineSelector(func(c model.Configuration) bool {
		return c.Parallelism == 2
	}))

	_, err := a.Ingest(0, cfg(2, 0), []model.DataPoint{timing(40)})
	require.NoError(t, err)
	_, err = a.Ingest(0, cfg(4, 0), []model.DataPoint{timing(20)})
	require.NoError(t, err)

	records, failures := a.Finalize()
	require.Empty(t, failures)
	assert.InDelta(t, 2.0, *records[1].Speedup, 1e-9)
	assert.InDelta(t, 0.5, *records[1].Efficiency, 1e-9)
}

func TestAggregator_FinalizeReturnsCopies(t *testing.T) {
	a := New(zerolog.Nop())
	_, err := a.Ingest(0, cfg(1, 0), []model.DataPoint{timing(10)})
	require.NoError(t, err)

	records, _ := a.Finalize()
	*records[0].Speedup = 42

	again, _ := a.Finalize()
	assert.Equal(t, 1.0, *again[0].Speedup)
}

func TestMerge(t *testing.T) {
	one := 1.0
	prev := model.Dataset{
		Family: "sort",
		Records: []model.MetricRecord{
			{GroupKey: 10, Configuration: cfg(1, 10), MeasuredTimeMs: 100, Speedup: &one},
			{GroupKey: 10, Configuration: cfg(2, 10), MeasuredTimeMs: 60},
		},
		Failures: []model.Failure{{Kind: model.FailureTimedOut, GroupKey: 10}},
	}
	cur := model.Dataset{
		Family: "sort",
		Records: []model.MetricRecord{
			{GroupKey: 20, Configuration: cfg(1, 20), MeasuredTimeMs: 200},
			{GroupKey: 10, Configuration: cfg(2, 10), MeasuredTimeMs: 50},
		},
	}

	merged := Merge(prev, cur)
	assert.Equal(t, "sort", merged.Family)
	require.Len(t, merged.Records, 3)
	assert.Equal(t, 100.0, merged.Records[0].MeasuredTimeMs)
	assert.Equal(t, 50.0, merged.Records[1].MeasuredTimeMs)
	assert.Equal(t, int64(20), merged.Records[2].GroupKey)
	assert.Len(t, merged.Failures, 1)

	// inputs are untouched
	assert.Equal(t, 60.0, prev.Records[1].MeasuredTimeMs)
}
