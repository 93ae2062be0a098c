package report

import (
	"fmt"
	"io"
	"time"

	"github.com/google/pprof/profile"

	"github.com/perfgo/perfsweep/model"
)

// profileBuilder turns per-worker breakdowns into a pprof profile. Every
// sample is a stack family > configuration > worker with the worker time as
// value, so `go tool pprof -top` ranks the slowest workers.
type profileBuilder struct {
	profile   *profile.Profile
	functions map[string]*profile.Function
	locations map[string]*profile.Location
}

func newProfileBuilder() *profileBuilder {
	return &profileBuilder{
		profile: &profile.Profile{
			SampleType: []*profile.ValueType{{Type: "wall", Unit: "nanoseconds"}},
			PeriodType: &profile.ValueType{Type: "wall", Unit: "nanoseconds"},
			Period:     1,
			TimeNanos:  time.Now().UnixNano(),
		},
		functions: make(map[string]*profile.Function),
		locations: make(map[string]*profile.Location),
	}
}

// WorkerProfile builds a profile of the per-worker breakdowns of the
// datasets. It returns nil when no record has a breakdown.
func WorkerProfile(datasets ...model.Dataset) *profile.Profile {
	b := newProfileBuilder()
	for _, ds := range datasets {
		for _, r := range ds.Records {
			b.addRecord(ds.Family, r)
		}
	}

	if len(b.profile.Sample) == 0 {
		return nil
	}
	return b.profile
}

// WriteWorkerProfile writes the gzipped profile of the datasets to w. It
// returns ErrNothingToPlot when no record has a breakdown.
func WriteWorkerProfile(w io.Writer, datasets ...model.Dataset) error {
	prof := WorkerProfile(datasets...)
	if prof == nil {
		return ErrNothingToPlot
	}
	if err := prof.CheckValid(); err != nil {
		return fmt.Errorf("invalid worker profile: %w", err)
	}
	if err := prof.Write(w); err != nil {
		return fmt.Errorf("failed to write worker profile: %w", err)
	}
	return nil
}

func (b *profileBuilder) addRecord(family string, r model.MetricRecord) {
	if len(r.PerWorkerBreakdown) == 0 {
		return
	}

	cfgName := fmt.Sprintf("%s %s", family, r.Configuration)
	root := b.getOrCreateLocation(family)
	cfg := b.getOrCreateLocation(cfgName)

	for worker, ms := range r.PerWorkerBreakdown {
		leafName := fmt.Sprintf("worker %d [%s]", worker, cfgName)
		leaf := b.getOrCreateLocation(leafName)
		b.profile.Sample = append(b.profile.Sample, &profile.Sample{
			// leaf first
			Location: []*profile.Location{leaf, cfg, root},
			Value:    []int64{int64(ms * float64(time.Millisecond))},
			NumLabel: map[string][]int64{
				"parallelism": {int64(r.Configuration.Parallelism)},
				"group":       {r.GroupKey},
				"worker":      {int64(worker)},
			},
		})
	}
}

// getOrCreateLocation gets or creates the location of a frame
func (b *profileBuilder) getOrCreateLocation(name string) *profile.Location {
	if loc, exists := b.locations[name]; exists {
		return loc
	}

	loc := &profile.Location{
		ID:   uint64(len(b.profile.Location) + 1),
		Line: []profile.Line{{Function: b.getOrCreateFunction(name)}},
	}
	b.locations[name] = loc
	b.profile.Location = append(b.profile.Location, loc)
	return loc
}

func (b *profileBuilder) getOrCreateFunction(name string) *profile.Function {
	if fn, exists := b.functions[name]; exists {
		return fn
	}

	fn := &profile.Function{
		ID:   uint64(len(b.profile.Function) + 1),
		Name: name,
	}
	b.functions[name] = fn
	b.profile.Function = append(b.profile.Function, fn)
	return fn
}
