package aggregate

import "github.com/perfgo/perfsweep/model"

// BaselineSelector reports whether a configuration provides the speedup
// reference for its group.
type BaselineSelector func(cfg model.Configuration) bool

// SingleWorkerBaseline selects configurations with parallelism 1.
func SingleWorkerBaseline(cfg model.Configuration) bool {
	return cfg.Parallelism == 1
}

// BaselineIndex maps a group key to the measured time of its baseline run.
// A group holds at most one baseline; the first one offered wins.
type BaselineIndex struct {
	times map[int64]float64
}

// NewBaselineIndex returns an empty index.
func NewBaselineIndex() *BaselineIndex {
	return &BaselineIndex{times: make(map[int64]float64)}
}

// Offer stores timeMs as the baseline of group unless the group already has
// one. It returns false and the stored value when the offer was ignored.
func (b *BaselineIndex) Offer(group int64, timeMs float64) (bool, float64) {
	if existing, ok := b.times[group]; ok {
		return false, existing
	}
	b.times[group] = timeMs
	return true, timeMs
}

// Get returns the baseline of group.
func (b *BaselineIndex) Get(group int64) (float64, bool) {
	v, ok := b.times[group]
	return v, ok
}

// Len returns the number of groups with a baseline.
func (b *BaselineIndex) Len() int {
	return len(b.times)
}
