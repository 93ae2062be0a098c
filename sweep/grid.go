package sweep

// grid.go contains the parameter grid of a family and its enumeration order.

import (
	"errors"
	"fmt"
	"sort"

	"github.com/perfgo/perfsweep/model"
)

var (
	// ErrInvalidGrid is returned when a family cannot be swept at all.
	ErrInvalidGrid = errors.New("invalid grid")
	// ErrNoSuccessfulLaunch is returned when no configuration of a family
	// could be started. The dataset is still returned.
	ErrNoSuccessfulLaunch = errors.New("no configuration could be launched")
)

// Grid is the Cartesian product of the parameter axes of a family. Problem
// sizes are the outer (grouping) axis, parallelism levels the inner one.
type Grid struct {
	ParallelismLevels []int
	// Empty means the family has no size axis and all runs share group 0
	ProblemSizes []int64
	ExtraParams  []string
}

// Validate checks that the grid has at least one parallelism level, that all
// values are in range and that no value is repeated.
func (g Grid) Validate() error {
	if len(g.ParallelismLevels) == 0 {
		return fmt.Errorf("%w: no parallelism levels", ErrInvalidGrid)
	}

	seen := make(map[int]bool, len(g.ParallelismLevels))
	for _, p := range g.ParallelismLevels {
		if p < 1 {
			return fmt.Errorf("%w: parallelism level %d is below 1", ErrInvalidGrid, p)
		}
		if seen[p] {
			return fmt.Errorf("%w: duplicate parallelism level %d", ErrInvalidGrid, p)
		}
		seen[p] = true
	}

	seenSize := make(map[int64]bool, len(g.ProblemSizes))
	for _, s := range g.ProblemSizes {
		if s < 0 {
			return fmt.Errorf("%w: negative problem size %d", ErrInvalidGrid, s)
		}
		if seenSize[s] {
			return fmt.Errorf("%w: duplicate problem size %d", ErrInvalidGrid, s)
		}
		seenSize[s] = true
	}

	return nil
}

// Groups returns the group keys of the grid in ascending order.
func (g Grid) Groups() []int64 {
	if len(g.ProblemSizes) == 0 {
		return []int64{0}
	}
	groups := append([]int64(nil), g.ProblemSizes...)
	sort.Slice(groups, func(i, j int) bool { return groups[i] < groups[j] })
	return groups
}

// Configurations enumerates the grid: problem size ascending, then
// parallelism ascending, so a parallelism 1 run is attempted before the rest
// of its group.
func (g Grid) Configurations() ([]model.Configuration, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	levels := append([]int(nil), g.ParallelismLevels...)
	sort.Ints(levels)

	var configs []model.Configuration
	for _, size := range g.Groups() {
		for _, p := range levels {
			configs = append(configs, model.Configuration{
				Parallelism: p,
				ProblemSize: size,
				ExtraParams: append([]string(nil), g.ExtraParams...),
			})
		}
	}
	return configs, nil
}

// Len returns the number of configurations of the grid.
func (g Grid) Len() int {
	return len(g.Groups()) * len(g.ParallelismLevels)
}
