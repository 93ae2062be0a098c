package sweep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfgo/perfsweep/model"
)

func TestGrid_Configurations(t *testing.T) {
	g := Grid{
		ParallelismLevels: []int{8, 1, 4},
		ProblemSizes:      []int64{100000, 1000},
		ExtraParams:       []string{"1e-8"},
	}

	configs, err := g.Configurations()
	require.NoError(t, err)
	require.Len(t, configs, 6)
	assert.Equal(t, 6, g.Len())

	var keys []model.ConfigKey
	for _, c := range configs {
		keys = append(keys, c.Key())
		assert.Equal(t, []string{"1e-8"}, c.ExtraParams)
	}
	assert.Equal(t, []model.ConfigKey{
		{Parallelism: 1, ProblemSize: 1000},
		{Parallelism: 4, ProblemSize: 1000},
		{Parallelism: 8, ProblemSize: 1000},
		{Parallelism: 1, ProblemSize: 100000},
		{Parallelism: 4, ProblemSize: 100000},
		{Parallelism: 8, ProblemSize: 100000},
	}, keys)

	// input slices are left alone
	assert.Equal(t, []int{8, 1, 4}, g.ParallelismLevels)
	assert.Equal(t, []int64{100000, 1000}, g.ProblemSizes)

	// configurations do not share the extra params slice
	configs[0].ExtraParams[0] = "changed"
	assert.Equal(t, "1e-8", configs[1].ExtraParams[0])
}

func TestGrid_NoSizes(t *testing.T) {
	g := Grid{ParallelismLevels: []int{2, 1}}
	assert.Equal(t, []int64{0}, g.Groups())

	configs, err := g.Configurations()
	require.NoError(t, err)
	require.Len(t, configs, 2)
	assert.Equal(t, int64(0), configs[0].ProblemSize)
	assert.Equal(t, 1, configs[0].Parallelism)
}

func TestGrid_Validate(t *testing.T) {
	tests := []struct {
		name string
		grid Grid
	}{
		{"empty", Grid{}},
		{"zero", Grid{ParallelismLevels: []int{0}}},
		{"negative", Grid{ParallelismLevels: []int{-2}}},
		{"duplicate level", Grid{ParallelismLevels: []int{1, 2, 2}}},
		{"duplicate size", Grid{ParallelismLevels: []int{1}, ProblemSizes: []int64{5, 5}}},
		{"negative size", Grid{ParallelismLevels: []int{1}, ProblemSizes: []int64{-5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.grid.Validate(), ErrInvalidGrid)
		})
	}
}

func TestFamily_Template(t *testing.T) {
	f := Family{Command: []string{"./sort"}, Grid: Grid{ProblemSizes: []int64{10}}}
	assert.Equal(t, []string{"./sort", "{parallelism}", "{size}", "{extra}"}, f.Template())

	f = Family{Command: []string{"./integral"}}
	assert.Equal(t, []string{"./integral", "{parallelism}", "{extra}"}, f.Template())

	f = Family{Command: []string{"mpiexec", "-n", "{parallelism}", "./pi"}}
	assert.Equal(t, f.Command, f.Template())
}
