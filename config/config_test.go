package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfgo/perfsweep/tagparse"
)

const sweepFile = `
timeout_seconds: 60
repeat: 2
results_dir: results
custom_schemas:
  - name: latency
    marker: "LATENCY_US:"
    kind: timing
    scale: 0.001
    fields:
      - {name: bytes, role: size}
      - {name: latency_us, role: time}
families:
  - name: sort
    command: [./sort]
    parallelism_levels: [1, 2, 4, 8]
    problem_sizes: [100000, 1000000]
    schemas: [sort]
  - name: pingpong
    command: [mpiexec, -n, "{parallelism}", ./pingpong, "{size}"]
    parallelism_levels: [2]
    problem_sizes: [8, 1024]
    schemas: [latency]
    timeout_seconds: 5
    repeat: 10
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sweepFile))
	require.NoError(t, err)

	assert.Equal(t, 60.0, cfg.TimeoutSeconds)
	assert.Equal(t, "results", cfg.ResultsDir)
	require.Len(t, cfg.Families, 2)

	families, err := cfg.SweepFamilies()
	require.NoError(t, err)
	require.Len(t, families, 2)

	sort := families[0]
	assert.Equal(t, "sort", sort.Name)
	assert.Equal(t, time.Minute, sort.Timeout)
	assert.Equal(t, 2, sort.Repeat)
	assert.Equal(t, []int{1, 2, 4, 8}, sort.Grid.ParallelismLevels)
	assert.Equal(t, []int64{100000, 1000000}, sort.Grid.ProblemSizes)
	require.Len(t, sort.Schemas, 1)
	assert.Equal(t, "DATAPOINT:", sort.Schemas[0].Marker)

	pp := families[1]
	assert.Equal(t, 5*time.Second, pp.Timeout)
	assert.Equal(t, 10, pp.Repeat)
	require.Len(t, pp.Schemas, 1)
	assert.Equal(t, "LATENCY_US:", pp.Schemas[0].Marker)
	assert.Equal(t, tagparse.KindTiming, pp.Schemas[0].Kind)
	assert.Equal(t, tagparse.RoleSize, pp.Schemas[0].Fields[0].Role)
	assert.Equal(t, 0.001, pp.Schemas[0].Scale)
	assert.NoError(t, pp.Validate())
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", ``},
		{"no families", `timeout_seconds: 1`},
		{"unknown key", "families:\n  - name: a\n    command: [./a]\n    parallelism_levels: [1]\n    schemas: [sort]\n    thread: 4\n"},
		{"zero parallelism", "families:\n  - name: a\n    command: [./a]\n    parallelism_levels: [0, 1]\n    schemas: [sort]\n"},
		{"duplicate parallelism", "families:\n  - name: a\n    command: [./a]\n    parallelism_levels: [1, 1]\n    schemas: [sort]\n"},
		{"no command", "families:\n  - name: a\n    parallelism_levels: [1]\n    schemas: [sort]\n"},
		{"unknown schema", "families:\n  - name: a\n    command: [./a]\n    parallelism_levels: [1]\n    schemas: [nope]\n"},
		{"duplicate family", "families:\n  - name: a\n    command: [./a]\n    parallelism_levels: [1]\n    schemas: [sort]\n  - name: a\n    command: [./b]\n    parallelism_levels: [1]\n    schemas: [sort]\n"},
		{"negative timeout", "timeout_seconds: -1\nfamilies:\n  - name: a\n    command: [./a]\n    parallelism_levels: [1]\n    schemas: [sort]\n"},
		{"bad role", "custom_schemas:\n  - name: x\n    marker: 'X:'\n    kind: timing\n    fields: [{name: t, role: duration}]\nfamilies:\n  - name: a\n    command: [./a]\n    parallelism_levels: [1]\n    schemas: [x]\n"},
		{"schema without time", "custom_schemas:\n  - name: x\n    marker: 'X:'\n    kind: timing\n    fields: [{name: t, role: aux}]\nfamilies:\n  - name: a\n    command: [./a]\n    parallelism_levels: [1]\n    schemas: [x]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweep.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sweepFile), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Families, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoad_ExampleSweep(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "examples", "sweep.yaml"))
	require.NoError(t, err)

	families, err := cfg.SweepFamilies()
	require.NoError(t, err)
	require.Len(t, families, 3)

	assert.Equal(t, "parallel-sort", families[0].Name)
	assert.Equal(t, 3, families[0].Repeat)
	assert.Equal(t, 2*time.Minute, families[0].Timeout)
	assert.Equal(t, 5, families[2].Repeat)
	assert.Equal(t, []string{"time-ms", "thread-time"}, []string{families[1].Schemas[0].Name, families[1].Schemas[1].Name})
}
