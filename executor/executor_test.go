package executor

import (
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/perfgo/perfsweep/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helperEnv = "PERFSWEEP_HELPER_PROCESS"

// TestHelperProcess is not a real test. It is re-executed by the tests below
// as a fake benchmark binary.
func TestHelperProcess(t *testing.T) {
	if os.Getenv(helperEnv) != "1" {
		return
	}

	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) < 2 {
		os.Exit(2)
	}

	switch args[1] {
	case "emit":
		fmt.Println("Vector size: 1000, Parallel sort threads: 2")
		fmt.Println("DATAPOINT: 1000 2 1.5 1.2 0.8")
		os.Exit(0)
	case "fail":
		fmt.Println("DATAPOINT: 1000 2 1.5 1.2 0.8")
		fmt.Fprintln(os.Stderr, "Parallel sort FAILED!")
		os.Exit(3)
	case "sleep":
		fmt.Println("started")
		time.Sleep(10 * time.Second)
		fmt.Println("DATAPOINT: 1000 2 1.5 1.2 0.8")
		os.Exit(0)
	case "args":
		fmt.Println(strings.Join(args[2:], ","))
		os.Exit(0)
	}
	os.Exit(2)
}

func helperExecutor() *Executor {
	return New(zerolog.Nop(), WithEnv(append(os.Environ(), helperEnv+"=1")))
}

func helperArgs(mode string, extra ...string) []string {
	return append([]string{"-test.run=TestHelperProcess", "--", mode}, extra...)
}

func TestExecute_Success(t *testing.T) {
	cfg := model.Configuration{Parallelism: 2, ProblemSize: 1000}
	outcome := helperExecutor().Execute(cfg, os.Args[0], helperArgs("emit"), 30*time.Second)

	require.Equal(t, model.ExitSuccess, outcome.Status.Kind)
	require.True(t, outcome.Succeeded())
	assert.Equal(t, cfg, outcome.Configuration)
	assert.Contains(t, outcome.Stdout, "DATAPOINT: 1000 2 1.5 1.2 0.8")
	assert.Positive(t, outcome.WallClock)
	assert.Contains(t, outcome.CommandLine, "TestHelperProcess")
}

func TestExecute_NonZeroExitKeepsOutput(t *testing.T) {
	outcome := helperExecutor().Execute(model.Configuration{Parallelism: 1}, os.Args[0], helperArgs("fail"), 30*time.Second)

	require.Equal(t, model.ExitNonZero, outcome.Status.Kind)
	assert.Equal(t, 3, outcome.Status.Code)
	assert.Contains(t, outcome.Stdout, "DATAPOINT:")
	assert.Contains(t, outcome.Stderr, "FAILED")
	assert.Equal(t, "non-zero-exit(3)", outcome.Status.String())
}

func TestExecute_TimedOut(t *testing.T) {
	start := time.Now()
	outcome := helperExecutor().Execute(model.Configuration{Parallelism: 1}, os.Args[0], helperArgs("sleep"), 2*time.Second)

	require.Equal(t, model.ExitTimedOut, outcome.Status.Kind)
	assert.Less(t, time.Since(start), 8*time.Second)
	assert.Contains(t, outcome.Stdout, "started")
	assert.NotContains(t, outcome.Stdout, "DATAPOINT:")
}

func TestExecute_LaunchFailed(t *testing.T) {
	outcome := helperExecutor().Execute(model.Configuration{Parallelism: 1}, "/nonexistent/perfsweep-benchmark", nil, time.Second)

	require.Equal(t, model.ExitLaunchFailed, outcome.Status.Kind)
	assert.NotEmpty(t, outcome.Status.Cause)
	assert.Empty(t, outcome.Stdout)
}

func TestExecute_ArgumentOrder(t *testing.T) {
	path, args, err := BuildArgs([]string{os.Args[0], "-test.run=TestHelperProcess", "--", "args", "{parallelism}", "{size}", "{extra}"},
		model.Configuration{Parallelism: 4, ProblemSize: 500, ExtraParams: []string{"1e-8", "0.01"}})
	require.NoError(t, err)

	outcome := helperExecutor().Execute(model.Configuration{Parallelism: 4, ProblemSize: 500}, path, args, 30*time.Second)
	require.True(t, outcome.Succeeded())
	assert.Equal(t, "4,500,1e-8,0.01\n", outcome.Stdout)
}
