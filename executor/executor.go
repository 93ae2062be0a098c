// Package executor launches a single benchmark invocation, waits for it
// with a timeout and classifies how it ended.
package executor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"time"

	"github.com/perfgo/perfsweep/model"
	"github.com/rs/zerolog"
)

// defaultWaitDelay bounds how long Wait keeps reading output pipes after the
// process was killed, so a grandchild holding stdout open cannot hang a sweep.
const defaultWaitDelay = 2 * time.Second

// Executor runs benchmark processes. It is not safe for concurrent use and is
// not meant to be: runs are sequential by construction.
type Executor struct {
	logger    zerolog.Logger
	stdout    io.Writer
	stderr    io.Writer
	env       []string
	dir       string
	waitDelay time.Duration
}

// Option is a function that configures an Executor.
type Option func(*Executor)

// WithOutput mirrors the benchmark output to the given writers while it is
// being captured.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(e *Executor) {
		e.stdout = stdout
		e.stderr = stderr
	}
}

// WithEnv sets the environment of launched processes. Nil inherits the
// orchestrator environment.
func WithEnv(env []string) Option {
	return func(e *Executor) {
		e.env = env
	}
}

// WithDir sets the working directory of launched processes.
func WithDir(dir string) Option {
	return func(e *Executor) {
		e.dir = dir
	}
}

// New creates a new Executor.
func New(logger zerolog.Logger, opts ...Option) *Executor {
	e := &Executor{
		logger:    logger,
		waitDelay: defaultWaitDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs path with args and blocks until it exits or timeout elapses.
// A zero timeout disables the limit. Output is fully captured and returned
// with the outcome; it is never interpreted here.
func (e *Executor) Execute(cfg model.Configuration, path string, args []string, timeout time.Duration) model.RunOutcome {
	outcome := model.RunOutcome{
		Configuration: cfg,
		CommandLine:   CommandLine(path, args),
	}

	ctx := context.Background()
	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Env = e.env
	cmd.Dir = e.dir
	cmd.WaitDelay = e.waitDelay
	configureProcessGroup(cmd)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf
	if e.stdout != nil {
		cmd.Stdout = io.MultiWriter(e.stdout, &stdoutBuf)
	}
	if e.stderr != nil {
		cmd.Stderr = io.MultiWriter(e.stderr, &stderrBuf)
	}

	e.logger.Debug().
		Str("command", outcome.CommandLine).
		Dur("timeout", timeout).
		Msg("Starting benchmark run")

	start := time.Now()
	err := cmd.Run()
	outcome.WallClock = time.Since(start)
	outcome.Stdout = stdoutBuf.String()
	outcome.Stderr = stderrBuf.String()
	outcome.Status = classify(ctx, err)

	e.logger.Debug().
		Str("command", outcome.CommandLine).
		Stringer("status", outcome.Status).
		Dur("wall_clock", outcome.WallClock).
		Int("stdout_bytes", len(outcome.Stdout)).
		Msg("Benchmark run finished")

	return outcome
}

func classify(ctx context.Context, err error) model.ExitStatus {
	if err == nil {
		return model.ExitStatus{Kind: model.ExitSuccess}
	}

	// The deadline check comes first: a killed process also reports an ExitError.
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return model.ExitStatus{Kind: model.ExitTimedOut}
	}

	// Process exited cleanly but left its output pipes open past WaitDelay
	if errors.Is(err, exec.ErrWaitDelay) {
		return model.ExitStatus{Kind: model.ExitSuccess}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return model.ExitStatus{Kind: model.ExitNonZero, Code: exitErr.ExitCode()}
	}

	return model.ExitStatus{Kind: model.ExitLaunchFailed, Cause: err.Error()}
}
