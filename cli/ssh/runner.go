package ssh

// runner.go contains the remote benchmark runner.

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"al.essio.dev/pkg/shellescape"
	"github.com/perfgo/perfsweep/executor"
	"github.com/perfgo/perfsweep/model"
)

// Exit codes of timeout(1) and ssh.
const (
	exitTimeout  = 124
	exitKilled   = 137
	exitSSHError = 255
)

// launchMarker is written to stderr by the remote shell right before it
// execs the benchmark. Its absence means the run failed before launch, so
// the exit code belongs to ssh or the remote shell and not to the benchmark.
const launchMarker = "perfsweep: launching benchmark"

// DefaultGrace is added to the run timeout for the local ssh process, so the
// remote timeout(1) fires first and the remote process does not outlive the
// connection.
const DefaultGrace = 5 * time.Second

// Runner runs benchmark commands on the remote host in a fixed directory. It
// implements sweep.Runner.
type Runner struct {
	client *Client
	exec   *executor.Executor
	dir    string
	grace  time.Duration
}

// NewRunner creates a runner that executes commands in dir on the client's
// host. Output capture and mirroring are handled by exec.
func NewRunner(client *Client, exec *executor.Executor, dir string) *Runner {
	return &Runner{
		client: client,
		exec:   exec,
		dir:    dir,
		grace:  DefaultGrace,
	}
}

// Execute runs one benchmark invocation over the multiplexed connection and
// classifies the remote exit status.
func (r *Runner) Execute(cfg model.Configuration, path string, args []string, timeout time.Duration) model.RunOutcome {
	sshArgs := r.client.buildSSHArgs()
	sshArgs = append(sshArgs, r.client.host, RemoteCommand(r.dir, path, args, timeout))

	localTimeout := time.Duration(0)
	if timeout > 0 {
		localTimeout = timeout + r.grace
	}

	r.client.logger.Debug().
		Str("host", r.client.host).
		Str("dir", r.dir).
		Msg("Running benchmark on remote host")

	outcome := r.exec.Execute(cfg, "ssh", sshArgs, localTimeout)
	outcome.CommandLine = executor.CommandLine(path, args)
	return remoteOutcome(outcome, timeout)
}

// RemoteCommand builds the shell command run on the remote host. A positive
// timeout is enforced remotely with timeout(1). The launch marker is written
// to stderr once the working directory is entered.
func RemoteCommand(dir, path string, args []string, timeout time.Duration) string {
	command := executor.CommandLine(path, args)
	if timeout > 0 {
		secs := strconv.FormatFloat(timeout.Seconds(), 'f', -1, 64)
		command = fmt.Sprintf("timeout -s KILL %s %s", secs, command)
	}
	return fmt.Sprintf("cd %s && printf '%%s\\n' %s >&2 && exec %s",
		shellescape.Quote(dir), shellescape.Quote(launchMarker), command)
}

// remoteOutcome strips the launch marker from stderr and classifies the exit
// status. Without the marker a non-zero exit is a launch failure. With it the
// exit code is the benchmark's own, except for a kill by the remote
// timeout(1), which is told apart from a benchmark exiting 124 or 137 by the
// elapsed time.
func remoteOutcome(outcome model.RunOutcome, timeout time.Duration) model.RunOutcome {
	stderr, launched := stripLaunchMarker(outcome.Stderr)
	outcome.Stderr = stderr

	status := outcome.Status
	if status.Kind != model.ExitNonZero {
		return outcome
	}

	if !launched {
		cause := fmt.Sprintf("remote shell failed before launch (exit %d)", status.Code)
		if status.Code == exitSSHError {
			cause = "ssh connection failed"
		}
		outcome.Status = model.ExitStatus{Kind: model.ExitLaunchFailed, Cause: cause}
		return outcome
	}

	if (status.Code == exitTimeout || status.Code == exitKilled) && timeout > 0 && outcome.WallClock >= timeout {
		outcome.Status = model.ExitStatus{Kind: model.ExitTimedOut}
	}
	return outcome
}

// stripLaunchMarker removes the first marker line from stderr and reports
// whether it was present.
func stripLaunchMarker(stderr string) (string, bool) {
	line := launchMarker + "\n"
	i := strings.Index(stderr, line)
	if i < 0 {
		return stderr, false
	}
	return stderr[:i] + stderr[i+len(line):], true
}
