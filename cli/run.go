package cli

// This file contains the run command which sweeps benchmark families and
// records the results in the history.

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/perfgo/perfsweep/cli/perf"
	"github.com/perfgo/perfsweep/cli/ssh"
	"github.com/perfgo/perfsweep/executor"
	"github.com/perfgo/perfsweep/history"
	"github.com/perfgo/perfsweep/model"
	"github.com/perfgo/perfsweep/sweep"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
)

func (a *App) run(ctx *cli.Context) error {
	def, err := a.loadSweep(ctx)
	if err != nil {
		return err
	}

	resultsDir := ctx.String("results-dir")
	if resultsDir == "" {
		resultsDir = def.resultsDir
	}
	root, err := history.ResultsRoot(resultsDir)
	if err != nil {
		return err
	}

	h := &model.History{
		ID:        newSweepID(),
		Timestamp: time.Now(),
		Args:      os.Args,
	}
	a.fillGitInfo(h)

	runner, target, closeRunner, err := a.newRunner(ctx)
	if err != nil {
		return err
	}
	defer closeRunner()
	h.Target = target

	rec, err := newRecorder(a.logger, history.DirFor(root, h), h)
	if err != nil {
		return err
	}
	rec.keepOutput = ctx.Bool("keep-output")
	rec.perfStat = ctx.Bool("perf-stat")
	rec.plots = !ctx.Bool("no-plots")

	reg := prometheus.NewRegistry()
	planner := sweep.New(a.logger, runner,
		sweep.WithMetrics(sweep.NewMetrics(reg)),
		sweep.WithOutcomeFunc(rec.outcome),
	)

	statOpts := perf.StatOptions{
		Events: ctx.StringSlice("event"),
		Detail: ctx.Bool("detail"),
	}

	a.logger.Info().
		Str("id", h.ID[:8]).
		Int("families", len(def.families)).
		Msg("Starting sweep")

	var errs []error
	for _, f := range def.families {
		if rec.perfStat {
			f.Command = perf.WrapTemplate(f.Template(), statOpts)
		}

		ds, err := planner.Run(f)
		if err != nil {
			a.logger.Error().Err(err).Str("family", f.Name).Msg("Sweep failed")
			errs = append(errs, err)
		}
		if ds == nil {
			continue
		}

		if err := rec.saveFamily(f, ds); err != nil {
			return fmt.Errorf("failed to record sweep: %w", err)
		}
		if err := printDataset(os.Stdout, *ds); err != nil {
			return err
		}
	}

	h.Duration = time.Since(h.Timestamp)
	if err := rec.finish(reg, ctx.String("metrics-file")); err != nil {
		return fmt.Errorf("failed to record sweep: %w", err)
	}

	printFailureSummary(os.Stdout, rec.failures)
	fmt.Printf("\nSweep %s recorded in %s\n", h.ID[:8], rec.dir)

	return errors.Join(errs...)
}

// newSweepID returns 16 random bytes, hex encoded.
func newSweepID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// newRunner returns the runner of the sweep: local processes, or processes on
// the remote host after syncing the working tree there.
func (a *App) newRunner(ctx *cli.Context) (sweep.Runner, *model.Target, func(), error) {
	var opts []executor.Option
	if ctx.Bool("show-output") {
		opts = append(opts, executor.WithOutput(os.Stdout, os.Stderr))
	}
	exec := executor.New(a.logger, opts...)

	host := ctx.String("remote-host")
	if host == "" {
		hostname, _ := os.Hostname()
		target := &model.Target{
			Hostname: hostname,
			OS:       runtime.GOOS,
			Arch:     runtime.GOARCH,
			CPUs:     runtime.NumCPU(),
		}
		return exec, target, func() {}, nil
	}

	var sshOpts []ssh.SSHOption
	if identity := ctx.String("ssh-identity"); identity != "" {
		sshOpts = append(sshOpts, ssh.WithIdentityFile(identity))
	}
	if options := ctx.StringSlice("ssh-option"); len(options) > 0 {
		sshOpts = append(sshOpts, ssh.WithExtraOptions(options...))
	}

	client, err := ssh.New(a.logger, host, sshOpts...)
	if err != nil {
		return nil, nil, nil, err
	}

	target, dir, err := a.prepareRemote(client)
	if err != nil {
		client.Close()
		return nil, nil, nil, err
	}

	a.logger.Info().
		Str("host", host).
		Str("dir", dir).
		Str("os", target.OS).
		Str("arch", target.Arch).
		Int("cpus", target.CPUs).
		Msg("Running benchmarks on remote host")

	return ssh.NewRunner(client, exec, dir), target, client.Close, nil
}

func (a *App) prepareRemote(client *ssh.Client) (*model.Target, string, error) {
	osName, arch, err := client.DetectSystem()
	if err != nil {
		return nil, "", err
	}
	hostname, cpus, err := client.Hostname()
	if err != nil {
		return nil, "", err
	}

	baseDir, err := client.GetRemoteRepositoryDir()
	if err != nil {
		return nil, "", err
	}
	dir, err := client.SyncDirectoryToRemote(baseDir)
	if err != nil {
		return nil, "", fmt.Errorf("failed to sync working tree: %w", err)
	}

	target := &model.Target{
		Hostname:   hostname,
		RemoteHost: client.Host(),
		OS:         osName,
		Arch:       arch,
		CPUs:       cpus,
	}
	return target, dir, nil
}
