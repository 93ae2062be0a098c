package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/perfgo/perfsweep/cli/perf"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const AppName = "perfsweep"

type App struct {
	logger zerolog.Logger
	cli    *cli.App
}

func New() *App {

	// Set default log level to info
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	logger :=
		log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339Nano,
		})

	app := &App{
		logger: logger,
		cli: &cli.App{
			Name:  AppName,
			Usage: "Sweep parallel benchmarks over parallelism and problem size and compute speedup and efficiency",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "verbose",
					Usage: "Enable verbose (debug) logging",
				},
				&cli.StringFlag{
					Name:    "results-dir",
					Usage:   "Directory holding the sweep history (default: <git root>/.perfsweep)",
					EnvVars: []string{"PERFSWEEP_RESULTS_DIR"},
				},
			},
			Before: func(ctx *cli.Context) error {
				if ctx.Bool("verbose") {
					zerolog.SetGlobalLevel(zerolog.DebugLevel)
				}
				return nil
			},
		},
	}
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:      "run",
		Usage:     "Run a benchmark sweep and record it in the history",
		ArgsUsage: "[-- COMMAND [ARG...]]",
		Action:    app.run,
		Description: `Run a benchmark sweep.

The sweep is either read from a YAML file (--config) or described inline,
with the benchmark command given after "--". Arguments may use the
placeholders {parallelism}, {size} and {extra}. A command without
arguments receives parallelism, problem size and extra parameters in
that order.

Examples:
  perfsweep run --name sort -p 1,2,4,8 -s 100000,1000000 --schema sort -- ./sort
  perfsweep run --name pi -p 1,2,4 --schema mpi-time -- mpiexec -n {parallelism} ./pi
  perfsweep run --config sweep.yaml`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Sweep definition file (YAML)",
			},
			&cli.StringFlag{
				Name:  "name",
				Usage: "Family name of an inline sweep (default: base name of the executable)",
			},
			&cli.IntSliceFlag{
				Name:    "parallelism",
				Aliases: []string{"p"},
				Usage:   "Parallelism levels of an inline sweep",
			},
			&cli.Int64SliceFlag{
				Name:    "sizes",
				Aliases: []string{"s"},
				Usage:   "Problem sizes of an inline sweep",
			},
			&cli.StringSliceFlag{
				Name:  "extra",
				Usage: "Extra parameters passed after parallelism and size",
			},
			&cli.StringSliceFlag{
				Name:  "schema",
				Usage: "Output schemas to parse (see 'perfsweep schemas')",
				Value: cli.NewStringSlice("time-ms"),
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Timeout of a single run, zero disables it",
				Value: 10 * time.Minute,
			},
			&cli.IntFlag{
				Name:  "repeat",
				Usage: "Runs per configuration",
				Value: 1,
			},
			&cli.BoolFlag{
				Name:  "show-output",
				Usage: "Mirror benchmark output to the terminal",
			},
			&cli.BoolFlag{
				Name:  "keep-output",
				Usage: "Store stdout and stderr of every run in the history",
			},
			&cli.BoolFlag{
				Name:  "no-plots",
				Usage: "Do not render charts",
			},
			&cli.StringFlag{
				Name:  "metrics-file",
				Usage: "Write run metrics in Prometheus text format to this file",
			},
			&cli.StringFlag{
				Name:  "remote-host",
				Usage: "SSH host to run the benchmarks on (the working tree is synced first)",
			},
			&cli.StringFlag{
				Name:  "ssh-identity",
				Usage: "Identity file for --remote-host",
			},
			&cli.StringSliceFlag{
				Name:  "ssh-option",
				Usage: "Extra ssh -o option for --remote-host (can be specified multiple times)",
			},
			&cli.BoolFlag{
				Name:  "perf-stat",
				Usage: "Wrap every run with perf stat and store the counters in the history",
			},
			perf.StatEventFlag(),
			perf.StatDetailFlag(),
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "list",
		Usage:  "List previous sweeps",
		Action: app.list,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "family",
				Aliases: []string{"f"},
				Usage:   "Only show sweeps containing this family",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Limit number of results (default: 20)",
				Value:   20,
			},
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:      "view",
		Usage:     "View the datasets of a sweep from history",
		ArgsUsage: "[ID|INDEX] [-- PPROF ARGS]",
		Action:    app.view,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "profile",
				Usage: "Open the per-worker profile with go tool pprof",
			},
			&cli.BoolFlag{
				Name:  "failures",
				Usage: "List every failure instead of a summary",
			},
		},
		Description: `View a sweep from history.

Arguments:
  0           View last sweep (default)
  -1          View 2nd last sweep
  -2          View 3rd last sweep
  <hex-id>    View sweep matching the hex ID prefix

Examples:
  perfsweep view                      # View last sweep
  perfsweep view -- -1                # View 2nd last sweep
  perfsweep view abc123               # View sweep with ID starting with abc123
  perfsweep view --profile 0 -top     # Rank workers of the last sweep by time`,
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:      "export",
		Usage:     "Merge the datasets of one or more sweeps and write them as CSV or JSON",
		ArgsUsage: "ID|INDEX...",
		Action:    app.export,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format: csv or json",
				Value: "csv",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file (default: stdout)",
			},
			&cli.StringFlag{
				Name:    "family",
				Aliases: []string{"f"},
				Usage:   "Only export this family",
			},
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "schemas",
		Usage:  "List the builtin output schemas",
		Action: app.schemas,
	})
	return app
}

func (a *App) Run(args []string) error {
	return a.cli.Run(args)
}

// SetVersion sets the version information for the CLI application
func (a *App) SetVersion(version, commit, date string) {
	a.cli.Version = version
	if commit != "none" && commit != "" && len(commit) >= 8 {
		a.cli.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit[:8], date)
	}
}
