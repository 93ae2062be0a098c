package cli

// This file contains the translation of the run command line into the
// benchmark families to sweep.

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/perfgo/perfsweep/config"
	"github.com/perfgo/perfsweep/sweep"
	"github.com/perfgo/perfsweep/tagparse"
	"github.com/urfave/cli/v2"
)

// sweepDefinition is what a run sweeps, either from a config file or from
// flags.
type sweepDefinition struct {
	families   []sweep.Family
	resultsDir string
}

func (a *App) loadSweep(ctx *cli.Context) (*sweepDefinition, error) {
	command := removeFirstDashDash(ctx.Args().Slice())

	if path := ctx.String("config"); path != "" {
		if len(command) > 0 {
			return nil, fmt.Errorf("a command cannot be combined with --config")
		}

		cfg, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		families, err := cfg.SweepFamilies()
		if err != nil {
			return nil, err
		}

		a.logger.Debug().Str("config", path).Int("families", len(families)).Msg("Loaded sweep configuration")
		return &sweepDefinition{families: families, resultsDir: resolveResultsDir(path, cfg.ResultsDir)}, nil
	}

	family, err := inlineFamily(ctx, command)
	if err != nil {
		return nil, err
	}
	return &sweepDefinition{families: []sweep.Family{family}}, nil
}

// resolveResultsDir makes a relative results directory of a config file
// relative to the file's location.
func resolveResultsDir(configPath, dir string) string {
	if dir == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(filepath.Dir(configPath), dir)
}

// inlineFamily builds a single family from the run flags.
func inlineFamily(ctx *cli.Context, command []string) (sweep.Family, error) {
	if len(command) == 0 {
		return sweep.Family{}, fmt.Errorf("no benchmark command given (use -- COMMAND or --config)")
	}

	schemas, err := tagparse.Resolve(ctx.StringSlice("schema"), nil)
	if err != nil {
		return sweep.Family{}, err
	}

	name := ctx.String("name")
	if name == "" {
		name = familyName(command[0])
	}

	return sweep.Family{
		Name:    name,
		Command: command,
		Grid: sweep.Grid{
			ParallelismLevels: ctx.IntSlice("parallelism"),
			ProblemSizes:      ctx.Int64Slice("sizes"),
			ExtraParams:       ctx.StringSlice("extra"),
		},
		Schemas: schemas,
		Timeout: ctx.Duration("timeout"),
		Repeat:  ctx.Int("repeat"),
	}, nil
}

// familyName derives a family name from the executable.
func familyName(executable string) string {
	name := filepath.Base(executable)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "benchmark"
	}
	return name
}
