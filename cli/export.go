package cli

// This file contains the export command which merges the datasets of
// several sweeps and writes them as CSV or JSON.

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/perfgo/perfsweep/aggregate"
	"github.com/perfgo/perfsweep/history"
	"github.com/perfgo/perfsweep/model"
	"github.com/perfgo/perfsweep/report"
	"github.com/urfave/cli/v2"
)

func (a *App) export(ctx *cli.Context) error {
	format := ctx.String("format")
	if format != "csv" && format != "json" {
		return fmt.Errorf("unknown export format %q (use csv or json)", format)
	}

	args := ctx.Args().Slice()
	if len(args) == 0 {
		args = []string{"0"}
	}

	root, err := history.ResultsRoot(ctx.String("results-dir"))
	if err != nil {
		return err
	}
	historyEntries, err := history.LoadEntries(a.logger, root)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	var entries []*history.Entry
	for _, arg := range args {
		entry, err := history.Find(historyEntries, arg)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
	}

	datasets, err := mergeEntries(entries, ctx.String("family"))
	if err != nil {
		return err
	}
	if len(datasets) == 0 {
		return fmt.Errorf("no datasets to export")
	}

	w := io.Writer(os.Stdout)
	if path := ctx.String("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	a.logger.Debug().
		Int("sweeps", len(entries)).
		Int("families", len(datasets)).
		Str("format", format).
		Msg("Exporting datasets")

	return writeDatasets(w, format, datasets)
}

// mergeEntries merges the datasets of the entries family by family. Records
// of later entries replace records of earlier entries with the same key.
// Families keep the order in which they first appear.
func mergeEntries(entries []*history.Entry, family string) ([]model.Dataset, error) {
	var order []string
	merged := make(map[string]model.Dataset)

	for _, entry := range entries {
		datasets, err := entry.LoadDatasets()
		if err != nil {
			return nil, err
		}
		for _, ds := range datasets {
			if family != "" && ds.Family != family {
				continue
			}
			prev, ok := merged[ds.Family]
			if !ok {
				order = append(order, ds.Family)
				prev = model.Dataset{Family: ds.Family}
			}
			merged[ds.Family] = aggregate.Merge(prev, ds)
		}
	}

	out := make([]model.Dataset, 0, len(order))
	for _, name := range order {
		out = append(out, merged[name])
	}
	return out, nil
}

func writeDatasets(w io.Writer, format string, datasets []model.Dataset) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(datasets); err != nil {
			return fmt.Errorf("failed to encode datasets: %w", err)
		}
		return nil
	}

	var records []model.MetricRecord
	for _, ds := range datasets {
		records = append(records, ds.Records...)
	}
	return report.WriteCSV(w, records)
}
