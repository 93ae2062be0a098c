package cli

// This file contains sweep recording functionality for saving datasets,
// run output and reports to the history directory.

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/perfgo/perfsweep/cli/perf"
	"github.com/perfgo/perfsweep/executor"
	"github.com/perfgo/perfsweep/history"
	"github.com/perfgo/perfsweep/model"
	"github.com/perfgo/perfsweep/report"
	"github.com/perfgo/perfsweep/sweep"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const (
	outputDir      = "output"
	profileFile    = "workers.pb.gz"
	metricsFile    = "metrics.prom"
	perfStatSuffix = "-perfstat.json"
)

// statRecord holds the perf stat counters of one run.
type statRecord struct {
	Configuration model.Configuration `json:"configuration"`
	Attempt       int                 `json:"attempt"`
	Counters      []perf.Counter      `json:"counters"`
}

// recorder writes everything a sweep produces into its history directory.
type recorder struct {
	logger     zerolog.Logger
	dir        string
	history    *model.History
	keepOutput bool
	perfStat   bool
	plots      bool

	runs     map[string]int
	stats    map[string][]statRecord
	datasets []model.Dataset
	failures []model.Failure
}

func newRecorder(logger zerolog.Logger, dir string, h *model.History) (*recorder, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sweep directory: %w", err)
	}
	return &recorder{
		logger:  logger,
		dir:     dir,
		history: h,
		plots:   true,
		runs:    make(map[string]int),
		stats:   make(map[string][]statRecord),
	}, nil
}

// outcome is the sweep.OutcomeFunc of the recorder.
func (r *recorder) outcome(family string, attempt int, o model.RunOutcome) {
	r.runs[family]++

	if r.perfStat {
		if counters := perf.ParseStat(o.Stderr); len(counters) > 0 {
			r.stats[family] = append(r.stats[family], statRecord{
				Configuration: o.Configuration,
				Attempt:       attempt,
				Counters:      counters,
			})
		}
	}

	if !r.keepOutput {
		return
	}
	if err := os.MkdirAll(filepath.Join(r.dir, outputDir), 0755); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to create output directory")
		return
	}

	base := filepath.Join(outputDir, outputName(family, o.Configuration, attempt))
	for _, out := range []struct {
		suffix string
		typ    model.ArtifactType
		data   string
	}{
		{".stdout.txt", model.ArtifactTypeStdout, o.Stdout},
		{".stderr.txt", model.ArtifactTypeStderr, o.Stderr},
	} {
		if out.data == "" {
			continue
		}
		artifact, err := history.WriteFile(r.dir, base+out.suffix, out.typ, family, []byte(out.data))
		if err != nil {
			r.logger.Warn().Err(err).Msg("Failed to save run output")
			continue
		}
		r.history.Artifacts = append(r.history.Artifacts, artifact)
	}
}

// outputName names the stored output of one run.
func outputName(family string, cfg model.Configuration, attempt int) string {
	return fmt.Sprintf("%s-p%d-s%d-r%d", family, cfg.Parallelism, cfg.ProblemSize, attempt)
}

// saveFamily stores the dataset of a family with its CSV export, charts and
// perf stat counters, and adds the family to the sweep metadata.
func (r *recorder) saveFamily(f sweep.Family, ds *model.Dataset) error {
	artifact, err := history.SaveDataset(r.dir, *ds)
	if err != nil {
		return err
	}
	r.history.Artifacts = append(r.history.Artifacts, artifact)
	datasetFile := artifact.File

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, ds.Records); err != nil {
		return err
	}
	artifact, err = history.WriteFile(r.dir, ds.Family+".csv", model.ArtifactTypeDatasetCSV, ds.Family, buf.Bytes())
	if err != nil {
		return err
	}
	r.history.Artifacts = append(r.history.Artifacts, artifact)

	if r.plots {
		r.saveCharts(*ds)
	}

	if stats := r.stats[f.Name]; len(stats) > 0 {
		artifact, err := history.WriteJSON(r.dir, f.Name+perfStatSuffix, model.ArtifactTypePerfStat, f.Name, stats)
		if err != nil {
			r.logger.Warn().Err(err).Msg("Failed to save perf stat counters")
		} else {
			r.history.Artifacts = append(r.history.Artifacts, artifact)
		}
	}

	r.history.Families = append(r.history.Families, model.FamilySummary{
		Name:              f.Name,
		Command:           executor.CommandLine(f.Command[0], f.Command[1:]),
		ParallelismLevels: f.Grid.ParallelismLevels,
		ProblemSizes:      f.Grid.ProblemSizes,
		Schemas:           schemaNames(f),
		Repeat:            f.Repeat,
		Timeout:           f.Timeout,
		Runs:              r.runs[f.Name],
		Records:           len(ds.Records),
		Failures:          len(ds.Failures),
		DatasetFile:       datasetFile,
	})
	r.datasets = append(r.datasets, *ds)
	r.failures = append(r.failures, ds.Failures...)
	return nil
}

// saveCharts renders the charts of a dataset. Chart errors do not fail the
// sweep.
func (r *recorder) saveCharts(ds model.Dataset) {
	names, err := report.WriteCharts(r.dir, ds)
	if err != nil {
		r.logger.Warn().Err(err).Str("family", ds.Family).Msg("Failed to render charts")
	}
	for _, name := range names {
		info, err := os.Stat(filepath.Join(r.dir, name))
		if err != nil {
			continue
		}
		r.history.Artifacts = append(r.history.Artifacts, model.Artifact{
			Type:   model.ArtifactTypeChart,
			Family: ds.Family,
			Size:   uint64(info.Size()),
			File:   name,
		})
	}
}

// finish writes the artifacts that span all families and the sweep metadata.
func (r *recorder) finish(gatherer prometheus.Gatherer, extraMetricsFile string) error {
	var buf bytes.Buffer
	err := report.WriteWorkerProfile(&buf, r.datasets...)
	switch {
	case errors.Is(err, report.ErrNothingToPlot):
	case err != nil:
		r.logger.Warn().Err(err).Msg("Failed to build worker profile")
	default:
		artifact, err := history.WriteFile(r.dir, profileFile, model.ArtifactTypeWorkerProfile, "", buf.Bytes())
		if err != nil {
			return err
		}
		r.history.Artifacts = append(r.history.Artifacts, artifact)
	}

	artifact, err := history.WriteJSON(r.dir, history.FailuresFile, model.ArtifactTypeFailures, "", nonNil(r.failures))
	if err != nil {
		return err
	}
	r.history.Artifacts = append(r.history.Artifacts, artifact)

	if err := r.writeMetrics(gatherer, extraMetricsFile); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to write metrics")
	}

	if err := history.SaveHistory(r.dir, r.history); err != nil {
		return err
	}

	r.logger.Debug().Str("dir", r.dir).Str("id", r.history.ID).Msg("Recorded sweep")
	return nil
}

func (r *recorder) writeMetrics(gatherer prometheus.Gatherer, extraMetricsFile string) error {
	path := filepath.Join(r.dir, metricsFile)
	if err := prometheus.WriteToTextfile(path, gatherer); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	if info, err := os.Stat(path); err == nil {
		r.history.Artifacts = append(r.history.Artifacts, model.Artifact{
			Type: model.ArtifactTypeMetrics,
			Size: uint64(info.Size()),
			File: metricsFile,
		})
	}

	if extraMetricsFile != "" {
		if err := prometheus.WriteToTextfile(extraMetricsFile, gatherer); err != nil {
			return fmt.Errorf("failed to write metrics to %s: %w", extraMetricsFile, err)
		}
	}
	return nil
}

func schemaNames(f sweep.Family) []string {
	names := make([]string, 0, len(f.Schemas))
	for _, s := range f.Schemas {
		names = append(names, s.Name)
	}
	return names
}

func nonNil(failures []model.Failure) []model.Failure {
	if failures == nil {
		return []model.Failure{}
	}
	return failures
}
