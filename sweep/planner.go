// Package sweep drives a benchmark family over its parameter grid, one run
// at a time, and assembles the resulting dataset.
package sweep

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/perfgo/perfsweep/aggregate"
	"github.com/perfgo/perfsweep/executor"
	"github.com/perfgo/perfsweep/model"
	"github.com/perfgo/perfsweep/tagparse"
)

// Runner executes one benchmark invocation. *executor.Executor implements it.
type Runner interface {
	Execute(cfg model.Configuration, path string, args []string, timeout time.Duration) model.RunOutcome
}

// OutcomeFunc is called after every run, before its output is parsed.
// attempt counts repeats of the configuration from 1.
type OutcomeFunc func(family string, attempt int, outcome model.RunOutcome)

// Planner runs families strictly sequentially.
type Planner struct {
	logger    zerolog.Logger
	runner    Runner
	selector  aggregate.BaselineSelector
	metrics   *Metrics
	onOutcome OutcomeFunc
}

// Option is a function that configures a Planner.
type Option func(*Planner)

// WithBaselineSelector sets the rule that picks the baseline run of a group.
func WithBaselineSelector(selector aggregate.BaselineSelector) Option {
	return func(p *Planner) {
		if selector != nil {
			p.selector = selector
		}
	}
}

// WithMetrics records run metrics.
func WithMetrics(m *Metrics) Option {
	return func(p *Planner) {
		p.metrics = m
	}
}

// WithOutcomeFunc registers a callback receiving every run outcome.
func WithOutcomeFunc(fn OutcomeFunc) Option {
	return func(p *Planner) {
		p.onOutcome = fn
	}
}

// New creates a Planner that launches benchmarks through runner.
func New(logger zerolog.Logger, runner Runner, opts ...Option) *Planner {
	p := &Planner{
		logger:   logger,
		runner:   runner,
		selector: aggregate.SingleWorkerBaseline,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// configResult is what the runs of one configuration produced.
type configResult struct {
	points   []model.DataPoint
	failures []model.Failure
	// runs that started, whatever their exit status
	launched int
	// runs whose output was parsed
	parsed int
	// every attempt exited with status 0
	succeeded bool
}

// Run sweeps the family once and returns its dataset. Failures of single
// configurations are recorded in the dataset and never stop the sweep. The
// only errors are ErrInvalidGrid, returned before anything runs, and
// ErrNoSuccessfulLaunch, returned together with the (empty) dataset.
func (p *Planner) Run(family Family) (*model.Dataset, error) {
	if err := family.Validate(); err != nil {
		return nil, err
	}

	parser, err := tagparse.New(family.Schemas...)
	if err != nil {
		return nil, fmt.Errorf("%w: family %s: %v", ErrInvalidGrid, family.Name, err)
	}

	configs, err := family.Grid.Configurations()
	if err != nil {
		return nil, err
	}
	p.orderBaselineFirst(configs)

	template := family.Template()
	if _, _, err := executor.BuildArgs(template, configs[0]); err != nil {
		return nil, fmt.Errorf("%w: family %s: %v", ErrInvalidGrid, family.Name, err)
	}

	logger := p.logger.With().Str("family", family.Name).Logger()
	agg := aggregate.New(logger,
		aggregate.WithFamily(family.Name),
		aggregate.WithBaselineSelector(p.selector),
		aggregate.WithGroups(family.Grid.Groups()...),
	)

	logger.Info().
		Int("configurations", len(configs)).
		Int("repeat", family.repeat()).
		Strs("schemas", family.schemaNames()).
		Msg("Starting sweep")

	start := time.Now()
	dataset := &model.Dataset{Family: family.Name}
	launched := 0

	for i, cfg := range configs {
		group := cfg.ProblemSize
		cfgLogger := logger.With().
			Int("parallelism", cfg.Parallelism).
			Int64("problem_size", cfg.ProblemSize).
			Logger()

		cfgLogger.Info().
			Int("index", i+1).
			Int("total", len(configs)).
			Msg("Running configuration")

		result := p.runConfiguration(family, template, parser, cfg, logger)
		dataset.Failures = append(dataset.Failures, result.failures...)
		if result.launched > 0 {
			launched++
		}
		if result.parsed == 0 {
			continue
		}

		ingest := agg.Ingest
		if !result.succeeded {
			ingest = agg.IngestWithoutBaseline
		}
		records, err := ingest(group, cfg, result.points)
		if errors.Is(err, aggregate.ErrNoTiming) {
			cfgLogger.Warn().Msg("Run produced no timing data")
			dataset.Failures = append(dataset.Failures, p.failure(family, cfg, model.FailureNoData, "no timing line in output"))
			continue
		}
		if err != nil {
			cfgLogger.Error().Err(err).Msg("Failed to aggregate run")
			dataset.Failures = append(dataset.Failures, p.failure(family, cfg, model.FailureNoData, err.Error()))
			continue
		}

		for _, r := range records {
			if r.Configuration.Key() != cfg.Key() {
				continue
			}
			event := cfgLogger.Info().
				Float64("measured_time_ms", r.MeasuredTimeMs).
				Int("samples", r.Samples)
			if r.Speedup != nil {
				event = event.Float64("speedup", *r.Speedup).Float64("efficiency", *r.Efficiency)
			}
			event.Msg("Configuration measured")
		}
	}

	records, failures := agg.Finalize()
	dataset.Records = records
	dataset.Failures = append(dataset.Failures, failures...)
	for _, f := range failures {
		logFailure(logger, f)
	}
	p.metrics.setRecords(family.Name, len(records))

	logger.Info().
		Int("records", len(dataset.Records)).
		Int("failures", len(dataset.Failures)).
		Dur("duration", time.Since(start)).
		Msg("Sweep finished")

	if launched == 0 {
		return dataset, fmt.Errorf("family %s: %w", family.Name, ErrNoSuccessfulLaunch)
	}
	return dataset, nil
}

// runConfiguration runs one configuration family.Repeat times and parses the
// output of every run that was not killed.
func (p *Planner) runConfiguration(family Family, template []string, parser *tagparse.Parser, cfg model.Configuration, logger zerolog.Logger) configResult {
	result := configResult{succeeded: true}

	path, args, err := executor.BuildArgs(template, cfg)
	if err != nil {
		f := p.failure(family, cfg, model.FailureLaunchFailed, err.Error())
		logFailure(logger, f)
		result.failures = append(result.failures, f)
		return result
	}

	for attempt := 1; attempt <= family.repeat(); attempt++ {
		outcome := p.runner.Execute(cfg, path, args, family.Timeout)
		p.metrics.observeRun(family.Name, outcome)
		if p.onOutcome != nil {
			p.onOutcome(family.Name, attempt, outcome)
		}

		if outcome.Status.Kind != model.ExitSuccess {
			result.succeeded = false
		}

		switch outcome.Status.Kind {
		case model.ExitLaunchFailed:
			f := p.failure(family, cfg, model.FailureLaunchFailed, outcome.Status.Cause)
			logFailure(logger, f)
			result.failures = append(result.failures, f)
			// launching again cannot succeed
			return result
		case model.ExitTimedOut:
			result.launched++
			f := p.failure(family, cfg, model.FailureTimedOut, fmt.Sprintf("killed after %s", family.Timeout))
			logFailure(logger, f)
			result.failures = append(result.failures, f)
			return result
		case model.ExitNonZero:
			f := p.failure(family, cfg, model.FailureNonZeroExit, outcome.Status.String())
			logFailure(logger, f)
			result.failures = append(result.failures, f)
		}
		result.launched++

		parsed := parser.Parse(outcome)
		result.parsed++
		result.points = append(result.points, parsed.Points...)

		if len(parsed.Skipped) > 0 {
			p.metrics.observeSkipped(family.Name, len(parsed.Skipped))
			f := p.failure(family, cfg, model.FailureParseSkipped, skippedDetail(parsed.Skipped))
			for _, s := range parsed.Skipped {
				f.Lines = append(f.Lines, s.Line)
			}
			logger.Debug().
				Int("parallelism", cfg.Parallelism).
				Int64("problem_size", cfg.ProblemSize).
				Ints("lines", f.Lines).
				Str("reason", parsed.Skipped[0].Reason).
				Msg("Dropped malformed output lines")
			result.failures = append(result.failures, f)
		}
	}

	return result
}

// orderBaselineFirst moves the baseline configurations of every group ahead
// of the others, keeping the rest of the enumeration order.
func (p *Planner) orderBaselineFirst(configs []model.Configuration) {
	sort.SliceStable(configs, func(i, j int) bool {
		if configs[i].ProblemSize != configs[j].ProblemSize {
			return configs[i].ProblemSize < configs[j].ProblemSize
		}
		return p.selector(configs[i]) && !p.selector(configs[j])
	})
}

func (p *Planner) failure(family Family, cfg model.Configuration, kind model.FailureKind, detail string) model.Failure {
	c := cfg
	return model.Failure{
		Kind:          kind,
		Family:        family.Name,
		GroupKey:      cfg.ProblemSize,
		Configuration: &c,
		Detail:        detail,
	}
}

func logFailure(logger zerolog.Logger, f model.Failure) {
	event := logger.Warn().Str("kind", string(f.Kind)).Int64("group", f.GroupKey)
	if f.Configuration == nil {
		event.Str("detail", f.Detail).Msg("Group failed")
		return
	}
	event.
		Int("parallelism", f.Configuration.Parallelism).
		Int64("problem_size", f.Configuration.ProblemSize).
		Str("detail", f.Detail).
		Msg("Configuration failed")
}

func skippedDetail(skipped []tagparse.SkippedLine) string {
	if len(skipped) == 1 {
		return fmt.Sprintf("%s line %d: %s", skipped[0].Schema, skipped[0].Line, skipped[0].Reason)
	}
	return fmt.Sprintf("%d malformed lines, first: %s line %d: %s",
		len(skipped), skipped[0].Schema, skipped[0].Line, skipped[0].Reason)
}
