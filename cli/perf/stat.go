package perf

// stat.go contains utilities for wrapping benchmark runs with perf stat and
// reading the counters back from the run output.

import (
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"
)

// FieldSeparator is passed to perf stat -x. Counters are then printed as
// value,unit,event,... lines on stderr.
const FieldSeparator = ","

// StatOptions contains options for perf stat command.
type StatOptions struct {
	Events []string // Events to measure
	Detail bool     // Add detailed statistics (-d flag)
}

// Counter is one perf stat counter of a run.
type Counter struct {
	Event string  `json:"event"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

// BuildStatArgs builds the perf stat arguments that precede the measured
// command.
func BuildStatArgs(opts StatOptions) []string {
	args := []string{"stat", "-x", FieldSeparator}

	// Add detailed statistics flag
	if opts.Detail {
		args = append(args, "-d")
	}

	for _, event := range opts.Events {
		if event = strings.TrimSpace(event); event != "" {
			args = append(args, "-e", event)
		}
	}

	return append(args, "--")
}

// WrapTemplate prefixes a complete command template with perf stat. The
// template placeholders are left untouched.
func WrapTemplate(template []string, opts StatOptions) []string {
	wrapped := []string{"perf"}
	wrapped = append(wrapped, BuildStatArgs(opts)...)
	return append(wrapped, template...)
}

// ParseStat extracts the counters from run output. Lines that are not perf
// stat records, and counters perf could not read, are ignored.
func ParseStat(output string) []Counter {
	var counters []Counter
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Split(strings.TrimSpace(line), FieldSeparator)
		if len(fields) < 3 {
			continue
		}
		event := strings.TrimSpace(fields[2])
		if event == "" {
			continue
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
		if err != nil {
			// <not counted>, <not supported> or unrelated output
			continue
		}
		counters = append(counters, Counter{
			Event: event,
			Value: value,
			Unit:  strings.TrimSpace(fields[1]),
		})
	}
	return counters
}

// StatEventFlag returns the event flag for perf stat (multiple events).
func StatEventFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:    "event",
		Aliases: []string{"e"},
		Usage:   "Event to measure with --perf-stat (can be specified multiple times)",
	}
}

// StatDetailFlag returns the detail flag for perf stat.
func StatDetailFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "detail",
		Usage: "Add detailed statistics to --perf-stat (-d flag to perf)",
	}
}
