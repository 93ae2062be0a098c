// Package report renders sweep datasets for people and for other tools:
// CSV, text tables, charts, a per-worker balance summary and a pprof
// profile of per-worker times.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/perfgo/perfsweep/model"
)

// CSVHeader is the column layout of WriteCSV.
var CSVHeader = []string{
	"family",
	"group",
	"parallelism",
	"problem_size",
	"measured_time_ms",
	"stddev_ms",
	"samples",
	"speedup",
	"efficiency",
	"per_worker_ms",
	"aux_ms",
}

// WriteCSV writes one row per record. Absent speedup, efficiency and
// breakdown are written as empty cells; breakdown values are joined with ';'.
// Auxiliary times are written as name=value pairs sorted by name and joined
// with ';'.
func WriteCSV(w io.Writer, records []model.MetricRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, r := range records {
		if err := cw.Write(csvRow(r)); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func csvRow(r model.MetricRecord) []string {
	workers := make([]string, len(r.PerWorkerBreakdown))
	for i, v := range r.PerWorkerBreakdown {
		workers[i] = formatFloat(v)
	}

	return []string{
		r.Family,
		strconv.FormatInt(r.GroupKey, 10),
		strconv.Itoa(r.Configuration.Parallelism),
		strconv.FormatInt(r.Configuration.ProblemSize, 10),
		formatFloat(r.MeasuredTimeMs),
		formatFloat(r.StdDevMs),
		strconv.Itoa(r.Samples),
		formatOptional(r.Speedup),
		formatOptional(r.Efficiency),
		strings.Join(workers, ";"),
		formatAux(r.AuxTimes),
	}
}

func formatAux(aux map[string]float64) string {
	pairs := make([]string, 0, len(aux))
	for _, name := range auxNames(aux) {
		pairs = append(pairs, name+"="+formatFloat(aux[name]))
	}
	return strings.Join(pairs, ";")
}

func auxNames(aux map[string]float64) []string {
	names := make([]string, 0, len(aux))
	for name := range aux {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
