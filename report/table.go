package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/perfgo/perfsweep/model"
)

// WriteTable prints records as an aligned text table.
func WriteTable(w io.Writer, records []model.MetricRecord) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GROUP\tPARALLELISM\tTIME (ms)\tSTDDEV\tSAMPLES\tSPEEDUP\tEFFICIENCY\tIMBALANCE")

	for _, r := range records {
		imbalance := "-"
		if b, err := NewBalance(r.PerWorkerBreakdown); err == nil {
			imbalance = fmt.Sprintf("%.3f", b.Imbalance)
		}
		fmt.Fprintf(tw, "%d\t%d\t%.3f\t%.3f\t%d\t%s\t%s\t%s\n",
			r.GroupKey,
			r.Configuration.Parallelism,
			r.MeasuredTimeMs,
			r.StdDevMs,
			r.Samples,
			optional(r.Speedup),
			optional(r.Efficiency),
			imbalance,
		)
	}

	return tw.Flush()
}

// WriteFailures prints a summary of failures, grouped by kind.
func WriteFailures(w io.Writer, failures []model.Failure) error {
	if len(failures) == 0 {
		return nil
	}

	byKind := make(map[model.FailureKind][]model.Failure)
	for _, f := range failures {
		byKind[f.Kind] = append(byKind[f.Kind], f)
	}
	kinds := make([]string, 0, len(byKind))
	for k := range byKind {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tFAMILY\tGROUP\tPARALLELISM\tDETAIL")
	for _, k := range kinds {
		for _, f := range byKind[model.FailureKind(k)] {
			parallelism := "-"
			if f.Configuration != nil {
				parallelism = fmt.Sprint(f.Configuration.Parallelism)
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", f.Kind, f.Family, f.GroupKey, parallelism, oneLine(f.Detail))
		}
	}
	return tw.Flush()
}

func optional(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.3f", *v)
}

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > 80 {
		return s[:77] + "..."
	}
	return s
}
