package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/perfgo/perfsweep/model"
	"github.com/perfgo/perfsweep/report"
)

// Sprint color functions for terminal output.
var (
	bold   = color.New(color.Bold).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
)

// statusMarker returns ✓ for sweeps without failures, a yellow ! for sweeps
// with failures and ✗ for sweeps that produced no records.
func statusMarker(records, failures int) string {
	switch {
	case records == 0:
		return red("✗")
	case failures > 0:
		return yellow("!")
	}
	return green("✓")
}

func printDataset(w io.Writer, ds model.Dataset) error {
	fmt.Fprintf(w, "\n%s\n", bold("=== "+ds.Family+" ==="))
	if len(ds.Records) == 0 {
		fmt.Fprintln(w, dim("no records"))
		return nil
	}
	return report.WriteTable(w, ds.Records)
}

// printFailureSummary prints the number of failures per kind.
func printFailureSummary(w io.Writer, failures []model.Failure) {
	if len(failures) == 0 {
		fmt.Fprintf(w, "\n%s\n", green("No failures"))
		return
	}

	counts := make(map[model.FailureKind]int)
	var kinds []model.FailureKind
	for _, f := range failures {
		if counts[f.Kind] == 0 {
			kinds = append(kinds, f.Kind)
		}
		counts[f.Kind]++
	}

	fmt.Fprintf(w, "\n%s\n", red(fmt.Sprintf("%d failures", len(failures))))
	for _, k := range kinds {
		fmt.Fprintf(w, "  %-18s %d\n", k, counts[k])
	}
}
