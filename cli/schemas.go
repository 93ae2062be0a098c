package cli

// This file contains the schemas command listing the builtin output schemas.

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/perfgo/perfsweep/tagparse"
	"github.com/urfave/cli/v2"
)

func (a *App) schemas(ctx *cli.Context) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tLINE")

	for _, name := range tagparse.BuiltinNames() {
		s, _ := tagparse.Builtin(name)
		fmt.Fprintf(tw, "%s\t%s\t%s\n", bold(s.Name), s.Kind, schemaLine(s))
	}
	return tw.Flush()
}

// schemaLine renders the expected line layout of a schema, for example
// "TIME_MS: <time_ms:time>".
func schemaLine(s tagparse.Schema) string {
	parts := []string{s.Marker}
	for _, f := range s.Fields {
		parts = append(parts, fmt.Sprintf("<%s:%s>", f.Name, f.Role))
	}
	line := strings.Join(parts, " ")
	if s.Scale != 0 && s.Scale != 1 {
		line += fmt.Sprintf(" (x%g to ms)", s.Scale)
	}
	return line
}
