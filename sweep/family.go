package sweep

import (
	"fmt"
	"strings"
	"time"

	"github.com/perfgo/perfsweep/executor"
	"github.com/perfgo/perfsweep/tagparse"
)

// Family is one benchmark program swept over a grid.
type Family struct {
	Name string
	// Command template: executable followed by arguments that may use the
	// {parallelism}, {size} and {extra} placeholders
	Command []string
	Grid    Grid
	// Schemas applied to the output of every run, in order
	Schemas []tagparse.Schema
	// Zero disables the run timeout
	Timeout time.Duration
	// Runs per configuration; values below 1 mean 1
	Repeat int
}

// Validate checks that the family can be swept.
func (f Family) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("%w: family without name", ErrInvalidGrid)
	}
	if len(f.Command) == 0 || strings.TrimSpace(f.Command[0]) == "" {
		return fmt.Errorf("%w: family %s has no command", ErrInvalidGrid, f.Name)
	}
	if len(f.Schemas) == 0 {
		return fmt.Errorf("%w: family %s has no schemas", ErrInvalidGrid, f.Name)
	}
	if f.Timeout < 0 {
		return fmt.Errorf("%w: family %s has a negative timeout", ErrInvalidGrid, f.Name)
	}
	if err := f.Grid.Validate(); err != nil {
		return fmt.Errorf("family %s: %w", f.Name, err)
	}
	return nil
}

// Template returns the command template with default arguments filled in
// when only the executable is given. Families without a size axis do not
// receive a problem size argument.
func (f Family) Template() []string {
	if len(f.Command) > 1 {
		return f.Command
	}

	template := append([]string(nil), f.Command...)
	for _, arg := range executor.DefaultArgs {
		if arg == executor.PlaceholderSize && len(f.Grid.ProblemSizes) == 0 {
			continue
		}
		template = append(template, arg)
	}
	return template
}

func (f Family) repeat() int {
	if f.Repeat < 1 {
		return 1
	}
	return f.Repeat
}

func (f Family) schemaNames() []string {
	names := make([]string, 0, len(f.Schemas))
	for _, s := range f.Schemas {
		names = append(names, s.Name)
	}
	return names
}
