package executor

// command.go contains utilities for expanding command templates into
// benchmark invocations.

import (
	"fmt"
	"strconv"
	"strings"

	"al.essio.dev/pkg/shellescape"
	"github.com/perfgo/perfsweep/model"
)

// Placeholders recognised in command templates.
const (
	PlaceholderParallelism = "{parallelism}"
	PlaceholderSize        = "{size}"
	// PlaceholderExtra must be a whole template element; it expands to all
	// extra parameters of the configuration.
	PlaceholderExtra = "{extra}"
)

// DefaultArgs is used when a template names only the executable: parallelism,
// then problem size, then the family specific parameters.
var DefaultArgs = []string{PlaceholderParallelism, PlaceholderSize, PlaceholderExtra}

// BuildArgs expands a command template for one configuration and returns the
// executable and its arguments.
func BuildArgs(template []string, cfg model.Configuration) (string, []string, error) {
	if len(template) == 0 || strings.TrimSpace(template[0]) == "" {
		return "", nil, fmt.Errorf("empty command template")
	}

	replacer := strings.NewReplacer(
		PlaceholderParallelism, strconv.Itoa(cfg.Parallelism),
		PlaceholderSize, strconv.FormatInt(cfg.ProblemSize, 10),
	)

	rest := template[1:]
	if len(rest) == 0 {
		rest = DefaultArgs
	}

	path := replacer.Replace(template[0])
	args := make([]string, 0, len(rest)+len(cfg.ExtraParams))
	for _, arg := range rest {
		if arg == PlaceholderExtra {
			args = append(args, cfg.ExtraParams...)
			continue
		}
		args = append(args, replacer.Replace(arg))
	}

	return path, args, nil
}

// CommandLine joins an invocation with proper shell escaping, for logs and
// sweep records.
func CommandLine(path string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, shellescape.Quote(path))

	for _, arg := range args {
		parts = append(parts, shellescape.Quote(arg))
	}

	return strings.Join(parts, " ")
}
