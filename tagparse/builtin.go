package tagparse

// builtin.go contains the schemas of the benchmark programs perfsweep knows
// out of the box.

import (
	"fmt"
	"sort"
)

var builtins = map[string]Schema{
	"sort": {
		Name:   "sort",
		Marker: "DATAPOINT:",
		Kind:   KindTiming,
		Fields: []Field{
			{Name: "size", Role: RoleSize},
			{Name: "threads", Role: RoleParallelism},
			{Name: "qsort_ms", Role: RoleAux},
			{Name: "stdsort_ms", Role: RoleAux},
			{Name: "parallel_ms", Role: RoleTime},
		},
	},
	"integral-single": {
		Name:   "integral-single",
		Marker: "DATAPOINT_INTEGRAL_SINGLE:",
		Kind:   KindTiming,
		Fields: []Field{
			{Name: "time_ms", Role: RoleTime},
			{Name: "evals", Role: RoleAux},
		},
	},
	"integral-multi": {
		Name:   "integral-multi",
		Marker: "DATAPOINT_INTEGRAL_MULTI:",
		Kind:   KindTiming,
		Fields: []Field{
			{Name: "threads", Role: RoleParallelism},
			{Name: "time_ms", Role: RoleTime},
			{Name: "evals", Role: RoleAux},
		},
	},
	"thread-time": {
		Name:   "thread-time",
		Marker: "THREAD_TIME_MS:",
		Kind:   KindPerWorker,
		Fields: []Field{
			{Name: "thread", Role: RoleWorker},
			{Name: "time_ms", Role: RoleValue},
		},
	},
	"mpi-time": {
		Name:   "mpi-time",
		Marker: "Время:",
		Kind:   KindTiming,
		Fields: []Field{
			{Name: "time_s", Role: RoleTime},
			{Name: "unit", Role: RoleIgnore},
		},
		Scale: 1000,
	},
	"time-ms": {
		Name:   "time-ms",
		Marker: "TIME_MS:",
		Kind:   KindTiming,
		Fields: []Field{
			{Name: "time_ms", Role: RoleTime},
		},
	},
}

// Builtin returns the builtin schema with the given name.
func Builtin(name string) (Schema, bool) {
	s, ok := builtins[name]
	return s, ok
}

// BuiltinNames returns the names of all builtin schemas, sorted.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve looks up schemas by name, first among custom schemas and then among
// the builtins.
func Resolve(names []string, custom map[string]Schema) ([]Schema, error) {
	out := make([]Schema, 0, len(names))
	for _, name := range names {
		if s, ok := custom[name]; ok {
			out = append(out, s)
			continue
		}
		s, ok := Builtin(name)
		if !ok {
			return nil, fmt.Errorf("unknown schema %q (builtin schemas: %v)", name, BuiltinNames())
		}
		out = append(out, s)
	}
	return out, nil
}
