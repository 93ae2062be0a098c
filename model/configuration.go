package model

import "fmt"

// Configuration is one point of a sweep grid.
type Configuration struct {
	// Degree of parallelism (threads, processes, ranks). Always >= 1.
	Parallelism int `json:"parallelism"`
	// Problem size (vector length, grid size, message size). Zero when the family has no size axis.
	ProblemSize int64 `json:"problem_size"`
	// Family specific parameters, passed after parallelism and problem size
	ExtraParams []string `json:"extra_params,omitempty"`
}

// ConfigKey is the equality key of a Configuration.
type ConfigKey struct {
	Parallelism int
	ProblemSize int64
}

// Key returns the deduplication key of the configuration.
func (c Configuration) Key() ConfigKey {
	return ConfigKey{Parallelism: c.Parallelism, ProblemSize: c.ProblemSize}
}

func (c Configuration) String() string {
	return fmt.Sprintf("parallelism=%d size=%d", c.Parallelism, c.ProblemSize)
}
