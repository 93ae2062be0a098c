package model

import (
	"fmt"
	"time"
)

// History represents a single perfsweep invocation stored on disk.
type History struct {
	// Unique ID for this sweep (16 random bytes, hex encoded)
	ID string `json:"id"`
	// Timestamp when the sweep started
	Timestamp time.Time `json:"timestamp"`
	// Command-line arguments (including command name)
	Args []string `json:"args"`
	// Working directory where command was run (relative to repo root)
	WorkDir string `json:"workdir"`
	// Duration of the whole sweep
	Duration time.Duration `json:"duration"`
	// Git information
	Git *Git `json:"git,omitempty"`
	// Target execution environment
	Target *Target `json:"target,omitempty"`
	// One entry per swept family, in execution order
	Families []FamilySummary `json:"families"`
	// Artifacts generated during this sweep
	Artifacts []Artifact `json:"artifacts,omitempty"`
}

// Git contains git repository information
type Git struct {
	// Git commit hash at time of execution
	Commit string `json:"commit,omitempty"`
	// Git branch at time of execution
	Branch string `json:"branch,omitempty"`
	// Repository name
	Repo string `json:"repo,omitempty"`
}

// Target contains information about the execution environment
type Target struct {
	Hostname string `json:"hostname,omitempty"`
	// Remote host the benchmarks ran on, empty for local sweeps
	RemoteHost string `json:"remote_host,omitempty"`
	// Operating system of the execution environment
	OS string `json:"os,omitempty"`
	// CPU architecture of the execution environment
	Arch string `json:"arch,omitempty"`
	// Number of logical CPUs visible to the orchestrator
	CPUs int `json:"cpus,omitempty"`
}

// FamilySummary describes the sweep of one benchmark family.
type FamilySummary struct {
	Name string `json:"name"`
	// Command template, shell quoted
	Command           string        `json:"command"`
	ParallelismLevels []int         `json:"parallelism_levels"`
	ProblemSizes      []int64       `json:"problem_sizes,omitempty"`
	Schemas           []string      `json:"schemas"`
	Repeat            int           `json:"repeat"`
	Timeout           time.Duration `json:"timeout"`
	Runs              int           `json:"runs"`
	Records           int           `json:"records"`
	Failures          int           `json:"failures"`
	// Dataset file name (relative to the sweep dir)
	DatasetFile string `json:"dataset_file"`
}

// ArtifactType identifies the type of artifact
type ArtifactType uint8

const (
	ArtifactTypeDatasetJSON ArtifactType = iota
	ArtifactTypeDatasetCSV
	ArtifactTypeFailures
	ArtifactTypeChart
	ArtifactTypeWorkerProfile
	ArtifactTypeStdout
	ArtifactTypeStderr
	ArtifactTypeMetrics
	ArtifactTypePerfStat
)

var artifactTypeNames = map[ArtifactType]string{
	ArtifactTypeDatasetJSON:   "dataset",
	ArtifactTypeDatasetCSV:    "csv",
	ArtifactTypeFailures:      "failures",
	ArtifactTypeChart:         "chart",
	ArtifactTypeWorkerProfile: "profile",
	ArtifactTypeStdout:        "stdout",
	ArtifactTypeStderr:        "stderr",
	ArtifactTypeMetrics:       "metrics",
	ArtifactTypePerfStat:      "perf-stat",
}

func (t ArtifactType) String() string {
	if name, ok := artifactTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("artifact(%d)", uint8(t))
}

// Artifact represents a file generated during a sweep
type Artifact struct {
	Type   ArtifactType `json:"type"`
	Family string       `json:"family,omitempty"`
	Size   uint64       `json:"size"`
	File   string       `json:"file"` // relative to sweep dir
}
