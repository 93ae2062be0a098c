package model

import (
	"fmt"
	"time"
)

// ExitKind classifies how a benchmark process ended.
type ExitKind uint8

const (
	ExitSuccess ExitKind = iota
	ExitNonZero
	ExitTimedOut
	ExitLaunchFailed
)

func (k ExitKind) String() string {
	switch k {
	case ExitSuccess:
		return "success"
	case ExitNonZero:
		return "non-zero-exit"
	case ExitTimedOut:
		return "timed-out"
	case ExitLaunchFailed:
		return "launch-failed"
	}
	return fmt.Sprintf("exit-kind(%d)", uint8(k))
}

// ExitStatus is the exit classification of one run.
type ExitStatus struct {
	Kind ExitKind `json:"kind"`
	// Exit code, only meaningful for ExitNonZero
	Code int `json:"code,omitempty"`
	// Launch failure cause, only set for ExitLaunchFailed
	Cause string `json:"cause,omitempty"`
}

func (s ExitStatus) String() string {
	switch s.Kind {
	case ExitNonZero:
		return fmt.Sprintf("%s(%d)", s.Kind, s.Code)
	case ExitLaunchFailed:
		return fmt.Sprintf("%s(%s)", s.Kind, s.Cause)
	}
	return s.Kind.String()
}

// RunOutcome is the result of a single benchmark invocation. It is never
// modified after the executor returns it.
type RunOutcome struct {
	Configuration Configuration `json:"configuration"`
	// Command line that was executed, shell quoted
	CommandLine string        `json:"command_line"`
	Status      ExitStatus    `json:"status"`
	Stdout      string        `json:"-"`
	Stderr      string        `json:"-"`
	WallClock   time.Duration `json:"wall_clock"`
}

// Succeeded reports whether the process exited with status zero.
func (o RunOutcome) Succeeded() bool {
	return o.Status.Kind == ExitSuccess
}
