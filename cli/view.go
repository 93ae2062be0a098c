package cli

// This file contains the view command for displaying sweeps from history.

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/perfgo/perfsweep/history"
	"github.com/perfgo/perfsweep/model"
	"github.com/perfgo/perfsweep/report"
	"github.com/urfave/cli/v2"
)

func removeFirstDashDash(in []string) []string {
	if len(in) > 0 && in[0] == "--" {
		return in[1:]
	}
	return in
}

func parseViewArgs(in []string) (idArg string, pprofArgs []string) {
	if len(in) == 0 {
		return "0", nil
	}

	// If first arg is "--", use default "0" and rest are pprof args
	if in[0] == "--" {
		return "0", in[1:]
	}

	// Check if first arg looks like a pprof flag instead of an ID
	// A negative index is: "-" followed by only digits (e.g., "-1", "-2")
	// A pprof flag is: "-" followed by non-digit or equals (e.g., "-http=:8080", "-top")
	if len(in[0]) > 1 && in[0][0] == '-' {
		// Check if it's a valid negative integer
		if _, err := strconv.ParseInt(in[0], 10, 64); err != nil {
			// Not a valid negative integer, so it's a pprof flag
			return "0", in
		}
	}

	// First arg is the ID/index, rest are pprof args (with optional "--" removed)
	return in[0], removeFirstDashDash(in[1:])
}

func (a *App) view(ctx *cli.Context) error {
	// Parse arguments to extract ID/index and pprof args
	arg, pprofArgs := parseViewArgs(ctx.Args().Slice())

	root, err := history.ResultsRoot(ctx.String("results-dir"))
	if err != nil {
		return err
	}

	historyEntries, err := history.LoadEntries(a.logger, root)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	entry, err := history.Find(historyEntries, arg)
	if err != nil {
		return err
	}

	if ctx.Bool("profile") || len(pprofArgs) > 0 {
		artifact := findArtifact(entry.History, model.ArtifactTypeWorkerProfile)
		if artifact == nil {
			return fmt.Errorf("sweep %s has no per-worker profile", entry.History.ID)
		}
		return a.displayProfile(entry.FullPath, artifact, pprofArgs)
	}

	return a.displayHistoryEntry(entry, ctx.Bool("failures"))
}

func (a *App) displayHistoryEntry(entry *history.Entry, allFailures bool) error {
	h := entry.History

	// Print header
	shortID := h.ID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	fmt.Printf("=== Sweep: %s ===\n", shortID)
	fmt.Printf("Time: %s\n", h.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Printf("Duration: %s\n", h.Duration)
	if h.WorkDir != "" {
		fmt.Printf("Working Dir: %s\n", h.WorkDir)
	}
	if h.Git != nil && h.Git.Commit != "" {
		shortCommit := h.Git.Commit
		if len(shortCommit) > 8 {
			shortCommit = shortCommit[:8]
		}
		fmt.Printf("Git Commit: %s", shortCommit)
		if h.Git.Branch != "" {
			fmt.Printf(" (%s)", h.Git.Branch)
		}
		fmt.Println()
	}
	if h.Target != nil {
		host := h.Target.Hostname
		if h.Target.RemoteHost != "" {
			host = h.Target.RemoteHost
		}
		fmt.Printf("Target: %s (%s/%s, %d cpus)\n", host, h.Target.OS, h.Target.Arch, h.Target.CPUs)
	}
	for _, f := range h.Families {
		fmt.Printf("Family %s: %s (repeat=%d, timeout=%s, runs=%d)\n", f.Name, f.Command, f.Repeat, f.Timeout, f.Runs)
	}

	datasets, err := entry.LoadDatasets()
	if err != nil {
		return err
	}

	var failures []model.Failure
	for _, ds := range datasets {
		if err := printDataset(os.Stdout, ds); err != nil {
			return err
		}
		failures = append(failures, ds.Failures...)
	}

	if allFailures && len(failures) > 0 {
		fmt.Println()
		if err := report.WriteFailures(os.Stdout, failures); err != nil {
			return err
		}
	} else {
		printFailureSummary(os.Stdout, failures)
	}

	fmt.Printf("\nHistory directory: %s\n", entry.FullPath)
	return nil
}

func findArtifact(h model.History, typ model.ArtifactType) *model.Artifact {
	for i := range h.Artifacts {
		if h.Artifacts[i].Type == typ {
			return &h.Artifacts[i]
		}
	}
	return nil
}

func (a *App) displayProfile(runDir string, artifact *model.Artifact, pprofArgs []string) error {
	profilePath := filepath.Join(runDir, artifact.File)
	fmt.Printf("Profile: %s (%.1f KB)\n", profilePath, float64(artifact.Size)/1024)

	// Build pprof command with any additional args
	args := []string{"tool", "pprof"}
	args = append(args, pprofArgs...)
	args = append(args, profilePath)

	cmd := exec.Command("go", args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Dir = runDir

	return cmd.Run()
}
