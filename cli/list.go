package cli

// This file contains the list command for displaying previous sweeps.

import (
	"fmt"
	"strings"
	"time"

	"github.com/perfgo/perfsweep/history"
	"github.com/perfgo/perfsweep/model"
	"github.com/urfave/cli/v2"
)

func (a *App) list(ctx *cli.Context) error {
	filterFamily := ctx.String("family")
	limit := ctx.Int("limit")

	root, err := history.ResultsRoot(ctx.String("results-dir"))
	if err != nil {
		return err
	}

	// Load all history entries, newest first
	historyEntries, err := history.LoadEntries(a.logger, root)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	// Apply family filter if specified
	var filteredEntries []history.Entry
	for _, entry := range historyEntries {
		if filterFamily == "" || hasFamily(entry.History, filterFamily) {
			filteredEntries = append(filteredEntries, entry)
		}
	}

	if len(filteredEntries) == 0 {
		if filterFamily != "" {
			fmt.Printf("No history entries found for family: %s\n", filterFamily)
		} else {
			fmt.Println("No history entries found")
		}
		return nil
	}

	// Apply limit
	displayRuns := filteredEntries
	if limit > 0 && limit < len(displayRuns) {
		displayRuns = displayRuns[:limit]
	}

	fmt.Printf("\n=== History (%d total) ===\n\n", len(filteredEntries))

	for _, entry := range displayRuns {
		h := entry.History
		timestamp := h.Timestamp.Format("2006-01-02 15:04:05")
		duration := h.Duration.Round(time.Millisecond)

		records, failures := 0, 0
		for _, f := range h.Families {
			records += f.Records
			failures += f.Failures
		}

		// Show short ID (first 8 chars)
		shortID := h.ID
		if len(shortID) > 8 {
			shortID = shortID[:8]
		}

		fmt.Printf("%s  %s  [%s]  records=%d  failures=%d  id=%s\n",
			statusMarker(records, failures), timestamp, duration, records, failures, bold(shortID))
		for _, f := range h.Families {
			fmt.Printf("   %s: p=%s", f.Name, joinInts(f.ParallelismLevels))
			if len(f.ProblemSizes) > 0 {
				fmt.Printf(" sizes=%s", joinInt64s(f.ProblemSizes))
			}
			fmt.Printf(" runs=%d\n", f.Runs)
		}
		if h.WorkDir != "" {
			fmt.Printf("   Path: %s\n", h.WorkDir)
		}
		if h.Target != nil {
			if h.Target.RemoteHost != "" {
				fmt.Printf("   Remote: %s", h.Target.RemoteHost)
				if h.Target.OS != "" && h.Target.Arch != "" {
					fmt.Printf(" (%s/%s, %d cpus)", h.Target.OS, h.Target.Arch, h.Target.CPUs)
				}
				fmt.Println()
			} else if h.Target.OS != "" && h.Target.Arch != "" {
				fmt.Printf("   Local: %s/%s, %d cpus\n", h.Target.OS, h.Target.Arch, h.Target.CPUs)
			}
		}
		if h.Git != nil && h.Git.Commit != "" {
			shortCommit := h.Git.Commit
			if len(shortCommit) > 8 {
				shortCommit = shortCommit[:8]
			}
			fmt.Printf("   Commit: %s", shortCommit)
			if h.Git.Branch != "" {
				fmt.Printf(" (%s)", h.Git.Branch)
			}
			fmt.Println()
		}
		fmt.Printf("   %s\n", dim(entry.FullPath))
		fmt.Println()
	}

	fmt.Println("\nView a sweep: perfsweep view <ID>")
	fmt.Println("Export datasets: perfsweep export <ID>...")

	return nil
}

func hasFamily(h model.History, name string) bool {
	for _, f := range h.Families {
		if f.Name == name {
			return true
		}
	}
	return false
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ",")
}

func joinInt64s(values []int64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ",")
}
