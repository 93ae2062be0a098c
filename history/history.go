package history

// This file contains shared history utilities for locating, loading and
// selecting stored sweeps.

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/perfgo/perfsweep/model"
	"github.com/rs/zerolog"
)

const (
	// DirName is the results directory created in the repository root
	DirName = ".perfsweep"
	// SweepFile is the metadata file of every stored sweep
	SweepFile = "sweep.json"
	// FailuresFile lists the failures of all families of a sweep
	FailuresFile = "failures.json"
)

type Entry struct {
	History  model.History
	FullPath string
}

// RepoRoot returns the top level directory of the enclosing git repository.
func RepoRoot() (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("not in a git repository: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// ResultsRoot returns the results directory: override when set, otherwise
// .perfsweep in the git repository root, or in the working directory outside
// a repository.
func ResultsRoot(override string) (string, error) {
	if override != "" {
		return filepath.Abs(override)
	}

	if repoRoot, err := RepoRoot(); err == nil {
		return filepath.Join(repoRoot, DirName), nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return filepath.Join(wd, DirName), nil
}

// LoadEntries loads all history entries below root.
func LoadEntries(logger zerolog.Logger, root string) ([]Entry, error) {
	var entries []Entry

	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			sweepPath := filepath.Join(path, SweepFile)
			if _, err := os.Stat(sweepPath); err == nil {
				history, err := parseSweepJSON(sweepPath)
				if err != nil {
					logger.Warn().Err(err).Str("path", sweepPath).Msg("Failed to parse sweep.json")
					return nil
				}

				entries = append(entries, Entry{
					History:  history,
					FullPath: path,
				})
				return filepath.SkipDir
			}
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	SortNewestFirst(entries)
	return entries, nil
}

// SortNewestFirst orders entries by timestamp, newest first.
func SortNewestFirst(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].History.Timestamp.After(entries[j].History.Timestamp)
	})
}

// Find selects an entry of a newest first list. arg is either an index
// counted back from the newest entry (0, -1, -2, ...) or a prefix of the
// hex sweep ID.
func Find(entries []Entry, arg string) (*Entry, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("no history entries found")
	}

	if parsed, err := strconv.ParseInt(arg, 10, 64); err == nil {
		if parsed > 0 {
			return nil, fmt.Errorf("invalid index: %s (use 0 for last, -1 for second-to-last, -2 for third-to-last, etc.)", arg)
		}
		index := int(-parsed)
		if index >= len(entries) {
			return nil, fmt.Errorf("index %s out of range (only %d history entries)", arg, len(entries))
		}
		return &entries[index], nil
	}

	hexID := strings.ToLower(arg)
	for i := range entries {
		if strings.HasPrefix(strings.ToLower(entries[i].History.ID), hexID) {
			return &entries[i], nil
		}
	}
	return nil, fmt.Errorf("no history entry found matching ID: %s", arg)
}

// parseSweepJSON parses a sweep.json file.
func parseSweepJSON(path string) (model.History, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.History{}, err
	}

	var history model.History
	if err := json.Unmarshal(data, &history); err != nil {
		return model.History{}, err
	}

	return history, nil
}
