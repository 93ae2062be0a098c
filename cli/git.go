package cli

// This file contains Git integration utilities for retrieving
// repository information.

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/perfgo/perfsweep/history"
	"github.com/perfgo/perfsweep/model"
)

func (a *App) getGitInfo() (commit, branch string, err error) {
	// Get current commit hash
	cmd := exec.Command("git", "rev-parse", "HEAD")
	output, err := cmd.Output()
	if err != nil {
		return "", "", fmt.Errorf("failed to get git commit: %w", err)
	}
	commit = strings.TrimSpace(string(output))

	// Get current branch
	cmd = exec.Command("git", "rev-parse", "--abbrev-ref", "HEAD")
	output, err = cmd.Output()
	if err != nil {
		return "", "", fmt.Errorf("failed to get git branch: %w", err)
	}
	branch = strings.TrimSpace(string(output))

	return commit, branch, nil
}

// fillGitInfo records the repository state and the working directory relative
// to the repository root. Sweeps outside a repository keep the absolute
// working directory and no git information.
func (a *App) fillGitInfo(h *model.History) {
	wd, err := os.Getwd()
	if err != nil {
		a.logger.Warn().Err(err).Msg("Failed to get working directory")
		return
	}
	h.WorkDir = wd

	repoRoot, err := history.RepoRoot()
	if err != nil {
		a.logger.Debug().Err(err).Msg("Not in a git repository")
		return
	}
	if rel, err := filepath.Rel(repoRoot, wd); err == nil {
		h.WorkDir = rel
	}

	commit, branch, err := a.getGitInfo()
	if err != nil {
		a.logger.Warn().Err(err).Msg("Failed to get git info")
		return
	}
	h.Git = &model.Git{
		Commit: commit,
		Branch: branch,
		Repo:   filepath.Base(repoRoot),
	}
}
