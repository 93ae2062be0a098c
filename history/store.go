package history

// This file contains the writers for a sweep directory.

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/perfgo/perfsweep/model"
)

// DirFor returns the directory of a sweep below root:
// history/<timestamp>-<commit>-<id>.
func DirFor(root string, h *model.History) string {
	timestamp := h.Timestamp.Format("20060102-150405")
	shortCommit := "nogit"
	if h.Git != nil && h.Git.Commit != "" {
		shortCommit = h.Git.Commit
		if len(shortCommit) > 8 {
			shortCommit = shortCommit[:8]
		}
	}
	shortID := h.ID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}

	return filepath.Join(root, "history", fmt.Sprintf("%s-%s-%s", timestamp, shortCommit, shortID))
}

// WriteFile writes data to name in dir and returns the artifact describing it.
func WriteFile(dir, name string, typ model.ArtifactType, family string, data []byte) (model.Artifact, error) {
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		return model.Artifact{}, fmt.Errorf("failed to write %s: %w", name, err)
	}
	return model.Artifact{
		Type:   typ,
		Family: family,
		Size:   uint64(len(data)),
		File:   name,
	}, nil
}

// WriteJSON writes v as indented JSON to name in dir.
func WriteJSON(dir, name string, typ model.ArtifactType, family string, v any) (model.Artifact, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return model.Artifact{}, fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	return WriteFile(dir, name, typ, family, data)
}

// SaveDataset stores the dataset of a family as <family>.json.
func SaveDataset(dir string, ds model.Dataset) (model.Artifact, error) {
	return WriteJSON(dir, ds.Family+".json", model.ArtifactTypeDatasetJSON, ds.Family, ds)
}

// SaveHistory writes the sweep metadata.
func SaveHistory(dir string, h *model.History) error {
	if _, err := WriteJSON(dir, SweepFile, model.ArtifactTypeDatasetJSON, "", h); err != nil {
		return fmt.Errorf("failed to write sweep metadata: %w", err)
	}
	return nil
}

// LoadDataset reads a dataset written by SaveDataset.
func LoadDataset(path string) (model.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Dataset{}, fmt.Errorf("failed to read dataset: %w", err)
	}

	var ds model.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return model.Dataset{}, fmt.Errorf("failed to parse dataset %s: %w", path, err)
	}
	return ds, nil
}

// LoadDatasets reads the datasets of every family of an entry, in sweep
// order.
func (e *Entry) LoadDatasets() ([]model.Dataset, error) {
	datasets := make([]model.Dataset, 0, len(e.History.Families))
	for _, f := range e.History.Families {
		if f.DatasetFile == "" {
			continue
		}
		ds, err := LoadDataset(filepath.Join(e.FullPath, f.DatasetFile))
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, ds)
	}
	return datasets, nil
}
