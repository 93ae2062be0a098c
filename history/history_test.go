package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfgo/perfsweep/model"
)

func writeSweep(t *testing.T, root string, h *model.History, datasets ...model.Dataset) string {
	t.Helper()

	dir := DirFor(root, h)
	require.NoError(t, os.MkdirAll(dir, 0755))
	for _, ds := range datasets {
		artifact, err := SaveDataset(dir, ds)
		require.NoError(t, err)
		h.Artifacts = append(h.Artifacts, artifact)
		h.Families = append(h.Families, model.FamilySummary{
			Name:        ds.Family,
			Records:     len(ds.Records),
			DatasetFile: artifact.File,
		})
	}
	require.NoError(t, SaveHistory(dir, h))
	return dir
}

func TestDirFor(t *testing.T) {
	ts := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

	h := &model.History{ID: "0123456789abcdef", Timestamp: ts, Git: &model.Git{Commit: "deadbeefcafebabe"}}
	assert.Equal(t, filepath.Join("root", "history", "20260314-150926-deadbeef-01234567"), DirFor("root", h))

	h.Git = nil
	assert.Equal(t, filepath.Join("root", "history", "20260314-150926-nogit-01234567"), DirFor("root", h))
}

func TestLoadEntries(t *testing.T) {
	root := t.TempDir()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	one := 1.0
	older := &model.History{ID: "aaaa1111", Timestamp: base}
	olderDir := writeSweep(t, root, older, model.Dataset{
		Family: "sort",
		Records: []model.MetricRecord{
			{Family: "sort", GroupKey: 10, Configuration: model.Configuration{Parallelism: 1, ProblemSize: 10}, MeasuredTimeMs: 5, Samples: 1, Speedup: &one, Efficiency: &one},
		},
	})
	newer := &model.History{ID: "bbbb2222", Timestamp: base.Add(time.Hour)}
	writeSweep(t, root, newer, model.Dataset{Family: "integral"}, model.Dataset{Family: "mpi"})

	// broken entries are skipped
	broken := filepath.Join(root, "history", "broken")
	require.NoError(t, os.MkdirAll(broken, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(broken, SweepFile), []byte("{"), 0644))

	entries, err := LoadEntries(zerolog.Nop(), root)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "bbbb2222", entries[0].History.ID)
	assert.Equal(t, "aaaa1111", entries[1].History.ID)
	assert.Equal(t, olderDir, entries[1].FullPath)

	datasets, err := entries[1].LoadDatasets()
	require.NoError(t, err)
	require.Len(t, datasets, 1)
	assert.Equal(t, "sort", datasets[0].Family)
	require.Len(t, datasets[0].Records, 1)
	assert.Equal(t, 5.0, datasets[0].Records[0].MeasuredTimeMs)
	assert.Equal(t, 1.0, *datasets[0].Records[0].Speedup)

	datasets, err = entries[0].LoadDatasets()
	require.NoError(t, err)
	require.Len(t, datasets, 2)
	assert.Equal(t, "integral", datasets[0].Family)
	assert.Equal(t, "mpi", datasets[1].Family)
}

func TestLoadEntries_MissingRoot(t *testing.T) {
	entries, err := LoadEntries(zerolog.Nop(), filepath.Join(t.TempDir(), "nothing"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFind(t *testing.T) {
	entries := []Entry{
		{History: model.History{ID: "cafe0001"}},
		{History: model.History{ID: "beef0002"}},
		{History: model.History{ID: "CAFE0003"}},
	}

	tests := []struct {
		arg     string
		want    string
		wantErr bool
	}{
		{arg: "0", want: "cafe0001"},
		{arg: "-1", want: "beef0002"},
		{arg: "-2", want: "CAFE0003"},
		{arg: "-3", wantErr: true},
		{arg: "1", wantErr: true},
		{arg: "beef", want: "beef0002"},
		{arg: "cafe0003", want: "CAFE0003"},
		{arg: "dead", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := Find(entries, tt.arg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.History.ID)
		})
	}

	_, err := Find(nil, "0")
	require.Error(t, err)
}

func TestResultsRoot_Override(t *testing.T) {
	dir := t.TempDir()
	root, err := ResultsRoot(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, root)
}
