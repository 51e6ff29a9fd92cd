package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zfsmirror/zfsync/internal/zfs"
)

func TestSummaryCounts(t *testing.T) {
	var s Summary
	s.AddDataset(DatasetResult{Dataset: "a", Status: "done"})
	s.AddDataset(DatasetResult{Dataset: "b", Status: "skipped"})
	s.AddDataset(DatasetResult{Dataset: "c", Status: "failed"})
	s.AddDataset(DatasetResult{Dataset: "d", Status: "done"})

	done, skipped, failed := s.Counts()
	assert.Equal(t, 2, done)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, 1, failed)
}

func TestSummaryRatesExcludesInstantSteps(t *testing.T) {
	var s Summary
	s.AddStep(StepRecord{Dataset: "a", Bytes: 1000, Duration: time.Second})
	s.AddStep(StepRecord{Dataset: "a", Bytes: 2000, Duration: 2 * time.Second})
	s.AddStep(StepRecord{Dataset: "a", Bytes: 0, Duration: 0}) // dryrun stand-in

	rs, err := s.Rates()
	require.NoError(t, err)
	assert.InDelta(t, 1000, rs.MedianBytesPerSec, 1)
	assert.Equal(t, int64(3000), rs.TotalBytes)
}

func TestSummaryRatesEmpty(t *testing.T) {
	var s Summary
	rs, err := s.Rates()
	require.NoError(t, err)
	assert.Zero(t, rs.MedianBytesPerSec)
}

func TestDiffReportsNoChangeWhenProjectedMatchesCurrent(t *testing.T) {
	ds, err := zfs.NewDatasetPath("tank1/foo")
	require.NoError(t, err)
	s1 := zfs.SnapshotEntry{Dataset: ds, Name: "s1", Guid: 1, CreateTXG: 10, Kind: zfs.KindSnapshot}

	d, err := Diff("tank1/foo", []zfs.SnapshotEntry{s1}, nil)
	require.NoError(t, err)
	assert.False(t, d.Changed)
}

func TestDiffReportsChangeWhenProjectedAddsSnapshot(t *testing.T) {
	ds, err := zfs.NewDatasetPath("tank1/foo")
	require.NoError(t, err)
	s1 := zfs.SnapshotEntry{Dataset: ds, Name: "s1", Guid: 1, CreateTXG: 10, Kind: zfs.KindSnapshot}
	s2 := zfs.SnapshotEntry{Dataset: ds, Name: "s2", Guid: 2, CreateTXG: 20, Kind: zfs.KindSnapshot}

	d, err := Diff("tank1/foo", []zfs.SnapshotEntry{s1}, []zfs.SnapshotEntry{s2})
	require.NoError(t, err)
	assert.True(t, d.Changed)
	assert.NotEmpty(t, d.Patch)
}
