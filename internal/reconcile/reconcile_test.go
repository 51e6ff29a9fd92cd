package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zfsmirror/zfsync/internal/zfs"
)

func mkds(t *testing.T, s string) zfs.DatasetPath {
	t.Helper()
	p, err := zfs.NewDatasetPath(s)
	require.NoError(t, err)
	return p
}

func TestSnapshotsMissingFromFindsOrphans(t *testing.T) {
	ds := mkds(t, "tank1/foo")
	dstEntries := []zfs.SnapshotEntry{
		{Dataset: ds, Name: "keep", Guid: 1, Kind: zfs.KindSnapshot},
		{Dataset: ds, Name: "orphan1", Guid: 2, Kind: zfs.KindSnapshot},
		{Dataset: ds, Name: "orphan2", Guid: 3, Kind: zfs.KindSnapshot},
	}
	srcGUIDs := map[uint64]bool{1: true}

	got := snapshotsMissingFrom(dstEntries, srcGUIDs)
	require.Len(t, got, 2)
	assert.Equal(t, "orphan1", got[0].Name)
	assert.Equal(t, "orphan2", got[1].Name)
}

func TestSnapshotsMissingFromNoneOrphaned(t *testing.T) {
	ds := mkds(t, "tank1/foo")
	dstEntries := []zfs.SnapshotEntry{
		{Dataset: ds, Name: "keep", Guid: 1, Kind: zfs.KindSnapshot},
	}
	srcGUIDs := map[uint64]bool{1: true}

	assert.Empty(t, snapshotsMissingFrom(dstEntries, srcGUIDs))
}

func TestShouldDestroyDatasetStillWanted(t *testing.T) {
	assert.False(t, shouldDestroyDataset(true, false), "still selected and has snapshots: keep")
	assert.True(t, shouldDestroyDataset(true, true), "still selected but empty subtree: destroy")
}

func TestShouldDestroyDatasetNoLongerWanted(t *testing.T) {
	assert.True(t, shouldDestroyDataset(false, false), "fell outside selected tree: destroy regardless of snapshots")
	assert.True(t, shouldDestroyDataset(false, true), "fell outside selected tree and empty: destroy")
}
