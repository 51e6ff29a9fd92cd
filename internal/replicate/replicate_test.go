package replicate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zfsmirror/zfsync/internal/resolve"
	"github.com/zfsmirror/zfsync/internal/zfs"
)

func mkds(t *testing.T, s string) zfs.DatasetPath {
	t.Helper()
	p, err := zfs.NewDatasetPath(s)
	require.NoError(t, err)
	return p
}

func TestPlanStepsInitialSingleSnapshot(t *testing.T) {
	ds := mkds(t, "tank1/foo")
	s1 := zfs.SnapshotEntry{Dataset: ds, Name: "s1", Guid: 1, CreateTXG: 10, Kind: zfs.KindSnapshot}

	steps := planSteps(resolve.CommonBase{}, []zfs.SnapshotEntry{s1}, false)
	require.Len(t, steps, 1)
	assert.Equal(t, zfs.SendFull, steps[0].mode)
	assert.Nil(t, steps[0].base)
	assert.Equal(t, s1, steps[0].target)
}

func TestPlanStepsInitialMultipleSnapshotsStreamsIntermediates(t *testing.T) {
	ds := mkds(t, "tank1/foo")
	s1 := zfs.SnapshotEntry{Dataset: ds, Name: "s1", Guid: 1, CreateTXG: 10, Kind: zfs.KindSnapshot}
	s2 := zfs.SnapshotEntry{Dataset: ds, Name: "s2", Guid: 2, CreateTXG: 20, Kind: zfs.KindSnapshot}
	s3 := zfs.SnapshotEntry{Dataset: ds, Name: "s3", Guid: 3, CreateTXG: 30, Kind: zfs.KindSnapshot}

	steps := planSteps(resolve.CommonBase{}, []zfs.SnapshotEntry{s1, s2, s3}, false)
	require.Len(t, steps, 2)
	assert.Equal(t, zfs.SendFull, steps[0].mode)
	assert.Equal(t, s1, steps[0].target)
	assert.Equal(t, zfs.SendIncrementalIntermediates, steps[1].mode)
	assert.Equal(t, s1, *steps[1].base)
	assert.Equal(t, s3, steps[1].target)
}

func TestPlanStepsInitialNoStreamUsesSingleIncremental(t *testing.T) {
	ds := mkds(t, "tank1/foo")
	s1 := zfs.SnapshotEntry{Dataset: ds, Name: "s1", Guid: 1, CreateTXG: 10, Kind: zfs.KindSnapshot}
	s2 := zfs.SnapshotEntry{Dataset: ds, Name: "s2", Guid: 2, CreateTXG: 20, Kind: zfs.KindSnapshot}

	steps := planSteps(resolve.CommonBase{}, []zfs.SnapshotEntry{s1, s2}, true)
	require.Len(t, steps, 2)
	assert.Equal(t, zfs.SendIncrementalSingle, steps[1].mode)
}

func TestPlanStepsWithCommonBaseIncremental(t *testing.T) {
	ds := mkds(t, "tank1/foo")
	base := zfs.SnapshotEntry{Dataset: ds, Name: "s1", Guid: 1, CreateTXG: 10, Kind: zfs.KindSnapshot}
	s2 := zfs.SnapshotEntry{Dataset: ds, Name: "s2", Guid: 2, CreateTXG: 20, Kind: zfs.KindSnapshot}

	cb := resolve.CommonBase{Found: true, Src: base, Dst: base}
	steps := planSteps(cb, []zfs.SnapshotEntry{base, s2}, false)
	require.Len(t, steps, 1)
	assert.Equal(t, zfs.SendIncrementalIntermediates, steps[0].mode)
	assert.Equal(t, base, *steps[0].base)
	assert.Equal(t, s2, steps[0].target)
}

func TestPlanStepsWithCommonBaseNoNewSnapshotsIsNoOp(t *testing.T) {
	ds := mkds(t, "tank1/foo")
	base := zfs.SnapshotEntry{Dataset: ds, Name: "s1", Guid: 1, CreateTXG: 10, Kind: zfs.KindSnapshot}

	cb := resolve.CommonBase{Found: true, Src: base, Dst: base}
	steps := planSteps(cb, []zfs.SnapshotEntry{base}, false)
	assert.Empty(t, steps)
}

func TestFilterCandidatesAppliesNameFilterAndSortsByCreateTXG(t *testing.T) {
	ds := mkds(t, "tank1/foo")
	entries := []zfs.SnapshotEntry{
		{Dataset: ds, Name: "keep2", Guid: 2, CreateTXG: 20, Kind: zfs.KindSnapshot},
		{Dataset: ds, Name: "skip", Guid: 3, CreateTXG: 15, Kind: zfs.KindSnapshot},
		{Dataset: ds, Name: "keep1", Guid: 1, CreateTXG: 10, Kind: zfs.KindSnapshot},
		{Dataset: ds, Name: "bookmark-ish", Guid: 4, CreateTXG: 5, Kind: zfs.KindBookmark},
	}
	allowed := func(name string) bool { return name != "skip" }

	got := filterCandidates(entries, allowed)
	require.Len(t, got, 2)
	assert.Equal(t, "keep1", got[0].Name)
	assert.Equal(t, "keep2", got[1].Name)
}

func TestForceOnceBudgetGrantsExactlyOnce(t *testing.T) {
	b := NewForceOnceBudget()
	assert.True(t, b.Take())
	assert.False(t, b.Take())
}

func TestNeedsPlaceholderAncestor(t *testing.T) {
	assert.True(t, needsPlaceholderAncestor(SkipMissingContinue, false))
	assert.False(t, needsPlaceholderAncestor(SkipMissingContinue, true))
	assert.False(t, needsPlaceholderAncestor(SkipMissingFail, false))
	assert.False(t, needsPlaceholderAncestor(SkipMissingDataset, false))
}
