package errscope

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zfsmirror/zfsync/internal/plan"
	"github.com/zfsmirror/zfsync/internal/zfs"
)

func item(src string, depth int) plan.WorkItem {
	p, err := zfs.NewDatasetPath(src)
	if err != nil {
		panic(err)
	}
	return plan.WorkItem{Src: p, Dst: p, Depth: depth}
}

func TestModeFailAbortsRun(t *testing.T) {
	c := New(ModeFail)
	d := c.HandleFailure(item("tank1/foo", 0), true, nil)
	require.True(t, d.AbortRun)
}

func TestModeTreeSkipsDescendants(t *testing.T) {
	items := []plan.WorkItem{
		item("tank1/foo", 0),
		item("tank1/foo/bar", 1),
		item("tank1/other", 0),
	}
	c := New(ModeTree)
	c.HandleFailure(items[0], true, items)

	require.True(t, c.Skipped(items[1]), "descendant should be skipped")
	require.False(t, c.Skipped(items[2]), "unrelated sibling should not be skipped")
}

func TestModeDatasetSkipsOnlyItselfWhenDestinationExisted(t *testing.T) {
	items := []plan.WorkItem{
		item("tank1/foo", 0),
		item("tank1/foo/bar", 1),
	}
	c := New(ModeDataset)
	c.HandleFailure(items[0], true, items)

	require.True(t, c.Skipped(items[0]), "dataset itself should be skipped")
	require.False(t, c.Skipped(items[1]), "child should not be skipped when destination already existed")
}

func TestModeDatasetDegradesToTreeWhenDestinationMissing(t *testing.T) {
	items := []plan.WorkItem{
		item("tank1/foo", 0),
		item("tank1/foo/bar", 1),
	}
	c := New(ModeDataset)
	c.HandleFailure(items[0], false, items)

	require.True(t, c.Skipped(items[1]), "child should be skipped, destination can't receive without its parent")
}
