package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zfsmirror/zfsync/internal/filter"
	"github.com/zfsmirror/zfsync/internal/zfs"
)

func mkds(t *testing.T, s string) zfs.DatasetPath {
	t.Helper()
	p, err := zfs.NewDatasetPath(s)
	require.NoError(t, err)
	return p
}

func mkpaths(t *testing.T, ss ...string) []zfs.DatasetPath {
	t.Helper()
	out := make([]zfs.DatasetPath, len(ss))
	for i, s := range ss {
		out[i] = mkds(t, s)
	}
	return out
}

func TestSelectItemsNoFilterSelectsEverythingRemapped(t *testing.T) {
	srcRoot := mkds(t, "tank1/foo")
	dstRoot := mkds(t, "backup/foo")
	paths := mkpaths(t, "tank1/foo", "tank1/foo/bar", "tank1/foo/bar/baz")

	items, err := selectItems(paths, srcRoot, dstRoot, filter.Spec{})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "backup/foo", items[0].Dst.String())
	assert.Equal(t, 0, items[0].Depth)
	assert.Equal(t, "backup/foo/bar", items[1].Dst.String())
	assert.Equal(t, 1, items[1].Depth)
	assert.Equal(t, "backup/foo/bar/baz", items[2].Dst.String())
	assert.Equal(t, 2, items[2].Depth)
}

func TestSelectItemsRelativeExcludeIsStickyDownTree(t *testing.T) {
	srcRoot := mkds(t, "tank1/foo")
	dstRoot := mkds(t, "backup/foo")
	paths := mkpaths(t, "tank1/foo", "tank1/foo/tmp", "tank1/foo/tmp/child", "tank1/foo/keep")

	exclude, err := filter.Compile([]string{"tmp"})
	require.NoError(t, err)
	items, err := selectItems(paths, srcRoot, dstRoot, filter.Spec{Exclude: exclude})
	require.NoError(t, err)

	var gotSrc []string
	for _, it := range items {
		gotSrc = append(gotSrc, it.Src.String())
	}
	assert.Equal(t, []string{"tank1/foo", "tank1/foo/keep"}, gotSrc)
}

func TestSelectItemsAbsoluteExcludeMatchesFullSourcePath(t *testing.T) {
	srcRoot := mkds(t, "tank1/foo")
	dstRoot := mkds(t, "backup/foo")
	paths := mkpaths(t, "tank1/foo", "tank1/foo/tmp", "tank1/foo/keep")

	// An absolute rule is matched against the full source path, so it
	// excludes tank1/foo/tmp and nothing else.
	exclude, err := filter.Compile([]string{"/tank1/foo/tmp"})
	require.NoError(t, err)
	items, err := selectItems(paths, srcRoot, dstRoot, filter.Spec{Exclude: exclude})
	require.NoError(t, err)

	var gotSrc []string
	for _, it := range items {
		gotSrc = append(gotSrc, it.Src.String())
	}
	assert.Equal(t, []string{"tank1/foo", "tank1/foo/keep"}, gotSrc)
}

func TestSelectItemsAbsoluteExcludeDoesNotMatchDifferentRoot(t *testing.T) {
	srcRoot := mkds(t, "tank2/foo")
	dstRoot := mkds(t, "backup/foo")
	paths := mkpaths(t, "tank2/foo", "tank2/foo/tmp")

	// Rule is anchored to tank1, so an otherwise-identical relative
	// layout under tank2 is unaffected.
	exclude, err := filter.Compile([]string{"/tank1/foo/tmp"})
	require.NoError(t, err)
	items, err := selectItems(paths, srcRoot, dstRoot, filter.Spec{Exclude: exclude})
	require.NoError(t, err)
	assert.Len(t, items, 2)
}
